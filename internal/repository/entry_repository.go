// repository/entry_repository.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/maheshrc27/formpay/internal/models"
)

type EntryRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Entry, bool, error)
	Create(ctx context.Context, entry *models.Entry) (int64, error)
	FindIDByTransactionID(ctx context.Context, transactionID string) (int64, bool, error)
	UpdatePayment(ctx context.Context, entry *models.Entry) error
	UpdateMeta(ctx context.Context, entryID int64, key, value string) error
	AddNote(ctx context.Context, entryID int64, note string) error
	ApplyAction(ctx context.Context, action *models.EntryAction) error
	ListStaleAuthorizations(ctx context.Context, olderThan time.Time) ([]*models.Entry, error)
}

type entryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) EntryRepository {
	return &entryRepository{db: db}
}

func (r *entryRepository) GetByID(ctx context.Context, id int64) (*models.Entry, bool, error) {
	var entry models.Entry
	var fields, meta []byte
	query := "SELECT id, form_id, currency, transaction_id, payment_status, payment_amount, payment_method, fields, meta FROM entries WHERE id = $1"
	err := r.db.QueryRowContext(ctx, query, id).Scan(&entry.ID, &entry.FormID, &entry.Currency, &entry.TransactionID, &entry.PaymentStatus, &entry.PaymentAmount, &entry.PaymentMethod, &fields, &meta)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	if err := unmarshalMap(fields, &entry.Fields); err != nil {
		return nil, false, err
	}
	if err := unmarshalMap(meta, &entry.Meta); err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

func (r *entryRepository) Create(ctx context.Context, entry *models.Entry) (int64, error) {
	fields, err := json.Marshal(entry.Fields)
	if err != nil {
		return 0, err
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return 0, err
	}

	query := "INSERT INTO entries (form_id, currency, payment_status, fields, meta) VALUES ($1, $2, $3, $4, $5) RETURNING id"
	var id int64
	err = r.db.QueryRowContext(ctx, query, entry.FormID, entry.Currency, entry.PaymentStatus, fields, meta).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// FindIDByTransactionID is the join key from an inbound event back to the
// entry. Both charge ids and subscription ids are stored in transaction_id.
func (r *entryRepository) FindIDByTransactionID(ctx context.Context, transactionID string) (int64, bool, error) {
	var id int64
	query := "SELECT id FROM entries WHERE transaction_id = $1"
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		slog.Info(err.Error())
		return 0, false, err
	}
	return id, true, nil
}

func (r *entryRepository) UpdatePayment(ctx context.Context, entry *models.Entry) error {
	query := `
		UPDATE entries
		SET transaction_id = $1,
			payment_status = $2,
			payment_amount = $3,
			payment_method = $4,
			updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, entry.TransactionID, entry.PaymentStatus, entry.PaymentAmount, entry.PaymentMethod, time.Now(), entry.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *entryRepository) UpdateMeta(ctx context.Context, entryID int64, key, value string) error {
	patch, err := json.Marshal(map[string]string{key: value})
	if err != nil {
		return err
	}

	query := "UPDATE entries SET meta = COALESCE(meta, '{}'::jsonb) || $1::jsonb, updated_at = $2 WHERE id = $3"
	_, err = r.db.ExecContext(ctx, query, patch, time.Now(), entryID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *entryRepository) AddNote(ctx context.Context, entryID int64, note string) error {
	query := "INSERT INTO entry_notes (entry_id, note) VALUES ($1, $2)"
	_, err := r.db.ExecContext(ctx, query, entryID, note)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ApplyAction applies a normalized webhook action to the entry. The event id
// is recorded first; a redelivered event hits the conflict and the whole apply
// becomes a no-op, which keeps duplicate webhook deliveries idempotent.
func (r *entryRepository) ApplyAction(ctx context.Context, action *models.EntryAction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO entry_actions (event_id, entry_id, action_type, amount) VALUES ($1, $2, $3, $4) ON CONFLICT (event_id) DO NOTHING",
		action.EventID, action.EntryID, action.Type, action.Amount)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		slog.Info("action already applied", "event_id", action.EventID, "entry_id", action.EntryID)
		return tx.Commit()
	}

	status, ok := statusForAction(action.Type)
	if ok {
		_, err = tx.ExecContext(ctx,
			"UPDATE entries SET payment_status = $1, updated_at = $2 WHERE id = $3",
			status, time.Now(), action.EntryID)
		if err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	if action.Note != "" {
		_, err = tx.ExecContext(ctx, "INSERT INTO entry_notes (entry_id, note) VALUES ($1, $2)", action.EntryID, action.Note)
		if err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	return tx.Commit()
}

func (r *entryRepository) ListStaleAuthorizations(ctx context.Context, olderThan time.Time) ([]*models.Entry, error) {
	query := "SELECT id, form_id, currency, transaction_id, payment_status FROM entries WHERE payment_status = $1 AND updated_at < $2"
	rows, err := r.db.QueryContext(ctx, query, models.PaymentStatusAuthorized, olderThan)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		var entry models.Entry
		if err := rows.Scan(&entry.ID, &entry.FormID, &entry.Currency, &entry.TransactionID, &entry.PaymentStatus); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func statusForAction(actionType string) (string, bool) {
	switch actionType {
	case models.ActionRefundPayment:
		return models.PaymentStatusRefunded, true
	case models.ActionVoidAuthorization:
		return models.PaymentStatusVoided, true
	case models.ActionCancelSubscription:
		return models.PaymentStatusCancelled, true
	case models.ActionAddSubscriptionPayment:
		return models.PaymentStatusActive, true
	case models.ActionFailSubscriptionPayment:
		return models.PaymentStatusFailed, true
	}
	return "", false
}

func unmarshalMap(raw []byte, dst *map[string]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
