// repository/feed_repository.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/maheshrc27/formpay/internal/models"
)

type FeedRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Feed, bool, error)
	GetFeedsForForm(ctx context.Context, formID int64) ([]*models.Feed, error)
	GetPaymentFeed(ctx context.Context, entry *models.Entry) (*models.Feed, bool, error)
}

type feedRepository struct {
	db *sql.DB
}

func NewFeedRepository(db *sql.DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) GetByID(ctx context.Context, id int64) (*models.Feed, bool, error) {
	var feed models.Feed
	var meta []byte
	query := "SELECT id, form_id, is_active, meta FROM feeds WHERE id = $1"
	err := r.db.QueryRowContext(ctx, query, id).Scan(&feed.ID, &feed.FormID, &feed.IsActive, &meta)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	if err := json.Unmarshal(meta, &feed.Meta); err != nil {
		slog.Info(err.Error())
		return nil, false, err
	}
	return &feed, true, nil
}

func (r *feedRepository) GetFeedsForForm(ctx context.Context, formID int64) ([]*models.Feed, error) {
	query := "SELECT id, form_id, is_active, meta FROM feeds WHERE form_id = $1 ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query, formID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var feeds []*models.Feed
	for rows.Next() {
		var feed models.Feed
		var meta []byte
		if err := rows.Scan(&feed.ID, &feed.FormID, &feed.IsActive, &meta); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if err := json.Unmarshal(meta, &feed.Meta); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		feeds = append(feeds, &feed)
	}
	return feeds, rows.Err()
}

// GetPaymentFeed returns the first active feed for the entry's form.
func (r *feedRepository) GetPaymentFeed(ctx context.Context, entry *models.Entry) (*models.Feed, bool, error) {
	feeds, err := r.GetFeedsForForm(ctx, entry.FormID)
	if err != nil {
		return nil, false, err
	}
	for _, feed := range feeds {
		if feed.IsActive {
			return feed, true, nil
		}
	}
	return nil, false, nil
}
