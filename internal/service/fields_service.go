package service

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/maheshrc27/formpay/internal/hooks"
	"github.com/maheshrc27/formpay/internal/models"
)

// Stripe metadata limits.
const (
	maxMetaKeys     = 20
	maxMetaKeyLen   = 40
	maxMetaValueLen = 500
)

// FieldValueArgs is the context handed to field value extension points. The
// meta key in flight travels here instead of in shared mutable state.
type FieldValueArgs struct {
	Value   string
	FormID  int64
	Entry   *models.Entry
	FieldID string
	MetaKey string
}

// DescriptionArgs is the context handed to the charge description extension
// point.
type DescriptionArgs struct {
	Value string
	Entry *models.Entry
	Data  *models.SubmissionData
	Feed  *models.Feed
}

type FieldService interface {
	GetFieldValue(entry *models.Entry, fieldID string) string
	OverrideFieldValue(value string, entry *models.Entry, fieldID, metaKey string) string
	GetMetaData(feed *models.Feed, entry *models.Entry) map[string]string
	PaymentDescription(entry *models.Entry, data *models.SubmissionData, feed *models.Feed) string
}

type fieldService struct {
	hooks *hooks.Registry
}

func NewFieldService(registry *hooks.Registry) FieldService {
	return &fieldService{hooks: registry}
}

// GetFieldValue resolves a mapped field's submitted value, passing it through
// the global, per-form and per-form-per-field extension points.
func (s *fieldService) GetFieldValue(entry *models.Entry, fieldID string) string {
	return s.OverrideFieldValue(entry.Fields[fieldID], entry, fieldID, "")
}

func (s *fieldService) OverrideFieldValue(value string, entry *models.Entry, fieldID, metaKey string) string {
	args := &FieldValueArgs{
		Value:   value,
		FormID:  entry.FormID,
		Entry:   entry,
		FieldID: fieldID,
		MetaKey: metaKey,
	}
	args = hooks.Apply(s.hooks, hooks.FieldValue, args)
	args = hooks.Apply(s.hooks, hooks.FormFieldValue(entry.FormID), args)
	args = hooks.Apply(s.hooks, hooks.FormFieldValueForField(entry.FormID, fieldID), args)
	return args.Value
}

// GetMetaData maps the feed's custom key/value configuration to Stripe
// metadata. Keys are re-validated defensively even though configuration
// validation already bounds them.
func (s *fieldService) GetMetaData(feed *models.Feed, entry *models.Entry) map[string]string {
	custom := feed.Meta.CustomMeta
	if len(custom) == 0 {
		return nil
	}
	if len(custom) > maxMetaKeys {
		slog.Warn("more than 20 custom metadata keys configured, extra keys ignored",
			"feed_id", feed.ID, "configured", len(custom))
		custom = custom[:maxMetaKeys]
	}

	metadata := make(map[string]string)
	for _, meta := range custom {
		if meta.CustomKey == "" || meta.Value == "" {
			continue
		}
		if len(meta.CustomKey) > maxMetaKeyLen {
			slog.Warn("metadata key exceeds 40 characters, skipped", "key", meta.CustomKey)
			continue
		}

		value := s.OverrideFieldValue(entry.Fields[meta.Value], entry, meta.Value, meta.CustomKey)
		if value == "" {
			continue
		}
		if len(value) > maxMetaValueLen {
			value = truncateValue(value, maxMetaValueLen)
		}
		metadata[meta.CustomKey] = value
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

// truncateValue cuts value to at most max bytes without splitting a rune.
func truncateValue(value string, max int) string {
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

// PaymentDescription builds the charge description:
// Entry ID: 123, Products: Product A, Product B
func (s *fieldService) PaymentDescription(entry *models.Entry, data *models.SubmissionData, feed *models.Feed) string {
	var parts []string

	if entry.ID != 0 {
		parts = append(parts, fmt.Sprintf("Entry ID: %d", entry.ID))
	}

	names := make([]string, 0, len(data.LineItems))
	for _, item := range data.LineItems {
		names = append(names, item.Name)
	}
	label := "Product"
	if len(data.LineItems) != 1 {
		label = "Products"
	}
	parts = append(parts, fmt.Sprintf("%s: %s", label, strings.Join(names, ", ")))

	args := &DescriptionArgs{
		Value: strings.Join(parts, ", "),
		Entry: entry,
		Data:  data,
		Feed:  feed,
	}
	args = hooks.Apply(s.hooks, hooks.ChargeDescription, args)
	return args.Value
}
