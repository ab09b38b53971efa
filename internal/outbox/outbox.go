// Package outbox queues notification emails for asynchronous delivery.
// Producers enqueue and return immediately; a worker delivers queued rows
// with retry so a failing mail provider never blocks or fails the request
// that triggered the notification.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/config"
	"github.com/diewo77/go-freelance/internal/logger"
	"github.com/diewo77/go-freelance/internal/mail"
	"github.com/diewo77/go-freelance/internal/models"
)

// Enqueue inserts a pending notification. The data map is stored as JSON
// and merged into the email template on delivery.
func Enqueue(db *gorm.DB, kind, toEmail, toName string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	row := models.OutboxEmail{
		Kind:          kind,
		ToEmail:       toEmail,
		ToName:        toName,
		Data:          string(payload),
		NextAttemptAt: time.Now(),
	}
	return db.Create(&row).Error
}

// Worker polls the outbox and delivers due rows.
type Worker struct {
	db     *gorm.DB
	sender mail.Sender
	cfg    config.OutboxConfig
	tmpl   config.TemplateIDs
	log    zerolog.Logger
}

func NewWorker(db *gorm.DB, sender mail.Sender, cfg config.OutboxConfig, tmpl config.TemplateIDs) *Worker {
	return &Worker{
		db:     db,
		sender: sender,
		cfg:    cfg,
		tmpl:   tmpl,
		log:    logger.WithComponent("outbox"),
	}
}

// Start runs the polling loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	interval := time.Duration(w.cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessDue(ctx)
		}
	}
}

// ProcessDue delivers every row whose next attempt is due. Failures are
// logged and rescheduled with exponential backoff; rows that exhaust their
// attempts keep the last error for inspection.
func (w *Worker) ProcessDue(ctx context.Context) {
	var rows []models.OutboxEmail
	err := w.db.
		Where("sent_at IS NULL AND attempts < ? AND next_attempt_at <= ?", w.cfg.MaxAttempts, time.Now()).
		Order("next_attempt_at").
		Limit(50).
		Find(&rows).Error
	if err != nil {
		w.log.Error().Err(err).Msg("failed to load due outbox rows")
		return
	}

	for i := range rows {
		w.deliver(ctx, &rows[i])
	}
}

func (w *Worker) deliver(ctx context.Context, row *models.OutboxEmail) {
	templateID, err := mail.TemplateFor(w.tmpl, row.Kind)
	if err != nil {
		// Unknown kind is permanent; burn the remaining attempts.
		w.fail(row, err, true)
		return
	}

	var data map[string]any
	if row.Data != "" {
		if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
			w.fail(row, err, true)
			return
		}
	}

	err = w.sender.Send(ctx, mail.Message{
		ToEmail:    row.ToEmail,
		ToName:     row.ToName,
		TemplateID: templateID,
		Data:       data,
	})
	if err != nil {
		w.fail(row, err, false)
		return
	}

	now := time.Now()
	row.SentAt = &now
	row.Attempts++
	if err := w.db.Save(row).Error; err != nil {
		w.log.Error().Err(err).Uint("id", row.ID).Msg("failed to mark outbox row sent")
	}
}

func (w *Worker) fail(row *models.OutboxEmail, cause error, permanent bool) {
	row.Attempts++
	row.LastError = cause.Error()
	if permanent {
		row.Attempts = w.cfg.MaxAttempts
	}
	// Exponential backoff: 1m, 2m, 4m, ...
	backoff := time.Duration(1<<uint(row.Attempts)) * 30 * time.Second
	row.NextAttemptAt = time.Now().Add(backoff)

	w.log.Warn().Err(cause).
		Uint("id", row.ID).
		Str("kind", row.Kind).
		Int("attempts", row.Attempts).
		Msg("outbox delivery failed")

	if err := w.db.Save(row).Error; err != nil {
		w.log.Error().Err(err).Uint("id", row.ID).Msg("failed to persist outbox failure")
	}
}
