package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quietcircle/community/models"
	"github.com/quietcircle/community/utils"
)

// Event types written to the outbox.
const (
	EventPostCreated     = "post.created"
	EventPostDeleted     = "post.deleted"
	EventPostSupported   = "post.supported"
	EventPostUnsupported = "post.unsupported"
	EventCommentCreated  = "comment.created"
)

// recordEvent appends an event inside tx so it commits or rolls back with the change.
func recordEvent(tx *gorm.DB, eventType string, aggregateID uint, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&models.OutboxEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     string(body),
		Status:      models.OutboxPending,
	}).Error
}

// Sender delivers one outbox event.
type Sender func(ctx context.Context, ev *models.OutboxEvent) error

// LogSender only logs the event. It is used when no broker is configured.
func LogSender(ctx context.Context, ev *models.OutboxEvent) error {
	utils.Logger.Info("outbox event",
		zap.String("event_id", ev.EventID),
		zap.String("type", ev.EventType),
		zap.Uint("aggregate_id", ev.AggregateID),
		zap.String("payload", ev.Payload),
	)
	return nil
}

// KafkaSender publishes events keyed by aggregate id so one post's events stay ordered.
func KafkaSender(p *utils.KafkaProducer) Sender {
	return func(ctx context.Context, ev *models.OutboxEvent) error {
		return p.Send(ctx, utils.MakeKeyFromID(uint64(ev.AggregateID)), []byte(ev.Payload), ev.EventType)
	}
}

// OutboxRelayer drains pending outbox rows through a Sender.
type OutboxRelayer struct {
	db        *gorm.DB
	sender    Sender
	batchSize int
	maxRetry  int
	interval  time.Duration
}

// NewOutboxRelayer creates a relayer. Zero values fall back to 200 rows per second and 10 retries.
func NewOutboxRelayer(db *gorm.DB, sender Sender, batchSize, maxRetry int, interval time.Duration) *OutboxRelayer {
	if batchSize <= 0 {
		batchSize = 200
	}
	if maxRetry <= 0 {
		maxRetry = 10
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{db: db, sender: sender, batchSize: batchSize, maxRetry: maxRetry, interval: interval}
}

// Run drains on every tick until ctx is done.
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.DrainOnce(ctx); err != nil && ctx.Err() == nil {
				utils.Logger.Warn("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// DrainOnce sends one batch and returns how many events were delivered and marked sent.
// A failed status write is logged and reported; the batch continues.
func (r *OutboxRelayer) DrainOnce(ctx context.Context) (int, error) {
	var rows []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status IN ? AND retry < ?", []int8{models.OutboxPending, models.OutboxFailed}, r.maxRetry).
		Order("id ASC").
		Limit(r.batchSize).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	var markErr error
	for i := range rows {
		ev := rows[i]
		if err := r.sender(ctx, &ev); err != nil {
			utils.Logger.Warn("outbox send failed",
				zap.String("event_id", ev.EventID), zap.Int("retry", ev.Retry), zap.Error(err))
			if err := r.mark(ctx, ev.ID, map[string]any{"status": models.OutboxFailed, "retry": gorm.Expr("retry + 1")}); err != nil {
				utils.Logger.Warn("outbox mark failed", zap.String("event_id", ev.EventID),
					zap.String("status", "failed"), zap.Error(err))
				markErr = errors.Join(markErr, err)
			}
			continue
		}
		if err := r.mark(ctx, ev.ID, map[string]any{"status": models.OutboxSent}); err != nil {
			// delivered but still pending: it will be sent again on the next tick
			utils.Logger.Warn("outbox mark failed", zap.String("event_id", ev.EventID),
				zap.String("status", "sent"), zap.Error(err))
			markErr = errors.Join(markErr, err)
			continue
		}
		sent++
	}
	return sent, markErr
}

func (r *OutboxRelayer) mark(ctx context.Context, id uint64, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
}
