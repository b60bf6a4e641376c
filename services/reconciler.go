package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quietcircle/community/utils"
)

// SupportReconciler periodically repairs posts whose cached support count drifted from the ledger.
type SupportReconciler struct {
	db        *gorm.DB
	ledger    *SupportLedger
	batchSize int
	interval  time.Duration
}

// NewSupportReconciler creates a reconciler. Zero values fall back to 500 posts every 5 minutes.
func NewSupportReconciler(db *gorm.DB, ledger *SupportLedger, batchSize int, interval time.Duration) *SupportReconciler {
	if batchSize <= 0 {
		batchSize = 500
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SupportReconciler{db: db, ledger: ledger, batchSize: batchSize, interval: interval}
}

// Run reconciles on every tick until ctx is done.
func (r *SupportReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.ReconcileOnce(ctx); err != nil && ctx.Err() == nil {
				utils.Logger.Warn("support reconcile failed", zap.Error(err))
			}
		}
	}
}

// ReconcileOnce repairs up to batchSize drifted posts and returns how many were fixed.
func (r *SupportReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.id FROM posts p
		LEFT JOIN supports s ON s.post_id = p.id
		GROUP BY p.id, p.support_count
		HAVING p.support_count <> COUNT(s.id)
		ORDER BY p.id
		LIMIT ?`, r.batchSize).Scan(&ids).Error
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, id := range ids {
		changed, err := r.ledger.Reconcile(ctx, id)
		if err != nil {
			utils.Logger.Warn("reconcile post failed", zap.Uint("post_id", id), zap.Error(err))
			continue
		}
		if changed {
			fixed++
		}
	}
	if fixed > 0 {
		utils.Logger.Info("support counts reconciled", zap.Int("posts", fixed))
	}
	return fixed, nil
}
