package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"luco-sms-platform/models"
	"luco-sms-platform/pkg/logger"
	"luco-sms-platform/pkg/sms"
)

// DispatchWorker drains pending immediate-send messages to the gateway. The
// cost was already debited when the rows were created, so a gateway failure
// here marks the row failed without touching the wallet.
type DispatchWorker struct {
	DB        *gorm.DB
	Gateway   sms.Client
	BatchSize int
}

func NewDispatchWorker(db *gorm.DB, gateway sms.Client, batchSize int) *DispatchWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DispatchWorker{
		DB:        db,
		Gateway:   gateway,
		BatchSize: batchSize,
	}
}

// Run polls until ctx is cancelled.
func (w *DispatchWorker) Run(ctx context.Context, interval time.Duration) {
	logger.Logger.Info("Dispatch worker started",
		zap.Duration("interval", interval),
		zap.Int("batch_size", w.BatchSize),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("Dispatch worker stopped")
			return
		case <-ticker.C:
			if _, err := w.DispatchPending(ctx); err != nil {
				logger.Logger.Error("Dispatch pass failed", zap.Error(err))
			}
		}
	}
}

// DispatchPending sends one batch of pending messages, oldest first. Returns
// how many rows reached a terminal status this pass.
func (w *DispatchWorker) DispatchPending(ctx context.Context) (int, error) {
	var pending []models.Message
	err := w.DB.WithContext(ctx).
		Where("status = ?", models.MessageStatusPending).
		Order("created_at ASC").
		Limit(w.BatchSize).
		Find(&pending).Error
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	dispatched := 0
	for i := range pending {
		msg := &pending[i]

		statuses, sendErr := w.Gateway.Send(ctx, msg.Message, []string{msg.Recipient}, msg.SenderID)
		status := models.MessageStatusFailed
		if sendErr == nil {
			for _, st := range statuses {
				if st.Recipient == msg.Recipient && st.Success() {
					status = models.MessageStatusSent
					break
				}
			}
		}

		err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Message{}).
				Where("id = ? AND status = ?", msg.ID, models.MessageStatusPending).
				Update("status", status)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			return tx.Create(&models.DeliveryReport{
				SMSID:  msg.ID,
				Status: status,
			}).Error
		})
		if err != nil {
			logger.Logger.Error("Failed to finalize message",
				zap.Uint("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}

		if status == models.MessageStatusFailed {
			logger.Logger.Warn("Message dispatch failed",
				zap.Uint("message_id", msg.ID),
				zap.String("recipient", msg.Recipient),
				zap.Error(sendErr),
			)
		}
		dispatched++
	}

	logger.Logger.Info("Dispatch pass finished",
		zap.Int("batch", len(pending)),
		zap.Int("dispatched", dispatched),
	)
	return dispatched, nil
}
