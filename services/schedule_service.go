package services

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"luco-sms-platform/models"
	apperrors "luco-sms-platform/pkg/errors"
	"luco-sms-platform/pkg/logger"
	"luco-sms-platform/pkg/sms"
)

// ScheduleService is the scheduled-send engine. A schedule reserves its cost
// at creation and moves pending → processing → sent|failed (or pending →
// cancelled by the user). failed and cancelled refund the reservation exactly
// once; the refund always commits in the same transaction as the terminal
// status transition.
type ScheduleService struct {
	DB       *gorm.DB
	Wallet   *WalletService
	Contacts *ContactService
	Gateway  sms.Client
	UnitCost float64
	SenderID string
	Location *time.Location
}

func NewScheduleService(db *gorm.DB, wallet *WalletService, contacts *ContactService, gateway sms.Client, unitCost float64, senderID string, loc *time.Location) *ScheduleService {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleService{
		DB:       db,
		Wallet:   wallet,
		Contacts: contacts,
		Gateway:  gateway,
		UnitCost: unitCost,
		SenderID: senderID,
		Location: loc,
	}
}

func (s *ScheduleService) senderOrDefault(senderID string) string {
	if senderID != "" {
		return senderID
	}
	return s.SenderID
}

// Schedule validates and creates one future send, debiting its cost in the
// same transaction. Validation failures leave no rows and no debit.
func (s *ScheduleService) Schedule(ctx context.Context, userID, body, recipient, senderID string, at time.Time) (*models.ScheduledMessage, error) {
	body, err := validateMessageBody(body)
	if err != nil {
		return nil, err
	}
	if err := validatePhoneNumber(recipient); err != nil {
		return nil, err
	}
	if err := validateFutureTime(at, s.Location); err != nil {
		return nil, err
	}

	scheduled := models.ScheduledMessage{
		UserID:        userID,
		Recipient:     recipient,
		Message:       body,
		SenderID:      s.senderOrDefault(senderID),
		ScheduledTime: at,
		Status:        models.ScheduleStatusPending,
		Cost:          s.UnitCost,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Wallet.DebitTx(tx, userID, s.UnitCost, models.TransactionSMSScheduled); err != nil {
			return err
		}
		return tx.Create(&scheduled).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("Message scheduled",
		zap.String("user_id", userID),
		zap.Uint("schedule_id", scheduled.ID),
		zap.Time("scheduled_time", at),
	)
	return &scheduled, nil
}

// ScheduleBulk creates one schedule per distinct recipient (explicit numbers
// plus resolved group contacts), debiting the whole cost once. All rows and
// the debit commit together or not at all.
func (s *ScheduleService) ScheduleBulk(ctx context.Context, userID, body, senderID string, recipients []string, groupIDs []uint, at time.Time) ([]models.ScheduledMessage, error) {
	body, err := validateMessageBody(body)
	if err != nil {
		return nil, err
	}
	if err := validateFutureTime(at, s.Location); err != nil {
		return nil, err
	}

	union := make([]string, 0, len(recipients))
	union = append(union, recipients...)
	if len(groupIDs) > 0 {
		contacts, err := s.Contacts.ResolveGroupContacts(ctx, userID, groupIDs)
		if err != nil && !errors.Is(err, apperrors.NoRecipients) {
			return nil, err
		}
		for _, contact := range contacts {
			union = append(union, contact.PhoneNumber)
		}
	}
	union = dedupe(union)
	if len(union) == 0 {
		// Groups were named but every one resolved empty (or unowned).
		if len(groupIDs) > 0 {
			return nil, apperrors.NoRecipients
		}
		return nil, apperrors.Validation("At least one recipient is required")
	}
	if err := validateRecipients(union); err != nil {
		return nil, err
	}

	total := float64(len(union)) * s.UnitCost
	sender := s.senderOrDefault(senderID)
	created := make([]models.ScheduledMessage, 0, len(union))

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Wallet.DebitTx(tx, userID, total, models.TransactionSMSScheduled); err != nil {
			return err
		}
		for _, recipient := range union {
			scheduled := models.ScheduledMessage{
				UserID:        userID,
				Recipient:     recipient,
				Message:       body,
				SenderID:      sender,
				ScheduledTime: at,
				Status:        models.ScheduleStatusPending,
				Cost:          s.UnitCost,
			}
			if err := tx.Create(&scheduled).Error; err != nil {
				return err
			}
			created = append(created, scheduled)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("Bulk schedule created",
		zap.String("user_id", userID),
		zap.Int("count", len(created)),
		zap.Float64("total_cost", total),
	)
	return created, nil
}

// ScheduleUpdate carries the patchable fields. Nil means leave unchanged.
type ScheduleUpdate struct {
	Message       *string
	ScheduledTime *time.Time
	SenderID      *string
}

// Update patches a schedule that is still pending. The WHERE status='pending'
// guard means an update racing the engine's claim simply finds zero rows.
func (s *ScheduleService) Update(ctx context.Context, userID string, id uint, patch ScheduleUpdate) (*models.ScheduledMessage, error) {
	updates := map[string]interface{}{}
	if patch.Message != nil {
		body, err := validateMessageBody(*patch.Message)
		if err != nil {
			return nil, err
		}
		updates["message"] = body
	}
	if patch.ScheduledTime != nil {
		if err := validateFutureTime(*patch.ScheduledTime, s.Location); err != nil {
			return nil, err
		}
		updates["scheduled_time"] = *patch.ScheduledTime
	}
	if patch.SenderID != nil {
		updates["sender_id"] = *patch.SenderID
	}
	if len(updates) == 0 {
		return s.Get(ctx, userID, id)
	}

	res := s.DB.WithContext(ctx).Model(&models.ScheduledMessage{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.ScheduleStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish "not yours / missing" from "no longer pending".
		current, err := s.Get(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.Validation("Cannot update a %s message", current.Status)
	}
	return s.Get(ctx, userID, id)
}

// Cancel moves a pending schedule to cancelled and refunds its cost, both in
// one transaction. A schedule already claimed or terminal cannot be cancelled.
func (s *ScheduleService) Cancel(ctx context.Context, userID string, id uint) (*models.ScheduledMessage, error) {
	var cancelled *models.ScheduledMessage
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var scheduled models.ScheduledMessage
		if err := tx.First(&scheduled, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&models.ScheduledMessage{}).
			Where("id = ? AND status = ?", id, models.ScheduleStatusPending).
			Updates(map[string]interface{}{
				"status":       models.ScheduleStatusCancelled,
				"processed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Validation("Cannot cancel a %s message", scheduled.Status)
		}

		if err := s.Wallet.CreditTx(tx, userID, scheduled.Cost, models.TransactionSMSRefund); err != nil {
			return err
		}

		scheduled.Status = models.ScheduleStatusCancelled
		scheduled.ProcessedAt = &now
		cancelled = &scheduled
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("Schedule cancelled",
		zap.String("user_id", userID),
		zap.Uint("schedule_id", id),
	)
	return cancelled, nil
}

// Get returns one schedule owned by the user.
func (s *ScheduleService) Get(ctx context.Context, userID string, id uint) (*models.ScheduledMessage, error) {
	var scheduled models.ScheduledMessage
	err := s.DB.WithContext(ctx).
		First(&scheduled, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound
		}
		return nil, err
	}
	return &scheduled, nil
}

// ===== Engine =====

// claimDue flips one due pending schedule to processing. The conditional
// UPDATE is the claim: RowsAffected == 0 means another scanner got there
// first, so at most one claimant ever proceeds per schedule.
func (s *ScheduleService) claimDue(ctx context.Context, id uint, now time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.ScheduledMessage{}).
		Where("id = ? AND status = ? AND scheduled_time <= ?", id, models.ScheduleStatusPending, now).
		Updates(map[string]interface{}{
			"status":          models.ScheduleStatusProcessing,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// finishSent records a successful gateway send: the sent Message row, its
// delivery report and the schedule's terminal transition commit together.
func (s *ScheduleService) finishSent(ctx context.Context, scheduled *models.ScheduledMessage, now time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg := models.Message{
			UserID:    scheduled.UserID,
			Recipient: scheduled.Recipient,
			Message:   scheduled.Message,
			Status:    models.MessageStatusSent,
			Cost:      scheduled.Cost,
			SenderID:  scheduled.SenderID,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.DeliveryReport{
			SMSID:  msg.ID,
			Status: models.MessageStatusSent,
		}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.ScheduledMessage{}).
			Where("id = ? AND status = ?", scheduled.ID, models.ScheduleStatusProcessing).
			Updates(map[string]interface{}{
				"status":          models.ScheduleStatusSent,
				"sent_message_id": msg.ID,
				"processed_at":    now,
				"error_message":   "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.InvalidState
		}
		return nil
	})
}

// finishFailed records a gateway failure. The refund is inside the same
// transaction as the processing → failed transition, and that transition's
// conditional guard is what makes the refund exactly-once: a second caller
// finds zero rows and credits nothing.
func (s *ScheduleService) finishFailed(ctx context.Context, scheduled *models.ScheduledMessage, reason string, now time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ScheduledMessage{}).
			Where("id = ? AND status = ?", scheduled.ID, models.ScheduleStatusProcessing).
			Updates(map[string]interface{}{
				"status":        models.ScheduleStatusFailed,
				"error_message": reason,
				"processed_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.InvalidState
		}
		return s.Wallet.CreditTx(tx, scheduled.UserID, scheduled.Cost, models.TransactionSMSRefund)
	})
}

// RunDueScan processes every schedule due at now. Items are handled oldest
// first and isolated from each other: one failure never stops the rest.
// Returns the number of schedules that reached a terminal state this pass.
func (s *ScheduleService) RunDueScan(ctx context.Context, now time.Time) (int, error) {
	var due []models.ScheduledMessage
	err := s.DB.WithContext(ctx).
		Where("status = ? AND scheduled_time <= ?", models.ScheduleStatusPending, now).
		Order("scheduled_time ASC").
		Find(&due).Error
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	logger.Logger.Info("Due scan started",
		zap.Int("due", len(due)),
		zap.Time("now", now),
	)

	processed := 0
	for i := range due {
		scheduled := &due[i]

		claimed, err := s.claimDue(ctx, scheduled.ID, now)
		if err != nil {
			logger.Logger.Error("Claim failed",
				zap.Uint("schedule_id", scheduled.ID),
				zap.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}

		statuses, sendErr := s.Gateway.Send(ctx, scheduled.Message, []string{scheduled.Recipient}, scheduled.SenderID)
		if sendErr == nil {
			delivered := false
			for _, st := range statuses {
				if st.Recipient == scheduled.Recipient && st.Success() {
					delivered = true
					break
				}
			}
			if !delivered {
				sendErr = apperrors.SendFailure
			}
		}

		if sendErr != nil {
			if err := s.finishFailed(ctx, scheduled, sendErr.Error(), now); err != nil {
				logger.Logger.Error("Failed to record schedule failure",
					zap.Uint("schedule_id", scheduled.ID),
					zap.Error(err),
				)
				continue
			}
			logger.Logger.Warn("Scheduled send failed",
				zap.Uint("schedule_id", scheduled.ID),
				zap.String("recipient", scheduled.Recipient),
				zap.Error(sendErr),
			)
			processed++
			continue
		}

		if err := s.finishSent(ctx, scheduled, now); err != nil {
			logger.Logger.Error("Failed to record schedule success",
				zap.Uint("schedule_id", scheduled.ID),
				zap.Error(err),
			)
			continue
		}
		logger.Logger.Info("Scheduled send delivered",
			zap.Uint("schedule_id", scheduled.ID),
			zap.String("recipient", scheduled.Recipient),
		)
		processed++
	}

	return processed, nil
}

// ===== HTTP handlers =====

// ScheduleSMS creates one future send.
func (s *ScheduleService) ScheduleSMS(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input struct {
		Message       string `json:"message"`
		Recipient     string `json:"recipient"`
		SenderID      string `json:"sender_id"`
		ScheduledTime string `json:"scheduled_time"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	at, err := parseScheduledTime(input.ScheduledTime, s.Location)
	if err != nil {
		return fail(c, err)
	}

	scheduled, err := s.Schedule(c.Context(), principal.UserID, input.Message, input.Recipient, input.SenderID, at)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(scheduled)
}

// ScheduleBulkSMS creates one schedule per distinct recipient across explicit
// numbers and group expansions.
func (s *ScheduleService) ScheduleBulkSMS(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input struct {
		Message       string   `json:"message"`
		Recipients    []string `json:"recipients"`
		GroupIDs      []uint   `json:"group_ids"`
		SenderID      string   `json:"sender_id"`
		ScheduledTime string   `json:"scheduled_time"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	at, err := parseScheduledTime(input.ScheduledTime, s.Location)
	if err != nil {
		return fail(c, err)
	}

	created, err := s.ScheduleBulk(c.Context(), principal.UserID, input.Message, input.SenderID, input.Recipients, input.GroupIDs, at)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"scheduled":  created,
		"count":      len(created),
		"total_cost": float64(len(created)) * s.UnitCost,
	})
}

// ListScheduled returns the caller's schedules, optionally filtered by status.
func (s *ScheduleService) ListScheduled(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.DB.Where("user_id = ?", principal.UserID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var scheduled []models.ScheduledMessage
	if err := query.Order("scheduled_time ASC").Offset(skip).Limit(limit).
		Find(&scheduled).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(scheduled)
}

// GetScheduled returns one schedule.
func (s *ScheduleService) GetScheduled(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid schedule ID"))
	}

	scheduled, err := s.Get(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(scheduled)
}

// UpdateScheduled patches a still-pending schedule.
func (s *ScheduleService) UpdateScheduled(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid schedule ID"))
	}

	var input struct {
		Message       *string `json:"message"`
		SenderID      *string `json:"sender_id"`
		ScheduledTime *string `json:"scheduled_time"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	patch := ScheduleUpdate{
		Message:  input.Message,
		SenderID: input.SenderID,
	}
	if input.ScheduledTime != nil {
		at, err := parseScheduledTime(*input.ScheduledTime, s.Location)
		if err != nil {
			return fail(c, err)
		}
		patch.ScheduledTime = &at
	}

	scheduled, err := s.Update(c.Context(), principal.UserID, uint(id), patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(scheduled)
}

// CancelScheduled cancels a pending schedule and refunds its cost.
func (s *ScheduleService) CancelScheduled(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid schedule ID"))
	}

	scheduled, err := s.Cancel(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(scheduled)
}
