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

// SMSService owns the immediate-send and developer-send paths plus message
// reporting. The immediate path debits up front and hands pending rows to the
// dispatch worker; the developer path is synchronous and only debits after the
// gateway accepts.
type SMSService struct {
	DB       *gorm.DB
	Wallet   *WalletService
	Contacts *ContactService
	Gateway  sms.Client
	UnitCost float64
	SenderID string
}

func NewSMSService(db *gorm.DB, wallet *WalletService, contacts *ContactService, gateway sms.Client, unitCost float64, senderID string) *SMSService {
	return &SMSService{
		DB:       db,
		Wallet:   wallet,
		Contacts: contacts,
		Gateway:  gateway,
		UnitCost: unitCost,
		SenderID: senderID,
	}
}

func (s *SMSService) senderOrDefault(senderID string) string {
	if senderID != "" {
		return senderID
	}
	return s.SenderID
}

// dedupe keeps first occurrence order.
func dedupe(recipients []string) []string {
	seen := make(map[string]struct{}, len(recipients))
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// enqueue debits count*unit and creates one pending message per recipient, all
// in one transaction. The dispatch worker picks the rows up afterwards; a
// gateway failure later does not refund this debit.
func (s *SMSService) enqueue(ctx context.Context, userID, body string, recipients []string, senderID string) ([]models.Message, error) {
	total := float64(len(recipients)) * s.UnitCost
	created := make([]models.Message, 0, len(recipients))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Wallet.DebitTx(tx, userID, total, models.TransactionSMSSend); err != nil {
			return err
		}
		for _, recipient := range recipients {
			msg := models.Message{
				UserID:    userID,
				Recipient: recipient,
				Message:   body,
				Status:    models.MessageStatusPending,
				Cost:      s.UnitCost,
				SenderID:  senderID,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
			created = append(created, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("Messages queued",
		zap.String("user_id", userID),
		zap.Int("count", len(created)),
		zap.Float64("total_cost", total),
	)
	return created, nil
}

// ===== Immediate send handlers =====

// SendSMS queues a message for one or more explicit recipients.
func (s *SMSService) SendSMS(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input struct {
		Message    string   `json:"message"`
		Recipients []string `json:"recipients"`
		SenderID   string   `json:"sender_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	body, err := validateMessageBody(input.Message)
	if err != nil {
		return fail(c, err)
	}
	recipients := dedupe(input.Recipients)
	if err := validateRecipients(recipients); err != nil {
		return fail(c, err)
	}

	created, err := s.enqueue(c.Context(), principal.UserID, body, recipients, s.senderOrDefault(input.SenderID))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"messages":   created,
		"total_cost": float64(len(created)) * s.UnitCost,
	})
}

// SendBulkSMS queues a message to every active contact in the given groups.
func (s *SMSService) SendBulkSMS(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input struct {
		Message  string `json:"message"`
		GroupIDs []uint `json:"group_ids"`
		SenderID string `json:"sender_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	body, err := validateMessageBody(input.Message)
	if err != nil {
		return fail(c, err)
	}

	contacts, err := s.Contacts.ResolveGroupContacts(c.Context(), principal.UserID, input.GroupIDs)
	if err != nil {
		return fail(c, err)
	}

	recipients := make([]string, 0, len(contacts))
	for _, contact := range contacts {
		recipients = append(recipients, contact.PhoneNumber)
	}
	recipients = dedupe(recipients)
	if len(recipients) > maxBulkRecipients {
		return fail(c, apperrors.Validation("Cannot send to more than %d recipients at once", maxBulkRecipients))
	}

	created, err := s.enqueue(c.Context(), principal.UserID, body, recipients, s.senderOrDefault(input.SenderID))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"messages":   created,
		"recipients": len(created),
		"total_cost": float64(len(created)) * s.UnitCost,
	})
}

// ===== Developer surface =====

// DeveloperSend is the synchronous API-key path: check balance, call the
// gateway, then debit only for recipients the gateway accepted.
func (s *SMSService) DeveloperSend(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input struct {
		Message    string   `json:"message"`
		Recipients []string `json:"recipients"`
		SenderID   string   `json:"sender_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	body, err := validateMessageBody(input.Message)
	if err != nil {
		return fail(c, err)
	}
	recipients := dedupe(input.Recipients)
	if err := validateRecipients(recipients); err != nil {
		return fail(c, err)
	}

	required := float64(len(recipients)) * s.UnitCost
	balance, err := s.Wallet.Balance(c.Context(), principal.UserID)
	if err != nil {
		return fail(c, err)
	}
	if balance < required {
		return fail(c, apperrors.Insufficient(required, balance))
	}

	senderID := s.senderOrDefault(input.SenderID)
	statuses, err := s.Gateway.Send(c.Context(), body, recipients, senderID)
	if err != nil {
		logger.Logger.Error("Gateway send failed",
			zap.String("user_id", principal.UserID),
			zap.Error(err),
		)
		return fail(c, apperrors.SendFailure)
	}

	accepted := make([]string, 0, len(statuses))
	rejected := make([]sms.RecipientStatus, 0)
	for _, st := range statuses {
		if st.Success() {
			accepted = append(accepted, st.Recipient)
		} else {
			rejected = append(rejected, st)
		}
	}

	var created []models.Message
	if len(accepted) > 0 {
		cost := float64(len(accepted)) * s.UnitCost
		err = s.DB.Transaction(func(tx *gorm.DB) error {
			if err := s.Wallet.DebitTx(tx, principal.UserID, cost, models.TransactionSMSDeduction); err != nil {
				return err
			}
			for _, recipient := range accepted {
				msg := models.Message{
					UserID:    principal.UserID,
					Recipient: recipient,
					Message:   body,
					Status:    models.MessageStatusSent,
					Cost:      s.UnitCost,
					SenderID:  senderID,
				}
				if err := tx.Create(&msg).Error; err != nil {
					return err
				}
				report := models.DeliveryReport{
					SMSID:  msg.ID,
					Status: models.MessageStatusSent,
				}
				if err := tx.Create(&report).Error; err != nil {
					return err
				}
				created = append(created, msg)
			}
			return nil
		})
		if err != nil {
			return fail(c, err)
		}
	}

	return c.JSON(fiber.Map{
		"sent":     created,
		"rejected": rejected,
		"cost":     float64(len(accepted)) * s.UnitCost,
	})
}

// ===== Reports =====

// ListMessages returns the caller's messages with status/recipient/date filters.
func (s *SMSService) ListMessages(c *fiber.Ctx) error {
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
	if recipient := c.Query("recipient"); recipient != "" {
		query = query.Where("recipient = ?", recipient)
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return fail(c, apperrors.Validation("from must be RFC3339"))
		}
		query = query.Where("created_at >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return fail(c, apperrors.Validation("to must be RFC3339"))
		}
		query = query.Where("created_at <= ?", t)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).
		Find(&messages).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(messages)
}

// GetMessage returns one message with its delivery trail.
func (s *SMSService) GetMessage(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid message ID"))
	}

	var message models.Message
	errFetch := s.DB.Preload("DeliveryReports").
		First(&message, "id = ? AND user_id = ?", id, principal.UserID).Error
	if errFetch != nil {
		if errors.Is(errFetch, gorm.ErrRecordNotFound) {
			return fail(c, apperrors.NotFound)
		}
		return fail(c, errFetch)
	}
	return c.JSON(message)
}

// MessageSummary returns per-status counts for the caller's messages.
func (s *SMSService) MessageSummary(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var rows []statusCount
	if err := s.DB.Model(&models.Message{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", principal.UserID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return fail(c, err)
	}

	summary := fiber.Map{
		models.MessageStatusPending:   int64(0),
		models.MessageStatusSent:      int64(0),
		models.MessageStatusDelivered: int64(0),
		models.MessageStatusFailed:    int64(0),
	}
	var total int64
	for _, row := range rows {
		summary[row.Status] = row.Count
		total += row.Count
	}
	summary["total"] = total
	return c.JSON(summary)
}

// SpendingReport aggregates the ledger into totals per transaction type.
func (s *SMSService) SpendingReport(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	query := s.DB.Model(&models.Transaction{}).Where("user_id = ?", principal.UserID)
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return fail(c, apperrors.Validation("from must be RFC3339"))
		}
		query = query.Where("created_at >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return fail(c, apperrors.Validation("to must be RFC3339"))
		}
		query = query.Where("created_at <= ?", t)
	}

	type typeTotal struct {
		TransactionType string  `json:"transaction_type"`
		Total           float64 `json:"total"`
		Count           int64   `json:"count"`
	}
	var rows []typeTotal
	if err := query.
		Select("transaction_type, SUM(amount) as total, COUNT(*) as count").
		Group("transaction_type").
		Scan(&rows).Error; err != nil {
		return fail(c, err)
	}

	var spent, loaded float64
	for _, row := range rows {
		if row.Total < 0 {
			spent += -row.Total
		} else {
			loaded += row.Total
		}
	}

	return c.JSON(fiber.Map{
		"by_type":      rows,
		"total_spent":  spent,
		"total_loaded": loaded,
	})
}
