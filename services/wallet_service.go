package services

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"luco-sms-platform/models"
	apperrors "luco-sms-platform/pkg/errors"
	"luco-sms-platform/pkg/logger"
)

// WalletService owns every balance mutation. Each debit/credit is one DB
// transaction containing the balance write and its ledger row, so the
// balance == sum(transactions) invariant can never be observed broken.
type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// Debit reserves amount from the user's wallet under the given reason.
// Returns InsufficientFunds (and changes nothing) when the balance is short.
func (s *WalletService) Debit(ctx context.Context, userID string, amount float64, reason string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.DebitTx(tx, userID, amount, reason)
	})
}

// DebitTx is Debit running inside a caller-owned transaction, used when a
// reservation must commit atomically with other rows (e.g. schedule creation).
func (s *WalletService) DebitTx(tx *gorm.DB, userID string, amount float64, reason string) error {
	// Single conditional statement: the balance check and the decrement are
	// one atomic read-modify-write, immune to check-then-act races.
	res := tx.Model(&models.User{}).
		Where("id = ? AND wallet_balance >= ?", userID, amount).
		UpdateColumn("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var user models.User
		if err := tx.Select("wallet_balance").First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound
			}
			return err
		}
		return apperrors.Insufficient(amount, user.WalletBalance)
	}

	if err := tx.Create(&models.Transaction{
		UserID:          userID,
		Amount:          -amount,
		TransactionType: reason,
	}).Error; err != nil {
		return err
	}

	logger.Logger.Info("Wallet debited",
		zap.String("user_id", userID),
		zap.Float64("amount", amount),
		zap.String("reason", reason),
	)
	return nil
}

// Credit unconditionally adds amount to the user's wallet (top-ups, refunds).
func (s *WalletService) Credit(ctx context.Context, userID string, amount float64, reason string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.CreditTx(tx, userID, amount, reason)
	})
}

// CreditTx is Credit inside a caller-owned transaction, used by the engine so
// a refund commits atomically with the schedule's terminal transition.
func (s *WalletService) CreditTx(tx *gorm.DB, userID string, amount float64, reason string) error {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("wallet_balance", gorm.Expr("wallet_balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound
	}

	if err := tx.Create(&models.Transaction{
		UserID:          userID,
		Amount:          amount,
		TransactionType: reason,
	}).Error; err != nil {
		return err
	}

	logger.Logger.Info("Wallet credited",
		zap.String("user_id", userID),
		zap.Float64("amount", amount),
		zap.String("reason", reason),
	)
	return nil
}

// Balance returns the current wallet balance.
func (s *WalletService) Balance(ctx context.Context, userID string) (float64, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Select("wallet_balance").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.NotFound
		}
		return 0, err
	}
	return user.WalletBalance, nil
}

// ===== HTTP handlers =====

// GetWallet returns the caller's account with its current balance.
func (s *WalletService) GetWallet(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var user models.User
	if err := s.DB.First(&user, "id = ?", principal.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, apperrors.NotFound)
		}
		return fail(c, err)
	}
	return c.JSON(user)
}

// Topup adds funds to the caller's wallet.
func (s *WalletService) Topup(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input struct {
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}
	if input.Amount <= 0 {
		return fail(c, apperrors.Validation("Amount must be greater than 0"))
	}
	if input.Amount > 1000000 {
		return fail(c, apperrors.Validation("Amount cannot exceed 1,000,000"))
	}

	if err := s.Credit(c.Context(), principal.UserID, input.Amount, models.TransactionTopup); err != nil {
		return fail(c, err)
	}

	var transaction models.Transaction
	if err := s.DB.Where("user_id = ?", principal.UserID).
		Order("id DESC").First(&transaction).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(transaction)
}

// ListTransactions returns the caller's ledger, newest first, with optional
// transaction_type filter and skip/limit pagination.
func (s *WalletService) ListTransactions(c *fiber.Ctx) error {
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
	if txType := c.Query("transaction_type"); txType != "" {
		query = query.Where("transaction_type = ?", txType)
	}

	var transactions []models.Transaction
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).
		Find(&transactions).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(transactions)
}
