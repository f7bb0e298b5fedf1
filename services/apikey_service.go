package services

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"luco-sms-platform/models"
	apperrors "luco-sms-platform/pkg/errors"
	"luco-sms-platform/pkg/logger"
)

const (
	apiKeyPrefix     = "Luco_"
	apiKeySecretLen  = 32
	apiKeyAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	apiKeyMaskedTail = 8
)

// APIKeyService issues and manages the opaque keys behind the developer surface.
type APIKeyService struct {
	DB *gorm.DB
}

func NewAPIKeyService(db *gorm.DB) *APIKeyService {
	return &APIKeyService{DB: db}
}

func generateAPIKey() (string, error) {
	secret := make([]byte, apiKeySecretLen)
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	for i := range secret {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		secret[i] = apiKeyAlphabet[n.Int64()]
	}
	return apiKeyPrefix + string(secret), nil
}

// Generate mints a new unique key for the user.
func (s *APIKeyService) Generate(userID string) (*models.APIKey, error) {
	for attempt := 0; attempt < 5; attempt++ {
		key, err := generateAPIKey()
		if err != nil {
			return nil, err
		}

		var count int64
		if err := s.DB.Model(&models.APIKey{}).
			Where("key = ?", key).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		apiKey := models.APIKey{
			UserID:   userID,
			Key:      key,
			IsActive: true,
		}
		if err := s.DB.Create(&apiKey).Error; err != nil {
			return nil, err
		}

		logger.Logger.Info("API key generated",
			zap.String("user_id", userID),
			zap.Uint("key_id", apiKey.ID),
		)
		return &apiKey, nil
	}
	return nil, errors.New("failed to generate a unique API key")
}

func maskKey(key string) string {
	if len(key) <= apiKeyMaskedTail {
		return key
	}
	return "..." + key[len(key)-apiKeyMaskedTail:]
}

// ===== HTTP handlers =====

// GenerateKey mints a new key. The full secret is returned here and on list;
// keys are bearer credentials the caller is expected to store.
func (s *APIKeyService) GenerateKey(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	apiKey, err := s.Generate(principal.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(apiKey)
}

// ListKeys returns the caller's keys with a masked preview alongside each.
func (s *APIKeyService) ListKeys(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var keys []models.APIKey
	if err := s.DB.Where("user_id = ?", principal.UserID).
		Order("created_at DESC").Find(&keys).Error; err != nil {
		return fail(c, err)
	}

	type keyView struct {
		models.APIKey
		MaskedKey string `json:"masked_key"`
	}
	out := make([]keyView, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyView{APIKey: k, MaskedKey: maskKey(k.Key)})
	}
	return c.JSON(out)
}

// DeactivateKey disables a key without deleting its row.
func (s *APIKeyService) DeactivateKey(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid API key ID"))
	}

	var apiKey models.APIKey
	errFetch := s.DB.First(&apiKey, "id = ? AND user_id = ?", id, principal.UserID).Error
	if errFetch != nil {
		if errors.Is(errFetch, gorm.ErrRecordNotFound) {
			return fail(c, apperrors.NotFound)
		}
		return fail(c, errFetch)
	}
	if !apiKey.IsActive {
		return fail(c, apperrors.Validation("API key is already inactive"))
	}

	if err := s.DB.Model(&apiKey).Update("is_active", false).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "API key deactivated"})
}

// DeleteKey removes a key permanently.
func (s *APIKeyService) DeleteKey(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid API key ID"))
	}

	res := s.DB.Where("id = ? AND user_id = ?", id, principal.UserID).
		Delete(&models.APIKey{})
	if res.Error != nil {
		return fail(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(c, apperrors.NotFound)
	}
	return c.JSON(fiber.Map{"message": "API key deleted"})
}
