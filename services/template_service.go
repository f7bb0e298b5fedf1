package services

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"luco-sms-platform/models"
	apperrors "luco-sms-platform/pkg/errors"
)

const maxBulkTemplates = 100

// TemplateService manages reusable message bodies.
type TemplateService struct {
	DB *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{DB: db}
}

type templateInput struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *TemplateService) create(userID string, in templateInput) (*models.Template, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation("Template name is required")
	}
	if len(name) > 50 {
		return nil, apperrors.Validation("Template name cannot exceed 50 characters")
	}
	content, err := validateMessageBody(in.Content)
	if err != nil {
		return nil, err
	}

	template := models.Template{
		UserID:  userID,
		Name:    name,
		Content: content,
	}
	if err := s.DB.Create(&template).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return nil, apperrors.Conflict
		}
		return nil, err
	}
	return &template, nil
}

func (s *TemplateService) owned(userID string, id uint) (*models.Template, error) {
	var template models.Template
	err := s.DB.First(&template, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound
		}
		return nil, err
	}
	return &template, nil
}

// CreateTemplate saves one template.
func (s *TemplateService) CreateTemplate(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input templateInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	template, err := s.create(principal.UserID, input)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(template)
}

// CreateTemplatesBulk saves up to 100 templates, skipping duplicate names.
func (s *TemplateService) CreateTemplatesBulk(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input struct {
		Templates []templateInput `json:"templates"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}
	if len(input.Templates) == 0 {
		return fail(c, apperrors.Validation("At least one template is required"))
	}
	if len(input.Templates) > maxBulkTemplates {
		return fail(c, apperrors.Validation("Cannot create more than %d templates at once", maxBulkTemplates))
	}

	created := make([]models.Template, 0, len(input.Templates))
	skipped := 0
	for _, in := range input.Templates {
		template, err := s.create(principal.UserID, in)
		if err != nil {
			if errors.Is(err, apperrors.Conflict) {
				skipped++
				continue
			}
			return fail(c, err)
		}
		created = append(created, *template)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"created": created,
		"skipped": skipped,
	})
}

// ListTemplates returns the caller's templates with optional name search.
func (s *TemplateService) ListTemplates(c *fiber.Ctx) error {
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
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}

	var templates []models.Template
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).
		Find(&templates).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(templates)
}

// GetTemplate returns one template by ID.
func (s *TemplateService) GetTemplate(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid template ID"))
	}

	template, err := s.owned(principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(template)
}

// UpdateTemplate patches name and/or content.
func (s *TemplateService) UpdateTemplate(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid template ID"))
	}

	var input struct {
		Name    *string `json:"name"`
		Content *string `json:"content"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	template, err := s.owned(principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return fail(c, apperrors.Validation("Template name cannot be empty"))
		}
		updates["name"] = name
	}
	if input.Content != nil {
		content, err := validateMessageBody(*input.Content)
		if err != nil {
			return fail(c, err)
		}
		updates["content"] = content
	}
	if len(updates) == 0 {
		return c.JSON(template)
	}

	if err := s.DB.Model(template).Updates(updates).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return fail(c, apperrors.Conflict)
		}
		return fail(c, err)
	}
	return c.JSON(template)
}

// DeleteTemplate removes one template.
func (s *TemplateService) DeleteTemplate(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid template ID"))
	}

	template, err := s.owned(principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}

	if err := s.DB.Delete(template).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Template deleted"})
}
