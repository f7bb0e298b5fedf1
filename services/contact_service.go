package services

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"luco-sms-platform/models"
	apperrors "luco-sms-platform/pkg/errors"
)

// ContactService manages the phone book: contacts, groups and memberships.
// Every query is scoped to the owning user; a row another user owns reads as
// not found.
type ContactService struct {
	DB *gorm.DB
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{DB: db}
}

type contactInput struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

func (s *ContactService) createContact(ctx context.Context, userID string, in contactInput) (*models.Contact, error) {
	if err := validatePhoneNumber(in.PhoneNumber); err != nil {
		return nil, err
	}

	contact := models.Contact{
		UserID:      userID,
		PhoneNumber: in.PhoneNumber,
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		IsActive:    true,
	}
	if err := s.DB.WithContext(ctx).Create(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return nil, apperrors.Conflict
		}
		return nil, err
	}
	return &contact, nil
}

// ownedContact fetches a contact only if userID owns it.
func (s *ContactService) ownedContact(ctx context.Context, userID string, id uint) (*models.Contact, error) {
	var contact models.Contact
	err := s.DB.WithContext(ctx).
		First(&contact, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound
		}
		return nil, err
	}
	return &contact, nil
}

// ownedGroup fetches a group only if userID owns it.
func (s *ContactService) ownedGroup(ctx context.Context, userID string, id uint) (*models.ContactGroup, error) {
	var group models.ContactGroup
	err := s.DB.WithContext(ctx).
		First(&group, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound
		}
		return nil, err
	}
	return &group, nil
}

// ResolveGroupContacts expands group IDs into the distinct set of active
// contacts they contain. Groups the user does not own are skipped, not
// errored. Returns NoRecipients when the union is empty.
func (s *ContactService) ResolveGroupContacts(ctx context.Context, userID string, groupIDs []uint) ([]models.Contact, error) {
	if len(groupIDs) == 0 {
		return nil, apperrors.NoRecipients
	}

	var contacts []models.Contact
	err := s.DB.WithContext(ctx).
		Distinct("contacts.*").
		Model(&models.Contact{}).
		Joins("JOIN contact_group_members ON contact_group_members.contact_id = contacts.id").
		Joins("JOIN contact_groups ON contact_groups.id = contact_group_members.group_id").
		Where("contact_groups.user_id = ?", userID).
		Where("contact_group_members.group_id IN ?", groupIDs).
		Where("contacts.is_active = ?", true).
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, apperrors.NoRecipients
	}
	return contacts, nil
}

// ===== Contact handlers =====

// CreateContact adds one phone-book entry.
func (s *ContactService) CreateContact(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input contactInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	contact, err := s.createContact(c.Context(), principal.UserID, input)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(contact)
}

// CreateContactsBulk adds up to 1000 contacts in one call, skipping duplicates.
func (s *ContactService) CreateContactsBulk(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input struct {
		Contacts []contactInput `json:"contacts"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}
	if len(input.Contacts) == 0 {
		return fail(c, apperrors.Validation("At least one contact is required"))
	}
	if len(input.Contacts) > maxBulkRecipients {
		return fail(c, apperrors.Validation("Cannot create more than %d contacts at once", maxBulkRecipients))
	}

	created := make([]models.Contact, 0, len(input.Contacts))
	skipped := 0
	for _, in := range input.Contacts {
		contact, err := s.createContact(c.Context(), principal.UserID, in)
		if err != nil {
			if errors.Is(err, apperrors.Conflict) {
				skipped++
				continue
			}
			return fail(c, err)
		}
		created = append(created, *contact)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"created": created,
		"skipped": skipped,
	})
}

// ListContacts returns the caller's contacts with optional search and
// active-only filtering.
func (s *ContactService) ListContacts(c *fiber.Ctx) error {
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
	if c.QueryBool("active_only", false) {
		query = query.Where("is_active = ?", true)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR phone_number LIKE ?", like, like)
	}

	var contacts []models.Contact
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).
		Find(&contacts).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(contacts)
}

// GetContact returns one contact by ID.
func (s *ContactService) GetContact(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid contact ID"))
	}

	contact, err := s.ownedContact(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(contact)
}

// UpdateContact patches name, email, phone number or active flag.
func (s *ContactService) UpdateContact(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid contact ID"))
	}

	var input struct {
		PhoneNumber *string `json:"phone_number"`
		Name        *string `json:"name"`
		Email       *string `json:"email"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	contact, err := s.ownedContact(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}

	updates := map[string]interface{}{}
	if input.PhoneNumber != nil {
		if err := validatePhoneNumber(*input.PhoneNumber); err != nil {
			return fail(c, err)
		}
		updates["phone_number"] = *input.PhoneNumber
	}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		updates["email"] = strings.TrimSpace(*input.Email)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return c.JSON(contact)
	}

	if err := s.DB.Model(contact).Updates(updates).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return fail(c, apperrors.Conflict)
		}
		return fail(c, err)
	}
	return c.JSON(contact)
}

// DeleteContact removes a contact and its group memberships.
func (s *ContactService) DeleteContact(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid contact ID"))
	}

	contact, err := s.ownedContact(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contact_id = ?", contact.ID).
			Delete(&models.ContactGroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(contact).Error
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Contact deleted"})
}

// ===== Group handlers =====

// CreateGroup creates an empty named group.
func (s *ContactService) CreateGroup(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fail(c, apperrors.Validation("Group name is required"))
	}

	group := models.ContactGroup{
		UserID:      principal.UserID,
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.DB.Create(&group).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return fail(c, apperrors.Conflict)
		}
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// ListGroups returns the caller's groups with member counts.
func (s *ContactService) ListGroups(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	var groups []models.ContactGroup
	if err := s.DB.Where("user_id = ?", principal.UserID).
		Order("created_at DESC").Find(&groups).Error; err != nil {
		return fail(c, err)
	}

	type groupWithCount struct {
		models.ContactGroup
		MemberCount int64 `json:"member_count"`
	}
	out := make([]groupWithCount, 0, len(groups))
	for _, g := range groups {
		var count int64
		if err := s.DB.Model(&models.ContactGroupMember{}).
			Where("group_id = ?", g.ID).Count(&count).Error; err != nil {
			return fail(c, err)
		}
		out = append(out, groupWithCount{ContactGroup: g, MemberCount: count})
	}
	return c.JSON(out)
}

// GetGroup returns one group with its contacts preloaded.
func (s *ContactService) GetGroup(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid group ID"))
	}

	var group models.ContactGroup
	errFetch := s.DB.Preload("Contacts").
		First(&group, "id = ? AND user_id = ?", id, principal.UserID).Error
	if errFetch != nil {
		if errors.Is(errFetch, gorm.ErrRecordNotFound) {
			return fail(c, apperrors.NotFound)
		}
		return fail(c, errFetch)
	}
	return c.JSON(group)
}

// UpdateGroup patches a group's name or description.
func (s *ContactService) UpdateGroup(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid group ID"))
	}

	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}

	group, err := s.ownedGroup(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return fail(c, apperrors.Validation("Group name cannot be empty"))
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if len(updates) == 0 {
		return c.JSON(group)
	}

	if err := s.DB.Model(group).Updates(updates).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return fail(c, apperrors.Conflict)
		}
		return fail(c, err)
	}
	return c.JSON(group)
}

// DeleteGroup removes a group and its membership rows. Contacts survive.
func (s *ContactService) DeleteGroup(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid group ID"))
	}

	group, err := s.ownedGroup(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", group.ID).
			Delete(&models.ContactGroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(group).Error
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Group deleted"})
}

// ListGroupContacts pages through one group's members.
func (s *ContactService) ListGroupContacts(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid group ID"))
	}

	group, err := s.ownedGroup(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}

	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var contacts []models.Contact
	errList := s.DB.Model(&models.Contact{}).
		Joins("JOIN contact_group_members ON contact_group_members.contact_id = contacts.id").
		Where("contact_group_members.group_id = ?", group.ID).
		Order("contacts.created_at DESC").
		Offset(skip).Limit(limit).
		Find(&contacts).Error
	if errList != nil {
		return fail(c, errList)
	}
	return c.JSON(contacts)
}

// AddGroupMembers adds contacts to a group, skipping ones already present.
func (s *ContactService) AddGroupMembers(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid group ID"))
	}

	var input struct {
		ContactIDs []uint `json:"contact_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, apperrors.Validation("Invalid request body"))
	}
	if len(input.ContactIDs) == 0 {
		return fail(c, apperrors.Validation("At least one contact ID is required"))
	}

	group, err := s.ownedGroup(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}

	added := 0
	skipped := 0
	for _, contactID := range input.ContactIDs {
		if _, err := s.ownedContact(c.Context(), principal.UserID, contactID); err != nil {
			return fail(c, err)
		}

		var count int64
		if err := s.DB.Model(&models.ContactGroupMember{}).
			Where("group_id = ? AND contact_id = ?", group.ID, contactID).
			Count(&count).Error; err != nil {
			return fail(c, err)
		}
		if count > 0 {
			skipped++
			continue
		}

		member := models.ContactGroupMember{
			ContactID: contactID,
			GroupID:   group.ID,
			UserID:    principal.UserID,
		}
		if err := s.DB.Create(&member).Error; err != nil {
			return fail(c, err)
		}
		added++
	}

	return c.JSON(fiber.Map{"added": added, "skipped": skipped})
}

// RemoveGroupMember takes one contact out of a group.
func (s *ContactService) RemoveGroupMember(c *fiber.Ctx) error {
	principal, ok := principalFromCtx(c)
	if !ok {
		return failUnauthenticated(c)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fail(c, apperrors.Validation("Invalid group ID"))
	}
	contactID, err := c.ParamsInt("contact_id")
	if err != nil || contactID <= 0 {
		return fail(c, apperrors.Validation("Invalid contact ID"))
	}

	group, err := s.ownedGroup(c.Context(), principal.UserID, uint(id))
	if err != nil {
		return fail(c, err)
	}

	res := s.DB.Where("group_id = ? AND contact_id = ?", group.ID, uint(contactID)).
		Delete(&models.ContactGroupMember{})
	if res.Error != nil {
		return fail(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(c, apperrors.NotFound)
	}
	return c.JSON(fiber.Map{"message": "Contact removed from group"})
}
