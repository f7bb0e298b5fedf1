package services

import (
	"context"
	"errors"
	"testing"

	"luco-sms-platform/models"
	apperrors "luco-sms-platform/pkg/errors"
)

func addContact(t *testing.T, svc *ContactService, userID, phone string, active bool) *models.Contact {
	t.Helper()

	contact, err := svc.createContact(context.Background(), userID, contactInput{
		PhoneNumber: phone,
		Name:        "c-" + phone,
	})
	if err != nil {
		t.Fatalf("create contact %s: %v", phone, err)
	}
	if !active {
		if err := svc.DB.Model(contact).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate contact: %v", err)
		}
	}
	return contact
}

func addGroup(t *testing.T, svc *ContactService, userID, name string, contactIDs ...uint) *models.ContactGroup {
	t.Helper()

	group := models.ContactGroup{UserID: userID, Name: name}
	if err := svc.DB.Create(&group).Error; err != nil {
		t.Fatalf("create group %s: %v", name, err)
	}
	for _, id := range contactIDs {
		member := models.ContactGroupMember{ContactID: id, GroupID: group.ID, UserID: userID}
		if err := svc.DB.Create(&member).Error; err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	return &group
}

func TestResolveGroupContactsDedupesAcrossGroups(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	user := createTestUser(t, db, 0)
	ctx := context.Background()

	a := addContact(t, svc, user.ID, "+254700000001", true)
	b := addContact(t, svc, user.ID, "+254700000002", true)

	g1 := addGroup(t, svc, user.ID, "one", a.ID, b.ID)
	g2 := addGroup(t, svc, user.ID, "two", a.ID)

	contacts, err := svc.ResolveGroupContacts(ctx, user.ID, []uint{g1.ID, g2.ID})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(contacts) != 2 {
		t.Errorf("contacts = %d, want 2 (a deduped)", len(contacts))
	}
}

func TestResolveGroupContactsSkipsInactive(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	user := createTestUser(t, db, 0)
	ctx := context.Background()

	active := addContact(t, svc, user.ID, "+254700000001", true)
	inactive := addContact(t, svc, user.ID, "+254700000002", false)
	group := addGroup(t, svc, user.ID, "mixed", active.ID, inactive.ID)

	contacts, err := svc.ResolveGroupContacts(ctx, user.ID, []uint{group.ID})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(contacts) != 1 || contacts[0].PhoneNumber != "+254700000001" {
		t.Errorf("contacts = %v, want only the active one", contacts)
	}
}

func TestResolveGroupContactsIgnoresForeignGroups(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	owner := createTestUser(t, db, 0)
	other := createTestUser(t, db, 0)
	ctx := context.Background()

	c := addContact(t, svc, owner.ID, "+254700000001", true)
	group := addGroup(t, svc, owner.ID, "private", c.ID)

	_, err := svc.ResolveGroupContacts(ctx, other.ID, []uint{group.ID})
	if !errors.Is(err, apperrors.NoRecipients) {
		t.Fatalf("err = %v, want NoRecipients", err)
	}
}

func TestResolveGroupContactsEmptyUnion(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	user := createTestUser(t, db, 0)

	group := addGroup(t, svc, user.ID, "empty")
	_, err := svc.ResolveGroupContacts(context.Background(), user.ID, []uint{group.ID})
	if !errors.Is(err, apperrors.NoRecipients) {
		t.Fatalf("err = %v, want NoRecipients", err)
	}
}

func TestCreateContactDuplicatePhoneConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	user := createTestUser(t, db, 0)
	ctx := context.Background()

	if _, err := svc.createContact(ctx, user.ID, contactInput{PhoneNumber: "+254700000001"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.createContact(ctx, user.ID, contactInput{PhoneNumber: "+254700000001"})
	if !errors.Is(err, apperrors.Conflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
}

func TestCreateContactSamePhoneDifferentUsers(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	u1 := createTestUser(t, db, 0)
	u2 := createTestUser(t, db, 0)
	ctx := context.Background()

	if _, err := svc.createContact(ctx, u1.ID, contactInput{PhoneNumber: "+254700000001"}); err != nil {
		t.Fatalf("user1 create: %v", err)
	}
	if _, err := svc.createContact(ctx, u2.ID, contactInput{PhoneNumber: "+254700000001"}); err != nil {
		t.Fatalf("user2 create: %v", err)
	}
}

func TestCreateContactInvalidPhone(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	user := createTestUser(t, db, 0)

	_, err := svc.createContact(context.Background(), user.ID, contactInput{PhoneNumber: "0712345678"})
	if !errors.Is(err, apperrors.ValidationError) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
