package forms

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

// PersonalInfo edits the users document and the patient or staff record of
// the same id.
type PersonalInfo struct {
	FirstName      string `json:"firstName" validate:"required"`
	MiddleName     string `json:"middleName"`
	LastName       string `json:"lastName" validate:"required"`
	Address        string `json:"address" validate:"required"`
	DateOfBirth    string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Gender         string `json:"gender" validate:"required"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// ContactInfo edits the mobile number and, for the account owner, the email.
type ContactInfo struct {
	MobileNumber string `json:"mobileNumber" validate:"required"`
	OldEmail     string `json:"oldEmail" validate:"omitempty,email"`
	NewEmail     string `json:"newEmail" validate:"omitempty,email"`
}

func str(f store.Fields, key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// OpenPersonal builds the personal info draft of id from the snapshot.
func OpenPersonal(snap *cache.Snapshot, id string) (PersonalInfo, error) {
	u, ok := snap.Find(store.Users, id)
	if !ok {
		return PersonalInfo{}, apperr.NotFound("User not found")
	}
	draft := PersonalInfo{
		FirstName:  str(u.Fields, models.FieldUserFirstName),
		MiddleName: str(u.Fields, models.FieldUserMiddleName),
		LastName:   str(u.Fields, models.FieldUserLastName),
		Address:    str(u.Fields, models.FieldUserAddress),
	}
	if p, ok := snap.Find(store.Patients, id); ok {
		draft.DateOfBirth = str(p.Fields, models.FieldPatientDateOfBirth)
		draft.Gender = str(p.Fields, models.FieldPatientGender)
	} else if s, ok := snap.Find(store.Staffs, id); ok {
		draft.DateOfBirth = str(s.Fields, models.FieldStaffDateOfBirth)
		draft.Gender = str(s.Fields, models.FieldStaffGender)
		draft.JobDescription = str(s.Fields, models.FieldStaffJobDescription)
	}
	return draft, nil
}

// OpenContact builds the contact draft of id from the snapshot.
func OpenContact(snap *cache.Snapshot, id string) (ContactInfo, error) {
	u, ok := snap.Find(store.Users, id)
	if !ok {
		return ContactInfo{}, apperr.NotFound("User not found")
	}
	email := str(u.Fields, models.FieldUserEmail)
	return ContactInfo{
		MobileNumber: str(u.Fields, models.FieldUserMobileNumber),
		OldEmail:     email,
		NewEmail:     email,
	}, nil
}

// SubmitPersonal commits a personal info draft for the user id.
func (c *Controller) SubmitPersonal(ctx context.Context, snap *cache.Snapshot, id string, draft PersonalInfo) Outcome {
	const form = "personal"
	if errs := c.check(draft); errs != nil {
		return c.finish(form, invalid(errs))
	}

	userBase, err := c.baseline(ctx, store.Users, id)
	if err != nil {
		return c.finish(form, failed(err))
	}
	userDraft := store.Fields{
		models.FieldUserFirstName:  draft.FirstName,
		models.FieldUserMiddleName: draft.MiddleName,
		models.FieldUserLastName:   draft.LastName,
		models.FieldUserAddress:    draft.Address,
	}

	recordColl, recordDraft := store.Patients, store.Fields{
		models.FieldPatientDateOfBirth: draft.DateOfBirth,
		models.FieldPatientGender:      draft.Gender,
	}
	if models.ParseRole(str(userBase, models.FieldUserRole)).IsStaff() {
		if draft.JobDescription == "" {
			return c.finish(form, invalid(map[string]string{"jobDescription": "This field is required."}))
		}
		recordColl, recordDraft = store.Staffs, store.Fields{
			models.FieldStaffDateOfBirth:    draft.DateOfBirth,
			models.FieldStaffGender:         draft.Gender,
			models.FieldStaffJobDescription: draft.JobDescription,
		}
	}
	recordBase, err := c.baseline(ctx, recordColl, id)
	if err != nil {
		return c.finish(form, failed(err))
	}

	writes := []write{
		{collection: store.Users, id: id, patch: Diff(userBase, userDraft)},
		{collection: recordColl, id: id, patch: Diff(recordBase, recordDraft)},
	}
	if !pending(writes) {
		return c.finish(form, noChange())
	}
	if err := c.commit(ctx, snap, writes); err != nil {
		return c.finish(form, failed(fmt.Errorf("forms: personal info %s: %w", id, err)))
	}
	return c.finish(form, success("Personal information has been updated."))
}

// SubmitContact commits a contact draft for targetID on behalf of actorID.
// An email change is only accepted from the account owner and is mirrored to
// the identity provider after the store write. A stored email the provider
// does not hold yet is mirrored again on the next owner submission.
func (c *Controller) SubmitContact(ctx context.Context, snap *cache.Snapshot, actorID, targetID string, draft ContactInfo) Outcome {
	const form = "contact"
	if errs := c.check(draft); errs != nil {
		return c.finish(form, invalid(errs))
	}
	newEmail := strings.ToLower(strings.TrimSpace(draft.NewEmail))
	emailChange := newEmail != "" && !strings.EqualFold(newEmail, strings.TrimSpace(draft.OldEmail))
	if emailChange && actorID != targetID {
		return c.finish(form, invalid(map[string]string{"newEmail": "Only the account owner can change the email."}))
	}

	base, err := c.baseline(ctx, store.Users, targetID)
	if err != nil {
		return c.finish(form, failed(err))
	}
	stored := str(base, models.FieldUserEmail)
	userDraft := store.Fields{models.FieldUserMobileNumber: draft.MobileNumber}
	if emailChange && !strings.EqualFold(newEmail, stored) {
		if !strings.EqualFold(strings.TrimSpace(draft.OldEmail), stored) {
			return c.finish(form, invalid(map[string]string{"oldEmail": "Does not match the current email."}))
		}
		userDraft[models.FieldUserEmail] = newEmail
	}

	resync := false
	if actorID == targetID && newEmail != "" && strings.EqualFold(newEmail, stored) {
		current, err := c.creds.IdentityEmail(ctx, targetID)
		if err != nil {
			return c.finish(form, failed(fmt.Errorf("forms: read sign-in email %s: %w", targetID, err)))
		}
		resync = !strings.EqualFold(current, newEmail)
	}

	patch := Diff(base, userDraft)
	if len(patch) == 0 && !resync {
		return c.finish(form, noChange())
	}
	if len(patch) > 0 {
		if err := c.commit(ctx, snap, []write{{collection: store.Users, id: targetID, patch: patch}}); err != nil {
			return c.finish(form, failed(fmt.Errorf("forms: contact info %s: %w", targetID, err)))
		}
	}

	if _, ok := patch[models.FieldUserEmail]; ok || resync {
		if err := c.creds.UpdateEmail(ctx, targetID, newEmail); err != nil {
			c.log.Error("sign-in email not updated after contact change",
				zap.String("identity_id", targetID), zap.Error(err))
			out := failed(err)
			out.Notice.Message = "Your contact information was saved, but the sign-in email could not be changed. Please try again."
			out.Notice.Retry = true
			return c.finish(form, out)
		}
	}
	return c.finish(form, success("Contact information has been updated."))
}
