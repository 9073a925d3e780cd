package forms

import (
	"context"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
)

type PasswordChange struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// SubmitPassword changes the password of identityID after verifying the old one.
func (c *Controller) SubmitPassword(ctx context.Context, identityID string, draft PasswordChange) Outcome {
	const form = "password"
	if errs := c.check(draft); errs != nil {
		return c.finish(form, invalid(errs))
	}
	if draft.OldPassword == draft.NewPassword {
		return c.finish(form, failed(apperr.Validation("Old and new passwords cannot be the same.")))
	}
	if err := c.creds.VerifyPassword(ctx, identityID, draft.OldPassword); err != nil {
		return c.finish(form, failed(err))
	}
	if err := c.creds.UpdatePassword(ctx, identityID, draft.NewPassword); err != nil {
		return c.finish(form, failed(err))
	}
	return c.finish(form, success("Your password has been updated."))
}
