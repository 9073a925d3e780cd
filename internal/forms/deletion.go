package forms

import (
	"context"
	"errors"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/session"
)

const deletionPurpose = "delete-account"

type DeletionRequest struct {
	Password string `json:"password"`
}

// RequestDeletion is the first phase of account deletion: it checks the
// caller's password and returns a short-lived confirmation token.
func (c *Controller) RequestDeletion(ctx context.Context, identityID string, draft DeletionRequest) Outcome {
	const form = "deletion_request"
	if err := c.creds.VerifyPassword(ctx, identityID, draft.Password); err != nil {
		return c.finish(form, failed(err))
	}
	token, err := c.confirm.Issue(ctx, deletionPurpose, identityID, c.confirmTTL)
	if err != nil {
		return c.finish(form, failed(err))
	}
	return c.finish(form, Outcome{
		Status: StatusSuccess,
		Notice: apperr.Notice{Title: "Confirm", Message: "This will permanently delete your account. Confirm to continue."},
		Token:  token,
	})
}

// ConfirmDeletion redeems the token and runs the deletion cascade.
func (c *Controller) ConfirmDeletion(ctx context.Context, identityID, token string) Outcome {
	const form = "deletion_confirm"
	subject, err := c.confirm.Consume(ctx, deletionPurpose, token)
	if errors.Is(err, session.ErrTokenInvalid) || (err == nil && subject != identityID) {
		return c.finish(form, failed(apperr.Validation("The confirmation has expired. Please request deletion again.")))
	}
	if err != nil {
		return c.finish(form, failed(err))
	}
	if err := c.deleter.DeleteAccount(ctx, identityID); err != nil {
		out := failed(err)
		out.Notice.Title = "Warning"
		out.Notice.Message = "Failed to delete your account. Please try again."
		return c.finish(form, out)
	}
	return c.finish(form, success("Your account has been deleted."))
}
