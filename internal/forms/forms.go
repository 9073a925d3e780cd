// Package forms stages edits to cached records and commits them: declarative
// validation, a fresh remote baseline, a structural diff and one partial
// update per changed document, followed by the matching cache patch.
package forms

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/metrics"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusNoChange Status = "no_change"
	StatusInvalid  Status = "invalid"
	StatusFailed   Status = "failed"
)

// Outcome is what a submitted form reports back to the dashboard.
type Outcome struct {
	Status Status            `json:"status"`
	Notice apperr.Notice     `json:"notice"`
	Fields map[string]string `json:"fields,omitempty"`
	ID     string            `json:"id,omitempty"`
	Token  string            `json:"token,omitempty"`
	Err    error             `json:"-"`
}

func success(msg string) Outcome {
	return Outcome{Status: StatusSuccess, Notice: apperr.Notice{Title: "Success", Message: msg}}
}

func noChange() Outcome {
	return Outcome{Status: StatusNoChange, Notice: apperr.Notice{Title: "No Change", Message: "No changes have been made."}}
}

func invalid(fields map[string]string) Outcome {
	return Outcome{
		Status: StatusInvalid,
		Notice: apperr.Notice{Title: "Invalid", Message: "Please fill in all required fields."},
		Fields: fields,
	}
}

func failed(err error) Outcome {
	if apperr.Classify(err) == apperr.KindValidation {
		return Outcome{Status: StatusInvalid, Notice: apperr.NoticeFor(err), Err: err}
	}
	return Outcome{Status: StatusFailed, Notice: apperr.NoticeFor(err), Err: err}
}

// Credentials is the part of the identity provider the settings forms use.
type Credentials interface {
	VerifyPassword(ctx context.Context, identityID, password string) error
	UpdatePassword(ctx context.Context, identityID, newPassword string) error
	UpdateEmail(ctx context.Context, identityID, newEmail string) error
	// IdentityEmail is the sign-in email the provider holds.
	IdentityEmail(ctx context.Context, identityID string) (string, error)
}

// AccountDeleter runs the account deletion cascade.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, identityID string) error
}

// Confirmations issues and redeems single-use confirmation tokens.
type Confirmations interface {
	Issue(ctx context.Context, purpose, subject string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, purpose, token string) (string, error)
}

type Controller struct {
	store      store.Store
	creds      Credentials
	deleter    AccountDeleter
	confirm    Confirmations
	confirmTTL time.Duration
	validate   *validator.Validate
	metrics    *metrics.PortalMetrics
	log        *zap.Logger
}

type Options struct {
	Credentials   Credentials
	Deleter       AccountDeleter
	Confirmations Confirmations
	ConfirmTTL    time.Duration
	Metrics       *metrics.PortalMetrics
}

func NewController(s store.Store, log *zap.Logger, opts Options) *Controller {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if opts.ConfirmTTL == 0 {
		opts.ConfirmTTL = 5 * time.Minute
	}
	return &Controller{
		store:      s,
		creds:      opts.Credentials,
		deleter:    opts.Deleter,
		confirm:    opts.Confirmations,
		confirmTTL: opts.ConfirmTTL,
		validate:   v,
		metrics:    opts.Metrics,
		log:        log,
	}
}

// check runs the struct tags of draft and returns per-field messages.
func (c *Controller) check(draft any) map[string]string {
	err := c.validate.Struct(draft)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Must be at least " + fe.Param() + " characters."
	case "datetime":
		return "Use the format YYYY-MM-DD."
	case "gtfield":
		return "Must be after " + fe.Param() + "."
	case "oneof":
		return "Must be one of: " + fe.Param() + "."
	}
	return "Invalid value."
}

// baseline reads the current remote fields of a document.
func (c *Controller) baseline(ctx context.Context, collection, id string) (store.Fields, error) {
	doc, err := c.store.GetDocument(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Record not found")
	}
	if err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

type write struct {
	collection string
	id         string
	patch      store.Fields
}

// commit issues one partial update per non-empty patch, in order, patching
// the snapshot after each successful write.
func (c *Controller) commit(ctx context.Context, snap *cache.Snapshot, writes []write) error {
	for _, w := range writes {
		if len(w.patch) == 0 {
			continue
		}
		if err := c.store.UpdateDocument(ctx, w.collection, w.id, w.patch); err != nil {
			return err
		}
		if snap != nil {
			snap.Patch(w.collection, w.id, w.patch)
		}
	}
	return nil
}

func pending(writes []write) bool {
	for _, w := range writes {
		if len(w.patch) > 0 {
			return true
		}
	}
	return false
}

// finish records the outcome of form and logs failures.
func (c *Controller) finish(form string, out Outcome) Outcome {
	c.metrics.ObserveForm(form, string(out.Status))
	if out.Status == StatusFailed {
		c.log.Error("form submission failed", zap.String("form", form), zap.Error(out.Err))
	}
	return out
}
