package forms

import (
	"context"
	"fmt"
	"time"

	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

type ScheduleForm struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

// SubmitSchedule sets the working window of a staff record.
func (c *Controller) SubmitSchedule(ctx context.Context, snap *cache.Snapshot, staffID string, draft ScheduleForm) Outcome {
	const form = "schedule"
	if errs := c.check(draft); errs != nil {
		return c.finish(form, invalid(errs))
	}
	base, err := c.baseline(ctx, store.Staffs, staffID)
	if err != nil {
		return c.finish(form, failed(err))
	}
	schedule, err := store.Encode(models.Schedule{Start: draft.Start.UTC(), End: draft.End.UTC()})
	if err != nil {
		return c.finish(form, failed(err))
	}
	patch := Diff(base, store.Fields{models.FieldStaffSchedule: schedule})
	if len(patch) == 0 {
		return c.finish(form, noChange())
	}
	if err := c.commit(ctx, snap, []write{{collection: store.Staffs, id: staffID, patch: patch}}); err != nil {
		return c.finish(form, failed(fmt.Errorf("forms: schedule %s: %w", staffID, err)))
	}
	return c.finish(form, success("The schedule has been updated."))
}
