package forms

import (
	"context"
	"fmt"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

type ServiceForm struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required"`
	Price    string `json:"price" validate:"required"`
}

func (f ServiceForm) fields() store.Fields {
	return store.Fields{
		models.FieldServiceName:     f.Name,
		models.FieldServiceCategory: f.Category,
		models.FieldServicePrice:    f.Price,
	}
}

func OpenService(snap *cache.Snapshot, id string) (ServiceForm, error) {
	d, ok := snap.Find(store.Services, id)
	if !ok {
		return ServiceForm{}, apperr.NotFound("Service not found")
	}
	return ServiceForm{
		Name:     str(d.Fields, models.FieldServiceName),
		Category: str(d.Fields, models.FieldServiceCategory),
		Price:    str(d.Fields, models.FieldServicePrice),
	}, nil
}

// AddService creates a service document and appends it to the snapshot.
func (c *Controller) AddService(ctx context.Context, snap *cache.Snapshot, draft ServiceForm) Outcome {
	const form = "service_add"
	if errs := c.check(draft); errs != nil {
		return c.finish(form, invalid(errs))
	}
	fields := draft.fields()
	id, err := c.store.CreateDocument(ctx, store.Services, "", fields)
	if err != nil {
		return c.finish(form, failed(fmt.Errorf("forms: add service: %w", err)))
	}
	if snap != nil {
		snap.Add(store.Services, store.Document{ID: id, Fields: fields})
	}
	out := success("The service has been added.")
	out.ID = id
	return c.finish(form, out)
}

func (c *Controller) UpdateService(ctx context.Context, snap *cache.Snapshot, id string, draft ServiceForm) Outcome {
	const form = "service_update"
	if errs := c.check(draft); errs != nil {
		return c.finish(form, invalid(errs))
	}
	base, err := c.baseline(ctx, store.Services, id)
	if err != nil {
		return c.finish(form, failed(err))
	}
	patch := Diff(base, draft.fields())
	if len(patch) == 0 {
		return c.finish(form, noChange())
	}
	if err := c.commit(ctx, snap, []write{{collection: store.Services, id: id, patch: patch}}); err != nil {
		return c.finish(form, failed(fmt.Errorf("forms: update service %s: %w", id, err)))
	}
	return c.finish(form, success("The service has been updated."))
}

func (c *Controller) DeleteService(ctx context.Context, snap *cache.Snapshot, id string) Outcome {
	const form = "service_delete"
	if err := c.store.DeleteDocument(ctx, store.Services, id); err != nil {
		return c.finish(form, failed(fmt.Errorf("forms: delete service %s: %w", id, err)))
	}
	if snap != nil {
		snap.Delete(store.Services, id)
	}
	return c.finish(form, success("The service has been deleted."))
}
