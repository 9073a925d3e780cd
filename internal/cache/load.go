package cache

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

// Source is one read of a dashboard load: a whole collection, one document or
// a single-field query.
type Source struct {
	Collection string
	ID         string
	Query      *store.Query
}

func All(collection string) Source { return Source{Collection: collection} }

func ByID(collection, id string) Source { return Source{Collection: collection, ID: id} }

func Where(collection string, q store.Query) Source { return Source{Collection: collection, Query: &q} }

func (s Source) read(ctx context.Context, st store.Store) ([]store.Document, error) {
	switch {
	case s.ID != "":
		d, err := st.GetDocument(ctx, s.Collection, s.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []store.Document{d}, nil
	case s.Query != nil:
		return st.Query(ctx, s.Collection, *s.Query)
	default:
		return st.ListCollection(ctx, s.Collection)
	}
}

// StaffSources reads every collection in full.
func StaffSources() []Source {
	return []Source{
		All(store.Users),
		All(store.Patients),
		All(store.Staffs),
		All(store.Appointments),
		All(store.Services),
	}
}

// PatientSources reads only what the patient dashboard of patientID shows.
func PatientSources(patientID string) []Source {
	return []Source{
		ByID(store.Users, patientID),
		Where(store.Users, store.Query{Field: models.FieldUserRole, Equals: string(models.RoleStaff)}),
		ByID(store.Patients, patientID),
		Where(store.Appointments, store.Query{
			Field:      models.FieldAppointmentPatientID,
			Equals:     patientID,
			OrderBy:    models.FieldAppointmentDate,
			Descending: true,
		}),
		All(store.Services),
	}
}

// Load runs every source concurrently and returns a snapshot only when all
// of them succeed. Sources of the same collection are merged in source order,
// first occurrence of an id wins.
func Load(ctx context.Context, st store.Store, sources ...Source) (*Snapshot, error) {
	results := make([][]store.Document, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			docs, err := src.read(gctx, st)
			if err != nil {
				return fmt.Errorf("cache: load %s: %w", src.Collection, err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	collections := make(map[string][]store.Document)
	seen := make(map[string]map[string]bool)
	for i, src := range sources {
		if _, ok := collections[src.Collection]; !ok {
			collections[src.Collection] = []store.Document{}
			seen[src.Collection] = map[string]bool{}
		}
		for _, d := range results[i] {
			if seen[src.Collection][d.ID] {
				continue
			}
			seen[src.Collection][d.ID] = true
			collections[src.Collection] = append(collections[src.Collection], d)
		}
	}
	return NewSnapshot(collections), nil
}
