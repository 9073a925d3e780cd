package forms

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/cache"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/session"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

type fakeCreds struct {
	password    string
	email       string
	emailCalls  []string
	pwCalls     []string
	emailErr    error
	verifyCalls int
}

func (f *fakeCreds) VerifyPassword(ctx context.Context, id, password string) error {
	f.verifyCalls++
	if password != f.password {
		return apperr.Validation("The current password is incorrect.")
	}
	return nil
}

func (f *fakeCreds) UpdatePassword(ctx context.Context, id, newPassword string) error {
	f.pwCalls = append(f.pwCalls, newPassword)
	return nil
}

func (f *fakeCreds) UpdateEmail(ctx context.Context, id, email string) error {
	f.emailCalls = append(f.emailCalls, email)
	if f.emailErr != nil {
		return f.emailErr
	}
	f.email = email
	return nil
}

func (f *fakeCreds) IdentityEmail(ctx context.Context, id string) (string, error) {
	return f.email, nil
}

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteAccount(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

type fixture struct {
	mem     *store.Memory
	snap    *cache.Snapshot
	creds   *fakeCreds
	deleter *fakeDeleter
	ctrl    *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	mem.Seed(store.Users, "u1", store.Fields{
		models.FieldUserRole:         "Patient",
		models.FieldUserFirstName:    "Ana",
		models.FieldUserMiddleName:   "",
		models.FieldUserLastName:     "Cruz",
		models.FieldUserAddress:      "Manila",
		models.FieldUserMobileNumber: "111",
		models.FieldUserEmail:        "a@a.com",
	})
	mem.Seed(store.Patients, "u1", store.Fields{
		models.FieldPatientDateOfBirth: "1990-01-01",
		models.FieldPatientGender:      "Female",
	})
	mem.Seed(store.Users, "d1", store.Fields{
		models.FieldUserRole:      "Staff",
		models.FieldUserFirstName: "Rosa",
		models.FieldUserLastName:  "Santos",
		models.FieldUserAddress:   "Cebu",
	})
	mem.Seed(store.Staffs, "d1", store.Fields{
		models.FieldStaffDateOfBirth:    "1980-05-05",
		models.FieldStaffGender:         "Female",
		models.FieldStaffJobDescription: "Dentist",
	})
	mem.Seed(store.Services, "s1", store.Fields{
		models.FieldServiceName:     "X-Ray",
		models.FieldServiceCategory: "Imaging",
		models.FieldServicePrice:    "500",
	})

	snap, err := cache.Load(context.Background(), mem, cache.StaffSources()...)
	require.NoError(t, err)
	mem.ResetCalls()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	creds := &fakeCreds{password: "password123", email: "a@a.com"}
	deleter := &fakeDeleter{}
	ctrl := NewController(mem, zap.NewNop(), Options{
		Credentials:   creds,
		Deleter:       deleter,
		Confirmations: session.NewTokens(client),
		ConfirmTTL:    time.Minute,
	})
	return &fixture{mem: mem, snap: snap, creds: creds, deleter: deleter, ctrl: ctrl}
}

func TestUnchangedDraftMakesNoWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	personal, err := OpenPersonal(f.snap, "u1")
	require.NoError(t, err)
	out := f.ctrl.SubmitPersonal(ctx, f.snap, "u1", personal)
	assert.Equal(t, StatusNoChange, out.Status)
	assert.Equal(t, "No Change", out.Notice.Title)

	contact, err := OpenContact(f.snap, "u1")
	require.NoError(t, err)
	out = f.ctrl.SubmitContact(ctx, f.snap, "u1", "u1", contact)
	assert.Equal(t, StatusNoChange, out.Status)

	svc, err := OpenService(f.snap, "s1")
	require.NoError(t, err)
	out = f.ctrl.UpdateService(ctx, f.snap, "s1", svc)
	assert.Equal(t, StatusNoChange, out.Status)

	assert.Empty(t, f.mem.Writes())
	assert.Empty(t, f.creds.emailCalls)
}

func TestInvalidDraftMakesNoRemoteCall(t *testing.T) {
	f := newFixture(t)
	out := f.ctrl.SubmitPersonal(context.Background(), f.snap, "u1", PersonalInfo{FirstName: "Ana", DateOfBirth: "01/01/1990"})

	assert.Equal(t, StatusInvalid, out.Status)
	assert.Contains(t, out.Fields, "lastName")
	assert.Contains(t, out.Fields, "address")
	assert.Equal(t, "Use the format YYYY-MM-DD.", out.Fields["dateOfBirth"])
	assert.Empty(t, f.mem.Calls())
}

func TestSubmitPersonalPatchesOnlyChangedDocuments(t *testing.T) {
	f := newFixture(t)
	draft, err := OpenPersonal(f.snap, "u1")
	require.NoError(t, err)
	draft.Address = "Quezon City"

	out := f.ctrl.SubmitPersonal(context.Background(), f.snap, "u1", draft)
	require.Equal(t, StatusSuccess, out.Status)

	assert.Equal(t, []store.Call{{
		Op: store.OpUpdate, Collection: store.Users, ID: "u1",
		Fields: store.Fields{models.FieldUserAddress: "Quezon City"},
	}}, f.mem.Writes())

	d, ok := f.snap.Find(store.Users, "u1")
	require.True(t, ok)
	assert.Equal(t, "Quezon City", d.Fields[models.FieldUserAddress])
}

func TestSubmitPersonalForStaffTouchesStaffRecord(t *testing.T) {
	f := newFixture(t)
	draft, err := OpenPersonal(f.snap, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Dentist", draft.JobDescription)

	draft.FirstName = "Rose"
	draft.JobDescription = "Orthodontist"
	out := f.ctrl.SubmitPersonal(context.Background(), f.snap, "d1", draft)
	require.Equal(t, StatusSuccess, out.Status)

	writes := f.mem.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, store.Users, writes[0].Collection)
	assert.Equal(t, store.Fields{models.FieldUserFirstName: "Rose"}, writes[0].Fields)
	assert.Equal(t, store.Staffs, writes[1].Collection)
	assert.Equal(t, store.Fields{models.FieldStaffJobDescription: "Orthodontist"}, writes[1].Fields)

	draft.JobDescription = ""
	out = f.ctrl.SubmitPersonal(context.Background(), f.snap, "d1", draft)
	assert.Equal(t, StatusInvalid, out.Status)
}

func TestContactMobileOnly(t *testing.T) {
	f := newFixture(t)
	out := f.ctrl.SubmitContact(context.Background(), f.snap, "u1", "u1", ContactInfo{
		MobileNumber: "222",
		OldEmail:     "a@a.com",
		NewEmail:     "a@a.com",
	})
	require.Equal(t, StatusSuccess, out.Status)

	assert.Equal(t, []store.Call{{
		Op: store.OpUpdate, Collection: store.Users, ID: "u1",
		Fields: store.Fields{models.FieldUserMobileNumber: "222"},
	}}, f.mem.Writes())
	assert.Empty(t, f.creds.emailCalls)

	d, _ := f.snap.Find(store.Users, "u1")
	assert.Equal(t, "222", d.Fields[models.FieldUserMobileNumber])
}

func TestContactEmailChange(t *testing.T) {
	f := newFixture(t)
	out := f.ctrl.SubmitContact(context.Background(), f.snap, "u1", "u1", ContactInfo{
		MobileNumber: "111",
		OldEmail:     "a@a.com",
		NewEmail:     "New@B.com",
	})
	require.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, []string{"new@b.com"}, f.creds.emailCalls)
	require.Len(t, f.mem.Writes(), 1)
	assert.Equal(t, store.Fields{models.FieldUserEmail: "new@b.com"}, f.mem.Writes()[0].Fields)
}

func TestContactEmailProviderFailureKeepsStoreWrite(t *testing.T) {
	f := newFixture(t)
	f.creds.emailErr = errors.New("provider down")
	out := f.ctrl.SubmitContact(context.Background(), f.snap, "u1", "u1", ContactInfo{
		MobileNumber: "111",
		OldEmail:     "a@a.com",
		NewEmail:     "b@b.com",
	})

	assert.Equal(t, StatusFailed, out.Status)
	assert.True(t, out.Notice.Retry)
	doc, err := f.mem.GetDocument(context.Background(), store.Users, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b@b.com", doc.Fields[models.FieldUserEmail])
}

func TestContactEmailRetryReachesProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	draft := ContactInfo{MobileNumber: "111", OldEmail: "a@a.com", NewEmail: "b@b.com"}

	f.creds.emailErr = errors.New("provider down")
	out := f.ctrl.SubmitContact(ctx, f.snap, "u1", "u1", draft)
	require.Equal(t, StatusFailed, out.Status)
	require.True(t, out.Notice.Retry)

	f.creds.emailErr = nil
	f.mem.ResetCalls()
	out = f.ctrl.SubmitContact(ctx, f.snap, "u1", "u1", draft)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, []string{"b@b.com", "b@b.com"}, f.creds.emailCalls)
	assert.Equal(t, "b@b.com", f.creds.email)
	assert.Empty(t, f.mem.Writes())

	out = f.ctrl.SubmitContact(ctx, f.snap, "u1", "u1", ContactInfo{MobileNumber: "111", OldEmail: "b@b.com", NewEmail: "b@b.com"})
	assert.Equal(t, StatusNoChange, out.Status)
	assert.Len(t, f.creds.emailCalls, 2)
}

func TestContactReopenedDraftResyncsEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.creds.emailErr = errors.New("provider down")
	f.ctrl.SubmitContact(ctx, f.snap, "u1", "u1", ContactInfo{MobileNumber: "111", OldEmail: "a@a.com", NewEmail: "b@b.com"})

	f.creds.emailErr = nil
	draft, err := OpenContact(f.snap, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b@b.com", draft.OldEmail)

	out := f.ctrl.SubmitContact(ctx, f.snap, "u1", "u1", draft)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "b@b.com", f.creds.email)
}

func TestContactRejectsEmailChangeByOthers(t *testing.T) {
	f := newFixture(t)
	out := f.ctrl.SubmitContact(context.Background(), f.snap, "d1", "u1", ContactInfo{
		MobileNumber: "111",
		OldEmail:     "a@a.com",
		NewEmail:     "b@b.com",
	})
	assert.Equal(t, StatusInvalid, out.Status)

	out = f.ctrl.SubmitContact(context.Background(), f.snap, "u1", "u1", ContactInfo{
		MobileNumber: "111",
		OldEmail:     "wrong@a.com",
		NewEmail:     "b@b.com",
	})
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Empty(t, f.mem.Writes())
}

func TestSubmitPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out := f.ctrl.SubmitPassword(ctx, "u1", PasswordChange{OldPassword: "password123", NewPassword: "password123"})
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Equal(t, "Old and new passwords cannot be the same.", out.Notice.Message)
	assert.Zero(t, f.creds.verifyCalls)

	out = f.ctrl.SubmitPassword(ctx, "u1", PasswordChange{OldPassword: "guess-guess", NewPassword: "password999"})
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Empty(t, f.creds.pwCalls)

	out = f.ctrl.SubmitPassword(ctx, "u1", PasswordChange{OldPassword: "password123", NewPassword: "short"})
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Contains(t, out.Fields, "newPassword")

	out = f.ctrl.SubmitPassword(ctx, "u1", PasswordChange{OldPassword: "password123", NewPassword: "password999"})
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, []string{"password999"}, f.creds.pwCalls)
}

func TestServiceLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out := f.ctrl.AddService(ctx, f.snap, ServiceForm{Name: "CBC", Category: models.CategoryLaboratoryTest})
	assert.Equal(t, StatusInvalid, out.Status)

	out = f.ctrl.AddService(ctx, f.snap, ServiceForm{Name: "CBC", Category: models.CategoryLaboratoryTest, Price: "350"})
	require.Equal(t, StatusSuccess, out.Status)
	require.NotEmpty(t, out.ID)
	_, ok := f.snap.Find(store.Services, out.ID)
	assert.True(t, ok)

	out = f.ctrl.UpdateService(ctx, f.snap, "s1", ServiceForm{Name: "X-Ray", Category: "Imaging", Price: "650"})
	require.Equal(t, StatusSuccess, out.Status)
	d, _ := f.snap.Find(store.Services, "s1")
	assert.Equal(t, "650", d.Fields[models.FieldServicePrice])

	out = f.ctrl.DeleteService(ctx, f.snap, "s1")
	require.Equal(t, StatusSuccess, out.Status)
	_, ok = f.snap.Find(store.Services, "s1")
	assert.False(t, ok)
}

func TestSubmitSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

	out := f.ctrl.SubmitSchedule(ctx, f.snap, "d1", ScheduleForm{Start: start, End: start.Add(-time.Hour)})
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Contains(t, out.Fields, "end")

	draft := ScheduleForm{Start: start, End: start.Add(9 * time.Hour)}
	out = f.ctrl.SubmitSchedule(ctx, f.snap, "d1", draft)
	require.Equal(t, StatusSuccess, out.Status)

	doc, err := f.mem.GetDocument(ctx, store.Staffs, "d1")
	require.NoError(t, err)
	var staff models.Staff
	require.NoError(t, store.Decode(doc, &staff))
	require.NotNil(t, staff.Schedule)
	assert.True(t, staff.Schedule.End.Equal(start.Add(9*time.Hour)))

	out = f.ctrl.SubmitSchedule(ctx, f.snap, "d1", draft)
	assert.Equal(t, StatusNoChange, out.Status)
}

func TestDeletionIsTwoPhase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out := f.ctrl.RequestDeletion(ctx, "u1", DeletionRequest{Password: "nope"})
	assert.Equal(t, StatusInvalid, out.Status)
	assert.Empty(t, out.Token)

	out = f.ctrl.RequestDeletion(ctx, "u1", DeletionRequest{Password: "password123"})
	require.Equal(t, StatusSuccess, out.Status)
	require.NotEmpty(t, out.Token)
	assert.Empty(t, f.deleter.deleted)

	bad := f.ctrl.ConfirmDeletion(ctx, "d1", out.Token)
	assert.Equal(t, StatusInvalid, bad.Status)
	assert.Empty(t, f.deleter.deleted)

	out = f.ctrl.RequestDeletion(ctx, "u1", DeletionRequest{Password: "password123"})
	require.Equal(t, StatusSuccess, out.Status)
	done := f.ctrl.ConfirmDeletion(ctx, "u1", out.Token)
	assert.Equal(t, StatusSuccess, done.Status)
	assert.Equal(t, []string{"u1"}, f.deleter.deleted)

	again := f.ctrl.ConfirmDeletion(ctx, "u1", out.Token)
	assert.Equal(t, StatusInvalid, again.Status)
}

func TestStoreFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.mem.Fail = func(op, collection, id string) error {
		if op == store.OpUpdate {
			return errors.New("connection reset")
		}
		return nil
	}
	draft, err := OpenContact(f.snap, "u1")
	require.NoError(t, err)
	draft.MobileNumber = "999"

	out := f.ctrl.SubmitContact(context.Background(), f.snap, "u1", "u1", draft)
	assert.Equal(t, StatusFailed, out.Status)
	assert.True(t, out.Notice.Retry)
	d, _ := f.snap.Find(store.Users, "u1")
	assert.Equal(t, "111", d.Fields[models.FieldUserMobileNumber])
}
