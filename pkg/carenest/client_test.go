package carenest

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/models"
	"carenest-server/internal/routes"
	"carenest-server/internal/testutil"
)

type harness struct {
	db     *gorm.DB
	mailer *testutil.Mailer
	server *httptest.Server
}

func newHarness(t *testing.T) *harness {
	gin.SetMode(gin.TestMode)

	h := &harness{db: testutil.NewDB(t), mailer: testutil.NewMailer()}
	router := routes.NewRouter(routes.Deps{
		DB:        h.db,
		Config:    testutil.Config(),
		Log:       zap.NewNop(),
		Mailer:    h.mailer,
		Limiter:   &testutil.Limiter{},
		Publisher: &testutil.Publisher{},
		Clock:     func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	})
	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) client(opts ...Option) *Client {
	return New(h.server.URL+"/api", append([]Option{WithHTTPClient(h.server.Client())}, opts...)...)
}

func TestClientPatientFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, doctor := testutil.CreateDoctor(t, h.db, "Dr. Lee", models.SpecDermatology, 400)
	c := h.client()

	email, err := c.Register(ctx, RegisterRequest{Name: "Eve", Email: "eve@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "eve@x.com", email)

	_, err = c.Login(ctx, "eve@x.com", "secret1", false)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Please verify your email first", apiErr.Message)
	assert.False(t, c.IsAuthenticated())

	require.NoError(t, c.VerifyOTP(ctx, "eve@x.com", h.mailer.LastOTP("eve@x.com")))

	session, err := c.Login(ctx, "eve@x.com", "secret1", true)
	require.NoError(t, err)
	assert.Equal(t, RolePatient, session.User.Role)
	assert.Equal(t, "eve@x.com", session.RememberedEmail)
	assert.True(t, c.IsAuthenticated())

	doctors, err := c.Doctors(ctx, "Dermatology", "")
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, doctor.ID, doctors[0].ID)

	appt, err := c.BookAppointment(ctx, doctor.ID, "2025-01-10", "09:00", "Rash")
	require.NoError(t, err)
	assert.Equal(t, 400.0, appt.ConsultationFee)

	_, err = c.BookAppointment(ctx, doctor.ID, "2025-01-10", "09:00", "Again")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "This slot is already booked", apiErr.Message)

	appts, err := c.PatientAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, 1)

	cancelled, err := c.CancelAppointment(ctx, appt.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Eve", me.Name)

	require.NoError(t, c.Logout())
	assert.False(t, c.IsAuthenticated())
}

func TestClientClearsSessionOn401(t *testing.T) {
	h := newHarness(t)
	store := NewMemoryStore()
	require.NoError(t, store.Save(&Session{Token: "not-a-jwt"}))
	c := h.client(WithStore(store))

	_, err := c.PatientAppointments(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionExpired))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Session expired. Please login again.", apiErr.Message)

	s, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestClientDashboardStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.CreateUser(t, h.db, "Admin", "admin@x.com", "admin123", models.RoleAdmin)
	patient := testutil.CreateUser(t, h.db, "Pat", "pat@x.com", "secret1", models.RolePatient)
	_, doctor := testutil.CreateDoctor(t, h.db, "Dr. One", models.SpecDental, 380)
	testutil.CreateDoctor(t, h.db, "Dr. Two", models.SpecDental, 380)

	appt := &models.Appointment{PatientID: patient.ID, DoctorID: doctor.ID, Date: "2025-03-01", Time: "10:00", Status: models.StatusBooked}
	appt.HoldSlot()
	require.NoError(t, h.db.Create(appt).Error)

	c := h.client()
	_, err := c.Login(ctx, "admin@x.com", "admin123", false)
	require.NoError(t, err)

	stats, err := c.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DashboardStats{TotalPatients: 1, TotalDoctors: 2, TotalAppointments: 1}, *stats)

	require.NoError(t, c.DeleteDoctor(ctx, doctor.ID))
	doctors, err := c.AllDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 1)
}

func TestClientValidatesBeforeSending(t *testing.T) {
	c := New("http://127.0.0.1:0/api")
	ctx := context.Background()

	_, err := c.Register(ctx, RegisterRequest{Name: "A", Email: "a@x.com", Password: "123"})
	assert.EqualError(t, err, "password must be at least 6 characters")

	assert.EqualError(t, c.VerifyOTP(ctx, "a@x.com", "12ab56"), "OTP must be 6 digits")

	_, err = c.BookAppointment(ctx, "", "2025-01-01", "09:00", "")
	assert.Error(t, err)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carenest", "session.json")
	store := NewFileStore(path)

	s, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, s)

	want := &Session{Token: "abc", User: User{ID: "u1", Email: "a@x.com", Role: RoleDoctor}}
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, want.Token, got.Token)
	assert.Equal(t, want.User.Email, got.User.Email)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	got, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
}

func TestClientDoctorFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	patient := testutil.CreateUser(t, h.db, "Pat", "pat@x.com", "secret1", models.RolePatient)
	doctorUser, doctor := testutil.CreateDoctor(t, h.db, "Dr. Ray", models.SpecNeurology, 900)

	appt := &models.Appointment{PatientID: patient.ID, DoctorID: doctor.ID, Date: "2025-03-01", Time: "10:00", Status: models.StatusBooked}
	appt.HoldSlot()
	require.NoError(t, h.db.Create(appt).Error)

	c := h.client()
	_, err := c.Login(ctx, doctorUser.Email, "password123", false)
	require.NoError(t, err)

	free := 0.0
	slots := []AvailabilitySlot{{Day: "Monday", StartTime: "09:00", EndTime: "12:00"}}
	updated, err := c.UpdateMyDoctorProfile(ctx, UpdateDoctorRequest{ConsultationFee: &free, AvailableSlots: &slots})
	require.NoError(t, err)
	assert.Zero(t, updated.ConsultationFee)
	assert.Equal(t, slots, updated.AvailableSlots)

	confirmed, err := c.UpdateAppointmentStatus(ctx, appt.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	rx, err := c.AddPrescription(ctx, appt.ID, PrescriptionRequest{
		Medicines: []Medicine{{Name: "Aspirin", Dosage: "75mg", Frequency: "Once daily", Duration: "30 days"}},
		Diagnosis: "Migraine",
	})
	require.NoError(t, err)
	assert.Equal(t, appt.ID, rx.AppointmentID)
	require.Len(t, rx.Medicines, 1)
	assert.Equal(t, "Once daily", rx.Medicines[0].Frequency)

	got, err := c.Prescription(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, rx.ID, got.ID)
	assert.Equal(t, "Migraine", got.Diagnosis)
}

// The client is meant to be imported by other modules, which cannot reach
// this module's internal packages.
func TestClientImportsNoInternalPackages(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)

	fset := token.NewFileSet()
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range f.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			require.NoError(t, err)
			assert.NotContains(t, path, "carenest-server/", "%s imports %s", file, path)
		}
	}
}
