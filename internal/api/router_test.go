package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/availability"
	"github.com/clinicore/clinic-scheduling/internal/leave"
	"github.com/clinicore/clinic-scheduling/internal/queue"
)

type fakeAvailability struct {
	weeks      map[uuid.UUID]availability.Week
	setWeekErr error
}

func (f *fakeAvailability) SetWeek(_ context.Context, practitionerID uuid.UUID, week availability.Week) error {
	if f.setWeekErr != nil {
		return f.setWeekErr
	}
	if f.weeks == nil {
		f.weeks = make(map[uuid.UUID]availability.Week)
	}
	f.weeks[practitionerID] = week
	return nil
}

func (f *fakeAvailability) GetWeek(_ context.Context, practitionerID uuid.UUID) (availability.Week, error) {
	return f.weeks[practitionerID], nil
}

type fakeLeaves struct {
	addErr   error
	added    []leave.AddInput
	removed  []uuid.UUID
	listed   []leave.Leave
	lastList struct {
		practitionerID *uuid.UUID
		upcomingOnly   bool
	}
}

func (f *fakeLeaves) Add(_ context.Context, in leave.AddInput) (leave.Leave, error) {
	if f.addErr != nil {
		return leave.Leave{}, f.addErr
	}
	f.added = append(f.added, in)
	return leave.Leave{
		ID:             uuid.New(),
		PractitionerID: in.PractitionerID,
		Date:           in.Date,
		FullDay:        in.FullDay,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Reason:         in.Reason,
		CreatedAt:      time.Now(),
	}, nil
}

func (f *fakeLeaves) Remove(_ context.Context, id uuid.UUID) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeLeaves) List(_ context.Context, practitionerID *uuid.UUID, upcomingOnly bool) ([]leave.Leave, error) {
	f.lastList.practitionerID = practitionerID
	f.lastList.upcomingOnly = upcomingOnly
	return f.listed, nil
}

type fakePreviewer struct {
	affected []leave.AffectedAppointment
	err      error
}

func (f *fakePreviewer) Preview(_ context.Context, _ leave.AddInput) ([]leave.AffectedAppointment, error) {
	return f.affected, f.err
}

type fakeQueue struct {
	appt     *queue.Appointment
	entries  []queue.QueueEntry
	slots    []queue.SlotAvailability
	err      error
	lastList struct {
		clinicID       uuid.UUID
		date           availability.Date
		practitionerID *uuid.UUID
	}
}

func (f *fakeQueue) RegisterWalkIn(_ context.Context, _ queue.RegisterInput) (*queue.Appointment, error) {
	return f.appt, f.err
}

func (f *fakeQueue) BookSlot(_ context.Context, _ queue.BookInput) (*queue.Appointment, error) {
	return f.appt, f.err
}

func (f *fakeQueue) ListQueue(_ context.Context, clinicID uuid.UUID, date availability.Date, practitionerID *uuid.UUID) ([]queue.QueueEntry, error) {
	f.lastList.clinicID = clinicID
	f.lastList.date = date
	f.lastList.practitionerID = practitionerID
	return f.entries, f.err
}

func (f *fakeQueue) Transition(_ context.Context, _ uuid.UUID, _ queue.Status) (*queue.Appointment, error) {
	return f.appt, f.err
}

func (f *fakeQueue) DaySchedule(_ context.Context, _ uuid.UUID, _ availability.Date) ([]queue.SlotAvailability, error) {
	return f.slots, f.err
}

type testServer struct {
	availability *fakeAvailability
	leaves       *fakeLeaves
	previewer    *fakePreviewer
	queue        *fakeQueue
	handler      http.Handler
}

func newTestServer() *testServer {
	s := &testServer{
		availability: &fakeAvailability{},
		leaves:       &fakeLeaves{},
		previewer:    &fakePreviewer{},
		queue:        &fakeQueue{},
	}
	s.handler = NewRouter(RouterConfig{
		Availability: s.availability,
		Leaves:       s.leaves,
		Previewer:    s.previewer,
		Queue:        s.queue,
		Env:          "test",
		Version:      "test",
		Log:          zerolog.Nop(),
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func mustClock(t *testing.T, s string) availability.MinuteOfDay {
	t.Helper()
	m, err := availability.ParseClock(s)
	require.NoError(t, err)
	return m
}

func mustDate(t *testing.T, s string) availability.Date {
	t.Helper()
	d, err := availability.ParseDate(s)
	require.NoError(t, err)
	return d
}

func weekBody(t *testing.T) SetWeekRequest {
	t.Helper()
	var req SetWeekRequest
	for i := 1; i <= 5; i++ {
		req.Days[i] = DayTemplate{
			Enabled:             true,
			StartTime:           mustClock(t, "09:00"),
			EndTime:             mustClock(t, "17:00"),
			SlotDurationMinutes: 15,
			MaxPatientsPerSlot:  1,
		}
	}
	return req
}

func TestSetWeekEndpoint(t *testing.T) {
	t.Run("saves and echoes the week", func(t *testing.T) {
		s := newTestServer()
		id := uuid.New()

		rec := s.do(t, http.MethodPut, "/practitioners/"+id.String()+"/week", weekBody(t))
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeInto[WeekResponse](t, rec)
		assert.Equal(t, id, resp.PractitionerID)
		assert.False(t, resp.Days[0].Enabled)
		assert.True(t, resp.Days[1].Enabled)
		assert.Equal(t, "09:00", resp.Days[1].StartTime.String())
		assert.Len(t, s.availability.weeks, 1)
	})

	t.Run("malformed uuid", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(t, http.MethodPut, "/practitioners/not-a-uuid/week", weekBody(t))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, KindValidation, decodeInto[ErrorResponse](t, rec).Kind)
	})

	t.Run("rejected week reports the offending days", func(t *testing.T) {
		s := newTestServer()
		s.availability.setWeekErr = &availability.WeekValidationError{
			Days: map[time.Weekday]string{time.Monday: "end_time must be after start_time"},
		}

		rec := s.do(t, http.MethodPut, "/practitioners/"+uuid.NewString()+"/week", weekBody(t))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decodeInto[ErrorResponse](t, rec)
		assert.Equal(t, KindValidation, resp.Kind)
		details, ok := resp.Details.(map[string]any)
		require.True(t, ok)
		assert.Contains(t, details, "Monday")
		assert.Empty(t, s.availability.weeks, "rejected week must not be saved")
	})
}

func TestGetWeekEndpoint(t *testing.T) {
	s := newTestServer()
	id := uuid.New()
	rec := s.do(t, http.MethodPut, "/practitioners/"+id.String()+"/week", weekBody(t))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/practitioners/"+id.String()+"/week", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeInto[WeekResponse](t, rec)
	assert.Equal(t, 15, resp.Days[1].SlotDurationMinutes)
}

func TestLeavePreviewEndpoint(t *testing.T) {
	s := newTestServer()
	s.previewer.affected = []leave.AffectedAppointment{
		{
			ID:           uuid.New(),
			TimeSlot:     availability.Window{Start: mustClock(t, "10:00"), End: mustClock(t, "10:15")},
			PatientLabel: "Asha K",
		},
	}

	body := LeaveRequest{
		PractitionerID: uuid.NewString(),
		Date:           mustDate(t, "2025-06-02"),
		FullDay:        true,
		Reason:         "conference",
	}
	rec := s.do(t, http.MethodPost, "/leaves/preview", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeInto[PreviewResponse](t, rec)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Affected, 1)
	assert.Equal(t, "Asha K", resp.Affected[0].PatientLabel)

	// Preview never writes.
	assert.Empty(t, s.leaves.added)
}

func TestCommitLeaveEndpoint(t *testing.T) {
	body := LeaveRequest{
		PractitionerID: uuid.NewString(),
		Date:           mustDate(t, "2025-06-02"),
		StartTime:      mustClock(t, "13:00"),
		EndTime:        mustClock(t, "15:00"),
		Reason:         "personal",
	}

	t.Run("created", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(t, http.MethodPost, "/leaves", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decodeInto[LeaveResponse](t, rec)
		assert.Equal(t, "personal", resp.Reason)
		assert.Equal(t, "13:00", resp.StartTime.String())
		require.Len(t, s.leaves.added, 1)
	})

	t.Run("overlap maps to conflict with the existing id", func(t *testing.T) {
		s := newTestServer()
		existing := uuid.New()
		s.leaves.addErr = &leave.OverlapError{ExistingID: existing}

		rec := s.do(t, http.MethodPost, "/leaves", body)
		require.Equal(t, http.StatusConflict, rec.Code)

		resp := decodeInto[ErrorResponse](t, rec)
		assert.Equal(t, KindConflict, resp.Kind)
		details, ok := resp.Details.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, existing.String(), details["existing_leave_id"])
	})

	t.Run("missing reason", func(t *testing.T) {
		s := newTestServer()
		s.leaves.addErr = leave.ErrReasonRequired
		rec := s.do(t, http.MethodPost, "/leaves", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, KindValidation, decodeInto[ErrorResponse](t, rec).Kind)
	})
}

func TestRemoveLeaveEndpoint(t *testing.T) {
	s := newTestServer()
	id := uuid.New()
	rec := s.do(t, http.MethodDelete, "/leaves/"+id.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, s.leaves.removed, 1)
	assert.Equal(t, id, s.leaves.removed[0])
}

func TestListLeavesEndpoint(t *testing.T) {
	s := newTestServer()
	practitionerID := uuid.New()
	s.leaves.listed = []leave.Leave{{
		ID:             uuid.New(),
		PractitionerID: practitionerID,
		Date:           mustDate(t, "2025-06-02"),
		FullDay:        true,
		Reason:         "conference",
		CreatedAt:      time.Now(),
	}}

	rec := s.do(t, http.MethodGet, "/leaves?practitioner_id="+practitionerID.String()+"&upcoming=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeInto[[]LeaveResponse](t, rec)
	require.Len(t, out, 1)
	assert.True(t, out[0].FullDay)

	require.NotNil(t, s.leaves.lastList.practitionerID)
	assert.Equal(t, practitionerID, *s.leaves.lastList.practitionerID)
	assert.True(t, s.leaves.lastList.upcomingOnly)
}

func sampleAppointment(t *testing.T, token int) *queue.Appointment {
	t.Helper()
	return &queue.Appointment{
		ID:             uuid.New(),
		ClinicID:       uuid.New(),
		PractitionerID: uuid.New(),
		PatientRef:     "patient-1",
		Date:           mustDate(t, "2025-06-02"),
		SlotStart:      mustClock(t, "09:00"),
		SlotEnd:        mustClock(t, "17:00"),
		TokenNumber:    token,
		Status:         queue.StatusScheduled,
	}
}

func TestRegisterWalkInEndpoint(t *testing.T) {
	body := RegisterWalkInRequest{
		ClinicID:       uuid.NewString(),
		PractitionerID: uuid.NewString(),
		PatientRef:     "patient-1",
		Date:           availability.Date{Year: 2025, Month: 6, Day: 2},
	}

	t.Run("created with a token", func(t *testing.T) {
		s := newTestServer()
		s.queue.appt = sampleAppointment(t, 4)

		rec := s.do(t, http.MethodPost, "/queue/register", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decodeInto[AppointmentResponse](t, rec)
		assert.Equal(t, 4, resp.TokenNumber)
		assert.Equal(t, "scheduled", resp.Status)
	})

	t.Run("missing patient_ref", func(t *testing.T) {
		s := newTestServer()
		incomplete := body
		incomplete.PatientRef = ""
		rec := s.do(t, http.MethodPost, "/queue/register", incomplete)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	for _, tc := range []struct {
		name     string
		err      error
		status   int
		wantKind string
	}{
		{"outside hours", queue.ErrOutsideHours, http.StatusConflict, KindOutsideHours},
		{"queue busy", queue.ErrQueueBusy, http.StatusConflict, KindTransient},
		{"transient failure", queue.ErrTransient, http.StatusServiceUnavailable, KindTransient},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer()
			s.queue.err = tc.err
			rec := s.do(t, http.MethodPost, "/queue/register", body)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.wantKind, decodeInto[ErrorResponse](t, rec).Kind)
		})
	}
}

func TestBookSlotEndpoint(t *testing.T) {
	body := BookSlotRequest{
		ClinicID:       uuid.NewString(),
		PractitionerID: uuid.NewString(),
		PatientRef:     "patient-2",
		Date:           availability.Date{Year: 2025, Month: 6, Day: 2},
		SlotStart:      availability.MinuteOfDay(10 * 60),
	}

	t.Run("created", func(t *testing.T) {
		s := newTestServer()
		s.queue.appt = sampleAppointment(t, 2)
		rec := s.do(t, http.MethodPost, "/queue/book", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("slot full", func(t *testing.T) {
		s := newTestServer()
		s.queue.err = queue.ErrSlotFull
		rec := s.do(t, http.MethodPost, "/queue/book", body)
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, KindConflict, decodeInto[ErrorResponse](t, rec).Kind)
	})

	t.Run("unknown slot", func(t *testing.T) {
		s := newTestServer()
		s.queue.err = queue.ErrUnknownSlot
		rec := s.do(t, http.MethodPost, "/queue/book", body)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListQueueEndpoint(t *testing.T) {
	s := newTestServer()
	clinicID := uuid.New()
	for i, token := range []int{1, 2, 3} {
		s.queue.entries = append(s.queue.entries, queue.QueueEntry{
			Appointment:  *sampleAppointment(t, token),
			WaitingAhead: i,
		})
	}

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/queue/%s/2025-06-02", clinicID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeInto[[]QueueEntryResponse](t, rec)
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[0].TokenNumber)
	assert.Equal(t, 2, out[2].WaitingAhead)
	assert.Equal(t, clinicID, s.queue.lastList.clinicID)
	assert.Equal(t, "2025-06-02", s.queue.lastList.date.String())

	t.Run("bad date rejected", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/queue/"+clinicID.String()+"/02-06-2025", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDayScheduleEndpoint(t *testing.T) {
	s := newTestServer()
	s.queue.slots = []queue.SlotAvailability{
		{
			Slot:      availability.Slot{Start: mustClock(t, "09:00"), End: mustClock(t, "09:15")},
			Capacity:  1,
			Booked:    1,
			Remaining: 0,
		},
	}
	id := uuid.New()

	rec := s.do(t, http.MethodGet, "/practitioners/"+id.String()+"/slots?date=2025-06-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeInto[DayScheduleResponse](t, rec)
	assert.Equal(t, id, resp.PractitionerID)
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, 0, resp.Slots[0].Remaining)

	t.Run("date parameter required", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/practitioners/"+id.String()+"/slots", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTransitionEndpoint(t *testing.T) {
	id := uuid.New()

	t.Run("ok", func(t *testing.T) {
		s := newTestServer()
		appt := sampleAppointment(t, 1)
		appt.Status = queue.StatusCheckedIn
		s.queue.appt = appt

		rec := s.do(t, http.MethodPost, "/appointments/"+id.String()+"/status", TransitionRequest{Status: "checked_in"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "checked_in", decodeInto[AppointmentResponse](t, rec).Status)
	})

	t.Run("unknown status string", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(t, http.MethodPost, "/appointments/"+id.String()+"/status", TransitionRequest{Status: "CHECKED_IN"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid transition", func(t *testing.T) {
		s := newTestServer()
		s.queue.err = queue.ErrInvalidTransition
		rec := s.do(t, http.MethodPost, "/appointments/"+id.String()+"/status", TransitionRequest{Status: "completed"})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, KindInvalidTransition, decodeInto[ErrorResponse](t, rec).Kind)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		s := newTestServer()
		s.queue.err = queue.ErrAppointmentNotFound
		rec := s.do(t, http.MethodPost, "/appointments/"+id.String()+"/status", TransitionRequest{Status: "cancelled"})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
