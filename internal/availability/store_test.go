package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	weeks    map[uuid.UUID]Week
	replaces int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{weeks: make(map[uuid.UUID]Week)}
}

func (f *fakeRepo) ReplaceWeek(_ context.Context, practitionerID uuid.UUID, week Week) error {
	f.replaces++
	f.weeks[practitionerID] = week
	return nil
}

func (f *fakeRepo) GetWeek(_ context.Context, practitionerID uuid.UUID) (Week, error) {
	return f.weeks[practitionerID], nil
}

func enabledDay(t *testing.T, start, end string, slotMinutes, capacity int) WeeklyTemplate {
	t.Helper()
	return WeeklyTemplate{
		Enabled:             true,
		StartTime:           mustClock(t, start),
		EndTime:             mustClock(t, end),
		SlotDurationMinutes: slotMinutes,
		MaxPatientsPerSlot:  capacity,
	}
}

func TestSetWeekGetWeekRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, zerolog.Nop())
	practitionerID := uuid.New()

	var week Week
	week[time.Monday] = enabledDay(t, "09:00", "17:00", 15, 1)
	week[time.Wednesday] = enabledDay(t, "10:00", "14:00", 30, 2)

	require.NoError(t, store.SetWeek(context.Background(), practitionerID, week))

	got, err := store.GetWeek(context.Background(), practitionerID)
	require.NoError(t, err)

	assert.True(t, got[time.Monday].Enabled)
	assert.Equal(t, mustClock(t, "09:00"), got[time.Monday].StartTime)
	assert.Equal(t, 15, got[time.Monday].SlotDurationMinutes)
	assert.True(t, got[time.Wednesday].Enabled)

	// Unconfigured days come back as disabled defaults.
	for _, wd := range []time.Weekday{time.Sunday, time.Tuesday, time.Thursday, time.Friday, time.Saturday} {
		assert.False(t, got[wd].Enabled, "day %s", wd)
		assert.Equal(t, wd, got[wd].Weekday)
	}
}

func TestSetWeekRejectsWholesale(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, zerolog.Nop())

	var week Week
	week[time.Monday] = enabledDay(t, "09:00", "17:00", 15, 1)
	week[time.Tuesday] = enabledDay(t, "17:00", "09:00", 15, 1) // inverted
	week[time.Friday] = enabledDay(t, "09:00", "17:00", 25, 1)  // bad duration

	err := store.SetWeek(context.Background(), uuid.New(), week)
	require.Error(t, err)

	var weekErr *WeekValidationError
	require.ErrorAs(t, err, &weekErr)
	assert.Len(t, weekErr.Days, 2)
	assert.Contains(t, weekErr.Days, time.Tuesday)
	assert.Contains(t, weekErr.Days, time.Friday)
	assert.NotContains(t, weekErr.Days, time.Monday)

	// Validation failure must not write anything.
	assert.Zero(t, repo.replaces)
}

func TestSlotsForDisabledDayIsEmpty(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, zerolog.Nop())
	practitionerID := uuid.New()

	var week Week
	week[time.Monday] = enabledDay(t, "09:00", "17:00", 15, 1)
	require.NoError(t, store.SetWeek(context.Background(), practitionerID, week))

	monday, err := ParseDate("2025-06-02")
	require.NoError(t, err)
	tuesday, err := ParseDate("2025-06-03")
	require.NoError(t, err)

	slots, err := store.SlotsFor(context.Background(), practitionerID, monday)
	require.NoError(t, err)
	assert.Len(t, slots, 32)

	slots, err = store.SlotsFor(context.Background(), practitionerID, tuesday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsForTemplateEditAffectsFutureQueries(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(repo, zerolog.Nop())
	practitionerID := uuid.New()
	monday, _ := ParseDate("2025-06-02")

	var week Week
	week[time.Monday] = enabledDay(t, "09:00", "17:00", 15, 1)
	require.NoError(t, store.SetWeek(context.Background(), practitionerID, week))

	slots, err := store.SlotsFor(context.Background(), practitionerID, monday)
	require.NoError(t, err)
	require.Len(t, slots, 32)

	week[time.Monday] = enabledDay(t, "09:00", "12:00", 30, 1)
	require.NoError(t, store.SetWeek(context.Background(), practitionerID, week))

	slots, err = store.SlotsFor(context.Background(), practitionerID, monday)
	require.NoError(t, err)
	assert.Len(t, slots, 6)
}
