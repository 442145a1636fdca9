package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studylit/internal/learning"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/planner"
	"github.com/julianstephens/studylit/internal/storage/sqlstore"
	"github.com/julianstephens/studylit/internal/tracker"
)

// Plans a week, tracks its sessions, rates one and replans, all against SQLite.
func TestPlanTrackReplan(t *testing.T) {
	store := sqlstore.New(filepath.Join(t.TempDir(), "studylit.db"))
	require.NoError(t, store.Init())
	defer store.Close()

	require.NoError(t, store.EnsureUser(models.User{ID: "u1"}))
	settings := models.DefaultSettings()
	settings.Timezone = "UTC"
	require.NoError(t, store.SaveSettings("u1", settings))
	require.NoError(t, store.AddSubject(models.Subject{ID: "math", UserID: "u1", Name: "Math", Priority: 1, Difficulty: models.DifficultyMedium, TargetWeeklyMin: 120}))
	require.NoError(t, store.AddAvailability(models.AvailabilityBlock{UserID: "u1", Weekday: time.Monday, Start: "09:00", End: "12:00", Recurring: true}))

	now := time.Date(2026, 1, 4, 18, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	registry := learning.NewRegistry(store)
	reviser := planner.NewReviser(store, registry, planner.WithClock(func() time.Time { return now }))

	state, err := store.GetUserState("u1")
	require.NoError(t, err)
	first, err := reviser.Revise(context.Background(), state, monday)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Revision)
	assert.False(t, first.Partial)
	require.Len(t, first.Sessions, 2)
	assert.Equal(t, 120, first.PlannedMinutes()["math"])

	track := tracker.New(store, registry, tracker.WithClock(func() time.Time { return now }))
	_, err = track.Skip(first.Sessions[0].ID)
	require.NoError(t, err)
	_, err = track.Complete(first.Sessions[1].ID, 35)
	require.NoError(t, err)
	_, err = track.Feedback(first.Sessions[1].ID, 5, 4, "hard going")
	require.NoError(t, err)

	profile, err := store.GetProfile("u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), profile.Version, "two outcomes and one rating")
	difficulty, ok := profile.SubjectDifficulty("math")
	require.True(t, ok)
	assert.Equal(t, 1.0, difficulty)

	state, err = store.GetUserState("u1")
	require.NoError(t, err)
	second, err := reviser.Revise(context.Background(), state, monday)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Revision)
	assert.Equal(t, first.ID, second.BasedOn)
	assert.Equal(t, uint64(3), second.ProfileVersion)

	stored, err := store.GetPlan(first.ID)
	require.NoError(t, err)
	require.Len(t, stored.Sessions, len(first.Sessions))
	for i := range first.Sessions {
		assert.Equal(t, first.Sessions[i].ID, stored.Sessions[i].ID)
		assert.True(t, first.Sessions[i].Start.Equal(stored.Sessions[i].Start))
	}

	states, err := store.GetSessionStates(first.ID)
	require.NoError(t, err)
	assert.Len(t, states, 2)

	// A fresh registry rebuilds the same learned state from storage.
	reloaded, err := learning.NewRegistry(store).ForUser("u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), reloaded.Model.Version())
	stats, ok := reloaded.Adapter.Stats("math")
	require.True(t, ok)
	assert.Equal(t, 2, stats.Observations)
	assert.Equal(t, 1, stats.Skipped)
}
