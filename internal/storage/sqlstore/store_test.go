package sqlstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studylit/internal/migration"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/productivity"
	"github.com/julianstephens/studylit/internal/storage"
)

const testUser = "u1"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "nested", "studylit.db"))
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureUser(models.User{ID: testUser, Name: "Ada"}))
	return s
}

func stateVersion(t *testing.T, s *Store) int64 {
	t.Helper()
	state, err := s.GetUserState(testUser)
	require.NoError(t, err)
	return state.Version
}

func TestDetectDialect(t *testing.T) {
	assert.Equal(t, migration.SQLite, DetectDialect("/home/me/.config/studylit/studylit.db"))
	assert.Equal(t, migration.Postgres, DetectDialect("postgres://me@db:5432/study"))
	assert.Equal(t, migration.Postgres, DetectDialect("postgresql://me@db/study"))
	assert.Equal(t, migration.Postgres, DetectDialect("host=db user=me dbname=study"))
}

func TestNewPostgresAddsSearchPath(t *testing.T) {
	s := New("postgres://me@db:5432/study?sslmode=disable")
	assert.Contains(t, s.dsn, "search_path=studylit")
	assert.Equal(t, "postgresql", s.GetConfigPath())

	s = New("host=db user=me")
	assert.Equal(t, "host=db user=me search_path=studylit", s.dsn)

	s = New("postgres://me@db/study?search_path=custom")
	assert.NotContains(t, s.dsn, "search_path=studylit")
}

func TestValidateConnString(t *testing.T) {
	assert.NoError(t, ValidateConnString("postgres://me@db:5432/study"))
	assert.NoError(t, ValidateConnString("host=db user=me dbname=study"))
	assert.ErrorIs(t, ValidateConnString("postgres://me:secret@db:5432/study"), ErrEmbeddedCredentials)
	assert.ErrorIs(t, ValidateConnString("host=db user=me password=secret"), ErrEmbeddedCredentials)
	assert.ErrorIs(t, ValidateConnString(""), ErrInvalidConnectionString)
}

func TestInitAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studylit.db")

	missing := New(path)
	assert.Error(t, missing.Load(), "load before init must fail")

	s := New(path)
	require.NoError(t, s.Init())
	current, latest, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, current)
	assert.GreaterOrEqual(t, current, 1)
	require.NoError(t, s.Close())

	reopened := New(path)
	require.NoError(t, reopened.Load())
	defer reopened.Close()
	assert.Equal(t, path, reopened.GetConfigPath())
}

func TestUsersAndSettings(t *testing.T) {
	s := newTestStore(t)

	// idempotent
	require.NoError(t, s.EnsureUser(models.User{ID: testUser, Name: "Ada"}))
	require.NoError(t, s.EnsureUser(models.User{ID: "u2"}))

	users, err := s.GetUsers()
	require.NoError(t, err)
	assert.Equal(t, []models.User{{ID: testUser, Name: "Ada"}, {ID: "u2"}}, users)

	settings, err := s.GetSettings(testUser)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), settings)

	before := stateVersion(t, s)
	settings.BreakMin = 10
	settings.Timezone = "UTC"
	require.NoError(t, s.SaveSettings(testUser, settings))

	got, err := s.GetSettings(testUser)
	require.NoError(t, err)
	assert.Equal(t, settings, got)
	assert.Equal(t, before+1, stateVersion(t, s))

	settings.MinSessionMin = 0
	assert.Error(t, s.SaveSettings(testUser, settings))

	_, err = s.GetUserState("nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubjectLifecycle(t *testing.T) {
	s := newTestStore(t)

	math := models.Subject{UserID: testUser, Name: "Math", Priority: 2, Difficulty: models.DifficultyHard, TargetWeeklyMin: 240}
	require.NoError(t, s.AddSubject(math))

	subjects, err := s.GetSubjects(testUser, false)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	id := subjects[0].ID
	assert.NotEmpty(t, id)
	assert.Equal(t, models.DifficultyHard, subjects[0].Difficulty)

	updated := subjects[0]
	updated.TargetWeeklyMin = 300
	require.NoError(t, s.UpdateSubject(updated))
	got, err := s.GetSubject(id)
	require.NoError(t, err)
	assert.Equal(t, 300, got.TargetWeeklyMin)

	v := stateVersion(t, s)
	require.NoError(t, s.DeleteSubject(id))
	assert.Equal(t, v+1, stateVersion(t, s))
	assert.ErrorIs(t, s.DeleteSubject(id), storage.ErrNotFound)

	active, err := s.GetSubjects(testUser, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := s.GetSubjects(testUser, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotNil(t, all[0].DeletedAt)

	assert.ErrorIs(t, s.UpdateSubject(updated), storage.ErrNotFound)

	require.NoError(t, s.RestoreSubject(id))
	assert.ErrorIs(t, s.RestoreSubject(id), storage.ErrNotFound)

	_, err = s.GetSubject("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAvailabilityAndCommitments(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddAvailability(models.AvailabilityBlock{UserID: testUser, Weekday: time.Wednesday, Start: "17:00", End: "20:00", Recurring: true}))
	require.NoError(t, s.AddAvailability(models.AvailabilityBlock{UserID: testUser, Weekday: time.Monday, Start: "08:00", End: "12:00", Recurring: false, Date: "2026-01-05"}))
	require.NoError(t, s.AddCommitment(models.Commitment{UserID: testUser, Kind: models.CommitmentSleep, Label: "sleep", Start: "23:00", End: "07:00"}))
	require.NoError(t, s.AddCommitment(models.Commitment{UserID: testUser, Kind: models.CommitmentBusy, Label: "seminar", Weekdays: []time.Weekday{time.Monday, time.Thursday}, Start: "10:00", End: "10:30"}))

	state, err := s.GetUserState(testUser)
	require.NoError(t, err)
	require.Len(t, state.Availability, 2)
	assert.Equal(t, time.Monday, state.Availability[0].Weekday)
	assert.False(t, state.Availability[0].Recurring)
	assert.Equal(t, "2026-01-05", state.Availability[0].Date)
	assert.True(t, state.Availability[1].Recurring)

	require.Len(t, state.Commitments, 2)
	assert.Equal(t, []time.Weekday{time.Monday, time.Thursday}, state.Commitments[0].Weekdays)
	assert.Empty(t, state.Commitments[1].Weekdays)

	v := state.Version
	require.NoError(t, s.DeleteAvailability(state.Availability[0].ID))
	require.NoError(t, s.DeleteCommitment(state.Commitments[0].ID))
	assert.Equal(t, v+2, stateVersion(t, s))
	assert.ErrorIs(t, s.DeleteAvailability("missing"), storage.ErrNotFound)
}

func samplePlan(id string, revision int) models.WeeklyPlan {
	loc := time.FixedZone("CET", 3600)
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, loc)
	return models.WeeklyPlan{
		ID:             id,
		UserID:         testUser,
		WeekStart:      "2026-01-05",
		Revision:       revision,
		GeneratedAt:    time.Date(2026, 1, 4, 18, 0, 0, 0, time.UTC),
		ProfileVersion: 7,
		StateVersion:   3,
		Sessions: []models.StudySession{
			{ID: id + "-b", SubjectID: "art", Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour), PlannedMin: 60, Status: models.SessionPlanned},
			{ID: id + "-a", SubjectID: "math", Start: start, End: start.Add(90 * time.Minute), PlannedMin: 90, Status: models.SessionPlanned},
		},
		Blocks:     []models.PlanBlock{{Kind: models.BlockSleep, Label: "sleep", Start: start.Add(-9 * time.Hour), End: start.Add(-2 * time.Hour)}},
		Partial:    true,
		Shortfalls: []models.Shortfall{{SubjectID: "math", TargetMin: 240, PlannedMin: 90, ShortMin: 150}},
		Warnings:   []string{"math is 150 minutes short"},
	}
}

func TestPlansAreInsertOnly(t *testing.T) {
	s := newTestStore(t)

	plan := samplePlan("p1", 1)
	require.NoError(t, s.SavePlan(plan))
	assert.ErrorIs(t, s.SavePlan(plan), storage.ErrPlanExists)

	clash := samplePlan("p-other", 1)
	assert.ErrorIs(t, s.SavePlan(clash), storage.ErrPlanExists, "same user/week/revision must not be stored twice")

	got, err := s.GetPlan("p1")
	require.NoError(t, err)
	require.Len(t, got.Sessions, 2)
	assert.Equal(t, "p1-a", got.Sessions[0].ID, "sessions come back in start order")
	assert.True(t, got.Sessions[0].Start.Equal(plan.Sessions[1].Start))
	assert.Equal(t, 9, got.Sessions[0].Start.Hour(), "local offset is preserved")
	assert.Equal(t, uint64(7), got.ProfileVersion)
	assert.Equal(t, int64(3), got.StateVersion)
	assert.True(t, got.Partial)
	assert.Equal(t, plan.Shortfalls, got.Shortfalls)
	assert.Equal(t, plan.Warnings, got.Warnings)
	require.Len(t, got.Blocks, 1)
	assert.True(t, got.Blocks[0].Start.Equal(plan.Blocks[0].Start))

	second := samplePlan("p2", 2)
	second.BasedOn = "p1"
	second.Partial = false
	second.Shortfalls, second.Warnings = nil, nil
	require.NoError(t, s.SavePlan(second))

	latest, err := s.GetLatestPlan(testUser, "2026-01-05")
	require.NoError(t, err)
	assert.Equal(t, "p2", latest.ID)
	assert.Equal(t, "p1", latest.BasedOn)
	assert.Nil(t, latest.Shortfalls)

	byID, err := s.GetPlan("p1")
	require.NoError(t, err)
	assert.Equal(t, 1, byID.Revision, "earlier revisions stay retrievable")

	forSession, err := s.GetPlanForSession("p2-a")
	require.NoError(t, err)
	assert.Equal(t, "p2", forSession.ID)

	_, err = s.GetLatestPlan(testUser, "2027-01-04")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetPlanForSession("nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	summaries, err := s.ListPlans(testUser, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "p2", summaries[0].ID)
	assert.Equal(t, 2, summaries[0].Sessions)
	assert.Equal(t, 150, summaries[0].PlannedMin)

	limited, err := s.ListPlans(testUser, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSessionStatesAndOutcomes(t *testing.T) {
	s := newTestStore(t)
	plan := samplePlan("p1", 1)
	require.NoError(t, s.SavePlan(plan))

	_, err := s.GetSessionState("p1-a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	started := time.Date(2026, 1, 5, 9, 2, 0, 0, time.UTC)
	state := models.SessionState{SessionID: "p1-a", PlanID: "p1", UserID: testUser, Status: models.SessionInProgress, StartedAt: &started}
	require.NoError(t, s.SaveSessionState(state))

	finished := started.Add(80 * time.Minute)
	state.Status = models.SessionCompleted
	state.FinishedAt = &finished
	state.ActualMin = 80
	require.NoError(t, s.SaveSessionState(state))

	got, err := s.GetSessionState("p1-a")
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)
	assert.Equal(t, 80, got.ActualMin)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(started))

	states, err := s.GetSessionStates("p1")
	require.NoError(t, err)
	assert.Len(t, states, 1)

	outcomes := []models.SessionOutcome{
		{SessionID: "p1-a", UserID: testUser, SubjectID: "math", Start: plan.Sessions[1].Start, PlannedMin: 90, ActualMin: 80, Status: models.SessionCompleted, RecordedAt: finished},
		{SessionID: "p1-b", UserID: testUser, SubjectID: "art", Start: plan.Sessions[0].Start, PlannedMin: 60, Status: models.SessionSkipped, RecordedAt: finished.Add(time.Hour)},
	}
	for _, o := range outcomes {
		require.NoError(t, s.AddOutcome(o))
	}
	history, err := s.GetOutcomes(testUser)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.SessionSkipped, history[1].Status)
	assert.Equal(t, 9, history[0].Start.Hour())
}

func TestFeedbackOncePerSession(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	record := models.FeedbackRecord{ID: "f1", UserID: testUser, SessionID: "p1-a", SubjectID: "math", Rating: 4, Focus: 3, Comment: "ok", At: at, CreatedAt: at.Add(2 * time.Hour)}

	require.NoError(t, s.AddFeedback(record))
	record.ID = "f2"
	assert.ErrorIs(t, s.AddFeedback(record), storage.ErrFeedbackExists)

	got, err := s.GetFeedback("p1-a")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)
	assert.Equal(t, 4, got.Rating)
	assert.True(t, got.At.Equal(at))

	_, err = s.GetFeedback("other")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	history, err := s.GetFeedbackHistory(testUser, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestProfileVersionsOnlyMoveForward(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProfile(testUser)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	p := productivity.SeededProfile()
	p.Version = 5
	p.Scores[time.Monday][9] = 0.3
	p.Subjects["math"] = productivity.SubjectEstimate{Difficulty: 0.75, Samples: 1, Hours: map[int]float64{9: 0.4}}
	require.NoError(t, s.SaveProfile(testUser, p))

	stale := productivity.SeededProfile()
	stale.Version = 4
	assert.ErrorIs(t, s.SaveProfile(testUser, stale), storage.ErrProfileConflict)
	stale.Version = 5
	assert.ErrorIs(t, s.SaveProfile(testUser, stale), storage.ErrProfileConflict)

	got, err := s.GetProfile(testUser)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Version)
	assert.Equal(t, 0.3, got.Scores[time.Monday][9])
	assert.Equal(t, 0.4, got.Subjects["math"].Hours[9])
}
