package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/optimizer"
	"github.com/julianstephens/studylit/internal/productivity"
	"github.com/julianstephens/studylit/internal/storage"
)

// 2026-01-05 is a Monday.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

var fixedNow = time.Date(2026, 1, 4, 18, 0, 0, 0, time.UTC)

type mockPlanStore struct {
	mu      sync.Mutex
	plans   []models.WeeklyPlan
	saveErr error
}

func (m *mockPlanStore) GetLatestPlan(userID, week string) (models.WeeklyPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.WeeklyPlan
	for i := range m.plans {
		p := &m.plans[i]
		if p.UserID == userID && p.WeekStart == week && (latest == nil || p.Revision > latest.Revision) {
			latest = p
		}
	}
	if latest == nil {
		return models.WeeklyPlan{}, storage.ErrNotFound
	}
	return latest.Clone(), nil
}

func (m *mockPlanStore) SavePlan(plan models.WeeklyPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.plans = append(m.plans, plan.Clone())
	return nil
}

type mockLearning struct {
	profile *productivity.Profile
	deltas  map[string]optimizer.Delta
}

func (m *mockLearning) Profile(string, models.Settings) (*productivity.Profile, error) {
	return m.profile, nil
}

func (m *mockLearning) Deltas(string, models.Settings) (map[string]optimizer.Delta, error) {
	return m.deltas, nil
}

func newTestReviser(store PlanStore, opts ...Option) *Reviser {
	profile := productivity.SeededProfile()
	profile.Version = 7
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewReviser(store, &mockLearning{profile: profile}, opts...)
}

func testState(userID string) models.UserState {
	settings := models.DefaultSettings()
	settings.Timezone = "UTC"
	return models.UserState{
		UserID:  userID,
		Version: 3,
		Subjects: []models.Subject{
			{ID: "math", Name: "Math", Priority: 2, Difficulty: models.DifficultyHard, TargetWeeklyMin: 240},
			{ID: "art", Name: "Art", Priority: 1, Difficulty: models.DifficultyEasy, TargetWeeklyMin: 90},
		},
		Availability: []models.AvailabilityBlock{
			{ID: "mon", Weekday: time.Monday, Start: "08:00", End: "12:00", Recurring: true},
			{ID: "wed", Weekday: time.Wednesday, Start: "17:00", End: "20:00", Recurring: true},
		},
		Commitments: []models.Commitment{
			{ID: "sleep", Kind: models.CommitmentSleep, Label: "Sleep", Start: "23:00", End: "07:00"},
			{ID: "class", Kind: models.CommitmentBusy, Label: "Seminar", Weekdays: []time.Weekday{time.Monday}, Start: "10:00", End: "10:30"},
		},
		Settings: settings,
	}
}

func TestRevise_FullPlan(t *testing.T) {
	store := &mockPlanStore{}
	plan, err := newTestReviser(store).Revise(context.Background(), testState("u1"), monday)
	if err != nil {
		t.Fatalf("Revise() error = %v", err)
	}

	if plan.Revision != 1 || plan.BasedOn != "" {
		t.Errorf("revision = %d based on %q, want 1 and none", plan.Revision, plan.BasedOn)
	}
	if plan.WeekStart != "2026-01-05" {
		t.Errorf("WeekStart = %s", plan.WeekStart)
	}
	if plan.ProfileVersion != 7 || plan.StateVersion != 3 {
		t.Errorf("provenance = profile %d state %d", plan.ProfileVersion, plan.StateVersion)
	}
	if !plan.GeneratedAt.Equal(fixedNow) {
		t.Errorf("GeneratedAt = %s", plan.GeneratedAt)
	}
	if plan.Partial || len(plan.Shortfalls) != 0 {
		t.Errorf("unexpected partial plan: %+v", plan.Shortfalls)
	}

	planned := plan.PlannedMinutes()
	if planned["math"] != 240 || planned["art"] != 90 {
		t.Errorf("planned = %v", planned)
	}
	for i, a := range plan.Sessions {
		if a.ID == "" {
			t.Errorf("session %d has no ID", i)
		}
		for j, b := range plan.Sessions {
			if i != j && a.Overlaps(b) {
				t.Errorf("sessions %d and %d overlap", i, j)
			}
		}
		for _, blk := range plan.Blocks {
			if a.Start.Before(blk.End) && blk.Start.Before(a.End) {
				t.Errorf("session %d overlaps %s block", i, blk.Kind)
			}
		}
	}
	if len(store.plans) != 1 {
		t.Errorf("expected the plan to be saved, store has %d", len(store.plans))
	}
}

func TestRevise_ZeroAvailabilityIsPartialNotError(t *testing.T) {
	state := testState("u1")
	state.Availability = nil
	state.Subjects = []models.Subject{{ID: "math", Name: "Math", Priority: 1, TargetWeeklyMin: 60}}
	state.Settings.TolerancePct = 0

	plan, err := newTestReviser(&mockPlanStore{}).Revise(context.Background(), state, monday)
	if err != nil {
		t.Fatalf("Revise() error = %v", err)
	}
	if !plan.Partial || !plan.InsufficientAvailability {
		t.Errorf("expected partial plan with insufficient availability, got %+v", plan)
	}
	if len(plan.Sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(plan.Sessions))
	}
	if len(plan.Shortfalls) != 1 || plan.Shortfalls[0].ShortMin != 60 || plan.Shortfalls[0].WithinTolerance {
		t.Errorf("unexpected shortfalls %+v", plan.Shortfalls)
	}
	if len(plan.Warnings) == 0 {
		t.Error("expected warnings for the shortfall")
	}
}

func TestRevise_MalformedInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *models.UserState)
	}{
		{"duplicate subject", func(s *models.UserState) { s.Subjects[1].ID = "math" }},
		{"bad time", func(s *models.UserState) { s.Availability[0].Start = "8 o'clock" }},
		{"non-positive priority", func(s *models.UserState) { s.Subjects[0].Priority = -1 }},
		{"invalid settings", func(s *models.UserState) { s.Settings.MinSessionMin = 0 }},
		{"missing user", func(s *models.UserState) { s.UserID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockPlanStore{}
			state := testState("u1")
			tt.mutate(&state)

			plan, err := newTestReviser(store).Revise(context.Background(), state, monday)
			if !errors.Is(err, apperrors.ErrPlanning) {
				t.Fatalf("expected planning error, got %v", err)
			}
			if plan != nil {
				t.Error("no plan should be produced for malformed input")
			}
			if len(store.plans) != 0 {
				t.Error("nothing should be saved for malformed input")
			}
		})
	}
}

func TestRevise_NewRevisionNeverMutatesPrevious(t *testing.T) {
	store := &mockPlanStore{}
	r := newTestReviser(store)

	first, err := r.Revise(context.Background(), testState("u1"), monday)
	if err != nil {
		t.Fatalf("first Revise() error = %v", err)
	}
	snapshot, _ := json.Marshal(first)

	state := testState("u1")
	state.Subjects[1].TargetWeeklyMin = 30
	second, err := r.Revise(context.Background(), state, monday)
	if err != nil {
		t.Fatalf("second Revise() error = %v", err)
	}

	if second.Revision != 2 || second.BasedOn != first.ID {
		t.Errorf("second revision = %d based on %q, want 2 based on %q", second.Revision, second.BasedOn, first.ID)
	}
	if second.ID == first.ID {
		t.Error("revisions share an ID")
	}
	after, _ := json.Marshal(first)
	if string(snapshot) != string(after) {
		t.Error("first plan changed after a later revision")
	}
	stored, _ := json.Marshal(store.plans[0])
	if string(stored) != string(snapshot) {
		t.Error("stored first plan changed after a later revision")
	}

	// Mutating a returned plan does not reach the store.
	second.Sessions[0].PlannedMin = 1
	if store.plans[1].Sessions[0].PlannedMin == 1 {
		t.Error("returned plan shares memory with the stored plan")
	}
}

func TestRevise_Deterministic(t *testing.T) {
	var outputs []string
	for i := 0; i < 5; i++ {
		plan, err := newTestReviser(&mockPlanStore{}).Revise(context.Background(), testState("u1"), monday.Add(13*time.Hour))
		if err != nil {
			t.Fatalf("Revise() error = %v", err)
		}
		b, err := json.Marshal(plan)
		if err != nil {
			t.Fatal(err)
		}
		outputs = append(outputs, string(b))
	}
	for i := 1; i < len(outputs); i++ {
		if outputs[i] != outputs[0] {
			t.Fatalf("run %d produced a different plan", i)
		}
	}
}

func TestRevise_PersistenceFailureStillReturnsPlan(t *testing.T) {
	cause := errors.New("disk full")
	plan, err := newTestReviser(&mockPlanStore{saveErr: cause}).Revise(context.Background(), testState("u1"), monday)

	if !errors.Is(err, apperrors.ErrPersistence) || !errors.Is(err, cause) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if plan == nil || len(plan.Sessions) == 0 {
		t.Fatal("plan should still be returned when saving fails")
	}
}

func TestRevise_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestReviser(&mockPlanStore{}).Revise(ctx, testState("u1"), monday); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type countingStore struct {
	mockPlanStore
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (c *countingStore) GetLatestPlan(userID, week string) (models.WeeklyPlan, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		m := c.maxSeen.Load()
		if n <= m || c.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return c.mockPlanStore.GetLatestPlan(userID, week)
}

func TestRevise_SerializedPerUser(t *testing.T) {
	store := &countingStore{}
	r := newTestReviser(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Revise(context.Background(), testState("same-user"), monday); err != nil {
				t.Errorf("Revise() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if store.maxSeen.Load() != 1 {
		t.Errorf("saw %d concurrent runs for one user", store.maxSeen.Load())
	}
	// Every run saw the previous one, so revisions are 1..8 with no gaps or repeats.
	seen := map[int]bool{}
	for _, p := range store.plans {
		seen[p.Revision] = true
	}
	for rev := 1; rev <= 8; rev++ {
		if !seen[rev] {
			t.Errorf("missing revision %d", rev)
		}
	}
}

func TestReviseAll(t *testing.T) {
	store := &mockPlanStore{}
	r := newTestReviser(store)

	var states []models.UserState
	for i := 0; i < 6; i++ {
		states = append(states, testState(fmt.Sprintf("user-%d", i)))
	}
	plans, err := r.ReviseAll(context.Background(), states, monday)
	if err != nil {
		t.Fatalf("ReviseAll() error = %v", err)
	}
	for i, p := range plans {
		if p == nil || p.UserID != states[i].UserID {
			t.Errorf("plan %d does not belong to %s", i, states[i].UserID)
		}
	}
	if len(store.plans) != 6 {
		t.Errorf("saved %d plans, want 6", len(store.plans))
	}
}

func TestReviseAll_FailingUserDoesNotStopOthers(t *testing.T) {
	bad := testState("bad")
	bad.Subjects[0].Priority = 0
	states := []models.UserState{bad}
	for i := 1; i <= 5; i++ {
		states = append(states, testState(fmt.Sprintf("user-%d", i)))
	}

	r := newTestReviser(&mockPlanStore{}, WithConcurrency(4))
	plans, err := r.ReviseAll(context.Background(), states, monday)
	if !errors.Is(err, apperrors.ErrPlanning) {
		t.Errorf("expected planning error, got %v", err)
	}
	if plans[0] != nil {
		t.Error("invalid user should have no plan")
	}
	for i := 1; i < len(states); i++ {
		if plans[i] == nil || plans[i].UserID != states[i].UserID {
			t.Errorf("%s got no plan", states[i].UserID)
		}
	}
}

func TestSummarize(t *testing.T) {
	plan, err := newTestReviser(&mockPlanStore{}).Revise(context.Background(), testState("u1"), monday)
	if err != nil {
		t.Fatalf("Revise() error = %v", err)
	}
	states := []models.SessionState{
		{SessionID: plan.Sessions[0].ID, Status: models.SessionCompleted, ActualMin: 50},
		{SessionID: plan.Sessions[1].ID, Status: models.SessionSkipped},
	}

	ov := Summarize(*plan, states)
	if ov.TotalMin != 330 || ov.Sessions != len(plan.Sessions) {
		t.Errorf("totals = %d min, %d sessions", ov.TotalMin, ov.Sessions)
	}
	if ov.Completed != 1 || ov.Skipped != 1 || ov.CompletedMin != 50 {
		t.Errorf("progress = %+v", ov)
	}
	if len(ov.Subjects) != 2 || ov.Subjects[0].SubjectID != "math" {
		t.Fatalf("subjects = %+v", ov.Subjects)
	}
	var pct float64
	for _, s := range ov.Subjects {
		pct += s.Percent
	}
	if pct < 99.99 || pct > 100.01 {
		t.Errorf("percentages sum to %g", pct)
	}
}
