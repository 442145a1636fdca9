package trigger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
)

// 2026-01-04 is a Sunday.
var sundayEvening = time.Date(2026, 1, 4, 18, 0, 0, 0, time.UTC)

type mockPlanner struct {
	mu      sync.Mutex
	calls   map[string][]string
	ctxErrs []error
	err     error
}

func (m *mockPlanner) runs() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.ctxErrs...)
}

func (m *mockPlanner) ReviseAll(ctx context.Context, states []models.UserState, weekStart time.Time) ([]*models.WeeklyPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string][]string)
	}
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	week := weekStart.Format(constants.DateFormat)
	plans := make([]*models.WeeklyPlan, 0, len(states))
	for _, s := range states {
		m.calls[week] = append(m.calls[week], s.UserID)
		plans = append(plans, &models.WeeklyPlan{UserID: s.UserID, WeekStart: week, Revision: 1})
	}
	return plans, m.err
}

type mockStates struct {
	users  []models.User
	states map[string]models.UserState
}

func (m *mockStates) GetUsers() ([]models.User, error) {
	return m.users, nil
}

func (m *mockStates) GetUserState(userID string) (models.UserState, error) {
	s, ok := m.states[userID]
	if !ok {
		return models.UserState{}, errors.New("no such user")
	}
	return s, nil
}

func userState(id, weekStart string) models.UserState {
	settings := models.DefaultSettings()
	settings.Timezone = "UTC"
	settings.WeekStart = weekStart
	return models.UserState{UserID: id, Settings: settings}
}

func newTestTrigger(t *testing.T, p Planner, s StateSource, next bool) *Trigger {
	t.Helper()
	tr, err := New(p, s, Options{
		Schedule:     constants.DefaultReviseSchedule,
		Location:     time.UTC,
		PlanNextWeek: next,
		Now:          func() time.Time { return sundayEvening },
	})
	require.NoError(t, err)
	return tr
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(&mockPlanner{}, &mockStates{}, Options{Schedule: "every sunday"})
	assert.Error(t, err)
}

func TestRunOnceGroupsByWeekStart(t *testing.T) {
	states := &mockStates{
		users: []models.User{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		states: map[string]models.UserState{
			"a": userState("a", "monday"),
			"b": userState("b", "sunday"),
			"c": userState("c", "monday"),
		},
	}
	planner := &mockPlanner{}

	plans, err := newTestTrigger(t, planner, states, true).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, plans, 3)

	assert.ElementsMatch(t, []string{"a", "c"}, planner.calls["2026-01-05"])
	assert.Equal(t, []string{"b"}, planner.calls["2026-01-11"])
}

func TestRunOnceCurrentWeek(t *testing.T) {
	states := &mockStates{
		users:  []models.User{{ID: "a"}},
		states: map[string]models.UserState{"a": userState("a", "monday")},
	}
	planner := &mockPlanner{}

	_, err := newTestTrigger(t, planner, states, false).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, planner.calls["2025-12-29"])
}

func TestRunOnceContinuesPastBadUser(t *testing.T) {
	states := &mockStates{
		users: []models.User{{ID: "ghost"}, {ID: "a"}, {ID: "odd"}},
		states: map[string]models.UserState{
			"a":   userState("a", "monday"),
			"odd": userState("odd", "someday"),
		},
	}
	planner := &mockPlanner{}

	plans, err := newTestTrigger(t, planner, states, true).RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
	assert.Contains(t, err.Error(), "odd")
	require.Len(t, plans, 1)
	assert.Equal(t, "a", plans[0].UserID)
}

func TestRunOncePlannerError(t *testing.T) {
	states := &mockStates{
		users:  []models.User{{ID: "a"}},
		states: map[string]models.UserState{"a": userState("a", "monday")},
	}
	planner := &mockPlanner{err: errors.New("disk full")}

	plans, err := newTestTrigger(t, planner, states, true).RunOnce(context.Background())
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, plans, 1)
}

func TestStartStop(t *testing.T) {
	tr := newTestTrigger(t, &mockPlanner{}, &mockStates{}, true)
	assert.True(t, tr.Next().IsZero())

	require.NoError(t, tr.Start())
	require.NoError(t, tr.Start())
	next := tr.Next()
	assert.False(t, next.IsZero())
	assert.Equal(t, time.Sunday, next.Weekday())
	assert.Equal(t, 18, next.Hour())

	tr.Stop()
	tr.Stop()
	assert.True(t, tr.Next().IsZero())
}

func TestRestartAfterStopRunsWithLiveContext(t *testing.T) {
	planner := &mockPlanner{}
	states := &mockStates{
		users:  []models.User{{ID: "u1"}},
		states: map[string]models.UserState{"u1": userState("u1", "monday")},
	}
	tr, err := New(planner, states, Options{
		Schedule: "@every 1s",
		Location: time.UTC,
		Now:      func() time.Time { return sundayEvening },
	})
	require.NoError(t, err)

	require.NoError(t, tr.Start())
	tr.Stop()
	require.NoError(t, tr.Start())
	defer tr.Stop()

	require.Eventually(t, func() bool { return len(planner.runs()) > 0 }, 5*time.Second, 50*time.Millisecond)
	for _, err := range planner.runs() {
		assert.NoError(t, err, "tick ran with a cancelled context")
	}
}

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 1 }
func (m *mockProcess) Executable() string { return m.executable }

func withProcesses(t *testing.T, procs map[int]ps.Process) {
	t.Helper()
	orig := findProcessFunc
	findProcessFunc = func(pid int) (ps.Process, error) {
		return procs[pid], nil
	}
	t.Cleanup(func() { findProcessFunc = orig })
}

func TestAcquireLock(t *testing.T) {
	dir := t.TempDir()
	withProcesses(t, map[int]ps.Process{})

	lock, err := AcquireLock(dir)
	require.NoError(t, err)

	content, err := os.ReadFile(lock.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(content))

	require.NoError(t, lock.Release())
	_, err = os.Stat(lock.Path())
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, lock.Release())
}

func TestAcquireLockHeldByLiveDaemon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, constants.DaemonLockfileName)
	require.NoError(t, os.WriteFile(path, []byte("4242\n"), 0600))
	withProcesses(t, map[int]ps.Process{4242: &mockProcess{pid: 4242, executable: "studylit"}})

	_, err := AcquireLock(dir)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "4242\n", string(content))
}

func TestAcquireLockReplacesStale(t *testing.T) {
	tests := []struct {
		name    string
		content string
		procs   map[int]ps.Process
	}{
		{"dead process", "4242", map[int]ps.Process{}},
		{"pid reused by other program", "4242", map[int]ps.Process{4242: &mockProcess{pid: 4242, executable: "bash"}}},
		{"garbage", "not-a-pid", map[int]ps.Process{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, constants.DaemonLockfileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			withProcesses(t, tt.procs)

			lock, err := AcquireLock(dir)
			require.NoError(t, err)
			defer lock.Release()

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(content))
		})
	}
}
