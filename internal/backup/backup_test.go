package backup

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "studylit.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE subjects (id TEXT PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO subjects VALUES ('math', 'Math'), ('art', 'Art')`); err != nil {
		t.Fatalf("failed to insert test data: %v", err)
	}
	return dbPath
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM subjects").Scan(&n); err != nil {
		t.Fatalf("failed to query %s: %v", path, err)
	}
	return n
}

// steppingClock advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

var epoch = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	m := NewManager(dbPath, WithClock(func() time.Time { return epoch }))

	snap, err := m.Create(LabelManual)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if snap.Name() != "studylit-20260105-080000_manual.db" {
		t.Errorf("unexpected name %s", snap.Name())
	}
	if filepath.Dir(snap.Path) != filepath.Join(filepath.Dir(dbPath), DirName) {
		t.Errorf("backup written outside %s: %s", DirName, snap.Path)
	}
	if snap.Size == 0 {
		t.Error("expected a non-empty snapshot")
	}
	if got := countRows(t, snap.Path); got != 2 {
		t.Errorf("expected 2 rows in backup, got %d", got)
	}
}

func TestCreate_SameSecond(t *testing.T) {
	dbPath := setupTestDB(t)
	m := NewManager(dbPath, WithClock(func() time.Time { return epoch }))

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		snap, err := m.Create(LabelManual)
		if err != nil {
			t.Fatal(err)
		}
		if seen[snap.Path] {
			t.Fatalf("duplicate backup path %s", snap.Path)
		}
		seen[snap.Path] = true
	}

	snaps, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	if snaps[0].Name() != "studylit-20260105-080000_manual.2.db" {
		t.Errorf("expected the latest duplicate first, got %s", snaps[0].Name())
	}
}

func TestCreate_Errors(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := m.Create(LabelManual); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("expected ErrNoDatabase, got %v", err)
	}

	m = NewManager(setupTestDB(t))
	for _, label := range []string{"", "Manual", "pre_migrate", "-x"} {
		if _, err := m.Create(label); err == nil {
			t.Errorf("expected error for label %q", label)
		}
	}
}

func TestList(t *testing.T) {
	dbPath := setupTestDB(t)
	m := NewManager(dbPath, WithClock(steppingClock(epoch)))

	if snaps, err := m.List(); err != nil || len(snaps) != 0 {
		t.Fatalf("expected no snapshots before the first backup, got %v, %v", snaps, err)
	}

	if _, err := m.Create(LabelManual); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(LabelPreMigrate); err != nil {
		t.Fatal(err)
	}
	// Foreign files are ignored.
	if err := os.WriteFile(filepath.Join(m.Dir(), "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(m.Dir(), "studylit-garbage_manual.db"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	snaps, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Label != LabelPreMigrate || snaps[1].Label != LabelManual {
		t.Errorf("expected newest first, got %s then %s", snaps[0].Label, snaps[1].Label)
	}
	if !snaps[0].Taken.Equal(epoch.Add(2 * time.Second)) {
		t.Errorf("unexpected timestamp %v", snaps[0].Taken)
	}

	found, err := m.Find(snaps[1].Name())
	if err != nil || found.Path != snaps[1].Path {
		t.Errorf("Find by name = %v, %v", found, err)
	}
	if _, err := m.Find("studylit-20000101-000000_manual.db"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRetention(t *testing.T) {
	dbPath := setupTestDB(t)
	m := NewManager(dbPath, WithClock(steppingClock(epoch)), WithRetention(3))

	var last Snapshot
	for i := 0; i < 5; i++ {
		snap, err := m.Create(LabelManual)
		if err != nil {
			t.Fatal(err)
		}
		last = snap
	}

	snaps, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots after pruning, got %d", len(snaps))
	}
	if snaps[0].Path != last.Path {
		t.Errorf("newest snapshot was pruned")
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	m := NewManager(dbPath, WithClock(steppingClock(epoch)))

	snap, err := m.Create(LabelManual)
	if err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`DELETE FROM subjects`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	previous, err := m.Restore(snap)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := countRows(t, dbPath); got != 2 {
		t.Errorf("expected restored database to have 2 rows, got %d", got)
	}

	if previous == nil || previous.Label != LabelPreRestore {
		t.Fatalf("expected a pre-restore snapshot, got %+v", previous)
	}
	if got := countRows(t, previous.Path); got != 0 {
		t.Errorf("pre-restore snapshot should hold the emptied table, got %d rows", got)
	}
	if _, err := os.Stat(dbPath + ".restore.tmp"); !os.IsNotExist(err) {
		t.Error("temporary restore file left behind")
	}
}

func TestRestore_Invalid(t *testing.T) {
	dbPath := setupTestDB(t)
	m := NewManager(dbPath)

	bogus := filepath.Join(t.TempDir(), "bogus.db")
	if err := os.WriteFile(bogus, []byte("this is not a database file at all, just text padding it out"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Restore(Snapshot{Path: bogus}); err == nil {
		t.Error("expected error restoring a corrupted backup")
	}
	if _, err := m.Restore(Snapshot{Path: filepath.Join(t.TempDir(), "gone.db")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got := countRows(t, dbPath); got != 2 {
		t.Errorf("database changed after failed restore: %d rows", got)
	}
}

func TestRestore_NoCurrentDatabase(t *testing.T) {
	dbPath := setupTestDB(t)
	m := NewManager(dbPath, WithClock(steppingClock(epoch)))
	snap, err := m.Create(LabelManual)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(dbPath); err != nil {
		t.Fatal(err)
	}

	previous, err := m.Restore(snap)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if previous != nil {
		t.Errorf("expected no pre-restore snapshot, got %+v", previous)
	}
	if got := countRows(t, dbPath); got != 2 {
		t.Errorf("expected 2 rows, got %d", got)
	}
}
