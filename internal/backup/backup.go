// Package backup keeps point-in-time copies of a SQLite database next to it.
package backup

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/logger"
)

const (
	// DefaultRetention is the number of snapshots kept after pruning.
	DefaultRetention = 14
	// DirName is the directory, next to the database, that holds snapshots.
	DirName = "backups"

	stampFormat = "20060102-150405"
)

// Labels mark why a snapshot was taken.
const (
	LabelManual     = "manual"
	LabelPreMigrate = "pre-migrate"
	LabelPreRestore = "pre-restore"
)

var (
	ErrNoDatabase = errors.New("database does not exist")
	ErrNotFound   = errors.New("backup not found")

	labelPattern = regexp.MustCompile(`^[a-z][a-z-]*$`)
	namePattern  = regexp.MustCompile(`^` + constants.AppName + `-(\d{8}-\d{6})_([a-z][a-z-]*)(?:\.(\d+))?\.db$`)
)

// Snapshot is one backup file.
type Snapshot struct {
	Path  string
	Label string
	Taken time.Time
	Size  int64
}

func (s Snapshot) Name() string {
	return filepath.Base(s.Path)
}

type Manager struct {
	dbPath    string
	dir       string
	retention int
	now       func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRetention sets how many snapshots survive pruning. Values below one keep everything.
func WithRetention(n int) Option {
	return func(m *Manager) { m.retention = n }
}

func NewManager(dbPath string, opts ...Option) *Manager {
	m := &Manager{
		dbPath:    dbPath,
		dir:       filepath.Join(filepath.Dir(dbPath), DirName),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Dir() string {
	return m.dir
}

// Create snapshots the database and prunes old snapshots.
func (m *Manager) Create(label string) (Snapshot, error) {
	snap, err := m.create(label)
	if err != nil {
		return Snapshot{}, err
	}
	if err := m.prune(); err != nil {
		logger.Warn("Failed to prune old backups", "dir", m.dir, "error", err)
	}
	return snap, nil
}

func (m *Manager) create(label string) (Snapshot, error) {
	if !labelPattern.MatchString(label) {
		return Snapshot{}, fmt.Errorf("invalid backup label %q", label)
	}
	if _, err := os.Stat(m.dbPath); errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoDatabase, m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	taken := m.now().UTC().Truncate(time.Second)
	base := fmt.Sprintf("%s-%s_%s", constants.AppName, taken.Format(stampFormat), label)
	path := filepath.Join(m.dir, base+".db")
	for n := 1; fileExists(path); n++ {
		if n > 100 {
			return Snapshot{}, fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s.%d.db", base, n))
	}

	if err := m.vacuumInto(path); err != nil {
		return Snapshot{}, fmt.Errorf("failed to backup database: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, err
	}
	logger.Info("Database backed up", "path", path, "label", label)
	return Snapshot{Path: path, Label: label, Taken: taken, Size: info.Size()}, nil
}

// vacuumInto writes a consistent copy of the database, falling back to a plain
// file copy when VACUUM INTO is unavailable.
func (m *Manager) vacuumInto(dest string) error {
	src, err := sql.Open("sqlite", m.dbPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer src.Close()

	if err := verify(src); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}
	if _, err := src.Exec("VACUUM INTO ?", dest); err != nil {
		logger.Debug("VACUUM INTO failed, copying file", "error", err)
		src.Close()
		return copyFile(m.dbPath, dest)
	}
	return nil
}

// List returns the snapshots on disk, newest first. Files that do not look like
// snapshots are ignored.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	type entry struct {
		snap Snapshot
		seq  int
	}
	var found []entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := namePattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		taken, err := time.Parse(stampFormat, match[1])
		if err != nil {
			continue
		}
		seq := 0
		if match[3] != "" {
			seq, _ = strconv.Atoi(match[3])
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, entry{
			snap: Snapshot{Path: filepath.Join(m.dir, e.Name()), Label: match[2], Taken: taken, Size: info.Size()},
			seq:  seq,
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].snap.Taken.Equal(found[j].snap.Taken) {
			return found[i].snap.Taken.After(found[j].snap.Taken)
		}
		return found[i].seq > found[j].seq
	})
	snaps := make([]Snapshot, len(found))
	for i, e := range found {
		snaps[i] = e.snap
	}
	return snaps, nil
}

// Find resolves a snapshot by file name or path.
func (m *Manager) Find(ref string) (Snapshot, error) {
	snaps, err := m.List()
	if err != nil {
		return Snapshot{}, err
	}
	for _, s := range snaps {
		if s.Name() == ref || s.Path == ref {
			return s, nil
		}
	}
	return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func (m *Manager) prune() error {
	if m.retention < 1 {
		return nil
	}
	snaps, err := m.List()
	if err != nil {
		return err
	}
	for i := m.retention; i < len(snaps); i++ {
		if err := os.Remove(snaps[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", snaps[i].Name(), err)
		}
		logger.Debug("Pruned backup", "path", snaps[i].Path)
	}
	return nil
}

// Restore replaces the database with a snapshot. The current database is
// snapshotted first, unpruned, so a restore can always be undone.
// The database must not be open while restoring.
func (m *Manager) Restore(snap Snapshot) (*Snapshot, error) {
	if !fileExists(snap.Path) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, snap.Path)
	}
	db, err := sql.Open("sqlite", snap.Path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	err = verify(db)
	db.Close()
	if err != nil {
		return nil, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous *Snapshot
	if fileExists(m.dbPath) {
		current, err := m.create(LabelPreRestore)
		if err != nil {
			return nil, fmt.Errorf("failed to backup current database before restore: %w", err)
		}
		previous = &current
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(snap.Path, tmp); err != nil {
		return previous, fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logger.Warn("Failed to remove temporary file", "path", tmp, "error", rmErr)
		}
		return previous, fmt.Errorf("failed to restore database: %w", err)
	}
	logger.Info("Database restored", "from", snap.Path)
	return previous, nil
}

func verify(db *sql.DB) error {
	var result string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
