// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/repositories"
	"github.com/desertthunder/ytfetch/internal/shared"
)

// MockExtractor is a test double for [services.Extractor].
//
// Fetch writes one file per entry in Outputs into the scratch directory, named base+suffix.
// With no Outputs it writes base.<kind extension>.
type MockExtractor struct {
	Title    string
	ProbeErr error
	FetchErr error
	Outputs  []string      // file suffixes written by Fetch, e.g. ".mp3" or ".f137.mp4"
	Delay    time.Duration // Fetch blocks this long or until the context is done

	mu          sync.Mutex
	probeCalls  int
	fetchCalls  int
	lastFetchAt string
}

func (m *MockExtractor) Probe(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	m.probeCalls++
	m.mu.Unlock()

	if m.ProbeErr != nil {
		return "", m.ProbeErr
	}
	if m.Title == "" {
		return "Unknown Title", nil
	}
	return m.Title, nil
}

func (m *MockExtractor) Fetch(ctx context.Context, url string, kind models.Kind, dir, base string) error {
	m.mu.Lock()
	m.fetchCalls++
	m.lastFetchAt = dir
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return errors.Join(shared.ErrExtractionFailed, ctx.Err())
		}
	}

	if m.FetchErr != nil {
		// Partial output is left behind the way a real extractor would.
		_ = os.WriteFile(filepath.Join(dir, base+"."+kind.Extension()+".part"), []byte("partial"), 0o644)
		return m.FetchErr
	}

	outputs := m.Outputs
	if len(outputs) == 0 {
		outputs = []string{"." + kind.Extension()}
	}
	for _, suffix := range outputs {
		if err := os.WriteFile(filepath.Join(dir, base+suffix), []byte("media:"+url), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// ProbeCalls returns the number of Probe invocations.
func (m *MockExtractor) ProbeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probeCalls
}

// FetchCalls returns the number of Fetch invocations.
func (m *MockExtractor) FetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

// LastScratchDir returns the directory passed to the most recent Fetch.
func (m *MockExtractor) LastScratchDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFetchAt
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// NewTestDB creates an in-memory SQLite database with migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := shared.RunMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// NewFileTestDB creates a file-backed SQLite database in a temp dir, for tests that need
// more than one connection.
func NewFileTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// MustCreateUser inserts a user with a placeholder password digest.
func MustCreateUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()

	user := models.NewUser(0, username, username+"@example.com", "digest")
	if err := repositories.NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Path should not exist: %s (stat err = %v)", path, err)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

// AssertNoScratchDirs fails if any per-attempt scratch directory remains in the storage dir.
func AssertNoScratchDirs(t *testing.T, storageDir string) {
	t.Helper()
	entries, err := os.ReadDir(storageDir)
	if err != nil {
		t.Fatalf("Failed to read storage dir %s: %v", storageDir, err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), ".stage-") {
			t.Errorf("Scratch directory left behind: %s", e.Name())
		}
	}
}

// StoredFiles returns the names of regular files in the storage dir.
func StoredFiles(t *testing.T, storageDir string) []string {
	t.Helper()
	entries, err := os.ReadDir(storageDir)
	if err != nil {
		t.Fatalf("Failed to read storage dir %s: %v", storageDir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
