package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/repositories"
	"github.com/desertthunder/ytfetch/internal/shared"
	"github.com/desertthunder/ytfetch/internal/staging"
	tu "github.com/desertthunder/ytfetch/internal/testing"
)

type fixture struct {
	storage   *staging.Storage
	ledger    *repositories.DownloadRepository
	extractor *tu.MockExtractor
	user      *models.User
	m         *Materializer
}

func newFixture(t *testing.T, extractor *tu.MockExtractor) *fixture {
	t.Helper()

	db := tu.NewTestDB(t)
	storage, err := staging.NewStorage(filepath.Join(t.TempDir(), "downloads"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	ledger := repositories.NewDownloadRepository(db)
	return &fixture{
		storage:   storage,
		ledger:    ledger,
		extractor: extractor,
		user:      tu.MustCreateUser(t, db, "alice"),
		m:         NewMaterializer(storage, extractor, ledger, time.Minute, shared.NewLogger(&strings.Builder{})),
	}
}

func (f *fixture) downloads(t *testing.T) []*models.Download {
	t.Helper()
	list, err := f.ledger.ListFor(context.Background(), f.user.ID(), 0)
	if err != nil {
		t.Fatalf("failed to list downloads: %v", err)
	}
	return list
}

// failingLedger wraps a real ledger and fails Complete.
type failingLedger struct {
	Ledger
	completeErr error
}

func (l *failingLedger) Complete(ctx context.Context, id int64, filename string) error {
	return l.completeErr
}

func TestMaterializer(t *testing.T) {
	ctx := context.Background()
	const url = "https://example.com/watch?v=abc"

	t.Run("audio success", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{Title: "My Song: Live!"})

		result, err := f.m.Materialize(ctx, f.user.ID(), url, models.KindAudio)
		if err != nil {
			t.Fatalf("materialize failed: %v", err)
		}

		if result.AttachmentName != "My Song Live.mp3" {
			t.Errorf("expected attachment name My Song Live.mp3, got %s", result.AttachmentName)
		}
		if !strings.HasSuffix(result.Filename, "_My Song Live.mp3") {
			t.Errorf("unexpected stored filename: %s", result.Filename)
		}
		tu.AssertFileExists(t, result.Path)
		tu.AssertNoScratchDirs(t, f.storage.Dir())

		list := f.downloads(t)
		if len(list) != 1 {
			t.Fatalf("expected 1 ledger record, got %d", len(list))
		}
		d := list[0]
		if d.Status() != models.StatusCompleted || d.Filename() != result.Filename {
			t.Errorf("unexpected ledger record: status=%s filename=%s", d.Status(), d.Filename())
		}
		if d.ID() != result.DownloadID || d.Title() != "My Song: Live!" || d.URL() != url {
			t.Errorf("ledger record does not match result: %+v", d.Record())
		}
	})

	t.Run("video success with fragments", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{
			Title:   "Clip",
			Outputs: []string{".f137.mp4", ".f140.m4a", ".mp4.part", ".mp4"},
		})

		result, err := f.m.Materialize(ctx, f.user.ID(), url, models.KindVideo)
		if err != nil {
			t.Fatalf("materialize failed: %v", err)
		}
		if result.AttachmentName != "Clip.mp4" {
			t.Errorf("expected Clip.mp4, got %s", result.AttachmentName)
		}
		if got := tu.StoredFiles(t, f.storage.Dir()); len(got) != 1 {
			t.Errorf("expected exactly one stored file, got %v", got)
		}
		tu.AssertNoScratchDirs(t, f.storage.Dir())
	})

	t.Run("extractor rejects url", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{
			Title:    "Song",
			FetchErr: fmt.Errorf("%w: Unsupported URL", shared.ErrExtractionFailed),
		})

		_, err := f.m.Materialize(ctx, f.user.ID(), url, models.KindAudio)
		if !errors.Is(err, shared.ErrExtractionFailed) {
			t.Fatalf("expected ErrExtractionFailed, got %v", err)
		}

		list := f.downloads(t)
		if len(list) != 1 || list[0].Status() != models.StatusFailed || list[0].Filename() != "" {
			t.Fatalf("expected one failed record without filename, got %+v", list)
		}
		if got := tu.StoredFiles(t, f.storage.Dir()); len(got) != 0 {
			t.Errorf("no file may exist for a failed attempt, got %v", got)
		}
		tu.AssertNoScratchDirs(t, f.storage.Dir())
	})

	t.Run("probe failure leaves no record", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{
			ProbeErr: fmt.Errorf("%w: network unreachable", shared.ErrExtractionFailed),
		})

		_, err := f.m.Materialize(ctx, f.user.ID(), url, models.KindVideo)
		if !errors.Is(err, shared.ErrExtractionFailed) {
			t.Fatalf("expected ErrExtractionFailed, got %v", err)
		}
		if list := f.downloads(t); len(list) != 0 {
			t.Errorf("expected no ledger record, got %d", len(list))
		}
		if f.extractor.FetchCalls() != 0 {
			t.Error("fetch must not run after a failed probe")
		}
		tu.AssertNoScratchDirs(t, f.storage.Dir())
	})

	t.Run("output not found", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{Title: "Song", Outputs: []string{".mp3.part"}})

		_, err := f.m.Materialize(ctx, f.user.ID(), url, models.KindAudio)
		if !errors.Is(err, shared.ErrOutputNotFound) {
			t.Fatalf("expected ErrOutputNotFound, got %v", err)
		}
		if list := f.downloads(t); len(list) != 1 || list[0].Status() != models.StatusFailed {
			t.Errorf("expected failed record, got %+v", list)
		}
		tu.AssertNoScratchDirs(t, f.storage.Dir())
	})

	t.Run("ambiguous output", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{Title: "Song", Outputs: []string{".webm", ".mkv"}})

		_, err := f.m.Materialize(ctx, f.user.ID(), url, models.KindVideo)
		if !errors.Is(err, shared.ErrAmbiguousOutput) {
			t.Fatalf("expected ErrAmbiguousOutput, got %v", err)
		}
		if list := f.downloads(t); list[0].Status() != models.StatusFailed {
			t.Errorf("expected failed record, got %s", list[0].Status())
		}
		tu.AssertNoScratchDirs(t, f.storage.Dir())
	})

	t.Run("output in another format", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{Title: "Song", Outputs: []string{".webm"}})

		_, err := f.m.Materialize(ctx, f.user.ID(), url, models.KindAudio)
		if !errors.Is(err, shared.ErrUnexpectedFormat) {
			t.Fatalf("expected ErrUnexpectedFormat, got %v", err)
		}
		if got := tu.StoredFiles(t, f.storage.Dir()); len(got) != 0 {
			t.Errorf("nothing should be stored, got %v", got)
		}
		if list := f.downloads(t); list[0].Status() != models.StatusFailed {
			t.Errorf("expected failed record, got %s", list[0].Status())
		}
		tu.AssertNoScratchDirs(t, f.storage.Dir())
	})

	t.Run("complete failure removes promoted file", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{Title: "Song"})
		f.m.ledger = &failingLedger{Ledger: f.ledger, completeErr: errors.New("database is locked")}

		if _, err := f.m.Materialize(ctx, f.user.ID(), url, models.KindAudio); err == nil {
			t.Fatal("expected error when completion cannot be recorded")
		}

		if got := tu.StoredFiles(t, f.storage.Dir()); len(got) != 0 {
			t.Errorf("promoted file must be removed, got %v", got)
		}
		if list := f.downloads(t); list[0].Status() != models.StatusFailed {
			t.Errorf("expected failed record, got %s", list[0].Status())
		}
	})

	t.Run("timeout", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{Title: "Song", Delay: time.Minute})
		f.m.timeout = 50 * time.Millisecond

		_, err := f.m.Materialize(ctx, f.user.ID(), url, models.KindAudio)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if list := f.downloads(t); len(list) != 1 || list[0].Status() != models.StatusFailed {
			t.Errorf("expected failed record after timeout, got %+v", list)
		}
		tu.AssertNoScratchDirs(t, f.storage.Dir())
	})

	t.Run("client cancellation", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{Title: "Song", Delay: time.Minute})

		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		if _, err := f.m.Materialize(cctx, f.user.ID(), url, models.KindAudio); err == nil {
			t.Fatal("expected error after cancellation")
		}
		if list := f.downloads(t); len(list) != 1 || list[0].Status() != models.StatusFailed {
			t.Errorf("cancelled attempt must still be recorded as failed, got %+v", list)
		}
	})

	t.Run("validation", func(t *testing.T) {
		tc := []struct {
			name    string
			userID  string
			url     string
			kind    models.Kind
			wantErr error
		}{
			{name: "empty url", userID: "u", url: "  ", kind: models.KindVideo, wantErr: shared.ErrInvalidInput},
			{name: "bad kind", userID: "u", url: url, kind: models.Kind("gif"), wantErr: shared.ErrInvalidInput},
			{name: "no user", userID: "", url: url, kind: models.KindAudio, wantErr: shared.ErrNotAuthenticated},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t, &tu.MockExtractor{Title: "Song"})

				_, err := f.m.Materialize(ctx, tt.userID, tt.url, tt.kind)
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if f.extractor.ProbeCalls() != 0 {
					t.Error("invalid input must not reach the extractor")
				}
				entries, _ := os.ReadDir(f.storage.Dir())
				if len(entries) != 0 {
					t.Errorf("invalid input must have no side effects, found %d entries", len(entries))
				}
			})
		}
	})

	t.Run("progress", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{Title: "Song"})
		progress := make(chan ProgressUpdate, 16)

		if _, err := f.m.Run(ctx, progress, f.user.ID(), url, models.KindAudio); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := []Phase{Probe, Record, Fetch, Locate, Promote, Complete}
		if fmt.Sprint(phases) != fmt.Sprint(want) {
			t.Errorf("expected phases %v, got %v", want, phases)
		}
	})

	t.Run("progress never blocks", func(t *testing.T) {
		f := newFixture(t, &tu.MockExtractor{Title: "Song"})
		progress := make(chan ProgressUpdate)

		if _, err := f.m.Run(ctx, progress, f.user.ID(), url, models.KindAudio); err != nil {
			t.Fatalf("run failed: %v", err)
		}
	})
}

func TestMaterializerConcurrency(t *testing.T) {
	ctx := context.Background()

	db := tu.NewFileTestDB(t)
	storage, err := staging.NewStorage(filepath.Join(t.TempDir(), "downloads"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	ledger := repositories.NewDownloadRepository(db)
	extractor := &tu.MockExtractor{Title: "Same Title"}
	m := NewMaterializer(storage, extractor, ledger, time.Minute, shared.NewLogger(&strings.Builder{}))

	alice := tu.MustCreateUser(t, db, "alice")
	bob := tu.MustCreateUser(t, db, "bob")

	const n = 8
	var wg sync.WaitGroup
	results := make(chan *Result, n)
	errs := make(chan error, n)
	for i := range n {
		owner := alice.ID()
		if i%2 == 1 {
			owner = bob.ID()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Materialize(ctx, owner, "https://example.com/same", models.KindAudio)
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Errorf("concurrent materialize failed: %v", err)
	}

	seen := map[string]bool{}
	for r := range results {
		if seen[r.Filename] {
			t.Errorf("duplicate stored filename %s", r.Filename)
		}
		seen[r.Filename] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d distinct stored files, got %d", n, len(seen))
	}
	if got := tu.StoredFiles(t, storage.Dir()); len(got) != n {
		t.Errorf("expected %d files in storage, got %d", n, len(got))
	}
	tu.AssertNoScratchDirs(t, storage.Dir())
}

func TestAttachmentName(t *testing.T) {
	tc := []struct {
		title string
		kind  models.Kind
		want  string
	}{
		{title: "My Song", kind: models.KindAudio, want: "My Song.mp3"},
		{title: "Video/Clip?", kind: models.KindVideo, want: "VideoClip.mp4"},
		{title: "???", kind: models.KindAudio, want: "download.mp3"},
	}

	for _, tt := range tc {
		t.Run(tt.want, func(t *testing.T) {
			if got := AttachmentName(tt.title, tt.kind); got != tt.want {
				t.Errorf("AttachmentName(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}
