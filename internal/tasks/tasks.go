// package tasks implements the download workflow and the retrieval gate.
//
// [Materializer] runs one synchronous download attempt end to end; [Gate] authorizes and opens
// stored files for their owner.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/services"
	"github.com/desertthunder/ytfetch/internal/shared"
	"github.com/desertthunder/ytfetch/internal/staging"
)

// DefaultTimeout bounds one materialize attempt when no timeout is configured.
const DefaultTimeout = 15 * time.Minute

// Ledger records the lifecycle of each attempt.
//
// [repositories.DownloadRepository] implements it.
type Ledger interface {
	Create(ctx context.Context, d *models.Download) error
	Complete(ctx context.Context, id int64, filename string) error
	Fail(ctx context.Context, id int64) error
}

// Result describes a completed attempt.
type Result struct {
	DownloadID     int64       // Ledger record ID
	Title          string      // Resolved display title
	Kind           models.Kind // Requested kind
	Filename       string      // Stored filename in the storage directory
	Path           string      // Absolute path of the stored file
	AttachmentName string      // User-facing name: sanitized title + kind extension
}

// Materializer turns a (url, kind) request into a stored file and a ledger record.
type Materializer struct {
	storage   *staging.Storage
	extractor services.Extractor
	ledger    Ledger
	timeout   time.Duration
	logger    *log.Logger
}

// NewMaterializer creates a [Materializer]. A non-positive timeout selects [DefaultTimeout].
func NewMaterializer(storage *staging.Storage, extractor services.Extractor, ledger Ledger, timeout time.Duration, logger *log.Logger) *Materializer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Materializer{
		storage:   storage,
		extractor: extractor,
		ledger:    ledger,
		timeout:   timeout,
		logger:    logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (m *Materializer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Materialize runs one download attempt for userID without progress reporting.
func (m *Materializer) Materialize(ctx context.Context, userID, url string, kind models.Kind) (*Result, error) {
	return m.Run(ctx, nil, userID, url, kind)
}

// Run performs one download attempt:
//
//  1. probe the URL for a title (no ledger record yet)
//  2. record the attempt as downloading
//  3. extract into a fresh scratch directory
//  4. locate and promote the output into storage
//  5. mark the record completed
//
// Any failure after step 2 marks the record failed. The scratch directory is removed on every
// exit path. The whole attempt is bounded by the configured timeout.
func (m *Materializer) Run(ctx context.Context, progress chan<- ProgressUpdate, userID, url string, kind models.Kind) (*Result, error) {
	url = strings.TrimSpace(url)
	switch {
	case userID == "":
		return nil, shared.ErrNotAuthenticated
	case url == "":
		return nil, fmt.Errorf("%w: URL is required", shared.ErrInvalidInput)
	case !kind.Valid():
		return nil, fmt.Errorf("%w: unsupported download type %q", shared.ErrInvalidInput, kind)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	logger := shared.WithLogger(m.logger, "user_id", userID, "type", kind)

	stage, err := m.storage.Stage()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := stage.Cleanup(); err != nil {
			logger.Warn("scratch cleanup failed", "dir", stage.Dir(), "error", err)
		}
	}()

	m.sendProgress(progress, probeUpdate(url))
	title, err := m.extractor.Probe(ctx, url)
	if err != nil {
		err = timeoutAware(ctx, err)
		m.sendProgress(progress, failedUpdate(err))
		logger.Error("metadata probe failed", "url", url, "error", err)
		return nil, err
	}

	download := models.NewDownload(userID, title, url, kind)
	if err := m.ledger.Create(ctx, download); err != nil {
		m.sendProgress(progress, failedUpdate(err))
		return nil, fmt.Errorf("failed to record download: %w", err)
	}

	logger = shared.WithLogger(logger, "download_id", download.ID())
	m.sendProgress(progress, recordUpdate(title, download.ID()))

	result, err := m.materialize(ctx, progress, stage, download)
	if err != nil {
		err = timeoutAware(ctx, err)
		m.sendProgress(progress, failedUpdate(err))
		logger.Error("download failed", "url", url, "error", err)

		// The request context may already be done; the failure still has to be recorded.
		failCtx, failCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer failCancel()
		if ferr := m.ledger.Fail(failCtx, download.ID()); ferr != nil {
			logger.Error("failed to mark download failed", "error", ferr)
		}
		return nil, err
	}

	logger.Info("download completed", "filename", result.Filename)
	m.sendProgress(progress, completeUpdate(result))
	return result, nil
}

// materialize runs the extraction and promotion steps for a recorded download.
func (m *Materializer) materialize(ctx context.Context, progress chan<- ProgressUpdate, stage *staging.Stage, d *models.Download) (*Result, error) {
	ext := d.Kind().Extension()
	base := shared.GenerateID()

	m.sendProgress(progress, fetchUpdate(d.Kind()))
	if err := m.extractor.Fetch(ctx, d.URL(), d.Kind(), stage.Dir(), base); err != nil {
		return nil, err
	}

	path, err := stage.Locate(base, ext)
	if err != nil {
		return nil, err
	}
	m.sendProgress(progress, locateUpdate(path))

	filename, err := m.storage.Promote(path, d.Title(), ext)
	if err != nil {
		return nil, err
	}
	m.sendProgress(progress, promoteUpdate(filename))

	if err := m.ledger.Complete(ctx, d.ID(), filename); err != nil {
		if rerr := m.storage.Remove(filename); rerr != nil {
			m.logger.Error("failed to remove orphaned file", "filename", filename, "error", rerr)
		}
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	return &Result{
		DownloadID:     d.ID(),
		Title:          d.Title(),
		Kind:           d.Kind(),
		Filename:       filename,
		Path:           filepath.Join(m.storage.Dir(), filename),
		AttachmentName: AttachmentName(d.Title(), d.Kind()),
	}, nil
}

// AttachmentName builds the user-facing file name for a download title and kind.
func AttachmentName(title string, kind models.Kind) string {
	name := staging.SanitizeTitle(title)
	if name == "" {
		name = "download"
	}
	return name + "." + kind.Extension()
}

// timeoutAware marks errors caused by the attempt deadline with [shared.ErrTimeout].
func timeoutAware(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, shared.ErrTimeout) {
		return fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}
	return err
}
