package tasks

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/shared"
	"github.com/desertthunder/ytfetch/internal/staging"
)

// CompletedFinder looks up a completed download by owner and stored filename.
//
// [repositories.DownloadRepository] implements it.
type CompletedFinder interface {
	FindCompleted(ctx context.Context, userID, filename string) (*models.Download, error)
}

// Retrieval is an authorized, open stored file. The caller must Close it.
type Retrieval struct {
	File           *os.File
	Download       *models.Download
	AttachmentName string
	Size           int64
	ModTime        time.Time
}

// Close closes the underlying file.
func (r *Retrieval) Close() error {
	return r.File.Close()
}

// Gate is the sole access check for stored files.
type Gate struct {
	storage *staging.Storage
	ledger  CompletedFinder
	logger  *log.Logger
}

// NewGate creates a [Gate].
func NewGate(storage *staging.Storage, ledger CompletedFinder, logger *log.Logger) *Gate {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Gate{storage: storage, ledger: ledger, logger: logger}
}

// Authorize opens filename for userID.
//
// It fails with a bare [shared.ErrNotFound] unless a completed ledger record owned by userID
// names the file and the file is present in storage.
func (g *Gate) Authorize(ctx context.Context, userID, filename string) (*Retrieval, error) {
	if userID == "" {
		return nil, shared.ErrNotFound
	}
	if _, err := g.storage.Path(filename); err != nil {
		return nil, shared.ErrNotFound
	}

	d, err := g.ledger.FindCompleted(ctx, userID, filename)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			g.logger.Error("ledger lookup failed", "user_id", userID, "error", err)
		}
		return nil, shared.ErrNotFound
	}

	f, err := g.storage.Open(filename)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			g.logger.Error("failed to open stored file", "download_id", d.ID(), "error", err)
		} else {
			g.logger.Warn("completed download has no stored file", "download_id", d.ID())
		}
		return nil, shared.ErrNotFound
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, shared.ErrNotFound
	}

	return &Retrieval{
		File:           f,
		Download:       d,
		AttachmentName: AttachmentName(d.Title(), d.Kind()),
		Size:           info.Size(),
		ModTime:        info.ModTime(),
	}, nil
}
