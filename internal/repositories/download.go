package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/shared"
)

// DownloadRepository is the request ledger: one row per materialize attempt.
//
// Status transitions are guarded in SQL so that a row only ever moves forward
// (downloading → completed | failed). Every method commits before returning.
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new [DownloadRepository] with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

const downloadColumns = `id, user_id, title, url, download_type, status, filename, created_at`

// Create inserts d with status downloading and sets its ID.
func (r *DownloadRepository) Create(ctx context.Context, d *models.Download) error {
	d.Restore(models.StatusDownloading, "")
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO downloads (user_id, title, url, download_type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		d.UserID(), d.Title(), d.URL(), d.Kind().String(), models.StatusDownloading.String(), d.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get download id: %w", err)
	}

	d.SetID(id)
	return nil
}

// Complete marks a downloading record completed and records its stored filename.
func (r *DownloadRepository) Complete(ctx context.Context, id int64, filename string) error {
	if filename == "" {
		return fmt.Errorf("%w: filename is required to complete a download", shared.ErrInvalidInput)
	}

	query := `
		UPDATE downloads
		SET status = ?, filename = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		models.StatusCompleted.String(), filename, id, models.StatusDownloading.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete download: %w", err)
	}

	return r.checkTransition(ctx, result, id, models.StatusCompleted)
}

// Fail marks a pending or downloading record failed. The filename stays unset.
func (r *DownloadRepository) Fail(ctx context.Context, id int64) error {
	query := `
		UPDATE downloads
		SET status = ?, filename = NULL
		WHERE id = ? AND status IN (?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		models.StatusFailed.String(), id, models.StatusPending.String(), models.StatusDownloading.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark download failed: %w", err)
	}

	return r.checkTransition(ctx, result, id, models.StatusFailed)
}

// checkTransition distinguishes a missing row from a row already in a terminal state.
func (r *DownloadRepository) checkTransition(ctx context.Context, result sql.Result, id int64, next models.Status) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: download %d is %s, cannot become %s", shared.ErrInvalidTransition, id, current.Status(), next)
}

// Get retrieves a download by ID.
func (r *DownloadRepository) Get(ctx context.Context, id int64) (*models.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE id = ?`

	d, err := scanDownload(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: download %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query download: %w", err)
	}
	return d, nil
}

// FindCompleted returns the completed download owned by userID with the given stored filename.
//
// Every miss (unknown filename, other owner, not completed) is [shared.ErrNotFound].
func (r *DownloadRepository) FindCompleted(ctx context.Context, userID, filename string) (*models.Download, error) {
	query := `SELECT ` + downloadColumns + `
		FROM downloads
		WHERE user_id = ? AND filename = ? AND status = ?
	`

	d, err := scanDownload(r.db.QueryRowContext(ctx, query, userID, filename, models.StatusCompleted.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query download: %w", err)
	}
	return d, nil
}

// ListFor returns the user's downloads newest first. A limit of zero or less returns all of them.
func (r *DownloadRepository) ListFor(ctx context.Context, userID string, limit int) ([]*models.Download, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT ` + downloadColumns + `
		FROM downloads
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	downloads := []*models.Download{}
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		downloads = append(downloads, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return downloads, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*models.Download, error) {
	var (
		id        int64
		userID    string
		title     string
		url       string
		kind      string
		status    string
		filename  sql.NullString
		createdAt time.Time
	)

	if err := row.Scan(&id, &userID, &title, &url, &kind, &status, &filename, &createdAt); err != nil {
		return nil, err
	}

	d := models.NewDownload(userID, title, url, models.Kind(kind))
	d.SetID(id)
	d.SetCreatedAt(createdAt)
	d.Restore(models.Status(status), filename.String)

	return d, nil
}
