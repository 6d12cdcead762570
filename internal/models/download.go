package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/ytfetch/internal/shared"
)

// Kind is the requested output category.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// ParseKind maps a form value to a [Kind]. An empty value selects [KindVideo].
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(KindVideo):
		return KindVideo, nil
	case string(KindAudio):
		return KindAudio, nil
	default:
		return "", fmt.Errorf("unsupported download type: %q", s)
	}
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k == KindVideo || k == KindAudio
}

// KindPolicy is the fixed extraction policy for a [Kind].
type KindPolicy struct {
	Format            string // yt-dlp format selector
	ExtractAudio      bool   // post-process into an audio-only file
	AudioFormat       string // target audio codec when ExtractAudio is set
	AudioQuality      string // target audio bitrate when ExtractAudio is set
	MergeOutputFormat string // container for merged audio+video streams
	Extension         string // extension of the final file
}

var policies = map[Kind]KindPolicy{
	KindAudio: {
		Format:       "bestaudio/best",
		ExtractAudio: true,
		AudioFormat:  "mp3",
		AudioQuality: "192K",
		Extension:    "mp3",
	},
	KindVideo: {
		Format:            "bestvideo[height<=720]+bestaudio/best[height<=720]/best",
		MergeOutputFormat: "mp4",
		Extension:         "mp4",
	},
}

// Policy returns the extraction policy for k. Unknown kinds get the video policy.
func (k Kind) Policy() KindPolicy {
	if p, ok := policies[k]; ok {
		return p
	}
	return policies[KindVideo]
}

// Extension returns the output file extension implied by k, without a dot.
func (k Kind) Extension() string {
	return k.Policy().Extension
}

// Status represents the lifecycle of a [Download].
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal forward step.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusDownloading || next == StatusFailed
	case StatusDownloading:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Download is one ledger record per materialize attempt.
//
// filename is set if and only if status is [StatusCompleted].
type Download struct {
	id        int64
	userID    string
	title     string
	url       string
	kind      Kind
	status    Status
	filename  string
	createdAt time.Time
}

// NewDownload creates a [Download] in the [StatusDownloading] state.
func NewDownload(userID, title, url string, kind Kind) *Download {
	return &Download{
		userID:    userID,
		title:     title,
		url:       url,
		kind:      kind,
		status:    StatusDownloading,
		createdAt: shared.Now(),
	}
}

func (d *Download) ID() int64            { return d.id }
func (d *Download) UserID() string       { return d.userID }
func (d *Download) Title() string        { return d.title }
func (d *Download) URL() string          { return d.url }
func (d *Download) Kind() Kind           { return d.kind }
func (d *Download) Status() Status       { return d.status }
func (d *Download) Filename() string     { return d.filename }
func (d *Download) CreatedAt() time.Time { return d.createdAt }

func (d *Download) SetID(id int64)           { d.id = id }
func (d *Download) SetCreatedAt(t time.Time) { d.createdAt = t }

// Restore sets the lifecycle fields as read from storage.
func (d *Download) Restore(status Status, filename string) {
	d.status = status
	d.filename = filename
}

// Validate checks required fields and the filename/status invariant.
func (d *Download) Validate() error {
	if d.userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if d.title == "" {
		return fmt.Errorf("title is required")
	}
	if d.url == "" {
		return fmt.Errorf("url is required")
	}
	if !d.kind.Valid() {
		return fmt.Errorf("invalid download type: %q", d.kind)
	}
	if (d.status == StatusCompleted) != (d.filename != "") {
		return fmt.Errorf("filename must be set iff status is completed (status=%s)", d.status)
	}
	return nil
}

// StatusRecord is the JSON shape of a [Download] in status responses.
type StatusRecord struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Type      string  `json:"type"`
	Status    string  `json:"status"`
	Filename  *string `json:"filename"`
	CreatedAt string  `json:"created_at"`
}

// Record converts d to its JSON status shape. filename is null unless completed.
func (d *Download) Record() StatusRecord {
	rec := StatusRecord{
		ID:        d.id,
		Title:     d.title,
		URL:       d.url,
		Type:      d.kind.String(),
		Status:    d.status.String(),
		CreatedAt: d.createdAt.UTC().Format(shared.TimestampLayout),
	}
	if d.filename != "" {
		name := d.filename
		rec.Filename = &name
	}
	return rec
}
