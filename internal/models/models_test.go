package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	tc := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{input: "audio", want: KindAudio},
		{input: "video", want: KindVideo},
		{input: " Audio ", want: KindAudio},
		{input: "", want: KindVideo},
		{input: "gif", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKindPolicy(t *testing.T) {
	t.Run("audio", func(t *testing.T) {
		p := KindAudio.Policy()
		if !p.ExtractAudio || p.AudioFormat != "mp3" || p.AudioQuality != "192K" {
			t.Errorf("unexpected audio policy: %+v", p)
		}
		if KindAudio.Extension() != "mp3" {
			t.Errorf("expected mp3 extension, got %s", KindAudio.Extension())
		}
	})

	t.Run("video", func(t *testing.T) {
		p := KindVideo.Policy()
		if p.ExtractAudio {
			t.Error("video policy should not extract audio")
		}
		if !strings.Contains(p.Format, "height<=720") {
			t.Errorf("video format should cap height at 720: %s", p.Format)
		}
		if p.MergeOutputFormat != "mp4" || KindVideo.Extension() != "mp4" {
			t.Errorf("unexpected video policy: %+v", p)
		}
	})
}

func TestStatusTransitions(t *testing.T) {
	tc := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusDownloading, true},
		{StatusDownloading, StatusCompleted, true},
		{StatusDownloading, StatusFailed, true},
		{StatusDownloading, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusDownloading, false},
	}

	for _, tt := range tc {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}

	if !StatusCompleted.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("completed and failed must be terminal")
	}
	if StatusDownloading.IsTerminal() {
		t.Error("downloading must not be terminal")
	}
}

func TestDownload(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		d := NewDownload("user-1", "Title", "https://example.com/watch?v=abc", KindAudio)
		if err := d.Validate(); err != nil {
			t.Fatalf("expected valid download: %v", err)
		}

		d.Restore(StatusCompleted, "")
		if err := d.Validate(); err == nil {
			t.Error("completed download without filename should be invalid")
		}

		d.Restore(StatusFailed, "leftover.mp3")
		if err := d.Validate(); err == nil {
			t.Error("failed download with filename should be invalid")
		}
	})

	t.Run("NewDownload Timestamp", func(t *testing.T) {
		d := NewDownload("user-1", "Title", "https://example.com/watch?v=abc", KindAudio)
		created := d.CreatedAt()
		if created.Location() != time.UTC {
			t.Errorf("expected UTC created_at, got %v", created.Location())
		}
		if created.Nanosecond() != 0 {
			t.Errorf("expected created_at truncated to seconds, got %v", created)
		}
		if d.Status() != StatusDownloading {
			t.Errorf("expected downloading status, got %v", d.Status())
		}
	})

	t.Run("Record", func(t *testing.T) {
		d := NewDownload("user-1", "Title", "https://example.com/watch?v=abc", KindVideo)
		d.SetID(7)
		d.SetCreatedAt(time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC))

		data, err := json.Marshal(d.Record())
		if err != nil {
			t.Fatalf("failed to marshal record: %v", err)
		}
		got := string(data)
		if !strings.Contains(got, `"filename":null`) {
			t.Errorf("expected null filename while downloading: %s", got)
		}
		if !strings.Contains(got, `"created_at":"2024-03-09 14:05:06"`) {
			t.Errorf("unexpected created_at format: %s", got)
		}

		d.Restore(StatusCompleted, "abc_Title.mp4")
		rec := d.Record()
		if rec.Filename == nil || *rec.Filename != "abc_Title.mp4" {
			t.Errorf("expected filename in completed record, got %v", rec.Filename)
		}
		if rec.Type != "video" || rec.Status != "completed" {
			t.Errorf("unexpected record: %+v", rec)
		}
	})
}

func TestUserValidate(t *testing.T) {
	tc := []struct {
		name     string
		username string
		email    string
		hash     string
		wantErr  bool
	}{
		{name: "valid", username: "alice", email: "alice@example.com", hash: "x"},
		{name: "missing username", username: " ", email: "alice@example.com", hash: "x", wantErr: true},
		{name: "missing email", username: "alice", email: "", hash: "x", wantErr: true},
		{name: "bad email", username: "alice", email: "not-an-email", hash: "x", wantErr: true},
		{name: "missing hash", username: "alice", email: "alice@example.com", hash: "", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := NewUser(0, tt.username, tt.email, tt.hash).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
