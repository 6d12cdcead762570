package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lrstanley/go-ytdlp"

	"github.com/desertthunder/ytfetch/internal/models"
	"github.com/desertthunder/ytfetch/internal/shared"
)

// YTDLPService implements [Extractor] by running the yt-dlp executable.
type YTDLPService struct {
	executable string
	ffmpeg     string
	logger     *log.Logger
}

// NewYTDLPService creates a [YTDLPService]. An empty executable resolves yt-dlp from PATH;
// an empty ffmpeg path lets yt-dlp find ffmpeg itself.
func NewYTDLPService(executable, ffmpeg string, logger *log.Logger) *YTDLPService {
	if executable == "" {
		executable = "yt-dlp"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &YTDLPService{executable: executable, ffmpeg: ffmpeg, logger: logger}
}

// Executable returns the configured yt-dlp path.
func (s *YTDLPService) Executable() string { return s.executable }

func (s *YTDLPService) command() *ytdlp.Command {
	dl := ytdlp.New().
		SetExecutable(s.executable).
		NoPlaylist().
		NoProgress().
		NoWarnings()
	if s.ffmpeg != "" {
		dl.FFmpegLocation(s.ffmpeg)
	}
	return dl
}

// probeCommand builds the metadata-only invocation.
func (s *YTDLPService) probeCommand() *ytdlp.Command {
	return s.command().
		SkipDownload().
		PrintJSON().
		Quiet()
}

// fetchCommand builds the extraction invocation for kind writing to dir/base.%(ext)s.
func (s *YTDLPService) fetchCommand(kind models.Kind, dir, base string) *ytdlp.Command {
	policy := kind.Policy()

	dl := s.command().
		Format(policy.Format).
		Output(filepath.Join(dir, base+".%(ext)s"))

	if policy.ExtractAudio {
		dl.ExtractAudio().
			AudioFormat(policy.AudioFormat).
			AudioQuality(policy.AudioQuality)
	}
	if policy.MergeOutputFormat != "" {
		dl.MergeOutputFormat(policy.MergeOutputFormat)
	}
	return dl
}

// Probe implements [Extractor].
func (s *YTDLPService) Probe(ctx context.Context, url string) (string, error) {
	res, err := s.probeCommand().Run(ctx, url)
	if err != nil {
		return "", s.wrap(ctx, "probe", res, err)
	}

	title := titleFrom(res)
	if title == "" {
		s.logger.Warn("probe returned no title", "url", url)
		return UnknownTitle, nil
	}
	return title, nil
}

// Fetch implements [Extractor].
func (s *YTDLPService) Fetch(ctx context.Context, url string, kind models.Kind, dir, base string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unsupported download type %q", shared.ErrExtractionFailed, kind)
	}

	s.logger.Debug("starting extraction", "url", url, "type", kind, "dir", dir)

	res, err := s.fetchCommand(kind, dir, base).Run(ctx, url)
	if err != nil {
		return s.wrap(ctx, "fetch", res, err)
	}
	return nil
}

// wrap converts a tool failure into [shared.ErrExtractionFailed] carrying the tool's message.
func (s *YTDLPService) wrap(ctx context.Context, op string, res *ytdlp.Result, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", shared.ErrExtractionFailed, shared.ErrTimeout)
		}
		return fmt.Errorf("%w: %w", shared.ErrExtractionFailed, ctxErr)
	}

	msg := err.Error()
	if res != nil {
		if line := lastErrorLine(res.Stderr); line != "" {
			msg = line
		}
	}

	s.logger.Error("yt-dlp failed", "op", op, "error", msg)
	return fmt.Errorf("%w: %s", shared.ErrExtractionFailed, msg)
}

// lastErrorLine picks the most useful line from yt-dlp stderr: the last "ERROR:" line, or the
// last non-empty line.
func lastErrorLine(stderr string) string {
	var last, lastErr string
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		last = line
		if strings.HasPrefix(line, "ERROR:") {
			lastErr = strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	if lastErr != "" {
		return lastErr
	}
	return last
}

// titleFrom reads the title from --print-json output.
func titleFrom(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}

	if info, err := res.GetExtractedInfo(); err == nil {
		for _, i := range info {
			if i != nil && i.Title != nil && strings.TrimSpace(*i.Title) != "" {
				return strings.TrimSpace(*i.Title)
			}
		}
	}

	// Fall back to decoding stdout directly when the result carries no parsed info.
	sc := bufio.NewScanner(strings.NewReader(res.Stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var meta struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(sc.Bytes(), &meta); err == nil && strings.TrimSpace(meta.Title) != "" {
			return strings.TrimSpace(meta.Title)
		}
	}
	return ""
}
