// Package services wraps the external media extraction tool behind the [Extractor] interface.
//
// # yt-dlp Implementation
//
// [YTDLPService] drives yt-dlp through the go-ytdlp command builder. Metadata probes run with
// --skip-download and --print-json; fetches write into a caller-provided scratch directory using
// the output template base.%(ext)s and the fixed policy of the requested [models.Kind]:
//   - audio: bestaudio/best, extracted to mp3 at 192K
//   - video: best stream up to 720p, merged into mp4
//
// Playlists are never expanded (--no-playlist).
//
// # Error Handling
//
// Every failure from the tool (unsupported URL, network error, non-zero exit, cancellation) is
// reported as [shared.ErrExtractionFailed] wrapping the tool's own message.
package services
