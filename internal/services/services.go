// package services defines the Extractor interface for the external media tool
package services

import (
	"context"

	"github.com/desertthunder/ytfetch/internal/models"
)

// UnknownTitle is reported by [Extractor.Probe] when the tool returns no title.
const UnknownTitle = "Unknown Title"

// Extractor wraps the external extraction/transcode tool.
type Extractor interface {
	// Probe fetches metadata only and returns the media title.
	// Returns [UnknownTitle] when the tool reports none.
	Probe(ctx context.Context, url string) (string, error)

	// Fetch downloads and post-processes url into dir using the output template base.%(ext)s,
	// honoring the [models.KindPolicy] of kind.
	// Every failure wraps [shared.ErrExtractionFailed].
	Fetch(ctx context.Context, url string, kind models.Kind, dir, base string) error
}
