package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a materialize attempt.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Workflow phase
	Step    int    // Current step number
	Total   int    // Total steps in the workflow
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Workflow phase enumeration
type Phase int

const (
	Probe Phase = iota
	Record
	Fetch
	Locate
	Promote
	Complete
	Failed
)

// totalSteps is the number of successful phases in one attempt.
const totalSteps = int(Complete) + 1

func (p Phase) String() string {
	switch p {
	case Probe:
		return "probe"
	case Record:
		return "record"
	case Fetch:
		return "fetch"
	case Locate:
		return "locate"
	case Promote:
		return "promote"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

func probeUpdate(url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Probe,
		Step:    1,
		Total:   totalSteps,
		Message: fmt.Sprintf("Resolving metadata for %s...", url),
	}
}

func recordUpdate(title string, id int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Record,
		Step:    2,
		Total:   totalSteps,
		Message: fmt.Sprintf("Recorded download #%d: %s", id, title),
		Data:    id,
	}
}

func fetchUpdate(kind fmt.Stringer) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Fetch,
		Step:    3,
		Total:   totalSteps,
		Message: fmt.Sprintf("Downloading %s...", kind),
	}
}

func locateUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Locate,
		Step:    4,
		Total:   totalSteps,
		Message: "Located output file",
		Data:    path,
	}
}

func promoteUpdate(filename string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Promote,
		Step:    5,
		Total:   totalSteps,
		Message: fmt.Sprintf("Stored as %s", filename),
		Data:    filename,
	}
}

func completeUpdate(result *Result) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    totalSteps,
		Total:   totalSteps,
		Message: fmt.Sprintf("Download completed: %s", result.AttachmentName),
		Data:    result,
	}
}

func failedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Total:   totalSteps,
		Message: fmt.Sprintf("Download failed: %v", err),
		Data:    err,
	}
}
