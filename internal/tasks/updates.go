package tasks

import (
	"fmt"

	"github.com/desertthunder/reelx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPopular Phase = iota
	ResolveTrailers
	PhaseExportList
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchPopular:
		return "fetch_popular"
	case ResolveTrailers:
		return "resolve_trailers"
	case PhaseExportList:
		return "export_list"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchPopularUpdate(page int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPopular,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching popular movies (page %d)...", page),
	}
}

func fetchedPopularUpdate(page, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPopular,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d movies on page %d", count, page),
		Data:    count,
	}
}

func trailerUpdate(step, total int, m models.Movie) ProgressUpdate {
	status := "no trailer"
	if m.HasTrailer() {
		status = "trailer found"
	}
	return ProgressUpdate{
		Phase:   ResolveTrailers,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s", step, total, m.Title, status),
		Data:    m,
	}
}

func exportingListUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExportList,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExportList,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExportList,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Wrote manifest %s", path),
		Data:    path,
	}
}
