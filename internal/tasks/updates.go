package tasks

import (
	"fmt"

	"github.com/desertthunder/hsx/internal/live"
	"github.com/desertthunder/hsx/internal/merge"
	"github.com/desertthunder/hsx/internal/models"
)

// ProgressUpdate reports a state change of a list view or a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data ([models.PageResult], [models.LiveEvent], ...)
}

// Operation phase enumeration
type Phase int

const (
	FetchStarted Phase = iota
	FetchApplied
	FetchFailed
	EventApplied
	EventIgnored
	ConnectionChanged
	BulkBatch
	BulkFailed
	BulkApplied
)

func (p Phase) String() string {
	switch p {
	case FetchStarted:
		return "fetch_started"
	case FetchApplied:
		return "fetch_applied"
	case FetchFailed:
		return "fetch_failed"
	case EventApplied:
		return "event_applied"
	case EventIgnored:
		return "event_ignored"
	case ConnectionChanged:
		return "connection_changed"
	case BulkBatch:
		return "bulk_batch"
	case BulkFailed:
		return "bulk_failed"
	case BulkApplied:
		return "bulk_applied"
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

func fetchStartedUpdate(q models.QueryState) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchStarted,
		Message: fmt.Sprintf("Loading page %d", q.Page),
		Data:    q,
	}
}

func fetchAppliedUpdate(p models.PageResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchApplied,
		Step:    p.Page,
		Total:   p.TotalPages,
		Message: fmt.Sprintf("Page %d of %d (%d records)", p.Page, max(p.TotalPages, 1), p.Total),
		Data:    p,
	}
}

func fetchFailedUpdate(notice string, err error) ProgressUpdate {
	return ProgressUpdate{Phase: FetchFailed, Message: notice, Data: err}
}

func eventUpdate(ev models.LiveEvent, out merge.Outcome, p models.PageResult) ProgressUpdate {
	phase := EventIgnored
	if out.Changed() {
		phase = EventApplied
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    len(p.Items),
		Total:   p.Total,
		Message: fmt.Sprintf("%s %s: %s", ev.Name, ev.Record.ID, out),
		Data:    ev,
	}
}

func connectionUpdate(state live.State) ProgressUpdate {
	return ProgressUpdate{Phase: ConnectionChanged, Message: "Live updates " + state.String(), Data: state}
}

func bulkBatchUpdate(step, total int, action string, affected int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BulkBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s: batch %d/%d, %d records", action, step, total, affected),
	}
}

func bulkFailedUpdate(step, total int, action string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BulkFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s: batch %d/%d failed: %v", action, step, total, err),
		Data:    err,
	}
}

func bulkAppliedUpdate(res *BulkResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BulkApplied,
		Step:    res.Affected,
		Total:   res.Requested,
		Message: fmt.Sprintf("%s: %d of %d records", res.Action, res.Affected, res.Requested),
		Data:    res,
	}
}
