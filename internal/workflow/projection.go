package workflow

import (
	"sort"
	"time"

	"workshop-backend/internal/models"
)

// Customer-facing status labels, highest priority first (see Status).
const (
	StatusWaitingForDispatch = "Waiting for dispatch"
	StatusSentToCustomer     = "Car has been sent to customer"
	StatusDelivered          = "Delivered to customer"
	StatusAboutToArrive      = "Vehicle about to arrive (driver picked up)"
	StatusWaitingApproval    = "Waiting for customer approval"
	StatusWaitingAllocation  = "Waiting for allocation"
	StatusWaitingWorkStart   = "Waiting for work to start"
	StatusWorkInProgress     = "Work in progress"
	StatusExpertInspection   = "Under expert inspection"
	StatusFinalInspection    = "Final inspection"
	StatusInWashing          = "In washing"
	StatusWaitingWashing     = "Waiting for washing"
	StatusWaitingFI          = "Completion of work (waiting for FI)"
	StatusUnknown            = "Status unknown"
)

// Timeline entry status tags
const (
	TimelineCompleted  = "completed"
	TimelineInProgress = "in-progress"
)

// TimelineEntry is one row of the journey view.
type TimelineEntry struct {
	Stage     string     `json:"stage"`
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Status    string     `json:"status"`
}

// Status evaluates the fixed priority-ordered decision list and returns the
// first matching label. The order encodes the workshop's reading of the
// record and must not be rearranged.
func Status(v *models.VehicleRecord) string {
	gate := v.Window(models.StageSecurityGate)
	lastWash := v.LastWashing()

	switch {
	case lastWash != nil && lastWash.IsCompleted && gate.Open():
		return StatusWaitingForDispatch
	case gate.Ended() && !v.Window(models.StageDriverDrop).Ended():
		return StatusSentToCustomer
	case v.Window(models.StageDriverDrop).Ended():
		return StatusDelivered
	case v.Window(models.StagePickupDrop).Started() && !gate.Started():
		return StatusAboutToArrive
	case gate.Started() && !v.Window(models.StageJobCardCreation).Started():
		return StatusWaitingApproval
	case v.Window(models.StageJobCardCreation).Started() && len(v.BayAllocations) == 0:
		return StatusWaitingAllocation
	case len(v.BayAllocations) > 0 && !v.Window(models.StageBayWork).Started():
		return StatusWaitingWorkStart
	case v.Window(models.StageBayWork).Open():
		return StatusWorkInProgress
	case v.Window(models.StageExpertStage).Open():
		return StatusExpertInspection
	case v.Window(models.StageFinalInspection).Open():
		return StatusFinalInspection
	case lastWash != nil && lastWash.StartTime != nil && lastWash.EndTime == nil:
		return StatusInWashing
	case v.Window(models.StageReadyForWashing).Started() && (lastWash == nil || lastWash.IsCompleted):
		return StatusWaitingWashing
	case v.Window(models.StageJobCardReceived).Started():
		return StatusWaitingFI
	}
	return StatusUnknown
}

// ActiveStage scans the fixed stage order and returns the first open stage.
// bayAllocation counts as active while its list is non-empty (allocations
// have no end event); washing counts as active while the last session is
// open. Returns "" when nothing is active.
func ActiveStage(v *models.VehicleRecord) string {
	for _, stage := range models.StageOrder {
		switch stage {
		case models.StageBayAllocation:
			if len(v.BayAllocations) > 0 {
				return stage
			}
		case models.StageWashing:
			if last := v.LastWashing(); last != nil && last.StartTime != nil && last.EndTime == nil {
				return stage
			}
		default:
			if v.Window(stage).Open() {
				return stage
			}
		}
	}
	return ""
}

// Timeline builds the ordered journey view: one entry per stage instance
// with any activity, sorted ascending by start time. Repeatable stages
// contribute one entry per instance; driverDrop is keyed by its end time.
func Timeline(v *models.VehicleRecord) []TimelineEntry {
	var entries []TimelineEntry

	add := func(stage string, start, end *time.Time) {
		if start == nil && end == nil {
			return
		}
		status := TimelineInProgress
		if end != nil {
			status = TimelineCompleted
		}
		entries = append(entries, TimelineEntry{Stage: stage, StartTime: start, EndTime: end, Status: status})
	}

	for _, stage := range models.StageOrder {
		switch stage {
		case models.StageBayAllocation:
			for _, a := range v.BayAllocations {
				// Allocations never end; tag them completed since the
				// allocation act itself is instantaneous.
				if a.StartTime != nil {
					entries = append(entries, TimelineEntry{
						Stage:     stage,
						StartTime: a.StartTime,
						Status:    TimelineCompleted,
					})
				}
			}
		case models.StageWashing:
			for i := range v.Washing {
				add(stage, v.Washing[i].StartTime, v.Washing[i].EndTime)
			}
		default:
			w := v.Window(stage)
			add(stage, w.Start, w.End)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return timelineKey(entries[i]).Before(timelineKey(entries[j]))
	})
	return entries
}

// timelineKey orders entries by start time, falling back to end time for
// end-only stages (driverDrop).
func timelineKey(e TimelineEntry) time.Time {
	if e.StartTime != nil {
		return *e.StartTime
	}
	if e.EndTime != nil {
		return *e.EndTime
	}
	return time.Time{}
}
