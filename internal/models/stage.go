package models

import "time"

// Stage name constants. These are the wire names used by the mobile app and
// the persisted JSONB document, so they must never be renamed.
const (
	StagePickupDrop      = "pickupDrop"
	StageSecurityGate    = "securityGate"
	StageInteractiveBay  = "interactiveBay"
	StageJobCardCreation = "jobCardCreation"
	StageBayAllocation   = "bayAllocation"
	StageRoadTest        = "roadTest"
	StageBayWork         = "bayWork"
	StageAssignExpert    = "assignExpert"
	StageExpertStage     = "expertStage"
	StagePartsEstimation = "partsEstimation"
	StageAdditionalWork  = "additionalWork"
	StagePartsOrder      = "partsOrder"
	StageFinalInspection = "finalInspection"
	StageJobCardReceived = "jobCardReceived"
	StageReadyForWashing = "readyForWashing"
	StageWashing         = "washing"
	StageVASActivities   = "vasActivities"
	StageDriverDrop      = "driverDrop"
)

// StageOrder is the canonical ordered list of workshop stages. The closure
// rule, the active-stage scan and the timeline builder all iterate this list;
// nothing else may hard-code stage names for those purposes.
var StageOrder = []string{
	StagePickupDrop,
	StageSecurityGate,
	StageInteractiveBay,
	StageJobCardCreation,
	StageBayAllocation,
	StageRoadTest,
	StageBayWork,
	StageAssignExpert,
	StageExpertStage,
	StagePartsEstimation,
	StageAdditionalWork,
	StagePartsOrder,
	StageFinalInspection,
	StageJobCardReceived,
	StageReadyForWashing,
	StageWashing,
	StageVASActivities,
	StageDriverDrop,
}

// KnownStage reports whether name is one of the fixed stages.
func KnownStage(name string) bool {
	for _, s := range StageOrder {
		if s == name {
			return true
		}
	}
	return false
}

// Event type constants
const (
	EventStart                = "Start"
	EventPause                = "Pause"
	EventResume               = "Resume"
	EventEnd                  = "End"
	EventAdditionalWorkNeeded = "AdditionalWorkNeeded"
)

// KnownEventType reports whether name is a recognized event type.
func KnownEventType(name string) bool {
	switch name {
	case EventStart, EventPause, EventResume, EventEnd, EventAdditionalWorkNeeded:
		return true
	}
	return false
}

// Handover party constants (security gate) and washing types
const (
	PartyDriver   = "Driver"
	PartyCustomer = "Customer"

	WashingFree = "Free"
	WashingPaid = "Paid"
)

// ConcernNote is one customer concern recorded at job card creation.
type ConcernNote struct {
	Comment string    `json:"comment"`
	AddedAt time.Time `json:"addedAt"`
}

// WorkNote is one additional-work observation logged during bay work.
type WorkNote struct {
	Description string    `json:"description"`
	AddedAt     time.Time `json:"addedAt"`
}

// AllocationItem is one line item of a bay allocation with its FRT hours.
type AllocationItem struct {
	ItemDescription string  `json:"itemDescription"`
	FRTHours        float64 `json:"frtHours,omitempty"`
}

// PickupDropSlot records the driver pickup at the customer's location.
// Start-only; the end time is written only by the gate-out closure.
type PickupDropSlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	PickupKM    int        `json:"pickupKM,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

// SecurityGateSlot records the vehicle entering and leaving the premises.
type SecurityGateSlot struct {
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	PerformedBy     int        `json:"performedBy,omitempty"`
	EndedBy         int        `json:"endedBy,omitempty"`
	InKM            int        `json:"inKM,omitempty"`
	OutKM           int        `json:"outKM,omitempty"`
	BringBy         string     `json:"bringBy,omitempty"`
	CustomerName    string     `json:"customerName,omitempty"`
	TakeOutBy       string     `json:"takeOutBy,omitempty"`
	CustomerNameOut string     `json:"customerNameOut,omitempty"`
	IsCompleted     bool       `json:"isCompleted"`
}

type InteractiveBaySlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	EndedBy     int        `json:"endedBy,omitempty"`
	WorkType    string     `json:"workType,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

// JobCardCreationSlot is one-shot: a second Start for the same vehicle is
// rejected. Closed automatically by the first bay allocation.
type JobCardCreationSlot struct {
	StartTime   *time.Time    `json:"startTime,omitempty"`
	EndTime     *time.Time    `json:"endTime,omitempty"`
	PerformedBy int           `json:"performedBy,omitempty"`
	Concerns    []ConcernNote `json:"concerns,omitempty"`
	IsCompleted bool          `json:"isCompleted"`
}

// BayAllocationEntry is one allocation in the append-only allocation list.
// Allocations have no end event; isFirstAllocation is fixed at append time.
type BayAllocationEntry struct {
	StartTime         *time.Time       `json:"startTime,omitempty"`
	PerformedBy       int              `json:"performedBy,omitempty"`
	VehicleModel      string           `json:"vehicleModel,omitempty"`
	JobDescription    string           `json:"jobDescription,omitempty"`
	ServiceTypes      []string         `json:"serviceTypes,omitempty"`
	Items             []AllocationItem `json:"items,omitempty"`
	Technicians       []int            `json:"technicians,omitempty"`
	IsFirstAllocation bool             `json:"isFirstAllocation"`
}

type RoadTestSlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

// BayWorkSlot supports Start/Pause/Resume/End plus AdditionalWorkNeeded
// observations. Restarting bay work resets the observation log.
type BayWorkSlot struct {
	StartTime          *time.Time `json:"startTime,omitempty"`
	EndTime            *time.Time `json:"endTime,omitempty"`
	PauseTime          *time.Time `json:"pauseTime,omitempty"`
	ResumeTime         *time.Time `json:"resumeTime,omitempty"`
	PerformedBy        int        `json:"performedBy,omitempty"`
	EndedBy            int        `json:"endedBy,omitempty"`
	WorkType           string     `json:"workType,omitempty"`
	BayNumber          string     `json:"bayNumber,omitempty"`
	AdditionalWorkLogs []WorkNote `json:"additionalWorkLogs,omitempty"`
	IsCompleted        bool       `json:"isCompleted"`
}

type AssignExpertSlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	ExpertName  string     `json:"expertName,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

type ExpertStageSlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	EndedBy     int        `json:"endedBy,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

type PartsEstimationSlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

// AdditionalWorkSlot is start-only with a restart cooldown; it is closed by
// the next bay allocation or the gate-out closure.
type AdditionalWorkSlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

type PartsOrderSlot struct {
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	PerformedBy  int        `json:"performedBy,omitempty"`
	DeliveryTime *time.Time `json:"deliveryTime,omitempty"`
	PONumber     string     `json:"poNumber,omitempty"`
	IsCompleted  bool       `json:"isCompleted"`
}

type FinalInspectionSlot struct {
	StartTime      *time.Time `json:"startTime,omitempty"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	PerformedBy    int        `json:"performedBy,omitempty"`
	RepairRequired bool       `json:"repairRequired"`
	Remarks        string     `json:"remarks,omitempty"`
	IsCompleted    bool       `json:"isCompleted"`
}

type JobCardReceivedSlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

// ReadyForWashingSlot is start-only with a restart cooldown; it is closed
// implicitly when washing starts.
type ReadyForWashingSlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	WashingType string     `json:"washingType,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

// WashingEntry is one washing session. At most one session may be open at a
// time; sessions accumulate in an append-only list.
type WashingEntry struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

type VASActivitiesSlot struct {
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	PerformedBy int        `json:"performedBy,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}

// DriverDropSlot has no Start event: it records only the final handover.
type DriverDropSlot struct {
	EndTime     *time.Time `json:"endTime,omitempty"`
	EndedBy     int        `json:"endedBy,omitempty"`
	DropKM      int        `json:"dropKM,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
}
