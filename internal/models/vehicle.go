package models

import (
	"encoding/json"
	"time"
)

// StageSet holds every stage slot of one vehicle. It is persisted as a single
// JSONB document keyed by the legacy camelCase field names; external reporting
// code reads this layout directly, so the JSON tags are a durable contract.
type StageSet struct {
	PickupDrop      *PickupDropSlot      `json:"pickupDrop,omitempty"`
	SecurityGate    *SecurityGateSlot    `json:"securityGate,omitempty"`
	InteractiveBay  *InteractiveBaySlot  `json:"interactiveBay,omitempty"`
	JobCardCreation *JobCardCreationSlot `json:"jobCardCreation,omitempty"`
	BayAllocations  []BayAllocationEntry `json:"bayAllocation,omitempty"`
	RoadTest        *RoadTestSlot        `json:"roadTest,omitempty"`
	BayWork         *BayWorkSlot         `json:"bayWork,omitempty"`
	AssignExpert    *AssignExpertSlot    `json:"assignExpert,omitempty"`
	ExpertStage     *ExpertStageSlot     `json:"expertStage,omitempty"`
	PartsEstimation *PartsEstimationSlot `json:"partsEstimation,omitempty"`
	AdditionalWork  *AdditionalWorkSlot  `json:"additionalWork,omitempty"`
	PartsOrder      *PartsOrderSlot      `json:"partsOrder,omitempty"`
	FinalInspection *FinalInspectionSlot `json:"finalInspection,omitempty"`
	JobCardReceived *JobCardReceivedSlot `json:"jobCardReceived,omitempty"`
	ReadyForWashing *ReadyForWashingSlot `json:"readyForWashing,omitempty"`
	Washing         []WashingEntry       `json:"washing,omitempty"`
	VASActivities   *VASActivitiesSlot   `json:"vasActivities,omitempty"`
	DriverDrop      *DriverDropSlot      `json:"driverDrop,omitempty"`
}

// StageWindow is the uniform timing view of one stage used by the closure
// rule, the active-stage scan and the timeline builder. For repeatable stages
// it reflects the most recent instance.
type StageWindow struct {
	Start *time.Time
	End   *time.Time
}

func (w StageWindow) Started() bool { return w.Start != nil }
func (w StageWindow) Ended() bool   { return w.End != nil }

// Open reports started-but-not-ended.
func (w StageWindow) Open() bool { return w.Start != nil && w.End == nil }

// LastWashing returns the most recent washing session, or nil.
func (s *StageSet) LastWashing() *WashingEntry {
	if len(s.Washing) == 0 {
		return nil
	}
	return &s.Washing[len(s.Washing)-1]
}

// Window returns the timing window for a stage. Unknown stages yield an
// empty window. driverDrop reports its end time only (it has no start);
// bayAllocation reports the latest allocation's start (allocations never end).
func (s *StageSet) Window(stage string) StageWindow {
	switch stage {
	case StagePickupDrop:
		if s.PickupDrop != nil {
			return StageWindow{s.PickupDrop.StartTime, s.PickupDrop.EndTime}
		}
	case StageSecurityGate:
		if s.SecurityGate != nil {
			return StageWindow{s.SecurityGate.StartTime, s.SecurityGate.EndTime}
		}
	case StageInteractiveBay:
		if s.InteractiveBay != nil {
			return StageWindow{s.InteractiveBay.StartTime, s.InteractiveBay.EndTime}
		}
	case StageJobCardCreation:
		if s.JobCardCreation != nil {
			return StageWindow{s.JobCardCreation.StartTime, s.JobCardCreation.EndTime}
		}
	case StageBayAllocation:
		if n := len(s.BayAllocations); n > 0 {
			return StageWindow{s.BayAllocations[n-1].StartTime, nil}
		}
	case StageRoadTest:
		if s.RoadTest != nil {
			return StageWindow{s.RoadTest.StartTime, s.RoadTest.EndTime}
		}
	case StageBayWork:
		if s.BayWork != nil {
			return StageWindow{s.BayWork.StartTime, s.BayWork.EndTime}
		}
	case StageAssignExpert:
		if s.AssignExpert != nil {
			return StageWindow{s.AssignExpert.StartTime, s.AssignExpert.EndTime}
		}
	case StageExpertStage:
		if s.ExpertStage != nil {
			return StageWindow{s.ExpertStage.StartTime, s.ExpertStage.EndTime}
		}
	case StagePartsEstimation:
		if s.PartsEstimation != nil {
			return StageWindow{s.PartsEstimation.StartTime, s.PartsEstimation.EndTime}
		}
	case StageAdditionalWork:
		if s.AdditionalWork != nil {
			return StageWindow{s.AdditionalWork.StartTime, s.AdditionalWork.EndTime}
		}
	case StagePartsOrder:
		if s.PartsOrder != nil {
			return StageWindow{s.PartsOrder.StartTime, s.PartsOrder.EndTime}
		}
	case StageFinalInspection:
		if s.FinalInspection != nil {
			return StageWindow{s.FinalInspection.StartTime, s.FinalInspection.EndTime}
		}
	case StageJobCardReceived:
		if s.JobCardReceived != nil {
			return StageWindow{s.JobCardReceived.StartTime, s.JobCardReceived.EndTime}
		}
	case StageReadyForWashing:
		if s.ReadyForWashing != nil {
			return StageWindow{s.ReadyForWashing.StartTime, s.ReadyForWashing.EndTime}
		}
	case StageWashing:
		if last := s.LastWashing(); last != nil {
			return StageWindow{last.StartTime, last.EndTime}
		}
	case StageVASActivities:
		if s.VASActivities != nil {
			return StageWindow{s.VASActivities.StartTime, s.VASActivities.EndTime}
		}
	case StageDriverDrop:
		if s.DriverDrop != nil {
			return StageWindow{nil, s.DriverDrop.EndTime}
		}
	}
	return StageWindow{}
}

// CloseIfOpen stamps the stage's open instance with endTime=now and
// isCompleted=true. Stages without an end concept (bayAllocation, driverDrop)
// are left untouched. Returns whether anything was closed.
func (s *StageSet) CloseIfOpen(stage string, now time.Time) bool {
	if !s.Window(stage).Open() {
		return false
	}
	t := now
	switch stage {
	case StagePickupDrop:
		s.PickupDrop.EndTime = &t
		s.PickupDrop.IsCompleted = true
	case StageSecurityGate:
		s.SecurityGate.EndTime = &t
		s.SecurityGate.IsCompleted = true
	case StageInteractiveBay:
		s.InteractiveBay.EndTime = &t
		s.InteractiveBay.IsCompleted = true
	case StageJobCardCreation:
		s.JobCardCreation.EndTime = &t
		s.JobCardCreation.IsCompleted = true
	case StageRoadTest:
		s.RoadTest.EndTime = &t
		s.RoadTest.IsCompleted = true
	case StageBayWork:
		s.BayWork.EndTime = &t
		s.BayWork.IsCompleted = true
	case StageAssignExpert:
		s.AssignExpert.EndTime = &t
		s.AssignExpert.IsCompleted = true
	case StageExpertStage:
		s.ExpertStage.EndTime = &t
		s.ExpertStage.IsCompleted = true
	case StagePartsEstimation:
		s.PartsEstimation.EndTime = &t
		s.PartsEstimation.IsCompleted = true
	case StageAdditionalWork:
		s.AdditionalWork.EndTime = &t
		s.AdditionalWork.IsCompleted = true
	case StagePartsOrder:
		s.PartsOrder.EndTime = &t
		s.PartsOrder.IsCompleted = true
	case StageFinalInspection:
		s.FinalInspection.EndTime = &t
		s.FinalInspection.IsCompleted = true
	case StageJobCardReceived:
		s.JobCardReceived.EndTime = &t
		s.JobCardReceived.IsCompleted = true
	case StageReadyForWashing:
		s.ReadyForWashing.EndTime = &t
		s.ReadyForWashing.IsCompleted = true
	case StageWashing:
		last := s.LastWashing()
		last.EndTime = &t
		last.IsCompleted = true
	case StageVASActivities:
		s.VASActivities.EndTime = &t
		s.VASActivities.IsCompleted = true
	default:
		return false
	}
	return true
}

// VehicleRecord is the per-vehicle document: the stage slots plus metadata.
// The append-only event log is stored separately and attached on demand.
type VehicleRecord struct {
	ID            int    `json:"id,omitempty"`
	VehicleNumber string `json:"vehicleNumber"`
	StageSet
	History   []VehicleEvent `json:"history,omitempty"`
	IsDeleted bool           `json:"isDeleted"`
	CreatedAt time.Time      `json:"createdAt,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt,omitempty"`
}

// NewVehicleRecord creates an empty record for a vehicle number seen for the
// first time. Vehicles are auto-created on their first transition request.
func NewVehicleRecord(number string) *VehicleRecord {
	return &VehicleRecord{VehicleNumber: number}
}

// VehicleEvent is one immutable event-log entry. Events are appended for
// accepted transitions and never mutated or deleted.
type VehicleEvent struct {
	ID            int             `json:"id,omitempty"`
	VehicleNumber string          `json:"vehicleNumber"`
	Stage         string          `json:"stage"`
	EventType     string          `json:"eventType"`
	PerformedBy   int             `json:"performedBy"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// TransitionPayload carries the stage-specific fields of a transition
// request. Each stage handler reads only its own fields; required fields are
// pointers where presence must be distinguished from the zero value.
type TransitionPayload struct {
	// pickupDrop / securityGate / driverDrop odometer readings
	PickupKM int `json:"pickupKM,omitempty"`
	InKM     int `json:"inKM,omitempty"`
	OutKM    int `json:"outKM,omitempty"`
	DropKM   int `json:"dropKM,omitempty"`

	// securityGate handover
	BringBy         string `json:"bringBy,omitempty"`
	TakeOutBy       string `json:"takeOutBy,omitempty"`
	CustomerName    string `json:"customerName,omitempty"`
	CustomerNameOut string `json:"customerNameOut,omitempty"`

	// interactiveBay / bayWork
	WorkType  string `json:"workType,omitempty"`
	BayNumber string `json:"bayNumber,omitempty"`

	// jobCardCreation
	Concern string `json:"concern,omitempty"`

	// bayAllocation
	VehicleModel   string           `json:"vehicleModel,omitempty"`
	JobDescription string           `json:"jobDescription,omitempty"`
	ServiceTypes   []string         `json:"serviceTypes,omitempty"`
	Items          []AllocationItem `json:"items,omitempty"`
	Technicians    []int            `json:"technicians,omitempty"`

	// bayWork AdditionalWorkNeeded
	Description string `json:"description,omitempty"`

	// assignExpert / partsOrder
	ExpertName   string     `json:"expertName,omitempty"`
	DeliveryTime *time.Time `json:"deliveryTime,omitempty"`
	PONumber     string     `json:"poNumber,omitempty"`

	// finalInspection
	RepairRequired *bool  `json:"repairRequired,omitempty"`
	Remarks        string `json:"remarks,omitempty"`

	// readyForWashing
	WashingType string `json:"washingType,omitempty"`
}

// TransitionRequest is one requested (stage, eventType) transition for a
// vehicle. ActorID comes from the authentication layer, never the body.
type TransitionRequest struct {
	VehicleNumber string            `json:"vehicleNumber"`
	Stage         string            `json:"stage"`
	EventType     string            `json:"eventType"`
	ActorID       int               `json:"-"`
	Payload       TransitionPayload `json:"payload"`
}
