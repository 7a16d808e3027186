package workflow

import (
	"encoding/json"
	"time"

	"workshop-backend/internal/models"
)

// RestartCooldown is the minimum gap before additionalWork or readyForWashing
// may be started again for the same vehicle.
const RestartCooldown = 10 * time.Minute

// Engine validates and applies stage transitions against an in-memory
// VehicleRecord. It is pure: loading, locking and persistence belong to the
// service layer. Validation runs before any mutation, so a rejected
// transition leaves the record untouched and produces no event.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Apply runs the (stage, eventType) transition on v at time now. On success
// the record is mutated and the event to append to the log is returned; on
// failure a ValidationError or InvalidStageError is returned and v is
// unchanged.
func (e *Engine) Apply(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) (*models.VehicleEvent, error) {
	if !models.KnownStage(req.Stage) {
		return nil, &InvalidStageError{Stage: req.Stage}
	}
	if !models.KnownEventType(req.EventType) {
		return nil, validationf(req.Stage, "unknown event type %q", req.EventType)
	}

	handler, ok := stageHandlers[req.Stage]
	if !ok {
		return nil, &InvalidStageError{Stage: req.Stage}
	}
	if err := handler(v, req, now); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(req.Payload)
	return &models.VehicleEvent{
		VehicleNumber: v.VehicleNumber,
		Stage:         req.Stage,
		EventType:     req.EventType,
		PerformedBy:   req.ActorID,
		Timestamp:     now,
		Payload:       payload,
	}, nil
}

type stageHandler func(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error

var stageHandlers = map[string]stageHandler{
	models.StagePickupDrop:      applyPickupDrop,
	models.StageSecurityGate:    applySecurityGate,
	models.StageInteractiveBay:  applyInteractiveBay,
	models.StageJobCardCreation: applyJobCardCreation,
	models.StageBayAllocation:   applyBayAllocation,
	models.StageRoadTest:        applyRoadTest,
	models.StageBayWork:         applyBayWork,
	models.StageAssignExpert:    applyAssignExpert,
	models.StageExpertStage:     applyExpertStage,
	models.StagePartsEstimation: applyPartsEstimation,
	models.StageAdditionalWork:  applyAdditionalWork,
	models.StagePartsOrder:      applyPartsOrder,
	models.StageFinalInspection: applyFinalInspection,
	models.StageJobCardReceived: applyJobCardReceived,
	models.StageReadyForWashing: applyReadyForWashing,
	models.StageWashing:         applyWashing,
	models.StageVASActivities:   applyVASActivities,
	models.StageDriverDrop:      applyDriverDrop,
}

// closeOpenStages stamps endTime=now and isCompleted=true on every stage with
// a start time and no end time. Triggered by securityGate End: the vehicle
// leaving the premises terminates whatever was still running. securityGate
// itself is stamped by its own handler; bayAllocation and driverDrop have no
// end concept and are skipped by CloseIfOpen.
func closeOpenStages(v *models.VehicleRecord, now time.Time) {
	for _, stage := range models.StageOrder {
		if stage == models.StageSecurityGate {
			continue
		}
		v.CloseIfOpen(stage, now)
	}
}

func applyPickupDrop(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	if req.EventType != models.EventStart {
		return validationf(req.Stage, "only Start is supported")
	}
	v.PickupDrop = &models.PickupDropSlot{
		StartTime:   &now,
		PerformedBy: req.ActorID,
		PickupKM:    req.Payload.PickupKM,
	}
	return nil
}

func applySecurityGate(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	p := req.Payload
	switch req.EventType {
	case models.EventStart:
		if p.BringBy != models.PartyDriver && p.BringBy != models.PartyCustomer {
			return validationf(req.Stage, "bringBy must be Driver or Customer")
		}
		if p.BringBy == models.PartyCustomer && p.CustomerName == "" {
			return validationf(req.Stage, "customerName is required when brought by customer")
		}
		v.SecurityGate = &models.SecurityGateSlot{
			StartTime:    &now,
			PerformedBy:  req.ActorID,
			InKM:         p.InKM,
			BringBy:      p.BringBy,
			CustomerName: p.CustomerName,
		}
		return nil

	case models.EventEnd:
		if p.TakeOutBy != models.PartyDriver && p.TakeOutBy != models.PartyCustomer {
			return validationf(req.Stage, "takeOutBy must be Driver or Customer")
		}
		if p.TakeOutBy == models.PartyCustomer && p.CustomerNameOut == "" {
			return validationf(req.Stage, "customerNameOut is required when taken out by customer")
		}
		// Gate-out may be recorded for a vehicle whose gate-in was never
		// logged; initialize the slot rather than reject.
		if v.SecurityGate == nil {
			v.SecurityGate = &models.SecurityGateSlot{}
		}
		v.SecurityGate.EndTime = &now
		v.SecurityGate.EndedBy = req.ActorID
		v.SecurityGate.OutKM = p.OutKM
		v.SecurityGate.TakeOutBy = p.TakeOutBy
		v.SecurityGate.CustomerNameOut = p.CustomerNameOut
		v.SecurityGate.IsCompleted = true
		closeOpenStages(v, now)
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyInteractiveBay(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	switch req.EventType {
	case models.EventStart:
		v.InteractiveBay = &models.InteractiveBaySlot{
			StartTime:   &now,
			PerformedBy: req.ActorID,
			WorkType:    req.Payload.WorkType,
		}
		return nil
	case models.EventEnd:
		if v.InteractiveBay == nil || v.InteractiveBay.StartTime == nil {
			return validationf(req.Stage, "cannot end a stage that was never started")
		}
		v.InteractiveBay.EndTime = &now
		v.InteractiveBay.EndedBy = req.ActorID
		v.InteractiveBay.IsCompleted = true
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyJobCardCreation(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	if req.EventType != models.EventStart {
		return validationf(req.Stage, "only Start is supported")
	}
	if req.Payload.Concern == "" {
		return validationf(req.Stage, "concern is required")
	}
	if v.JobCardCreation != nil && v.JobCardCreation.StartTime != nil {
		return validationf(req.Stage, "job card already created for this vehicle")
	}
	v.JobCardCreation = &models.JobCardCreationSlot{
		StartTime:   &now,
		PerformedBy: req.ActorID,
		Concerns:    []models.ConcernNote{{Comment: req.Payload.Concern, AddedAt: now}},
	}
	return nil
}

func applyBayAllocation(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	if req.EventType != models.EventStart {
		return validationf(req.Stage, "only Start is supported")
	}
	p := req.Payload
	if v.JobCardCreation == nil || v.JobCardCreation.StartTime == nil {
		return validationf(req.Stage, "bay allocation requires a job card")
	}
	if len(p.ServiceTypes) == 0 {
		return validationf(req.Stage, "at least one service type is required")
	}
	if len(p.Items) == 0 {
		return validationf(req.Stage, "at least one item is required")
	}

	first := len(v.BayAllocations) == 0
	if first {
		v.CloseIfOpen(models.StageJobCardCreation, now)
	} else {
		v.CloseIfOpen(models.StageAdditionalWork, now)
	}

	v.BayAllocations = append(v.BayAllocations, models.BayAllocationEntry{
		StartTime:         &now,
		PerformedBy:       req.ActorID,
		VehicleModel:      p.VehicleModel,
		JobDescription:    p.JobDescription,
		ServiceTypes:      p.ServiceTypes,
		Items:             p.Items,
		Technicians:       p.Technicians,
		IsFirstAllocation: first,
	})
	return nil
}

func applyRoadTest(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	switch req.EventType {
	case models.EventStart:
		v.RoadTest = &models.RoadTestSlot{StartTime: &now, PerformedBy: req.ActorID}
		return nil
	case models.EventEnd:
		if v.RoadTest == nil || v.RoadTest.StartTime == nil {
			return validationf(req.Stage, "cannot end a stage that was never started")
		}
		v.RoadTest.EndTime = &now
		v.RoadTest.IsCompleted = true
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyBayWork(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	p := req.Payload
	switch req.EventType {
	case models.EventStart:
		// Restart resets the observation log.
		v.BayWork = &models.BayWorkSlot{
			StartTime:   &now,
			PerformedBy: req.ActorID,
			WorkType:    p.WorkType,
			BayNumber:   p.BayNumber,
		}
		return nil
	case models.EventPause:
		if v.BayWork == nil || v.BayWork.StartTime == nil {
			return validationf(req.Stage, "cannot pause work that was never started")
		}
		v.BayWork.PauseTime = &now
		return nil
	case models.EventResume:
		if v.BayWork == nil || v.BayWork.StartTime == nil {
			return validationf(req.Stage, "cannot resume work that was never started")
		}
		v.BayWork.ResumeTime = &now
		return nil
	case models.EventEnd:
		if v.BayWork == nil || v.BayWork.StartTime == nil {
			return validationf(req.Stage, "cannot end work that was never started")
		}
		v.BayWork.EndTime = &now
		v.BayWork.EndedBy = req.ActorID
		v.BayWork.IsCompleted = true
		return nil
	case models.EventAdditionalWorkNeeded:
		if v.BayWork == nil || v.BayWork.StartTime == nil {
			return validationf(req.Stage, "cannot log additional work before work has started")
		}
		if p.Description == "" {
			return validationf(req.Stage, "description is required")
		}
		v.BayWork.AdditionalWorkLogs = append(v.BayWork.AdditionalWorkLogs,
			models.WorkNote{Description: p.Description, AddedAt: now})
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyAssignExpert(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	if req.EventType != models.EventStart {
		return validationf(req.Stage, "only Start is supported")
	}
	v.AssignExpert = &models.AssignExpertSlot{
		StartTime:   &now,
		PerformedBy: req.ActorID,
		ExpertName:  req.Payload.ExpertName,
	}
	return nil
}

func applyExpertStage(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	switch req.EventType {
	case models.EventStart:
		v.ExpertStage = &models.ExpertStageSlot{StartTime: &now, PerformedBy: req.ActorID}
		return nil
	case models.EventEnd:
		if v.ExpertStage == nil || v.ExpertStage.StartTime == nil {
			return validationf(req.Stage, "cannot end a stage that was never started")
		}
		v.ExpertStage.EndTime = &now
		v.ExpertStage.EndedBy = req.ActorID
		v.ExpertStage.IsCompleted = true
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyPartsEstimation(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	switch req.EventType {
	case models.EventStart:
		v.PartsEstimation = &models.PartsEstimationSlot{StartTime: &now, PerformedBy: req.ActorID}
		return nil
	case models.EventEnd:
		if v.PartsEstimation == nil || v.PartsEstimation.StartTime == nil {
			return validationf(req.Stage, "cannot end a stage that was never started")
		}
		v.PartsEstimation.EndTime = &now
		v.PartsEstimation.IsCompleted = true
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyAdditionalWork(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	if req.EventType != models.EventStart {
		return validationf(req.Stage, "only Start is supported")
	}
	if v.AdditionalWork != nil && v.AdditionalWork.StartTime != nil {
		if now.Sub(*v.AdditionalWork.StartTime) < RestartCooldown {
			return validationf(req.Stage, "started %s ago, wait %s between restarts",
				now.Sub(*v.AdditionalWork.StartTime).Round(time.Second), RestartCooldown)
		}
	}
	v.AdditionalWork = &models.AdditionalWorkSlot{StartTime: &now, PerformedBy: req.ActorID}
	return nil
}

func applyPartsOrder(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	if req.EventType != models.EventStart {
		return validationf(req.Stage, "only Start is supported")
	}
	v.PartsOrder = &models.PartsOrderSlot{
		StartTime:    &now,
		PerformedBy:  req.ActorID,
		DeliveryTime: req.Payload.DeliveryTime,
		PONumber:     req.Payload.PONumber,
	}
	return nil
}

func applyFinalInspection(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	switch req.EventType {
	case models.EventStart:
		v.FinalInspection = &models.FinalInspectionSlot{StartTime: &now, PerformedBy: req.ActorID}
		return nil
	case models.EventEnd:
		if v.FinalInspection == nil || v.FinalInspection.StartTime == nil {
			return validationf(req.Stage, "cannot end an inspection that was never started")
		}
		if req.Payload.RepairRequired == nil {
			return validationf(req.Stage, "repairRequired is required")
		}
		v.FinalInspection.EndTime = &now
		v.FinalInspection.RepairRequired = *req.Payload.RepairRequired
		v.FinalInspection.Remarks = req.Payload.Remarks
		v.FinalInspection.IsCompleted = true
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyJobCardReceived(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	switch req.EventType {
	case models.EventStart:
		v.JobCardReceived = &models.JobCardReceivedSlot{StartTime: &now, PerformedBy: req.ActorID}
		return nil
	case models.EventEnd:
		if v.JobCardReceived == nil || v.JobCardReceived.StartTime == nil {
			return validationf(req.Stage, "cannot end a stage that was never started")
		}
		v.JobCardReceived.EndTime = &now
		v.JobCardReceived.IsCompleted = true
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyReadyForWashing(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	if req.EventType != models.EventStart {
		return validationf(req.Stage, "only Start is supported")
	}
	if req.Payload.WashingType != models.WashingFree && req.Payload.WashingType != models.WashingPaid {
		return validationf(req.Stage, "washingType must be Free or Paid")
	}
	if v.ReadyForWashing != nil && v.ReadyForWashing.StartTime != nil {
		if now.Sub(*v.ReadyForWashing.StartTime) < RestartCooldown {
			return validationf(req.Stage, "started %s ago, wait %s between restarts",
				now.Sub(*v.ReadyForWashing.StartTime).Round(time.Second), RestartCooldown)
		}
	}
	v.ReadyForWashing = &models.ReadyForWashingSlot{
		StartTime:   &now,
		PerformedBy: req.ActorID,
		WashingType: req.Payload.WashingType,
	}
	return nil
}

func applyWashing(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	switch req.EventType {
	case models.EventStart:
		if last := v.LastWashing(); last != nil && !last.IsCompleted {
			return validationf(req.Stage, "previous washing session is still open")
		}
		v.CloseIfOpen(models.StageReadyForWashing, now)
		v.Washing = append(v.Washing, models.WashingEntry{StartTime: &now, PerformedBy: req.ActorID})
		return nil
	case models.EventEnd:
		last := v.LastWashing()
		if last == nil || last.IsCompleted || last.StartTime == nil {
			return validationf(req.Stage, "no open washing session to end")
		}
		last.EndTime = &now
		last.IsCompleted = true
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyVASActivities(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	switch req.EventType {
	case models.EventStart:
		v.VASActivities = &models.VASActivitiesSlot{StartTime: &now, PerformedBy: req.ActorID}
		return nil
	case models.EventEnd:
		if v.VASActivities == nil || v.VASActivities.StartTime == nil {
			return validationf(req.Stage, "cannot end a stage that was never started")
		}
		v.VASActivities.EndTime = &now
		v.VASActivities.IsCompleted = true
		return nil
	}
	return validationf(req.Stage, "unsupported event type %s", req.EventType)
}

func applyDriverDrop(v *models.VehicleRecord, req models.TransitionRequest, now time.Time) error {
	if req.EventType != models.EventEnd {
		return validationf(req.Stage, "only End is supported")
	}
	v.DriverDrop = &models.DriverDropSlot{
		EndTime:     &now,
		EndedBy:     req.ActorID,
		DropKM:      req.Payload.DropKM,
		IsCompleted: true,
	}
	return nil
}
