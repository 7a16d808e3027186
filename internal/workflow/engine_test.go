package workflow

import (
	"testing"
	"time"

	"workshop-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

func boolPtr(b bool) *bool { return &b }

func apply(t *testing.T, e *Engine, v *models.VehicleRecord, stage, eventType string, payload models.TransitionPayload, now time.Time) *models.VehicleEvent {
	t.Helper()
	event, err := e.Apply(v, models.TransitionRequest{
		VehicleNumber: v.VehicleNumber,
		Stage:         stage,
		EventType:     eventType,
		ActorID:       7,
		Payload:       payload,
	}, now)
	require.NoError(t, err, "%s/%s", stage, eventType)
	return event
}

func applyErr(e *Engine, v *models.VehicleRecord, stage, eventType string, payload models.TransitionPayload, now time.Time) error {
	_, err := e.Apply(v, models.TransitionRequest{
		VehicleNumber: v.VehicleNumber,
		Stage:         stage,
		EventType:     eventType,
		Payload:       payload,
	}, now)
	return err
}

func allocationPayload() models.TransitionPayload {
	return models.TransitionPayload{
		VehicleModel: "Creta",
		ServiceTypes: []string{"Periodic Maintenance"},
		Items: []models.AllocationItem{
			{ItemDescription: "Engine oil replacement", FRTHours: 1.5},
		},
		Technicians: []int{12},
	}
}

func TestApplyRejectsUnknownStageAndEvent(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("MH12AB1234")

	err := applyErr(e, v, "paintBooth", models.EventStart, models.TransitionPayload{}, at(0))
	var ise *InvalidStageError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "paintBooth", ise.Stage)

	err = applyErr(e, v, models.StageRoadTest, "Finish", models.TransitionPayload{}, at(0))
	assert.True(t, IsValidation(err))
}

func TestFullJourneyHappyPath(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("MH12AB1234")

	apply(t, e, v, models.StagePickupDrop, models.EventStart, models.TransitionPayload{PickupKM: 42100}, at(0))
	apply(t, e, v, models.StageSecurityGate, models.EventStart, models.TransitionPayload{InKM: 42110, BringBy: models.PartyDriver}, at(10))
	apply(t, e, v, models.StageInteractiveBay, models.EventStart, models.TransitionPayload{WorkType: "General Service"}, at(15))
	apply(t, e, v, models.StageInteractiveBay, models.EventEnd, models.TransitionPayload{}, at(25))
	apply(t, e, v, models.StageJobCardCreation, models.EventStart, models.TransitionPayload{Concern: "AC not cooling"}, at(30))
	apply(t, e, v, models.StageBayAllocation, models.EventStart, allocationPayload(), at(40))
	apply(t, e, v, models.StageBayWork, models.EventStart, models.TransitionPayload{BayNumber: "B4"}, at(45))
	apply(t, e, v, models.StageBayWork, models.EventEnd, models.TransitionPayload{}, at(120))
	apply(t, e, v, models.StageFinalInspection, models.EventStart, models.TransitionPayload{}, at(125))
	apply(t, e, v, models.StageFinalInspection, models.EventEnd, models.TransitionPayload{RepairRequired: boolPtr(false), Remarks: "OK"}, at(135))
	apply(t, e, v, models.StageReadyForWashing, models.EventStart, models.TransitionPayload{WashingType: models.WashingFree}, at(140))
	apply(t, e, v, models.StageWashing, models.EventStart, models.TransitionPayload{}, at(150))
	apply(t, e, v, models.StageWashing, models.EventEnd, models.TransitionPayload{}, at(170))
	apply(t, e, v, models.StageSecurityGate, models.EventEnd, models.TransitionPayload{OutKM: 42130, TakeOutBy: models.PartyDriver}, at(180))
	apply(t, e, v, models.StageDriverDrop, models.EventEnd, models.TransitionPayload{DropKM: 42150}, at(200))

	// First allocation closed the job card.
	assert.True(t, v.JobCardCreation.IsCompleted)
	require.Len(t, v.BayAllocations, 1)
	assert.True(t, v.BayAllocations[0].IsFirstAllocation)

	// Washing start closed readyForWashing.
	assert.True(t, v.ReadyForWashing.IsCompleted)
	require.Len(t, v.Washing, 1)
	assert.True(t, v.Washing[0].IsCompleted)

	assert.True(t, v.SecurityGate.IsCompleted)
	assert.True(t, v.DriverDrop.IsCompleted)
	assert.Equal(t, 42150, v.DriverDrop.DropKM)
}

func TestSecurityGateStartValidation(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0001")

	err := applyErr(e, v, models.StageSecurityGate, models.EventStart, models.TransitionPayload{BringBy: "Postman"}, at(0))
	assert.True(t, IsValidation(err))

	err = applyErr(e, v, models.StageSecurityGate, models.EventStart, models.TransitionPayload{BringBy: models.PartyCustomer}, at(0))
	assert.True(t, IsValidation(err), "customer entry without customerName must fail")

	apply(t, e, v, models.StageSecurityGate, models.EventStart,
		models.TransitionPayload{BringBy: models.PartyCustomer, CustomerName: "Ravi"}, at(0))
	assert.Equal(t, "Ravi", v.SecurityGate.CustomerName)
}

func TestSecurityGateEndClosesOpenStages(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0002")

	apply(t, e, v, models.StageSecurityGate, models.EventStart, models.TransitionPayload{BringBy: models.PartyDriver}, at(0))
	apply(t, e, v, models.StageInteractiveBay, models.EventStart, models.TransitionPayload{}, at(5))
	apply(t, e, v, models.StageJobCardCreation, models.EventStart, models.TransitionPayload{Concern: "noise"}, at(10))
	apply(t, e, v, models.StageBayAllocation, models.EventStart, allocationPayload(), at(15))
	apply(t, e, v, models.StageBayWork, models.EventStart, models.TransitionPayload{}, at(20))

	exit := at(60)
	apply(t, e, v, models.StageSecurityGate, models.EventEnd,
		models.TransitionPayload{TakeOutBy: models.PartyDriver, OutKM: 100}, exit)

	assert.True(t, v.InteractiveBay.IsCompleted)
	assert.True(t, v.BayWork.IsCompleted)
	assert.Equal(t, exit, *v.InteractiveBay.EndTime)
	assert.Equal(t, exit, *v.BayWork.EndTime)
	assert.True(t, v.SecurityGate.IsCompleted)
}

func TestSecurityGateEndWithoutEntryInitializesSlot(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0003")

	apply(t, e, v, models.StageSecurityGate, models.EventEnd,
		models.TransitionPayload{TakeOutBy: models.PartyDriver, OutKM: 55}, at(0))

	require.NotNil(t, v.SecurityGate)
	assert.Nil(t, v.SecurityGate.StartTime)
	assert.True(t, v.SecurityGate.IsCompleted)
	assert.Equal(t, 55, v.SecurityGate.OutKM)
}

func TestJobCardCreationIsOneShot(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0004")

	err := applyErr(e, v, models.StageJobCardCreation, models.EventStart, models.TransitionPayload{}, at(0))
	assert.True(t, IsValidation(err), "missing concern must fail")

	apply(t, e, v, models.StageJobCardCreation, models.EventStart, models.TransitionPayload{Concern: "brakes"}, at(0))
	err = applyErr(e, v, models.StageJobCardCreation, models.EventStart, models.TransitionPayload{Concern: "again"}, at(5))
	assert.True(t, IsValidation(err), "second job card must fail")
	require.Len(t, v.JobCardCreation.Concerns, 1)
}

func TestBayAllocationPreconditionsAndClosures(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0005")

	err := applyErr(e, v, models.StageBayAllocation, models.EventStart, allocationPayload(), at(0))
	assert.True(t, IsValidation(err), "allocation without job card must fail")

	apply(t, e, v, models.StageJobCardCreation, models.EventStart, models.TransitionPayload{Concern: "service"}, at(0))

	p := allocationPayload()
	p.ServiceTypes = nil
	err = applyErr(e, v, models.StageBayAllocation, models.EventStart, p, at(5))
	assert.True(t, IsValidation(err), "allocation without service types must fail")

	p = allocationPayload()
	p.Items = nil
	err = applyErr(e, v, models.StageBayAllocation, models.EventStart, p, at(5))
	assert.True(t, IsValidation(err), "allocation without items must fail")

	apply(t, e, v, models.StageBayAllocation, models.EventStart, allocationPayload(), at(10))
	assert.True(t, v.JobCardCreation.IsCompleted, "first allocation closes job card")

	// Second allocation closes an open additionalWork round.
	apply(t, e, v, models.StageAdditionalWork, models.EventStart, models.TransitionPayload{}, at(20))
	apply(t, e, v, models.StageBayAllocation, models.EventStart, allocationPayload(), at(30))

	require.Len(t, v.BayAllocations, 2)
	assert.True(t, v.BayAllocations[0].IsFirstAllocation)
	assert.False(t, v.BayAllocations[1].IsFirstAllocation)
	assert.True(t, v.AdditionalWork.IsCompleted)
}

func TestBayWorkGuards(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0006")

	for _, eventType := range []string{models.EventPause, models.EventResume, models.EventEnd, models.EventAdditionalWorkNeeded} {
		err := applyErr(e, v, models.StageBayWork, eventType, models.TransitionPayload{Description: "x"}, at(0))
		assert.True(t, IsValidation(err), "%s before Start must fail", eventType)
	}

	apply(t, e, v, models.StageBayWork, models.EventStart, models.TransitionPayload{BayNumber: "B2"}, at(0))
	apply(t, e, v, models.StageBayWork, models.EventPause, models.TransitionPayload{}, at(10))
	apply(t, e, v, models.StageBayWork, models.EventResume, models.TransitionPayload{}, at(20))

	err := applyErr(e, v, models.StageBayWork, models.EventAdditionalWorkNeeded, models.TransitionPayload{}, at(25))
	assert.True(t, IsValidation(err), "additional work without description must fail")

	apply(t, e, v, models.StageBayWork, models.EventAdditionalWorkNeeded, models.TransitionPayload{Description: "clutch plate worn"}, at(25))
	require.Len(t, v.BayWork.AdditionalWorkLogs, 1)

	// Restarting resets the observation log.
	apply(t, e, v, models.StageBayWork, models.EventStart, models.TransitionPayload{BayNumber: "B3"}, at(40))
	assert.Empty(t, v.BayWork.AdditionalWorkLogs)
	assert.Nil(t, v.BayWork.PauseTime)
}

func TestAdditionalWorkRestartCooldown(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0007")

	apply(t, e, v, models.StageAdditionalWork, models.EventStart, models.TransitionPayload{}, at(0))

	err := applyErr(e, v, models.StageAdditionalWork, models.EventStart, models.TransitionPayload{}, at(9))
	assert.True(t, IsValidation(err), "restart inside cooldown must fail")

	apply(t, e, v, models.StageAdditionalWork, models.EventStart, models.TransitionPayload{}, at(10))
	assert.Equal(t, at(10), *v.AdditionalWork.StartTime)
}

func TestReadyForWashingValidationAndCooldown(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0008")

	err := applyErr(e, v, models.StageReadyForWashing, models.EventStart, models.TransitionPayload{WashingType: "Premium"}, at(0))
	assert.True(t, IsValidation(err))

	apply(t, e, v, models.StageReadyForWashing, models.EventStart, models.TransitionPayload{WashingType: models.WashingPaid}, at(0))

	err = applyErr(e, v, models.StageReadyForWashing, models.EventStart, models.TransitionPayload{WashingType: models.WashingPaid}, at(5))
	assert.True(t, IsValidation(err), "restart inside cooldown must fail")

	apply(t, e, v, models.StageReadyForWashing, models.EventStart, models.TransitionPayload{WashingType: models.WashingFree}, at(11))
	assert.Equal(t, models.WashingFree, v.ReadyForWashing.WashingType)
}

func TestWashingSingleOpenSession(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0009")

	err := applyErr(e, v, models.StageWashing, models.EventEnd, models.TransitionPayload{}, at(0))
	assert.True(t, IsValidation(err), "end without open session must fail")

	apply(t, e, v, models.StageReadyForWashing, models.EventStart, models.TransitionPayload{WashingType: models.WashingFree}, at(0))
	apply(t, e, v, models.StageWashing, models.EventStart, models.TransitionPayload{}, at(5))
	assert.True(t, v.ReadyForWashing.IsCompleted, "washing start closes readyForWashing")

	err = applyErr(e, v, models.StageWashing, models.EventStart, models.TransitionPayload{}, at(10))
	assert.True(t, IsValidation(err), "second open session must fail")

	apply(t, e, v, models.StageWashing, models.EventEnd, models.TransitionPayload{}, at(20))
	apply(t, e, v, models.StageWashing, models.EventStart, models.TransitionPayload{}, at(30))
	require.Len(t, v.Washing, 2)
}

func TestFinalInspectionRequiresVerdict(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0010")

	apply(t, e, v, models.StageFinalInspection, models.EventStart, models.TransitionPayload{}, at(0))

	err := applyErr(e, v, models.StageFinalInspection, models.EventEnd, models.TransitionPayload{}, at(10))
	assert.True(t, IsValidation(err), "end without repairRequired must fail")

	apply(t, e, v, models.StageFinalInspection, models.EventEnd,
		models.TransitionPayload{RepairRequired: boolPtr(true), Remarks: "repaint bumper"}, at(10))
	assert.True(t, v.FinalInspection.RepairRequired)
	assert.Equal(t, "repaint bumper", v.FinalInspection.Remarks)
}

func TestDriverDropIsEndOnly(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0011")

	err := applyErr(e, v, models.StageDriverDrop, models.EventStart, models.TransitionPayload{}, at(0))
	assert.True(t, IsValidation(err))

	apply(t, e, v, models.StageDriverDrop, models.EventEnd, models.TransitionPayload{DropKM: 9000}, at(0))
	assert.True(t, v.DriverDrop.IsCompleted)
}

func TestRejectedTransitionLeavesRecordUntouched(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0012")
	apply(t, e, v, models.StageRoadTest, models.EventStart, models.TransitionPayload{}, at(0))

	before := *v.RoadTest
	event, err := e.Apply(v, models.TransitionRequest{
		VehicleNumber: v.VehicleNumber,
		Stage:         models.StageBayAllocation,
		EventType:     models.EventStart,
		Payload:       models.TransitionPayload{},
	}, at(5))

	require.Error(t, err)
	assert.Nil(t, event, "rejected transition must not produce an event")
	assert.Equal(t, before, *v.RoadTest)
	assert.Empty(t, v.BayAllocations)
}

func TestAcceptedTransitionProducesEvent(t *testing.T) {
	e := NewEngine()
	v := models.NewVehicleRecord("KA01XY0013")

	event := apply(t, e, v, models.StagePickupDrop, models.EventStart, models.TransitionPayload{PickupKM: 120}, at(0))

	assert.Equal(t, "KA01XY0013", event.VehicleNumber)
	assert.Equal(t, models.StagePickupDrop, event.Stage)
	assert.Equal(t, models.EventStart, event.EventType)
	assert.Equal(t, 7, event.PerformedBy)
	assert.Equal(t, at(0), event.Timestamp)
	assert.Contains(t, string(event.Payload), `"pickupKM":120`)
}
