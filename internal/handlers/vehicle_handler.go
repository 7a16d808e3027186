package handlers

import (
	"encoding/json"
	"net/http"

	"workshop-backend/internal/middleware"
	"workshop-backend/internal/models"
	"workshop-backend/internal/services"
	"workshop-backend/internal/workflow"
	"workshop-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type VehicleHandler struct {
	VehicleService *services.VehicleService
}

func NewVehicleHandler(vehicleService *services.VehicleService) *VehicleHandler {
	return &VehicleHandler{VehicleService: vehicleService}
}

// VehicleCheck is the single transition endpoint: every stage start, pause,
// resume and end for every vehicle goes through here.
func (h *VehicleHandler) VehicleCheck(w http.ResponseWriter, r *http.Request) {
	var req models.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		req.ActorID = userID
	}

	view, err := h.VehicleService.ApplyTransition(r.Context(), req)
	if err != nil {
		switch {
		case workflow.IsValidation(err):
			utils.Error(w, http.StatusBadRequest, err.Error())
		case workflow.IsStoreError(err):
			utils.Error(w, http.StatusServiceUnavailable, "Storage unavailable, please retry")
		default:
			utils.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	utils.JSON(w, http.StatusOK, view)
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.VehicleService.List(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, vehicles)
}

func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	view, err := h.VehicleService.Get(r.Context(), number)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view == nil {
		utils.Error(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	utils.JSON(w, http.StatusOK, view)
}

func (h *VehicleHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	entries, err := h.VehicleService.Timeline(r.Context(), number)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []workflow.TimelineEntry{}
	}
	utils.JSON(w, http.StatusOK, entries)
}

func (h *VehicleHandler) History(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	events, err := h.VehicleService.History(r.Context(), number)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []*models.VehicleEvent{}
	}
	utils.JSON(w, http.StatusOK, events)
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	if err := h.VehicleService.SoftDelete(r.Context(), number); err != nil {
		if err.Error() == "vehicle not found" {
			utils.Error(w, http.StatusNotFound, err.Error())
			return
		}
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Vehicle deleted"})
}
