package handlers

import (
	"net/http"

	"workshop-backend/internal/repositories"
	"workshop-backend/internal/services"
	"workshop-backend/internal/timeutil"
	"workshop-backend/internal/workflow"
	"workshop-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type DashboardHandler struct {
	DashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{DashboardService: dashboardService}
}

// SecurityGateHistory supports ?vehicleNumber=, ?from=YYYY-MM-DD and
// ?to=YYYY-MM-DD filters. Dates are interpreted in IST.
func (h *DashboardHandler) SecurityGateHistory(w http.ResponseWriter, r *http.Request) {
	filter := repositories.GateHistoryFilter{
		VehicleNumber: r.URL.Query().Get("vehicleNumber"),
	}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := timeutil.ParseInIST(timeutil.DateLayout, from)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := timeutil.ParseInIST(timeutil.DateLayout, to)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		end := timeutil.EndOfDay(t)
		filter.To = &end
	}

	movements, err := h.DashboardService.SecurityGateHistory(r.Context(), filter)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if movements == nil {
		movements = []services.GateMovement{}
	}
	utils.JSON(w, http.StatusOK, movements)
}

func (h *DashboardHandler) StageProgress(w http.ResponseWriter, r *http.Request) {
	stage := mux.Vars(r)["stage"]

	rows, err := h.DashboardService.StageProgress(r.Context(), stage)
	if err != nil {
		if workflow.IsValidation(err) {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []services.StageProgressRow{}
	}
	utils.JSON(w, http.StatusOK, rows)
}

func (h *DashboardHandler) SecurityStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.DashboardService.SecurityStatsSummary(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Cache-Control", "max-age=120")
	utils.JSON(w, http.StatusOK, stats)
}
