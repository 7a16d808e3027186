package http

import (
	"net/http"

	"workshop-backend/internal/handlers"
	"workshop-backend/internal/middleware"
	"workshop-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	vehicleHandler *handlers.VehicleHandler,
	dashboardHandler *handlers.DashboardHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health and metrics
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.Detailed).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Protected API routes - Stage transitions
	// Every stage movement on the floor goes through this one endpoint.
	vehicleCheckAPI := r.PathPrefix("/api/vehicle-check").Subrouter()
	vehicleCheckAPI.Use(authMiddleware.Authenticate)
	vehicleCheckAPI.HandleFunc("", vehicleHandler.VehicleCheck).Methods("POST")

	// Protected API routes - Vehicles
	vehiclesAPI := r.PathPrefix("/api/vehicles").Subrouter()
	vehiclesAPI.Use(authMiddleware.Authenticate)
	vehiclesAPI.HandleFunc("", vehicleHandler.List).Methods("GET")
	vehiclesAPI.HandleFunc("/{number}", vehicleHandler.Get).Methods("GET")
	vehiclesAPI.HandleFunc("/{number}/timeline", vehicleHandler.Timeline).Methods("GET")
	vehiclesAPI.HandleFunc("/{number}/history", vehicleHandler.History).Methods("GET")
	vehiclesAPI.HandleFunc("/{number}", authMiddleware.RequireRole(models.RoleAdmin, models.RoleAdvisor)(http.HandlerFunc(vehicleHandler.Delete)).ServeHTTP).Methods("DELETE")

	// Protected API routes - Dashboard
	dashboardAPI := r.PathPrefix("/api/dashboard").Subrouter()
	dashboardAPI.Use(authMiddleware.Authenticate)
	dashboardAPI.HandleFunc("/security-gate-history", dashboardHandler.SecurityGateHistory).Methods("GET")
	dashboardAPI.HandleFunc("/progress/{stage}", dashboardHandler.StageProgress).Methods("GET")
	dashboardAPI.HandleFunc("/security-stats", dashboardHandler.SecurityStats).Methods("GET")

	// Protected API routes - Users (admin only)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.RequireRole(models.RoleAdmin))
	usersAPI.HandleFunc("", userHandler.List).Methods("GET")
	usersAPI.HandleFunc("/{id}/toggle-active", userHandler.SetActive).Methods("PATCH")

	return r
}
