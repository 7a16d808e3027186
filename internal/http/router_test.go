package http

import (
	"net/http/httptest"
	"testing"

	"workshop-backend/internal/handlers"
	"workshop-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestRouterRegistersAllRoutes(t *testing.T) {
	r := NewRouter(
		&handlers.AuthHandler{},
		&handlers.UserHandler{},
		&handlers.VehicleHandler{},
		&handlers.DashboardHandler{},
		&handlers.HealthHandler{},
		&middleware.AuthMiddleware{},
	)

	routes := []struct{ method, path string }{
		{"POST", "/auth/signup"},
		{"POST", "/auth/login"},
		{"GET", "/health"},
		{"GET", "/health/ready"},
		{"GET", "/health/detailed"},
		{"GET", "/metrics"},
		{"POST", "/api/vehicle-check"},
		{"GET", "/api/vehicles"},
		{"GET", "/api/vehicles/MH12AB1234"},
		{"GET", "/api/vehicles/MH12AB1234/timeline"},
		{"GET", "/api/vehicles/MH12AB1234/history"},
		{"DELETE", "/api/vehicles/MH12AB1234"},
		{"GET", "/api/dashboard/security-gate-history"},
		{"GET", "/api/dashboard/progress/washing"},
		{"GET", "/api/dashboard/security-stats"},
		{"GET", "/api/users"},
		{"PATCH", "/api/users/4/toggle-active"},
	}
	for _, tt := range routes {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		var m mux.RouteMatch
		assert.True(t, r.Match(req, &m), "%s %s", tt.method, tt.path)
	}
}
