package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"workshop-backend/internal/auth"
	"workshop-backend/internal/cache"
	"workshop-backend/internal/config"
	"workshop-backend/internal/database"
	"workshop-backend/internal/db"
	"workshop-backend/internal/handlers"
	"workshop-backend/internal/health"
	h "workshop-backend/internal/http"
	"workshop-backend/internal/middleware"
	"workshop-backend/internal/monitoring"
	"workshop-backend/internal/repositories"
	"workshop-backend/internal/services"
	"workshop-backend/internal/timeutil"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Connect to PostgreSQL
	pool := db.Connect(cfg)
	defer pool.Close()

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	if err := cache.Init(cfg); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (serving from Postgres only)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Run database migrations
	migrator := database.NewMigrator(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize health checker
	healthChecker := health.NewHealthChecker(pool)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	vehicleRepo := repositories.NewVehicleRepository(pool)
	eventRepo := repositories.NewVehicleEventRepository(pool)

	// Start live monitor server in background
	monitor := monitoring.NewMonitoringServer(pool, eventRepo, cfg.Monitoring.Port)
	go monitor.Start()

	// Initialize services
	userService := services.NewUserService(userRepo, jwtManager)
	vehicleService := services.NewVehicleService(vehicleRepo, eventRepo, timeutil.Now)
	vehicleService.SetBroadcaster(monitor)
	dashboardService := services.NewDashboardService(vehicleRepo, timeutil.Now)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	vehicleHandler := handlers.NewVehicleHandler(vehicleService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	router := h.NewRouter(authHandler, userHandler, vehicleHandler, dashboardHandler, healthHandler, authMiddleware)

	// Wrap with panic recovery and metrics middleware
	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
