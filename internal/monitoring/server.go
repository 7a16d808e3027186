package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"workshop-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// catchUpEvents is how many recent transitions a freshly connected display
// receives before live updates take over.
const catchUpEvents = 20

// EventSource supplies recent transition events for the catch-up push.
type EventSource interface {
	ListRecent(ctx context.Context, limit int) ([]*models.VehicleEvent, error)
}

// MonitoringServer runs the ops side-channel on its own port: a stats API
// for the floor display plus a websocket feed of live stage transitions.
type MonitoringServer struct {
	db         *pgxpool.Pool
	events     EventSource
	port       int
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan TransitionNotice
}

// TransitionNotice is the websocket message pushed to floor displays for
// every accepted stage transition.
type TransitionNotice struct {
	VehicleNumber string    `json:"vehicleNumber"`
	Stage         string    `json:"stage"`
	EventType     string    `json:"eventType"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

type SystemStats struct {
	DatabaseStatus    string  `json:"database_status"`
	ActiveConnections int     `json:"active_connections"`
	ResponseTime      int64   `json:"response_time_ms"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryPercent     float64 `json:"memory_percent"`
	DiskPercent       float64 `json:"disk_percent"`
	MemoryUsed        string  `json:"memory_used"`
	MemoryTotal       string  `json:"memory_total"`
	DiskUsed          string  `json:"disk_used"`
	DiskTotal         string  `json:"disk_total"`
	DBSize            string  `json:"db_size"`
	Uptime            string  `json:"uptime"`
	ConnectedClients  int     `json:"connected_clients"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewMonitoringServer(db *pgxpool.Pool, events EventSource, port int) *MonitoringServer {
	return &MonitoringServer{
		db:        db,
		events:    events,
		port:      port,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan TransitionNotice, 64),
	}
}

func (ms *MonitoringServer) Start() {
	r := mux.NewRouter()

	r.HandleFunc("/api/stats", ms.getStats).Methods("GET")

	// WebSocket for real-time transition updates
	r.HandleFunc("/ws", ms.handleWebSocket)

	go ms.handleBroadcast()

	addr := fmt.Sprintf(":%d", ms.port)
	log.Printf("[Monitoring] Live monitor running on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

// BroadcastTransition queues a transition notice for all connected clients.
// Non-blocking: when the channel is full the notice is dropped rather than
// stalling the request path.
func (ms *MonitoringServer) BroadcastTransition(vehicleNumber, stage, eventType, status string, at time.Time) {
	notice := TransitionNotice{
		VehicleNumber: vehicleNumber,
		Stage:         stage,
		EventType:     eventType,
		Status:        status,
		Timestamp:     at,
	}
	select {
	case ms.broadcast <- notice:
	default:
	}
}

func (ms *MonitoringServer) getStats(w http.ResponseWriter, r *http.Request) {
	stats := ms.collectStats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (ms *MonitoringServer) collectStats() SystemStats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := ms.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	dbStatus := "healthy"
	if err != nil {
		dbStatus = "unhealthy"
	}

	var activeConns int
	ms.db.QueryRow(ctx, "SELECT count(*) FROM pg_stat_activity").Scan(&activeConns)

	var dbSizeBytes int64
	ms.db.QueryRow(ctx, "SELECT pg_database_size(current_database())").Scan(&dbSizeBytes)
	dbSize := formatBytes(uint64(dbSizeBytes))

	var uptimeSec int
	ms.db.QueryRow(ctx, "SELECT EXTRACT(EPOCH FROM (NOW() - pg_postmaster_start_time()))::int").Scan(&uptimeSec)

	cpuPercents, _ := cpu.Percent(time.Second, false)
	cpuPercent := 0.0
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	ms.clientsMux.Lock()
	connected := len(ms.clients)
	ms.clientsMux.Unlock()

	return SystemStats{
		DatabaseStatus:    dbStatus,
		ActiveConnections: activeConns,
		ResponseTime:      responseTime,
		CPUPercent:        cpuPercent,
		MemoryPercent:     memStats.UsedPercent,
		DiskPercent:       diskStats.UsedPercent,
		MemoryUsed:        formatBytes(memStats.Used),
		MemoryTotal:       formatBytes(memStats.Total),
		DiskUsed:          formatBytes(diskStats.Used),
		DiskTotal:         formatBytes(diskStats.Total),
		DBSize:            dbSize,
		Uptime:            formatUptime(uptimeSec),
		ConnectedClients:  connected,
	}
}

func (ms *MonitoringServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	ms.clientsMux.Lock()
	ms.clients[conn] = true
	ms.clientsMux.Unlock()

	ms.sendCatchUp(conn)

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			ms.clientsMux.Lock()
			delete(ms.clients, conn)
			ms.clientsMux.Unlock()
			break
		}
	}
}

// sendCatchUp replays the most recent transitions to a freshly connected
// client, oldest first, so the display is not blank until the next live event.
func (ms *MonitoringServer) sendCatchUp(conn *websocket.Conn) {
	if ms.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	recent, err := ms.events.ListRecent(ctx, catchUpEvents)
	if err != nil {
		log.Printf("[Monitoring] Catch-up fetch failed: %v", err)
		return
	}

	// The store returns newest first; replay in chronological order.
	for i := len(recent) - 1; i >= 0; i-- {
		e := recent[i]
		notice := TransitionNotice{
			VehicleNumber: e.VehicleNumber,
			Stage:         e.Stage,
			EventType:     e.EventType,
			Timestamp:     e.Timestamp,
		}
		if err := conn.WriteJSON(notice); err != nil {
			return
		}
	}
}

func (ms *MonitoringServer) handleBroadcast() {
	for notice := range ms.broadcast {
		ms.clientsMux.Lock()
		for client := range ms.clients {
			err := client.WriteJSON(notice)
			if err != nil {
				client.Close()
				delete(ms.clients, client)
			}
		}
		ms.clientsMux.Unlock()
	}
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		mb := float64(bytes) / (1024 * 1024)
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}

func formatUptime(seconds int) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
