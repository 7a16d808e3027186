package repositories

import (
	"context"

	"workshop-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// VehicleEventRepository is the append-only event log. Rows are never
// updated or deleted; insertion order is the authoritative history order.
type VehicleEventRepository struct {
	DB *pgxpool.Pool
}

func NewVehicleEventRepository(db *pgxpool.Pool) *VehicleEventRepository {
	return &VehicleEventRepository{DB: db}
}

func (r *VehicleEventRepository) Append(ctx context.Context, e *models.VehicleEvent) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO vehicle_events(vehicle_number, stage, event_type, performed_by, occurred_at, payload)
         VALUES($1, $2, $3, $4, $5, $6)
         RETURNING id`,
		e.VehicleNumber, e.Stage, e.EventType, e.PerformedBy, e.Timestamp, e.Payload,
	).Scan(&e.ID)
}

// ListByVehicle returns the full event history in append order.
func (r *VehicleEventRepository) ListByVehicle(ctx context.Context, number string) ([]*models.VehicleEvent, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, vehicle_number, stage, event_type, performed_by, occurred_at, payload
         FROM vehicle_events WHERE vehicle_number=$1 ORDER BY id ASC`, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.VehicleEvent
	for rows.Next() {
		var e models.VehicleEvent
		if err := rows.Scan(&e.ID, &e.VehicleNumber, &e.Stage, &e.EventType,
			&e.PerformedBy, &e.Timestamp, &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// ListRecent returns the newest events across all vehicles, newest first.
// Used by the live monitor's catch-up view.
func (r *VehicleEventRepository) ListRecent(ctx context.Context, limit int) ([]*models.VehicleEvent, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, vehicle_number, stage, event_type, performed_by, occurred_at, payload
         FROM vehicle_events ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.VehicleEvent
	for rows.Next() {
		var e models.VehicleEvent
		if err := rows.Scan(&e.ID, &e.VehicleNumber, &e.Stage, &e.EventType,
			&e.PerformedBy, &e.Timestamp, &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
