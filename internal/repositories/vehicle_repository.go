package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"workshop-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VehicleRepository stores one row per vehicle number. Stage slots are kept
// as a single JSONB document with the legacy camelCase field names so
// external reporting queries keep working against it.
type VehicleRepository struct {
	DB *pgxpool.Pool
}

func NewVehicleRepository(db *pgxpool.Pool) *VehicleRepository {
	return &VehicleRepository{DB: db}
}

// GetByNumber loads a vehicle record. Returns (nil, nil) when the vehicle
// has never been seen; the caller auto-creates it.
func (r *VehicleRepository) GetByNumber(ctx context.Context, number string) (*models.VehicleRecord, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, vehicle_number, stages, is_deleted, created_at, updated_at
         FROM vehicles WHERE vehicle_number=$1`, number)

	v, err := scanVehicle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// Save upserts the record keyed by vehicle number and refreshes the
// generated columns on the struct.
func (r *VehicleRepository) Save(ctx context.Context, v *models.VehicleRecord) error {
	stages, err := json.Marshal(v.StageSet)
	if err != nil {
		return fmt.Errorf("marshal stages: %w", err)
	}

	return r.DB.QueryRow(ctx,
		`INSERT INTO vehicles(vehicle_number, stages, is_deleted)
         VALUES($1, $2, $3)
         ON CONFLICT (vehicle_number)
         DO UPDATE SET stages=EXCLUDED.stages, is_deleted=EXCLUDED.is_deleted, updated_at=now()
         RETURNING id, created_at, updated_at`,
		v.VehicleNumber, stages, v.IsDeleted,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// List returns all non-deleted vehicles, most recent gate entry first.
func (r *VehicleRepository) List(ctx context.Context) ([]*models.VehicleRecord, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, vehicle_number, stages, is_deleted, created_at, updated_at
         FROM vehicles WHERE is_deleted = FALSE
         ORDER BY COALESCE((stages#>>'{securityGate,startTime}')::timestamptz, created_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVehicles(rows)
}

// ListWithStageStarted returns non-deleted vehicles where the given stage has
// a start time. Repeatable stages (washing, bayAllocation) are arrays in the
// document, so for those the latest instance's start is matched instead.
func (r *VehicleRepository) ListWithStageStarted(ctx context.Context, stage string) ([]*models.VehicleRecord, error) {
	query := `SELECT id, vehicle_number, stages, is_deleted, created_at, updated_at
         FROM vehicles
         WHERE is_deleted = FALSE AND stages->$1->>'startTime' IS NOT NULL
         ORDER BY (stages->$1->>'startTime')::timestamptz DESC`
	switch stage {
	case models.StageWashing, models.StageBayAllocation:
		query = `SELECT id, vehicle_number, stages, is_deleted, created_at, updated_at
         FROM vehicles
         WHERE is_deleted = FALSE AND stages->$1->-1->>'startTime' IS NOT NULL
         ORDER BY (stages->$1->-1->>'startTime')::timestamptz DESC`
	}

	rows, err := r.DB.Query(ctx, query, stage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVehicles(rows)
}

// GateHistoryFilter narrows the security-gate history view.
type GateHistoryFilter struct {
	VehicleNumber string
	From          *time.Time
	To            *time.Time
}

// ListGateHistory returns vehicles with a recorded gate entry, optionally
// filtered by partial vehicle number and entry date range.
func (r *VehicleRepository) ListGateHistory(ctx context.Context, f GateHistoryFilter) ([]*models.VehicleRecord, error) {
	query := `SELECT id, vehicle_number, stages, is_deleted, created_at, updated_at
              FROM vehicles
              WHERE stages#>>'{securityGate,startTime}' IS NOT NULL`
	args := []interface{}{}
	n := 0

	if f.VehicleNumber != "" {
		n++
		query += fmt.Sprintf(" AND vehicle_number ILIKE $%d", n)
		args = append(args, "%"+f.VehicleNumber+"%")
	}
	if f.From != nil {
		n++
		query += fmt.Sprintf(" AND (stages#>>'{securityGate,startTime}')::timestamptz >= $%d", n)
		args = append(args, *f.From)
	}
	if f.To != nil {
		n++
		query += fmt.Sprintf(" AND (stages#>>'{securityGate,startTime}')::timestamptz <= $%d", n)
		args = append(args, *f.To)
	}
	query += " ORDER BY (stages#>>'{securityGate,startTime}')::timestamptz DESC"

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVehicles(rows)
}

// CountGateEntries counts vehicles whose gate entry falls in [from, to].
func (r *VehicleRepository) CountGateEntries(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM vehicles
         WHERE (stages#>>'{securityGate,startTime}')::timestamptz BETWEEN $1 AND $2`,
		from, to).Scan(&count)
	return count, err
}

// CountGateExits counts vehicles whose gate exit falls in [from, to].
func (r *VehicleRepository) CountGateExits(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM vehicles
         WHERE (stages#>>'{securityGate,endTime}')::timestamptz BETWEEN $1 AND $2`,
		from, to).Scan(&count)
	return count, err
}

// ListInside returns vehicles currently on the premises: gate entry recorded,
// no gate exit.
func (r *VehicleRepository) ListInside(ctx context.Context) ([]*models.VehicleRecord, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, vehicle_number, stages, is_deleted, created_at, updated_at
         FROM vehicles
         WHERE is_deleted = FALSE
           AND stages#>>'{securityGate,startTime}' IS NOT NULL
           AND stages#>>'{securityGate,endTime}' IS NULL
         ORDER BY (stages#>>'{securityGate,startTime}')::timestamptz DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVehicles(rows)
}

// SoftDelete flags a vehicle as deleted. Records are never hard-deleted.
func (r *VehicleRepository) SoftDelete(ctx context.Context, number string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE vehicles SET is_deleted=TRUE, updated_at=now() WHERE vehicle_number=$1`, number)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("vehicle not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVehicle(row rowScanner) (*models.VehicleRecord, error) {
	var v models.VehicleRecord
	var stages []byte
	if err := row.Scan(&v.ID, &v.VehicleNumber, &stages, &v.IsDeleted, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stages, &v.StageSet); err != nil {
		return nil, fmt.Errorf("unmarshal stages for %s: %w", v.VehicleNumber, err)
	}
	return &v, nil
}

func collectVehicles(rows pgx.Rows) ([]*models.VehicleRecord, error) {
	var vehicles []*models.VehicleRecord
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
