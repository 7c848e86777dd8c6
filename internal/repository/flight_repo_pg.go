package repository

import (
	"context"
	"errors"
	"time"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, flight *domain.Flight) error
	// UpdateStatus performs a compare-and-swap on the status column: the row
	// is only updated when its current status is one of expected. Returns
	// domain.ErrStatusConflict when the guard does not match.
	UpdateStatus(ctx context.Context, id int64, expected []domain.FlightStatus, to domain.FlightStatus, rejectionReason *string) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
	MarkDeparted(ctx context.Context, now time.Time) ([]domain.Flight, error)
	MarkLanded(ctx context.Context, now time.Time) ([]domain.Flight, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, name, airline_id, distance_km, duration_minutes, departure_time, departure_airport, arrival_airport, created_by_user_id, ticket_price_cents, status, rejection_reason, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.Name, &f.AirlineID, &f.DistanceKM, &f.DurationMinutes, &f.DepartureTime, &f.DepartureAirport, &f.ArrivalAirport, &f.CreatedByUserID, &f.TicketPriceCents, &f.Status, &f.RejectionReason, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFlightNotFound
	}
	return f, err
}

func (r *PGFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	flight.Status = domain.FlightStatusPending
	return r.db.QueryRow(ctx, `INSERT INTO flights (name, airline_id, distance_km, duration_minutes, departure_time, departure_airport, arrival_airport, created_by_user_id, ticket_price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		flight.Name, flight.AirlineID, flight.DistanceKM, flight.DurationMinutes, flight.DepartureTime, flight.DepartureAirport, flight.ArrivalAirport, flight.CreatedByUserID, flight.TicketPriceCents, flight.Status).
		Scan(&flight.ID, &flight.CreatedAt, &flight.UpdatedAt)
}

func (r *PGFlightRepository) UpdateStatus(ctx context.Context, id int64, expected []domain.FlightStatus, to domain.FlightStatus, rejectionReason *string) (*domain.Flight, error) {
	guard := make([]string, len(expected))
	for i, s := range expected {
		guard[i] = string(s)
	}
	f, err := scanFlight(r.db.QueryRow(ctx, `UPDATE flights SET status=$1, rejection_reason=COALESCE($2, rejection_reason), updated_at=now() WHERE id=$3 AND status = ANY($4) RETURNING `+flightColumns,
		to, rejectionReason, id, guard))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStatusConflict
	}
	return f, err
}

func (r *PGFlightRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (r *PGFlightRepository) MarkDeparted(ctx context.Context, now time.Time) ([]domain.Flight, error) {
	return r.collectUpdated(ctx, `UPDATE flights SET status=$1, updated_at=now()
		WHERE status=$2 AND departure_time <= $3 AND departure_time + make_interval(mins => duration_minutes) > $3
		RETURNING `+flightColumns,
		domain.FlightStatusInProgress, domain.FlightStatusApproved, now)
}

func (r *PGFlightRepository) MarkLanded(ctx context.Context, now time.Time) ([]domain.Flight, error) {
	return r.collectUpdated(ctx, `UPDATE flights SET status=$1, updated_at=now()
		WHERE status = ANY($2) AND departure_time + make_interval(mins => duration_minutes) <= $3
		RETURNING `+flightColumns,
		domain.FlightStatusCompleted, []string{string(domain.FlightStatusApproved), string(domain.FlightStatusInProgress)}, now)
}

func (r *PGFlightRepository) collectUpdated(ctx context.Context, sql string, args ...any) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updated []domain.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *f)
	}
	return updated, rows.Err()
}

var _ FlightRepository = (*PGFlightRepository)(nil)
