package repository

import (
	"context"
	"errors"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *domain.Purchase) error
	GetByID(ctx context.Context, id string) (*domain.Purchase, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Purchase, error)
	ListByFlight(ctx context.Context, flightID int64) ([]domain.Purchase, error)
	// UpdateStatus is the compare-and-swap guard that makes settlement and
	// cancellation race-safe: the row moves to `to` only if it is still in
	// one of the expected states. Returns domain.ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, id string, expected []domain.PurchaseStatus, to domain.PurchaseStatus) (*domain.Purchase, error)
}

type PGPurchaseRepository struct {
	db *pgxpool.Pool
}

func NewPurchaseRepository(db *pgxpool.Pool) PurchaseRepository {
	return &PGPurchaseRepository{db: db}
}

const purchaseColumns = `id, user_id, flight_id, ticket_price_cents, status, created_at, updated_at`

func scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	var p domain.Purchase
	if err := row.Scan(&p.ID, &p.UserID, &p.FlightID, &p.TicketPriceCents, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPurchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	purchase.Status = domain.PurchaseStatusInProgress
	return r.db.QueryRow(ctx, `INSERT INTO purchases (id, user_id, flight_id, ticket_price_cents, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		purchase.ID, purchase.UserID, purchase.FlightID, purchase.TicketPriceCents, purchase.Status).
		Scan(&purchase.CreatedAt, &purchase.UpdatedAt)
}

func (r *PGPurchaseRepository) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	p, err := scanPurchase(r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPurchaseNotFound
	}
	return p, err
}

func (r *PGPurchaseRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	return r.list(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *PGPurchaseRepository) ListByFlight(ctx context.Context, flightID int64) ([]domain.Purchase, error) {
	return r.list(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE flight_id=$1 ORDER BY created_at`, flightID)
}

func (r *PGPurchaseRepository) UpdateStatus(ctx context.Context, id string, expected []domain.PurchaseStatus, to domain.PurchaseStatus) (*domain.Purchase, error) {
	guard := make([]string, len(expected))
	for i, s := range expected {
		guard[i] = string(s)
	}
	p, err := scanPurchase(r.db.QueryRow(ctx, `UPDATE purchases SET status=$1, updated_at=now() WHERE id=$2 AND status = ANY($3) RETURNING `+purchaseColumns,
		to, id, guard))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStatusConflict
	}
	return p, err
}

func (r *PGPurchaseRepository) list(ctx context.Context, sql string, args ...any) ([]domain.Purchase, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}

var _ PurchaseRepository = (*PGPurchaseRepository)(nil)
