package repository

import (
	"context"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RatingRepository interface {
	Create(ctx context.Context, rating *domain.Rating) error
	ListByFlight(ctx context.Context, flightID int64) ([]domain.Rating, error)
	Exists(ctx context.Context, userID, flightID int64) (bool, error)
}

type PGRatingRepository struct {
	db *pgxpool.Pool
}

func NewRatingRepository(db *pgxpool.Pool) RatingRepository {
	return &PGRatingRepository{db: db}
}

func (r *PGRatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	err := r.db.QueryRow(ctx, `INSERT INTO ratings (user_id, flight_id, stars) VALUES ($1, $2, $3) RETURNING id, created_at`,
		rating.UserID, rating.FlightID, rating.Stars).Scan(&rating.ID, &rating.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyRated
	}
	return err
}

func (r *PGRatingRepository) ListByFlight(ctx context.Context, flightID int64) ([]domain.Rating, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, flight_id, stars, created_at FROM ratings WHERE flight_id=$1 ORDER BY created_at`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		var rt domain.Rating
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.FlightID, &rt.Stars, &rt.CreatedAt); err != nil {
			return nil, err
		}
		ratings = append(ratings, rt)
	}
	return ratings, rows.Err()
}

func (r *PGRatingRepository) Exists(ctx context.Context, userID, flightID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ratings WHERE user_id=$1 AND flight_id=$2)`, userID, flightID).Scan(&exists)
	return exists, err
}

var _ RatingRepository = (*PGRatingRepository)(nil)
