package ratings

import (
	"context"
	"errors"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/avelic/skyfare/internal/repository"
)

var ErrStarsOutOfRange = errors.New("rating must be between 1 and 5")

type RatingUseCase interface {
	Add(ctx context.Context, userID, flightID int64, stars int) (*domain.Rating, error)
	ListByFlight(ctx context.Context, flightID int64) ([]domain.Rating, float64, error)
}

type RatingService struct {
	ratings repository.RatingRepository
	flights repository.FlightRepository
}

func NewRatingService(ratings repository.RatingRepository, flights repository.FlightRepository) *RatingService {
	return &RatingService{ratings: ratings, flights: flights}
}

// Add records a 1-5 star rating. Only completed flights can be rated, and
// only once per user.
func (s *RatingService) Add(ctx context.Context, userID, flightID int64, stars int) (*domain.Rating, error) {
	if stars < 1 || stars > 5 {
		return nil, ErrStarsOutOfRange
	}

	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if flight.Status != domain.FlightStatusCompleted {
		return nil, domain.ErrFlightNotRatable
	}

	exists, err := s.ratings.Exists(ctx, userID, flightID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlreadyRated
	}

	rating := &domain.Rating{UserID: userID, FlightID: flightID, Stars: stars}
	if err := s.ratings.Create(ctx, rating); err != nil {
		return nil, err
	}
	return rating, nil
}

func (s *RatingService) ListByFlight(ctx context.Context, flightID int64) ([]domain.Rating, float64, error) {
	ratings, err := s.ratings.ListByFlight(ctx, flightID)
	if err != nil {
		return nil, 0, err
	}

	var average float64
	if len(ratings) > 0 {
		var sum int
		for _, r := range ratings {
			sum += r.Stars
		}
		average = float64(sum) / float64(len(ratings))
	}
	return ratings, average, nil
}

var _ RatingUseCase = (*RatingService)(nil)
