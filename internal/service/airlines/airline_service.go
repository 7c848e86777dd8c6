package airlines

import (
	"context"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/avelic/skyfare/internal/repository"
)

type AirlineUseCase interface {
	List(ctx context.Context) ([]domain.Airline, error)
	GetByID(ctx context.Context, id int64) (*domain.Airline, error)
	Create(ctx context.Context, name, code, country string) (*domain.Airline, error)
	Delete(ctx context.Context, id int64) error
}

type AirlineService struct {
	airlines repository.AirlineRepository
}

func NewAirlineService(airlines repository.AirlineRepository) *AirlineService {
	return &AirlineService{airlines: airlines}
}

func (s *AirlineService) List(ctx context.Context) ([]domain.Airline, error) {
	return s.airlines.List(ctx)
}

func (s *AirlineService) GetByID(ctx context.Context, id int64) (*domain.Airline, error) {
	return s.airlines.GetByID(ctx, id)
}

func (s *AirlineService) Create(ctx context.Context, name, code, country string) (*domain.Airline, error) {
	airline := &domain.Airline{Name: name, Code: code, Country: country}
	if err := s.airlines.Create(ctx, airline); err != nil {
		return nil, err
	}
	return airline, nil
}

func (s *AirlineService) Delete(ctx context.Context, id int64) error {
	return s.airlines.Delete(ctx, id)
}

var _ AirlineUseCase = (*AirlineService)(nil)
