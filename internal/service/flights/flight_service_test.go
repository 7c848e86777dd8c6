package flights

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) UpdateStatus(ctx context.Context, id int64, expected []domain.FlightStatus, to domain.FlightStatus, rejectionReason *string) (*domain.Flight, error) {
	args := m.Called(ctx, id, expected, to, rejectionReason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFlightRepository) MarkDeparted(ctx context.Context, now time.Time) ([]domain.Flight, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) MarkLanded(ctx context.Context, now time.Time) ([]domain.Flight, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

type MockAirlineRepository struct {
	mock.Mock
}

func (m *MockAirlineRepository) List(ctx context.Context) ([]domain.Airline, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Airline), args.Error(1)
}

func (m *MockAirlineRepository) GetByID(ctx context.Context, id int64) (*domain.Airline, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Airline), args.Error(1)
}

func (m *MockAirlineRepository) Create(ctx context.Context, airline *domain.Airline) error {
	args := m.Called(ctx, airline)
	return args.Error(0)
}

func (m *MockAirlineRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func (m *MockCache) InvalidateFlights(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestFlightService_List_CacheHit(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockFlights, mockAirlines, mockCache, testLogger())

	ctx := context.Background()
	cached := []domain.Flight{{ID: 1, Name: "SF-100", Status: domain.FlightStatusApproved}}

	mockCache.On("GetFlights", ctx).Return(cached, nil).Once()

	flights, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, cached, flights)
	mockFlights.AssertNotCalled(t, "List")
}

func TestFlightService_List_CacheMiss(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockFlights, mockAirlines, mockCache, testLogger())

	ctx := context.Background()
	stored := []domain.Flight{{ID: 1, Name: "SF-100", Status: domain.FlightStatusApproved}}

	mockCache.On("GetFlights", ctx).Return(nil, errors.New("cache miss")).Once()
	mockFlights.On("List", ctx).Return(stored, nil).Once()
	mockCache.On("SetFlights", ctx, stored).Return(nil).Once()

	flights, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, stored, flights)
	mockCache.AssertExpectations(t)
}

func TestFlightService_Create_UnknownAirline(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}

	service := NewFlightService(mockFlights, mockAirlines, nil, testLogger())

	ctx := context.Background()
	mockAirlines.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrAirlineNotFound).Once()

	flight, err := service.Create(ctx, CreateFlightInput{Name: "SF-100", AirlineID: 9})

	assert.Nil(t, flight)
	assert.ErrorIs(t, err, domain.ErrAirlineNotFound)
	mockFlights.AssertNotCalled(t, "Create")
}

func TestFlightService_Approve_Success(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockFlights, mockAirlines, mockCache, testLogger())

	ctx := context.Background()
	approved := &domain.Flight{ID: 1, Name: "SF-100", Status: domain.FlightStatusApproved}

	mockFlights.On("UpdateStatus", ctx, int64(1),
		[]domain.FlightStatus{domain.FlightStatusPending},
		domain.FlightStatusApproved, (*string)(nil)).Return(approved, nil).Once()
	mockCache.On("InvalidateFlights", ctx).Return(nil).Once()

	flight, err := service.Approve(ctx, 1)

	assert.NoError(t, err)
	assert.Equal(t, domain.FlightStatusApproved, flight.Status)
	mockFlights.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_Approve_WrongState(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}

	service := NewFlightService(mockFlights, mockAirlines, nil, testLogger())

	ctx := context.Background()

	mockFlights.On("UpdateStatus", ctx, int64(1), mock.Anything, domain.FlightStatusApproved, (*string)(nil)).
		Return(nil, domain.ErrStatusConflict).Once()
	mockFlights.On("GetByID", ctx, int64(1)).
		Return(&domain.Flight{ID: 1, Status: domain.FlightStatusRejected}, nil).Once()

	flight, err := service.Approve(ctx, 1)

	assert.Nil(t, flight)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestFlightService_Approve_NotFound(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}

	service := NewFlightService(mockFlights, mockAirlines, nil, testLogger())

	ctx := context.Background()

	mockFlights.On("UpdateStatus", ctx, int64(99), mock.Anything, domain.FlightStatusApproved, (*string)(nil)).
		Return(nil, domain.ErrStatusConflict).Once()
	mockFlights.On("GetByID", ctx, int64(99)).Return(nil, domain.ErrFlightNotFound).Once()

	flight, err := service.Approve(ctx, 99)

	assert.Nil(t, flight)
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
}

func TestFlightService_Reject_PassesReason(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}

	service := NewFlightService(mockFlights, mockAirlines, nil, testLogger())

	ctx := context.Background()
	reason := "route overlaps an existing flight"
	rejected := &domain.Flight{ID: 1, Status: domain.FlightStatusRejected, RejectionReason: &reason}

	mockFlights.On("UpdateStatus", ctx, int64(1),
		[]domain.FlightStatus{domain.FlightStatusPending},
		domain.FlightStatusRejected, &reason).Return(rejected, nil).Once()

	flight, err := service.Reject(ctx, 1, reason)

	assert.NoError(t, err)
	assert.Equal(t, domain.FlightStatusRejected, flight.Status)
	assert.Equal(t, &reason, flight.RejectionReason)
}

func TestFlightService_Delete_ProtectsFlownFlights(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}

	service := NewFlightService(mockFlights, mockAirlines, nil, testLogger())

	ctx := context.Background()

	for _, status := range []domain.FlightStatus{domain.FlightStatusInProgress, domain.FlightStatusCompleted} {
		mockFlights.On("GetByID", ctx, int64(1)).Return(&domain.Flight{ID: 1, Status: status}, nil).Once()

		err := service.Delete(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	}

	mockFlights.AssertNotCalled(t, "Delete")
}

func TestFlightService_AdvanceStatuses(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}
	mockCache := &MockCache{}

	service := NewFlightService(mockFlights, mockAirlines, mockCache, testLogger())

	ctx := context.Background()
	now := time.Now().UTC()
	landed := []domain.Flight{{ID: 1, Name: "SF-100", Status: domain.FlightStatusCompleted}}
	departed := []domain.Flight{{ID: 2, Name: "SF-200", Status: domain.FlightStatusInProgress}}

	mockFlights.On("MarkLanded", ctx, now).Return(landed, nil).Once()
	mockFlights.On("MarkDeparted", ctx, now).Return(departed, nil).Once()
	mockCache.On("InvalidateFlights", ctx).Return(nil).Times(2)

	changed, err := service.AdvanceStatuses(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, 2, changed)
	mockFlights.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_AdvanceStatuses_NothingDue(t *testing.T) {
	mockFlights := &MockFlightRepository{}
	mockAirlines := &MockAirlineRepository{}

	service := NewFlightService(mockFlights, mockAirlines, nil, testLogger())

	ctx := context.Background()
	now := time.Now().UTC()

	mockFlights.On("MarkLanded", ctx, now).Return([]domain.Flight{}, nil).Once()
	mockFlights.On("MarkDeparted", ctx, now).Return([]domain.Flight{}, nil).Once()

	changed, err := service.AdvanceStatuses(ctx, now)

	assert.NoError(t, err)
	assert.Equal(t, 0, changed)
}
