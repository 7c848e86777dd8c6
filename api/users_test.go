package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserUseCase) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUseCase) Debit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	args := m.Called(ctx, userID, amountCents, idempotencyKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserUseCase) Credit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	args := m.Called(ctx, userID, amountCents, idempotencyKey)
	return args.Get(0).(int64), args.Error(1)
}

func TestUserHandler_debit(t *testing.T) {
	mockService := &MockUserUseCase{}
	handler := NewUserHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/internal/ledger/debit",
		strings.NewReader(`{"user_id":7,"amount_cents":15000,"idempotency_key":"p-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("Debit", c.Request.Context(), int64(7), int64(15000), "p-1").Return(int64(5000), nil)

	handler.debit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance_cents":5000`)
	mockService.AssertExpectations(t)
}

func TestUserHandler_debit_InsufficientFunds(t *testing.T) {
	mockService := &MockUserUseCase{}
	handler := NewUserHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/internal/ledger/debit",
		strings.NewReader(`{"user_id":7,"amount_cents":15000,"idempotency_key":"p-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("Debit", c.Request.Context(), int64(7), int64(15000), "p-1").Return(int64(0), domain.ErrInsufficientFunds)

	handler.debit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_FUNDS")
}

func TestUserHandler_debit_UnknownUser(t *testing.T) {
	mockService := &MockUserUseCase{}
	handler := NewUserHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/internal/ledger/debit",
		strings.NewReader(`{"user_id":99,"amount_cents":15000,"idempotency_key":"p-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("Debit", c.Request.Context(), int64(99), int64(15000), "p-1").Return(int64(0), domain.ErrUserNotFound)

	handler.debit(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "USER_NOT_FOUND")
}

func TestUserHandler_credit(t *testing.T) {
	mockService := &MockUserUseCase{}
	handler := NewUserHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/internal/ledger/credit",
		strings.NewReader(`{"user_id":7,"amount_cents":15000,"idempotency_key":"p-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("Credit", c.Request.Context(), int64(7), int64(15000), "p-1").Return(int64(20000), nil)

	handler.credit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance_cents":20000`)
}

func TestUserHandler_debit_MissingKey(t *testing.T) {
	mockService := &MockUserUseCase{}
	handler := NewUserHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/internal/ledger/debit",
		strings.NewReader(`{"user_id":7,"amount_cents":15000}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.debit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Debit")
}

func TestUserHandler_balance(t *testing.T) {
	mockService := &MockUserUseCase{}
	handler := NewUserHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("GET", "/internal/ledger/balance/7", nil)

	mockService.On("GetByID", c.Request.Context(), int64(7)).Return(&domain.User{ID: 7, BalanceCents: 5000}, nil)

	handler.balance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance_cents":5000`)
}
