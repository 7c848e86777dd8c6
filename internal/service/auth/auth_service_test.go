package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) Debit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	args := m.Called(ctx, userID, amountCents, idempotencyKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Credit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	args := m.Called(ctx, userID, amountCents, idempotencyKey)
	return args.Get(0).(int64), args.Error(1)
}

type MockLockoutStore struct {
	mock.Mock
}

func (m *MockLockoutStore) LoginFailures(ctx context.Context, addr string) (int64, error) {
	args := m.Called(ctx, addr)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLockoutStore) RecordLoginFailure(ctx context.Context, addr string, ttl time.Duration) (int64, error) {
	args := m.Called(ctx, addr, ttl)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLockoutStore) ClearLoginFailures(ctx context.Context, addr string) error {
	args := m.Called(ctx, addr)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestAuthService(users *MockUserRepository, lockout *MockLockoutStore) *AuthService {
	var store LockoutStore
	if lockout != nil {
		store = lockout
	}
	return NewAuthService(users, store, testLogger(), "test-secret", time.Hour, 3, 10*time.Minute)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(hash)
}

func TestAuthService_Register_Success(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newTestAuthService(mockUsers, nil)

	ctx := context.Background()
	mockUsers.On("Create", ctx, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 42
	}).Return(nil).Once()

	token, user, err := service.Register(ctx, RegisterInput{
		FirstName:         "Ava",
		LastName:          "Lind",
		Email:             "ava@example.com",
		Password:          "correct-horse",
		StartBalanceCents: 100000,
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, domain.UserRoleUser, user.Role)
	assert.Equal(t, int64(100000), user.BalanceCents)
	// The hash never echoes the raw password.
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))

	claims, err := ValidateToken(token, []byte("test-secret"))
	assert.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, string(domain.UserRoleUser), claims.Role)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newTestAuthService(mockUsers, nil)

	ctx := context.Background()
	mockUsers.On("Create", ctx, mock.Anything).Return(domain.ErrEmailTaken).Once()

	token, user, err := service.Register(ctx, RegisterInput{Email: "ava@example.com", Password: "correct-horse"})

	assert.Empty(t, token)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAuthService_Login_Success(t *testing.T) {
	mockUsers := &MockUserRepository{}
	mockLockout := &MockLockoutStore{}
	service := newTestAuthService(mockUsers, mockLockout)

	ctx := context.Background()
	stored := &domain.User{ID: 42, Email: "ava@example.com", PasswordHash: hashOf(t, "correct-horse"), Role: domain.UserRoleUser}

	mockLockout.On("LoginFailures", ctx, "10.0.0.1").Return(int64(0), nil).Once()
	mockUsers.On("GetByEmail", ctx, "ava@example.com").Return(stored, nil).Once()
	mockLockout.On("ClearLoginFailures", ctx, "10.0.0.1").Return(nil).Once()

	token, user, err := service.Login(ctx, "ava@example.com", "correct-horse", "10.0.0.1")

	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int64(42), user.ID)
	mockLockout.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	mockUsers := &MockUserRepository{}
	mockLockout := &MockLockoutStore{}
	service := newTestAuthService(mockUsers, mockLockout)

	ctx := context.Background()
	stored := &domain.User{ID: 42, Email: "ava@example.com", PasswordHash: hashOf(t, "correct-horse")}

	mockLockout.On("LoginFailures", ctx, "10.0.0.1").Return(int64(1), nil).Once()
	mockUsers.On("GetByEmail", ctx, "ava@example.com").Return(stored, nil).Once()
	mockLockout.On("RecordLoginFailure", ctx, "10.0.0.1", 10*time.Minute).Return(int64(2), nil).Once()

	token, user, err := service.Login(ctx, "ava@example.com", "wrong", "10.0.0.1")

	assert.Empty(t, token)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	mockLockout.AssertExpectations(t)
}

func TestAuthService_Login_UnknownEmailCountsAsFailure(t *testing.T) {
	mockUsers := &MockUserRepository{}
	mockLockout := &MockLockoutStore{}
	service := newTestAuthService(mockUsers, mockLockout)

	ctx := context.Background()

	mockLockout.On("LoginFailures", ctx, "10.0.0.1").Return(int64(0), nil).Once()
	mockUsers.On("GetByEmail", ctx, "ghost@example.com").Return(nil, domain.ErrUserNotFound).Once()
	mockLockout.On("RecordLoginFailure", ctx, "10.0.0.1", 10*time.Minute).Return(int64(1), nil).Once()

	// Unknown email and wrong password are indistinguishable to the caller.
	token, user, err := service.Login(ctx, "ghost@example.com", "whatever", "10.0.0.1")

	assert.Empty(t, token)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_Login_LockedOut(t *testing.T) {
	mockUsers := &MockUserRepository{}
	mockLockout := &MockLockoutStore{}
	service := newTestAuthService(mockUsers, mockLockout)

	ctx := context.Background()

	mockLockout.On("LoginFailures", ctx, "10.0.0.1").Return(int64(3), nil).Once()

	token, user, err := service.Login(ctx, "ava@example.com", "correct-horse", "10.0.0.1")

	assert.Empty(t, token)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, domain.ErrLoginLocked)

	// Locked-out callers never reach credential verification.
	mockUsers.AssertNotCalled(t, "GetByEmail")
}

func TestAuthService_Login_LockoutStoreDownAllowsAttempt(t *testing.T) {
	mockUsers := &MockUserRepository{}
	mockLockout := &MockLockoutStore{}
	service := newTestAuthService(mockUsers, mockLockout)

	ctx := context.Background()
	stored := &domain.User{ID: 42, Email: "ava@example.com", PasswordHash: hashOf(t, "correct-horse")}

	mockLockout.On("LoginFailures", ctx, "10.0.0.1").Return(int64(0), assert.AnError).Once()
	mockUsers.On("GetByEmail", ctx, "ava@example.com").Return(stored, nil).Once()
	mockLockout.On("ClearLoginFailures", ctx, "10.0.0.1").Return(nil).Once()

	token, _, err := service.Login(ctx, "ava@example.com", "correct-horse", "10.0.0.1")

	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestValidateToken_RejectsBadSignature(t *testing.T) {
	token, err := GenerateToken(42, "USER", time.Hour, []byte("key-one"))
	assert.NoError(t, err)

	claims, err := ValidateToken(token, []byte("key-two"))
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	token, err := GenerateToken(42, "USER", -time.Minute, []byte("key-one"))
	assert.NoError(t, err)

	claims, err := ValidateToken(token, []byte("key-one"))
	assert.Error(t, err)
	assert.Nil(t, claims)
}
