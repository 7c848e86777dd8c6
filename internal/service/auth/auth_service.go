package auth

import (
	"context"
	"time"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/avelic/skyfare/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type AuthUseCase interface {
	Register(ctx context.Context, input RegisterInput) (string, *domain.User, error)
	Login(ctx context.Context, email, password, remoteAddr string) (string, *domain.User, error)
}

// LockoutStore tracks failed login attempts per client address in an
// external keyed store so lockout survives process restarts and is shared
// across instances.
type LockoutStore interface {
	LoginFailures(ctx context.Context, addr string) (int64, error)
	RecordLoginFailure(ctx context.Context, addr string, ttl time.Duration) (int64, error)
	ClearLoginFailures(ctx context.Context, addr string) error
}

type RegisterInput struct {
	FirstName         string
	LastName          string
	Email             string
	Password          string
	DateOfBirth       *time.Time
	StartBalanceCents int64
}

type AuthService struct {
	users   repository.UserRepository
	lockout LockoutStore
	log     *logrus.Logger

	jwtKey      []byte
	tokenTTL    time.Duration
	maxFailures int64
	lockoutTTL  time.Duration
}

func NewAuthService(
	users repository.UserRepository,
	lockout LockoutStore,
	log *logrus.Logger,
	jwtSecret string,
	tokenTTL time.Duration,
	maxFailures int64,
	lockoutTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:       users,
		lockout:     lockout,
		log:         log,
		jwtKey:      []byte(jwtSecret),
		tokenTTL:    tokenTTL,
		maxFailures: maxFailures,
		lockoutTTL:  lockoutTTL,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (string, *domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	user := &domain.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         domain.UserRoleUser,
		BalanceCents: input.StartBalanceCents,
		DateOfBirth:  input.DateOfBirth,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", nil, err
	}

	token, err := GenerateToken(user.ID, string(user.Role), s.tokenTTL, s.jwtKey)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Login verifies credentials after checking the lockout counter for the
// caller's address. The counter is checked before password verification so
// a locked-out address cannot keep guessing passwords.
func (s *AuthService) Login(ctx context.Context, email, password, remoteAddr string) (string, *domain.User, error) {
	if s.lockout != nil {
		failures, err := s.lockout.LoginFailures(ctx, remoteAddr)
		if err != nil {
			s.log.WithError(err).Warn("auth: lockout store unavailable, allowing attempt")
		} else if failures >= s.maxFailures {
			return "", nil, domain.ErrLoginLocked
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.recordFailure(ctx, remoteAddr)
		return "", nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.recordFailure(ctx, remoteAddr)
		return "", nil, domain.ErrInvalidCredentials
	}

	if s.lockout != nil {
		if err := s.lockout.ClearLoginFailures(ctx, remoteAddr); err != nil {
			s.log.WithError(err).Warn("auth: clearing lockout counter failed")
		}
	}

	token, err := GenerateToken(user.ID, string(user.Role), s.tokenTTL, s.jwtKey)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) recordFailure(ctx context.Context, remoteAddr string) {
	if s.lockout == nil {
		return
	}
	if _, err := s.lockout.RecordLoginFailure(ctx, remoteAddr, s.lockoutTTL); err != nil {
		s.log.WithError(err).Warn("auth: recording login failure failed")
	}
}

var _ AuthUseCase = (*AuthService)(nil)
