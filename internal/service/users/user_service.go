package users

import (
	"context"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/avelic/skyfare/internal/repository"
)

type UserUseCase interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// Debit and Credit are the ledger operations behind the internal
	// endpoints the flight service calls. Both are idempotent per key.
	Debit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error)
	Credit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error)
}

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) Debit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	return s.users.Debit(ctx, userID, amountCents, idempotencyKey)
}

func (s *UserService) Credit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	return s.users.Credit(ctx, userID, amountCents, idempotencyKey)
}

var _ UserUseCase = (*UserService)(nil)
