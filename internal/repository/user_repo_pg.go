package repository

import (
	"context"
	"errors"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	// Debit atomically subtracts amountCents from the user balance, guarded
	// by balance >= amount inside the same statement. The idempotency key
	// (the purchase id) makes retried debits apply at most once.
	Debit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error)
	// Credit is the refund counterpart, idempotent under the same key.
	Credit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error)
}

type PGUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, password_hash, role, balance_cents, date_of_birth, profile_image, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role, &u.BalanceCents, &u.DateOfBirth, &u.ProfileImage, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PGUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.QueryRow(ctx, `INSERT INTO users (first_name, last_name, email, password_hash, role, balance_cents, date_of_birth, profile_image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Role, user.BalanceCents, user.DateOfBirth, user.ProfileImage).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *PGUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	return u, err
}

func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	return u, err
}

func (r *PGUserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *PGUserRepository) Debit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	return r.apply(ctx, userID, amountCents, idempotencyKey, "DEBIT")
}

func (r *PGUserRepository) Credit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	return r.apply(ctx, userID, amountCents, idempotencyKey, "CREDIT")
}

// ledgerTx is the slice of pgx.Tx that applyLedger issues statements
// through.
type ledgerTx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PGUserRepository) apply(ctx context.Context, userID, amountCents int64, idempotencyKey, direction string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	balance, err := applyLedger(ctx, tx, userID, amountCents, idempotencyKey, direction)
	if err != nil {
		return 0, err
	}
	return balance, tx.Commit(ctx)
}

func applyLedger(ctx context.Context, tx ledgerTx, userID, amountCents int64, idempotencyKey, direction string) (int64, error) {
	// Recording the ledger entry first lets a retried call with the same key
	// short-circuit before touching the balance again.
	cmd, err := tx.Exec(ctx, `INSERT INTO ledger_entries (idempotency_key, direction, user_id, amount_cents)
		VALUES ($1, $2, $3, $4) ON CONFLICT (idempotency_key, direction) DO NOTHING`,
		idempotencyKey, direction, userID, amountCents)
	if err != nil {
		return 0, err
	}
	if cmd.RowsAffected() == 0 {
		var balance int64
		if err := tx.QueryRow(ctx, `SELECT balance_cents FROM users WHERE id=$1`, userID).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, domain.ErrUserNotFound
			}
			return 0, err
		}
		return balance, nil
	}

	var query string
	if direction == "DEBIT" {
		query = `UPDATE users SET balance_cents = balance_cents - $1, updated_at = now() WHERE id=$2 AND balance_cents >= $1 RETURNING balance_cents`
	} else {
		query = `UPDATE users SET balance_cents = balance_cents + $1, updated_at = now() WHERE id=$2 RETURNING balance_cents`
	}

	var balance int64
	if err := tx.QueryRow(ctx, query, amountCents, userID).Scan(&balance); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, err
		}
		var exists bool
		if existsErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, userID).Scan(&exists); existsErr != nil {
			return 0, existsErr
		}
		if !exists {
			return 0, domain.ErrUserNotFound
		}
		return 0, domain.ErrInsufficientFunds
	}

	return balance, nil
}

var _ UserRepository = (*PGUserRepository)(nil)
