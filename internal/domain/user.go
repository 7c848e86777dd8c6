package domain

import "time"

type UserRole string

const (
	UserRoleUser    UserRole = "USER"
	UserRoleManager UserRole = "MANAGER"
	UserRoleAdmin   UserRole = "ADMIN"
)

type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         UserRole
	BalanceCents int64
	DateOfBirth  *time.Time
	ProfileImage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
