package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// UserOverview is the admin listing row.
type UserOverview struct {
	User
	CurrentReservation *Reservation
}

// Identity is produced once by the identity provider and trusted by the core.
type Identity struct {
	SubjectID uuid.UUID
	Role      Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
