package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rol is the platform role of a user account.
type Rol string

const (
	RolComprador Rol = "comprador"
	RolVendedor  Rol = "vendedor"
	RolAdmin     Rol = "admin"
)

// User is the owning account behind a seller profile or admin identity.
// Registration and profile lifecycle beyond creation live outside this
// service; governance only needs identity and role.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Nombre       string    `json:"nombre" db:"nombre"`
	Rol          Rol       `json:"rol" db:"rol"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
