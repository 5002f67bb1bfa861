package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketTipo categorizes a support ticket.
type TicketTipo string

const (
	TicketTipoVerificacion TicketTipo = "verificacion"
	TicketTipoGeneral      TicketTipo = "general"
	TicketTipoPago         TicketTipo = "pago"
)

// TicketPrioridad is the triage priority of a ticket.
type TicketPrioridad string

const (
	PrioridadBaja  TicketPrioridad = "baja"
	PrioridadMedia TicketPrioridad = "media"
	PrioridadAlta  TicketPrioridad = "alta"
)

// TicketEstado is the lifecycle state of a ticket.
type TicketEstado string

const (
	TicketAbierto          TicketEstado = "abierto"
	TicketEnProceso        TicketEstado = "en_proceso"
	TicketEsperandoUsuario TicketEstado = "esperando_usuario"
	TicketCerrado          TicketEstado = "cerrado"
)

// Ticket is a support thread between a seller and the admin team. Escalation
// tickets (tipo verificacion) are opened by the governance service when an
// admin re-requests documentation.
type Ticket struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	Asunto     string          `json:"asunto" db:"asunto"`
	Mensaje    string          `json:"mensaje" db:"mensaje"`
	Tipo       TicketTipo      `json:"tipo" db:"tipo"`
	Prioridad  TicketPrioridad `json:"prioridad" db:"prioridad"`
	Estado     TicketEstado    `json:"estado" db:"estado"`
	AsignadoA  *uuid.UUID      `json:"asignado_a,omitempty" db:"asignado_a"`
	ClosedAt   *time.Time      `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// TicketMessage is one entry in a ticket thread.
type TicketMessage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TicketID  uuid.UUID `json:"ticket_id" db:"ticket_id"`
	SenderID  uuid.UUID `json:"sender_id" db:"sender_id"`
	Mensaje   string    `json:"mensaje" db:"mensaje"`
	EsAdmin   bool      `json:"es_admin" db:"es_admin"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
