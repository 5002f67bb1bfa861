// Package domain holds the core entities of the seller trust and
// governance workflow: seller profiles, audit events, and support tickets.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EstadoValidacion represents the KYC verification state of a seller.
type EstadoValidacion string

const (
	ValidacionPendiente EstadoValidacion = "pendiente"
	ValidacionAprobado  EstadoValidacion = "aprobado"
	ValidacionRechazado EstadoValidacion = "rechazado"
)

// EstadoAdmin represents the operational state of a seller.
type EstadoAdmin string

const (
	AdminActivo     EstadoAdmin = "activo"
	AdminInactivo   EstadoAdmin = "inactivo"
	AdminSuspendido EstadoAdmin = "suspendido"
)

// RiesgoKYC is the coarse risk tier derived from the KYC score.
type RiesgoKYC string

const (
	RiesgoBajo  RiesgoKYC = "bajo"
	RiesgoMedio RiesgoKYC = "medio"
	RiesgoAlto  RiesgoKYC = "alto"
)

// KYCChecklist is the fixed set of reviewer judgments. The shape is closed:
// the HTTP boundary rejects unknown keys, and an absent key reads as false.
type KYCChecklist struct {
	DPILegible         bool `json:"dpi_legible"`
	SelfieCoincide     bool `json:"selfie_coincide"`
	DatosCoinciden     bool `json:"datos_coinciden"`
	ComercioLegitimo   bool `json:"comercio_legitimo"`
	UbicacionCoherente bool `json:"ubicacion_coherente"`
}

// Items returns the checklist values in declaration order.
func (c KYCChecklist) Items() []bool {
	return []bool{c.DPILegible, c.SelfieCoincide, c.DatosCoinciden, c.ComercioLegitimo, c.UbicacionCoherente}
}

// Value implements driver.Valuer so the checklist persists as JSONB.
func (c KYCChecklist) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB columns.
func (c *KYCChecklist) Scan(value interface{}) error {
	if value == nil {
		*c = KYCChecklist{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type %T for kyc_checklist", value)
	}
	return json.Unmarshal(b, c)
}

// SellerProfile is the governed entity. It is created once at registration
// and mutated only through the governance service afterwards.
type SellerProfile struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	UserID           uuid.UUID        `json:"user_id" db:"user_id"`
	EstadoValidacion EstadoValidacion `json:"estado_validacion" db:"estado_validacion"`
	EstadoAdmin      EstadoAdmin      `json:"estado_admin" db:"estado_admin"`

	KYCChecklist  KYCChecklist `json:"kyc_checklist" db:"kyc_checklist"`
	KYCScore      int          `json:"kyc_score" db:"kyc_score"`
	KYCRiesgo     RiesgoKYC    `json:"kyc_riesgo" db:"kyc_riesgo"`
	KYCReviewedBy *uuid.UUID   `json:"kyc_reviewed_by,omitempty" db:"kyc_reviewed_by"`
	KYCReviewedAt *time.Time   `json:"kyc_reviewed_at,omitempty" db:"kyc_reviewed_at"`

	Observaciones *string `json:"observaciones,omitempty" db:"observaciones"`
	NotasInternas *string `json:"notas_internas,omitempty" db:"notas_internas"`

	// Opaque references to uploaded identity documents. The core never
	// inspects the bytes behind them, only whether they are present.
	DocDPIFrente  *string `json:"doc_dpi_frente,omitempty" db:"doc_dpi_frente"`
	DocDPIReverso *string `json:"doc_dpi_reverso,omitempty" db:"doc_dpi_reverso"`
	DocSelfie     *string `json:"doc_selfie,omitempty" db:"doc_selfie"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ValidarEstados reports whether a (validacion, admin) pair is legal.
// Every transition funnels through this one check so illegal combinations
// cannot be introduced from a single call site.
func ValidarEstados(v EstadoValidacion, a EstadoAdmin) error {
	switch v {
	case ValidacionPendiente, ValidacionAprobado, ValidacionRechazado:
	default:
		return fmt.Errorf("estado_validacion desconocido: %q", v)
	}
	switch a {
	case AdminActivo, AdminInactivo, AdminSuspendido:
	default:
		return fmt.Errorf("estado_admin desconocido: %q", a)
	}
	// Every combination of known values is representable: reactivation is an
	// administrative escape hatch and may set activo regardless of the
	// verification state.
	return nil
}
