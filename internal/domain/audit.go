package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction tags the administrative decision recorded by an audit event.
type AuditAction string

const (
	AuditKYCReviewed           AuditAction = "KYC_REVIEWED"
	AuditKYCApproved           AuditAction = "KYC_APPROVED"
	AuditKYCRejected           AuditAction = "KYC_REJECTED"
	AuditKYCDocumentsRequested AuditAction = "KYC_DOCUMENTS_REQUESTED"
	AuditSellerSuspended       AuditAction = "SELLER_SUSPENDED"
	AuditSellerReactivated     AuditAction = "SELLER_REACTIVATED"
	AuditTicketClosed          AuditAction = "TICKET_CLOSED"
)

// EntityType values used by governance audit events.
const (
	EntitySeller = "seller"
	EntityTicket = "ticket"
)

// Metadata is a JSON-compatible map persisted as JSONB.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(Metadata{})
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type %T for metadata", value)
	}
	return json.Unmarshal(b, m)
}

// AdminAuditEvent is an immutable record of one committed governance
// decision. Rows are append-only; there is no update or delete path.
type AdminAuditEvent struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	EntityType  string      `json:"entity_type" db:"entity_type"`
	EntityID    uuid.UUID   `json:"entity_id" db:"entity_id"`
	Action      AuditAction `json:"action" db:"action"`
	PerformedBy uuid.UUID   `json:"performed_by" db:"performed_by"`
	Comment     *string     `json:"comment,omitempty" db:"comment"`
	Metadata    Metadata    `json:"metadata" db:"metadata"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// AuditableChange accumulates the before/after snapshot of exactly the
// fields an operation touched, so every mutating path is audited the same
// way. Set records a field only when old and new actually differ.
type AuditableChange struct {
	before  Metadata
	after   Metadata
	context Metadata
}

// NewAuditableChange returns an empty change set.
func NewAuditableChange() *AuditableChange {
	return &AuditableChange{before: Metadata{}, after: Metadata{}, context: Metadata{}}
}

// Set records a changed field. Unchanged values are dropped so the snapshot
// contains only the real delta.
func (c *AuditableChange) Set(field string, oldVal, newVal interface{}) *AuditableChange {
	if oldVal == newVal {
		return c
	}
	c.before[field] = oldVal
	c.after[field] = newVal
	return c
}

// Context attaches extra decision context (e.g. the score at approval
// time) without claiming the field changed.
func (c *AuditableChange) Context(key string, val interface{}) *AuditableChange {
	c.context[key] = val
	return c
}

// Metadata renders the change as the `{before, after, ...context}` shape
// stored on the audit event.
func (c *AuditableChange) Metadata() Metadata {
	m := Metadata{"before": c.before, "after": c.after}
	for k, v := range c.context {
		m[k] = v
	}
	return m
}

// Before exposes the before snapshot, primarily for tests.
func (c *AuditableChange) Before() Metadata { return c.before }

// After exposes the after snapshot, primarily for tests.
func (c *AuditableChange) After() Metadata { return c.after }
