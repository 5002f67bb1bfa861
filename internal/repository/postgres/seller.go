package postgres

import (
	"context"
	"database/sql"

	"mercado/internal/domain"
	"mercado/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SellerRepository implements read-side seller profile persistence.
// Mutations go through the transactional store.
type SellerRepository struct {
	db *sqlx.DB
}

func NewSellerRepository(db *sqlx.DB) *SellerRepository {
	return &SellerRepository{db: db}
}

const sellerColumns = `
	id, user_id, estado_validacion, estado_admin,
	kyc_checklist, kyc_score, kyc_riesgo, kyc_reviewed_by, kyc_reviewed_at,
	observaciones, notas_internas,
	doc_dpi_frente, doc_dpi_reverso, doc_selfie,
	created_at, updated_at
`

// Create inserts a freshly registered seller profile. Owned by the
// registration flow; governance never creates profiles.
func (r *SellerRepository) Create(ctx context.Context, profile *domain.SellerProfile) error {
	query := `
		INSERT INTO seller_profiles (
			id, user_id, estado_validacion, estado_admin,
			kyc_checklist, kyc_score, kyc_riesgo, kyc_reviewed_by, kyc_reviewed_at,
			observaciones, notas_internas,
			doc_dpi_frente, doc_dpi_reverso, doc_selfie,
			created_at, updated_at
		) VALUES (
			:id, :user_id, :estado_validacion, :estado_admin,
			:kyc_checklist, :kyc_score, :kyc_riesgo, :kyc_reviewed_by, :kyc_reviewed_at,
			:observaciones, :notas_internas,
			:doc_dpi_frente, :doc_dpi_reverso, :doc_selfie,
			:created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return errors.Wrap(err, "failed to create seller profile")
	}
	return nil
}

// FindByUserID returns the profile owned by the given account.
func (r *SellerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.SellerProfile, error) {
	var profile domain.SellerProfile
	query := `SELECT ` + sellerColumns + ` FROM seller_profiles WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrSellerNotFound
		}
		return nil, errors.Wrap(err, "failed to find seller profile")
	}
	return &profile, nil
}

// ListByEstadoValidacion pages through sellers in a given verification
// state, oldest first so the review queue is FIFO.
func (r *SellerRepository) ListByEstadoValidacion(ctx context.Context, estado domain.EstadoValidacion, limit, offset int) ([]*domain.SellerProfile, error) {
	var profiles []*domain.SellerProfile
	query := `
		SELECT ` + sellerColumns + `
		FROM seller_profiles
		WHERE estado_validacion = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &profiles, query, estado, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to list seller profiles")
	}
	return profiles, nil
}

// CountByEstadoValidacion returns the queue depth for a verification state.
func (r *SellerRepository) CountByEstadoValidacion(ctx context.Context, estado domain.EstadoValidacion) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM seller_profiles WHERE estado_validacion = $1`
	if err := r.db.GetContext(ctx, &total, query, estado); err != nil {
		return 0, errors.Wrap(err, "failed to count seller profiles")
	}
	return total, nil
}
