// Seed provisions a local admin account and a handful of sellers in the
// review queue. Development tool only.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"mercado/internal/auth"
	"mercado/internal/domain"
	"mercado/internal/repository/postgres"
	"mercado/pkg/config"
	"mercado/pkg/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("governance-seed")
	cfg := config.Load()
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	ctx := context.Background()
	users := postgres.NewUserRepository(db)
	sellers := postgres.NewSellerRepository(db)
	now := time.Now().UTC()

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
	}
	adminHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		log.Fatal("Failed to hash admin password", map[string]interface{}{
			"error": err.Error(),
		})
	}

	admin := &domain.User{
		ID:           uuid.New(),
		Email:        "admin@mercado.local",
		PasswordHash: adminHash,
		Nombre:       "Administrador",
		Rol:          domain.RolAdmin,
		CreatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatal("Failed to create admin", map[string]interface{}{
			"error": err.Error(),
		})
	}
	log.Info("Admin created", map[string]interface{}{
		"email":   admin.Email,
		"user_id": admin.ID,
	})

	sellerHash, err := auth.HashPassword("vendedor123")
	if err != nil {
		log.Fatal("Failed to hash seller password", map[string]interface{}{
			"error": err.Error(),
		})
	}

	for i := 1; i <= 3; i++ {
		user := &domain.User{
			ID:           uuid.New(),
			Email:        fmt.Sprintf("vendedor%d@mercado.local", i),
			PasswordHash: sellerHash,
			Nombre:       fmt.Sprintf("Vendedor %d", i),
			Rol:          domain.RolVendedor,
			CreatedAt:    now,
		}
		if err := users.Create(ctx, user); err != nil {
			log.Fatal("Failed to create seller user", map[string]interface{}{
				"email": user.Email,
				"error": err.Error(),
			})
		}

		frente := fmt.Sprintf("docs/%s/dpi-frente.jpg", user.ID)
		reverso := fmt.Sprintf("docs/%s/dpi-reverso.jpg", user.ID)
		selfie := fmt.Sprintf("docs/%s/selfie.jpg", user.ID)
		profile := &domain.SellerProfile{
			ID:               uuid.New(),
			UserID:           user.ID,
			EstadoValidacion: domain.ValidacionPendiente,
			EstadoAdmin:      domain.AdminInactivo,
			KYCRiesgo:        domain.RiesgoAlto,
			DocDPIFrente:     &frente,
			DocDPIReverso:    &reverso,
			DocSelfie:        &selfie,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := sellers.Create(ctx, profile); err != nil {
			log.Fatal("Failed to create seller profile", map[string]interface{}{
				"email": user.Email,
				"error": err.Error(),
			})
		}
		log.Info("Seller queued for review", map[string]interface{}{
			"email":   user.Email,
			"user_id": user.ID,
		})
	}
}
