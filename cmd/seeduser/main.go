// cmd/seeduser/main.go seeds the reference roles and a Super Admin account.
// Usage: SEED_ADMIN_PASSWORD=... go run ./cmd/seeduser
package main

import (
	"context"
	"os"

	"qist/internal/config"
	"qist/internal/infra"
	"qist/internal/model"
	"qist/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

var seedRoles = []struct {
	name  string
	perms datatypes.JSONMap
}{
	{model.RoleSuperAdmin, datatypes.JSONMap{"admin": true, "users.signup": true}},
	{model.RoleAdmin, datatypes.JSONMap{"admin": true}},
	{model.RoleVerificationOfficer, datatypes.JSONMap{"verifications.write": true}},
	{model.RoleSalesAgent, datatypes.JSONMap{"orders.create": true}},
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	roles := repository.NewRoleRepository(db)
	var superAdmin *model.Role
	for _, r := range seedRoles {
		role, err := roles.Ensure(ctx, r.name, r.perms)
		if err != nil {
			log.Fatal().Err(err).Str("role", r.name).Msg("failed to seed role")
		}
		if r.name == model.RoleSuperAdmin {
			superAdmin = role
		}
		log.Info().Uint("id", role.ID).Str("role", role.Name).Msg("role ready")
	}

	username := envOr("SEED_ADMIN_USERNAME", "admin")
	password := envOr("SEED_ADMIN_PASSWORD", "changeme")
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	user := model.User{
		FullName:     envOr("SEED_ADMIN_NAME", "Super Admin"),
		Username:     username,
		PasswordHash: string(hash),
		RoleID:       superAdmin.ID,
		Status:       model.UserStatusActive,
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "role_id", "status", "updated_at"}),
	}).Omit(clause.Associations).Create(&user).Error
	if err != nil {
		log.Fatal().Err(err).Msg("failed to upsert admin user")
	}
	log.Info().Str("username", username).Msg("super admin created or updated")
}
