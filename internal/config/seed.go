package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loltft/rudefriend/internal/hash"
	"github.com/loltft/rudefriend/internal/models"
)

// SeedSuperMember ensures the bootstrap SUPER account exists. A concurrent
// start racing on the unique login id is recovered by re-fetching instead of
// failing the boot.
func SeedSuperMember(db *gorm.DB, logger *slog.Logger) error {
	const (
		memberID = "super"
		password = "1234"
	)

	var existing models.Member
	err := db.Where("member_id = ?", memberID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("seed lookup: %w", err)
	}

	encoded, err := hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("seed password: %w", err)
	}

	name := memberID
	member := models.Member{
		ID:       uuid.New(),
		MemberID: memberID,
		Password: encoded,
		Name:     &name,
		Status:   true,
		Role:     models.RoleSuper,
	}

	if err := db.Create(&member).Error; err != nil {
		// lost the race on the unique login id
		if ferr := db.Where("member_id = ?", memberID).First(&existing).Error; ferr == nil {
			logger.Warn("super member already created by another instance")
			return nil
		}
		return fmt.Errorf("seed create: %w", err)
	}

	logger.Info("super member created", "member_id", member.MemberID)
	return nil
}
