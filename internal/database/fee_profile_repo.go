package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"option-calc-go/internal/models"
)

// ErrProfileNotFound is returned when no fee profile has the requested name.
var ErrProfileNotFound = errors.New("fee profile not found")

// FeeProfileRepository reads the fee profile catalog.
type FeeProfileRepository interface {
	List(ctx context.Context) ([]models.FeeProfile, error)
	FindByName(ctx context.Context, name string) (*models.FeeProfile, error)
	Default(ctx context.Context) (*models.FeeProfile, error)
}

type feeProfileRepo struct {
	db *gorm.DB
}

// ensure feeProfileRepo implements the interface
var _ FeeProfileRepository = (*feeProfileRepo)(nil)

// NewFeeProfileRepo creates a repository over db.
func NewFeeProfileRepo(db *gorm.DB) FeeProfileRepository {
	return &feeProfileRepo{db: db}
}

func (r *feeProfileRepo) List(ctx context.Context) ([]models.FeeProfile, error) {
	var profiles []models.FeeProfile
	// default first, then alphabetical
	if err := r.db.WithContext(ctx).Order("is_default desc").Order("name asc").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list fee profiles: %w", err)
	}
	return profiles, nil
}

func (r *feeProfileRepo) FindByName(ctx context.Context, name string) (*models.FeeProfile, error) {
	var profile models.FeeProfile
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fee profile %s: %w", name, err)
	}
	return &profile, nil
}

func (r *feeProfileRepo) Default(ctx context.Context) (*models.FeeProfile, error) {
	var profile models.FeeProfile
	err := r.db.WithContext(ctx).Where("is_default = ?", true).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no default profile", ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default fee profile: %w", err)
	}
	return &profile, nil
}
