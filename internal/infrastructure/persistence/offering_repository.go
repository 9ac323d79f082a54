package persistence

import (
	"context"
	"errors"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOfferingRepository implements OfferingRepository using GORM
type GormOfferingRepository struct {
	db *gorm.DB
}

// NewGormOfferingRepository creates a new GormOfferingRepository
func NewGormOfferingRepository(db *gorm.DB) *GormOfferingRepository {
	return &GormOfferingRepository{db: db}
}

// FindByID finds an offering by its ID
func (r *GormOfferingRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Offering, error) {
	var model models.OfferingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
