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

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll returns every stored order
func (r *GormOrderRepository) FindAll(ctx context.Context) ([]ordering.Order, error) {
	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]ordering.Order, 0, len(orderModels))
	for i := range orderModels {
		order, err := orderModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// Save persists an order, creating it if it does not exist
func (r *GormOrderRepository) Save(ctx context.Context, order *ordering.Order) error {
	var model models.OrderModel
	if err := model.FromDomain(order); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// Delete removes an order
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.OrderModel{}, "id = ?", id).Error
}

// AcquireChargeLock atomically claims the order's charge lock. The claim is a
// single conditional UPDATE, so only one contender can ever observe the
// transition from unlocked to locked.
func (r *GormOrderRepository) AcquireChargeLock(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND charge_lock = ?", id, false).
		Update("charge_lock", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseChargeLock releases a previously acquired claim
func (r *GormOrderRepository) ReleaseChargeLock(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Update("charge_lock", false).Error
}
