package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// OrderModel is the persistence representation of an order. The contract
// list and the pending payment snapshot are stored as JSON documents; the
// charge lock is a plain boolean column so the claim can be taken with a
// single conditional UPDATE.
type OrderModel struct {
	AggregateModel
	OrderID        string    `gorm:"uniqueIndex;not null"`
	State          string    `gorm:"not null;index"`
	OwnerID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Date           time.Time `gorm:"not null"`
	Contracts      string    `gorm:"type:jsonb;not null;default:'[]'"`
	PendingPayment *string   `gorm:"type:jsonb"`
	ChargeLock     bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts OrderModel to a domain order
func (m *OrderModel) ToDomain() (*ordering.Order, error) {
	order := &ordering.Order{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		OrderID:    m.OrderID,
		State:      ordering.OrderState(m.State),
		OwnerID:    m.OwnerID,
		Date:       m.Date,
		ChargeLock: m.ChargeLock,
	}

	if err := json.Unmarshal([]byte(m.Contracts), &order.Contracts); err != nil {
		return nil, fmt.Errorf("order %s: corrupt contracts document: %w", m.OrderID, err)
	}
	if m.PendingPayment != nil {
		var pending ordering.PendingPayment
		if err := json.Unmarshal([]byte(*m.PendingPayment), &pending); err != nil {
			return nil, fmt.Errorf("order %s: corrupt pending payment document: %w", m.OrderID, err)
		}
		order.PendingPayment = &pending
	}
	return order, nil
}

// FromDomain populates OrderModel from a domain order
func (m *OrderModel) FromDomain(order *ordering.Order) error {
	m.FromDomainAggregateRoot(order.BaseAggregateRoot)
	m.OrderID = order.OrderID
	m.State = string(order.State)
	m.OwnerID = order.OwnerID
	m.Date = order.Date
	m.ChargeLock = order.ChargeLock

	contracts, err := json.Marshal(order.Contracts)
	if err != nil {
		return fmt.Errorf("order %s: failed to marshal contracts: %w", order.OrderID, err)
	}
	m.Contracts = string(contracts)

	m.PendingPayment = nil
	if order.PendingPayment != nil {
		pending, err := json.Marshal(order.PendingPayment)
		if err != nil {
			return fmt.Errorf("order %s: failed to marshal pending payment: %w", order.OrderID, err)
		}
		document := string(pending)
		m.PendingPayment = &document
	}
	return nil
}

// OrganizationModel is the persistence representation of an owning
// organization
type OrganizationModel struct {
	AggregateModel
	Name              string `gorm:"uniqueIndex;not null"`
	AcquiredOfferings string `gorm:"type:jsonb;not null;default:'[]'"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts OrganizationModel to a domain organization
func (m *OrganizationModel) ToDomain() (*ordering.Organization, error) {
	org := &ordering.Organization{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Name: m.Name,
	}
	if err := json.Unmarshal([]byte(m.AcquiredOfferings), &org.AcquiredOfferings); err != nil {
		return nil, fmt.Errorf("organization %s: corrupt offerings document: %w", m.Name, err)
	}
	return org, nil
}

// FromDomain populates OrganizationModel from a domain organization
func (m *OrganizationModel) FromDomain(org *ordering.Organization) error {
	m.FromDomainAggregateRoot(org.BaseAggregateRoot)
	m.Name = org.Name

	offerings := org.AcquiredOfferings
	if offerings == nil {
		offerings = []uuid.UUID{}
	}
	encoded, err := json.Marshal(offerings)
	if err != nil {
		return fmt.Errorf("organization %s: failed to marshal offerings: %w", org.Name, err)
	}
	m.AcquiredOfferings = string(encoded)
	return nil
}

// OfferingModel is the persistence representation of a catalog offering
type OfferingModel struct {
	BaseModel
	OfferingID  string `gorm:"uniqueIndex;not null"`
	Name        string `gorm:"not null"`
	Description string
	AssetType   string `gorm:"index"`
}

// TableName returns the table name for GORM
func (OfferingModel) TableName() string {
	return "offerings"
}

// ToDomain converts OfferingModel to a domain offering
func (m *OfferingModel) ToDomain() *ordering.Offering {
	return &ordering.Offering{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		OfferingID:  m.OfferingID,
		Name:        m.Name,
		Description: m.Description,
		AssetType:   m.AssetType,
	}
}

// FromDomain populates OfferingModel from a domain offering
func (m *OfferingModel) FromDomain(offering *ordering.Offering) {
	m.FromDomainBaseEntity(offering.BaseEntity)
	m.OfferingID = offering.OfferingID
	m.Name = offering.Name
	m.Description = offering.Description
	m.AssetType = offering.AssetType
}
