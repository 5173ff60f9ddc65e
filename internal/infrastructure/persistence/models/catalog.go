package models

import (
	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/shopspring/decimal"
)

// DurationModel is a catalog entry for fixed booking lengths.
type DurationModel struct {
	BaseModel
	Name       string `gorm:"type:varchar(100);not null"`
	MonthCount int    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DurationModel) TableName() string {
	return "durations"
}

// ToDomain converts the persistence model to a domain Duration
func (m *DurationModel) ToDomain() *booking.Duration {
	return &booking.Duration{ID: m.ID, Name: m.Name, MonthCount: m.MonthCount}
}

// AddOnModel is a catalog add-on with its pricing tiers.
type AddOnModel struct {
	BaseModel
	Name string `gorm:"type:varchar(100);not null"`
	// Associations
	Pricing []AddOnPricingModel `gorm:"foreignKey:AddOnID;references:ID"`
}

// TableName returns the table name for GORM
func (AddOnModel) TableName() string {
	return "addons"
}

// ToDomain converts the persistence model to a domain AddOn
func (m *AddOnModel) ToDomain() booking.AddOn {
	a := booking.AddOn{
		ID:      m.ID,
		Name:    m.Name,
		Pricing: make([]booking.AddOnPricing, len(m.Pricing)),
	}
	for i, p := range m.Pricing {
		a.Pricing[i] = booking.AddOnPricing{
			ID:            p.ID,
			AddOnID:       p.AddOnID,
			IntervalStart: p.IntervalStart,
			IntervalEnd:   p.IntervalEnd,
			Price:         p.Price,
			IsFullPayment: p.IsFullPayment,
		}
	}
	return a
}

// AddOnModelFromDomain creates a new persistence model from a domain AddOn
func AddOnModelFromDomain(a booking.AddOn) *AddOnModel {
	m := &AddOnModel{Name: a.Name, Pricing: make([]AddOnPricingModel, len(a.Pricing))}
	m.ID = a.ID
	for i, p := range a.Pricing {
		id := p.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		m.Pricing[i] = AddOnPricingModel{
			ID:            id,
			AddOnID:       a.ID,
			IntervalStart: p.IntervalStart,
			IntervalEnd:   p.IntervalEnd,
			Price:         p.Price,
			IsFullPayment: p.IsFullPayment,
		}
	}
	return m
}

// AddOnPricingModel is one price tier of an add-on.
type AddOnPricingModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	AddOnID       uuid.UUID       `gorm:"column:addon_id;type:uuid;not null;index"`
	IntervalStart int             `gorm:"not null;default:0"`
	IntervalEnd   *int
	Price         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IsFullPayment bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (AddOnPricingModel) TableName() string {
	return "addon_pricings"
}
