package models

import "github.com/google/uuid"

// RoomModel is the minimal room row read by the billing engine.
type RoomModel struct {
	BaseModel
	Number string `gorm:"type:varchar(50);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (RoomModel) TableName() string {
	return "rooms"
}

// TenantModel is the minimal tenant row read by the billing engine.
type TenantModel struct {
	BaseModel
	Name  string `gorm:"type:varchar(200);not null"`
	Phone string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// NewRoomModel creates a room row, used by seeding and tests
func NewRoomModel(number string) *RoomModel {
	m := &RoomModel{Number: number}
	m.ID = uuid.New()
	return m
}

// NewTenantModel creates a tenant row, used by seeding and tests
func NewTenantModel(name string) *TenantModel {
	m := &TenantModel{Name: name}
	m.ID = uuid.New()
	return m
}
