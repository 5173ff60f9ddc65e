// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free from
// ORM concerns.
//
// Structure:
//   - base.go: base persistence models (BaseModel, AggregateModel)
//   - booking.go: bookings, add-on associations and deposits
//   - bill.go: bills and bill items
//   - payment.go: payments and their bill allocations
//   - ledger.go: ledger transactions and their related tags
//   - catalog.go: durations, add-ons and add-on pricing tiers
//   - directory.go: rooms and tenants, read for existence checks
package models
