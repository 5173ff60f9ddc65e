// Package booking provides the domain model for boarding-house bookings and their billing.
//
// This package implements the billing and reconciliation bounded context, which is responsible for:
//   - Splitting a booking's stay into monthly billing periods, prorating a partial first month
//   - Generating bills and bill items (rent, second resident fee, add-ons, deposit)
//   - Allocating payments across outstanding bills, automatically or per caller instruction
//   - Tracking the deposit lifecycle
//   - Keeping ledger transactions in line with payments and deposit events
//
// Key Aggregates:
//   - Booking: a room stay for one tenant, fixed-term or rolling
//   - Payment: money received for a booking and its allocations to bills
//
// Entities:
//   - Bill / BillItem: one bill per billed month and its line items
//   - Deposit: the single deposit held for a booking
//   - Transaction: a ledger row tagged with the payment, deposit or booking it mirrors
//
// Rooms, tenants, durations and the add-on catalog are read-only lookups owned elsewhere.
package booking
