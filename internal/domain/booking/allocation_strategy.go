package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// AllocationMode selects how a payment is spread over bills
type AllocationMode string

const (
	AllocationModeAuto   AllocationMode = "auto"   // oldest due date first
	AllocationModeManual AllocationMode = "manual" // caller supplies per-bill amounts
)

// IsValid checks if the mode is valid
func (m AllocationMode) IsValid() bool {
	return m == AllocationModeAuto || m == AllocationModeManual
}

// String returns the string representation
func (m AllocationMode) String() string {
	return string(m)
}

// ErrManualAllocationMismatch is returned when manual amounts do not add up to the payment
var ErrManualAllocationMismatch = shared.NewDomainError("MANUAL_ALLOCATION_MISMATCH",
	"Total manual allocation must equal payment amount")

// AllocationTarget is a bill as seen by the allocator
type AllocationTarget struct {
	BillID      uuid.UUID
	Description string
	DueDate     time.Time
	CreatedAt   time.Time
	Outstanding decimal.Decimal // bill total minus what other payments already cover
}

// Allocation is one {bill, amount} pair produced by a strategy
type Allocation struct {
	BillID      uuid.UUID       `json:"bill_id"`
	Description string          `json:"description"`
	DueDate     time.Time       `json:"due_date"`
	Amount      decimal.Decimal `json:"amount"`
	DueBefore   decimal.Decimal `json:"due_before"`
	DueAfter    decimal.Decimal `json:"due_after"`
}

// AllocationResult is the complete outcome of an allocation run
type AllocationResult struct {
	Allocations        []Allocation    `json:"allocations"`
	TotalAllocated     decimal.Decimal `json:"total_allocated"`
	RemainingAmount    decimal.Decimal `json:"remaining_amount"`
	FullyAllocated     bool            `json:"fully_allocated"`
	BillsFullyPaid     []uuid.UUID     `json:"bills_fully_paid"`
	BillsPartiallyPaid []uuid.UUID     `json:"bills_partially_paid"`
}

func emptyResult(amount decimal.Decimal) *AllocationResult {
	return &AllocationResult{
		Allocations:        make([]Allocation, 0),
		TotalAllocated:     decimal.Zero,
		RemainingAmount:    amount,
		FullyAllocated:     amount.IsZero(),
		BillsFullyPaid:     make([]uuid.UUID, 0),
		BillsPartiallyPaid: make([]uuid.UUID, 0),
	}
}

func (r *AllocationResult) add(target AllocationTarget, amount decimal.Decimal) {
	r.Allocations = append(r.Allocations, Allocation{
		BillID:      target.BillID,
		Description: target.Description,
		DueDate:     target.DueDate,
		Amount:      amount,
		DueBefore:   target.Outstanding,
		DueAfter:    target.Outstanding.Sub(amount),
	})
	r.TotalAllocated = r.TotalAllocated.Add(amount)
	r.RemainingAmount = r.RemainingAmount.Sub(amount)
	r.FullyAllocated = r.RemainingAmount.IsZero()
	if amount.GreaterThanOrEqual(target.Outstanding) {
		r.BillsFullyPaid = append(r.BillsFullyPaid, target.BillID)
	} else {
		r.BillsPartiallyPaid = append(r.BillsPartiallyPaid, target.BillID)
	}
}

// AllocationStrategy spreads a payment amount over allocation targets
type AllocationStrategy interface {
	strategy.Strategy
	// Mode returns the allocation mode implemented by the strategy
	Mode() AllocationMode
	// Allocate calculates how much of amount goes to each target
	Allocate(amount decimal.Decimal, targets []AllocationTarget) (*AllocationResult, error)
}

// sortTargets orders targets by due date ascending, then creation time
func sortTargets(targets []AllocationTarget) []AllocationTarget {
	sorted := make([]AllocationTarget, len(targets))
	copy(sorted, targets)
	sortStable(sorted, func(a, b AllocationTarget) bool {
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return sorted
}

// AutoAllocationStrategy fills the oldest outstanding bills first
type AutoAllocationStrategy struct {
	strategy.Descriptor
}

// NewAutoAllocationStrategy creates a new auto allocation strategy
func NewAutoAllocationStrategy() *AutoAllocationStrategy {
	return &AutoAllocationStrategy{
		Descriptor: strategy.Describe(
			string(AllocationModeAuto),
			strategy.KindAllocation,
			"Allocates to outstanding bills by due date ascending until the payment is exhausted",
		),
	}
}

// Mode returns the allocation mode
func (s *AutoAllocationStrategy) Mode() AllocationMode {
	return AllocationModeAuto
}

// Allocate walks bills by due date and allocates min(remaining, due) to each.
// Whatever exceeds the total outstanding stays unallocated.
func (s *AutoAllocationStrategy) Allocate(amount decimal.Decimal, targets []AllocationTarget) (*AllocationResult, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	result := emptyResult(amount)

	for _, target := range sortTargets(targets) {
		if result.RemainingAmount.IsZero() {
			break
		}
		if !target.Outstanding.IsPositive() {
			continue
		}
		result.add(target, decimal.Min(result.RemainingAmount, target.Outstanding))
	}
	return result, nil
}

// ManualAllocationStrategy allocates exactly the amounts the caller asked for
type ManualAllocationStrategy struct {
	strategy.Descriptor
	requested map[uuid.UUID]decimal.Decimal
}

// NewManualAllocationStrategy creates a manual strategy from a bill id → amount map
func NewManualAllocationStrategy(requested map[uuid.UUID]decimal.Decimal) *ManualAllocationStrategy {
	return &ManualAllocationStrategy{
		Descriptor: strategy.Describe(
			string(AllocationModeManual),
			strategy.KindAllocation,
			"Allocates caller-specified amounts to specific bills; the amounts must add up to the payment",
		),
		requested: requested,
	}
}

// Mode returns the allocation mode
func (s *ManualAllocationStrategy) Mode() AllocationMode {
	return AllocationModeManual
}

// Requested returns the caller-supplied amounts
func (s *ManualAllocationStrategy) Requested() map[uuid.UUID]decimal.Decimal {
	return s.requested
}

// Allocate validates the requested amounts and returns them in due date order.
// The sum must equal amount exactly and no bill may receive more than its outstanding due.
func (s *ManualAllocationStrategy) Allocate(amount decimal.Decimal, targets []AllocationTarget) (*AllocationResult, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}

	total := decimal.Zero
	for billID, requested := range s.requested {
		if !requested.IsPositive() {
			return nil, shared.NewDomainError("INVALID_ALLOCATION",
				fmt.Sprintf("Allocation for bill %s must be positive", billID))
		}
		total = total.Add(requested)
	}
	if !total.Equal(amount) {
		return nil, ErrManualAllocationMismatch
	}

	known := make(map[uuid.UUID]bool, len(targets))
	for _, t := range targets {
		known[t.BillID] = true
	}
	for billID := range s.requested {
		if !known[billID] {
			return nil, shared.NewDomainError("BILL_NOT_FOUND",
				fmt.Sprintf("Bill %s does not belong to this booking", billID))
		}
	}

	result := emptyResult(amount)
	for _, target := range sortTargets(targets) {
		requested, ok := s.requested[target.BillID]
		if !ok {
			continue
		}
		if requested.GreaterThan(target.Outstanding) {
			return nil, shared.NewDomainError("ALLOCATION_EXCEEDS_DUE",
				fmt.Sprintf("Allocation of %s exceeds the %s still due on %s",
					FormatAmount(requested), FormatAmount(target.Outstanding), target.Description))
		}
		result.add(target, requested)
	}
	return result, nil
}

// AllocationStrategyFactory creates allocation strategies
type AllocationStrategyFactory struct{}

// NewAllocationStrategyFactory creates a new factory
func NewAllocationStrategyFactory() *AllocationStrategyFactory {
	return &AllocationStrategyFactory{}
}

// GetStrategy returns the strategy for a mode
func (f *AllocationStrategyFactory) GetStrategy(mode AllocationMode, manual map[uuid.UUID]decimal.Decimal) (AllocationStrategy, error) {
	switch mode {
	case AllocationModeAuto, "":
		return NewAutoAllocationStrategy(), nil
	case AllocationModeManual:
		if len(manual) == 0 {
			return nil, shared.NewDomainError("INVALID_ALLOCATIONS", "Manual mode requires per-bill allocations")
		}
		return NewManualAllocationStrategy(manual), nil
	default:
		return nil, shared.NewDomainError("INVALID_ALLOCATION_MODE", fmt.Sprintf("Unknown allocation mode %s", mode))
	}
}

// BuildAllocationTargets computes each bill's outstanding due from the allocations of
// every payment except excludePaymentID.
func BuildAllocationTargets(bills []*Bill, payments []*Payment, excludePaymentID uuid.UUID) []AllocationTarget {
	covered := make(map[uuid.UUID]decimal.Decimal, len(bills))
	for _, p := range payments {
		if p.ID == excludePaymentID {
			continue
		}
		for _, a := range p.Allocations {
			covered[a.BillID] = covered[a.BillID].Add(a.Amount)
		}
	}

	targets := make([]AllocationTarget, 0, len(bills))
	for _, b := range bills {
		outstanding := b.Total().Sub(covered[b.ID])
		if outstanding.IsNegative() {
			outstanding = decimal.Zero
		}
		targets = append(targets, AllocationTarget{
			BillID:      b.ID,
			Description: b.Description,
			DueDate:     b.DueDate,
			CreatedAt:   b.CreatedAt,
			Outstanding: outstanding,
		})
	}
	return targets
}
