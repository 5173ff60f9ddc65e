package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/booking"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// a second pooled connection would see a different in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func idr(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func seedRoomAndTenant(t *testing.T, db *gorm.DB) (uuid.UUID, uuid.UUID) {
	t.Helper()
	room := models.NewRoomModel("R-" + uuid.NewString()[:8])
	tenant := models.NewTenantModel("Budi")
	require.NoError(t, db.Create(room).Error)
	require.NoError(t, db.Create(tenant).Error)
	return room.ID, tenant.ID
}

func newRollingBooking(t *testing.T, roomID, tenantID uuid.UUID, start time.Time, addOns ...booking.BookingAddOn) *booking.Booking {
	t.Helper()
	b, err := booking.NewBooking(booking.BookingTerms{
		RoomID:    roomID,
		TenantID:  tenantID,
		StartDate: start,
		Fee:       idr(1_500_000),
		AddOns:    addOns,
	}, nil)
	require.NoError(t, err)
	return b
}

func TestBookingRepository_SaveAndFind(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBookingRepository(db)
	ctx := context.Background()
	roomID, tenantID := seedRoomAndTenant(t, db)

	addOnID := uuid.New()
	b := newRollingBooking(t, roomID, tenantID, day(2024, 1, 15),
		booking.BookingAddOn{AddOnID: addOnID, StartDate: day(2024, 3, 1)},
		booking.BookingAddOn{AddOnID: addOnID, StartDate: day(2024, 1, 15)},
	)
	require.NoError(t, repo.Save(ctx, b))

	t.Run("loads add-ons ordered by start date", func(t *testing.T) {
		found, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.True(t, found.IsRolling)
		assert.Nil(t, found.EndDate)
		assert.True(t, found.Fee.Equal(idr(1_500_000)))
		assert.Equal(t, day(2024, 1, 15), found.StartDate)
		require.Len(t, found.AddOns, 2)
		assert.Equal(t, day(2024, 1, 15), found.AddOns[0].StartDate)
		assert.Equal(t, day(2024, 3, 1), found.AddOns[1].StartDate)
	})

	t.Run("returns nil when absent", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("save replaces add-ons", func(t *testing.T) {
		b.AddOns = b.AddOns[:1]
		require.NoError(t, repo.Save(ctx, b))

		var count int64
		require.NoError(t, db.Model(&models.BookingAddOnModel{}).Where("booking_id = ?", b.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestBookingRepository_SaveWithLock(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBookingRepository(db)
	ctx := context.Background()
	roomID, tenantID := seedRoomAndTenant(t, db)

	b := newRollingBooking(t, roomID, tenantID, day(2024, 1, 1))
	require.NoError(t, repo.Save(ctx, b))

	first, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)

	require.NoError(t, first.Checkout(day(2024, 6, 30)))
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, stale.Checkout(day(2024, 5, 31)))
	err = repo.SaveWithLock(ctx, stale)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	reloaded, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.EndDate)
	assert.Equal(t, day(2024, 6, 30), *reloaded.EndDate)
	assert.False(t, reloaded.IsRolling)
	assert.Equal(t, 2, reloaded.Version)
}

func TestBookingRepository_FindAll(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBookingRepository(db)
	ctx := context.Background()
	roomA, tenantID := seedRoomAndTenant(t, db)
	roomB, _ := seedRoomAndTenant(t, db)

	for i, start := range []time.Time{day(2024, 3, 1), day(2024, 1, 1), day(2024, 2, 1)} {
		require.NoError(t, repo.Save(ctx, newRollingBooking(t, roomA, tenantID, start)), i)
	}
	fixed, err := booking.NewBooking(booking.BookingTerms{
		RoomID: roomB, TenantID: tenantID, StartDate: day(2024, 1, 1), Fee: idr(900_000),
	}, &booking.Duration{ID: uuid.New(), Name: "3 months", MonthCount: 3})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, fixed))

	t.Run("filters by room and sorts by start date", func(t *testing.T) {
		rows, total, err := repo.FindAll(ctx, booking.BookingFilter{
			Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "start_date", OrderDir: "asc"},
			RoomID: &roomA,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, rows, 2)
		assert.Equal(t, day(2024, 1, 1), rows[0].StartDate)
		assert.Equal(t, day(2024, 2, 1), rows[1].StartDate)
	})

	t.Run("second page", func(t *testing.T) {
		rows, _, err := repo.FindAll(ctx, booking.BookingFilter{
			Filter: shared.Filter{Page: 2, PageSize: 2, OrderBy: "start_date", OrderDir: "asc"},
			RoomID: &roomA,
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, day(2024, 3, 1), rows[0].StartDate)
	})

	t.Run("filters fixed bookings", func(t *testing.T) {
		rolling := false
		rows, total, err := repo.FindAll(ctx, booking.BookingFilter{IsRolling: &rolling})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, rows, 1)
		assert.Equal(t, 3, rows[0].MonthCount)
		require.NotNil(t, rows[0].EndDate)
	})

	t.Run("unknown sort field falls back", func(t *testing.T) {
		_, total, err := repo.FindAll(ctx, booking.BookingFilter{
			Filter: shared.Filter{OrderBy: "fee; DROP TABLE bookings"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})

	t.Run("find by room", func(t *testing.T) {
		rows, err := repo.FindByRoom(ctx, roomB)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, fixed.ID, rows[0].ID)
	})
}

func TestBookingRepository_Delete(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBookingRepository(db)
	ctx := context.Background()
	roomID, tenantID := seedRoomAndTenant(t, db)

	b := newRollingBooking(t, roomID, tenantID, day(2024, 1, 1),
		booking.BookingAddOn{AddOnID: uuid.New(), StartDate: day(2024, 1, 1)})
	require.NoError(t, repo.Save(ctx, b))

	require.NoError(t, repo.Delete(ctx, b.ID))
	assert.ErrorIs(t, repo.Delete(ctx, b.ID), shared.ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.BookingAddOnModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDepositRepository(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormDepositRepository(db)
	ctx := context.Background()
	bookingID := uuid.New()

	found, err := repo.FindByBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.Nil(t, found)

	d, err := booking.NewDeposit(bookingID, idr(1_000_000))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, d))

	require.NoError(t, d.MarkHeld())
	require.NoError(t, d.Refund(idr(400_000), day(2024, 7, 1)))
	require.NoError(t, repo.Save(ctx, d))

	found, err = repo.FindByBooking(ctx, bookingID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, booking.DepositStatusPartiallyRefunded, found.Status)
	require.NotNil(t, found.RefundedAmount)
	assert.True(t, found.RefundedAmount.Equal(idr(400_000)))
	require.NotNil(t, found.RefundedAt)
	assert.Equal(t, day(2024, 7, 1), *found.RefundedAt)

	byID, err := repo.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, byID.ID)

	other, err := booking.NewDeposit(bookingID, idr(5))
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, other), shared.ErrAlreadyExists)

	require.NoError(t, repo.Delete(ctx, d.ID))
	assert.ErrorIs(t, repo.Delete(ctx, d.ID), shared.ErrNotFound)
}

func newBill(bookingID uuid.UUID, due time.Time, amounts ...int64) *booking.Bill {
	bill := booking.NewBill(bookingID, due, "Rent "+due.Format("January 2006"))
	for _, a := range amounts {
		bill.AddItem("Rent", idr(a), booking.BillItemTypeGenerated, nil)
	}
	return bill
}

func TestBillRepository(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()
	bookingID := uuid.New()

	march := newBill(bookingID, day(2024, 3, 31), 1_500_000)
	january := newBill(bookingID, day(2024, 1, 31), 1_500_000)
	depositTag := booking.DepositTag(uuid.New())
	january.AddItem("Deposit", idr(1_000_000), booking.BillItemTypeGenerated, &depositTag)
	require.NoError(t, repo.SaveAll(ctx, []*booking.Bill{march, january}))

	bills, err := repo.FindByBooking(ctx, bookingID)
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Equal(t, january.ID, bills[0].ID)
	require.Len(t, bills[0].Items, 2)
	assert.Equal(t, "Rent", bills[0].Items[0].Description)
	assert.True(t, bills[0].Items[1].IsDepositItem())
	assert.Equal(t, depositTag.ID, bills[0].Items[1].Related.ID)
	assert.True(t, bills[0].Total().Equal(idr(2_500_000)))

	t.Run("save all replaces items", func(t *testing.T) {
		march.Items = march.Items[:0]
		march.AddItem("Rent (prorated)", idr(750_000), booking.BillItemTypeGenerated, nil)
		march.AddItem("Parking", idr(100_000), booking.BillItemTypeCreated, nil)
		require.NoError(t, repo.SaveAll(ctx, []*booking.Bill{march}))

		found, err := repo.FindByID(ctx, march.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 2)
		assert.Equal(t, booking.BillItemTypeCreated, found.Items[1].Type)
		assert.True(t, found.Total().Equal(idr(850_000)))
	})

	t.Run("find by id returns nil when absent", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("delete by booking removes items", func(t *testing.T) {
		require.NoError(t, repo.DeleteByBooking(ctx, bookingID))

		bills, err := repo.FindByBooking(ctx, bookingID)
		require.NoError(t, err)
		assert.Empty(t, bills)
		var items int64
		require.NoError(t, db.Model(&models.BillItemModel{}).Count(&items).Error)
		assert.Zero(t, items)
	})
}

func newAllocatedPayment(t *testing.T, bookingID uuid.UUID, on time.Time, amount int64, bills ...*booking.Bill) *booking.Payment {
	t.Helper()
	p, err := booking.NewPayment(bookingID, idr(amount), on, booking.PaymentStatusConfirmed)
	require.NoError(t, err)
	remaining := idr(amount)
	for _, bill := range bills {
		part := decimal.Min(remaining, bill.Total())
		p.Allocations = append(p.Allocations, booking.PaymentBill{
			ID: uuid.New(), PaymentID: p.ID, BillID: bill.ID, Amount: part,
		})
		remaining = remaining.Sub(part)
	}
	return p
}

func TestPaymentRepository(t *testing.T) {
	db := setupBillingTestDB(t)
	bills := NewGormBillRepository(db)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()
	bookingID := uuid.New()

	jan := newBill(bookingID, day(2024, 1, 31), 1_500_000)
	feb := newBill(bookingID, day(2024, 2, 29), 1_500_000)
	require.NoError(t, bills.SaveAll(ctx, []*booking.Bill{jan, feb}))

	later := newAllocatedPayment(t, bookingID, day(2024, 2, 10), 1_500_000, feb)
	earlier := newAllocatedPayment(t, bookingID, day(2024, 1, 10), 2_000_000, jan, feb)
	require.NoError(t, repo.Save(ctx, later))
	require.NoError(t, repo.Save(ctx, earlier))

	payments, err := repo.FindByBooking(ctx, bookingID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, earlier.ID, payments[0].ID)
	assert.True(t, payments[0].AllocatedAmount().Equal(idr(2_000_000)))
	assert.True(t, payments[0].AllocatedTo(feb.ID).Equal(idr(500_000)))

	t.Run("save with lock rejects a stale version", func(t *testing.T) {
		current, err := repo.FindByID(ctx, later.ID)
		require.NoError(t, err)
		stale, err := repo.FindByID(ctx, later.ID)
		require.NoError(t, err)

		require.NoError(t, current.Revise(idr(1_000_000), day(2024, 2, 10), booking.PaymentStatusConfirmed))
		require.NoError(t, repo.SaveWithLock(ctx, current))

		require.NoError(t, stale.Revise(idr(1_200_000), day(2024, 2, 10), booking.PaymentStatusConfirmed))
		assert.ErrorIs(t, repo.SaveWithLock(ctx, stale), shared.ErrConcurrencyConflict)

		reloaded, err := repo.FindByID(ctx, later.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.Amount.Equal(idr(1_000_000)))
	})

	t.Run("delete allocations by booking keeps payments", func(t *testing.T) {
		require.NoError(t, repo.DeleteAllocationsByBooking(ctx, bookingID))

		payments, err := repo.FindByBooking(ctx, bookingID)
		require.NoError(t, err)
		require.Len(t, payments, 2)
		for _, p := range payments {
			assert.Empty(t, p.Allocations)
		}
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, earlier.ID))
		found, err := repo.FindByID(ctx, earlier.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
		assert.ErrorIs(t, repo.Delete(ctx, earlier.ID), shared.ErrNotFound)
	})
}

func TestTransactionRepository(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormTransactionRepository(db)
	ctx := context.Background()

	paymentID := uuid.New()
	bookingID := uuid.New()
	depositID := uuid.New()
	rent := booking.NewTransaction(booking.CategoryRoomPayment, idr(1_500_000), day(2024, 1, 10), "Room payment",
		booking.PaymentTag(paymentID), booking.BookingTag(bookingID))
	deposit := booking.NewTransaction(booking.CategoryDeposit, idr(1_000_000), day(2024, 1, 10), "Deposit",
		booking.PaymentTag(paymentID), booking.DepositTag(depositID), booking.BookingTag(bookingID))
	refund := booking.NewTransaction(booking.CategoryDepositRefund, idr(1_000_000), day(2024, 7, 1), "Deposit refund",
		booking.DepositTag(depositID))
	for _, tx := range []*booking.Transaction{refund, rent, deposit} {
		require.NoError(t, repo.Save(ctx, tx))
	}

	t.Run("find by related", func(t *testing.T) {
		rows, err := repo.FindByRelated(ctx, booking.RelatedKindPayment, paymentID)
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		rows, err = repo.FindByRelated(ctx, booking.RelatedKindDeposit, depositID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, deposit.ID, rows[0].ID)
		assert.Equal(t, refund.ID, rows[1].ID)
	})

	t.Run("find all by category", func(t *testing.T) {
		category := booking.CategoryDepositRefund
		rows, total, err := repo.FindAll(ctx, booking.TransactionFilter{Category: &category})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, rows, 1)
		assert.Equal(t, booking.TransactionTypeExpense, rows[0].Type)
	})

	t.Run("find all by tag with pagination", func(t *testing.T) {
		tag := booking.BookingTag(bookingID)
		rows, total, err := repo.FindAll(ctx, booking.TransactionFilter{
			Filter:  shared.Filter{Page: 1, PageSize: 1, OrderBy: "amount", OrderDir: "desc"},
			Related: &tag,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, rows, 1)
		assert.Equal(t, rent.ID, rows[0].ID)
	})

	t.Run("save replaces tags", func(t *testing.T) {
		rent.Tags = booking.Tags{booking.PaymentTag(paymentID)}
		rent.Amount = idr(1_400_000)
		require.NoError(t, repo.Save(ctx, rent))

		found, err := repo.FindByID(ctx, rent.ID)
		require.NoError(t, err)
		require.Len(t, found.Tags, 1)
		assert.True(t, found.Amount.Equal(idr(1_400_000)))
		_, tagged := found.BookingID()
		assert.False(t, tagged)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, refund.ID))
		found, err := repo.FindByID(ctx, refund.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
		assert.ErrorIs(t, repo.Delete(ctx, refund.ID), shared.ErrNotFound)
	})
}

func TestCatalogAndDirectoryRepositories(t *testing.T) {
	db := setupBillingTestDB(t)
	catalog := NewGormCatalogRepository(db)
	directory := NewGormDirectoryRepository(db)
	ctx := context.Background()

	duration := &models.DurationModel{Name: "6 months", MonthCount: 6}
	duration.ID = uuid.New()
	require.NoError(t, db.Create(duration).Error)

	three := 3
	addOn := models.AddOnModelFromDomain(booking.AddOn{
		ID:   uuid.New(),
		Name: "Parking",
		Pricing: []booking.AddOnPricing{
			{IntervalStart: 4, Price: idr(150_000)},
			{IntervalStart: 0, IntervalEnd: &three, Price: idr(100_000)},
		},
	})
	require.NoError(t, db.Create(addOn).Error)

	found, err := catalog.FindDuration(ctx, duration.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, found.MonthCount)

	missing, err := catalog.FindDuration(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	addOns, err := catalog.FindAddOns(ctx, []uuid.UUID{addOn.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, addOns, 1)
	require.Len(t, addOns[0].Pricing, 2)
	assert.Equal(t, 0, addOns[0].Pricing[0].IntervalStart)
	require.NotNil(t, addOns[0].Pricing[0].IntervalEnd)
	assert.Nil(t, addOns[0].Pricing[1].IntervalEnd)

	none, err := catalog.FindAddOns(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	roomID, tenantID := seedRoomAndTenant(t, db)
	ok, err := directory.RoomExists(ctx, roomID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = directory.TenantExists(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = directory.RoomExists(ctx, tenantID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBillingSnapshotProvider(t *testing.T) {
	db := setupBillingTestDB(t)
	ctx := context.Background()
	bookings := NewGormBookingRepository(db)
	bills := NewGormBillRepository(db)
	payments := NewGormPaymentRepository(db)
	deposits := NewGormDepositRepository(db)
	roomID, tenantID := seedRoomAndTenant(t, db)

	active := newRollingBooking(t, roomID, tenantID, day(2024, 1, 1))
	future := newRollingBooking(t, uuid.New(), tenantID, day(2024, 9, 1))
	require.NoError(t, bookings.Save(ctx, active))
	require.NoError(t, bookings.Save(ctx, future))

	held, err := booking.NewDeposit(active.ID, idr(1_000_000))
	require.NoError(t, err)
	require.NoError(t, held.MarkHeld())
	require.NoError(t, deposits.Save(ctx, held))

	jan := newBill(active.ID, day(2024, 1, 31), 1_500_000)
	feb := newBill(active.ID, day(2024, 2, 29), 1_500_000)
	notDue := newBill(active.ID, day(2024, 6, 30), 1_500_000)
	require.NoError(t, bills.SaveAll(ctx, []*booking.Bill{jan, feb, notDue}))
	require.NoError(t, payments.Save(ctx, newAllocatedPayment(t, active.ID, day(2024, 1, 5), 2_000_000, jan, feb)))

	snap, err := NewGormBillingSnapshotProvider(db).BillingSnapshot(ctx, day(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.ActiveBookings)
	assert.Equal(t, int64(1), snap.HeldDeposits)
	assert.True(t, snap.OutstandingTotal.Equal(idr(1_000_000)), snap.OutstandingTotal.String())

	empty, err := NewGormBillingSnapshotProvider(setupBillingTestDB(t)).BillingSnapshot(ctx, day(2024, 3, 15))
	require.NoError(t, err)
	assert.True(t, empty.OutstandingTotal.IsZero())
}
