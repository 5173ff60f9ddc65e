package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortColumns_Column(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"listed key", "end_date", "end_date"},
		{"case and spaces", "  FEE ", "fee"},
		{"empty falls back", "", "start_date"},
		{"unknown falls back", "tenant_name", "start_date"},
		{"injection falls back", "fee; DROP TABLE bookings", "start_date"},
		{"subquery falls back", "(SELECT 1)", "start_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bookingSort.column(tt.key))
		})
	}
	assert.Equal(t, "date", transactionSort.column("id ORDER BY 1"))
}

func TestDescending(t *testing.T) {
	assert.False(t, descending("asc"))
	assert.False(t, descending(" ASC "))
	assert.True(t, descending("desc"))
	assert.True(t, descending(""))
	assert.True(t, descending("ASC; DROP TABLE bookings;--"))
}
