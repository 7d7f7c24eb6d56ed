// internal/circulation/domain_test.go
package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestPolicyFor(t *testing.T) {
	cases := []struct {
		role      string
		maxActive int
		loanDays  int
	}{
		{"", 3, 15},
		{"Student", 3, 15},
		{"Teacher", 5, 30},
		{"Librarian", 5, 30},
		{"staff", 5, 30},
	}
	for _, tc := range cases {
		p := PolicyFor(tc.role)
		assert.Equal(t, tc.maxActive, p.MaxActive, "role %q", tc.role)
		assert.Equal(t, tc.loanDays, p.LoanDays, "role %q", tc.role)
	}
}

func TestCalculateFine(t *testing.T) {
	due := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// returned at the exact due instant
	assert.EqualValues(t, 0, CalculateFine(due, due))

	// returned early
	assert.EqualValues(t, 0, CalculateFine(due, due.Add(-48*time.Hour)))

	// one second into the second overdue day rounds up to two full days
	assert.EqualValues(t, 4, CalculateFine(due, due.Add(24*time.Hour+time.Second)))

	// any overdue fraction of the first day counts in full
	assert.EqualValues(t, 2, CalculateFine(due, due.Add(time.Minute)))

	// a full week late
	assert.EqualValues(t, 14, CalculateFine(due, due.Add(7*24*time.Hour)))
}

func TestCalculateFineProperties(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rapid.Check(t, func(t *rapid.T) {
		offset := rapid.Int64Range(-90*86400, 90*86400).Draw(t, "offsetSeconds")
		ret := due.Add(time.Duration(offset) * time.Second)
		fine := CalculateFine(due, ret)

		if offset <= 0 {
			assert.EqualValues(t, 0, fine)
			return
		}
		assert.GreaterOrEqual(t, fine, int64(FinePerDay))
		// fine is always a whole number of per-day units
		assert.EqualValues(t, 0, fine%FinePerDay)
		// ceiling bound: never more than one extra day charged
		days := fine / FinePerDay
		assert.LessOrEqual(t, (days-1)*86400, offset)
		assert.Less(t, offset, days*86400+1)
	})
}

func TestTransactionReturned(t *testing.T) {
	var txn Transaction
	assert.False(t, txn.Returned())

	now := time.Now()
	txn.ReturnDate = &now
	assert.True(t, txn.Returned())
}
