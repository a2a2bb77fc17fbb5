package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d int) time.Time { return base.AddDate(0, 0, d) }
	ptr := func(ts time.Time) *time.Time { return &ts }

	cases := []struct {
		name   string
		due    time.Time
		ret    *time.Time
		now    time.Time
		expect Status
	}{
		{"due passed, not returned", at(1), nil, at(2), StatusOverdue},
		{"due ahead, not returned", at(2), nil, at(1), StatusActive},
		{"due exactly now, not returned", at(1), nil, at(1), StatusActive},
		{"returned after due", at(1), ptr(at(2)), at(3), StatusReturnedLate},
		{"returned before due", at(1), ptr(at(0)), at(3), StatusReturnedOnTime},
		{"returned exactly on due", at(1), ptr(at(1)), at(3), StatusReturnedOnTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Borrow{BorrowDate: base, DueDate: tc.due, ReturnDate: tc.ret}
			require.Equal(t, tc.expect, b.Classify(tc.now))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "reader@example.com", NormalizeEmail("  Reader@Example.COM "))
}
