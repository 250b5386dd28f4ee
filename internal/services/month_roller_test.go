package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagos/internal/core"
)

func TestMonthRollerRoll(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want []string
	}{
		{
			name: "before control day - current month only",
			now:  time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC),
			want: []string{"2026-04"},
		},
		{
			name: "on control day - next month too",
			now:  time.Date(2026, 4, 29, 8, 0, 0, 0, time.UTC),
			want: []string{"2026-04", "2026-05"},
		},
		{
			name: "control day clamped in february",
			now:  time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC),
			want: []string{"2026-02", "2026-03"},
		},
		{
			name: "december does not roll into next year",
			now:  time.Date(2026, 12, 30, 8, 0, 0, 0, time.UTC),
			want: []string{"2026-12"},
		},
		{
			name: "outside ledger year",
			now:  time.Date(2027, 1, 5, 8, 0, 0, 0, time.UTC),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testLedger())
			roller := NewMonthRoller(NewSession(f.svc))

			got, err := roller.Roll(context.Background(), tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := roller.Roll(context.Background(), tt.now)
			require.NoError(t, err)
			assert.Empty(t, again, "second roll creates nothing")
		})
	}
}

func TestMonthRollerNotInitialized(t *testing.T) {
	_, err := (&MonthRoller{}).Roll(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestSessionReloadsEachAction(t *testing.T) {
	f := newFixture(t, testLedger())
	session := NewSession(f.svc)
	ctx := context.Background()

	outside := f.load(t)
	_, err := f.svc.AddCategory(ctx, outside, "Ocio")
	require.NoError(t, err)

	err = session.Do(ctx, func(l *core.Ledger) error {
		assert.True(t, l.HasCategory("Ocio"))
		return nil
	})
	require.NoError(t, err)
}
