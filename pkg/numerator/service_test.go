package numerator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT: increment statements
// advance the counter (by 1 when no increment argument is given),
// absolute-set statements overwrite it.
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	calls        int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case len(args) == 2 && !strings.Contains(sql, "current_val +"):
		if val, ok := args[1].(int64); ok {
			m.currentValue = val
		}
	case len(args) == 2:
		if val, ok := args[1].(int64); ok {
			m.currentValue += val
		}
	default:
		m.currentValue++
	}
	m.calls++

	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("TEST")
	year := time.Now().Format("2006")

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("TEST-%s-00001", year); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("TEST-%s-00002", year); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}

	if q.calls != 2 {
		t.Errorf("strict strategy should hit the database per number, got %d calls", q.calls)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("ORD")
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}

	seen := make(map[string]bool)
	for i := 0; i < 15; i++ {
		num, err := svc.GetNextNumber(ctx, cfg, opts, time.Now())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[num] {
			t.Fatalf("duplicate number %s", num)
		}
		seen[num] = true
	}

	// 15 numbers from ranges of 10 needs exactly two reservations.
	if q.calls != 2 {
		t.Errorf("expected 2 range reservations, got %d", q.calls)
	}
}

func TestGetNextNumber_NoYear(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)

	cfg := Config{Prefix: "MV", IncludeYear: false, PadWidth: 4, ResetPeriod: "never"}
	num, err := svc.GetNextNumber(context.Background(), cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "MV-0001" {
		t.Errorf("expected MV-0001, got %s", num)
	}
}

func TestSetNextNumber_DropsCachedRange(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := Config{Prefix: "MV", IncludeYear: false, PadWidth: 5, ResetPeriod: "never"}
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}

	num, err := svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "MV-00001" {
		t.Fatalf("expected MV-00001, got %s", num)
	}

	// Jump the counter, as when importing vouchers from a legacy system.
	if err := svc.SetNextNumber(ctx, cfg, time.Now(), 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The in-memory range was dropped, so the next number reserves a new
	// range past the set value instead of continuing at 2.
	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "MV-00501" {
		t.Errorf("expected MV-00501, got %s", num)
	}
	if q.calls != 3 {
		t.Errorf("expected 3 queries, got %d", q.calls)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"MV-2026-00042", 42},
		{"MV-00007", 7},
		{"garbage", -1},
	}
	for _, tc := range cases {
		if got := ParseNumber(tc.in); got != tc.want {
			t.Errorf("ParseNumber(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
