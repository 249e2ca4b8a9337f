package postgres

import (
	"database/sql"
	"testing"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
)

func TestNullConversionsRoundTrip(t *testing.T) {
	t.Run("nil maps to invalid null", func(t *testing.T) {
		if got := ptrToNullInt64(nil); got.Valid {
			t.Fatalf("expected invalid NullInt64 for nil pointer")
		}
		if got := intPtrToNullInt64(nil); got.Valid {
			t.Fatalf("expected invalid NullInt64 for nil int pointer")
		}
		if got := boolPtrToNullBool(nil); got.Valid {
			t.Fatalf("expected invalid NullBool for nil pointer")
		}
		if got := ptrToNullString(nil); got.Valid {
			t.Fatalf("expected invalid NullString for nil pointer")
		}
	})

	t.Run("values survive both directions", func(t *testing.T) {
		winner := int64(200)
		if got := nullInt64ToPtr(ptrToNullInt64(&winner)); got == nil || *got != 200 {
			t.Fatalf("unexpected int64 round trip: %v", got)
		}

		maps := 2
		if got := nullInt64ToIntPtr(intPtrToNullInt64(&maps)); got == nil || *got != 2 {
			t.Fatalf("unexpected int round trip: %v", got)
		}

		correct := true
		if got := nullBoolToPtr(boolPtrToNullBool(&correct)); got == nil || !*got {
			t.Fatalf("unexpected bool round trip: %v", got)
		}

		by := "admin-1"
		if got := nullStringToPtr(ptrToNullString(&by)); got == nil || *got != "admin-1" {
			t.Fatalf("unexpected string round trip: %v", got)
		}
	})

	t.Run("invalid null maps to nil", func(t *testing.T) {
		if got := nullInt64ToPtr(sql.NullInt64{}); got != nil {
			t.Fatalf("expected nil for invalid NullInt64, got %v", got)
		}
		if got := nullBoolToPtr(sql.NullBool{}); got != nil {
			t.Fatalf("expected nil for invalid NullBool, got %v", got)
		}
	})
}

func TestStatesToAny(t *testing.T) {
	got := statesToAny([]match.State{match.StateFinished, match.StateSettled})
	if len(got) != 2 {
		t.Fatalf("expected 2 values, got %d", len(got))
	}
	if got[0] != "finished" || got[1] != "settled" {
		t.Fatalf("unexpected state values: %v", got)
	}
}

func TestInt64sToAny(t *testing.T) {
	got := int64sToAny([]int64{7, 42})
	if len(got) != 2 {
		t.Fatalf("expected 2 values, got %d", len(got))
	}
	if got[0] != int64(7) || got[1] != int64(42) {
		t.Fatalf("unexpected values: %v", got)
	}
}
