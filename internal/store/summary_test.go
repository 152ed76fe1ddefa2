package store

import (
	"context"
	"slices"
	"testing"

	"golang.org/x/text/language"
)

func TestSummary(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Insert(ctx,
		createTestRecord(1, map[string]any{"available": true}),
		createTestRecord(2, map[string]any{"available": false}),
		createTestRecord(3, map[string]any{"available": true}),
		createTestRecord(4, map[string]any{"available": "true"}),
		createTestRecord(5, map[string]any{}),
		createTestRecord(6, map[string]any{"available": nil}),
	)
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	sum, err := s.Summary(ctx, "available")
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	if sum.Total != 6 {
		t.Errorf("Total = %d, want 6", sum.Total)
	}
	if sum.YesCount != 2 {
		t.Errorf("YesCount = %d, want 2", sum.YesCount)
	}
	if got := sum.YesPercent(); got != 33 {
		t.Errorf("YesPercent() = %d, want 33", got)
	}
}

func TestSummary_Empty(t *testing.T) {
	s := createTestStore(t)

	sum, err := s.Summary(context.Background(), "available")
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	if sum.Total != 0 || sum.YesCount != 0 || sum.YesPercent() != 0 {
		t.Errorf("Summary() = %+v (%d%%), want zeros", sum, sum.YesPercent())
	}
}

func TestDistinctValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Insert(ctx,
		createTestRecord(1, map[string]any{"country": "France"}),
		createTestRecord(2, map[string]any{"country": "Chad"}),
		createTestRecord(3, map[string]any{"country": "france"}),
		createTestRecord(4, map[string]any{"country": "Chad"}),
		createTestRecord(5, map[string]any{"country": ""}),
		createTestRecord(6, map[string]any{"country": 7}),
		createTestRecord(7, map[string]any{}),
	)
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	got, err := s.DistinctValues(ctx, "country", language.Und)
	if err != nil {
		t.Fatalf("DistinctValues() failed: %v", err)
	}
	want := []string{"Chad", "france", "France"}
	if !slices.Equal(got, want) {
		t.Errorf("DistinctValues() = %q, want %q", got, want)
	}
}

func TestSummary_FieldNameWithQuotes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Insert(ctx,
		createTestRecord(1, map[string]any{`a"b`: true, "a": false}),
		createTestRecord(2, map[string]any{`a"b`: false, "a": true}),
		createTestRecord(3, map[string]any{"a.b": true}),
	)
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	for field, want := range map[string]int{`a"b`: 1, "a": 1, "a.b": 1, "b": 0} {
		sum, err := s.Summary(ctx, field)
		if err != nil {
			t.Fatalf("Summary(%q) failed: %v", field, err)
		}
		if sum.Total != 3 || sum.YesCount != want {
			t.Errorf("Summary(%q) = %+v, want total 3 yes %d", field, sum, want)
		}
	}
}

func TestDistinctValues_FieldNameWithQuotes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Insert(ctx,
		createTestRecord(1, map[string]any{`home "country"`: "Peru", "home": "Chad"}),
		createTestRecord(2, map[string]any{`home "country"`: "Chad"}),
	)
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	got, err := s.DistinctValues(ctx, `home "country"`, language.Und)
	if err != nil {
		t.Fatalf("DistinctValues() failed: %v", err)
	}
	want := []string{"Chad", "Peru"}
	if !slices.Equal(got, want) {
		t.Errorf("DistinctValues() = %q, want %q", got, want)
	}
}
