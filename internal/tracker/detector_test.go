package tracker

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// markerLayouts are the spellings used to render generated dates as markers
var markerLayouts = []string{"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "1/2/2006", "2006-01-02"}

// genMarker renders a generated date in one of the supported spellings
func genMarker() gopter.Gen {
	return gopter.CombineGens(genDate(), gen.IntRange(0, len(markerLayouts)-1)).
		Map(func(values []interface{}) string {
			return values[0].(Date).Time().Format(markerLayouts[values[1].(int)])
		})
}

// =============================================================================
// Property-Based Tests
// =============================================================================

// TestClassifyProperties tests the ordering rules of Classify
func TestClassifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Classify(m, m) is unchanged", prop.ForAll(
		func(m string) bool {
			c := Classify(m, m)
			return c.Outcome == OutcomeUnchanged && c.Err == nil && c.Adopt
		},
		genMarker(),
	))

	properties.Property("Update iff fresh is strictly later", prop.ForAll(
		func(stored, fresh string) bool {
			s, _ := Normalize(stored)
			f, _ := Normalize(fresh)
			c := Classify(stored, fresh)
			if f.After(s) {
				return c.Outcome == OutcomeUpdateDetected
			}
			return c.Outcome == OutcomeUnchanged
		},
		genMarker(),
		genMarker(),
	))

	properties.Property("Reordering two distinct dates never yields two updates", prop.ForAll(
		func(a, b string) bool {
			ab := Classify(a, b).Outcome == OutcomeUpdateDetected
			ba := Classify(b, a).Outcome == OutcomeUpdateDetected
			return !(ab && ba)
		},
		genMarker(),
		genMarker(),
	))

	properties.Property("Empty stored marker is a baseline", prop.ForAll(
		func(fresh string) bool {
			c := Classify("", fresh)
			return c.Outcome == OutcomeBaseline && c.Adopt && c.Err == nil
		},
		genMarker(),
	))

	properties.TestingRun(t)
}

// =============================================================================
// Unit Tests
// =============================================================================

// TestClassifyCases tests representative stored/fresh pairs
func TestClassifyCases(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		fresh   string
		outcome Outcome
		adopt   bool
	}{
		{"later date", "Jan 5, 2024", "Feb 1, 2024", OutcomeUpdateDetected, true},
		{"same text", "Jan 5, 2024", "Jan 5, 2024", OutcomeUnchanged, true},
		{"same day different spelling", "Jan 5, 2024", "January 5, 2024", OutcomeUnchanged, true},
		{"earlier date", "Feb 1, 2024", "Jan 5, 2024", OutcomeUnchanged, true},
		{"fresh unparseable", "Jan 5, 2024", "Varies with device", OutcomeInconclusive, false},
		{"stored unparseable", "garbage", "Jan 5, 2024", OutcomeInconclusive, true},
		{"baseline", "", "Jan 5, 2024", OutcomeBaseline, true},
		{"baseline unparseable", "", "soon", OutcomeBaseline, false},
		{"year boundary", "Dec 31, 2023", "Jan 1, 2024", OutcomeUpdateDetected, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.stored, tt.fresh)
			if c.Outcome != tt.outcome {
				t.Errorf("Expected outcome %q, got %q", tt.outcome, c.Outcome)
			}
			if c.Adopt != tt.adopt {
				t.Errorf("Expected adopt=%v, got %v", tt.adopt, c.Adopt)
			}
		})
	}
}

// TestClassifyInconclusiveCarriesError tests the error attached to an inconclusive outcome
func TestClassifyInconclusiveCarriesError(t *testing.T) {
	c := Classify("Jan 5, 2024", "Varies with device")
	if !errors.Is(c.Err, ErrUnparseable) {
		t.Fatalf("Expected ErrUnparseable, got %v", c.Err)
	}
	var ue *UnparseableError
	if !errors.As(c.Err, &ue) || ue.Raw != "Varies with device" {
		t.Errorf("Expected error for the fresh marker, got %v", c.Err)
	}

	c = Classify("garbage", "Jan 5, 2024")
	if !errors.As(c.Err, &ue) || ue.Raw != "garbage" {
		t.Errorf("Expected error for the stored marker, got %v", c.Err)
	}
}

// TestClassifyDates tests that normalized dates are reported
func TestClassifyDates(t *testing.T) {
	c := Classify("Jan 5, 2024", "2024-02-01")
	if c.Stored.String() != "2024-01-05" {
		t.Errorf("Expected stored 2024-01-05, got %s", c.Stored)
	}
	if c.Fresh.String() != "2024-02-01" {
		t.Errorf("Expected fresh 2024-02-01, got %s", c.Fresh)
	}
}
