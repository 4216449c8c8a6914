// Package tracker provides change detection between stored and fresh update markers.
package tracker

// Outcome is the result of comparing a fresh marker against a stored one.
type Outcome string

// Outcome constants
const (
	// OutcomeBaseline is the first observation; there is nothing to compare against
	OutcomeBaseline Outcome = "baseline"
	// OutcomeUnchanged means no forward update was observed
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeUpdateDetected means the fresh date is strictly later than the stored one
	OutcomeUpdateDetected Outcome = "update"
	// OutcomeInconclusive means one of the markers could not be normalized
	OutcomeInconclusive Outcome = "inconclusive"
)

// Classification describes how a fresh marker relates to the stored one.
type Classification struct {
	Outcome Outcome
	// Stored and Fresh are the normalized dates, zero when not parsed
	Stored Date
	Fresh  Date
	// Adopt reports whether the caller should store the fresh marker.
	// It is true exactly when the fresh marker normalizes.
	Adopt bool
	// Err is the normalization failure behind an inconclusive outcome
	Err error
}

// Classify compares a stored marker with a freshly extracted one.
// An empty stored marker is a baseline observation.
func Classify(stored, fresh string) Classification {
	freshDate, freshErr := Normalize(fresh)
	c := Classification{
		Fresh: freshDate,
		Adopt: freshErr == nil,
	}

	if stored == "" {
		c.Outcome = OutcomeBaseline
		c.Err = freshErr
		return c
	}

	if fresh == stored {
		c.Outcome = OutcomeUnchanged
		c.Stored = freshDate
		return c
	}

	storedDate, storedErr := Normalize(stored)
	c.Stored = storedDate
	switch {
	case storedErr != nil:
		c.Outcome = OutcomeInconclusive
		c.Err = storedErr
	case freshErr != nil:
		c.Outcome = OutcomeInconclusive
		c.Err = freshErr
	case freshDate.After(storedDate):
		c.Outcome = OutcomeUpdateDetected
	default:
		c.Outcome = OutcomeUnchanged
	}
	return c
}
