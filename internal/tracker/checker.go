// Package tracker provides update checking for tracked apps.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrInvalidPackageName is returned for identifiers that are not Android package names
var ErrInvalidPackageName = errors.New("invalid package name")

// packageNamePattern matches Android application IDs (e.g. org.telegram.messenger)
var packageNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)+$`)

// ValidatePackageName checks that id looks like an Android application ID.
func ValidatePackageName(id string) error {
	if !packageNamePattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidPackageName, id)
	}
	return nil
}

// Status is the per-item result of a check.
type Status string

// Status constants
const (
	// StatusBaseline means the first marker was recorded
	StatusBaseline Status = "baseline"
	// StatusUnchanged means no new update was found
	StatusUnchanged Status = "unchanged"
	// StatusUpdated means a newer update date was found
	StatusUpdated Status = "updated"
	// StatusInconclusive means a date could not be normalized
	StatusInconclusive Status = "inconclusive"
	// StatusFailed means the page could not be fetched or held no date
	StatusFailed Status = "failed"
)

// CheckResult represents the result of checking a single app for updates.
type CheckResult struct {
	// ID is the storefront identifier
	ID string
	// Status is the outcome of the check
	Status Status
	// PreviousMarker is the marker stored before the check
	PreviousMarker string
	// FreshMarker is the marker extracted from the page, empty on failure
	FreshMarker string
	// Strategy is the extraction strategy that found FreshMarker
	Strategy string
	// Item is the new record derived from the check
	Item TrackedItem
	// Error contains any error that occurred during checking
	Error error
}

// Checker fetches pages, extracts markers and classifies changes.
// It never mutates the records it is given; each check returns a new record.
type Checker struct {
	fetcher   PageFetcher
	extractor *Extractor
	// nowFunc allows injecting time for testing
	nowFunc func() time.Time
}

// CheckerOption is a functional option for configuring Checker
type CheckerOption func(*Checker)

// WithExtractor sets a custom extractor for the checker
func WithExtractor(e *Extractor) CheckerOption {
	return func(c *Checker) {
		c.extractor = e
	}
}

// WithCheckerNowFunc sets a custom time function for testing
func WithCheckerNowFunc(fn func() time.Time) CheckerOption {
	return func(c *Checker) {
		c.nowFunc = fn
	}
}

// NewChecker creates a checker that uses fetcher to retrieve pages.
func NewChecker(fetcher PageFetcher, opts ...CheckerOption) *Checker {
	c := &Checker{
		fetcher:   fetcher,
		extractor: NewExtractor(),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe fetches the page for id and returns the extracted marker.
// Fetch failures are *FetchError, a page without a date is ErrDateNotFound.
func (c *Checker) Observe(ctx context.Context, id string) (Extraction, error) {
	markup, err := c.fetcher.Fetch(ctx, id)
	if err != nil {
		return Extraction{}, err
	}
	return c.extractor.Extract(markup)
}

// Add starts tracking id. The first observation must normalize, so the
// stored marker is always a valid date.
func (c *Checker) Add(ctx context.Context, db *Database, id string) (*CheckResult, error) {
	if err := ValidatePackageName(id); err != nil {
		return nil, err
	}
	if db.Has(id) {
		return nil, fmt.Errorf("%w: %s", ErrItemExists, id)
	}

	ext, err := c.Observe(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := Normalize(ext.Marker); err != nil {
		return nil, err
	}

	now := c.nowFunc()
	item := TrackedItem{
		ID:            id,
		Marker:        ext.Marker,
		LastCheckedAt: now,
		FetchCount:    1,
		AddedAt:       now,
	}
	db.Put(item)

	return &CheckResult{
		ID:          id,
		Status:      StatusBaseline,
		FreshMarker: ext.Marker,
		Strategy:    ext.Strategy,
		Item:        item,
	}, nil
}

// CheckItem checks a single tracked item and returns the derived record.
// Per-item failures are reported in the result, never as a returned error;
// the returned error is only set when ctx is done.
func (c *Checker) CheckItem(ctx context.Context, item TrackedItem) (*CheckResult, error) {
	next := item
	next.FetchCount++
	next.LastCheckedAt = c.nowFunc()

	result := &CheckResult{
		ID:             item.ID,
		PreviousMarker: item.Marker,
	}

	ext, err := c.Observe(ctx, item.ID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		result.Status = StatusFailed
		result.Error = err
		next.LastError = err.Error()
		result.Item = next
		return result, nil
	}
	result.FreshMarker = ext.Marker
	result.Strategy = ext.Strategy

	cls := Classify(item.Marker, ext.Marker)
	if cls.Adopt {
		next.Marker = ext.Marker
	}

	switch {
	case cls.Err != nil:
		result.Status = StatusInconclusive
		result.Error = cls.Err
		// An adopted fresh marker replaces the stored one that failed
		if cls.Adopt {
			next.LastError = ""
		} else {
			next.LastError = cls.Err.Error()
		}
	case cls.Outcome == OutcomeBaseline:
		result.Status = StatusBaseline
		next.LastError = ""
	case cls.Outcome == OutcomeUpdateDetected:
		result.Status = StatusUpdated
		next.LastError = ""
		next.LastUpdateAt = next.LastCheckedAt
	default:
		result.Status = StatusUnchanged
		next.LastError = ""
	}

	result.Item = next
	return result, nil
}

// CheckAll checks every item of db in insertion order and returns the
// results together with a new database holding the derived records.
// The input database is left untouched. A failing item never stops the
// batch; only a cancelled context does, in which case no database is returned.
func (c *Checker) CheckAll(ctx context.Context, db *Database) ([]CheckResult, *Database, error) {
	items := db.Items()
	results := make([]CheckResult, 0, len(items))
	next := NewDatabase()

	for _, item := range items {
		result, err := c.CheckItem(ctx, item)
		if err != nil {
			return results, nil, err
		}
		results = append(results, *result)
		next.Put(result.Item)
	}

	return results, next, nil
}
