// Package tracker provides update tracking for Android apps listed on a
// storefront (Google Play).
//
// The package implements:
//   - Page fetching with a fixed inter-request delay
//   - Update date extraction through an ordered strategy chain
//   - Date normalization from several human formats
//   - Change detection between a stored and a fresh marker
//   - An insertion-ordered JSON database of tracked apps
//   - TOML watchlists for bulk imports
//
// State is kept in ~/.local/share/appcheck/data.json.
//
// Usage:
//
//	store, err := tracker.NewStore(dataDir)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db, err := store.Load()
//	checker := tracker.NewChecker(tracker.NewFetcher(tracker.DefaultFetchConfig()))
//	results, next, err := checker.CheckAll(ctx, db)
//	if err == nil {
//	    err = store.Save(next)
//	}
package tracker
