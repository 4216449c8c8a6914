package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/obentoo/appcheck/internal/common/config"
	"github.com/obentoo/appcheck/internal/common/logger"
	"github.com/obentoo/appcheck/internal/common/output"
	"github.com/obentoo/appcheck/internal/tracker"
	"github.com/spf13/cobra"
)

var (
	// addPackage is the identifier to start tracking
	addPackage string
	// deletePackage is the identifier to stop tracking
	deletePackage string
	// listPackages triggers listing tracked apps
	listPackages bool
	// importFile is a TOML watchlist of identifiers to track
	importFile string
)

// exitInterrupted is the exit status after SIGINT/SIGTERM
const exitInterrupted = 130

// dayLayout is how calendar days are shown to the user
const dayLayout = "Jan 02, 2006"

func init() {
	rootCmd.Flags().StringVarP(&addPackage, "package", "p", "", "Package name to add")
	rootCmd.Flags().StringVarP(&deletePackage, "delete", "d", "", "Package name to delete")
	rootCmd.Flags().BoolVarP(&listPackages, "list", "l", false, "List tracked packages")
	rootCmd.Flags().StringVarP(&importFile, "import", "i", "", "Add every package listed in a TOML watchlist")
	rootCmd.MarkFlagsMutuallyExclusive("package", "delete", "list", "import")
}

func runTrack(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}

	dataDir, err := cfg.GetDataDir()
	if err != nil {
		logger.Error("resolving data directory: %v", err)
		os.Exit(1)
	}
	store, err := tracker.NewStore(dataDir)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	logger.Debug("Using database %s", store.Path())

	// Handle different modes
	switch {
	case addPackage != "":
		runAdd(ctx, cfg, store, addPackage)
	case deletePackage != "":
		runDelete(store, deletePackage)
	case listPackages:
		runList(store)
	case importFile != "":
		runImport(ctx, cfg, store, importFile)
	default:
		runCheck(ctx, cfg, store)
	}
}

// loadConfig honors --config, falling back to the default location
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// loadDatabase reads the store; a corrupted file is reported and replaced
// by an empty database
func loadDatabase(store *tracker.Store) *tracker.Database {
	db, err := store.Load()
	if err != nil {
		if errors.Is(err, tracker.ErrStoreCorrupted) {
			output.PrintWarning("%v", err)
			return db
		}
		logger.Error("loading database: %v", err)
		os.Exit(1)
	}
	return db
}

// saveDatabase persists db or exits
func saveDatabase(store *tracker.Store, db *tracker.Database) {
	if err := store.Save(db); err != nil {
		logger.Error("saving database: %v", err)
		os.Exit(1)
	}
	logger.Debug("Saved %d package(s) to %s", db.Len(), store.Path())
}

// newChecker builds a checker from the HTTP settings in cfg
func newChecker(cfg *config.Config) *tracker.Checker {
	fc, err := cfg.FetchConfig()
	if err != nil {
		logger.Error("invalid HTTP settings: %v", err)
		os.Exit(1)
	}
	logger.Debug("Storefront %s (hl=%s gl=%s), timeout %v, delay %v",
		fc.BaseURL, fc.Language, fc.Country, fc.Timeout, fc.Delay)
	return tracker.NewChecker(tracker.NewFetcher(fc))
}

// exitIfInterrupted aborts without saving once ctx is cancelled
func exitIfInterrupted(ctx context.Context) {
	if ctx.Err() != nil {
		output.PrintError("Interrupted, no changes were saved")
		logger.Close()
		os.Exit(exitInterrupted)
	}
}

// formatDay renders t as a calendar day, "never" for the zero time
func formatDay(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(dayLayout)
}

// runAdd handles the --package flag
func runAdd(ctx context.Context, cfg *config.Config, store *tracker.Store, id string) {
	db := loadDatabase(store)

	if item, ok := db.Get(id); ok {
		printAlreadyManaged(item)
		return
	}

	result, err := newChecker(cfg).Add(ctx, db, id)
	if err != nil {
		exitIfInterrupted(ctx)
		output.PrintError("Cannot get update date for package %s: %v",
			output.Sprint(output.Error, id), err)
		os.Exit(1)
	}
	logger.Debug("%s: %q found by %s strategy", id, result.FreshMarker, result.Strategy)

	saveDatabase(store, db)
	printAdded(result)
}

// printAlreadyManaged reports an identifier that is tracked already
func printAlreadyManaged(item tracker.TrackedItem) {
	output.PrintInfo("Package %s is already managed.", output.FormatPackage(item.ID))
	output.PrintInfo("Last update: %s", output.Sprint(output.Info, item.Marker))
	output.PrintInfo("Checking date since: %s", output.Sprint(output.Info, formatDay(item.AddedAt)))
	fmt.Println()
}

// printAdded reports a successful add
func printAdded(result *tracker.CheckResult) {
	output.PrintSuccess("Package %s added successfully!", output.Sprint(output.Success, result.ID))
	output.PrintInfo("Last update: %s", output.Sprint(output.Info, result.FreshMarker))
	output.PrintInfo("Checking date since: %s", output.Sprint(output.Info, formatDay(result.Item.AddedAt)))
	fmt.Println()
}

// runDelete handles the --delete flag
func runDelete(store *tracker.Store, id string) {
	db := loadDatabase(store)

	if err := db.Delete(id); err != nil {
		if errors.Is(err, tracker.ErrItemNotFound) {
			output.PrintError("Package %s doesn't exist in database", output.Sprint(output.Error, id))
		} else {
			output.PrintError("%v", err)
		}
		os.Exit(1)
	}

	saveDatabase(store, db)
	output.PrintSuccess("Package %s deleted successfully!", output.Sprint(output.Success, id))
	fmt.Println()
}

// runList handles the --list flag
func runList(store *tracker.Store) {
	db := loadDatabase(store)
	displayTrackedItems(db.Items())
}

// displayTrackedItems formats and displays tracked apps
func displayTrackedItems(items []tracker.TrackedItem) {
	if len(items) == 0 {
		output.PrintInfo("Package database empty")
		fmt.Println()
		return
	}

	output.Header.Println("Tracked Packages")
	fmt.Println()

	for _, item := range items {
		if item.LastError != "" {
			fmt.Printf("  %s %s\n", output.FormatPackage(item.ID), output.FormatStatus(string(tracker.StatusFailed)))
		} else {
			fmt.Printf("  %s\n", output.FormatPackage(item.ID))
		}
		fmt.Printf("    Last update:   %s\n", item.Marker)
		fmt.Printf("    Tracked since: %s\n", formatDay(item.AddedAt))
		fmt.Printf("    Last checked:  %s %s\n", formatDay(item.LastCheckedAt),
			output.Sprintf(output.Dim, "(%d check(s))", item.FetchCount))
		if !item.LastUpdateAt.IsZero() {
			fmt.Printf("    Update seen:   %s\n", output.Sprint(output.Updated, formatDay(item.LastUpdateAt)))
		}
		if item.LastError != "" {
			fmt.Printf("    Last error:    %s\n", output.Sprint(output.Failed, item.LastError))
		}
		fmt.Println()
	}

	output.PrintInfo("%d package(s) tracked", len(items))
}

// runImport handles the --import flag
func runImport(ctx context.Context, cfg *config.Config, store *tracker.Store, path string) {
	wl, err := tracker.LoadWatchlist(path)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	ids, invalid := wl.Identifiers()
	for _, err := range invalid {
		output.PrintError("%v", err)
	}

	db := loadDatabase(store)
	checker := newChecker(cfg)

	var added, failed int
	for _, id := range ids {
		if db.Has(id) {
			logger.Debug("%s is already managed, skipping", id)
			continue
		}

		result, err := checker.Add(ctx, db, id)
		if err != nil {
			exitIfInterrupted(ctx)
			failed++
			output.PrintError("Cannot get update date for package %s: %v",
				output.Sprint(output.Error, id), err)
			continue
		}
		added++
		output.PrintSuccess("Package %s added successfully! Last update: %s",
			output.Sprint(output.Success, id), output.Sprint(output.Info, result.FreshMarker))
	}

	if added > 0 {
		saveDatabase(store, db)
	}

	fmt.Println()
	output.PrintInfo("Imported %d package(s) from %s", added, path)
	if failed+len(invalid) > 0 {
		output.PrintWarning("%d package(s) could not be added", failed+len(invalid))
	}
}

// runCheck handles the default check pass
func runCheck(ctx context.Context, cfg *config.Config, store *tracker.Store) {
	db := loadDatabase(store)
	if db.Len() == 0 {
		output.PrintInfo("Package database empty")
		fmt.Println()
		return
	}

	results, next, err := newChecker(cfg).CheckAll(ctx, db)
	if err != nil {
		exitIfInterrupted(ctx)
		logger.Error("checking packages: %v", err)
		os.Exit(1)
	}

	displayCheckResults(db, results)

	output.PrintInfo("Updating last check date to today")
	saveDatabase(store, next)
	output.PrintSuccess("All packages updated with today's date: %s",
		output.Sprint(output.Success, time.Now().Format(dayLayout)))
	fmt.Println()
}

// statusOrder is the order statuses are listed in the summary
var statusOrder = []tracker.Status{
	tracker.StatusUpdated,
	tracker.StatusUnchanged,
	tracker.StatusBaseline,
	tracker.StatusInconclusive,
	tracker.StatusFailed,
}

// checkSummary counts check results by outcome
type checkSummary struct {
	Updated  int
	Problems int
	ByStatus map[tracker.Status]int
}

// summarize counts updates and per-item problems in results
func summarize(results []tracker.CheckResult) checkSummary {
	s := checkSummary{ByStatus: make(map[tracker.Status]int)}
	for _, r := range results {
		s.ByStatus[r.Status]++
		switch r.Status {
		case tracker.StatusUpdated:
			s.Updated++
		case tracker.StatusFailed, tracker.StatusInconclusive:
			s.Problems++
		}
	}
	return s
}

// summaryLines renders one "[status] count" line per status present
func summaryLines(s checkSummary) []string {
	var lines []string
	for _, status := range statusOrder {
		if n := s.ByStatus[status]; n > 0 {
			lines = append(lines, fmt.Sprintf("  %s %d", output.FormatStatus(string(status)), n))
		}
	}
	return lines
}

// displayCheckResults formats and displays check results. prev is the
// database as it was before the check.
func displayCheckResults(prev *tracker.Database, results []tracker.CheckResult) {
	for _, r := range results {
		before, _ := prev.Get(r.ID)
		logger.Debug("%s: status=%s previous=%q fresh=%q strategy=%s",
			r.ID, r.Status, r.PreviousMarker, r.FreshMarker, r.Strategy)

		switch r.Status {
		case tracker.StatusUpdated:
			output.PrintNew("%s - New update available! Updated: %s",
				output.Sprint(output.Updated, r.ID), output.Sprint(output.Updated, r.FreshMarker))
			fmt.Printf("Previous update: %s, last checked: %s\n",
				output.Sprint(output.Error, r.PreviousMarker), output.Sprint(output.Error, formatDay(before.LastCheckedAt)))
		case tracker.StatusUnchanged:
			output.PrintInfo("%s - There aren't new updates since last tracking: (%s)",
				output.FormatPackage(r.ID), output.Sprint(output.Info, formatDay(before.LastCheckedAt)))
			fmt.Printf("Last update: %s\n", output.Sprint(output.Unchanged, r.Item.Marker))
		case tracker.StatusBaseline:
			output.PrintInfo("%s - First update date recorded: %s",
				output.FormatPackage(r.ID), output.Sprint(output.Baseline, r.FreshMarker))
		case tracker.StatusInconclusive:
			output.PrintWarning("%s - Cannot compare update dates: %v",
				output.FormatPackage(r.ID), r.Error)
			fmt.Printf("Stored update: %s\n", output.Sprint(output.Inconclusive, r.Item.Marker))
		case tracker.StatusFailed:
			output.PrintError("Cannot verify %s: %v", output.Sprint(output.Failed, r.ID), r.Error)
		}
		fmt.Println()
	}

	s := summarize(results)
	output.Header.Println("Check Results")
	for _, line := range summaryLines(s) {
		fmt.Println(line)
	}
	fmt.Println()
	if s.Updated > 0 {
		output.PrintNew("Found %d update(s) across %d package(s)", s.Updated, len(results))
	} else {
		output.PrintInfo("No new updates across %d package(s)", len(results))
	}
	if s.Problems > 0 {
		output.PrintWarning("%d package(s) could not be verified", s.Problems)
	}
}
