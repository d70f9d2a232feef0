package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/dustin/go-humanize"
)

// tableCounts maps destination table to row count; -1 means the count failed.
type tableCounts map[string]int64

// collectRowCounts counts every mapped destination table. A failing count is
// logged and recorded as -1 rather than aborting the run.
func collectRowCounts(ctx context.Context, db *sql.DB, target TargetDB, logger *log.Logger) tableCounts {
	counts := tableCounts{}
	for _, table := range mappedTables() {
		n, err := countRows(ctx, db, target, table)
		if err != nil {
			logger.Printf("  WARN: %v", err)
			n = -1
		}
		counts[table] = n
	}
	return counts
}

// printRowCounts writes one line per table, with the delta when a baseline
// is given.
func printRowCounts(logger *log.Logger, title string, counts, before tableCounts) {
	logger.Printf("%s:", title)
	for _, table := range mappedTables() {
		n := counts[table]
		if n < 0 {
			logger.Printf("  %s: unavailable", table)
			continue
		}
		prev, ok := before[table]
		if !ok || prev < 0 {
			logger.Printf("  %s: %s", table, humanize.Comma(n))
			continue
		}
		logger.Printf("  %s: %s (+%s)", table, humanize.Comma(n), humanize.Comma(n-prev))
	}
}
