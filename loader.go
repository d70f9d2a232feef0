package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/dustin/go-humanize"
)

// SectionSummary reports what happened to one COPY section.
type SectionSummary struct {
	Table      string
	Mapped     bool // false when the table has no mapper and rows were ignored
	Loaded     int  // insert executed (row inserted or ignored as duplicate)
	Skipped    int  // too few fields
	Failed     int  // coercion or insert error
	Terminated bool // closed by \. rather than by a new COPY or end of input
}

// LoadSummary is the result of one pass over a dump.
type LoadSummary struct {
	Lines    int
	Sections []SectionSummary
}

// Loaded sums loaded rows across sections of the same table.
func (s *LoadSummary) Loaded(table string) int {
	n := 0
	for _, sec := range s.Sections {
		if sec.Table == table {
			n += sec.Loaded
		}
	}
	return n
}

// Loader streams a dump into the target, one insert-or-ignore per row.
// A nil db runs in dry-run mode: rows are parsed and mapped but not written.
type Loader struct {
	db              *sql.DB
	target          TargetDB
	log             *log.Logger
	batchSize       int
	maxLoggedErrors int
}

func newLoader(db *sql.DB, target TargetDB, logger *log.Logger, batchSize, maxLoggedErrors int) *Loader {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Loader{
		db:              db,
		target:          target,
		log:             logger,
		batchSize:       batchSize,
		maxLoggedErrors: maxLoggedErrors,
	}
}

// section is the state of the open COPY section.
type section struct {
	summary   SectionSummary
	mapper    *TableMapper
	insertSQL string
	tx        *sql.Tx
	logged    int
}

// Load makes one pass over r. Row-level problems are counted and logged;
// the returned error is always fatal.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*LoadSummary, error) {
	summary := &LoadSummary{}
	scanner := newDumpScanner(r)
	var cur *section

	// An aborted run leaves the open batch unpersisted.
	defer func() {
		if cur != nil && cur.tx != nil {
			_ = cur.tx.Rollback()
		}
	}()

	for {
		line, ok := scanner.Next()
		if !ok {
			break
		}
		summary.Lines = line.Num
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("load interrupted at line %d: %w", line.Num, err)
		}

		switch line.Kind {
		case lineSectionStart:
			if cur != nil {
				l.log.Printf("WARN: line %d: section %s started before %s was terminated", line.Num, line.Table, cur.summary.Table)
				if err := l.finishSection(cur, summary); err != nil {
					return summary, err
				}
			}
			cur = l.startSection(line.Table)

		case lineSectionEnd:
			if cur == nil {
				continue
			}
			cur.summary.Terminated = true
			if err := l.finishSection(cur, summary); err != nil {
				return summary, err
			}
			cur = nil

		case lineData:
			if cur == nil {
				continue
			}
			if err := l.loadRow(ctx, cur, line); err != nil {
				return summary, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read dump: %w", err)
	}

	if cur != nil {
		l.log.Printf("WARN: dump ended inside section %s", cur.summary.Table)
		if err := l.finishSection(cur, summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (l *Loader) startSection(table string) *section {
	s := &section{summary: SectionSummary{Table: table}}
	l.log.Printf("")
	s.mapper = lookupMapper(table)
	if s.mapper == nil {
		l.log.Printf("Processing %s... (no mapping, rows ignored)", table)
		return s
	}
	s.summary.Mapped = true
	s.insertSQL = l.target.InsertIgnoreSQL(s.mapper.Table, s.mapper.Columns)
	l.log.Printf("Processing %s...", table)
	return s
}

func (l *Loader) finishSection(s *section, summary *LoadSummary) error {
	if err := l.commit(s); err != nil {
		return err
	}
	if hidden := s.summary.Failed - s.logged; hidden > 0 {
		l.log.Printf("  %s more row errors not shown", humanize.Comma(int64(hidden)))
	}
	if s.summary.Skipped > 0 {
		l.log.Printf("  %s short rows skipped", humanize.Comma(int64(s.summary.Skipped)))
	}
	l.log.Printf("Completed %s: %s rows", s.summary.Table, humanize.Comma(int64(s.summary.Loaded)))
	summary.Sections = append(summary.Sections, s.summary)
	return nil
}

func (l *Loader) loadRow(ctx context.Context, s *section, line dumpLine) error {
	if s.mapper == nil {
		return nil
	}

	vals, err := s.mapper.MapRow(line.Fields)
	if err != nil {
		if errors.Is(err, ErrRowTooShort) {
			s.summary.Skipped++
			return nil
		}
		l.rowFailed(s, line.Num, err)
		return nil
	}

	if l.db != nil {
		if err := l.insert(ctx, s, vals); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("load interrupted at line %d: %w", line.Num, ctxErr)
			}
			if isConnectionError(err) {
				return fmt.Errorf("%w: line %d (%s): %v", ErrConnection, line.Num, s.summary.Table, err)
			}
			l.rowFailed(s, line.Num, fmt.Errorf("%w: %v", ErrInsert, err))
			return nil
		}
	}

	s.summary.Loaded++
	if s.summary.Loaded%l.batchSize == 0 {
		l.log.Printf("  %s rows processed...", humanize.Comma(int64(s.summary.Loaded)))
		return l.commit(s)
	}
	return nil
}

func (l *Loader) rowFailed(s *section, lineNum int, err error) {
	s.summary.Failed++
	if s.logged >= l.maxLoggedErrors {
		return
	}
	s.logged++
	rowErr := &RowError{Line: lineNum, Table: s.summary.Table, Err: err}
	l.log.Printf("  WARN: %v", rowErr)
}

const rowSavepoint = "rxferry_row"

// insert executes one insert-or-ignore inside the section's open batch.
func (l *Loader) insert(ctx context.Context, s *section, vals []any) error {
	if s.tx == nil {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		s.tx = tx
	}

	if !l.target.RowSavepoints() {
		_, err := s.tx.ExecContext(ctx, s.insertSQL, vals...)
		return err
	}

	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+rowSavepoint); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, s.insertSQL, vals...); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+rowSavepoint); rbErr != nil {
			return fmt.Errorf("%v (rollback to savepoint: %w)", err, rbErr)
		}
		return err
	}
	_, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+rowSavepoint)
	return err
}

// commit flushes the section's open batch, if any.
func (l *Loader) commit(s *section) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", ErrConnection, s.summary.Table, err)
	}
	return nil
}
