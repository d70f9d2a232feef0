package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
)

// runHookFiles reads each SQL file, expands {{database}}, and executes every
// statement on the target. Hook failures are fatal.
func runHookFiles(ctx context.Context, db *sql.DB, logger *log.Logger, cfg *LoadConfig, files []string, phase, database string) error {
	if len(files) == 0 {
		return nil
	}
	logger.Printf("  running %s hooks (%d files)...", phase, len(files))

	for _, f := range files {
		data, err := os.ReadFile(cfg.resolvePath(f))
		if err != nil {
			return fmt.Errorf("hook %s: read %s: %w", phase, f, err)
		}

		text := strings.ReplaceAll(string(data), "{{database}}", database)
		stmts := splitStatements(text)

		logger.Printf("    %s: %d statements", f, len(stmts))
		for i, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("hook %s: %s: statement %d: %w\nSQL: %s", phase, f, i+1, err, stmt)
			}
		}
	}
	return nil
}

// splitStatements splits SQL text on semicolons, ignoring empty entries and
// semicolons inside quotes, backtick identifiers, comments and
// dollar-quoted blocks.
func splitStatements(text string) []string {
	var stmts []string
	var cur strings.Builder
	var quote byte // one of ' " ` while inside a quoted run
	inLineComment := false
	inBlockComment := false
	dollarTag := ""

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch {
		case inLineComment:
			cur.WriteByte(c)
			if c == '\n' {
				inLineComment = false
			}
			continue
		case inBlockComment:
			cur.WriteByte(c)
			if c == '*' && i+1 < len(text) && text[i+1] == '/' {
				cur.WriteByte('/')
				i++
				inBlockComment = false
			}
			continue
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && quote == '\'' && i+1 < len(text) {
				// MySQL backslash escape inside string literals
				cur.WriteByte(text[i+1])
				i++
				continue
			}
			if c == quote {
				if i+1 < len(text) && text[i+1] == quote {
					cur.WriteByte(quote)
					i++
				} else {
					quote = 0
				}
			}
			continue
		case dollarTag != "":
			if strings.HasPrefix(text[i:], dollarTag) {
				cur.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""
				continue
			}
			cur.WriteByte(c)
			continue
		}

		switch {
		case c == '-' && i+1 < len(text) && text[i+1] == '-':
			cur.WriteString("--")
			i++
			inLineComment = true
		case c == '#':
			cur.WriteByte(c)
			inLineComment = true
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			cur.WriteString("/*")
			i++
			inBlockComment = true
		case c == '\'' || c == '"' || c == '`':
			cur.WriteByte(c)
			quote = c
		case c == '$':
			if tag, ok := parseDollarTag(text, i); ok {
				cur.WriteString(tag)
				i += len(tag) - 1
				dollarTag = tag
				continue
			}
			cur.WriteByte(c)
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()

	return stmts
}

// parseDollarTag recognises $$ and $tag$ openers at text[i].
func parseDollarTag(text string, i int) (string, bool) {
	if i+1 < len(text) && text[i+1] == '$' {
		return "$$", true
	}
	j := i + 1
	if j >= len(text) || !isTagStart(text[j]) {
		return "", false
	}
	for j < len(text) && (isTagStart(text[j]) || text[j] >= '0' && text[j] <= '9') {
		j++
	}
	if j < len(text) && text[j] == '$' {
		return text[i : j+1], true
	}
	return "", false
}

func isTagStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
