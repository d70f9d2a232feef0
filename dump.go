package main

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// lineKind classifies one line of a dump.
type lineKind int

const (
	lineOther lineKind = iota
	lineSectionStart
	lineSectionEnd
	lineData
)

// copyEndMarker terminates a COPY ... FROM stdin block.
const copyEndMarker = `\.`

var copyStartRe = regexp.MustCompile(`^COPY public\.(\w+)`)

// dumpLine is one classified line.
type dumpLine struct {
	Num    int
	Kind   lineKind
	Table  string   // set for lineSectionStart
	Fields []string // set for lineData
}

// dumpScanner walks a dump line by line and tracks whether a COPY section
// is open. It does not commit or insert anything.
type dumpScanner struct {
	sc     *bufio.Scanner
	line   int
	active string
}

// maxLineSize bounds a single dump line; npi_details rows can be long.
const maxLineSize = 16 * 1024 * 1024

func newDumpScanner(r io.Reader) *dumpScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &dumpScanner{sc: sc}
}

// Next returns the next line, or false at end of input. Call Err afterwards.
func (d *dumpScanner) Next() (dumpLine, bool) {
	if !d.sc.Scan() {
		return dumpLine{}, false
	}
	d.line++
	raw := strings.TrimRight(d.sc.Text(), "\r")
	return d.classify(raw), true
}

func (d *dumpScanner) Err() error { return d.sc.Err() }

// Active returns the table of the open section, or "".
func (d *dumpScanner) Active() string { return d.active }

func (d *dumpScanner) classify(raw string) dumpLine {
	l := dumpLine{Num: d.line, Kind: lineOther}
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "COPY public.") {
		if m := copyStartRe.FindStringSubmatch(trimmed); m != nil {
			l.Kind = lineSectionStart
			l.Table = m[1]
			d.active = m[1]
		}
		return l
	}
	if d.active == "" {
		return l
	}
	if trimmed == copyEndMarker {
		l.Kind = lineSectionEnd
		l.Table = d.active
		d.active = ""
		return l
	}
	if trimmed == "" {
		return l
	}
	l.Kind = lineData
	l.Table = d.active
	l.Fields = strings.Split(raw, "\t")
	return l
}
