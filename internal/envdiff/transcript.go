package envdiff

import (
	"fmt"
	"strings"
)

const bashFuncPrefix = "BASH_FUNC_"

// Snapshot maps variable names to values at one instant.
type Snapshot map[string]string

// Transcript is a parsed shell transcript.
type Transcript struct {
	Before Snapshot
	Output []string
	After  Snapshot
}

// ParseTranscript splits text on the first and last divider and parses the
// three segments. Anything the script echoes that happens to contain the
// divider stays in Output.
func ParseTranscript(text, divider string) (*Transcript, error) {
	if divider == "" {
		return nil, fmt.Errorf("%w: empty divider", ErrParse)
	}
	first := strings.Index(text, divider)
	last := strings.LastIndex(text, divider)
	if first < 0 || first == last {
		return nil, fmt.Errorf("%w: divider found %d time(s), want 2", ErrParse, strings.Count(text, divider))
	}
	return &Transcript{
		Before: ParseSnapshot(text[:first]),
		Output: splitLines(text[first+len(divider) : last]),
		After:  ParseSnapshot(text[last+len(divider):]),
	}, nil
}

// ParseSnapshot parses NAME=VALUE lines, splitting on the first "=".
//
// Lines without "=" are skipped, and so are continuation lines of values
// that span several lines unless they happen to contain "=". Lines with an
// empty name, such as cmd.exe's "=C:=C:\src", are skipped too.
//
// Functions exported by bash ("BASH_FUNC_f%%=() {" followed by the body)
// are skipped: only their first line would survive, and a shell that
// imports the truncated definition fails.
func ParseSnapshot(text string) Snapshot {
	snap := make(Snapshot)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		name, value, ok := strings.Cut(line, "=")
		if !ok || name == "" || strings.HasPrefix(name, bashFuncPrefix) {
			continue
		}
		snap[name] = value
	}
	return snap
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
