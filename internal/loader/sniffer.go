package loader

import (
	"bytes"
	"regexp"
	"strings"
)

// SampleSize is how much of a delimited upload is inspected for sniffing.
const SampleSize = 1024

// Delimiter is either a single separator rune or the
// "one-or-more-whitespace" pattern.
type Delimiter struct {
	Comma      rune
	Whitespace bool
}

var (
	Comma      = Delimiter{Comma: ','}
	Semicolon  = Delimiter{Comma: ';'}
	Tab        = Delimiter{Comma: '\t'}
	Pipe       = Delimiter{Comma: '|'}
	Whitespace = Delimiter{Whitespace: true}
)

func (d Delimiter) String() string {
	if d.Whitespace {
		return `\s+`
	}
	return string(d.Comma)
}

// Sniffer guesses the delimiter of a text sample. It never fails.
type Sniffer interface {
	Detect(sample []byte) Delimiter
}

// candidates are tried in order; the first one that beats the line count wins.
var candidates = []Delimiter{Comma, Semicolon, Tab, Pipe}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// HeuristicSniffer counts each candidate against the number of newlines in
// the sample. It is a tie-break, not a scoring: first qualifying candidate
// wins.
type HeuristicSniffer struct{}

func (HeuristicSniffer) Detect(sample []byte) Delimiter {
	text := normalizeNewlines(sample)
	newlines := strings.Count(text, "\n")

	for _, c := range candidates {
		if strings.Count(text, string(c.Comma)) > newlines {
			return c
		}
	}

	if whitespaceRun.MatchString(text) {
		return Whitespace
	}

	return Comma
}

// ConsistencySniffer picks the candidate whose per-line count is the same,
// and non-zero, on the most lines. Used by the permissive last-resort parse.
type ConsistencySniffer struct {
	MaxLines int
}

func (s ConsistencySniffer) Detect(sample []byte) Delimiter {
	maxLines := s.MaxLines
	if maxLines == 0 {
		maxLines = 20
	}

	var lines []string
	for _, line := range strings.Split(normalizeNewlines(sample), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxLines {
			break
		}
	}
	if len(lines) == 0 {
		return Comma
	}

	best, bestScore := Comma, 0
	for _, c := range candidates {
		score := consistentLines(lines, string(c.Comma))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore > 0 {
		return best
	}

	if whitespaceRun.MatchString(strings.Join(lines, "\n")) {
		return Whitespace
	}
	return Comma
}

// consistentLines counts lines carrying the same number of separators as the
// header line.
func consistentLines(lines []string, sep string) int {
	want := strings.Count(lines[0], sep)
	if want == 0 {
		return 0
	}
	n := 0
	for _, line := range lines {
		if strings.Count(line, sep) == want {
			n++
		}
	}
	return n
}

func sampleOf(data []byte) []byte {
	if len(data) > SampleSize {
		return data[:SampleSize]
	}
	return data
}

// normalizeNewlines folds CRLF and lone CR so line counting matches text-mode
// reads.
func normalizeNewlines(b []byte) string {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
	return string(b)
}
