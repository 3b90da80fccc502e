package loader

import (
	"strings"
	"testing"
)

func TestHeuristicSniffer_Detect(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   Delimiter
	}{
		{name: "comma", sample: "a,b,c\n1,2,3\n", want: Comma},
		{name: "semicolon", sample: "a;b;c\n1;2;3\n", want: Semicolon},
		{name: "tab", sample: "a\tb\tc\n1\t2\t3\n", want: Tab},
		{name: "pipe", sample: "a|b|c\n1|2|3\n", want: Pipe},
		{name: "comma wins tie-break over semicolon", sample: "a,b,c;d;e\n", want: Comma},
		{name: "semicolon beats tab when comma does not qualify", sample: "a;b;c\td\te\n", want: Semicolon},
		{name: "whitespace run", sample: "a  b\n1  2", want: Whitespace},
		{name: "empty", sample: "", want: Comma},
		{name: "single token", sample: "x", want: Comma},
		{name: "count equal to newlines falls through", sample: "a,b\n", want: Comma},
		{name: "crlf counted once", sample: "a;b\r\n1;2\r\n", want: Semicolon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicSniffer{}.Detect([]byte(tt.sample))
			if got != tt.want {
				t.Errorf("Detect(%q) = %s, want %s", tt.sample, got, tt.want)
			}
		})
	}
}

func TestHeuristicSniffer_DelimiterCountExceedsNewlines(t *testing.T) {
	for _, c := range []Delimiter{Comma, Semicolon, Tab, Pipe} {
		t.Run(c.String(), func(t *testing.T) {
			sep := string(c.Comma)
			var b strings.Builder
			for i := 0; i < 5; i++ {
				b.WriteString("x" + sep + "y" + sep + "z\n")
			}
			if got := (HeuristicSniffer{}).Detect([]byte(b.String())); got != c {
				t.Errorf("expected %q, got %q", c.String(), got.String())
			}
		})
	}
}

func TestLoader_SniffsLeadingSample(t *testing.T) {
	// Semicolons only appear after the sample window.
	head := strings.Repeat("abcdefgh\n", SampleSize/9+1)
	data := []byte(head + strings.Repeat("a;b;c;d;e\n", 50))

	got, err := newTestLoader().Load("policies.csv", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NumColumns() != 1 || got.Rows[got.NumRows()-1][0] != "a;b;c;d;e" {
		t.Errorf("expected a single comma-split column, got %v", got.Columns)
	}
}

func TestConsistencySniffer_Detect(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   Delimiter
	}{
		{name: "consistent semicolons", sample: "a;b;c\n1;2;3\n4;5;6\n", want: Semicolon},
		{name: "stray comma in text", sample: "a|b\n1,5|2\n3|4\n", want: Pipe},
		{name: "whitespace only", sample: "a   b\n1   2\n", want: Whitespace},
		{name: "empty", sample: "\n\n", want: Comma},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (ConsistencySniffer{}).Detect([]byte(tt.sample)); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.sample, got.String(), tt.want.String())
			}
		})
	}
}
