package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lhiwi/acis-insurance-project/internal/table"
	"golang.org/x/text/encoding/charmap"
)

type textEncoding struct {
	name   string
	decode func([]byte) (string, error)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fallbackEncodings are tried in order after UTF-8 fails.
var fallbackEncodings = []textEncoding{
	{"latin1", charmapDecoder(charmap.ISO8859_1)},
	{"ISO-8859-1", charmapDecoder(charmap.ISO8859_1)},
	{"cp1252", charmapDecoder(charmap.Windows1252)},
}

func charmapDecoder(cm *charmap.Charmap) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		out, err := cm.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func decodeUTF8(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return "", fmt.Errorf("'utf-8' codec can't decode byte at position %d", invalidUTF8Offset(b))
	}
	return string(b), nil
}

func invalidUTF8Offset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// loadDelimited parses with the sniffed delimiter under UTF-8, then each
// fallback encoding, then a permissive re-sniffed UTF-8 parse.
func (l *Loader) loadDelimited(data []byte) (*table.Table, error) {
	delim := l.sniffer.Detect(sampleOf(data))
	l.logger.Debug().Str("delimiter", delim.String()).Msg("delimiter detected")

	text, err := decodeUTF8(data)
	if err == nil {
		var t *table.Table
		if t, err = parseDelimited(text, delim, false); err == nil {
			return t, nil
		}
	}
	l.logger.Warn().Err(err).Str("encoding", "utf-8").Msg("delimited parse failed, trying fallback encodings")

	for _, enc := range fallbackEncodings {
		text, err := enc.decode(data)
		if err != nil {
			l.logger.Warn().Err(err).Str("encoding", enc.name).Msg("decode failed")
			continue
		}
		t, err := parseDelimited(text, delim, false)
		if err != nil {
			l.logger.Warn().Err(err).Str("encoding", enc.name).Msg("delimited parse failed")
			continue
		}
		l.logger.Info().Str("encoding", enc.name).Msg("parsed with fallback encoding")
		return t, nil
	}

	text = strings.ToValidUTF8(string(bytes.TrimPrefix(data, utf8BOM)), "\uFFFD")
	delim = ConsistencySniffer{}.Detect(sampleOf([]byte(text)))
	l.logger.Warn().Str("delimiter", delim.String()).Msg("falling back to permissive parse")

	return parseDelimited(text, delim, true)
}

// parseDelimited reads a header and records. Short records are padded; a
// record with more fields than the header is an error.
func parseDelimited(text string, delim Delimiter, permissive bool) (*table.Table, error) {
	var (
		records [][]string
		err     error
	)
	if delim.Whitespace {
		records = splitWhitespace(text)
	} else {
		records, err = readCSV(text, delim.Comma, permissive)
		if err != nil {
			return nil, err
		}
	}

	if len(records) == 0 {
		return nil, errors.New("no columns to parse from file")
	}

	header := dedupeColumns(records[0])
	rows := records[1:]
	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("error tokenizing data: expected %d fields in line %d, saw %d", len(header), i+2, len(row))
		}
	}

	return table.New(header, rows)
}

func readCSV(text string, comma rune, permissive bool) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = permissive

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func splitWhitespace(text string) [][]string {
	var records [][]string
	for _, line := range strings.Split(normalizeNewlines([]byte(text)), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		records = append(records, fields)
	}
	return records
}

// dedupeColumns suffixes repeated labels with .1, .2, ...
func dedupeColumns(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		n, dup := seen[name]
		seen[name] = n + 1
		if !dup {
			out[i] = name
			continue
		}
		candidate := name + "." + strconv.Itoa(n)
		for {
			if _, taken := seen[candidate]; !taken {
				break
			}
			n++
			candidate = name + "." + strconv.Itoa(n)
		}
		seen[candidate] = 1
		out[i] = candidate
	}
	return out
}
