// Package csvfile loads operator records from a delimited text file with a
// header row, such as the ANS "operadoras ativas" export.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
)

// Supported encodings.
const (
	EncodingLatin1 = "latin1"
	EncodingUTF8   = "utf-8"
)

// DefaultDelimiter is the separator of the ANS exports.
const DefaultDelimiter = ';'

const ctxCheckEvery = 1000

var errNoHeader = errors.New("missing header row")

// Config describes the file layout.
type Config struct {
	Path      string
	Delimiter rune
	Encoding  string
}

// Source reads records from a CSV file on every Load.
type Source struct {
	path      string
	delimiter rune
	latin1    bool
}

// New validates cfg and creates a file source.
func New(cfg Config) (*Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	s := &Source{path: cfg.Path, delimiter: cfg.Delimiter}
	if s.delimiter == 0 {
		s.delimiter = DefaultDelimiter
	}

	switch strings.ToLower(cfg.Encoding) {
	case "", EncodingLatin1, "iso-8859-1":
		s.latin1 = true
	case EncodingUTF8, "utf8":
	default:
		return nil, fmt.Errorf("unsupported encoding %q", cfg.Encoding)
	}
	return s, nil
}

// Name identifies the source in logs and snapshots.
func (s *Source) Name() string { return "csv:" + s.path }

// Path returns the file path.
func (s *Source) Path() string { return s.path }

// Load reads and parses the whole file.
func (s *Source) Load(ctx context.Context) ([]domrec.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if s.latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(f)
	}

	records, err := Parse(ctx, r, s.delimiter)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return records, nil
}

// Parse reads UTF-8 delimited text with a header row. Header names are
// trimmed and lower-cased. Short rows lack their trailing fields, extra
// cells are dropped.
func Parse(ctx context.Context, r io.Reader, delimiter rune) ([]domrec.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := normalizeHeader(header)

	var records []domrec.Record
	for row := 1; ; row++ {
		if row%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		fields := make(map[string]string, len(columns))
		for i, cell := range cells {
			if i >= len(columns) {
				break
			}
			if columns[i] == "" {
				continue
			}
			fields[columns[i]] = strings.TrimSpace(cell)
		}
		records = append(records, domrec.New(fields))
	}
	return records, nil
}

// normalizeHeader lower-cases names and blanks out empty or repeated ones.
func normalizeHeader(header []string) []string {
	seen := make(map[string]bool, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
