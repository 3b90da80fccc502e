package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lhiwi/acis-insurance-project/internal/table"
	"github.com/parquet-go/parquet-go"
)

const parquetBatch = 256

// loadParquet flattens leaf columns into string cells. Nested paths are
// joined with dots.
func loadParquet(data []byte) (t *table.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("parquet reader panic: %v", r)
		}
	}()

	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	paths := f.Schema().Columns()
	if len(paths) == 0 {
		return nil, errors.New("parquet file has no columns")
	}
	columns := make([]string, len(paths))
	for i, p := range paths {
		columns[i] = strings.Join(p, ".")
	}

	r := parquet.NewReader(f)
	defer r.Close()

	var rows [][]string
	buf := make([]parquet.Row, parquetBatch)
	for {
		n, err := r.ReadRows(buf)
		for _, row := range buf[:n] {
			rows = append(rows, parquetRecord(row, len(columns)))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return table.New(dedupeColumns(columns), rows)
}

func parquetRecord(row parquet.Row, width int) []string {
	out := make([]string, width)
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= width || v.IsNull() {
			continue
		}
		cell := parquetCell(v)
		if out[col] != "" {
			out[col] += "," + cell
			continue
		}
		out[col] = cell
	}
	return out
}

func parquetCell(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return table.FormatFloat(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
