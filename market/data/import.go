// Package data imports end-of-day bar dumps into the canonical bar CSV the
// backtest feed reads. Exchange EOD archives arrive as plain CSV, as
// .xz-compressed CSV, or zipped per-symbol bundles; this package flattens
// all three into one normalized file.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"
)

// canonical header of the normalized output.
var header = []string{"date", "symbol", "open", "high", "low", "close", "volume"}

// Importer normalizes EOD sources into one CSV stream.
type Importer struct {
	w    *csv.Writer
	rows int
}

// NewImporter writes the canonical header and returns an importer
// appending to w.
func NewImporter(w io.Writer) (*Importer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	return &Importer{w: cw}, nil
}

// Rows imported so far.
func (im *Importer) Rows() int { return im.rows }

// Flush finishes the output stream.
func (im *Importer) Flush() error {
	im.w.Flush()
	return im.w.Error()
}

// ImportFile dispatches on the source extension: .csv, .csv.xz / .xz, or
// .zip bundles of CSV files.
func (im *Importer) ImportFile(path string) error {
	switch {
	case strings.HasSuffix(path, ".zip"):
		return im.importZip(path)
	case strings.HasSuffix(path, ".xz"):
		return im.importXZ(path)
	case strings.HasSuffix(path, ".csv"):
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return im.importCSV(f, path)
	default:
		return fmt.Errorf("import %s: unsupported format (want .csv, .xz or .zip)", path)
	}
}

func (im *Importer) importXZ(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("import %s: open xz stream: %w", path, err)
	}
	return im.importCSV(r, path)
}

func (im *Importer) importZip(path string) error {
	tmp, err := os.MkdirTemp("", "eod-import-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := unzip.Extract(path, tmp); err != nil {
		return fmt.Errorf("import %s: extract: %w", path, err)
	}

	// Deterministic member order regardless of archive layout.
	var members []string
	err = filepath.WalkDir(tmp, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".csv") {
			members = append(members, p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(members)

	for _, m := range members {
		f, err := os.Open(m)
		if err != nil {
			return err
		}
		err = im.importCSV(f, m)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// importCSV copies normalized rows from one source. Rows that do not parse
// are reported, not silently dropped.
func (im *Importer) importCSV(r io.Reader, name string) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", name, err)
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}
		norm, err := normalizeRow(row)
		if err != nil {
			return fmt.Errorf("import %s line %d: %w", name, line, err)
		}
		if err := im.w.Write(norm); err != nil {
			return err
		}
		im.rows++
	}
}

// normalizeRow validates shape and date format; prices stay as the exact
// strings the source provided.
func normalizeRow(row []string) ([]string, error) {
	if len(row) < 6 {
		return nil, fmt.Errorf("need at least 6 columns date,symbol,open,high,low,close, got %d", len(row))
	}

	date := strings.TrimSpace(row[0])
	if _, err := time.Parse("2006-01-02", date); err != nil {
		// Some dumps use compact dates.
		t, err2 := time.Parse("20060102", date)
		if err2 != nil {
			return nil, fmt.Errorf("bad date %q", date)
		}
		date = t.Format("2006-01-02")
	}

	sym := strings.TrimSpace(row[1])
	if sym == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	out := []string{date, sym}
	for i := 2; i < 6; i++ {
		v := strings.TrimSpace(row[i])
		if v == "" {
			return nil, fmt.Errorf("empty column %d", i)
		}
		out = append(out, v)
	}
	vol := "0"
	if len(row) > 6 && strings.TrimSpace(row[6]) != "" {
		vol = strings.TrimSpace(row[6])
	}
	return append(out, vol), nil
}
