package assets

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reference summarizes the reference dataset. Only the column means are
// kept; the rows are discarded after reading.
type Reference struct {
	Header       []string
	FeatureNames []string
	LabelColumn  string
	Rows         int
	Means        map[string]float64
}

// ReadReference streams a CSV file and computes per-column means for every
// column except labelColumn.
func ReadReference(path, labelColumn string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseReference(bufio.NewReader(f), labelColumn)
}

func parseReference(r io.Reader, labelColumn string) (*Reference, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("reference dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	labelIdx := -1
	names := make([]string, 0, len(header))
	cols := make([]int, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		if h == labelColumn {
			labelIdx = i
			continue
		}
		names = append(names, h)
		cols = append(cols, i)
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("label column %q not found in header", labelColumn)
	}
	if len(names) == 0 {
		return nil, errors.New("reference dataset has no feature columns")
	}

	sums := make([]float64, len(cols))
	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rows+2, err)
		}
		for j, c := range cols {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", rows+2, names[j], err)
			}
			sums[j] += v
		}
		rows++
	}
	if rows == 0 {
		return nil, errors.New("reference dataset has no rows")
	}

	means := make(map[string]float64, len(names))
	for j, name := range names {
		means[name] = sums[j] / float64(rows)
	}

	return &Reference{
		Header:       header,
		FeatureNames: names,
		LabelColumn:  labelColumn,
		Rows:         rows,
		Means:        means,
	}, nil
}
