package promoter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nf-osi/synapse-jobs/internal/domain"
)

const (
	columnProjectID = "projectId"
	columnCount     = "N"
)

// LoadCandidates reads an override dataset: a CSV with at least the columns
// projectId and N. Rows are returned as-is, including rows with N = 0.
func LoadCandidates(path string) ([]domain.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open override dataset: %w", err)
	}
	defer f.Close()

	return readCandidates(f)
}

func readCandidates(r io.Reader) ([]domain.Candidate, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidDataset)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDataset, err)
	}

	idCol, countCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case columnProjectID:
			idCol = i
		case columnCount:
			countCol = i
		}
	}
	if idCol < 0 || countCol < 0 {
		return nil, fmt.Errorf("%w: header must contain %q and %q columns", domain.ErrInvalidDataset, columnProjectID, columnCount)
	}

	var candidates []domain.Candidate
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDataset, err)
		}

		line, _ := reader.FieldPos(0)
		if idCol >= len(record) || countCol >= len(record) {
			return nil, fmt.Errorf("%w: line %d has %d fields", domain.ErrInvalidDataset, line, len(record))
		}

		id := strings.TrimSpace(record[idCol])
		if id == "" {
			return nil, fmt.Errorf("%w: line %d has an empty %s", domain.ErrInvalidDataset, line, columnProjectID)
		}

		count, err := parseCount(record[countCol])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidDataset, line, err)
		}

		candidates = append(candidates, domain.Candidate{ProjectID: id, Count: count})
	}

	return candidates, nil
}

// parseCount accepts integer counts, including the "3.0" form some CSV writers emit
func parseCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	return int(f), nil
}
