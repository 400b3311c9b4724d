package eval

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dfarrell/patchreview/internal/domain"
)

// LoadExpected reads a hand-labelled expectation fixture. Fixtures are the
// ground truth for evaluation, so malformed entries fail loudly here rather
// than silently producing zero metrics later.
func LoadExpected(path string) ([]ExpectedFinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read expected fixture %s: %w", path, err)
	}

	var expected []ExpectedFinding
	if err := json.Unmarshal(data, &expected); err != nil {
		return nil, fmt.Errorf("parse expected fixture %s: %w", path, err)
	}

	for i, exp := range expected {
		if err := validateExpected(exp); err != nil {
			return nil, fmt.Errorf("expected fixture %s entry %d: %w", path, i, err)
		}
	}
	return expected, nil
}

// LoadRecorded reads findings previously recorded from an engine run.
func LoadRecorded(path string) ([]domain.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recorded findings %s: %w", path, err)
	}

	var findings []domain.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("parse recorded findings %s: %w", path, err)
	}

	for i, f := range findings {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("recorded findings %s entry %d: %w", path, i, err)
		}
	}
	return findings, nil
}

func validateExpected(exp ExpectedFinding) error {
	if exp.File == "" {
		return fmt.Errorf("missing file")
	}
	if exp.Line < 1 {
		return fmt.Errorf("line must be >= 1, got %d", exp.Line)
	}
	switch exp.Classification {
	case ClassificationGood, ClassificationMeh, ClassificationBad:
	default:
		return fmt.Errorf("unknown classification %q", exp.Classification)
	}
	return nil
}
