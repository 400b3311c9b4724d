package eval_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfarrell/patchreview/internal/domain"
	"github.com/dfarrell/patchreview/internal/eval"
)

func actual(file string, line int) domain.Finding {
	return domain.Finding{
		File:        file,
		Line:        line,
		Severity:    domain.SeverityBug,
		Confidence:  domain.ConfidenceHigh,
		Category:    "logic",
		Description: "d",
	}
}

func expected(file string, line int, classification string) eval.ExpectedFinding {
	return eval.ExpectedFinding{
		File:           file,
		Line:           line,
		Severity:       domain.SeverityBug,
		Category:       "logic",
		Classification: classification,
	}
}

func TestMatch_WindowBoundary(t *testing.T) {
	exp := []eval.ExpectedFinding{expected("a.go", 10, eval.ClassificationGood)}

	// Distance 5 matches.
	result := eval.Match([]domain.Finding{actual("a.go", 15)}, exp)
	require.Len(t, result.Matched, 1)
	require.NotNil(t, result.Matched[0].Actual)
	assert.Equal(t, 5, result.Matched[0].Distance)

	// Distance 6 does not.
	result = eval.Match([]domain.Finding{actual("a.go", 16)}, exp)
	require.Len(t, result.Matched, 1)
	assert.Nil(t, result.Matched[0].Actual)
	assert.Equal(t, -1, result.Matched[0].Distance)
	assert.Len(t, result.UnmatchedActual, 1)
}

func TestMatch_GreedyUniqueness(t *testing.T) {
	exp := []eval.ExpectedFinding{expected("a.go", 10, eval.ClassificationGood)}
	acts := []domain.Finding{actual("a.go", 14), actual("a.go", 12)}

	result := eval.Match(acts, exp)
	require.Len(t, result.Matched, 1)
	require.NotNil(t, result.Matched[0].Actual)
	assert.Equal(t, 12, result.Matched[0].Actual.Line, "nearest candidate wins")
	assert.Equal(t, 2, result.Matched[0].Distance)

	require.Len(t, result.UnmatchedActual, 1)
	assert.Equal(t, 14, result.UnmatchedActual[0].Line, "the loser stays in the pool")
}

func TestMatch_TieBreaksByEarliestIndex(t *testing.T) {
	exp := []eval.ExpectedFinding{expected("a.go", 10, eval.ClassificationGood)}
	first := actual("a.go", 8)
	second := actual("a.go", 12)
	second.Description = "later"

	result := eval.Match([]domain.Finding{first, second}, exp)
	require.NotNil(t, result.Matched[0].Actual)
	assert.Equal(t, 8, result.Matched[0].Actual.Line)
}

func TestMatch_FileMustAgree(t *testing.T) {
	exp := []eval.ExpectedFinding{expected("a.go", 10, eval.ClassificationGood)}
	result := eval.Match([]domain.Finding{actual("b.go", 10)}, exp)

	assert.Nil(t, result.Matched[0].Actual)
	assert.Len(t, result.UnmatchedActual, 1)
}

func TestMatch_ExpectedProcessedInSortedOrder(t *testing.T) {
	// Both expectations are within range of the single actual; the one
	// sorting first must consume it.
	exp := []eval.ExpectedFinding{
		expected("a.go", 20, eval.ClassificationGood),
		expected("a.go", 18, eval.ClassificationGood),
	}
	result := eval.Match([]domain.Finding{actual("a.go", 19)}, exp)

	require.Len(t, result.Matched, 2)
	assert.Equal(t, 18, result.Matched[0].Expected.Line, "expected sorted by (file, line)")
	require.NotNil(t, result.Matched[0].Actual)
	assert.Nil(t, result.Matched[1].Actual)
}

func TestComputeMetrics(t *testing.T) {
	acts := []domain.Finding{
		actual("a.go", 10), // matches GOOD -> TP
		actual("a.go", 50), // matches MEH -> FP
		actual("z.go", 1),  // hallucination
	}
	exp := []eval.ExpectedFinding{
		expected("a.go", 10, eval.ClassificationGood),
		expected("a.go", 51, eval.ClassificationMeh),
		expected("b.go", 5, eval.ClassificationGood), // unmatched GOOD -> FN
		expected("b.go", 90, eval.ClassificationBad), // unmatched BAD -> ignored
	}

	m := eval.ComputeMetrics(eval.Match(acts, exp))

	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 1, m.FalsePositives)
	assert.Equal(t, 1, m.FalseNegatives)
	assert.Equal(t, 1, m.Hallucinations)

	assert.InDelta(t, 0.5, m.Precision, 1e-9)
	assert.InDelta(t, 0.5, m.Recall, 1e-9)
	assert.InDelta(t, 1.0/3.0, m.HallucinationRate, 1e-9)
}

func TestComputeMetrics_Defaults(t *testing.T) {
	m := eval.ComputeMetrics(eval.Match(nil, nil))
	assert.Equal(t, 1.0, m.Precision)
	assert.Equal(t, 1.0, m.Recall)
	assert.Equal(t, 0.0, m.HallucinationRate)
}

func TestLoadExpected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expected.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"file":"a.go","line":10,"severity":"bug","category":"logic","classification":"GOOD"},
		{"file":"b.go","line":3,"severity":"nitpick","category":"style","classification":"MEH","isCrossFile":true}
	]`), 0o644))

	expected, err := eval.LoadExpected(path)
	require.NoError(t, err)
	require.Len(t, expected, 2)
	assert.True(t, expected[1].IsCrossFile)
}

func TestLoadExpected_FailsLoudly(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"bad json":           `[{"file":`,
		"bad classification": `[{"file":"a.go","line":1,"classification":"FINE"}]`,
		"zero line":          `[{"file":"a.go","line":0,"classification":"GOOD"}]`,
		"missing file":       `[{"line":4,"classification":"GOOD"}]`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "fixture.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := eval.LoadExpected(path)
			assert.Error(t, err, "malformed fixtures must not load")
		})
	}
}

func TestLoadRecorded_ValidatesFindings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recorded.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"file":"a.go","line":1,"severity":"haywire","confidence":"high","category":"x","description":"d"}
	]`), 0o644))

	_, err := eval.LoadRecorded(path)
	assert.Error(t, err)
}
