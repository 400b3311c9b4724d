// Package eval is the offline quality-assurance harness: it scores
// engine-produced findings against hand-labelled expectations using a
// windowed nearest-match algorithm, then derives precision, recall, and
// hallucination rate.
//
// It runs out of band against recorded findings and fixtures, never in the
// live review pipeline.
package eval

import (
	"sort"

	"github.com/dfarrell/patchreview/internal/domain"
)

// Classification labels for expected findings.
const (
	ClassificationGood = "GOOD"
	ClassificationMeh  = "MEH"
	ClassificationBad  = "BAD"
)

// ExpectedFinding is one hand-labelled ground-truth record.
type ExpectedFinding struct {
	File           string `json:"file"`
	Line           int    `json:"line"`
	Severity       string `json:"severity"`
	Category       string `json:"category"`
	Classification string `json:"classification"`
	IsCrossFile    bool   `json:"isCrossFile,omitempty"`
}

// MatchedPair records one expected finding and the actual finding greedily
// matched to it, if any. Distance is the absolute line distance, or -1 when
// no actual finding qualified.
type MatchedPair struct {
	Expected ExpectedFinding
	Actual   *domain.Finding
	Distance int
}

// MatchResult is the outcome of one evaluation run.
type MatchResult struct {
	Matched         []MatchedPair
	UnmatchedActual []domain.Finding
}

// matchWindow is the inclusive maximum line distance for a match.
const matchWindow = 5

// Match greedily pairs expected findings with actual findings. Expected
// items are processed in (file, line) order for reproducibility; each takes
// the nearest same-file unconsumed actual within the window, ties broken by
// earliest index. Actual findings left unconsumed are hallucinations.
func Match(actual []domain.Finding, expected []ExpectedFinding) MatchResult {
	ordered := make([]ExpectedFinding, len(expected))
	copy(ordered, expected)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].File != ordered[j].File {
			return ordered[i].File < ordered[j].File
		}
		return ordered[i].Line < ordered[j].Line
	})

	consumed := make([]bool, len(actual))
	result := MatchResult{Matched: make([]MatchedPair, 0, len(ordered))}

	for _, exp := range ordered {
		best := -1
		bestDist := matchWindow + 1
		for i, act := range actual {
			if consumed[i] || act.File != exp.File {
				continue
			}
			dist := act.Line - exp.Line
			if dist < 0 {
				dist = -dist
			}
			// Strict less-than keeps the earliest index on ties.
			if dist <= matchWindow && dist < bestDist {
				best = i
				bestDist = dist
			}
		}

		if best < 0 {
			result.Matched = append(result.Matched, MatchedPair{Expected: exp, Distance: -1})
			continue
		}
		consumed[best] = true
		matched := actual[best]
		result.Matched = append(result.Matched, MatchedPair{
			Expected: exp,
			Actual:   &matched,
			Distance: bestDist,
		})
	}

	for i, act := range actual {
		if !consumed[i] {
			result.UnmatchedActual = append(result.UnmatchedActual, act)
		}
	}
	return result
}

// Metrics summarizes an evaluation run.
type Metrics struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Hallucinations int

	Precision         float64
	Recall            float64
	HallucinationRate float64
}

// ComputeMetrics derives quality metrics from a match result. A matched
// GOOD expectation is a true positive; a matched MEH or BAD one is a false
// positive; an unmatched GOOD one is a false negative (unmatched MEH/BAD
// never count against recall). Ratios default to their best value when the
// denominator is zero.
func ComputeMetrics(result MatchResult) Metrics {
	m := Metrics{Hallucinations: len(result.UnmatchedActual)}

	matchedActual := 0
	for _, pair := range result.Matched {
		if pair.Actual != nil {
			matchedActual++
			if pair.Expected.Classification == ClassificationGood {
				m.TruePositives++
			} else {
				m.FalsePositives++
			}
		} else if pair.Expected.Classification == ClassificationGood {
			m.FalseNegatives++
		}
	}

	m.Precision = 1.0
	if m.TruePositives+m.FalsePositives > 0 {
		m.Precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	m.Recall = 1.0
	if m.TruePositives+m.FalseNegatives > 0 {
		m.Recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	if totalActual := matchedActual + m.Hallucinations; totalActual > 0 {
		m.HallucinationRate = float64(m.Hallucinations) / float64(totalActual)
	}
	return m
}
