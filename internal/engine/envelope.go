package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dfarrell/patchreview/internal/domain"
	"github.com/dfarrell/patchreview/internal/logging"
)

// envelope is the JSON wrapper the engine prints on stdout. In streaming
// mode the same shape arrives as the final "result" event.
type envelope struct {
	Type          string          `json:"type"`
	Subtype       string          `json:"subtype"`
	IsError       bool            `json:"is_error"`
	Result        string          `json:"result"`
	DurationMS    int64           `json:"duration_ms"`
	DurationAPIMS int64           `json:"duration_api_ms"`
	NumTurns      int             `json:"num_turns"`
	SessionID     string          `json:"session_id"`
	CostUSD       float64         `json:"cost_usd"`
	TotalCostUSD  float64         `json:"total_cost_usd"`
	ModelUsage    json.RawMessage `json:"modelUsage"`
}

// findingsKey is the top-level key the structured answer must carry; the
// tolerant extractor uses it to pick the right JSON span out of prose.
const findingsKey = "findings"

type findingsPayload struct {
	Findings *[]domain.Finding `json:"findings"`
}

// parseEnvelope decodes the raw stdout bytes into an envelope.
func parseEnvelope(raw []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, newParseError("invalid engine envelope: %v (output: %s)",
			err, logging.TruncateForLogging(string(raw)))
	}
	return &env, nil
}

// decodeResult turns a parsed envelope into a validated AnalysisResult.
// Both invocation modes funnel through here so envelope semantics cannot
// drift between them.
func decodeResult(env *envelope, requestedModel string) (*domain.AnalysisResult, error) {
	if env.IsError {
		// The engine completed but reported failure. Never degrade
		// this to an empty result: downstream would render a clean
		// review for a change that was never analyzed.
		return nil, newProcessError(0, "engine reported error: "+logging.TruncateForLogging(env.Result))
	}

	payload, err := decodeFindings(env.Result)
	if err != nil {
		return nil, err
	}

	findings := *payload.Findings
	for i, f := range findings {
		if err := f.Validate(); err != nil {
			return nil, newSchemaError("finding %d: %v", i, err)
		}
	}

	cost := env.CostUSD
	if cost == 0 {
		cost = env.TotalCostUSD
	}

	return &domain.AnalysisResult{
		Findings:    findings,
		EngineModel: engineIdentity(env.ModelUsage, requestedModel),
		Meta: domain.OperationalMeta{
			CostUSD:    cost,
			DurationMS: env.DurationMS,
			TurnCount:  env.NumTurns,
			SessionID:  env.SessionID,
		},
	}, nil
}

// decodeFindings parses the envelope's result field, which is JSON text or,
// occasionally, prose with JSON embedded in it.
func decodeFindings(result string) (*findingsPayload, error) {
	trimmed := strings.TrimSpace(result)
	if trimmed == "" {
		return nil, newParseError("engine result is empty")
	}

	var payload findingsPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
		if payload.Findings == nil {
			return nil, newSchemaError("engine result missing %q key", findingsKey)
		}
		return &payload, nil
	}

	extracted := extractJSON(trimmed)
	if extracted == "" {
		return nil, newParseError("no findings JSON in engine result: %s",
			logging.TruncateForLogging(trimmed))
	}
	if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
		return nil, newParseError("extracted JSON does not decode: %v", err)
	}
	if payload.Findings == nil {
		return nil, newSchemaError("engine result missing %q key", findingsKey)
	}
	return &payload, nil
}

// codeBlockPattern matches markdown code fences the engine sometimes wraps
// its answer in.
var codeBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.+?)\\n?```")

// extractJSON locates the first balanced {...} span containing the findings
// key. Code fences are tried first since they delimit the span exactly.
func extractJSON(text string) string {
	if m := codeBlockPattern.FindStringSubmatch(text); len(m) >= 2 {
		candidate := strings.TrimSpace(m[1])
		if strings.Contains(candidate, `"`+findingsKey+`"`) && json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := matchBrace(text, start)
		if end < 0 {
			continue
		}
		span := text[start : end+1]
		if strings.Contains(span, `"`+findingsKey+`"`) && json.Valid([]byte(span)) {
			return span
		}
	}
	return ""
}

// matchBrace returns the index of the brace closing the one at start, or -1.
// String literals and escapes are honored so braces inside values don't
// unbalance the scan.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// engineIdentity resolves the model that actually served the request: the
// first modelUsage key, then the caller-requested identity, then "unknown".
func engineIdentity(modelUsage json.RawMessage, requested string) string {
	if key := firstJSONKey(modelUsage); key != "" {
		return key
	}
	if requested != "" {
		return requested
	}
	return "unknown"
}

// firstJSONKey returns the first key of a JSON object in document order.
// A plain map[string]... unmarshal would lose ordering, so walk tokens.
func firstJSONKey(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	if err != nil {
		return ""
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ""
	}
	tok, err = dec.Token()
	if err != nil {
		return ""
	}
	key, _ := tok.(string)
	return key
}
