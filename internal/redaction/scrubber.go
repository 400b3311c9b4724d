// Package redaction scrubs secrets from text before it reaches logs,
// forwarded engine output, or error messages.
package redaction

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Scrubber performs regex-based secret detection and replacement.
type Scrubber struct {
	patterns []*regexp.Regexp
}

// NewScrubber creates a scrubber with the default secret patterns.
func NewScrubber() *Scrubber {
	return &Scrubber{patterns: defaultPatterns()}
}

// Scrub replaces every detected secret with a stable placeholder derived
// from the secret's hash, so repeated occurrences scrub identically.
func (s *Scrubber) Scrub(input string) string {
	replacements := make(map[string]string)
	for _, pattern := range s.patterns {
		for _, match := range pattern.FindAllString(input, -1) {
			if _, seen := replacements[match]; seen {
				continue
			}
			replacements[match] = placeholder(match)
		}
	}

	result := input
	for secret, repl := range replacements {
		result = strings.ReplaceAll(result, secret, repl)
	}
	return result
}

// Writer wraps w so that everything written through it is scrubbed.
// Output is buffered per line: a secret split across two writes within one
// line is still caught, and forwarding stays line-granular, which matches
// how engine stderr is consumed.
func (s *Scrubber) Writer(w io.Writer) io.WriteCloser {
	return &scrubWriter{scrubber: s, dst: w}
}

type scrubWriter struct {
	scrubber *Scrubber
	dst      io.Writer
	buf      bytes.Buffer
}

func (w *scrubWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line: keep it buffered for the next write.
			w.buf.WriteString(line)
			break
		}
		if _, err := io.WriteString(w.dst, w.scrubber.Scrub(line)); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Close flushes any trailing partial line.
func (w *scrubWriter) Close() error {
	if w.buf.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(w.dst, w.scrubber.Scrub(w.buf.String()))
	w.buf.Reset()
	return err
}

func placeholder(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("<REDACTED:%s>", hex.EncodeToString(sum[:])[:8])
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Anthropic API keys (must precede the generic sk- pattern)
		`sk-ant-[a-zA-Z0-9\-]{20,}`,
		// OpenAI-style API keys
		`sk-[a-zA-Z0-9]{20,}`,
		// AWS access key IDs
		`AKIA[0-9A-Z]{16}`,
		// GitHub tokens (classic and fine-grained)
		`gh[posr]_[a-zA-Z0-9]{20,}`,
		`github_pat_[a-zA-Z0-9_]{20,}`,
		// Google API keys
		`AIza[0-9A-Za-z\-_]{35}`,
		// Slack tokens
		`xox[baprs]-[a-zA-Z0-9\-]{10,}`,
		// JWTs
		`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
		// PEM private keys
		`-----BEGIN\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----[\s\S]*?-----END\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)\s+PRIVATE\s+KEY-----`,
		// Bearer tokens in headers echoed to stderr
		`Bearer\s+[a-zA-Z0-9_\-\.]+`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}
