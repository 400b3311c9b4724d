// Package diff parses unified diff text into an addressable per-line
// coordinate space.
//
// Two views are exposed. Parse builds the full model: one File per file
// entry, each carrying every rendered line with its old- and new-side line
// numbers tracked independently across hunks. ParseHunks builds a lighter
// view holding only the new-side hunk ranges per filename, enough for
// O(hunks) membership tests without materializing line objects.
//
// Diffs arrive from external tools and drift in small ways, so the parser
// is defensive: lines it does not recognize are skipped, and an empty or
// whitespace-only input yields an empty result rather than an error.
package diff
