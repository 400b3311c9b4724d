package diff

import (
	"strconv"
	"strings"
)

// LineType classifies a rendered diff line.
type LineType int

const (
	// LineContext is an unchanged line (prefix ' ').
	LineContext LineType = iota
	// LineAddition is an added line (prefix '+').
	LineAddition
	// LineDeletion is a removed line (prefix '-').
	LineDeletion
	// LineHunkHeader is an @@ range declaration.
	LineHunkHeader
)

// Line is a single rendered line of a parsed diff.
//
// Invariant: additions carry only NewLine, deletions only OldLine, context
// lines both, hunk headers neither.
type Line struct {
	Type    LineType
	OldLine *int   // line number in the old file, nil when not applicable
	NewLine *int   // line number in the new file, nil when not applicable
	Content string // line content with the prefix stripped
}

// File status values.
const (
	StatusAdded    = "added"
	StatusDeleted  = "deleted"
	StatusModified = "modified"
	StatusRenamed  = "renamed"
)

// File is one file entry in a diff.
type File struct {
	Filename         string
	PreviousFilename string // equals Filename unless the file was renamed
	Status           string
	Lines            []Line
}

// Hunk is the lightweight coordinate record for one @@ range: the new-side
// start line and length. It exists purely for membership testing.
type Hunk struct {
	NewStart int
	NewLines int
}

const nullDevice = "/dev/null"

// Parse turns unified diff text into the full per-file line model.
// Empty or whitespace-only input yields an empty slice. Unrecognized lines
// are skipped; a malformed diff degrades, it never aborts the parse.
func Parse(diffText string) []File {
	if strings.TrimSpace(diffText) == "" {
		return nil
	}

	var files []File
	var current *File

	// Running counters, only meaningful between a hunk header and the
	// next file or hunk boundary.
	oldLine, newLine := 0, 0
	inHunk := false

	flush := func() {
		if current != nil {
			files = append(files, *current)
		}
	}

	for _, raw := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(raw, "diff --git "):
			flush()
			oldPath, newPath := parseGitHeaderPaths(raw)
			current = &File{
				Filename:         newPath,
				PreviousFilename: oldPath,
				Status:           StatusModified,
			}
			inHunk = false
			continue

		case current == nil:
			// Preamble before the first file boundary is ignored.
			continue

		case strings.HasPrefix(raw, "rename from "):
			current.Status = StatusRenamed
			current.PreviousFilename = strings.TrimPrefix(raw, "rename from ")
			continue

		case strings.HasPrefix(raw, "rename to "):
			current.Status = StatusRenamed
			current.Filename = strings.TrimPrefix(raw, "rename to ")
			continue

		case strings.HasPrefix(raw, "--- "):
			if strings.TrimPrefix(raw, "--- ") == nullDevice {
				current.Status = StatusAdded
			}
			continue

		case strings.HasPrefix(raw, "+++ "):
			target := strings.TrimPrefix(raw, "+++ ")
			if target == nullDevice {
				current.Status = StatusDeleted
			} else if p := stripPathPrefix(target); p != "" && current.Status != StatusRenamed {
				current.Filename = p
				if current.Status == StatusModified {
					current.PreviousFilename = p
				}
			}
			continue

		case isMetadataLine(raw):
			continue

		case strings.HasPrefix(raw, "@@"):
			oldStart, _, newStart, _, ok := parseHunkHeader(raw)
			if !ok {
				continue
			}
			oldLine, newLine = oldStart, newStart
			inHunk = true
			current.Lines = append(current.Lines, Line{Type: LineHunkHeader, Content: raw})
			continue
		}

		if !inHunk {
			continue
		}

		switch {
		case strings.HasPrefix(raw, "+"):
			n := newLine
			current.Lines = append(current.Lines, Line{
				Type:    LineAddition,
				NewLine: &n,
				Content: raw[1:],
			})
			newLine++
		case strings.HasPrefix(raw, "-"):
			o := oldLine
			current.Lines = append(current.Lines, Line{
				Type:    LineDeletion,
				OldLine: &o,
				Content: raw[1:],
			})
			oldLine++
		case strings.HasPrefix(raw, " "):
			o, n := oldLine, newLine
			current.Lines = append(current.Lines, Line{
				Type:    LineContext,
				OldLine: &o,
				NewLine: &n,
				Content: raw[1:],
			})
			oldLine++
			newLine++
		default:
			// Unknown content line (format drift); skip without
			// disturbing the counters.
		}
	}

	flush()
	return files
}

// ParseHunks extracts only the new-side hunk ranges, keyed by filename.
// This is the fast path used for membership testing.
func ParseHunks(diffText string) map[string][]Hunk {
	hunks := make(map[string][]Hunk)
	if strings.TrimSpace(diffText) == "" {
		return hunks
	}

	var filename string
	for _, raw := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(raw, "diff --git "):
			_, filename = parseGitHeaderPaths(raw)
		case strings.HasPrefix(raw, "rename to "):
			filename = strings.TrimPrefix(raw, "rename to ")
		case strings.HasPrefix(raw, "+++ "):
			if p := stripPathPrefix(strings.TrimPrefix(raw, "+++ ")); p != "" {
				filename = p
			}
		case strings.HasPrefix(raw, "@@"):
			if filename == "" {
				continue
			}
			_, _, newStart, newLines, ok := parseHunkHeader(raw)
			if !ok {
				continue
			}
			hunks[filename] = append(hunks[filename], Hunk{NewStart: newStart, NewLines: newLines})
		}
	}
	return hunks
}

// InDiff reports whether new-side line number n falls inside any of the
// given hunk ranges: start <= n < start+length.
func InDiff(hunks []Hunk, n int) bool {
	for _, h := range hunks {
		if n >= h.NewStart && n < h.NewStart+h.NewLines {
			return true
		}
	}
	return false
}

// parseGitHeaderPaths extracts old and new paths from a
// "diff --git a/<old> b/<new>" line.
func parseGitHeaderPaths(line string) (oldPath, newPath string) {
	rest := strings.TrimPrefix(line, "diff --git ")
	// Paths with spaces are rare in practice; split on " b/" to cope with
	// the common cases without a full quoting parser.
	if idx := strings.Index(rest, " b/"); idx >= 0 {
		oldPath = strings.TrimPrefix(rest[:idx], "a/")
		newPath = rest[idx+len(" b/"):]
		return oldPath, newPath
	}
	fields := strings.Fields(rest)
	if len(fields) >= 2 {
		return strings.TrimPrefix(fields[0], "a/"), strings.TrimPrefix(fields[1], "b/")
	}
	return "", ""
}

// stripPathPrefix removes the a/ or b/ prefix git puts on ---/+++ targets.
func stripPathPrefix(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	if p == nullDevice {
		return ""
	}
	return p
}

// isMetadataLine recognizes header lines that carry no coordinates:
// index/mode/similarity markers, binary notices, and the trailing
// "\ No newline at end of file" marker.
func isMetadataLine(line string) bool {
	for _, prefix := range []string{
		"index ",
		"new file mode",
		"deleted file mode",
		"old mode",
		"new mode",
		"similarity index",
		"dissimilarity index",
		"Binary files",
		"GIT binary patch",
		"copy from ",
		"copy to ",
		"\\ ",
	} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// parseHunkHeader parses "@@ -<oldStart>[,<oldCount>] +<newStart>[,<newCount>] @@".
// The count defaults to 1 when omitted.
func parseHunkHeader(line string) (oldStart, oldLines, newStart, newLines int, ok bool) {
	parts := strings.Split(line, "@@")
	if len(parts) < 2 {
		return 0, 0, 0, 0, false
	}

	var haveOld, haveNew bool
	for _, field := range strings.Fields(strings.TrimSpace(parts[1])) {
		switch {
		case strings.HasPrefix(field, "-"):
			oldStart, oldLines = parseRange(strings.TrimPrefix(field, "-"))
			haveOld = true
		case strings.HasPrefix(field, "+"):
			newStart, newLines = parseRange(strings.TrimPrefix(field, "+"))
			haveNew = true
		}
	}
	return oldStart, oldLines, newStart, newLines, haveOld && haveNew
}

// parseRange parses "start,count" or "start" (count defaults to 1).
func parseRange(s string) (start, count int) {
	if idx := strings.Index(s, ","); idx >= 0 {
		start, _ = strconv.Atoi(s[:idx])
		count, _ = strconv.Atoi(s[idx+1:])
		return start, count
	}
	start, _ = strconv.Atoi(s)
	return start, 1
}
