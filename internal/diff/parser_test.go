package diff_test

import (
	"reflect"
	"testing"

	"github.com/dfarrell/patchreview/internal/diff"
)

const sampleDiff = `diff --git a/pkg/server.go b/pkg/server.go
index 83db48f..bf26985 100644
--- a/pkg/server.go
+++ b/pkg/server.go
@@ -1,3 +1,4 @@
 package server
-func old() {}
+func new() {}
+func extra() {}
 // trailing
`

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func TestParse_LineNumberRoundTrip(t *testing.T) {
	files := diff.Parse(sampleDiff)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}

	f := files[0]
	if f.Filename != "pkg/server.go" {
		t.Errorf("Filename = %q, want pkg/server.go", f.Filename)
	}
	if f.Status != diff.StatusModified {
		t.Errorf("Status = %q, want modified", f.Status)
	}

	// hunk header, context, deletion, two additions, context
	if len(f.Lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(f.Lines))
	}

	want := []struct {
		typ      diff.LineType
		old, new int // -1 means nil
	}{
		{diff.LineHunkHeader, -1, -1},
		{diff.LineContext, 1, 1},
		{diff.LineDeletion, 2, -1},
		{diff.LineAddition, -1, 2},
		{diff.LineAddition, -1, 3},
		{diff.LineContext, 3, 4},
	}
	for i, w := range want {
		got := f.Lines[i]
		if got.Type != w.typ {
			t.Errorf("line %d: Type = %v, want %v", i, got.Type, w.typ)
		}
		if deref(got.OldLine) != w.old {
			t.Errorf("line %d: OldLine = %d, want %d", i, deref(got.OldLine), w.old)
		}
		if deref(got.NewLine) != w.new {
			t.Errorf("line %d: NewLine = %d, want %d", i, deref(got.NewLine), w.new)
		}
	}
}

func TestParse_Idempotent(t *testing.T) {
	first := diff.Parse(sampleDiff)
	second := diff.Parse(sampleDiff)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Parse is not idempotent: %#v != %#v", first, second)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\t\n"} {
		if files := diff.Parse(input); len(files) != 0 {
			t.Errorf("Parse(%q) = %d files, want 0", input, len(files))
		}
	}
}

func TestParse_MultiHunkCounterReset(t *testing.T) {
	patch := `diff --git a/x.go b/x.go
--- a/x.go
+++ b/x.go
@@ -1,3 +1,3 @@
 a
-b
+B
 c
@@ -10,3 +10,3 @@
 j
-k
+K
 l
`
	files := diff.Parse(patch)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}

	// Find the second hunk's first content line; counters must restart
	// at 10 regardless of where the first hunk ended.
	var seenHeaders int
	for _, line := range files[0].Lines {
		if line.Type == diff.LineHunkHeader {
			seenHeaders++
			continue
		}
		if seenHeaders == 2 {
			if deref(line.OldLine) != 10 || deref(line.NewLine) != 10 {
				t.Errorf("second hunk first line = old %d new %d, want 10/10",
					deref(line.OldLine), deref(line.NewLine))
			}
			break
		}
	}
	if seenHeaders < 2 {
		t.Fatalf("expected 2 hunk headers, saw %d", seenHeaders)
	}
}

func TestParse_NewFile(t *testing.T) {
	patch := `diff --git a/notes.txt b/notes.txt
new file mode 100644
index 0000000..2ef267e
--- /dev/null
+++ b/notes.txt
@@ -0,0 +1,2 @@
+line 1
+line 2
`
	files := diff.Parse(patch)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	f := files[0]
	if f.Status != diff.StatusAdded {
		t.Errorf("Status = %q, want added", f.Status)
	}

	var additions []int
	for _, line := range f.Lines {
		if line.Type == diff.LineAddition {
			additions = append(additions, deref(line.NewLine))
		}
	}
	if !reflect.DeepEqual(additions, []int{1, 2}) {
		t.Errorf("addition NewLines = %v, want [1 2]", additions)
	}
}

func TestParse_DeletedFile(t *testing.T) {
	patch := `diff --git a/gone.txt b/gone.txt
deleted file mode 100644
--- a/gone.txt
+++ /dev/null
@@ -1,2 +0,0 @@
-line 1
-line 2
`
	files := diff.Parse(patch)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Status != diff.StatusDeleted {
		t.Errorf("Status = %q, want deleted", files[0].Status)
	}
}

func TestParse_Rename(t *testing.T) {
	patch := `diff --git a/old/name.go b/new/name.go
similarity index 95%
rename from old/name.go
rename to new/name.go
--- a/old/name.go
+++ b/new/name.go
@@ -5,3 +5,3 @@
 a
-b
+B
 c
`
	files := diff.Parse(patch)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	f := files[0]
	if f.Status != diff.StatusRenamed {
		t.Errorf("Status = %q, want renamed", f.Status)
	}
	if f.PreviousFilename != "old/name.go" {
		t.Errorf("PreviousFilename = %q, want old/name.go", f.PreviousFilename)
	}
	if f.Filename != "new/name.go" {
		t.Errorf("Filename = %q, want new/name.go", f.Filename)
	}
}

func TestParse_MultipleFiles(t *testing.T) {
	patch := `diff --git a/a.go b/a.go
--- a/a.go
+++ b/a.go
@@ -1,1 +1,1 @@
-x
+y
diff --git a/b.go b/b.go
--- a/b.go
+++ b/b.go
@@ -1,1 +1,1 @@
-p
+q
`
	files := diff.Parse(patch)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Filename != "a.go" || files[1].Filename != "b.go" {
		t.Errorf("filenames = %q, %q", files[0].Filename, files[1].Filename)
	}
}

func TestParse_SkipsMalformedContent(t *testing.T) {
	patch := `diff --git a/a.go b/a.go
--- a/a.go
+++ b/a.go
@@ -1,2 +1,2 @@
 context
?garbage line
+added
\ No newline at end of file
`
	files := diff.Parse(patch)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	// garbage and no-newline markers are skipped; counters undisturbed
	var addition *diff.Line
	for i := range files[0].Lines {
		if files[0].Lines[i].Type == diff.LineAddition {
			addition = &files[0].Lines[i]
		}
	}
	if addition == nil {
		t.Fatal("no addition line parsed")
	}
	if deref(addition.NewLine) != 2 {
		t.Errorf("addition NewLine = %d, want 2", deref(addition.NewLine))
	}
}

func TestParseHunks(t *testing.T) {
	hunks := diff.ParseHunks(sampleDiff)
	got, ok := hunks["pkg/server.go"]
	if !ok {
		t.Fatalf("no hunks for pkg/server.go; got %v", hunks)
	}
	if len(got) != 1 || got[0].NewStart != 1 || got[0].NewLines != 4 {
		t.Errorf("hunks = %v, want [{1 4}]", got)
	}
}

func TestParseHunks_Rename(t *testing.T) {
	patch := `diff --git a/old.go b/renamed.go
rename from old.go
rename to renamed.go
--- a/old.go
+++ b/renamed.go
@@ -3,2 +3,2 @@
 a
-b
+B
`
	hunks := diff.ParseHunks(patch)
	if _, ok := hunks["renamed.go"]; !ok {
		t.Errorf("hunks keyed by %v, want renamed.go", hunks)
	}
}

func TestInDiff_Boundaries(t *testing.T) {
	hunks := []diff.Hunk{{NewStart: 10, NewLines: 5}}

	cases := []struct {
		line int
		want bool
	}{
		{9, false},
		{10, true},
		{14, true},
		{15, false},
		{0, false},
	}
	for _, tc := range cases {
		if got := diff.InDiff(hunks, tc.line); got != tc.want {
			t.Errorf("InDiff(10+5, %d) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestInDiff_EmptyRanges(t *testing.T) {
	if diff.InDiff(nil, 1) {
		t.Error("InDiff(nil, 1) = true, want false")
	}
	if diff.InDiff([]diff.Hunk{{NewStart: 1, NewLines: 0}}, 1) {
		t.Error("zero-length hunk should contain no lines")
	}
}
