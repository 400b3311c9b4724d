package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfarrell/patchreview/internal/domain"
)

func sampleChange() domain.Change {
	return domain.Change{
		Title:      "Fix nil deref in parser",
		Body:       "Handles the empty-input case.",
		BaseBranch: "main",
		HeadBranch: "fix/parser",
		DiffText:   "diff --git a/a.go b/a.go\n@@ -1,1 +1,1 @@\n-old\n+new\n",
	}
}

func TestPromptBuilder_Build(t *testing.T) {
	b := NewPromptBuilder(StrictnessNormal, "Watch for SQL injection.", 0)
	prompt, truncated := b.Build(sampleChange())

	assert.False(t, truncated)
	assert.Contains(t, prompt, "Fix nil deref in parser")
	assert.Contains(t, prompt, "fix/parser -> main")
	assert.Contains(t, prompt, `"findings"`)
	assert.Contains(t, prompt, "Watch for SQL injection.")
	assert.Contains(t, prompt, "NEW file version")
	assert.NotContains(t, prompt, "was truncated")
}

func TestPromptBuilder_Postures(t *testing.T) {
	change := sampleChange()

	strict, _ := NewPromptBuilder(StrictnessStrict, "", 0).Build(change)
	lenient, _ := NewPromptBuilder(StrictnessLenient, "", 0).Build(change)
	assert.Contains(t, strict, "every defect")
	assert.Contains(t, lenient, "stay silent")

	// Unknown strictness falls back to normal.
	fallback, _ := NewPromptBuilder("brutal", "", 0).Build(change)
	normal, _ := NewPromptBuilder(StrictnessNormal, "", 0).Build(change)
	assert.Equal(t, normal, fallback)
}

func TestPromptBuilder_TruncationNote(t *testing.T) {
	change := sampleChange()
	fileA := "diff --git a/a.go b/a.go\n@@ -1,1 +1,1 @@\n-x\n+y\n"
	change.DiffText = fileA + "diff --git a/b.go b/b.go\n@@ -1,1 +1,1 @@\n-x\n+" + strings.Repeat("y", 500) + "\n"

	prompt, truncated := NewPromptBuilder(StrictnessNormal, "", len(fileA)+10).Build(change)
	assert.True(t, truncated)
	assert.Contains(t, prompt, "was truncated")
	assert.NotContains(t, prompt, "b.go")
}

func TestTruncateDiff(t *testing.T) {
	fileA := "diff --git a/a.go b/a.go\n@@ -1,1 +1,1 @@\n-x\n+a\n"
	fileB := "diff --git a/b.go b/b.go\n@@ -1,1 +1,1 @@\n-x\n+b\n"
	fileC := "diff --git a/c.go b/c.go\n@@ -1,1 +1,1 @@\n-x\n+c\n"
	full := fileA + fileB + fileC

	t.Run("fits untouched", func(t *testing.T) {
		got, truncated := TruncateDiff(full, len(full))
		assert.False(t, truncated)
		assert.Equal(t, full, got)
	})

	t.Run("cuts at file boundary", func(t *testing.T) {
		got, truncated := TruncateDiff(full, len(fileA)+len(fileB)+5)
		assert.True(t, truncated)
		assert.Equal(t, fileA+fileB, got)
	})

	t.Run("never cuts mid file", func(t *testing.T) {
		got, truncated := TruncateDiff(full, len(fileA)+3)
		assert.True(t, truncated)
		assert.Equal(t, fileA, got)
	})

	t.Run("first file alone too large", func(t *testing.T) {
		got, truncated := TruncateDiff(full, 5)
		assert.True(t, truncated)
		assert.Equal(t, "", got)
	})

	t.Run("exact boundary kept", func(t *testing.T) {
		got, truncated := TruncateDiff(full, len(fileA)+len(fileB))
		require.True(t, truncated)
		assert.Equal(t, fileA+fileB, got)
	})
}
