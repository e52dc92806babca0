package storage

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFilePathShape(t *testing.T) {
	path := GenerateFilePath("mit.edu", "user-1", "Calculus Notes (final)!.pdf")

	require.True(t, strings.HasPrefix(path, "mit.edu/user-1/"))
	require.True(t, strings.HasSuffix(path, ".pdf"))
	assert.NotContains(t, path, "..")
	assert.NotContains(t, path, "//")
	assert.NoError(t, ValidateObjectPath(path))

	// Base name must be reduced to alphanumerics and underscores.
	parts := strings.Split(path, "/")
	require.Len(t, parts, 3)
	assert.Regexp(t, regexp.MustCompile(`^\d+_[0-9a-f]+_[A-Za-z0-9_]+\.pdf$`), parts[2])
}

func TestGenerateFilePathWithoutDomain(t *testing.T) {
	path := GenerateFilePath("", "user-1", "notes.docx")
	require.True(t, strings.HasPrefix(path, "user-1/"))
	assert.NoError(t, ValidateObjectPath(path))
}

func TestGenerateFilePathLongBaseName(t *testing.T) {
	path := GenerateFilePath("mit.edu", "user-1", strings.Repeat("a", 200)+".pdf")
	parts := strings.Split(path, "/")
	require.Len(t, parts, 3)
	base := strings.TrimSuffix(parts[2], ".pdf")
	segments := strings.SplitN(base, "_", 3)
	require.Len(t, segments, 3)
	assert.LessOrEqual(t, len(segments[2]), 50)
}

func TestGenerateFilePathUnique(t *testing.T) {
	first := GenerateFilePath("mit.edu", "user-1", "notes.pdf")
	second := GenerateFilePath("mit.edu", "user-1", "notes.pdf")
	assert.NotEqual(t, first, second)
}

func TestValidateObjectPath(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid nested", "mit.edu/user-1/123_abc_notes.pdf", false},
		{"valid flat", "file.pdf", false},
		{"empty", "", true},
		{"traversal", "mit.edu/../secrets.pdf", true},
		{"double slash", "mit.edu//user-1/file.pdf", true},
		{"illegal chars", "mit.edu/user 1/file.pdf", true},
		{"percent", "mit.edu/user%2e/file.pdf", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateObjectPath(tc.path)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileRulesValidateFile(t *testing.T) {
	rules := FileRules{
		MaxSizeBytes:      10 * 1024 * 1024,
		AllowedExtensions: []string{"pdf", "docx", "pptx"},
	}

	assert.NoError(t, rules.ValidateFile("notes.pdf", 1024))
	assert.NoError(t, rules.ValidateFile("NOTES.PDF", 1024))

	err := rules.ValidateFile("notes.pdf", 11*1024*1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10MB limit")

	err = rules.ValidateFile("malware.exe", 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".exe is not allowed")
}
