package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileRules bounds uploaded files by size and extension.
type FileRules struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
}

// ValidateFile checks an upload against the configured limits and returns a
// descriptive reason when the file must be rejected.
func (r FileRules) ValidateFile(filename string, size int64) error {
	if size > r.MaxSizeBytes {
		return fmt.Errorf("file size exceeds %dMB limit", r.MaxSizeBytes/(1024*1024))
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, allowed := range r.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}
	return fmt.Errorf("file type .%s is not allowed, allowed types: %s", ext, strings.Join(r.AllowedExtensions, ", "))
}
