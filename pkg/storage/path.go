package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const maxBaseNameLength = 50

var (
	objectPathPattern = regexp.MustCompile(`^[a-zA-Z0-9/_.\-]+$`)
	unsafeCharPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// GenerateFilePath derives a collision-resistant object path for an upload:
// {domain}/{userID}/{timestamp}_{token}_{sanitizedBase}.{ext}. The base name
// is reduced to alphanumerics and capped so hostile filenames cannot escape
// the owner's prefix.
func GenerateFilePath(collegeDomain, userID, filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	safe := unsafeCharPattern.ReplaceAllString(base, "_")
	if len(safe) > maxBaseNameLength {
		safe = safe[:maxBaseNameLength]
	}
	if safe == "" {
		safe = "file"
	}

	prefix := ""
	if collegeDomain != "" {
		prefix = collegeDomain + "/"
	}

	name := fmt.Sprintf("%d_%s_%s", time.Now().UnixMilli(), randomToken(), safe)
	if ext != "" {
		name += "." + ext
	}
	return prefix + userID + "/" + name
}

// ValidateObjectPath rejects traversal attempts and characters outside the
// storage-safe set before a path is handed to the object store.
func ValidateObjectPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("file path is required")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("invalid file path")
	}
	if strings.Contains(path, "//") {
		return fmt.Errorf("invalid file path")
	}
	if !objectPathPattern.MatchString(path) {
		return fmt.Errorf("invalid file path")
	}
	return nil
}

func randomToken() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
