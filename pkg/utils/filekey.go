package utils

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileExtension returns the lowercased extension of name without the dot.
// Names without an extension get "bin".
func FileExtension(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(strings.TrimSpace(name))), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

// TempPrefix is where uploads made before a project exists are stored.
const TempPrefix = "temp/"

// IsTempKey reports whether key is a plain object under TempPrefix.
func IsTempKey(key string) bool {
	name, ok := strings.CutPrefix(key, TempPrefix)
	return ok && name != "" && !strings.Contains(name, "/") && !strings.Contains(name, "..")
}

// ObjectKey builds a unique storage key for an uploaded file. Files tied to a
// project live under projects/{id}/{kind}/, anything else under temp/.
func ObjectKey(projectID, kind, fileName string, now time.Time) string {
	name := fmt.Sprintf("%d-%s.%s", now.UnixMilli(), uuid.NewString(), FileExtension(fileName))
	if projectID == "" {
		return TempPrefix + name
	}
	return "projects/" + projectID + "/" + strings.ToLower(kind) + "/" + name
}
