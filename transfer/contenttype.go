package transfer

import (
	"path/filepath"
	"strings"
)

// The upload allow-list. This is a deliberate policy, not a best-effort
// guess: a key with any other suffix is rejected without touching the
// network.
var contentTypes = map[string]string{
	".mp4": "video/mp4",
	".png": "image/png",
}

// ContentTypeForKey maps an object key to its content type via the upload
// allow-list. Keys with an unrecognized suffix get an UnsupportedTypeError.
func ContentTypeForKey(key string) (string, error) {
	ext := strings.ToLower(filepath.Ext(key))
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", &UnsupportedTypeError{Ext: ext}
	}
	return contentType, nil
}
