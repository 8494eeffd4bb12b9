package blobstore

import (
	"path/filepath"
	"strings"
)

const maxExtLen = 16

// StoredName builds the on-disk name "<id><ext>". The extension is taken
// from the untrusted original name, lower-cased, and dropped unless it is
// short and strictly alphanumeric.
func StoredName(id, originalName string) string {
	return id + sanitizeExt(originalName)
}

func sanitizeExt(name string) string {
	// client names may carry either separator
	name = name[strings.LastIndexAny(name, `/\`)+1:]
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
