package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoredName(t *testing.T) {
	const id = "0b9c7c3e-8f7e-4c77-9a3c-3c8d1f2a4b5c"

	tests := []struct {
		original string
		want     string
	}{
		{"report.PDF", id + ".pdf"},
		{"archive.tar.gz", id + ".gz"},
		{"no-extension", id},
		{"../../etc/passwd", id},
		{`..\..\evil.exe`, id + ".exe"},
		{"dir/photo.jpeg", id + ".jpeg"},
		{"weird.ex e", id},
		{"dots.", id},
		{"long.abcdefghijklmnopq", id},
		{"", id},
	}
	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Equal(t, tt.want, StoredName(id, tt.original))
		})
	}
}
