package blobstore

import "github.com/dmitrijs2005/filekeeper/internal/common"

const (
	minChunkSize     = 32 * common.KiB
	maxChunkSize     = 1 * common.MiB
	defaultChunkSize = 64 * common.KiB
	chunkAlign       = 4 * common.KiB
)

// ChunkSize picks the copy buffer for a payload of the given size:
// size/64 clamped to [32 KiB, 1 MiB] and rounded up to a 4 KiB multiple.
// Unknown sizes (<= 0) get 64 KiB.
func ChunkSize(size int64) int {
	if size <= 0 {
		return int(defaultChunkSize)
	}
	c := size / 64
	if c < minChunkSize {
		c = minChunkSize
	}
	if c > maxChunkSize {
		c = maxChunkSize
	}
	if rem := c % chunkAlign; rem != 0 {
		c += chunkAlign - rem
	}
	return int(c)
}
