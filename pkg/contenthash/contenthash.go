// Package contenthash implements the Dropbox content hash, the checksum the
// API reports for every file as content_hash.
//
// The input is split into 4 MiB blocks. Each block is hashed with SHA-256,
// the block digests are concatenated, and the result is hashed with
// SHA-256 again. An empty input hashes to SHA-256 of nothing.
//
// Reference: https://www.dropbox.com/developers/reference/content-hash
package contenthash

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"hash"
)

const (
	// Size is the length, in bytes, of a content hash digest.
	Size = sha256.Size

	// BlockSize is the provider's block size, in bytes.
	BlockSize = 4 * 1024 * 1024
)

// digest is the state of a content hash computation.
type digest struct {
	overall hash.Hash // over the block digests
	block   hash.Hash // over the current block
	filled  int       // bytes written into the current block
}

// New returns a new hash.Hash computing the Dropbox content hash.
func New() hash.Hash {
	return &digest{overall: sha256.New(), block: sha256.New()}
}

// Write never returns an error.
func (d *digest) Write(p []byte) (int, error) {
	n := len(p)

	for len(p) > 0 {
		room := BlockSize - d.filled
		chunk := min(room, len(p))

		d.block.Write(p[:chunk])
		d.filled += chunk
		p = p[chunk:]

		if d.filled == BlockSize {
			d.overall.Write(d.block.Sum(nil))
			d.block.Reset()
			d.filled = 0
		}
	}

	return n, nil
}

// Sum appends the digest to b without changing the state.
func (d *digest) Sum(b []byte) []byte {
	if d.filled == 0 {
		return d.overall.Sum(b)
	}

	// Fold the partial block into a copy of the overall state.
	overall := sha256.New()
	state, _ := d.overall.(encoding.BinaryMarshaler).MarshalBinary()
	_ = overall.(encoding.BinaryUnmarshaler).UnmarshalBinary(state)
	overall.Write(d.block.Sum(nil))

	return overall.Sum(b)
}

func (d *digest) Reset() {
	d.overall.Reset()
	d.block.Reset()
	d.filled = 0
}

func (d *digest) Size() int {
	return Size
}

func (d *digest) BlockSize() int {
	return BlockSize
}

// Sum returns the hex content hash of data, as the API reports it.
func Sum(data []byte) string {
	h := New()
	h.Write(data)

	return hex.EncodeToString(h.Sum(nil))
}
