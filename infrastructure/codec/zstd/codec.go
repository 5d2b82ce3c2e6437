// ABOUTME: Zstandard codec for cached asset content using klauspost/compress
// ABOUTME: Encoded blobs are recognised by the zstd frame magic number

package zstd

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"filter-assets/core/interfaces"
)

// frameMagic prefixes every zstd frame
var frameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec implements interfaces.Codec with one encoder and one decoder.
// Both are safe for concurrent use through EncodeAll/DecodeAll.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a codec at the given level
func New(level zstd.EncoderLevel) (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("zstd: init encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd: init decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// IsFrame reports whether src starts with a zstd frame. It needs no codec
// instance and serves as the cache's encoding detector.
func IsFrame(src []byte) bool {
	return bytes.HasPrefix(src, frameMagic)
}

// Factory returns a CodecFactory creating codecs at level
func Factory(level zstd.EncoderLevel) interfaces.CodecFactory {
	return func() (interfaces.Codec, error) {
		return New(level)
	}
}

// Encode compresses src into a single zstd frame
func (c *Codec) Encode(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

// Decode decompresses a blob produced by Encode
func (c *Codec) Decode(src []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: decode: %w", err)
	}
	return out, nil
}

// IsEncoded reports whether src starts with a zstd frame
func (c *Codec) IsEncoded(src []byte) bool {
	return IsFrame(src)
}

// Close releases the encoder and decoder resources
func (c *Codec) Close() error {
	c.dec.Close()
	return c.enc.Close()
}
