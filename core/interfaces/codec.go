// ABOUTME: Codec capability used to shrink large cached assets before storage
// ABOUTME: Absence of a codec is a legal configuration meaning identity transform

package interfaces

// Codec encodes and decodes stored asset content
type Codec interface {
	// Encode compresses src
	Encode(src []byte) ([]byte, error)

	// Decode reverses Encode
	Decode(src []byte) ([]byte, error)

	// IsEncoded reports whether src carries this codec's framing
	IsEncoded(src []byte) bool
}

// EncodingDetector reports whether src carries a codec's framing. It must
// work without creating the codec so encoded blobs are recognised even when
// the codec cannot be loaded.
type EncodingDetector func(src []byte) bool

// CodecFactory creates a codec on demand. The returned codec is released
// after an idle period; if it implements io.Closer it is closed then.
type CodecFactory func() (Codec, error)
