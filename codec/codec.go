// Package codec turns rendered fragments into the bytes stored inside a cache
// envelope. The identity codec (String) is the default; a Compressed codec
// pairs a serializer with a Compressor.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
