package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor names accepted by NewCompressor.
const (
	CompressionNone   = "none"
	CompressionZlib   = "zlib"
	CompressionZstd   = "zstd"
	CompressionS2     = "s2"
	CompressionSnappy = "snappy"
	CompressionLZ4    = "lz4"
	CompressionBrotli = "brotli"
)

// ErrDecompression is returned when a stored payload cannot be decompressed.
var ErrDecompression = errors.New("decompression failed")

// Compressor transforms serialized fragment bytes before they are stored.
type Compressor interface {
	Name() string
	Compress([]byte) ([]byte, error)
	Decompress([]byte) ([]byte, error)
}

// NewCompressor returns the compressor registered under name.
// An empty name or "none" yields nil.
func NewCompressor(name string) (Compressor, error) {
	switch strings.ToLower(name) {
	case "", CompressionNone:
		return nil, nil
	case CompressionZlib:
		return Zlib{}, nil
	case CompressionZstd:
		return NewZstd()
	case CompressionS2:
		return S2{}, nil
	case CompressionSnappy:
		return Snappy{}, nil
	case CompressionLZ4:
		return LZ4{}, nil
	case CompressionBrotli:
		return Brotli{Level: brotli.DefaultCompression}, nil
	default:
		return nil, fmt.Errorf("codec: unknown compressor %q", name)
	}
}

// Zlib is the default compressor used when fragment compression is enabled.
type Zlib struct{}

func (Zlib) Name() string { return CompressionZlib }

func (Zlib) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compression close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (Zlib) Decompress(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %v", ErrDecompression, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %v", ErrDecompression, err)
	}
	return out, nil
}

// Zstd reuses one encoder and one decoder; both are safe for concurrent
// EncodeAll/DecodeAll calls.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

func (*Zstd) Name() string { return CompressionZstd }

func (z *Zstd) Compress(b []byte) ([]byte, error) {
	return z.enc.EncodeAll(b, make([]byte, 0, len(b)/2)), nil
}

func (z *Zstd) Decompress(b []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrDecompression, err)
	}
	return out, nil
}

type S2 struct{}

func (S2) Name() string                      { return CompressionS2 }
func (S2) Compress(b []byte) ([]byte, error) { return s2.Encode(nil, b), nil }
func (S2) Decompress(b []byte) ([]byte, error) {
	out, err := s2.Decode(nil, b)
	if err != nil {
		return nil, fmt.Errorf("%w: s2: %v", ErrDecompression, err)
	}
	return out, nil
}

type Snappy struct{}

func (Snappy) Name() string                      { return CompressionSnappy }
func (Snappy) Compress(b []byte) ([]byte, error) { return snappy.Encode(nil, b), nil }
func (Snappy) Decompress(b []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, b)
	if err != nil {
		return nil, fmt.Errorf("%w: snappy: %v", ErrDecompression, err)
	}
	return out, nil
}

// LZ4 uses the stream format, which embeds size information.
type LZ4 struct{}

func (LZ4) Name() string { return CompressionLZ4 }

func (LZ4) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compression close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (LZ4) Decompress(b []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrDecompression, err)
	}
	return out, nil
}

type Brotli struct {
	Level int
}

func (Brotli) Name() string { return CompressionBrotli }

func (c Brotli) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.Level)
	if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, fmt.Errorf("brotli compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli compression close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (Brotli) Decompress(b []byte) ([]byte, error) {
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: brotli: %v", ErrDecompression, err)
	}
	return out, nil
}

// Compressed serializes with Inner and then compresses the result.
// A nil Compressor makes it equivalent to Inner.
type Compressed[V any] struct {
	Inner      Codec[V]
	Compressor Compressor
}

func (c Compressed[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil || c.Compressor == nil {
		return b, err
	}
	return c.Compressor.Compress(b)
}

func (c Compressed[V]) Decode(b []byte) (V, error) {
	if c.Compressor != nil {
		raw, err := c.Compressor.Decompress(b)
		if err != nil {
			var zero V
			return zero, err
		}
		b = raw
	}
	return c.Inner.Decode(b)
}

// Serializer names accepted by New.
const (
	SerializerString   = "string"
	SerializerMsgpack  = "msgpack"
	SerializerCBOR     = "cbor"
	SerializerJSON     = "json"
	SerializerProtobuf = "protobuf"
)

// New builds a fragment codec from a serializer and a compressor name.
// Both may be empty: the serializer defaults to "string" and the compressor
// to none.
func New(serializer, compressor string) (Codec[string], error) {
	var inner Codec[string]
	switch strings.ToLower(serializer) {
	case "", SerializerString:
		inner = String{}
	case SerializerMsgpack:
		inner = Msgpack[string]{}
	case SerializerCBOR:
		c, err := NewCBOR[string](true)
		if err != nil {
			return nil, err
		}
		inner = c
	case SerializerJSON:
		inner = JSON[string]{}
	case SerializerProtobuf:
		inner = ProtoString{}
	default:
		return nil, fmt.Errorf("codec: unknown serializer %q", serializer)
	}
	comp, err := NewCompressor(compressor)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return inner, nil
	}
	return Compressed[string]{Inner: inner, Compressor: comp}, nil
}
