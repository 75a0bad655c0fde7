package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

var fragment = strings.Repeat("<li class=\"item\">hello fragment</li>\n", 64)

func TestCompressorsRoundTrip(t *testing.T) {
	names := []string{CompressionZlib, CompressionZstd, CompressionS2, CompressionSnappy, CompressionLZ4, CompressionBrotli}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			c, err := NewCompressor(name)
			if err != nil {
				t.Fatalf("NewCompressor: %v", err)
			}
			if c.Name() != name {
				t.Fatalf("name=%q want %q", c.Name(), name)
			}
			packed, err := c.Compress([]byte(fragment))
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			if len(packed) >= len(fragment) {
				t.Fatalf("expected repetitive input to shrink: %d >= %d", len(packed), len(fragment))
			}
			out, err := c.Decompress(packed)
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(out, []byte(fragment)) {
				t.Fatalf("round trip mismatch")
			}
		})
	}
}

func TestCompressorRejectsGarbage(t *testing.T) {
	for _, name := range []string{CompressionZlib, CompressionZstd, CompressionSnappy} {
		c, _ := NewCompressor(name)
		if _, err := c.Decompress([]byte("definitely not compressed")); !errors.Is(err, ErrDecompression) {
			t.Fatalf("%s: want ErrDecompression, got %v", name, err)
		}
	}
}

func TestNewCompressorNoneAndUnknown(t *testing.T) {
	for _, name := range []string{"", "none", "NONE"} {
		c, err := NewCompressor(name)
		if err != nil || c != nil {
			t.Fatalf("%q: got %v, %v", name, c, err)
		}
	}
	if _, err := NewCompressor("gzip9000"); err == nil {
		t.Fatal("expected error for unknown compressor")
	}
}

func TestNewCodecs(t *testing.T) {
	cases := []struct{ ser, comp string }{
		{"", ""},
		{"string", "zlib"},
		{"msgpack", "zlib"},
		{"cbor", "s2"},
		{"json", "lz4"},
		{"protobuf", "brotli"},
		{"msgpack", "zstd"},
	}
	for _, tc := range cases {
		c, err := New(tc.ser, tc.comp)
		if err != nil {
			t.Fatalf("New(%q,%q): %v", tc.ser, tc.comp, err)
		}
		b, err := c.Encode(fragment)
		if err != nil {
			t.Fatalf("encode %v: %v", tc, err)
		}
		got, err := c.Decode(b)
		if err != nil {
			t.Fatalf("decode %v: %v", tc, err)
		}
		if got != fragment {
			t.Fatalf("%v: round trip mismatch", tc)
		}
	}
	if _, err := New("xml", ""); err == nil {
		t.Fatal("expected error for unknown serializer")
	}
}

func TestStringIsIdentity(t *testing.T) {
	c, _ := New("", "")
	b, _ := c.Encode(" foobar ")
	if string(b) != " foobar " {
		t.Fatalf("got %q", b)
	}
}

func TestLimit(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("12345")); err == nil {
		t.Fatal("expected size error")
	}
	if v, err := c.Decode([]byte("1234")); err != nil || v != "1234" {
		t.Fatalf("got %q, %v", v, err)
	}
}
