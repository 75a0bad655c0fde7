package wire

import (
	"bytes"
	"errors"
	"strings"
)

// Separator splits the version tags from each other and from the payload.
const Separator = "::"

var (
	ErrCorrupt            = errors.New("fragcache: corrupt entry")
	ErrSeparatorInVersion = errors.New("fragcache: version tag contains the separator")

	sep = []byte(Separator)
)

// Envelope is a decoded cache entry.
// Version is empty when the entry was written without content versioning.
type Envelope struct {
	Internal string
	Version  string
	Payload  []byte
}

// Wrap: internal | SEP | [version | SEP] | payload
//
// The payload is always the last segment so it may contain the separator;
// the version tags may not.
func Wrap(payload []byte, internal, version string, versioning bool) ([]byte, error) {
	if err := CheckTag(internal); err != nil {
		return nil, err
	}
	n := len(internal) + len(sep) + len(payload)
	if versioning {
		if err := CheckTag(version); err != nil {
			return nil, err
		}
		n += len(version) + len(sep)
	}

	var buf bytes.Buffer
	buf.Grow(n)
	buf.WriteString(internal)
	if versioning {
		buf.Write(sep)
		buf.WriteString(version)
	}
	buf.Write(sep)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// CheckTag rejects version tags that would not survive Unwrap: tags holding
// the separator or ending with its first byte.
func CheckTag(tag string) error {
	if strings.Contains(tag, Separator) || strings.HasSuffix(tag, Separator[:1]) {
		return ErrSeparatorInVersion
	}
	return nil
}

// Unwrap splits b into at most 2 (3 with versioning) segments.
// Any other segment count is ErrCorrupt. The returned payload aliases b.
func Unwrap(b []byte, versioning bool) (Envelope, error) {
	n := 2
	if versioning {
		n = 3
	}
	parts := bytes.SplitN(b, sep, n)
	if len(parts) != n {
		return Envelope{}, ErrCorrupt
	}

	env := Envelope{
		Internal: string(parts[0]),
		Payload:  parts[n-1],
	}
	if versioning {
		env.Version = string(parts[1])
	}
	return env, nil
}
