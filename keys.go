package fragcache

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/unkn0wn-root/fragcache/internal/util"
)

const defaultKeyPrefix = "template"

// KeyBuilder composes the storage key of a fragment. Implementations must be
// deterministic: equal inputs give equal keys, and changing any vary value
// or their order changes the key.
type KeyBuilder interface {
	Key(nodename, fragment string, varyOn []any, includePK bool) (string, error)
}

// DefaultKeyBuilder builds
//
//	<prefix>.<nodename>.<fragment>[.<pk>].<md5hex>
//
// where pk is the first vary value (kept in the hash as well) and md5hex
// digests the url-quoted vary values joined with ":".
type DefaultKeyBuilder struct {
	Prefix string // "template" when empty
}

var _ KeyBuilder = DefaultKeyBuilder{}

func (b DefaultKeyBuilder) Key(nodename, fragment string, varyOn []any, includePK bool) (string, error) {
	vals := make([]string, len(varyOn))
	for i, v := range varyOn {
		s, err := Stringify(v)
		if err != nil {
			return "", &KeyError{Fragment: fragment, Index: i, Err: err}
		}
		vals[i] = s
	}
	if includePK && len(vals) == 0 {
		return "", &KeyError{Fragment: fragment, Index: -1, Err: errors.New("include_pk requires at least one vary value")}
	}

	var sb strings.Builder
	sb.WriteString(coalesce(b.Prefix, defaultKeyPrefix))
	sb.WriteByte('.')
	sb.WriteString(nodename)
	sb.WriteByte('.')
	sb.WriteString(fragment)
	if includePK {
		sb.WriteByte('.')
		sb.WriteString(vals[0])
	}
	sb.WriteByte('.')
	sb.WriteString(util.VaryHash(vals))
	return sb.String(), nil
}

// BuildKey builds a key with DefaultKeyBuilder.
func BuildKey(nodename, fragment string, varyOn []any, includePK bool) (string, error) {
	return DefaultKeyBuilder{}.Key(nodename, fragment, varyOn, includePK)
}

// Stringify coerces a vary value to the string that is hashed into the key.
// nil becomes "", times are formatted as RFC 3339.
func Stringify(v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339), nil
	case *time.Time:
		if t == nil {
			return "", nil
		}
		return t.Format(time.RFC3339), nil
	}
	return cast.ToStringE(v)
}
