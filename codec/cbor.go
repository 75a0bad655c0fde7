package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR serializes with fxamacker/cbor. Build it with NewCBOR; the zero
// value has no encoding modes.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[string] = CBOR[string]{}

// NewCBOR returns a CBOR codec. canonical selects RFC 8949 core
// deterministic encoding, so equal fragments produce equal bytes.
func NewCBOR[V any](canonical bool) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if canonical {
		eo = cbor.CoreDetEncOptions()
	}
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, fmt.Errorf("codec: cbor enc mode: %w", err)
	}
	dm, err := cbor.DecOptions{IndefLength: cbor.IndefLengthForbidden}.DecMode()
	if err != nil {
		return CBOR[V]{}, fmt.Errorf("codec: cbor dec mode: %w", err)
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

func (c CBOR[V]) Encode(v V) ([]byte, error) {
	if c.enc == nil {
		return nil, fmt.Errorf("codec: cbor codec not initialized")
	}
	return c.enc.Marshal(v)
}

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	if c.dec == nil {
		return v, fmt.Errorf("codec: cbor codec not initialized")
	}
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
