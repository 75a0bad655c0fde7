package fragcache

import (
	"crypto/sha1"
	"encoding/hex"
)

const (
	rawTokenPrefix = "RAW_"
	rawTokenSalt1  = "RAW_TOKEN_SALT1"
	rawTokenSalt2  = "RAW_TOKEN_SALT2"
)

// Markers delimit live regions inside rendered fragments. The token is
// derived from the application secret so template authors cannot forge it.
//
// A live region is stored as End + source + Start: the rendered text around
// it is what would sit between Start and End if the whole fragment were
// wrapped in a raw block.
type Markers struct {
	Token string
	Start string
	End   string
}

func NewMarkers(secret string, syntax Syntax) Markers {
	syntax = syntax.withDefaults()
	inner := sha1.Sum([]byte(rawTokenSalt2 + secret))
	outer := sha1.Sum([]byte(rawTokenSalt1 + hex.EncodeToString(inner[:])))
	tok := rawTokenPrefix + hex.EncodeToString(outer[:])
	return Markers{
		Token: tok,
		Start: syntax.Block(tok),
		End:   syntax.Block("end" + tok),
	}
}
