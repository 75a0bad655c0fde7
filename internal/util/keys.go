package util

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// VaryHash returns the md5 hex digest of the quoted values joined with ":".
// md5 is a fingerprint here, not a security primitive.
func VaryHash(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	sum := md5.Sum([]byte(strings.Join(quoted, ":")))
	return hex.EncodeToString(sum[:])
}

// Quote percent-escapes every byte of s except ASCII letters, digits and "_.-~/".
func Quote(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '_', '.', '-', '~', '/':
		return true
	}
	return false
}
