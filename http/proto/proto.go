package proto

import "github.com/indigo-web/utils/uf"

type Protocol uint8

const (
	Unknown Protocol = iota
	HTTP10
	HTTP11
)

// String returns the protocol token WITH A TRAILING SPACE, ready to be
// prepended to a status line.
func (p Protocol) String() string {
	lut := [...]string{HTTP10: "HTTP/1.0 ", HTTP11: "HTTP/1.1 "}
	if int(p) >= len(lut) {
		return ""
	}

	return lut[p]
}

// KeepAliveByDefault tells whether connections of the protocol are persistent
// unless explicitly opted out. True for HTTP/1.1 only.
func (p Protocol) KeepAliveByDefault() bool {
	return p == HTTP11
}

const (
	tokenLength = len("HTTP/x.x")
	scheme      = "HTTP/"
)

// FromBytes parses a version token of the exact "HTTP/x.x" form. Anything
// else, including HTTP/2 and later, yields Unknown.
func FromBytes(raw []byte) Protocol {
	if len(raw) != tokenLength || uf.B2S(raw[:len(scheme)]) != scheme {
		return Unknown
	}

	major, minor := raw[len(scheme)]-'0', raw[tokenLength-1]-'0'
	if raw[tokenLength-2] != '.' {
		return Unknown
	}

	switch {
	case major == 1 && minor == 0:
		return HTTP10
	case major == 1 && minor == 1:
		return HTTP11
	default:
		return Unknown
	}
}
