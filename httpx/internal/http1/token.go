package http1

import "strings"

// tokenChars marks the bytes allowed in an RFC 9110 token (header names).
var tokenChars = func() (t [256]bool) {
	for c := '0'; c <= '9'; c++ {
		t[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		t[c] = true
		t[c-'a'+'A'] = true
	}
	for _, c := range "!#$%&'*+-.^_`|~" {
		t[c] = true
	}
	return t
}()

// ValidHeaderName reports whether name is a non-empty token.
func ValidHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !tokenChars[name[i]] {
			return false
		}
	}
	return true
}

// SanitizeHeaderValue drops CR, LF, DEL and control bytes other than HTAB
// so a value can never break out of its header line.
func SanitizeHeaderValue(v string) string {
	clean := true
	for i := 0; i < len(v); i++ {
		if !valueByteOK(v[i]) {
			clean = false
			break
		}
	}
	if clean {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if valueByteOK(v[i]) {
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

func valueByteOK(c byte) bool {
	return c == '\t' || (c >= 0x20 && c != 0x7f)
}
