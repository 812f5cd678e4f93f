package file

import (
	"fmt"
	"strconv"
	"strings"
)

const recordExt = ".json"

// escapeName maps an account name to a filesystem-safe file stem.
// ASCII letters, digits and '-' pass through; every other byte becomes
// "_xx" (lower-case hex), so distinct names never share a file.
func escapeName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}

// unescapeName reverses escapeName
func unescapeName(stem string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(stem); i++ {
		if stem[i] != '_' {
			b.WriteByte(stem[i])
			continue
		}
		if i+2 >= len(stem) {
			return "", fmt.Errorf("truncated escape in %q", stem)
		}
		v, err := strconv.ParseUint(stem[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("bad escape in %q: %w", stem, err)
		}
		b.WriteByte(byte(v))
		i += 2
	}
	return b.String(), nil
}
