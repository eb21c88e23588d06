package devices

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Addr is a 6-byte IEEE 802 hardware address.
type Addr [6]byte

// String formats the address as upper-case colon separated hex,
// e.g. "AA:BB:CC:DD:EE:FF".
func (a Addr) String() string {
	const digits = "0123456789ABCDEF"
	buf := make([]byte, 0, 17)
	for i, b := range a {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, digits[b>>4], digits[b&0x0f])
	}
	return string(buf)
}

// ParseAddr parses a colon or dash separated address in either case.
func ParseAddr(s string) (Addr, error) {
	var a Addr
	clean := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	if len(clean) != 12 {
		return a, fmt.Errorf("invalid hardware address %q", s)
	}
	if _, err := hex.Decode(a[:], []byte(clean)); err != nil {
		return a, fmt.Errorf("invalid hardware address %q: %w", s, err)
	}
	return a, nil
}
