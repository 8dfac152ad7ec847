// Package uuidutil compares Bluetooth short (16-bit) and long (128-bit)
// UUID forms and copies characteristic value buffers defensively.
package uuidutil

import "strings"

// Normalize lowercases a UUID and strips dashes and an optional 0x/0X
// prefix; this is the form the BLE stack adapter stores UUIDs in. Match
// treats a 128-bit UUID as a long form only in its dashed 36-character
// layout, so a normalized (dashless) 128-bit UUID matches nothing.
func Normalize(uuid string) string {
	u := strings.ToLower(uuid)
	u = strings.TrimPrefix(u, "0x")
	return strings.ReplaceAll(u, "-", "")
}

func isShortForm(uuid string) bool {
	return len(uuid) == 4
}

func isLongForm(uuid string) bool {
	if len(uuid) != 36 {
		return false
	}
	for i, r := range uuid {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if !isHex(r) {
				return false
			}
		}
	}
	return true
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// shortOf returns the 4-hex short form embedded at positions 4..8 of a
// well-formed long-form UUID.
func shortOf(longUUID string) string {
	return strings.ToLower(longUUID[4:8])
}

// Match reports whether a and b refer to the same Bluetooth UUID: either
// one is exactly a short form equal to the other's short form, or both are
// well-formed long forms whose embedded 16-bit identifiers match. This
// rejects accidental substring matches at any position other than 4..8 of
// a long form.
func Match(a, b string) bool {
	aNorm, bNorm := strings.ToLower(a), strings.ToLower(b)

	aShort, aLong := isShortForm(aNorm), isLongForm(aNorm)
	bShort, bLong := isShortForm(bNorm), isLongForm(bNorm)

	switch {
	case aShort && bShort:
		return aNorm == bNorm
	case aShort && bLong:
		return aNorm == shortOf(bNorm)
	case aLong && bShort:
		return shortOf(aNorm) == bNorm
	case aLong && bLong:
		return shortOf(aNorm) == shortOf(bNorm)
	default:
		return false
	}
}

// ToFullUUID expands a 4-hex short UUID into the 36-character Bluetooth
// Base UUID form, lowercase, zero-padded.
func ToFullUUID(short string) string {
	s := strings.ToLower(short)
	for len(s) < 4 {
		s = "0" + s
	}
	return "0000" + s + "-0000-1000-8000-00805f9b34fb"
}

// CopyValue defensively copies a BLE characteristic value buffer that may
// be an opaque, asynchronously-invalidated view over shared memory.
// It validates offset+length against the buffer's reported length before
// copying and returns (nil, false) on any access failure or a zero
// length, signalling the caller to drop the event.
func CopyValue(buf []byte, offset, length int) ([]byte, bool) {
	if length <= 0 || offset < 0 || offset+length > len(buf) {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, buf[offset:offset+length])
	return out, true
}
