// Package addr classifies 48-bit Bluetooth device addresses.
package addr

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// DeviceAddress holds a device address in HCI octet order: byte 0 is the
// least significant, byte 5 holds bits 47:40.
type DeviceAddress [6]byte

type Kind uint8

const (
	KindStatic Kind = iota
	KindPrivateNonResolvable
	KindPrivateResolvable
	// KindUnknown is the reserved pattern. Peers can send it, so it is not an error.
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindPrivateNonResolvable:
		return "private non-resolvable"
	case KindPrivateResolvable:
		return "private resolvable"
	case KindUnknown:
		return "unknown"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Kind examines the two low bits of the most significant octet.
func (a DeviceAddress) Kind() Kind {
	switch a[5] & 0b11 {
	case 0b11:
		return KindStatic
	case 0b00:
		return KindPrivateNonResolvable
	case 0b10:
		return KindPrivateResolvable
	default:
		return KindUnknown
	}
}

// Hash returns the 24 most significant bits. For a private resolvable address
// this is the hash used to resolve it against an IRK.
func (a DeviceAddress) Hash() uint32 {
	return uint32(a[5])<<16 | uint32(a[4])<<8 | uint32(a[3])
}

// Prand returns the 24 least significant bits.
func (a DeviceAddress) Prand() uint32 {
	return uint32(a[2])<<16 | uint32(a[1])<<8 | uint32(a[0])
}

// String formats the address most significant octet first, e.g. C3:11:22:33:44:55.
func (a DeviceAddress) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[5], a[4], a[3], a[2], a[1], a[0])
}

var errBadAddress = errors.New("malformed device address")

// ParseDeviceAddress parses the form produced by String. Case is ignored.
func ParseDeviceAddress(s string) (DeviceAddress, error) {
	var a DeviceAddress
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != len(a) {
		return a, fmt.Errorf("%w: %q", errBadAddress, s)
	}
	for i, p := range parts {
		if len(p) != 2 {
			return a, fmt.Errorf("%w: %q", errBadAddress, s)
		}
		b, err := hex.DecodeString(p)
		if err != nil {
			return a, fmt.Errorf("%w: %q: %v", errBadAddress, s, err)
		}
		a[len(a)-1-i] = b[0]
	}
	return a, nil
}

func (a DeviceAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *DeviceAddress) UnmarshalText(text []byte) error {
	v, err := ParseDeviceAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
