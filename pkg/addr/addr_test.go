package addr

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		low  byte
		want Kind
	}{
		{0b11, KindStatic},
		{0b00, KindPrivateNonResolvable},
		{0b10, KindPrivateResolvable},
		{0b01, KindUnknown},
	}
	r := rand.New(rand.NewSource(1))
	for _, tt := range tests {
		for i := 0; i < 100; i++ {
			var a DeviceAddress
			r.Read(a[:])
			a[5] = a[5]&^0b11 | tt.low
			require.Equal(t, tt.want, a.Kind(), "%v", a)
		}
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "static", KindStatic.String())
	assert.Equal(t, "private resolvable", KindPrivateResolvable.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestHashPrand(t *testing.T) {
	a := DeviceAddress{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	assert.Equal(t, uint32(0x060504), a.Hash())
	assert.Equal(t, uint32(0x030201), a.Prand())
}

func TestString(t *testing.T) {
	a := DeviceAddress{0x55, 0x44, 0x33, 0x22, 0x11, 0xC3}
	assert.Equal(t, "C3:11:22:33:44:55", a.String())

	b, err := ParseDeviceAddress("c3:11:22:33:44:55")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, KindStatic, b.Kind())
}

func TestParseDeviceAddressErrors(t *testing.T) {
	for _, s := range []string{"", "C3:11:22:33:44", "C3:11:22:33:44:55:66", "C3:11:22:33:44:5", "C3:11:22:33:44:ZZ", "C311:22:33:44:55"} {
		_, err := ParseDeviceAddress(s)
		assert.ErrorIs(t, err, errBadAddress, s)
	}
}

func TestUnmarshalText(t *testing.T) {
	var a DeviceAddress
	require.NoError(t, a.UnmarshalText([]byte("C0:00:00:00:00:01")))
	assert.Equal(t, DeviceAddress{0x01, 0, 0, 0, 0, 0xC0}, a)
	assert.Equal(t, KindPrivateNonResolvable, a.Kind())
	assert.Error(t, a.UnmarshalText([]byte("nope")))
}
