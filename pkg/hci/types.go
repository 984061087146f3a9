package hci

import (
	"fmt"

	"github.com/muxable/lapis/pkg/addr"
)

type OwnAddressType uint8

const (
	OwnAddressTypePublicDeviceAddress         OwnAddressType = 0x00
	OwnAddressTypeRandomDeviceAddress         OwnAddressType = 0x01
	OwnAddressTypeControllerGeneratedOrPublic OwnAddressType = 0x02
	OwnAddressTypeControllerGeneratedOrRandom OwnAddressType = 0x03
)

type PeerAddressType uint8

const (
	PeerAddressTypePublicDeviceAddress PeerAddressType = 0x00
	PeerAddressTypeRandomDeviceAddress PeerAddressType = 0x01
)

// BDAddr is a device address as carried in HCI parameters.
type BDAddr = addr.DeviceAddress

// LEFeatures is the LE feature mask, Vol 6, Part B, Section 4.6.
type LEFeatures uint64

const (
	LEFeatureEncryption                LEFeatures = (1 << 0)
	LEFeatureExtendedScannerFilter     LEFeatures = (1 << 7)
	LEFeature2MPHY                     LEFeatures = (1 << 8)
	LEFeatureCodedPHY                  LEFeatures = (1 << 11)
	LEFeatureExtendedAdvertising       LEFeatures = (1 << 12)
	LEFeaturePeriodicAdvertising       LEFeatures = (1 << 13)
	LEFeatureChannelSelectionAlgorithm LEFeatures = (1 << 14)
)

// CodedPHY reports whether the controller supports the LE Coded PHY, which
// tightens the access address rules.
func (f LEFeatures) CodedPHY() bool {
	return f&LEFeatureCodedPHY != 0
}

func (f LEFeatures) String() string {
	return fmt.Sprintf("%#016x", uint64(f))
}

// CommandError reports a non-zero status in a Command Complete event.
type CommandError struct {
	Opcode Opcode
	Status uint8
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %#04x failed with status %#02x", uint16(e.Opcode), e.Status)
}

func (e *CommandError) Unwrap() error {
	return ErrCommandFailed
}
