package hci

import (
	"encoding/binary"
	"errors"
	"io"
)

type AdvertisingType uint8

const (
	AdvertisingTypeConnectableAndScannableUndirectedAdvertising AdvertisingType = 0x00
	AdvertisingTypeScannableUndirectedAdvertising               AdvertisingType = 0x02
	AdvertisingTypeNonConnectableUndirectedAdvertising          AdvertisingType = 0x03
)

const AdvertisingChannelMapDefault uint8 = 0x07

// Section 7.8.5
type LESetAdvertisingParametersCommandPacket struct {
	AdvertisingIntervalMin uint16
	AdvertisingIntervalMax uint16
	AdvertisingType        AdvertisingType
	OwnAddressType         OwnAddressType
	AdvertisingChannelMap  uint8
}

func (p *LESetAdvertisingParametersCommandPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 19)
	buf[0] = byte(PacketTypeCommand)
	binary.LittleEndian.PutUint16(buf[1:], uint16(OpcodeLESetAdvertisingParameters))
	buf[3] = 15
	binary.LittleEndian.PutUint16(buf[4:], p.AdvertisingIntervalMin)
	binary.LittleEndian.PutUint16(buf[6:], p.AdvertisingIntervalMax)
	buf[8] = byte(p.AdvertisingType)
	buf[9] = byte(p.OwnAddressType)
	// peer address type and peer address are only used for directed advertising.
	buf[17] = p.AdvertisingChannelMap
	return buf, nil
}

func (p *LESetAdvertisingParametersCommandPacket) Unmarshal(buf []byte) error {
	if len(buf) != 19 {
		return io.ErrShortBuffer
	}
	if buf[0] != byte(PacketTypeCommand) || Opcode(binary.LittleEndian.Uint16(buf[1:])) != OpcodeLESetAdvertisingParameters || buf[3] != 15 {
		return errIncorrectPacket
	}
	p.AdvertisingIntervalMin = binary.LittleEndian.Uint16(buf[4:])
	p.AdvertisingIntervalMax = binary.LittleEndian.Uint16(buf[6:])
	p.AdvertisingType = AdvertisingType(buf[8])
	p.OwnAddressType = OwnAddressType(buf[9])
	p.AdvertisingChannelMap = buf[17]
	return nil
}

func (p *LESetAdvertisingParametersCommandPacket) Opcode() Opcode {
	return OpcodeLESetAdvertisingParameters
}

// LESetAdvertisingParameters fills in defaults for zero fields before sending.
func (a *Adapter) LESetAdvertisingParameters(p *LESetAdvertisingParametersCommandPacket) error {
	if p.AdvertisingIntervalMin == 0 {
		p.AdvertisingIntervalMin = 0x0800
	}
	if p.AdvertisingIntervalMax == 0 {
		p.AdvertisingIntervalMax = 0x0800
	}
	if p.AdvertisingIntervalMin < 0x0020 || p.AdvertisingIntervalMin > 0x4000 {
		return errors.New("invalid advertising interval min")
	}
	if p.AdvertisingIntervalMax < p.AdvertisingIntervalMin || p.AdvertisingIntervalMax > 0x4000 {
		return errors.New("invalid advertising interval max")
	}
	if p.AdvertisingChannelMap == 0 {
		p.AdvertisingChannelMap = AdvertisingChannelMapDefault
	}
	_, err := a.exec(p)
	return err
}

// Section 7.8.7. Data holds advertising structures, at most 31 octets.
type LESetAdvertisingDataCommandPacket struct {
	Data []byte
}

func (p *LESetAdvertisingDataCommandPacket) Marshal() ([]byte, error) {
	if len(p.Data) > 31 {
		return nil, io.ErrShortWrite
	}
	buf := make([]byte, 36)
	buf[0] = byte(PacketTypeCommand)
	binary.LittleEndian.PutUint16(buf[1:], uint16(OpcodeLESetAdvertisingData))
	buf[3] = 32
	buf[4] = byte(len(p.Data))
	copy(buf[5:], p.Data)
	return buf, nil
}

func (p *LESetAdvertisingDataCommandPacket) Unmarshal(buf []byte) error {
	if len(buf) != 36 || int(buf[4]) > 31 {
		return io.ErrShortBuffer
	}
	if buf[0] != byte(PacketTypeCommand) || Opcode(binary.LittleEndian.Uint16(buf[1:])) != OpcodeLESetAdvertisingData {
		return errIncorrectPacket
	}
	p.Data = append([]byte(nil), buf[5:5+int(buf[4])]...)
	return nil
}

func (p *LESetAdvertisingDataCommandPacket) Opcode() Opcode {
	return OpcodeLESetAdvertisingData
}

// CompleteLocalName encodes an advertising data structure carrying name.
func CompleteLocalName(name string) []byte {
	return append([]byte{byte(len(name) + 1), 0x09}, name...)
}

// Flags encodes the LE General Discoverable, BR/EDR Not Supported flags.
func Flags() []byte {
	return []byte{0x02, 0x01, 0x06}
}

func (a *Adapter) LESetAdvertisingData(data ...[]byte) error {
	var p LESetAdvertisingDataCommandPacket
	for _, d := range data {
		p.Data = append(p.Data, d...)
	}
	_, err := a.exec(&p)
	return err
}

type leSetAdvertisingEnableCommandPacket struct {
	enable bool
}

func (p *leSetAdvertisingEnableCommandPacket) Marshal() ([]byte, error) {
	buf := []byte{byte(PacketTypeCommand), 0, 0, 1, 0}
	binary.LittleEndian.PutUint16(buf[1:], uint16(OpcodeLESetAdvertisingEnable))
	if p.enable {
		buf[4] = 1
	}
	return buf, nil
}

func (p *leSetAdvertisingEnableCommandPacket) Unmarshal(buf []byte) error {
	if len(buf) != 5 || buf[3] != 1 {
		return io.ErrShortBuffer
	}
	p.enable = buf[4] == 1
	return nil
}

func (p *leSetAdvertisingEnableCommandPacket) Opcode() Opcode {
	return OpcodeLESetAdvertisingEnable
}

func (a *Adapter) LESetAdvertisingEnable(enable bool) error {
	_, err := a.exec(&leSetAdvertisingEnableCommandPacket{enable: enable})
	return err
}
