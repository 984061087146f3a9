package hci

import (
	"encoding/binary"
	"io"
)

// Section 7.3.1
type EventMask uint64

const (
	EventMaskDisconnectionCompleteEvent EventMask = (1 << 4)
	EventMaskHardwareErrorEvent         EventMask = (1 << 15)
	EventMaskLEMetaEvent                EventMask = (1 << 61)
)

// Section 7.8.1
type LEEventMask uint64

const (
	LEEventMaskConnectionCompleteEvent         LEEventMask = (1 << 0)
	LEEventMaskAdvertisingReportEvent          LEEventMask = (1 << 1)
	LEEventMaskConnectionUpdateCompleteEvent   LEEventMask = (1 << 2)
	LEEventMaskEnhancedConnectionCompleteEvent LEEventMask = (1 << 9)
)

// maskCommandPacket carries the 8 octet mask shared by Set Event Mask and LE
// Set Event Mask.
type maskCommandPacket struct {
	opcode Opcode
	mask   uint64
}

func (p *maskCommandPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 12)
	buf[0] = byte(PacketTypeCommand)
	binary.LittleEndian.PutUint16(buf[1:], uint16(p.opcode))
	buf[3] = 8
	binary.LittleEndian.PutUint64(buf[4:], p.mask)
	return buf, nil
}

func (p *maskCommandPacket) Unmarshal(buf []byte) error {
	if len(buf) != 12 {
		return io.ErrShortBuffer
	}
	if buf[0] != byte(PacketTypeCommand) || Opcode(binary.LittleEndian.Uint16(buf[1:])) != p.opcode || buf[3] != 8 {
		return errIncorrectPacket
	}
	p.mask = binary.LittleEndian.Uint64(buf[4:])
	return nil
}

func (p *maskCommandPacket) Opcode() Opcode {
	return p.opcode
}

func (a *Adapter) SetEventMask(mask EventMask) error {
	_, err := a.exec(&maskCommandPacket{opcode: OpcodeSetEventMask, mask: uint64(mask)})
	return err
}

func (a *Adapter) LESetEventMask(mask LEEventMask) error {
	_, err := a.exec(&maskCommandPacket{opcode: OpcodeLESetEventMask, mask: uint64(mask)})
	return err
}
