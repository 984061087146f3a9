package hci

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

var (
	ErrCommandFailed   = errors.New("command failed")
	errIncorrectPacket = errors.New("incorrect packet")
)

// DecodeError reports a packet that was read but could not be decoded. The
// transport itself is still usable.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode packet: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type Packet interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

type CommandPacket interface {
	Packet
	Opcode() Opcode
}

// Unmarshal decodes a packet prefixed with its HCI packet type indicator.
// Packet types this package does not decode, such as ACL data, are returned
// as *UnknownPacket. Failures are *DecodeError.
func Unmarshal(buf []byte) (Packet, error) {
	p, err := unmarshal(buf)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return p, nil
}

func unmarshal(buf []byte) (Packet, error) {
	if len(buf) == 0 {
		return nil, io.ErrShortBuffer
	}
	switch PacketType(buf[0]) {
	case PacketTypeCommand:
		if len(buf) < 4 {
			return nil, io.ErrShortBuffer
		}
		var p CommandPacket
		switch Opcode(binary.LittleEndian.Uint16(buf[1:])) {
		case OpcodeLESetRandomAddress:
			p = &LESetRandomAddressCommandPacket{}
		default:
			p = &GenericCommandPacket{}
		}
		if err := p.Unmarshal(buf); err != nil {
			return nil, err
		}
		return p, nil
	case PacketTypeEvent:
		if len(buf) < 3 {
			return nil, io.ErrShortBuffer
		}
		if len(buf) != int(buf[2])+3 {
			return nil, io.ErrShortBuffer
		}
		var p Packet
		switch EventCode(buf[1]) {
		case EventCodeCommandComplete:
			p = &CommandCompleteEventPacket{}
		case EventCodeLEMeta:
			if len(buf) > 3 && LEMetaSubeventCode(buf[3]) == LEMetaSubeventCodeConnectionComplete {
				p = &LEConnectionCompleteEventPacket{}
			}
		}
		if p == nil {
			return &UnknownEventPacket{EventCode: EventCode(buf[1]), Parameters: buf[3:]}, nil
		}
		if err := p.Unmarshal(buf); err != nil {
			return nil, err
		}
		return p, nil
	}
	p := &UnknownPacket{}
	if err := p.Unmarshal(buf); err != nil {
		return nil, err
	}
	return p, nil
}

// GenericCommandPacket encompasses many argument-less packets.
type GenericCommandPacket struct {
	opcode Opcode
}

func NewGenericCommandPacket(opcode Opcode) *GenericCommandPacket {
	return &GenericCommandPacket{opcode}
}

func (p *GenericCommandPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 4)
	buf[0] = byte(PacketTypeCommand)
	binary.LittleEndian.PutUint16(buf[1:], uint16(p.opcode))
	return buf, nil
}

func (p *GenericCommandPacket) Unmarshal(buf []byte) error {
	if len(buf) != 4 {
		return io.ErrShortBuffer
	}
	if buf[0] != byte(PacketTypeCommand) || buf[3] != 0 {
		return errIncorrectPacket
	}
	p.opcode = Opcode(binary.LittleEndian.Uint16(buf[1:3]))
	return nil
}

func (p *GenericCommandPacket) Opcode() Opcode {
	return p.opcode
}

// Section 7.8.4
type LESetRandomAddressCommandPacket struct {
	RandomAddress BDAddr
}

func (p *LESetRandomAddressCommandPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 10)
	buf[0] = byte(PacketTypeCommand)
	binary.LittleEndian.PutUint16(buf[1:], uint16(OpcodeLESetRandomAddress))
	buf[3] = 6
	copy(buf[4:], p.RandomAddress[:])
	return buf, nil
}

func (p *LESetRandomAddressCommandPacket) Unmarshal(buf []byte) error {
	if len(buf) != 10 {
		return io.ErrShortBuffer
	}
	if buf[0] != byte(PacketTypeCommand) || binary.LittleEndian.Uint16(buf[1:]) != uint16(OpcodeLESetRandomAddress) || buf[3] != 6 {
		return errIncorrectPacket
	}
	copy(p.RandomAddress[:], buf[4:10])
	return nil
}

func (p *LESetRandomAddressCommandPacket) Opcode() Opcode {
	return OpcodeLESetRandomAddress
}

type CommandCompleteEventPacket struct {
	NumCommandPackets uint8
	CommandOpcode     Opcode
	ReturnParameters  []byte
}

func (p *CommandCompleteEventPacket) Unmarshal(buf []byte) error {
	if len(buf) < 6 {
		return io.ErrShortBuffer
	}
	if buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeCommandComplete) {
		return errIncorrectPacket
	}
	if len(buf) != int(buf[2])+3 {
		return io.ErrShortBuffer
	}
	p.NumCommandPackets = buf[3]
	p.CommandOpcode = Opcode(binary.LittleEndian.Uint16(buf[4:]))
	p.ReturnParameters = buf[6:]
	return nil
}

func (p *CommandCompleteEventPacket) Marshal() ([]byte, error) {
	if len(p.ReturnParameters)+3 > math.MaxUint8 {
		return nil, io.ErrShortWrite
	}
	buf := make([]byte, 6+len(p.ReturnParameters))
	buf[0] = byte(PacketTypeEvent)
	buf[1] = byte(EventCodeCommandComplete)
	buf[2] = byte(len(p.ReturnParameters) + 3)
	buf[3] = p.NumCommandPackets
	binary.LittleEndian.PutUint16(buf[4:], uint16(p.CommandOpcode))
	copy(buf[6:], p.ReturnParameters)
	return buf, nil
}

type Role uint8

const (
	RoleCentral    Role = 0
	RolePeripheral Role = 1
)

type LEConnectionCompleteEventPacket struct {
	Status               uint8
	ConnectionHandle     uint16
	Role                 Role
	PeerAddressType      PeerAddressType
	PeerAddress          BDAddr
	ConnectionInterval   uint16
	PeripheralLatency    uint16
	SupervisionTimeout   uint16
	CentralClockAccuracy uint8
}

func (p *LEConnectionCompleteEventPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 22)
	buf[0] = byte(PacketTypeEvent)
	buf[1] = byte(EventCodeLEMeta)
	buf[2] = 19
	buf[3] = byte(LEMetaSubeventCodeConnectionComplete)
	buf[4] = p.Status
	binary.LittleEndian.PutUint16(buf[5:], p.ConnectionHandle)
	buf[7] = byte(p.Role)
	buf[8] = byte(p.PeerAddressType)
	copy(buf[9:15], p.PeerAddress[:])
	binary.LittleEndian.PutUint16(buf[15:], p.ConnectionInterval)
	binary.LittleEndian.PutUint16(buf[17:], p.PeripheralLatency)
	binary.LittleEndian.PutUint16(buf[19:], p.SupervisionTimeout)
	buf[21] = p.CentralClockAccuracy
	return buf, nil
}

func (p *LEConnectionCompleteEventPacket) Unmarshal(buf []byte) error {
	if len(buf) != 22 {
		return io.ErrShortBuffer
	}
	if buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeLEMeta) || buf[2] != 19 {
		return errIncorrectPacket
	}
	if buf[3] != byte(LEMetaSubeventCodeConnectionComplete) {
		return errors.New("incorrect subevent")
	}
	p.Status = buf[4]
	p.ConnectionHandle = binary.LittleEndian.Uint16(buf[5:7]) & 0x0FFF
	p.Role = Role(buf[7])
	p.PeerAddressType = PeerAddressType(buf[8])
	copy(p.PeerAddress[:], buf[9:15])
	p.ConnectionInterval = binary.LittleEndian.Uint16(buf[15:17])
	p.PeripheralLatency = binary.LittleEndian.Uint16(buf[17:19])
	p.SupervisionTimeout = binary.LittleEndian.Uint16(buf[19:21])
	p.CentralClockAccuracy = buf[21]
	return nil
}

// UnknownEventPacket holds events this package does not decode.
type UnknownEventPacket struct {
	EventCode  EventCode
	Parameters []byte
}

func (p *UnknownEventPacket) Marshal() ([]byte, error) {
	if len(p.Parameters) > math.MaxUint8 {
		return nil, io.ErrShortWrite
	}
	return append([]byte{byte(PacketTypeEvent), byte(p.EventCode), byte(len(p.Parameters))}, p.Parameters...), nil
}

func (p *UnknownEventPacket) Unmarshal(buf []byte) error {
	if len(buf) < 3 || buf[0] != byte(PacketTypeEvent) {
		return errIncorrectPacket
	}
	if len(buf) != int(buf[2])+3 {
		return io.ErrShortBuffer
	}
	p.EventCode = EventCode(buf[1])
	p.Parameters = buf[3:]
	return nil
}

// UnknownPacket passes through packets of a type this package does not
// decode, e.g. ACL data from a connected peer.
type UnknownPacket struct {
	Type    PacketType
	Payload []byte
}

func (p *UnknownPacket) Marshal() ([]byte, error) {
	return append([]byte{byte(p.Type)}, p.Payload...), nil
}

func (p *UnknownPacket) Unmarshal(buf []byte) error {
	if len(buf) == 0 {
		return io.ErrShortBuffer
	}
	p.Type = PacketType(buf[0])
	p.Payload = buf[1:]
	return nil
}
