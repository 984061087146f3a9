package hci

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/muxable/lapis/pkg/addr"
	"go.uber.org/zap"
)

// Transport carries HCI packets to and from a controller. *Socket is the
// usual implementation.
type Transport interface {
	ReadPacket() (Packet, error)
	WritePacket(Packet) error
}

// Adapter issues commands to a controller and waits for their completion.
type Adapter struct {
	Transport

	onPacketLock sync.Mutex
	onPacket     map[string]func(Packet, error)
	readErr      error
}

func NewAdapter(t Transport) *Adapter {
	a := &Adapter{
		Transport: t,
		onPacket:  make(map[string]func(Packet, error)),
	}
	go func() {
		for {
			p, err := a.ReadPacket()
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				zap.L().Warn("dropping undecodable packet", zap.Error(err))
				continue
			}
			if err != nil {
				a.onPacketLock.Lock()
				a.readErr = err
				for _, cb := range a.onPacket {
					go cb(nil, err)
				}
				a.onPacketLock.Unlock()
				return
			}
			a.onPacketLock.Lock()
			for _, cb := range a.onPacket {
				go cb(p, nil)
			}
			a.onPacketLock.Unlock()
		}
	}()
	return a
}

// subscribe registers cb for every packet read until the returned func is
// called. It fails if the read loop has already stopped.
func (a *Adapter) subscribe(cb func(Packet, error)) (func(), error) {
	id := uuid.NewString()
	a.onPacketLock.Lock()
	defer a.onPacketLock.Unlock()
	if a.readErr != nil {
		return nil, a.readErr
	}
	a.onPacket[id] = cb
	return func() {
		a.onPacketLock.Lock()
		delete(a.onPacket, id)
		a.onPacketLock.Unlock()
	}, nil
}

type opResult struct {
	buf []byte
	err error
}

func (a *Adapter) op(p CommandPacket) ([]byte, error) {
	done := make(chan opResult, 1)
	send := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}
	unsubscribe, err := a.subscribe(func(q Packet, err error) {
		if err != nil {
			send(opResult{err: err})
			return
		}
		if q, ok := q.(*CommandCompleteEventPacket); ok && q.CommandOpcode == p.Opcode() {
			send(opResult{buf: q.ReturnParameters})
		}
	})
	if err != nil {
		return nil, err
	}
	defer unsubscribe()
	if err := a.WritePacket(p); err != nil {
		return nil, err
	}
	r := <-done
	return r.buf, r.err
}

// exec runs p and returns the return parameters following the status octet.
func (a *Adapter) exec(p CommandPacket) ([]byte, error) {
	buf, err := a.op(p)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	if buf[0] != 0 {
		return nil, &CommandError{Opcode: p.Opcode(), Status: buf[0]}
	}
	return buf[1:], nil
}

func (a *Adapter) Reset() error {
	_, err := a.exec(NewGenericCommandPacket(OpcodeReset))
	return err
}

func (a *Adapter) ReadBDAddr() (BDAddr, error) {
	var bdaddr BDAddr
	buf, err := a.exec(NewGenericCommandPacket(OpcodeReadBDAddr))
	if err != nil {
		return bdaddr, err
	}
	if copy(bdaddr[:], buf) != len(bdaddr) {
		return bdaddr, io.ErrUnexpectedEOF
	}
	return bdaddr, nil
}

func (a *Adapter) LEReadLocalSupportedFeatures() (LEFeatures, error) {
	buf, err := a.exec(NewGenericCommandPacket(OpcodeLEReadLocalSupportedFeatures))
	if err != nil {
		return 0, err
	}
	if len(buf) < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	return LEFeatures(binary.LittleEndian.Uint64(buf)), nil
}

// LERand asks the controller for 64 random bits, Section 7.8.23.
func (a *Adapter) LERand() (uint64, error) {
	buf, err := a.exec(NewGenericCommandPacket(OpcodeLERand))
	if err != nil {
		return 0, err
	}
	if len(buf) < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// LESetRandomAddress programs the controller's random device address. The
// reserved address pattern is refused before anything is sent.
func (a *Adapter) LESetRandomAddress(random BDAddr) error {
	if k := random.Kind(); k == addr.KindUnknown {
		return fmt.Errorf("refusing random address %v: %v pattern", random, k)
	}
	if _, err := a.exec(&LESetRandomAddressCommandPacket{RandomAddress: random}); err != nil {
		return err
	}
	zap.L().Info("set random address", zap.Stringer("address", random), zap.Stringer("kind", random.Kind()))
	return nil
}

type Conn struct {
	*Adapter

	ConnectionHandle   uint16
	Role               Role
	PeerAddressType    PeerAddressType
	PeerAddress        BDAddr
	ConnectionInterval uint16
	PeripheralLatency  uint16
	SupervisionTimeout uint16
}

// PeerAddressKind classifies the peer's address. Public addresses have no
// kind and report false.
func (c *Conn) PeerAddressKind() (addr.Kind, bool) {
	if c.PeerAddressType != PeerAddressTypeRandomDeviceAddress {
		return 0, false
	}
	return c.PeerAddress.Kind(), true
}

// Accept waits for the next successful LE Connection Complete event.
func (a *Adapter) Accept() (*Conn, error) {
	connCh := make(chan *Conn, 1)
	errCh := make(chan error, 1)
	unsubscribe, err := a.subscribe(func(p Packet, err error) {
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		e, ok := p.(*LEConnectionCompleteEventPacket)
		if !ok {
			return
		}
		if e.Status != 0 {
			zap.L().Warn("connection failed", zap.Uint8("status", e.Status))
			return
		}
		c := &Conn{
			Adapter:            a,
			ConnectionHandle:   e.ConnectionHandle,
			Role:               e.Role,
			PeerAddressType:    e.PeerAddressType,
			PeerAddress:        e.PeerAddress,
			ConnectionInterval: e.ConnectionInterval,
			PeripheralLatency:  e.PeripheralLatency,
			SupervisionTimeout: e.SupervisionTimeout,
		}
		select {
		case connCh <- c:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer unsubscribe()
	select {
	case c := <-connCh:
		if kind, ok := c.PeerAddressKind(); ok {
			zap.L().Info("accepted connection",
				zap.Uint16("handle", c.ConnectionHandle),
				zap.Stringer("peer", c.PeerAddress),
				zap.Stringer("kind", kind))
		} else {
			zap.L().Info("accepted connection",
				zap.Uint16("handle", c.ConnectionHandle),
				zap.Stringer("peer", c.PeerAddress))
		}
		return c, nil
	case err := <-errCh:
		return nil, err
	}
}
