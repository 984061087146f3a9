package hci

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/muxable/lapis/pkg/addr"
	"github.com/muxable/lapis/pkg/ll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController answers commands with canned Command Complete events.
type fakeController struct {
	mu      sync.Mutex
	replies map[Opcode][][]byte
	written [][]byte
	events  chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeController() *fakeController {
	return &fakeController{
		replies: make(map[Opcode][][]byte),
		events:  make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

// reply queues return parameters for the next command with opcode op.
func (f *fakeController) reply(op Opcode, params ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[op] = append(f.replies[op], params)
}

func (f *fakeController) send(p Packet) {
	buf, err := p.Marshal()
	if err != nil {
		panic(err)
	}
	f.events <- buf
}

// sendRaw queues bytes exactly as the controller would deliver them.
func (f *fakeController) sendRaw(buf ...byte) {
	f.events <- buf
}

func (f *fakeController) close() {
	f.once.Do(func() { close(f.closed) })
}

func (f *fakeController) commands(op Opcode) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]byte
	for _, buf := range f.written {
		if Opcode(binary.LittleEndian.Uint16(buf[1:])) == op {
			out = append(out, buf)
		}
	}
	return out
}

func (f *fakeController) ReadPacket() (Packet, error) {
	select {
	case buf := <-f.events:
		return Unmarshal(buf)
	case <-f.closed:
		return nil, io.EOF
	}
}

func (f *fakeController) WritePacket(p Packet) error {
	buf, err := p.Marshal()
	if err != nil {
		return err
	}
	if buf[0] != byte(PacketTypeCommand) {
		return errors.New("not a command")
	}
	op := Opcode(binary.LittleEndian.Uint16(buf[1:]))
	f.mu.Lock()
	f.written = append(f.written, buf)
	params, ok := f.replies[op]
	if ok && len(params) > 0 {
		f.replies[op] = params[1:]
	}
	f.mu.Unlock()
	if ok && len(params) > 0 {
		f.send(&CommandCompleteEventPacket{NumCommandPackets: 1, CommandOpcode: op, ReturnParameters: params[0]})
	}
	return nil
}

func TestReset(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	f.reply(OpcodeReset, 0x00)
	require.NoError(t, a.Reset())
	assert.Len(t, f.commands(OpcodeReset), 1)
}

func TestCommandError(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	f.reply(OpcodeReset, 0x0C)
	err := a.Reset()
	require.ErrorIs(t, err, ErrCommandFailed)
	var cerr *CommandError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, OpcodeReset, cerr.Opcode)
	assert.Equal(t, uint8(0x0C), cerr.Status)
}

func TestReadBDAddr(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	f.reply(OpcodeReadBDAddr, 0x00, 0x55, 0x44, 0x33, 0x22, 0x11, 0xC3)
	bdaddr, err := a.ReadBDAddr()
	require.NoError(t, err)
	assert.Equal(t, "C3:11:22:33:44:55", bdaddr.String())
	assert.Equal(t, addr.KindStatic, bdaddr.Kind())

	f.reply(OpcodeReadBDAddr, 0x00, 0x55)
	_, err = a.ReadBDAddr()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestLEReadLocalSupportedFeatures(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	f.reply(OpcodeLEReadLocalSupportedFeatures, 0x00, 0x01, 0x09, 0, 0, 0, 0, 0, 0)
	features, err := a.LEReadLocalSupportedFeatures()
	require.NoError(t, err)
	assert.True(t, features.CodedPHY())
	assert.Equal(t, LEFeatureEncryption|LEFeature2MPHY|LEFeatureCodedPHY, features)

	f.reply(OpcodeLEReadLocalSupportedFeatures, 0x00, 0x01, 0x01, 0, 0, 0, 0, 0, 0)
	features, err = a.LEReadLocalSupportedFeatures()
	require.NoError(t, err)
	assert.False(t, features.CodedPHY())
}

func TestRandSourceGenerate(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	// 0x71764129 then 0x50654C73, then 0x00000000 twice.
	f.reply(OpcodeLERand, 0x00, 0x29, 0x41, 0x76, 0x71, 0x73, 0x4C, 0x65, 0x50)
	f.reply(OpcodeLERand, 0x00, 0, 0, 0, 0, 0, 0, 0, 0)
	src := NewRandSource(a)

	table := ll.NewAddressTable()
	aa, _, err := table.Allocate(src, true, 4)
	require.NoError(t, err)
	assert.Equal(t, ll.AccessAddress(0x71764129), aa)

	aa, _, err = table.Allocate(src, true, 4)
	require.NoError(t, err)
	assert.Equal(t, ll.AccessAddress(0x50654C73), aa)
	assert.Len(t, f.commands(OpcodeLERand), 1)

	_, _, err = table.Allocate(src, true, 2)
	require.ErrorIs(t, err, ll.ErrExhausted)
	assert.Len(t, f.commands(OpcodeLERand), 2)
}

func TestRandSourceError(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	f.reply(OpcodeLERand, 0x01)
	_, err := ll.Generate(NewRandSource(a), nil, true, 10)
	require.ErrorIs(t, err, ErrCommandFailed)
	assert.False(t, errors.Is(err, ll.ErrExhausted))
}

func TestLESetRandomAddress(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	reserved := BDAddr{0x01, 0x02, 0x03, 0x04, 0x05, 0x41}
	require.Error(t, a.LESetRandomAddress(reserved))
	assert.Empty(t, f.commands(OpcodeLESetRandomAddress))

	static := BDAddr{0x01, 0x02, 0x03, 0x04, 0x05, 0xC3}
	f.reply(OpcodeLESetRandomAddress, 0x00)
	require.NoError(t, a.LESetRandomAddress(static))
	written := f.commands(OpcodeLESetRandomAddress)
	require.Len(t, written, 1)
	assert.Equal(t, []byte{0x01, 0x05, 0x20, 0x06, 0x01, 0x02, 0x03, 0x04, 0x05, 0xC3}, written[0])
}

func TestEventMasks(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	f.reply(OpcodeSetEventMask, 0x00)
	f.reply(OpcodeLESetEventMask, 0x00)
	require.NoError(t, a.SetEventMask(EventMaskLEMetaEvent|EventMaskDisconnectionCompleteEvent))
	require.NoError(t, a.LESetEventMask(LEEventMaskConnectionCompleteEvent))

	written := f.commands(OpcodeLESetEventMask)
	require.Len(t, written, 1)
	p := &maskCommandPacket{opcode: OpcodeLESetEventMask}
	require.NoError(t, p.Unmarshal(written[0]))
	assert.Equal(t, uint64(LEEventMaskConnectionCompleteEvent), p.mask)
}

func TestAdvertising(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	f.reply(OpcodeLESetAdvertisingParameters, 0x00)
	f.reply(OpcodeLESetAdvertisingData, 0x00)
	f.reply(OpcodeLESetAdvertisingEnable, 0x00)

	require.NoError(t, a.LESetAdvertisingParameters(&LESetAdvertisingParametersCommandPacket{
		OwnAddressType: OwnAddressTypeRandomDeviceAddress,
	}))
	require.NoError(t, a.LESetAdvertisingData(Flags(), CompleteLocalName("lapis")))
	require.NoError(t, a.LESetAdvertisingEnable(true))

	written := f.commands(OpcodeLESetAdvertisingParameters)
	require.Len(t, written, 1)
	var params LESetAdvertisingParametersCommandPacket
	require.NoError(t, params.Unmarshal(written[0]))
	assert.Equal(t, uint16(0x0800), params.AdvertisingIntervalMin)
	assert.Equal(t, OwnAddressTypeRandomDeviceAddress, params.OwnAddressType)
	assert.Equal(t, AdvertisingChannelMapDefault, params.AdvertisingChannelMap)

	written = f.commands(OpcodeLESetAdvertisingData)
	require.Len(t, written, 1)
	var data LESetAdvertisingDataCommandPacket
	require.NoError(t, data.Unmarshal(written[0]))
	assert.Equal(t, []byte{0x02, 0x01, 0x06, 0x06, 0x09, 'l', 'a', 'p', 'i', 's'}, data.Data)

	assert.Error(t, a.LESetAdvertisingParameters(&LESetAdvertisingParametersCommandPacket{AdvertisingIntervalMin: 0x10}))
	assert.Error(t, a.LESetAdvertisingData(make([]byte, 32)))
}

func waitSubscribed(t *testing.T, a *Adapter) {
	require.Eventually(t, func() bool {
		a.onPacketLock.Lock()
		defer a.onPacketLock.Unlock()
		return len(a.onPacket) > 0
	}, time.Second, time.Millisecond)
}

func TestAccept(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	type result struct {
		c   *Conn
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := a.Accept()
		done <- result{c, err}
	}()
	waitSubscribed(t, a)

	f.send(&LEConnectionCompleteEventPacket{Status: 0x3E})
	f.send(&LEConnectionCompleteEventPacket{
		ConnectionHandle: 0x0040,
		Role:             RolePeripheral,
		PeerAddressType:  PeerAddressTypeRandomDeviceAddress,
		PeerAddress:      BDAddr{0x01, 0x02, 0x03, 0x04, 0x05, 0x42},
	})

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, uint16(0x0040), r.c.ConnectionHandle)
	kind, ok := r.c.PeerAddressKind()
	assert.True(t, ok)
	assert.Equal(t, addr.KindPrivateResolvable, kind)

	r.c.PeerAddressType = PeerAddressTypePublicDeviceAddress
	_, ok = r.c.PeerAddressKind()
	assert.False(t, ok)
}

func TestReadLoopError(t *testing.T) {
	f := newFakeController()
	a := NewAdapter(f)

	done := make(chan error, 1)
	go func() {
		done <- a.Reset()
	}()
	waitSubscribed(t, a)
	f.close()
	assert.ErrorIs(t, <-done, io.EOF)

	assert.ErrorIs(t, a.Reset(), io.EOF)
}

func TestReadLoopSurvivesUndecodedPackets(t *testing.T) {
	f := newFakeController()
	defer f.close()
	a := NewAdapter(f)

	// ACL data from a peer, then a truncated LE Connection Complete.
	f.sendRaw(0x02, 0x40, 0x00, 0x01, 0x00, 0xAA)
	f.sendRaw(0x04, 0x3E, 0x02, 0x01, 0x00)

	f.reply(OpcodeReset, 0x00)
	require.NoError(t, a.Reset())

	f.sendRaw(0x02, 0x40, 0x00, 0x01, 0x00, 0xBB)
	f.reply(OpcodeReset, 0x00)
	require.NoError(t, a.Reset())
}
