package hci

import (
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

func ioR(t, nr, size uintptr) uintptr {
	return (2 << 30) | (t << 8) | nr | (size << 16)
}

func ioW(t, nr, size uintptr) uintptr {
	return (1 << 30) | (t << 8) | nr | (size << 16)
}

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

const (
	ioctlSize     = 4
	hciMaxDevices = 16
	typHCI        = 72 // 'H'
)

var (
	hciUpDevice      = ioW(typHCI, 201, ioctlSize) // HCIDEVUP
	hciDownDevice    = ioW(typHCI, 202, ioctlSize) // HCIDEVDOWN
	hciGetDeviceList = ioR(typHCI, 210, ioctlSize) // HCIGETDEVLIST
)

type devListRequest struct {
	devNum     uint16
	devRequest [hciMaxDevices]struct {
		id  uint16
		opt uint32
	}
}

// Socket is an HCI User Channel. It owns the controller exclusively until
// closed.
type Socket struct {
	fd     int
	closed chan struct{}
	rmu    sync.Mutex
	wmu    sync.Mutex
}

// NewSocket opens the HCI device with the given id. If id is -1, the first
// device that can be bound is used.
func NewSocket(id int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW, unix.BTPROTO_HCI)
	if err != nil {
		return nil, fmt.Errorf("open hci socket: %w", err)
	}

	if id != -1 {
		s, err := open(fd, id)
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("hci%d: %w", id, err)
		}
		return s, nil
	}

	req := devListRequest{devNum: hciMaxDevices}
	if err := ioctl(uintptr(fd), hciGetDeviceList, uintptr(unsafe.Pointer(&req))); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("list hci devices: %w", err)
	}
	var msg string
	for i := 0; i < int(req.devNum); i++ {
		dev := int(req.devRequest[i].id)
		s, err := open(fd, dev)
		if err == nil {
			return s, nil
		}
		msg += fmt.Sprintf("(hci%d: %s)", dev, err)
	}
	unix.Close(fd)
	return nil, fmt.Errorf("no devices available: %s", msg)
}

func open(fd, id int) (*Socket, error) {
	// Cycle the device in case a previous session didn't clean up.
	if err := ioctl(uintptr(fd), hciDownDevice, uintptr(id)); err != nil {
		return nil, err
	}
	if err := ioctl(uintptr(fd), hciUpDevice, uintptr(id)); err != nil {
		return nil, err
	}

	// The device has to be down at the time of binding.
	if err := ioctl(uintptr(fd), hciDownDevice, uintptr(id)); err != nil {
		return nil, err
	}

	sa := unix.SockaddrHCI{Dev: uint16(id), Channel: unix.HCI_CHANNEL_USER}
	if err := unix.Bind(fd, &sa); err != nil {
		return nil, err
	}

	// drain anything left over from before the bind.
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	if n, _ := unix.Poll(pfds, 20); n > 0 && pfds[0].Revents&unix.POLLIN > 0 {
		b := make([]byte, 100)
		unix.Read(fd, b)
	}

	zap.L().Info("opened hci device", zap.Int("device", id))
	return &Socket{fd: fd, closed: make(chan struct{})}, nil
}

func (s *Socket) Read(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, io.EOF
	default:
	}
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return unix.Read(s.fd, p)
}

func (s *Socket) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return unix.Write(s.fd, p)
}

func (s *Socket) ReadPacket() (Packet, error) {
	buf := make([]byte, math.MaxUint16)
	n, err := s.Read(buf)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("hci read", zap.String("packet", hex.EncodeToString(buf[:n])))
	return Unmarshal(buf[:n])
}

func (s *Socket) WritePacket(p Packet) error {
	buf, err := p.Marshal()
	if err != nil {
		return err
	}
	zap.L().Debug("hci write", zap.String("packet", hex.EncodeToString(buf)))
	_, err = s.Write(buf)
	return err
}

// Close resets the controller and releases the device.
func (s *Socket) Close() error {
	close(s.closed)
	if err := s.WritePacket(NewGenericCommandPacket(OpcodeReset)); err != nil {
		zap.L().Warn("reset on close failed", zap.Error(err))
	}
	return unix.Close(s.fd)
}
