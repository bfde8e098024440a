// Package serialtransport implements transport.Transport over a UART/USB
// serial connection to a target board's debug agent: a
// clear-attributes-before-open dance (tarm/serial has no direct termios
// access, so a throwaway open/close cycle is used to reset line
// discipline) followed by a blocking read loop running on its own
// goroutine.
package serialtransport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// SerialTransport connects to a debug agent reachable over a serial port.
type SerialTransport struct {
	devicePath string
	baudRate   int

	port    *serial.Port
	onData  func([]byte)
	onError func(error)
	onClose func()

	mu        sync.Mutex
	connected bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New creates a SerialTransport for the given device path and baud rate.
func New(devicePath string, baudRate int) *SerialTransport {
	return &SerialTransport{devicePath: devicePath, baudRate: baudRate}
}

func (s *SerialTransport) OnData(f func([]byte)) { s.onData = f }
func (s *SerialTransport) OnError(f func(error)) { s.onError = f }
func (s *SerialTransport) OnClose(f func())      { s.onClose = f }

// clearUARTAttributes resets line discipline by opening the port at a
// throwaway baud rate and closing it again before the real connection is
// established.
func clearUARTAttributes(devicePath string) error {
	cfg := &serial.Config{
		Name:        devicePath,
		Baud:        9600,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 0,
	}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return fmt.Errorf("serialtransport: clear attributes: open %s: %w", devicePath, err)
	}
	if err := port.Close(); err != nil {
		return fmt.Errorf("serialtransport: clear attributes: close %s: %w", devicePath, err)
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

func (s *SerialTransport) Connect() error {
	if err := clearUARTAttributes(s.devicePath); err != nil {
		return err
	}

	cfg := &serial.Config{
		Name:        s.devicePath,
		Baud:        s.baudRate,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 0,
	}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return fmt.Errorf("serialtransport: open %s: %w", s.devicePath, err)
	}
	s.port = port

	s.mu.Lock()
	s.connected = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.readLoop()
	return nil
}

func (s *SerialTransport) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *SerialTransport) Write(data []byte) bool {
	if !s.IsConnected() {
		return false
	}
	_, err := s.port.Write(data)
	return err == nil
}

func (s *SerialTransport) Disconnect() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	close(s.stopCh)
	s.mu.Unlock()

	err := s.port.Close()
	s.wg.Wait()
	return err
}

// readLoop reads the serial port continuously, one small chunk at a time.
func (s *SerialTransport) readLoop() {
	defer s.wg.Done()
	buf := make([]byte, 64)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		n, err := s.port.Read(buf)
		if n > 0 && s.onData != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.onData(chunk)
		}
		if err != nil {
			if err == io.EOF {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			s.mu.Lock()
			wasConnected := s.connected
			s.mu.Unlock()
			if !wasConnected {
				if s.onClose != nil {
					s.onClose()
				}
				return
			}
			if s.onError != nil {
				s.onError(fmt.Errorf("serialtransport: read: %w", err))
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}
