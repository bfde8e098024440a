package install

import (
	"reflect"
	"testing"

	"github.com/FlintVN/FlintDebug/pkg/frame"
	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

type fakeTransport struct {
	onData func([]byte)
	cmds   []wire.Command
}

func (f *fakeTransport) Connect() error    { return nil }
func (f *fakeTransport) Disconnect() error { return nil }
func (f *fakeTransport) IsConnected() bool { return true }

func (f *fakeTransport) Write(data []byte) bool {
	cmd := wire.MaskCommand(data[0])
	f.cmds = append(f.cmds, cmd)
	f.onData(frame.Encode(cmd, []byte{byte(wire.OK)}))
	return true
}

func (f *fakeTransport) OnData(cb func([]byte)) { f.onData = cb }
func (f *fakeTransport) OnError(func(error))    {}
func (f *fakeTransport) OnClose(func())         {}

var _ transport.Transport = (*fakeTransport)(nil)

func TestInstall_ChunksLargeFile(t *testing.T) {
	ft := &fakeTransport{}
	gate := transport.NewGate(ft)
	installer := New(gate)

	data := make([]byte, 1025)
	var progressCalls [][2]int
	ok := installer.Install("a.class", data, func(offset, total int) {
		progressCalls = append(progressCalls, [2]int{offset, total})
	})
	if !ok {
		t.Fatalf("Install failed")
	}

	wantCmds := []wire.Command{
		wire.CmdInstallFile,
		wire.CmdWriteFileData, wire.CmdWriteFileData, wire.CmdWriteFileData,
		wire.CmdCompleteInstall,
	}
	if !reflect.DeepEqual(ft.cmds, wantCmds) {
		t.Fatalf("cmds = %v, want %v", ft.cmds, wantCmds)
	}

	wantProgress := [][2]int{{512, 1025}, {1024, 1025}, {1025, 1025}, {1025, 1025}}
	if !reflect.DeepEqual(progressCalls, wantProgress) {
		t.Fatalf("progress = %v, want %v", progressCalls, wantProgress)
	}
}

func TestInstall_AbortsOnFailedChunk(t *testing.T) {
	// The second WRITE_FILE_DATA comes back with a non-OK response code;
	// Install must abort rather than issue COMPLETE_INSTALL.
	writes := 0
	ft := &failingTransport{onWrite: func(cmd wire.Command) wire.ResponseCode {
		if cmd == wire.CmdWriteFileData {
			writes++
			if writes == 2 {
				return 0x01
			}
		}
		return wire.OK
	}}
	gate := transport.NewGate(ft)
	installer := New(gate)

	ok := installer.Install("a.class", make([]byte, 600), nil)
	if ok {
		t.Fatalf("Install should fail when a chunk is rejected")
	}

	for _, cmd := range ft.cmds {
		if cmd == wire.CmdCompleteInstall {
			t.Fatalf("COMPLETE_INSTALL must not be issued after a failed chunk")
		}
	}
}

type failingTransport struct {
	onData  func([]byte)
	cmds    []wire.Command
	onWrite func(wire.Command) wire.ResponseCode
}

func (f *failingTransport) Connect() error    { return nil }
func (f *failingTransport) Disconnect() error { return nil }
func (f *failingTransport) IsConnected() bool { return true }

func (f *failingTransport) Write(data []byte) bool {
	cmd := wire.MaskCommand(data[0])
	f.cmds = append(f.cmds, cmd)
	code := wire.OK
	if f.onWrite != nil {
		code = f.onWrite(cmd)
	}
	f.onData(frame.Encode(cmd, []byte{byte(code)}))
	return true
}

func (f *failingTransport) OnData(cb func([]byte)) { f.onData = cb }
func (f *failingTransport) OnError(func(error))    {}
func (f *failingTransport) OnClose(func())         {}

var _ transport.Transport = (*failingTransport)(nil)
