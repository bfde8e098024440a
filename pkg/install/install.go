// Package install implements the file installer: the
// INSTALL_FILE/WRITE_FILE_DATA/COMPLETE_INSTALL upload handshake.
package install

import (
	"time"

	"github.com/FlintVN/FlintDebug/pkg/transport"
	"github.com/FlintVN/FlintDebug/pkg/wire"
)

// chunkSize is the maximum WRITE_FILE_DATA payload.
const chunkSize = 512

// timeout applies to every step of the handshake.
const timeout = 2 * time.Second

// Installer issues the chunked-upload handshake over a transport gate.
type Installer struct {
	gate *transport.Gate
}

// New wraps gate.
func New(gate *transport.Gate) *Installer {
	return &Installer{gate: gate}
}

// Install uploads data as fileName, invoking progress(offset, total) after
// every acknowledged chunk and once more with (total, total) on success.
// Any failed step aborts the upload and returns false.
func (i *Installer) Install(fileName string, data []byte, progress func(offset, total int)) bool {
	total := len(data)

	resp, ok := i.gate.SendCmd(wire.CmdInstallFile, wire.PutString(fileName), timeout)
	if !ok || resp.ResponseCode != wire.OK {
		return false
	}

	offset := 0
	for offset < total {
		end := offset + chunkSize
		if end > total {
			end = total
		}
		resp, ok := i.gate.SendCmd(wire.CmdWriteFileData, data[offset:end], timeout)
		if !ok || resp.ResponseCode != wire.OK {
			return false
		}
		offset = end
		if progress != nil {
			progress(offset, total)
		}
	}

	resp, ok = i.gate.SendCmd(wire.CmdCompleteInstall, nil, timeout)
	if !ok || resp.ResponseCode != wire.OK {
		return false
	}

	if progress != nil {
		progress(total, total)
	}
	return true
}
