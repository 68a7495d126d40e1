// conn_windows.go discovers the Discord IPC endpoint on Windows, where it is
// a named pipe (\\.\pipe\discord-ipc-N) dialed via go-winio.

//go:build windows

package discord

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// connectToDiscord dials each named pipe slot and returns the first
// connection that succeeds.
func connectToDiscord() (net.Conn, error) {
	for i := 0; i < ipcSlots; i++ {
		conn, err := winio.DialPipe(fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i), nil)
		if err == nil {
			return conn, nil
		}
	}
	return nil, ErrIPCNotAvailable
}
