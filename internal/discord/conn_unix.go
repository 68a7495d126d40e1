// conn_unix.go discovers the Discord IPC socket on Unix-like systems,
// probing XDG_RUNTIME_DIR, /tmp, and the Snap and Flatpak sandbox paths.

//go:build !windows

package discord

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// connectToDiscord dials each candidate socket path and returns the first
// connection that succeeds. A dial on a missing path fails fast, so the list
// is tried in full without stat checks.
func connectToDiscord() (net.Conn, error) {
	for _, path := range candidateSockets() {
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn, nil
		}
	}
	return nil, ErrIPCNotAvailable
}

// candidateSockets lists socket paths for the stable, Canary, and PTB
// Discord builds across the common install methods.
func candidateSockets() []string {
	var paths []string
	variants := []string{"discord-ipc", "discordcanary-ipc", "discordptb-ipc"}

	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		for _, v := range variants {
			paths = appendSlots(paths, dir+"/"+v)
		}
	}
	for _, v := range variants {
		paths = appendSlots(paths, "/tmp/"+v)
	}

	uid := strconv.Itoa(os.Getuid())
	for _, sd := range []string{"snap.discord", "snap.discord-canary", "snap.discord-ptb"} {
		paths = appendSlots(paths, fmt.Sprintf("/run/user/%s/%s/discord-ipc", uid, sd))
	}
	for _, app := range []string{
		"com.discordapp.Discord",
		"com.discordapp.DiscordCanary",
		"com.discordapp.DiscordPTB",
	} {
		paths = appendSlots(paths, fmt.Sprintf("/run/user/%s/app/%s/discord-ipc", uid, app))
	}
	return paths
}

// appendSlots appends prefix-0 through prefix-9 to paths.
func appendSlots(paths []string, prefix string) []string {
	for i := 0; i < ipcSlots; i++ {
		paths = append(paths, fmt.Sprintf("%s-%d", prefix, i))
	}
	return paths
}
