// Package discord implements a minimal Rich Presence client over Discord's
// local IPC socket: handshake plus SET_ACTIVITY. Socket discovery lives in
// conn_unix.go and conn_windows.go.
package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
)

// ErrNotConnected is returned when a command is sent without a connection.
var ErrNotConnected = errors.New("not connected")

// ///////////////////////////////////////////////
// Activity
// ///////////////////////////////////////////////

// Timestamps holds the activity start time as a Unix timestamp. Discord
// renders it as an elapsed-time counter.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
}

// Assets names the uploaded image assets shown with the activity.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Activity is the Rich Presence payload sent with SET_ACTIVITY.
type Activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Client is a Discord IPC connection bound to one application ID.
type Client struct {
	appID string

	// mu protects conn and nonce.
	mu    sync.Mutex
	conn  net.Conn
	nonce uint64
}

// NewClient creates a client for the given Discord application ID. No
// connection is made until Connect.
func NewClient(appID string) *Client {
	return &Client{appID: appID}
}

// Connect dials the IPC socket and performs the handshake, replacing any
// previous connection.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := connectToDiscord()
	if err != nil {
		return err
	}
	c.conn = conn

	if err := c.handshake(); err != nil {
		c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// SetActivity publishes the activity.
func (c *Client) SetActivity(activity *Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendActivity(activity)
}

// ClearActivity removes the published activity.
func (c *Client) ClearActivity() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendActivity(nil)
}

// Close clears the activity best-effort and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	_ = c.sendActivity(nil)

	err := c.conn.Close()
	c.conn = nil
	return err
}

// Connected reports whether the client holds a connection. A dead socket is
// only discovered by the next write failing.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// sendActivity sends SET_ACTIVITY; a nil activity clears presence. The caller
// must hold c.mu.
func (c *Client) sendActivity(activity *Activity) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	c.nonce++
	payload, err := json.Marshal(map[string]any{
		"cmd": "SET_ACTIVITY",
		"args": map[string]any{
			"pid":      os.Getpid(),
			"activity": activity,
		},
		"nonce": strconv.FormatUint(c.nonce, 10),
	})
	if err != nil {
		return fmt.Errorf("marshaling command: %w", err)
	}
	return writeFrame(c.conn, OpFrame, payload)
}

// handshake sends the version/app-id frame and validates the response.
// The caller must hold c.mu.
func (c *Client) handshake() error {
	payload, err := json.Marshal(map[string]any{
		"v":         1,
		"client_id": c.appID,
	})
	if err != nil {
		return fmt.Errorf("marshaling handshake: %w", err)
	}
	if err := writeFrame(c.conn, OpHandshake, payload); err != nil {
		return fmt.Errorf("writing handshake: %w", err)
	}

	op, respData, err := readFrame(c.conn)
	if err != nil {
		return fmt.Errorf("reading handshake response: %w", err)
	}
	if op != OpFrame {
		return fmt.Errorf("unexpected handshake response opcode: %d", op)
	}

	var resp map[string]any
	if err := json.Unmarshal(respData, &resp); err != nil {
		return fmt.Errorf("parsing handshake response: %w", err)
	}
	if evt, _ := resp["evt"].(string); evt == "ERROR" {
		var msg string
		if data, ok := resp["data"].(map[string]any); ok {
			msg, _ = data["message"].(string)
		}
		return fmt.Errorf("handshake rejected: %s", msg)
	}
	return nil
}
