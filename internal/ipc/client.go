package ipc

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const dialTimeout = 2 * time.Second

// Client wraps the JSON-RPC connection to a running daemon.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the daemon socket at the given path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial daemon socket: %w", err)
	}
	return &Client{rpc: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.rpc.Call("Marquee.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Play(name string) (*PlayResponse, error) {
	var resp PlayResponse
	if err := c.rpc.Call("Marquee.Play", PlayRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Off() (*OffResponse, error) {
	var resp OffResponse
	if err := c.rpc.Call("Marquee.Off", OffRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Resume() (*ResumeResponse, error) {
	var resp ResumeResponse
	if err := c.rpc.Call("Marquee.Resume", ResumeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Message(req MessageRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.rpc.Call("Marquee.Message", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Preset(name, text string) (*PresetResponse, error) {
	var resp PresetResponse
	if err := c.rpc.Call("Marquee.Preset", PresetRequest{Name: name, Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Animations() (*AnimationsResponse, error) {
	var resp AnimationsResponse
	if err := c.rpc.Call("Marquee.Animations", AnimationsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Presets() (*PresetsResponse, error) {
	var resp PresetsResponse
	if err := c.rpc.Call("Marquee.Presets", PresetsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.rpc.Call("Marquee.History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.rpc.Call("Marquee.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.rpc.Call("Marquee.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.rpc.Call("Marquee.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
