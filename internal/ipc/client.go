package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Req, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// SetEnabled turns video on or off.
func (c *Client) SetEnabled(enabled bool) (*ActionResponse, error) {
	return call[SetEnabledRequest, ActionResponse](c, "SetEnabled", SetEnabledRequest{Enabled: enabled})
}

// Preview sends a preview action.
func (c *Client) Preview(action string) (*ActionResponse, error) {
	return call[PreviewRequest, ActionResponse](c, "Preview", PreviewRequest{Action: action})
}

// Record sends a recording action.
func (c *Client) Record(action string) (*ActionResponse, error) {
	return call[RecordRequest, ActionResponse](c, "Record", RecordRequest{Action: action})
}

// Photo takes a snapshot for the selected target.
func (c *Client) Photo() (*ActionResponse, error) {
	return call[PhotoRequest, ActionResponse](c, "Photo", PhotoRequest{})
}

// Settings presents the capture settings.
func (c *Client) Settings() (*SettingsResponse, error) {
	return call[SettingsRequest, SettingsResponse](c, "Settings", SettingsRequest{})
}

// Select makes id the active target; an empty id deselects.
func (c *Client) Select(id string) (*SelectResponse, error) {
	return call[SelectRequest, SelectResponse](c, "Select", SelectRequest{ID: id})
}

// MediaList returns cataloged media.
func (c *Client) MediaList(req MediaListRequest) (*MediaListResponse, error) {
	return call[MediaListRequest, MediaListResponse](c, "MediaList", req)
}

// Devices lists capture devices.
func (c *Client) Devices() (*DevicesResponse, error) {
	return call[DevicesRequest, DevicesResponse](c, "Devices", DevicesRequest{})
}
