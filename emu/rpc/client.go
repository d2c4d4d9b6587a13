package rpc

import (
	"fmt"
	"net/rpc"
	"time"

	"famitone/emu"
	"famitone/hw/hwdefs"
)

type Client struct {
	client *rpc.Client
}

// Dial connects to a server, retrying for a second if it's not yet up.
func Dial(addr string) (*Client, error) {
	var (
		client *rpc.Client
		err    error
	)
	const maxretries = 5
	for i := range maxretries {
		if client, err = rpc.DialHTTP("tcp", addr); err == nil {
			return &Client{client: client}, nil
		}
		modRPC.WarnZ("dial tcp failed").Error("err", err).Int("retry", i).End()
		time.Sleep(200 * time.Millisecond)
	}
	return nil, fmt.Errorf("dial failed max retries: %w", err)
}

func (c *Client) Close() error {
	modRPC.DebugZ("closing rpc client").End()
	return c.client.Close()
}

func (c *Client) Play(track, frame, row int) error {
	return call(c.client, "Play", PlayArgs{Track: track, Frame: frame, Row: row})
}

func (c *Client) Stop() error               { return call(c.client, "Stop", struct{}{}) }
func (c *Client) Seek(frame, row int) error { return call(c.client, "Seek", SeekArgs{Frame: frame, Row: row}) }

func (c *Client) Preview(ch hwdefs.ChannelID, note string) error {
	return call(c.client, "Preview", PreviewArgs{Channel: ch, Note: note})
}

func (c *Client) Status() (emu.Status, error) {
	return request[emu.Status](c.client, "Status", struct{}{})
}

func call(client *rpc.Client, funcname string, args any) error {
	_, err := request[struct{}](client, funcname, args)
	return err
}

func request[T any](client *rpc.Client, funcname string, args any) (T, error) {
	var reply T
	if err := client.Call(serviceName+"."+funcname, args, &reply); err != nil {
		return reply, fmt.Errorf("%s: %w", funcname, err)
	}
	return reply, nil
}
