package link

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"trackcar/protocol"
)

// maxDictionary bounds the identify transfer
const maxDictionary = 16 << 10

type identifyChunk struct {
	offset uint32
	data   []byte
}

// Dictionary is the car's self description
type Dictionary struct {
	Version   string            `json:"version"`
	Config    map[string]string `json:"config"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`
	Routes    []string          `json:"routes"`
}

// RouteIndex looks a route up by name
func (d *Dictionary) RouteIndex(name string) (int, bool) {
	for i, r := range d.Routes {
		if r == name {
			return i, true
		}
	}
	return -1, false
}

// Identify downloads the dictionary chunk by chunk and decodes it
func (c *Client) Identify(ctx context.Context) (*Dictionary, error) {
	select {
	case <-c.identify:
	default:
	}

	var stream []byte
	for {
		offset := uint32(len(stream))
		args := protocol.AppendVLQUint(nil, offset)
		args = append(args, protocol.IdentifyChunk)
		if err := c.send(protocol.CmdIdentify, args); err != nil {
			return nil, err
		}
		chunk, err := c.waitChunk(ctx, offset)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		stream = append(stream, chunk...)
		if len(stream) > maxDictionary {
			return nil, fmt.Errorf("link: identify: dictionary larger than %d bytes", maxDictionary)
		}
	}
	return decodeDictionary(stream)
}

func (c *Client) waitChunk(ctx context.Context, offset uint32) ([]byte, error) {
	for {
		select {
		case ch := <-c.identify:
			if ch.offset == offset {
				return ch.data, nil
			}
		case <-c.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, fmt.Errorf("link: identify at %d: %w", offset, ctx.Err())
		}
	}
}

func decodeDictionary(stream []byte) (*Dictionary, error) {
	r, err := zlib.NewReader(bytes.NewReader(stream))
	if err != nil {
		return nil, fmt.Errorf("link: identify: %w", err)
	}
	defer r.Close()
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("link: identify: %w", err)
	}
	var d Dictionary
	if err := json.Unmarshal(plain, &d); err != nil {
		return nil, fmt.Errorf("link: identify: %w", err)
	}
	return &d, nil
}
