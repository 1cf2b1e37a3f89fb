package core

import (
	"bytes"
	"encoding/json"
	"testing"

	"trackcar/protocol"
	"trackcar/tinycompress"
)

type dictionaryDoc struct {
	Version   string            `json:"version"`
	Config    map[string]string `json:"config"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`
	Routes    []string          `json:"routes"`
}

func TestDictionaryJSON(t *testing.T) {
	d := NewDictionary("v1")
	d.AddConstant("wheels", "4")
	d.AddConstant("note", `say "hi"`)
	d.AddConstant("wheels", "2")

	cmds := []Command{
		{ID: 1, Name: "start", Format: "route=%u", Handler: func(*[]byte) error { return nil }},
		{ID: 16, Name: "pong"},
	}
	routes := []Route{{Name: "probe"}, {Name: "lap"}}

	var doc dictionaryDoc
	if err := json.Unmarshal(d.JSON(cmds, routes), &doc); err != nil {
		t.Fatalf("dictionary is not valid JSON: %v", err)
	}
	if doc.Version != "v1" {
		t.Errorf("Expected version v1, got %q", doc.Version)
	}
	if doc.Config["wheels"] != "2" || doc.Config["note"] != `say "hi"` {
		t.Errorf("Expected replaced and escaped constants, got %v", doc.Config)
	}
	if len(doc.Config) != 2 {
		t.Errorf("Expected 2 constants, got %d", len(doc.Config))
	}
	if doc.Commands["start route=%u"] != 1 || len(doc.Commands) != 1 {
		t.Errorf("Expected start command with id 1, got %v", doc.Commands)
	}
	if doc.Responses["pong"] != 16 || len(doc.Responses) != 1 {
		t.Errorf("Expected pong response with id 16, got %v", doc.Responses)
	}
	if len(doc.Routes) != 2 || doc.Routes[1] != "lap" {
		t.Errorf("Expected routes [probe lap], got %v", doc.Routes)
	}
}

func TestDictionaryCache(t *testing.T) {
	d := NewDictionary("v1")
	if d.Cached() != nil {
		t.Error("Expected no cache before Build")
	}
	data := d.Build(nil, nil)
	if !bytes.Equal(d.Cached(), data) {
		t.Error("Expected Build result to be cached")
	}
	plain, err := tinycompress.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.HasPrefix(plain, []byte(`{"version":"v1"`)) {
		t.Errorf("Unexpected dictionary %q", plain)
	}
	d.AddConstant("x", "1")
	if d.Cached() != nil {
		t.Error("Expected AddConstant to drop the cache")
	}
}

func TestChunk(t *testing.T) {
	data := []byte("0123456789")
	tests := []struct {
		offset uint32
		count  uint8
		want   string
	}{
		{0, 4, "0123"},
		{8, 4, "89"},
		{10, 4, ""},
		{50, 4, ""},
	}
	for _, tt := range tests {
		if got := Chunk(data, tt.offset, tt.count); string(got) != tt.want {
			t.Errorf("Chunk(%d, %d): expected %q, got %q", tt.offset, tt.count, tt.want, got)
		}
	}
}

func TestRobotIdentify(t *testing.T) {
	rr := newTestRobot(t)
	var replies [][]byte
	rr.robot.SetReplier(func(p []byte) error {
		replies = append(replies, append([]byte(nil), p...))
		return nil
	})

	var stream []byte
	for offset := uint32(0); ; {
		req := protocol.AppendVLQUint(nil, protocol.CmdIdentify)
		req = protocol.AppendVLQUint(req, offset)
		req = append(req, 200) // clamped to IdentifyChunk
		if err := rr.robot.HandlePacket(req); err != nil {
			t.Fatalf("identify failed: %v", err)
		}
		resp := replies[len(replies)-1]
		if len(resp) > protocol.PayloadMax {
			t.Fatalf("Expected reply to fit a packet, got %d bytes", len(resp))
		}
		id, _ := protocol.DecodeVLQUint(&resp)
		at, _ := protocol.DecodeVLQUint(&resp)
		chunk, err := protocol.DecodeVLQBytes(&resp)
		if err != nil {
			t.Fatalf("bad identify response: %v", err)
		}
		if id != protocol.RespIdentify || at != offset {
			t.Fatalf("Expected identify_response at %d, got id %d at %d", offset, id, at)
		}
		if len(chunk) > protocol.IdentifyChunk {
			t.Fatalf("Expected at most %d bytes, got %d", protocol.IdentifyChunk, len(chunk))
		}
		if len(chunk) == 0 {
			break
		}
		stream = append(stream, chunk...)
		offset += uint32(len(chunk))
	}

	plain, err := tinycompress.Decode(stream)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	var doc dictionaryDoc
	if err := json.Unmarshal(plain, &doc); err != nil {
		t.Fatalf("dictionary is not valid JSON: %v", err)
	}
	if doc.Version != FirmwareVersion {
		t.Errorf("Expected version %s, got %q", FirmwareVersion, doc.Version)
	}
	if doc.Config["wheels"] != "4" || doc.Config["heading"] != "0" {
		t.Errorf("Unexpected config %v", doc.Config)
	}
	if doc.Commands["identify offset=%u count=%c"] != protocol.CmdIdentify {
		t.Errorf("Expected identify in commands, got %v", doc.Commands)
	}
	if doc.Responses["shutdown reason=%*s"] != protocol.RespShutdown {
		t.Errorf("Expected shutdown in responses, got %v", doc.Responses)
	}
	if len(doc.Routes) != 2 || doc.Routes[0] != "abc" {
		t.Errorf("Expected routes [abc empty], got %v", doc.Routes)
	}

	rr.robot.AddRoute("late", func(m *Mission) {})
	plain, _ = tinycompress.Decode(rr.robot.Dictionary())
	if !bytes.Contains(plain, []byte(`"late"`)) {
		t.Error("Expected a new route to rebuild the dictionary")
	}
}
