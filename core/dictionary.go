package core

import "trackcar/tinycompress"

// FirmwareVersion is reported in the identify dictionary
const FirmwareVersion = "trackcar-1.0"

// Constant is a named value published to the host
type Constant struct {
	Name  string
	Value string
}

// Dictionary describes the car to the host: version, command ids, routes and
// configuration constants. It is serialised as JSON without reflection and
// wrapped in zlib for chunked transfer over the link.
type Dictionary struct {
	version   string
	constants []Constant
	data      []byte
}

// NewDictionary creates an empty dictionary
func NewDictionary(version string) *Dictionary {
	return &Dictionary{version: version}
}

// AddConstant publishes name; a repeated name replaces the earlier value
func (d *Dictionary) AddConstant(name, value string) {
	d.data = nil
	for i := range d.constants {
		if d.constants[i].Name == name {
			d.constants[i].Value = value
			return
		}
	}
	d.constants = append(d.constants, Constant{Name: name, Value: value})
}

// Invalidate drops the cached encoding, e.g. after a route was added
func (d *Dictionary) Invalidate() {
	d.data = nil
}

// Build encodes and caches the dictionary
func (d *Dictionary) Build(commands []Command, routes []Route) []byte {
	d.data = tinycompress.Compress(d.JSON(commands, routes))
	Debugln("dictionary: " + itoa(len(d.data)) + " bytes")
	return d.data
}

// Cached returns the last build, nil when stale
func (d *Dictionary) Cached() []byte {
	return d.data
}

// JSON renders the uncompressed dictionary. Commands with a handler are
// listed under "commands", the others under "responses", keyed by
// "name format".
func (d *Dictionary) JSON(commands []Command, routes []Route) []byte {
	out := make([]byte, 0, 512)
	out = append(out, `{"version":`...)
	out = appendQuoted(out, d.version)
	out = append(out, `,"config":{`...)
	for i, c := range d.constants {
		if i > 0 {
			out = append(out, ',')
		}
		out = appendQuoted(out, c.Name)
		out = append(out, ':')
		out = appendQuoted(out, c.Value)
	}
	out = append(out, '}')
	out = appendCommands(out, `,"commands":{`, commands, true)
	out = appendCommands(out, `,"responses":{`, commands, false)
	out = append(out, `,"routes":[`...)
	for i, r := range routes {
		if i > 0 {
			out = append(out, ',')
		}
		out = appendQuoted(out, r.Name)
	}
	return append(out, "]}"...)
}

func appendCommands(out []byte, open string, commands []Command, handled bool) []byte {
	out = append(out, open...)
	first := true
	for _, c := range commands {
		if (c.Handler != nil) != handled {
			continue
		}
		if !first {
			out = append(out, ',')
		}
		first = false
		key := c.Name
		if c.Format != "" {
			key += " " + c.Format
		}
		out = appendQuoted(out, key)
		out = append(out, ':')
		out = append(out, utoa(uint32(c.ID))...)
	}
	return append(out, '}')
}

func appendQuoted(out []byte, s string) []byte {
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' || c == '\\':
			out = append(out, '\\', c)
		case c < 0x20:
			out = append(out, ' ')
		default:
			out = append(out, c)
		}
	}
	return append(out, '"')
}

// Chunk returns up to count bytes of data starting at offset. Past the end
// it returns an empty slice, which ends the host's transfer.
func Chunk(data []byte, offset uint32, count uint8) []byte {
	if offset >= uint32(len(data)) {
		return nil
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	return data[offset:end]
}
