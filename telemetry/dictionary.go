package telemetry

import (
	"bytes"
	"sort"
	"strconv"
	"sync"

	"github.com/kfriesth/go-dmx512/tinycompress"
)

// Dictionary is the data dictionary a host tool fetches once on connect:
// protocol version plus every registered command/response name and ID, zlib
// compressed the same way the teacher compresses its Klipper dictionary.
type Dictionary struct {
	mu         sync.Mutex
	reg        *Registry
	version    string
	cachedDict []byte
}

// NewDictionary creates a dictionary over reg. Call Build once every
// command/response is registered.
func NewDictionary(reg *Registry, version string) *Dictionary {
	return &Dictionary{reg: reg, version: version}
}

// Build generates and caches the compressed dictionary. Call this once at
// startup after NewEndpoint has registered every command.
func (d *Dictionary) Build() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw := d.buildJSON()

	var buf bytes.Buffer
	w := tinycompress.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		d.cachedDict = raw
		return err
	}
	if err := w.Close(); err != nil {
		d.cachedDict = raw
		return err
	}

	d.cachedDict = buf.Bytes()
	return nil
}

// Generate returns the cached compressed dictionary. If Build has not been
// called, it returns the uncompressed JSON instead, without caching it.
func (d *Dictionary) Generate() []byte {
	d.mu.Lock()
	cached := d.cachedDict
	d.mu.Unlock()
	if cached != nil {
		return cached
	}
	return d.buildJSON()
}

// Chunk returns a slice of Generate's output starting at offset,
// for hosts that fetch it in bounded-size pieces over the telemetry link.
func (d *Dictionary) Chunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return nil
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

func (d *Dictionary) buildJSON() []byte {
	entries := d.reg.entries()

	type kv struct {
		name string
		id   uint16
	}
	var commands, responses []kv
	for _, c := range entries {
		name := c.Name
		if c.Format != "" {
			name = c.Name + " " + c.Format
		}
		if c.Handler != nil {
			commands = append(commands, kv{name, c.ID})
		} else {
			responses = append(responses, kv{name, c.ID})
		}
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].id < commands[j].id })
	sort.Slice(responses, func(i, j int) bool { return responses[i].id < responses[j].id })

	var buf bytes.Buffer
	buf.WriteString(`{"version":"`)
	buf.WriteString(d.version)
	buf.WriteString(`","commands":{`)
	for i, c := range commands {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(c.name)
		buf.WriteString(`":`)
		buf.WriteString(strconv.Itoa(int(c.id)))
	}
	buf.WriteString(`},"responses":{`)
	for i, r := range responses {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(r.name)
		buf.WriteString(`":`)
		buf.WriteString(strconv.Itoa(int(r.id)))
	}
	buf.WriteString("}}")
	return buf.Bytes()
}
