// Package mcu is the host-side half of the telemetry link: it connects to
// a running line driver over a serial port, fetches its compressed command
// dictionary, and resolves command/response names to wire IDs dynamically
// rather than assuming a fixed registration order. This is the slower,
// more general counterpart to telemetry.Client, which assumes IDs from
// NewEndpoint's registration order instead of fetching the dictionary.
package mcu

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/kfriesth/go-dmx512/host/serial"
	"github.com/kfriesth/go-dmx512/protocol"
	"github.com/kfriesth/go-dmx512/telemetry"
)

// MCU represents a connection to a running line driver's telemetry link.
type MCU struct {
	transport *protocol.HostTransport
	port      serial.Port

	dictionary      *Dictionary
	dictionaryData  []byte
	commandsByBase  map[string]uint16
	responsesByBase map[string]uint16

	connected bool
}

// Dictionary is the parsed form of what telemetry.Dictionary.Generate
// serializes on the device side.
type Dictionary struct {
	Version   string         `json:"version"`
	Commands  map[string]int `json:"commands"`
	Responses map[string]int `json:"responses"`
}

// NewMCU creates an MCU instance that is not yet connected.
func NewMCU() *MCU {
	return &MCU{}
}

// Connect opens device at the telemetry link's default configuration
// (8N1, not the 8N2 a direct DMX/RDM line needs) and connects.
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.TelemetryConfig(device))
}

// ConnectWithConfig connects with a caller-supplied serial configuration.
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	m.port = port
	m.transport = protocol.NewHostTransport(port, telemetry.WireFormat)
	m.connected = true
	m.transport.SetResponseHandler(m.handleResponse)

	// Give the device time to finish its own Init before the first command.
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Close closes the connection.
func (m *MCU) Close() error {
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			return err
		}
	}
	m.connected = false
	return nil
}

// RetrieveDictionary fetches the full dictionary in chunks via identify,
// decompresses it, and parses the resulting JSON.
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return fmt.Errorf("not connected")
	}

	var buf bytes.Buffer
	offset := uint32(0)
	const chunkSize = 40
	const maxIterations = 1000

	for i := 0; i < maxIterations; i++ {
		chunk, err := m.sendIdentify(offset, chunkSize)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
		if len(chunk) < chunkSize {
			break
		}
	}

	m.dictionaryData = buf.Bytes()

	if decompressed, err := decompressDictionary(m.dictionaryData); err == nil {
		m.dictionaryData = decompressed
	}

	return m.parseDictionary()
}

func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	err := m.transport.SendCommand(1, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send identify: %w", err)
	}

	resp, err := m.transport.ReceiveResponse(1 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to receive identify_response: %w", err)
	}

	payload := resp.Payload
	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response command id: %w", err)
	}
	if cmdID != 0 {
		return nil, fmt.Errorf("unexpected response command id: %d (expected identify_response=0)", cmdID)
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}

	return protocol.DecodeVLQBytes(&payload)
}

// decompressDictionary unwraps tinycompress's single-stored-block zlib
// stream with the standard library's real zlib reader: a stored deflate
// block is valid DEFLATE regardless of which encoder wrote it, so the
// host, unlike the firmware, has no reason to avoid compress/zlib.
func decompressDictionary(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (m *MCU) parseDictionary() error {
	dict := &Dictionary{}
	if err := json.Unmarshal(m.dictionaryData, dict); err != nil {
		return fmt.Errorf("failed to unmarshal dictionary json: %w", err)
	}
	m.dictionary = dict

	// Dictionary keys carry a Klipper-style "name fmt=%u ..." suffix for
	// commands that take arguments; index by the bare name so callers don't
	// need to know the wire format string to look a command up.
	m.commandsByBase = make(map[string]uint16, len(dict.Commands))
	for key, id := range dict.Commands {
		m.commandsByBase[baseName(key)] = uint16(id)
	}
	m.responsesByBase = make(map[string]uint16, len(dict.Responses))
	for key, id := range dict.Responses {
		m.responsesByBase[baseName(key)] = uint16(id)
	}
	return nil
}

func baseName(key string) string {
	if i := strings.IndexByte(key, ' '); i >= 0 {
		return key[:i]
	}
	return key
}

// handleResponse is the async response callback protocol.HostTransport
// invokes for responses that arrive without a matching ReceiveResponse
// call pending. Unsolicited responses (e.g. a stats push) are dropped;
// every response this package cares about is read synchronously via
// ReceiveResponse right after the triggering SendCommand.
func (m *MCU) handleResponse(cmdID uint16, data *[]byte) error {
	return nil
}

// GetDictionary returns the parsed dictionary, or nil before
// RetrieveDictionary succeeds.
func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// GetDictionaryRaw returns the decompressed dictionary bytes.
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// PrintDictionary writes a short summary of the fetched dictionary to
// stdout, sorted by wire ID.
func (m *MCU) PrintDictionary() {
	if m.dictionary == nil {
		fmt.Println("no dictionary loaded")
		return
	}
	fmt.Printf("protocol version: %s\n", m.dictionary.Version)
	fmt.Println("commands:")
	for _, name := range sortedByID(m.dictionary.Commands) {
		fmt.Printf("  %3d  %s\n", m.dictionary.Commands[name], name)
	}
	fmt.Println("responses:")
	for _, name := range sortedByID(m.dictionary.Responses) {
		fmt.Printf("  %3d  %s\n", m.dictionary.Responses[name], name)
	}
}

func sortedByID(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return m[names[i]] < m[names[j]] })
	return names
}

func (m *MCU) lookupCommand(name string) (uint16, error) {
	if m.dictionary == nil {
		return 0, fmt.Errorf("dictionary not loaded")
	}
	id, ok := m.commandsByBase[name]
	if !ok {
		return 0, fmt.Errorf("unknown command: %s", name)
	}
	return id, nil
}

// SendCommand sends a named command with no response expected.
func (m *MCU) SendCommand(name string, args func(output protocol.OutputBuffer)) error {
	if !m.connected {
		return fmt.Errorf("not connected")
	}
	cmdID, err := m.lookupCommand(name)
	if err != nil {
		return err
	}
	return m.transport.SendCommand(cmdID, args)
}

// GetTotalStatistics sends dmx_get_total_statistics and decodes the
// dmx_total_statistics_state response.
func (m *MCU) GetTotalStatistics(timeout time.Duration) (dmxPackets, rdmPackets, droppedFrames uint32, err error) {
	cmdID, err := m.lookupCommand("dmx_get_total_statistics")
	if err != nil {
		return 0, 0, 0, err
	}
	if err := m.transport.SendCommandWithTimeout(cmdID, nil, timeout); err != nil {
		return 0, 0, 0, err
	}
	msg, err := m.transport.ReceiveResponse(timeout)
	if err != nil {
		return 0, 0, 0, err
	}
	payload := msg.Payload
	if _, err := protocol.DecodeVLQUint(&payload); err != nil {
		return 0, 0, 0, err
	}
	dmxPackets, err = protocol.DecodeVLQUint(&payload)
	if err != nil {
		return 0, 0, 0, err
	}
	rdmPackets, err = protocol.DecodeVLQUint(&payload)
	if err != nil {
		return 0, 0, 0, err
	}
	droppedFrames, err = protocol.DecodeVLQUint(&payload)
	return dmxPackets, rdmPackets, droppedFrames, err
}

func (m *MCU) getSingleUintResponse(cmdName string, timeout time.Duration) (uint32, error) {
	cmdID, err := m.lookupCommand(cmdName)
	if err != nil {
		return 0, err
	}
	if err := m.transport.SendCommandWithTimeout(cmdID, nil, timeout); err != nil {
		return 0, err
	}
	msg, err := m.transport.ReceiveResponse(timeout)
	if err != nil {
		return 0, err
	}
	payload := msg.Payload
	if _, err := protocol.DecodeVLQUint(&payload); err != nil {
		return 0, err
	}
	return protocol.DecodeVLQUint(&payload)
}

// GetUpdatesPerSecond sends dmx_get_updates_per_second.
func (m *MCU) GetUpdatesPerSecond(timeout time.Duration) (uint32, error) {
	return m.getSingleUintResponse("dmx_get_updates_per_second", timeout)
}

// GetReceiveState sends dmx_get_receive_state.
func (m *MCU) GetReceiveState(timeout time.Duration) (uint32, error) {
	return m.getSingleUintResponse("dmx_get_receive_state", timeout)
}

// SetDirection sends dmx_set_direction. dir is 0 for input, 1 for output.
func (m *MCU) SetDirection(dir uint32, enableData bool, timeout time.Duration) error {
	cmdID, err := m.lookupCommand("dmx_set_direction")
	if err != nil {
		return err
	}
	enable := uint32(0)
	if enableData {
		enable = 1
	}
	return m.transport.SendCommandWithTimeout(cmdID, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, dir)
		protocol.EncodeVLQUint(out, enable)
	}, timeout)
}

// SetSendData sends dmx_set_send_data with the raw start-code+slot bytes.
func (m *MCU) SetSendData(data []byte, timeout time.Duration) error {
	cmdID, err := m.lookupCommand("dmx_set_send_data")
	if err != nil {
		return err
	}
	return m.transport.SendCommandWithTimeout(cmdID, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQBytes(out, data)
	}, timeout)
}

func (m *MCU) setSingleUint(cmdName string, value uint32, timeout time.Duration) error {
	cmdID, err := m.lookupCommand(cmdName)
	if err != nil {
		return err
	}
	return m.transport.SendCommandWithTimeout(cmdID, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, value)
	}, timeout)
}

// SetBreakTimeUs sends dmx_set_break_time_us.
func (m *MCU) SetBreakTimeUs(us uint32, timeout time.Duration) error {
	return m.setSingleUint("dmx_set_break_time_us", us, timeout)
}

// SetMabTimeUs sends dmx_set_mab_time_us.
func (m *MCU) SetMabTimeUs(us uint32, timeout time.Duration) error {
	return m.setSingleUint("dmx_set_mab_time_us", us, timeout)
}

// SetPeriodUs sends dmx_set_period_us.
func (m *MCU) SetPeriodUs(us uint32, timeout time.Duration) error {
	return m.setSingleUint("dmx_set_period_us", us, timeout)
}

// IsConnected reports whether Connect succeeded and Close hasn't run.
func (m *MCU) IsConnected() bool {
	return m.connected
}
