package telemetry

import (
	"errors"
	"time"

	"github.com/kfriesth/go-dmx512/protocol"
)

// Client is the host side of the telemetry link: it knows the DMX-specific
// command/response IDs and offers typed methods instead of requiring a
// caller to hand-encode VLQ arguments. It expects the MCU side to have
// registered commands in the exact order NewEndpoint does, since IDs are
// assigned by registration order, not negotiated — a real deployment
// would fetch the dictionary via identify and resolve names to IDs, but
// for a single fixed firmware image the order is a build-time constant.
type Client struct {
	transport *protocol.HostTransport

	cmdGetTotalStatistics  uint16
	cmdGetUpdatesPerSecond uint16
	cmdGetReceiveState     uint16
	cmdSetDirection        uint16
	cmdSetSendData         uint16
	cmdSetBreakTimeUs      uint16
	cmdSetMabTimeUs        uint16
	cmdSetPeriodUs         uint16

	respTotalStatistics  uint16
	respUpdatesPerSecond uint16
}

// NewClient builds a Client over transport, assigning IDs the same way
// NewEndpoint does on the device side: identify/identify_response first,
// then the eight dmx_* commands in table order, then the two responses.
func NewClient(transport *protocol.HostTransport) *Client {
	var next uint16 = 2 // identify_response=0, identify=1
	c := &Client{transport: transport}
	c.cmdGetTotalStatistics, next = next, next+1
	c.cmdGetUpdatesPerSecond, next = next, next+1
	c.cmdGetReceiveState, next = next, next+1
	c.cmdSetDirection, next = next, next+1
	c.cmdSetSendData, next = next, next+1
	c.cmdSetBreakTimeUs, next = next, next+1
	c.cmdSetMabTimeUs, next = next, next+1
	c.cmdSetPeriodUs, next = next, next+1
	c.respTotalStatistics, next = next, next+1
	c.respUpdatesPerSecond, next = next, next+1
	return c
}

// GetTotalStatistics sends dmx_get_total_statistics and waits for its
// response.
func (c *Client) GetTotalStatistics(timeout time.Duration) (dmxPackets, rdmPackets, droppedFrames uint32, err error) {
	if err := c.transport.SendCommandWithTimeout(c.cmdGetTotalStatistics, nil, timeout); err != nil {
		return 0, 0, 0, err
	}
	msg, err := c.transport.ReceiveResponse(timeout)
	if err != nil {
		return 0, 0, 0, err
	}
	payload := msg.Payload
	if _, err := protocol.DecodeVLQUint(&payload); err != nil { // skip cmd id
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

// GetUpdatesPerSecond sends dmx_get_updates_per_second and waits for its
// response.
func (c *Client) GetUpdatesPerSecond(timeout time.Duration) (uint32, error) {
	return c.getSingleUintResponse(c.cmdGetUpdatesPerSecond, timeout)
}

// GetReceiveState sends dmx_get_receive_state and waits for its response.
func (c *Client) GetReceiveState(timeout time.Duration) (uint32, error) {
	return c.getSingleUintResponse(c.cmdGetReceiveState, timeout)
}

func (c *Client) getSingleUintResponse(cmdID uint16, timeout time.Duration) (uint32, error) {
	if err := c.transport.SendCommandWithTimeout(cmdID, nil, timeout); err != nil {
		return 0, err
	}
	msg, err := c.transport.ReceiveResponse(timeout)
	if err != nil {
		return 0, err
	}
	payload := msg.Payload
	if _, err := protocol.DecodeVLQUint(&payload); err != nil {
		return 0, err
	}
	return protocol.DecodeVLQUint(&payload)
}

// SetDirection sends dmx_set_direction. dir is 0 for input, 1 for output.
func (c *Client) SetDirection(dir uint32, enableData bool, timeout time.Duration) error {
	enable := uint32(0)
	if enableData {
		enable = 1
	}
	return c.transport.SendCommandWithTimeout(c.cmdSetDirection, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, dir)
		protocol.EncodeVLQUint(out, enable)
	}, timeout)
}

// SetSendData sends dmx_set_send_data with the raw start-code+slot bytes.
func (c *Client) SetSendData(data []byte, timeout time.Duration) error {
	if len(data) == 0 {
		return errors.New("telemetry: send data must include at least a start code")
	}
	return c.transport.SendCommandWithTimeout(c.cmdSetSendData, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQBytes(out, data)
	}, timeout)
}

// SetBreakTimeUs sends dmx_set_break_time_us.
func (c *Client) SetBreakTimeUs(us uint32, timeout time.Duration) error {
	return c.setSingleUint(c.cmdSetBreakTimeUs, us, timeout)
}

// SetMabTimeUs sends dmx_set_mab_time_us.
func (c *Client) SetMabTimeUs(us uint32, timeout time.Duration) error {
	return c.setSingleUint(c.cmdSetMabTimeUs, us, timeout)
}

// SetPeriodUs sends dmx_set_period_us.
func (c *Client) SetPeriodUs(us uint32, timeout time.Duration) error {
	return c.setSingleUint(c.cmdSetPeriodUs, us, timeout)
}

func (c *Client) setSingleUint(cmdID uint16, value uint32, timeout time.Duration) error {
	return c.transport.SendCommandWithTimeout(cmdID, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, value)
	}, timeout)
}
