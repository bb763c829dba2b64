package telemetry

import (
	"github.com/kfriesth/go-dmx512/driver"
	"github.com/kfriesth/go-dmx512/protocol"
)

// Responder sends a response frame; satisfied by *protocol.Transport.
type Responder interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer))
}

// Endpoint ties a Registry to the single Driver it controls and to the
// Responder used to answer get-style commands. It owns no state of its
// own beyond the registration; all mutation happens on Driver.
type Endpoint struct {
	reg    *Registry
	driver *driver.Driver
	out    Responder
	dict   *Dictionary

	respIdentify         uint16
	respTotalStatistics  uint16
	respUpdatesPerSecond uint16
}

// NewEndpoint registers the bootstrap identify pair and the DMX-specific
// command set against reg, in that order — identify_response and identify
// must land on IDs 0 and 1 respectively, matching the bootstrap dictionary
// a Klipper-style host expects before it has fetched the real one. Call
// this once at startup, before the dictionary is built.
func NewEndpoint(reg *Registry, d *driver.Driver, out Responder) *Endpoint {
	e := &Endpoint{reg: reg, driver: d, out: out}
	e.registerBootstrap()
	e.registerCommands()
	e.registerResponses()
	return e
}

// SetDictionary wires the dictionary the identify command serves chunks
// from. Must be called before the first identify request arrives.
func (e *Endpoint) SetDictionary(dict *Dictionary) {
	e.dict = dict
}

func (e *Endpoint) registerBootstrap() {
	e.respIdentify = e.reg.RegisterResponse("identify_response", "offset=%u data=%*s")
	e.reg.Register("identify", "offset=%u count=%c", func(data *[]byte) error {
		offset, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		count, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		var chunk []byte
		if e.dict != nil {
			chunk = e.dict.Chunk(offset, uint8(count))
		}
		e.out.SendCommand(e.respIdentify, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQUint(out, offset)
			protocol.EncodeVLQBytes(out, chunk)
		})
		return nil
	})
}

func (e *Endpoint) registerCommands() {
	reg := e.reg
	d := e.driver

	reg.Register("dmx_get_total_statistics", "", func(data *[]byte) error {
		stats := d.GetTotalStatistics()
		e.out.SendCommand(e.respTotalStatistics, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQUint(out, stats.DmxPackets)
			protocol.EncodeVLQUint(out, stats.RdmPackets)
			protocol.EncodeVLQUint(out, stats.DroppedFrames)
		})
		return nil
	})

	reg.Register("dmx_get_updates_per_second", "", func(data *[]byte) error {
		ups := d.GetUpdatesPerSecond()
		e.out.SendCommand(e.respUpdatesPerSecond, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQUint(out, ups)
		})
		return nil
	})

	// dmx_get_receive_state has no response of its own; it shares
	// dmx_updates_per_second_state's single-value=%u shape, same as the
	// teacher answers several distinct get-style commands with one
	// generically-shaped response.
	reg.Register("dmx_get_receive_state", "", func(data *[]byte) error {
		state := d.GetReceiveState()
		e.out.SendCommand(e.respUpdatesPerSecond, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQInt(out, int32(state))
		})
		return nil
	})

	reg.Register("dmx_set_direction", "dir=%u enable_data=%u", func(data *[]byte) error {
		dir, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		enable, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		d.SetDirection(driver.Direction(dir), enable != 0)
		return nil
	})

	reg.Register("dmx_set_send_data", "data=%*s", func(data *[]byte) error {
		buf, err := protocol.DecodeVLQBytes(data)
		if err != nil {
			return err
		}
		d.SetSendData(buf)
		return nil
	})

	reg.Register("dmx_set_break_time_us", "us=%u", func(data *[]byte) error {
		us, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		d.SetBreakTimeUs(us)
		return nil
	})

	reg.Register("dmx_set_mab_time_us", "us=%u", func(data *[]byte) error {
		us, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		d.SetMabTimeUs(us)
		return nil
	})

	reg.Register("dmx_set_period_us", "us=%u", func(data *[]byte) error {
		us, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		d.SetPeriodUs(us)
		return nil
	})
}

func (e *Endpoint) registerResponses() {
	e.respTotalStatistics = e.reg.RegisterResponse(
		"dmx_total_statistics_state", "dmx_packets=%u rdm_packets=%u dropped_frames=%u")
	e.respUpdatesPerSecond = e.reg.RegisterResponse(
		"dmx_updates_per_second_state", "value=%u")
}
