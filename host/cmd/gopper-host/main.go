// Command gopper-host is an interactive bench tool for a line driver
// running the telemetry link: it connects over a serial/USB-CDC port,
// fetches the device's command dictionary, and lets an operator issue
// dmx_* commands and read back their responses by hand.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"
	"github.com/kfriesth/go-dmx512/host/mcu"
	"github.com/kfriesth/go-dmx512/host/serial"
)

var (
	device = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud   = flag.Int("baud", 250000, "Baud rate (ignored for USB CDC)")
)

func main() {
	flag.Parse()

	fmt.Println("go-dmx512 host console")
	fmt.Println("=======================")

	mcuConn := mcu.NewMCU()

	fmt.Printf("connecting to %s at %d baud...\n", *device, *baud)
	cfg := serial.TelemetryConfig(*device)
	cfg.Baud = *baud
	if err := mcuConn.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mcuConn.Close()

	fmt.Println("connected")

	if err := mcuConn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}

	mcuConn.PrintDictionary()

	fmt.Println("type 'help' for commands, 'quit' to exit")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		if runCommand(mcuConn, args[0], args[1:]) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
		os.Exit(1)
	}
}

// runCommand dispatches one parsed command line. It returns true when the
// session should end.
func runCommand(m *mcu.MCU, cmd string, args []string) bool {
	const timeout = 2 * time.Second

	switch cmd {
	case "quit", "exit", "q":
		fmt.Println("bye")
		return true

	case "help", "?":
		printHelp()

	case "dict":
		m.PrintDictionary()

	case "raw":
		raw := m.GetDictionaryRaw()
		fmt.Printf("raw dictionary (%d bytes):\n%s\n", len(raw), string(raw))

	case "stats":
		dmxPackets, rdmPackets, dropped, err := m.GetTotalStatistics(timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Printf("dmx_packets=%d rdm_packets=%d dropped_frames=%d\n", dmxPackets, rdmPackets, dropped)

	case "ups":
		value, err := m.GetUpdatesPerSecond(timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Printf("updates_per_second=%d\n", value)

	case "rxstate":
		value, err := m.GetReceiveState(timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Printf("receive_state=%d\n", value)

	case "direction":
		if len(args) != 2 {
			fmt.Println("usage: direction <in|out> <0|1 enable-data>")
			return false
		}
		dir := uint32(0)
		if args[0] == "out" {
			dir = 1
		} else if args[0] != "in" {
			fmt.Println("direction must be 'in' or 'out'")
			return false
		}
		enable := args[1] == "1"
		if err := m.SetDirection(dir, enable, timeout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Println("ok")

	case "senddata":
		data := make([]byte, len(args))
		for i, s := range args {
			v, err := strconv.ParseUint(s, 0, 8)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: invalid byte %q: %v\n", s, err)
				return false
			}
			data[i] = byte(v)
		}
		if err := m.SetSendData(data, timeout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Println("ok")

	case "breaktime":
		setTiming(m, args, timeout, "breaktime", m.SetBreakTimeUs)

	case "mabtime":
		setTiming(m, args, timeout, "mabtime", m.SetMabTimeUs)

	case "period":
		setTiming(m, args, timeout, "period", m.SetPeriodUs)

	default:
		fmt.Printf("unknown command: %s (type 'help' for available commands)\n", cmd)
	}

	return false
}

func setTiming(m *mcu.MCU, args []string, timeout time.Duration, label string, set func(uint32, time.Duration) error) {
	if len(args) != 1 {
		fmt.Printf("usage: %s <microseconds>\n", label)
		return
	}
	us, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid duration %q: %v\n", args[0], err)
		return
	}
	if err := set(uint32(us), timeout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func printHelp() {
	fmt.Println(`
available commands:
  dict                        print the fetched command/response dictionary
  raw                         print the raw (decompressed) dictionary bytes
  stats                       dmx_get_total_statistics
  ups                         dmx_get_updates_per_second
  rxstate                     dmx_get_receive_state
  direction <in|out> <0|1>    dmx_set_direction (1 = enable data)
  senddata <byte>...          dmx_set_send_data (start code + slot values)
  breaktime <us>              dmx_set_break_time_us
  mabtime <us>                dmx_set_mab_time_us
  period <us>                 dmx_set_period_us
  quit/exit/q                 exit`)
}
