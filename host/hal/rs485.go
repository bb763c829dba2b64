//go:build !windows && !wasm

package hal

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// serialRS485 flags, mirroring Linux's struct serial_rs485
// (include/uapi/linux/serial.h). golang.org/x/sys/unix ships the TIOCGRS485/
// TIOCSRS485 ioctl numbers but no struct type for the payload, so this
// defines one locally matching the kernel's layout exactly.
const (
	serRS485Enabled      = 0x01
	serRS485RTSOnSend    = 0x02
	serRS485RTSAfterSend = 0x04
	serRS485RXDuringTX   = 0x10
)

// serialRS485 is the ioctl payload for TIOCSRS485/TIOCGRS485: a flags word,
// before/after-send RTS turnaround delays in milliseconds, and five
// reserved words the kernel requires present but ignores.
type serialRS485 struct {
	flags              uint32
	delayRTSBeforeSend uint32
	delayRTSAfterSend  uint32
	padding            [5]uint32
}

// enableKernelRS485 asks the kernel's serial driver to toggle RTS around
// transmission itself (SER_RS485_RTS_ON_SEND/RTS_AFTER_SEND), the same
// model jn0-go-serial's Rs485.Update drives through the same ioctl. It
// returns false, nil whenever the underlying driver doesn't implement
// RS-485 (ENOTTY on a generic USB-serial chipset, for instance), which is
// the common case and not an error this driver needs to surface — callers
// fall back to GPIO's manual RTS toggling in that case.
func enableKernelRS485(fd int, rtsOnSend bool) (bool, error) {
	cfg := serialRS485{flags: serRS485Enabled}
	if rtsOnSend {
		cfg.flags |= serRS485RTSOnSend
	} else {
		cfg.flags |= serRS485RTSAfterSend
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.TIOCSRS485, uintptr(unsafe.Pointer(&cfg)))
	if errno == 0 {
		return true, nil
	}
	if errno == unix.ENOTTY || errno == unix.EINVAL {
		return false, nil
	}
	return false, errno
}
