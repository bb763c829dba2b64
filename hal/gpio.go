package hal

// GPIOPin identifies a hardware GPIO pin number.
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface the driver package uses to flip
// an RS-485 transceiver's direction pin. Platform-specific implementations
// handle the actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output.
	ConfigureOutput(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false).
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin state.
	GetPin(pin GPIOPin) (bool, error)
}
