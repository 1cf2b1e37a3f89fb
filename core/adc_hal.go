package core

// ADCChannel identifies an analog input on the target
type ADCChannel uint8

// ADCDriver is the analog interface that board code implements.
type ADCDriver interface {
	// ConfigureChannel prepares a channel for analog input
	ConfigureChannel(ch ADCChannel) error

	// ReadRaw performs a one-shot sample. The value is scaled to 16 bits
	// whatever the converter resolution.
	ReadRaw(ch ADCChannel) (uint16, error)
}
