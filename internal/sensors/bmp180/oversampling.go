package bmp180

// Oversampling selects the pressure averaging depth. Higher settings take
// longer to convert and return more bits in UP.
type Oversampling uint8

const (
	UltraLowPower Oversampling = iota
	Standard
	HighResolution
	UltraHighResolution
)

// Pressure conversion time in ms, indexed by oversampling (datasheet table 3).
var pressureDelayMs = [...]uint32{5, 8, 14, 25}

// 4.5 ms rounded up.
const temperatureDelayMs = 5

func (o Oversampling) Validate() error {
	if int(o) >= len(pressureDelayMs) {
		return configErr("oversampling %d out of range 0..3", o)
	}
	return nil
}

// ConversionDelayMs is the pressure conversion time. o must be valid.
func (o Oversampling) ConversionDelayMs() uint32 {
	return pressureDelayMs[o]
}

func (o Oversampling) controlByte() byte {
	return cmdPressure | byte(o)<<6
}

func (o Oversampling) String() string {
	switch o {
	case UltraLowPower:
		return "ultra-low-power"
	case Standard:
		return "standard"
	case HighResolution:
		return "high-resolution"
	case UltraHighResolution:
		return "ultra-high-resolution"
	}
	return "invalid"
}
