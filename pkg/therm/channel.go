package therm

// Channel identifies one of the four cardinal thermistors around the heater.
type Channel int

// Channels in enumeration order. The bearing assignment below depends on
// this exact order, so it must match the probe wiring (ADC channel 0..3).
const (
	North Channel = iota
	East
	South
	West

	// NumChannels is the number of thermistor channels on the probe.
	NumChannels = 4
)

var channelNames = [NumChannels]string{"N", "E", "S", "W"}

var channelBearings = [NumChannels]float64{0.0, 90.0, 180.0, 270.0}

// String returns the compass short name of the channel.
func (ch Channel) String() string {
	if ch < 0 || ch >= NumChannels {
		return "?"
	}
	return channelNames[ch]
}

// Bearing returns the compass bearing assigned to the channel in degrees
// (N=0, E=90, S=180, W=270).
func (ch Channel) Bearing() float64 {
	return channelBearings[ch]
}

// Channels returns all channels in enumeration order.
func Channels() [NumChannels]Channel {
	return [NumChannels]Channel{North, East, South, West}
}
