package protocol

import (
	"math"

	"github.com/srg/padctl/internal/bytesutil"
	"github.com/srg/padctl/internal/clamp"
)

const (
	ftmsMinSpeed = 0.5
	ftmsMaxSpeed = 6.0

	ftmsOpRequestControl = 0x00
	ftmsOpSetTargetSpeed = 0x02
	ftmsOpStartResume    = 0x07
	ftmsOpStopPause      = 0x08
)

// field widths, in wire order, keyed by their flag bit (1..10).
var ftmsFieldWidth = map[uint]int{
	1:  2, // average speed (skipped)
	2:  3, // total distance
	3:  4, // inclination + ramp (skipped)
	4:  2, // elevation gain (skipped)
	5:  1, // instantaneous pace (skipped)
	6:  1, // average pace (skipped)
	7:  5, // expended energy (skipped)
	8:  1, // heart rate (skipped)
	9:  1, // metabolic equivalent (skipped)
	10: 2, // elapsed time
}

// ftmsCodec implements the Bluetooth Fitness Machine Service treadmill-data
// protocol, including a vendor step-count extension appended after the
// standard FTMS fields.
type ftmsCodec struct{}

// NewFTMS returns the FTMS codec.
func NewFTMS() Codec { return &ftmsCodec{} }

func (c *ftmsCodec) Name() Name { return FTMS }

func (c *ftmsCodec) AskStats() []byte { return nil }

func (c *ftmsCodec) RequestControl() []byte { return []byte{ftmsOpRequestControl} }

func (c *ftmsCodec) Start() []byte { return []byte{ftmsOpStartResume} }

func (c *ftmsCodec) Stop() []byte { return []byte{ftmsOpStopPause, 0x01} }

func (c *ftmsCodec) SetSpeed(kmh float64) ([]byte, error) {
	if math.IsNaN(kmh) || math.IsInf(kmh, 0) || kmh < ftmsMinSpeed || kmh > ftmsMaxSpeed {
		return nil, &SpeedOutOfRangeError{Value: kmh, Min: ftmsMinSpeed, Max: ftmsMaxSpeed}
	}
	raw := uint16(math.Round(kmh * 100))
	return []byte{ftmsOpSetTargetSpeed, byte(raw), byte(raw >> 8)}, nil
}

func (c *ftmsCodec) ParseStatus(buf []byte) State {
	if len(buf) < 2 {
		return State{}
	}
	flags := uint(bytesutil.U16LE(buf, 0))

	if len(buf) < 4 {
		return State{}
	}
	speed := clamp.Speed(float64(bytesutil.U16LE(buf, 2)) / 100)

	state := clamp.DeviceState(boolToFloat(speed > 0))
	mode := clamp.ControlMode(boolToFloat(speed > 0))

	result := State{
		DeviceState: state,
		SpeedKMH:    speed,
		Mode:        mode,
		IsRunning:   speed > 0,
	}

	offset := 4
	for bit := uint(1); bit <= 10; bit++ {
		if flags&(1<<bit) == 0 {
			continue
		}
		width := ftmsFieldWidth[bit]
		if offset+width > len(buf) {
			return result
		}
		switch bit {
		case 2:
			result.DistanceKM = clamp.Distance(float64(bytesutil.U24LE(buf, offset)) / 1000)
		case 10:
			result.TimeSeconds = clamp.TimeSeconds(float64(bytesutil.U16LE(buf, offset)))
		}
		offset += width
	}

	if offset+2 <= len(buf) {
		result.Steps = clamp.Steps(float64(bytesutil.U16LE(buf, offset)))
	}

	return result
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
