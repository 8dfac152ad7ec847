package protocol

import (
	"math"

	"github.com/srg/padctl/internal/bytesutil"
	"github.com/srg/padctl/internal/clamp"
)

const (
	standardHeader1  = 0xF7
	standardHeader2  = 0xA2
	standardRespHdr1 = 0xF8
	standardRespHdr2 = 0xA2
	standardSuffix   = 0xFD

	standardMinSpeed = 0.5
	standardMaxSpeed = 6.0

	standardMinStatusLen = 16
)

// standardCodec implements the proprietary framed protocol used by the
// legacy device family (service UUIDs fe00/fff0).
type standardCodec struct{}

// NewStandard returns the proprietary-protocol codec.
func NewStandard() Codec { return &standardCodec{} }

func (c *standardCodec) Name() Name { return Standard }

func (c *standardCodec) AskStats() []byte { return frame([]byte{0x00}) }

func (c *standardCodec) Start() []byte { return frame([]byte{0x04, 0x01}) }

func (c *standardCodec) Stop() []byte { return frame([]byte{0x04, 0x00}) }

func (c *standardCodec) RequestControl() []byte { return nil }

func (c *standardCodec) SetSpeed(kmh float64) ([]byte, error) {
	if math.IsNaN(kmh) || math.IsInf(kmh, 0) || kmh < standardMinSpeed || kmh > standardMaxSpeed {
		return nil, &SpeedOutOfRangeError{Value: kmh, Min: standardMinSpeed, Max: standardMaxSpeed}
	}
	return frame([]byte{0x03, byte(math.Round(kmh * 10))}), nil
}

// frame wraps a command body in the header/checksum/suffix envelope.
func frame(body []byte) []byte {
	buf := make([]byte, 0, len(body)+4)
	buf = append(buf, standardHeader1, standardHeader2)
	buf = append(buf, body...)

	sum := 0
	for _, b := range buf[1:] {
		sum += int(b)
	}
	buf = append(buf, byte(sum%256), standardSuffix)
	return buf
}

func (c *standardCodec) ParseStatus(buf []byte) State {
	if len(buf) < standardMinStatusLen {
		return State{}
	}

	state := clamp.DeviceState(float64(bytesutil.U8(buf, 2)))
	speed := clamp.Speed(float64(bytesutil.U8(buf, 3)) / 10)
	mode := clamp.ControlMode(float64(bytesutil.U8(buf, 4)))
	timeSeconds := clamp.TimeSeconds(float64(bytesutil.U24BE(buf, 5)))
	distance := clamp.Distance(float64(bytesutil.U24BE(buf, 8)) / 100)
	steps := clamp.Steps(float64(bytesutil.U24BE(buf, 11)))

	return State{
		DeviceState: state,
		SpeedKMH:    speed,
		Mode:        mode,
		TimeSeconds: timeSeconds,
		DistanceKM:  distance,
		Steps:       steps,
		IsRunning:   speed > 0 || state == 1,
	}
}
