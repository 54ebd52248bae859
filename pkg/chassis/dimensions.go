package chassis

import "math"

// Pololu 3pi+ 32U4 with the 75:1 gearmotors.
const (
	CountsPerRev     float64 = 358.3
	WheelRadiusMM            = 17.475
	WheelDiameterMM          = WheelRadiusMM * 2
	WheelCircumMM            = WheelDiameterMM * math.Pi
	CentreToWheelMM          = 44.48
	BotWidthMM               = CentreToWheelMM * 2
	MMPerCount               = WheelCircumMM / CountsPerRev
	DefaultMaxPWM            = 120.0
)

// Geometry describes a differential-drive base.
type Geometry struct {
	CountsPerRev    float64 `yaml:"countsPerRev"`
	WheelRadiusMM   float64 `yaml:"wheelRadiusMM"`
	CentreToWheelMM float64 `yaml:"centreToWheelMM"`
}

func Default() Geometry {
	return Geometry{
		CountsPerRev:    CountsPerRev,
		WheelRadiusMM:   WheelRadiusMM,
		CentreToWheelMM: CentreToWheelMM,
	}
}

// MMPerCount is the linear wheel travel for one encoder tick.
func (g Geometry) MMPerCount() float64 {
	return 2 * g.WheelRadiusMM * math.Pi / g.CountsPerRev
}
