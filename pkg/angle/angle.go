package angle

import "math"

// PlusMinusPi is an angle in radians, stored as a value in range (-Pi, Pi].
type PlusMinusPi struct {
	float64
}

// Float returns the angle in radians, range (-Pi, Pi].
func (a PlusMinusPi) Float() float64 {
	return a.float64
}

func (a PlusMinusPi) Degrees() float64 {
	return a.float64 * 180 / math.Pi
}

// FromFloat converts a float of any magnitude to a PlusMinusPi by calculating
// f mod 2Pi and shifting into range.
func FromFloat(f float64) PlusMinusPi {
	d := math.Mod(f, 2*math.Pi)
	if d <= -math.Pi {
		d += 2 * math.Pi
	} else if d > math.Pi {
		d -= 2 * math.Pi
	}
	return PlusMinusPi{d}
}

// Wrap is shorthand for FromFloat(f).Float().
func Wrap(f float64) float64 {
	return FromFloat(f).Float()
}
