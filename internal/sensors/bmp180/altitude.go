package bmp180

import "math"

// Altitude returns meters above the reference pressure using the
// international barometric formula:
//
//	h = 44330 * (1 - (p/pRef)^(1/5.255))
//
// For pRef pass SeaLevelPa (pressure altitude), QNH in Pa (true altitude)
// or a measured baseline (height above the baseline).
func Altitude(pressurePa, referencePa float64) (float64, error) {
	if referencePa == 0 {
		return 0, computationErr("reference pressure is zero")
	}
	if referencePa < 0 || pressurePa <= 0 {
		return 0, computationErr("pressure %g Pa / reference %g Pa out of range", pressurePa, referencePa)
	}
	return 44330.0 * (1.0 - math.Pow(pressurePa/referencePa, 1.0/5.255)), nil
}
