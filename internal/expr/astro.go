package expr

import "math"

// Astronomical helpers (spec §4.C), constants taken verbatim from
// original_source/src/config/sched.rs.

// noonDeclSun is the noon solar declination, in radians, for a given
// day-of-year (accurate to within ±0.2°).
func noonDeclSun(doy float64) float64 {
	r := degToRad(0.98565)
	return math.Asin(0.39779 * math.Cos(r*(doy+10)+degToRad(1.914)*math.Sin(r*(doy-2))))
}

// hourAngleSunrise is the hour-angle of sunrise, in radians, for a given
// latitude (radians) and solar declination (radians).
func hourAngleSunrise(latRad, decl float64) float64 {
	return math.Acos(math.Cos(degToRad(90.833))/(math.Cos(latRad)*math.Cos(decl)) - math.Tan(latRad)*math.Tan(decl))
}

// dayLengthHrs is the number of daylight hours at latitude lat (decimal
// degrees) on day-of-year doy.
func dayLengthHrs(latDeg, doy float64) float64 {
	ha := hourAngleSunrise(degToRad(latDeg), noonDeclSun(doy))
	return 2 * radToDeg(ha) / 15
}

// exactOffsetHours is the fixed UTC offset, in hours, implied by a given
// longitude (original_source/src/config/sched.rs's exact_offset_hrs).
func exactOffsetHours(longDeg float64) float64 {
	return longDeg / 15
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }
