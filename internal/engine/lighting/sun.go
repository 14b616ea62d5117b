package lighting

import (
	gomath "math"

	"github.com/Faultbox/objengine/pkg/math"
)

// SunDirection converts longitude/latitude angles in degrees to a unit vector
// pointing towards the sun. Longitude rotates around Y, latitude is the
// elevation above the horizon.
func SunDirection(longitude, latitude float32) math.Vec3 {
	lonRad := float64(longitude) * gomath.Pi / 180.0
	latRad := float64(latitude) * gomath.Pi / 180.0

	return math.Vec3{
		X: float32(gomath.Cos(latRad) * gomath.Sin(lonRad)),
		Y: float32(gomath.Sin(latRad)),
		Z: float32(gomath.Cos(latRad) * gomath.Cos(lonRad)),
	}
}

// WithSun returns p lit by a sun at the given angles. The light travels
// away from the sun.
func (p Params) WithSun(longitude, latitude float32) Params {
	p.Direction = SunDirection(longitude, latitude).Scale(-1)
	return p
}

// SunAngles is the inverse of SunDirection. dir need not be normalized.
func SunAngles(dir math.Vec3) (longitude, latitude float32) {
	d := dir.Normalize()
	if d == (math.Vec3{}) {
		return 0, 0
	}
	lat := gomath.Asin(gomath.Max(-1, gomath.Min(1, float64(d.Y))))
	lon := gomath.Atan2(float64(d.X), float64(d.Z))
	return float32(lon * 180 / gomath.Pi), float32(lat * 180 / gomath.Pi)
}

// Sun returns the angles of the sun that lights along p.Direction.
func (p Params) Sun() (longitude, latitude float32) {
	return SunAngles(p.Direction.Scale(-1))
}
