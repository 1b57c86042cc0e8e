package motion

import (
	"fmt"
	"math"
)

// Source is the sensor a reading came from.
type Source int

const (
	// SourceAccelerometer delivers the gravity vector.
	SourceAccelerometer Source = iota + 1
	// SourceMagneticField delivers the geomagnetic vector.
	SourceMagneticField
)

// String returns the sensor name.
func (s Source) String() string {
	switch s {
	case SourceAccelerometer:
		return "accelerometer"
	case SourceMagneticField:
		return "magnetic_field"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

const (
	// minFieldNorm rejects a magnetic field too weak or too parallel to
	// gravity to define east.
	minFieldNorm = 0.1
	// standardGravity is one g in m/s².
	standardGravity = 9.80665
	// freeFallGravitySquared rejects accelerations below a tenth of a g.
	freeFallGravitySquared = 0.01 * standardGravity * standardGravity
)

// Vector is a raw three-axis sensor reading.
type Vector [3]float64

// Fusion combines accelerometer and magnetometer readings into an orientation.
type Fusion struct {
	gravity     Vector
	geomagnetic Vector
	hasGravity  bool
	hasField    bool
}

// Update stores a reading and returns the orientation once both sources have
// reported. ok is false while either vector is missing or degenerate.
func (f *Fusion) Update(source Source, v Vector) (Orientation, bool) {
	switch source {
	case SourceAccelerometer:
		f.gravity = v
		f.hasGravity = true
	case SourceMagneticField:
		f.geomagnetic = v
		f.hasField = true
	default:
		return Orientation{}, false
	}

	if !f.Ready() {
		return Orientation{}, false
	}

	r, ok := rotationMatrix(f.gravity, f.geomagnetic)
	if !ok {
		return Orientation{}, false
	}

	return orientation(r), true
}

// Ready reports whether both sources have delivered at least one reading.
func (f *Fusion) Ready() bool {
	return f.hasGravity && f.hasField
}

// rotationMatrix builds the 3x3 row-major rotation matrix from gravity and
// geomagnetic vectors expressed in device coordinates.
func rotationMatrix(gravity, geomagnetic Vector) ([9]float64, bool) {
	ax, ay, az := gravity[0], gravity[1], gravity[2]
	ex, ey, ez := geomagnetic[0], geomagnetic[1], geomagnetic[2]

	hx := ey*az - ez*ay
	hy := ez*ax - ex*az
	hz := ex*ay - ey*ax

	normH := math.Sqrt(hx*hx + hy*hy + hz*hz)
	if normH < minFieldNorm {
		return [9]float64{}, false
	}

	gravitySquared := ax*ax + ay*ay + az*az
	if gravitySquared < freeFallGravitySquared {
		return [9]float64{}, false
	}

	normA := math.Sqrt(gravitySquared)

	hx, hy, hz = hx/normH, hy/normH, hz/normH
	ax, ay, az = ax/normA, ay/normA, az/normA

	mx := ay*hz - az*hy
	my := az*hx - ax*hz
	mz := ax*hy - ay*hx

	return [9]float64{
		hx, hy, hz,
		mx, my, mz,
		ax, ay, az,
	}, true
}

// orientation extracts azimuth, pitch and roll from a rotation matrix.
func orientation(r [9]float64) Orientation {
	return Orientation{
		Azimuth: math.Atan2(r[1], r[4]),
		Pitch:   math.Asin(-r[7]),
		Roll:    math.Atan2(-r[6], r[8]),
	}
}
