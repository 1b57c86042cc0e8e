package motion

import "math"

const (
	// WindowSize is the number of samples averaged before a comparison.
	WindowSize = 8
	// SensitivityThreshold is the minimum change between window averages
	// that counts as picking the device up.
	SensitivityThreshold = 40
)

// Orientation is a device orientation in radians.
type Orientation struct {
	Azimuth float64
	Pitch   float64
	Roll    float64
}

// Magnitude folds an orientation into a single tilt score: the rounded sum of
// the absolute angles in degrees.
func Magnitude(o Orientation) int {
	sum := math.Abs(degrees(o.Azimuth)) + math.Abs(degrees(o.Pitch)) + math.Abs(degrees(o.Roll))

	return int(math.Round(sum))
}

// Detector compares consecutive window averages of tilt deltas and reports
// an abrupt change. The first window only establishes the baseline.
// Not safe for concurrent use.
type Detector struct {
	samples         [WindowSize]int
	count           int
	runningSum      int
	previousAverage int
	lastSample      int
}

// NewDetector returns a detector with no baseline.
func NewDetector() *Detector {
	return new(Detector)
}

// Observe feeds one orientation and reports whether auto-dismiss should fire.
func (d *Detector) Observe(o Orientation) bool {
	return d.ObserveMagnitude(Magnitude(o))
}

// ObserveMagnitude feeds one precomputed magnitude.
func (d *Detector) ObserveMagnitude(magnitude int) bool {
	d.samples[d.count] = magnitude
	if d.count > 0 {
		d.runningSum += abs(magnitude - d.lastSample)
	}

	d.lastSample = magnitude
	d.count++

	if d.count < WindowSize {
		return false
	}

	average := d.runningSum / WindowSize
	fire := d.previousAverage != 0 && abs(average-d.previousAverage) > SensitivityThreshold

	d.previousAverage = average
	d.count = 0
	d.runningSum = 0

	return fire
}

// Window returns the samples collected in the current, incomplete window.
func (d *Detector) Window() []int {
	out := make([]int, d.count)
	copy(out, d.samples[:d.count])

	return out
}

// RunningSum returns the delta sum of the current window.
func (d *Detector) RunningSum() int {
	return d.runningSum
}

// PreviousAverage returns the last completed window average, 0 when none.
func (d *Detector) PreviousAverage() int {
	return d.previousAverage
}

// LastSample returns the most recent magnitude.
func (d *Detector) LastSample() int {
	return d.lastSample
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
