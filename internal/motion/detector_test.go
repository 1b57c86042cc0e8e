package motion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// windowWithSum returns a full window whose delta sum equals sum.
func windowWithSum(sum int) []int {
	w := make([]int, WindowSize)
	w[WindowSize-1] = sum

	return w
}

// feed pushes magnitudes into d and returns the index of every fired sample.
func feed(d *Detector, magnitudes ...int) []int {
	var fired []int

	for i, m := range magnitudes {
		if d.ObserveMagnitude(m) {
			fired = append(fired, i)
		}
	}

	return fired
}

// TestMagnitude verifies the degree conversion, absolute values and rounding.
func TestMagnitude(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, Magnitude(Orientation{}))
	require.Equal(t, 180, Magnitude(Orientation{Roll: -math.Pi}))
	require.Equal(t, 135, Magnitude(Orientation{Azimuth: math.Pi / 2, Pitch: -math.Pi / 4}))
	// 0.4° + 0.4° rounds to 1.
	require.Equal(t, 1, Magnitude(Orientation{Azimuth: 0.4 * math.Pi / 180, Pitch: 0.4 * math.Pi / 180}))
}

// TestConstantWindowNeverFires checks the no-baseline rule and a zero running sum.
func TestConstantWindowNeverFires(t *testing.T) {
	t.Parallel()

	for _, m := range []int{0, 17, 90, 450} {
		d := NewDetector()

		for i := 0; i < WindowSize-1; i++ {
			require.False(t, d.ObserveMagnitude(m))
		}

		require.Equal(t, 0, d.RunningSum())
		require.Len(t, d.Window(), WindowSize-1)
		require.False(t, d.ObserveMagnitude(m))
		require.Equal(t, 0, d.PreviousAverage())
		require.Empty(t, d.Window())
	}
}

// TestFirstWindowNeverFires ensures even a violent first window only sets the baseline.
func TestFirstWindowNeverFires(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	require.Empty(t, feed(d, 0, 400, 0, 400, 0, 400, 0, 400))
	require.Equal(t, 7*400/WindowSize, d.PreviousAverage())
}

// TestWindowAverageScenario replays window averages 10, 10, 60.
func TestWindowAverageScenario(t *testing.T) {
	t.Parallel()

	d := NewDetector()

	require.Empty(t, feed(d, windowWithSum(80)...))
	require.Equal(t, 10, d.PreviousAverage())

	require.Empty(t, feed(d, windowWithSum(80)...))
	require.Equal(t, 10, d.PreviousAverage())

	require.Equal(t, []int{WindowSize - 1}, feed(d, windowWithSum(480)...))
	require.Equal(t, 60, d.PreviousAverage())
}

// TestThresholdBoundary checks that a change of exactly 40 does not fire and 41 does.
func TestThresholdBoundary(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		baseline int
		next     int
		fire     bool
	}{
		{name: "exactly threshold", baseline: 10, next: 50, fire: false},
		{name: "just above threshold", baseline: 10, next: 51, fire: true},
		{name: "drop above threshold", baseline: 60, next: 19, fire: true},
		{name: "drop at threshold", baseline: 60, next: 20, fire: false},
		{name: "zero baseline", baseline: 0, next: 100, fire: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := NewDetector()
			require.Empty(t, feed(d, windowWithSum(tc.baseline*WindowSize)...))
			require.Equal(t, tc.baseline, d.PreviousAverage())

			fired := feed(d, windowWithSum(tc.next*WindowSize)...)
			require.Equal(t, tc.fire, len(fired) == 1)
		})
	}
}

// TestIntegerTruncation verifies the window average truncates toward zero.
func TestIntegerTruncation(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	feed(d, windowWithSum(87)...)
	require.Equal(t, 10, d.PreviousAverage())

	// 407/8 = 50, |50-10| = 40: not enough.
	require.Empty(t, feed(d, windowWithSum(407)...))

	// 408/8 = 51 vs baseline 50.
	require.Empty(t, feed(d, windowWithSum(408)...))
	require.Equal(t, 51, d.PreviousAverage())
}

// TestDeltasDoNotSpanWindows ensures the first sample of a window adds no delta.
func TestDeltasDoNotSpanWindows(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	feed(d, windowWithSum(80)...)
	require.Equal(t, 80, d.LastSample())

	d.ObserveMagnitude(300)
	require.Equal(t, 0, d.RunningSum())

	d.ObserveMagnitude(310)
	require.Equal(t, 10, d.RunningSum())
}

// TestObserveOrientation wires the orientation path end to end.
func TestObserveOrientation(t *testing.T) {
	t.Parallel()

	flat := Orientation{}
	flipped := Orientation{Roll: math.Pi}

	d := NewDetector()

	for i := 0; i < 2*WindowSize; i++ {
		o := flat
		if i%2 == 1 {
			o = flipped
		}

		require.False(t, d.Observe(o))
	}

	for i := 0; i < WindowSize-1; i++ {
		require.False(t, d.Observe(flat))
	}

	require.True(t, d.Observe(flat))
}
