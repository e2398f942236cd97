package app

import "math"

// Levels summarizes the loudness of a block of normalized samples.
type Levels struct {
	RMS  float64
	Peak float64
}

// MeasureLevels returns the RMS and absolute peak of samples. An empty block
// measures as silence.
func MeasureLevels(samples []float32) Levels {
	if len(samples) == 0 {
		return Levels{}
	}

	var sum, peak float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return Levels{
		RMS:  math.Sqrt(sum / float64(len(samples))),
		Peak: peak,
	}
}

// DBFS converts a linear level to decibels relative to full scale.
func DBFS(level float64) float64 {
	if level <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(level)
}
