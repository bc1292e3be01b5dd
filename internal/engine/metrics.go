package engine

import "math"

// charsPerWord is the conventional word length for gross WPM.
const charsPerWord = 5.0

// Accuracy returns the percentage of typed units that matched the prompt.
// With nothing typed the accuracy is 100.
func Accuracy(typed, errors int) float64 {
	if typed <= 0 {
		return 100
	}
	if errors < 0 {
		errors = 0
	}
	if errors > typed {
		errors = typed
	}
	return float64(typed-errors) / float64(typed) * 100
}

// GrossWPM returns rounded gross words per minute over the elapsed seconds.
// Zero elapsed time yields 0.
func GrossWPM(typed, elapsedSeconds int) int {
	minutes := float64(elapsedSeconds) / 60.0
	if minutes <= 0 || typed <= 0 {
		return 0
	}
	return int(math.Round(float64(typed) / charsPerWord / minutes))
}

func computeResult(typed, errors, duration, remaining int, category string) Result {
	elapsed := duration - remaining
	if elapsed < 0 {
		elapsed = 0
	}
	return Result{
		WPM:             GrossWPM(typed, elapsed),
		Accuracy:        Accuracy(typed, errors),
		TotalTyped:      typed,
		TotalErrors:     errors,
		DurationSeconds: duration,
		ElapsedSeconds:  elapsed,
		Category:        category,
	}
}
