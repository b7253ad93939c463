package domain

const (
	// MaxPointsPerQuestion is the score for an instant correct answer.
	MaxPointsPerQuestion = 10.0
	// AnswerWindowSeconds is the time span over which the score decays.
	AnswerWindowSeconds = 30.0

	scoreDecayFactor = 0.9
	minCorrectPoints = 1.0
)

// Score maps a submission's correctness and elapsed time to points.
// The score decays linearly over the answer window; a correct answer always
// earns at least one point, even past the window. Wrong answers earn nothing.
func Score(correct bool, timeTakenSeconds float64) float64 {
	if !correct {
		return 0.0
	}
	if timeTakenSeconds < 0 {
		timeTakenSeconds = 0
	}
	ratio := timeTakenSeconds / AnswerWindowSeconds
	if ratio > 1 {
		ratio = 1
	}
	raw := MaxPointsPerQuestion * (1.0 - ratio*scoreDecayFactor)
	if raw < minCorrectPoints {
		return minCorrectPoints
	}
	return raw
}
