// Package carbon converts leaderboard points to carbon-saved estimates and back.
//
// The conversion is a swappable policy: the reconciliation engine only ever
// calls through Policy, so a different scoring scheme can be injected without
// touching merge logic.
package carbon

import "math"

// DefaultPointsPerKg is the leaderboard rate used by PerKg{}.
const DefaultPointsPerKg = 1000

// Policy converts between leaderboard points and kilograms of carbon saved.
type Policy interface {
	KgFromPoints(points int) float64
	PointsFromKg(kg float64) int
}

// PerKg is a linear policy awarding Rate points per kilogram.
// A zero Rate means DefaultPointsPerKg.
type PerKg struct {
	Rate int
}

// Default returns the policy used when none is configured.
func Default() Policy {
	return PerKg{Rate: DefaultPointsPerKg}
}

func (p PerKg) rate() float64 {
	if p.Rate <= 0 {
		return DefaultPointsPerKg
	}
	return float64(p.Rate)
}

// KgFromPoints returns the carbon estimate for points. Negative points yield 0.
func (p PerKg) KgFromPoints(points int) float64 {
	if points <= 0 {
		return 0
	}
	return float64(points) / p.rate()
}

// PointsFromKg returns the points earned for kg, rounded to the nearest point.
func (p PerKg) PointsFromKg(kg float64) int {
	if kg <= 0 || math.IsNaN(kg) || math.IsInf(kg, 0) {
		return 0
	}
	return int(math.Round(kg * p.rate()))
}

// Clamp returns kg, or 0 when kg is negative or not a number.
func Clamp(kg float64) float64 {
	if kg < 0 || math.IsNaN(kg) || math.IsInf(kg, 0) {
		return 0
	}
	return kg
}
