package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity       float64 // time gravity
	WeightLike    float64
	WeightComment float64
	WeightPost    float64
	ScaleFactor   float64
}

var DefaultRankConfig = RankConfig{
	Gravity:       1.5,
	WeightLike:    1.0,
	WeightComment: 2.0,
	WeightPost:    0.5,
	ScaleFactor:   100.0, // keeps fresh, active reports roughly in 0-100
}

// CalculateScore ranks a report by engagement, decaying with hours since its last activity.
// Journals stay alive for months, so decay starts from the newest activity, not creation.
func CalculateScore(lastActivity time.Time, likes, comments, posts int) float64 {
	return DefaultRankConfig.Score(time.Since(lastActivity).Hours(), likes, comments, posts)
}

func (c RankConfig) Score(hours float64, likes, comments, posts int) float64 {
	if hours < 0 {
		hours = 0
	}
	weightedSum := float64(likes)*c.WeightLike +
		float64(comments)*c.WeightComment +
		float64(posts)*c.WeightPost
	if weightedSum < 0 {
		weightedSum = 0
	}

	// log10(sum + 1) keeps sum=0 at 0
	numerator := math.Log10(weightedSum+1) * c.ScaleFactor
	decay := math.Pow(hours+2, c.Gravity)
	return numerator / decay
}
