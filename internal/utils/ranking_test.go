package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	c := DefaultRankConfig

	assert.Zero(t, c.Score(1, 0, 0, 0))
	assert.Greater(t, c.Score(1, 10, 0, 0), c.Score(1, 5, 0, 0), "more likes rank higher")
	assert.Greater(t, c.Score(1, 10, 2, 0), c.Score(48, 10, 2, 0), "older activity decays")
	assert.Equal(t, c.Score(0, 3, 1, 1), c.Score(-5, 3, 1, 1), "clock skew is clamped")
}
