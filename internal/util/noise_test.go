package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseDeterministic(t *testing.T) {
	a := NewNoise(42, 0.01, 1.2)
	b := NewNoise(42, 0.01, 1.2)

	for i := 0; i < 100; i++ {
		x, y := float64(i*13), float64(i*-7)
		assert.Equal(t, a.At2D(x, y), b.At2D(x, y),
			"одинаковый сид даёт одинаковый шум в точке (%v, %v)", x, y)
	}
}

func TestNoiseSeedChangesField(t *testing.T) {
	a := NewNoise(1, 0.01, 1.2)
	b := NewNoise(2, 0.01, 1.2)

	differs := false
	for i := 1; i < 100 && !differs; i++ {
		x, y := float64(i)*3.7, float64(i)*-1.3
		differs = a.At2D(x, y) != b.At2D(x, y)
	}
	assert.True(t, differs, "разные сиды дают разные поля")
}

func TestNoiseRange(t *testing.T) {
	n := NewNoise(7, 0.05, 2.5)
	for i := -50; i < 50; i++ {
		v := n.At2D(float64(i)*1.7, float64(-i)*0.9)
		assert.GreaterOrEqual(t, v, 0.0, "шум не меньше 0")
		assert.LessOrEqual(t, v, 1.0, "шум не больше 1")
	}
}
