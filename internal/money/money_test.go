package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name      string
		qty, unit float64
		want      float64
	}{
		{"integers", 3, 45, 135},
		{"cents", 2.5, 19.99, 49.98},
		{"float noise", 0.1, 3, 0.3},
		{"rounding half up", 1, 10.005, 10.01},
		{"zero qty", 0, 12.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineTotal(tt.qty, tt.unit))
		})
	}
}

func TestPctChange(t *testing.T) {
	assert.Equal(t, 12.5, PctChange(40, 45))
	assert.Equal(t, -25.0, PctChange(40, 30))
	assert.Equal(t, 0.0, PctChange(0, 30))
	assert.Equal(t, 33.33, PctChange(30, 40))
}

func TestAvg(t *testing.T) {
	assert.Equal(t, 45.0, Avg([]float64{42, 45, 48}))
	assert.Equal(t, 0.0, Avg(nil))
	assert.Equal(t, 10.33, Avg([]float64{10, 10, 11}))
}

func TestIsPrice(t *testing.T) {
	assert.True(t, IsPrice(0.01))
	assert.False(t, IsPrice(0))
	assert.False(t, IsPrice(-1))
	assert.False(t, IsPrice(math.NaN()))
	assert.False(t, IsPrice(math.Inf(1)))
}
