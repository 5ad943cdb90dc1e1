package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Empty(t *testing.T) {
	c := &FloatCurve{}
	assert.Equal(t, 0.0, c.Evaluate(0.5))
}

func TestEvaluate_SingleKey(t *testing.T) {
	c := New(Key{Time: 0, Value: 250})
	assert.Equal(t, 250.0, c.Evaluate(-1))
	assert.Equal(t, 250.0, c.Evaluate(3))
}

func TestEvaluate_ClampsOutsideRange(t *testing.T) {
	c, err := Parse([]string{"0 240", "1 100"})
	require.NoError(t, err)

	assert.Equal(t, 240.0, c.Evaluate(-0.5))
	assert.Equal(t, 100.0, c.Evaluate(4))
}

func TestEvaluate_TwoAutoKeysIsLinear(t *testing.T) {
	c, err := Parse([]string{"0 240", "1 100"})
	require.NoError(t, err)

	tests := []struct {
		at   float64
		want float64
	}{
		{0, 240},
		{0.25, 205},
		{0.5, 170},
		{0.75, 135},
		{1, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, c.Evaluate(tt.at), 1e-9, "at %v", tt.at)
	}
}

func TestEvaluate_HitsKeysExactly(t *testing.T) {
	c, err := Parse([]string{"0 320", "1 240", "4 0.001"})
	require.NoError(t, err)

	assert.InDelta(t, 320, c.Evaluate(0), 1e-9)
	assert.InDelta(t, 240, c.Evaluate(1), 1e-9)
	assert.InDelta(t, 0.001, c.Evaluate(4), 1e-9)
}

func TestEvaluate_ExplicitFlatTangents(t *testing.T) {
	c := New(
		Key{Time: 0, Value: 0, InTangent: 0, OutTangent: 0},
		Key{Time: 2, Value: 10, InTangent: 0, OutTangent: 0},
	)

	// smoothstep midpoint
	assert.InDelta(t, 5, c.Evaluate(1), 1e-9)
	assert.Less(t, c.Evaluate(0.5), 2.5)
}

func TestAdd_KeepsKeysSorted(t *testing.T) {
	c := &FloatCurve{}
	c.Add(1, 100)
	c.Add(0, 200)
	c.Add(0.5, 150, -100, -100)

	keys := c.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, 0.0, keys[0].Time)
	assert.Equal(t, 0.5, keys[1].Time)
	assert.Equal(t, 1.0, keys[2].Time)
	assert.Equal(t, -100.0, keys[1].InTangent)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"one field", []string{"0"}},
		{"three fields", []string{"0 1 2"}},
		{"not a number", []string{"zero 240"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.lines)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestParse_WithTangents(t *testing.T) {
	c, err := Parse([]string{"0 260 0 -50", "1 210 -50 0"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	keys := c.Keys()
	assert.Equal(t, -50.0, keys[0].OutTangent)
	assert.Equal(t, -50.0, keys[1].InTangent)
}
