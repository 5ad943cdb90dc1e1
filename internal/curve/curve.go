// Package curve implements the float curves used for engine performance
// (specific impulse against ambient pressure).
package curve

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidKey is returned when a key line cannot be parsed.
var ErrInvalidKey = errors.New("invalid curve key")

// Key is one control point. Tangents are slopes (value per unit time).
type Key struct {
	Time       float64
	Value      float64
	InTangent  float64
	OutTangent float64

	// auto keys get their tangents from the neighbouring segments
	auto bool
}

// FloatCurve is a cubic Hermite spline clamped to its first and last key.
type FloatCurve struct {
	keys []Key
}

// New builds a curve from keys with explicit tangents.
func New(keys ...Key) *FloatCurve {
	c := &FloatCurve{keys: append([]Key(nil), keys...)}
	c.sort()
	return c
}

// Parse reads keys in the "time value [inTangent outTangent]" format.
func Parse(lines []string) (*FloatCurve, error) {
	c := &FloatCurve{}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 2 && len(fields) != 4 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, line)
		}
		vals := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidKey, line, err)
			}
			vals[i] = v
		}
		c.Add(vals[0], vals[1], vals[2:]...)
	}
	return c, nil
}

// Add inserts a key. When tangents are omitted they are derived from the
// adjacent segments and refreshed as neighbours are added.
func (c *FloatCurve) Add(time, value float64, tangents ...float64) {
	k := Key{Time: time, Value: value, auto: len(tangents) < 2}
	if !k.auto {
		k.InTangent, k.OutTangent = tangents[0], tangents[1]
	}
	c.keys = append(c.keys, k)
	c.sort()
}

// Len returns the number of keys.
func (c *FloatCurve) Len() int {
	return len(c.keys)
}

// Keys returns a copy of the keys in time order.
func (c *FloatCurve) Keys() []Key {
	out := make([]Key, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c *FloatCurve) sort() {
	sort.SliceStable(c.keys, func(i, j int) bool { return c.keys[i].Time < c.keys[j].Time })
	c.smooth()
}

func (c *FloatCurve) smooth() {
	n := len(c.keys)
	for i := range c.keys {
		if !c.keys[i].auto {
			continue
		}
		var slope float64
		switch {
		case n < 2:
			slope = 0
		case i == 0:
			slope = segmentSlope(c.keys[0], c.keys[1])
		case i == n-1:
			slope = segmentSlope(c.keys[n-2], c.keys[n-1])
		default:
			slope = (segmentSlope(c.keys[i-1], c.keys[i]) + segmentSlope(c.keys[i], c.keys[i+1])) / 2
		}
		c.keys[i].InTangent = slope
		c.keys[i].OutTangent = slope
	}
}

func segmentSlope(a, b Key) float64 {
	dt := b.Time - a.Time
	if dt == 0 {
		return 0
	}
	return (b.Value - a.Value) / dt
}

// Evaluate returns the curve value at t. An empty curve evaluates to 0.
func (c *FloatCurve) Evaluate(t float64) float64 {
	n := len(c.keys)
	if n == 0 {
		return 0
	}
	if t <= c.keys[0].Time {
		return c.keys[0].Value
	}
	if t >= c.keys[n-1].Time {
		return c.keys[n-1].Value
	}

	i := sort.Search(n, func(i int) bool { return c.keys[i].Time > t })
	k0, k1 := c.keys[i-1], c.keys[i]
	dt := k1.Time - k0.Time
	if dt == 0 {
		return k1.Value
	}

	s := (t - k0.Time) / dt
	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	return h00*k0.Value + h10*dt*k0.OutTangent + h01*k1.Value + h11*dt*k1.InTangent
}
