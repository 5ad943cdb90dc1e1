package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.SetIntensity("running", 0.4)
	r.SetIntensity("running", 0.7)
	r.Trigger("engage")
	r.Trigger("engage")

	assert.Equal(t, 0.7, r.Intensity("running"))
	assert.Equal(t, 0.0, r.Intensity("unknown"))
	assert.Equal(t, 2, r.Triggers("engage"))
	assert.Equal(t, map[string]float64{"running": 0.7}, r.Channels())
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi{a, Nop{}, b}

	m.SetIntensity("fx0", 0.5)
	m.Trigger("flameout")

	for _, r := range []*Recorder{a, b} {
		assert.Equal(t, 0.5, r.Intensity("fx0"))
		assert.Equal(t, 1, r.Triggers("flameout"))
	}
}
