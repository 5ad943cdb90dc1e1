// Package effects abstracts the rendering side of thruster effects as named
// channels carrying a 0..1 intensity plus one-shot triggers.
package effects

import "sync"

// Sink receives effect output. Implementations must tolerate unknown channels.
type Sink interface {
	SetIntensity(channel string, v float64)
	Trigger(channel string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) SetIntensity(string, float64) {}
func (Nop) Trigger(string)               {}

// Multi fans out to several sinks.
type Multi []Sink

func (m Multi) SetIntensity(channel string, v float64) {
	for _, s := range m {
		s.SetIntensity(channel, v)
	}
}

func (m Multi) Trigger(channel string) {
	for _, s := range m {
		s.Trigger(channel)
	}
}

// Recorder keeps the latest intensity per channel and counts triggers.
type Recorder struct {
	mu        sync.Mutex
	intensity map[string]float64
	triggers  map[string]int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		intensity: make(map[string]float64),
		triggers:  make(map[string]int),
	}
}

func (r *Recorder) SetIntensity(channel string, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intensity[channel] = v
}

func (r *Recorder) Trigger(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers[channel]++
}

// Intensity returns the last intensity set on channel.
func (r *Recorder) Intensity(channel string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.intensity[channel]
}

// Triggers returns how often channel was triggered.
func (r *Recorder) Triggers(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.triggers[channel]
}

// Channels returns a snapshot of all intensities.
func (r *Recorder) Channels() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]float64, len(r.intensity))
	for k, v := range r.intensity {
		out[k] = v
	}
	return out
}
