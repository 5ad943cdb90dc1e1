package sim

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Body is a minimal rigid body: it accumulates forces applied during a step
// and integrates linear motion. Rotation is left to the host.
type Body struct {
	mu           sync.Mutex
	mass         float64
	position     mgl64.Vec3
	velocity     mgl64.Vec3
	centerOfMass mgl64.Vec3 // vessel frame

	force  mgl64.Vec3
	torque mgl64.Vec3
}

// NewBody creates a body at rest at the origin.
func NewBody(mass float64) *Body {
	return &Body{mass: mass}
}

// AddForceAtPosition accumulates force and the torque it produces about the
// center of mass.
func (b *Body) AddForceAtPosition(force, position mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(position.Sub(b.centerOfMass).Cross(force))
}

// SetKinematics overrides velocity and center of mass, as reported by a host
// that owns integration.
func (b *Body) SetKinematics(velocity, centerOfMass mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.velocity = velocity
	b.centerOfMass = centerOfMass
}

// SetMass sets the body mass.
func (b *Body) SetMass(m float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mass = m
}

// Kinematics returns position, velocity and center of mass.
func (b *Body) Kinematics() (position, velocity, centerOfMass mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position, b.velocity, b.centerOfMass
}

// Flush returns the accumulated force and torque and clears them.
func (b *Body) Flush() (force, torque mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	force, torque = b.force, b.torque
	b.force, b.torque = mgl64.Vec3{}, mgl64.Vec3{}
	return force, torque
}

// Integrate applies the accumulated force over dt with semi-implicit Euler
// and clears the accumulators.
func (b *Body) Integrate(dt float64) (force, torque mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	force, torque = b.force, b.torque
	if b.mass > 0 {
		b.velocity = b.velocity.Add(force.Mul(dt / b.mass))
	}
	b.position = b.position.Add(b.velocity.Mul(dt))
	b.force, b.torque = mgl64.Vec3{}, mgl64.Vec3{}
	return force, torque
}
