package parser

import (
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestParseIntFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"float with decimals", "32.00", 32, false},
		{"negative", "-3", -3, false},
		{"negative float", "-3.0", -3, false},
		{"fractional rejects", "10.5", 0, true},
		{"empty", "", 0, true},
		{"non-numeric", "abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFloat(t *testing.T) {
	v, err := ParseFloat(`"0.25"`)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	_, err = ParseFloat("fast")
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"TRUE", true, false},
		{`"true"`, true, false},
		{"1", true, false},
		{"1.00", true, false},
		{"false", false, false},
		{"0", false, false},
		{"", false, false},
		{"yes", false, true},
	}
	for _, tt := range tests {
		got, err := ParseBool(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidBool, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseVector(t *testing.T) {
	v, err := ParseVector("[1,-2.5,3.00]")
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1, -2.5, 3}, v)

	v, err = ParseVector(`"[0,0,1]"`)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, v)

	for _, bad := range []string{"[1,2]", "[1,2,3,4]", "1,2,3", "[a,b,c]", ""} {
		_, err := ParseVector(bad)
		assert.ErrorIs(t, err, ErrInvalidVector, bad)
	}
}

func TestParseQuat(t *testing.T) {
	q, err := ParseQuat("[2,0,0,0]")
	require.NoError(t, err)
	assert.InDelta(t, 1, q.W, 1e-12, "normalized")

	q, err = ParseQuat("[0,0,0,0]")
	require.NoError(t, err)
	assert.Equal(t, mgl64.Quat{}, q)

	_, err = ParseQuat("[1,0,0]")
	assert.ErrorIs(t, err, ErrInvalidVector)
}

func TestParseWarpMode(t *testing.T) {
	m, err := ParseWarpMode("HIGH")
	require.NoError(t, err)
	assert.Equal(t, core.WarpHigh, m)

	m, err = ParseWarpMode("0")
	require.NoError(t, err)
	assert.Equal(t, core.WarpLow, m)

	_, err = ParseWarpMode("ludicrous")
	assert.Error(t, err)
}

func TestParseControl(t *testing.T) {
	p := newTestParser()

	ctrl, err := p.ParseControl([]string{"0.5", "0", "-1", "0.25", "2", "-3", "0.75", "true"})
	require.NoError(t, err)
	assert.Equal(t, core.ControlState{
		X: 0.5, Y: 0, Z: -1,
		Pitch: 0.25, Roll: 1, Yaw: -1,
		MainThrottle: 0.75,
		Precision:    true,
	}, ctrl)

	ctrl, err = p.ParseControl([]string{"0", "0", "0", "0", "0", "0", "-1"})
	require.NoError(t, err)
	assert.False(t, ctrl.Precision)
	assert.Equal(t, 0.0, ctrl.MainThrottle, "throttle clamped to 0")
}

func TestParseControl_Errors(t *testing.T) {
	p := newTestParser()

	_, err := p.ParseControl([]string{"0", "0"})
	assert.ErrorIs(t, err, ErrArgCount)

	_, err = p.ParseControl([]string{"0", "0", "x", "0", "0", "0", "0"})
	assert.ErrorIs(t, err, ErrInvalidNumber)
	assert.Contains(t, err.Error(), "control arg 2")

	_, err = p.ParseControl([]string{"0", "0", "0", "0", "0", "0", "0", "maybe"})
	assert.ErrorIs(t, err, ErrInvalidBool)
}

func TestParseVessel(t *testing.T) {
	p := newTestParser()

	u, err := p.ParseVessel([]string{
		"[1,0,0,0]", "[0,1,0]", "[0,0,0.5]", "true", "1", "false", "0.8", "100", "high",
	})
	require.NoError(t, err)

	assert.Equal(t, mgl64.QuatIdent(), u.Frame)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, u.Velocity)
	assert.Equal(t, mgl64.Vec3{0, 0, 0.5}, u.CenterOfMass)
	assert.True(t, u.RCS)
	assert.True(t, u.Controllable)
	assert.False(t, u.InEditor)
	assert.Equal(t, 0.8, u.StaticPressure)
	assert.Equal(t, 100.0, u.WarpRate)
	assert.Equal(t, core.WarpHigh, u.WarpMode)
}

func TestParseVessel_Defaults(t *testing.T) {
	p := newTestParser()

	u, err := p.ParseVessel([]string{
		"[1,0,0,0]", "[0,0,0]", "[0,0,0]", "false", "true", "false", "-2",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, u.WarpRate)
	assert.Equal(t, core.WarpLow, u.WarpMode)
	assert.Equal(t, 0.0, u.StaticPressure, "negative pressure clamped")

	u, err = p.ParseVessel([]string{
		"[1,0,0,0]", "[0,0,0]", "[0,0,0]", "false", "true", "false", "0", "0",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, u.WarpRate, "non-positive rate means no warp")
}

func TestParseVessel_Errors(t *testing.T) {
	p := newTestParser()

	_, err := p.ParseVessel([]string{"[1,0,0,0]"})
	assert.ErrorIs(t, err, ErrArgCount)

	_, err = p.ParseVessel([]string{"[1,0,0]", "[0,0,0]", "[0,0,0]", "1", "1", "0", "0"})
	assert.ErrorIs(t, err, ErrInvalidVector)
	assert.Contains(t, err.Error(), "frame")
}

func TestParseThruster(t *testing.T) {
	p := newTestParser()

	add, err := p.ParseThruster([]string{`"rcs1"`, "[1,0,0]", "[0,0,1]", "[0,1,0]", "3.00"})
	require.NoError(t, err)
	assert.Equal(t, "rcs1", add.PartID)
	assert.Equal(t, core.ThrusterSpec{
		Position:    mgl64.Vec3{1, 0, 0},
		Forward:     mgl64.Vec3{0, 0, 1},
		Up:          mgl64.Vec3{0, 1, 0},
		EffectIndex: 3,
	}, add.Thruster)

	add, err = p.ParseThruster([]string{"rcs1", "[1,0,0]", "[0,0,1]", "[0,1,0]"})
	require.NoError(t, err)
	assert.Equal(t, -1, add.Thruster.EffectIndex, "unset index")

	_, err = p.ParseThruster([]string{"", "[1,0,0]", "[0,0,1]", "[0,1,0]"})
	assert.Error(t, err)

	_, err = p.ParseThruster([]string{"rcs1", "[1,0,0]", "[0,0,1]", "[0,1,0]", "1.5"})
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestParseThruster_NormalizesAxes(t *testing.T) {
	p := newTestParser()

	add, err := p.ParseThruster([]string{"rcs1", "[1,0,0]", "[0,0,4]", "[0,3,0]"})
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, add.Thruster.Forward)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, add.Thruster.Up)

	_, err = p.ParseThruster([]string{"rcs1", "[1,0,0]", "[0,0,1]", "[0,0,0]"})
	assert.ErrorIs(t, err, ErrInvalidVector)
	assert.ErrorIs(t, err, core.ErrZeroAxis)
}

func TestParseSessionStart(t *testing.T) {
	p := newTestParser()

	s, err := p.ParseSessionStart(nil)
	require.NoError(t, err)
	assert.Equal(t, SessionStart{}, s)

	s, err = p.ParseSessionStart([]string{`"docking run"`, "0.04"})
	require.NoError(t, err)
	assert.Equal(t, SessionStart{Name: "docking run", TickDuration: 0.04}, s)

	_, err = p.ParseSessionStart([]string{"x", "-1"})
	assert.ErrorIs(t, err, ErrInvalidNumber)

	_, err = p.ParseSessionStart([]string{"a", "1", "extra"})
	assert.ErrorIs(t, err, ErrArgCount)
}
