package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/internal/util"
	"github.com/rcsfx/extension/pkg/core"
)

var (
	ErrArgCount      = errors.New("wrong number of arguments")
	ErrInvalidNumber = errors.New("invalid number")
	ErrInvalidVector = errors.New("invalid vector")
	ErrInvalidBool   = errors.New("invalid bool")
)

// parseIntFromFloat parses a string that may be an integer ("32") or a float
// ("32.00") into int64. The host serializes every number as a float.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// clean strips host quoting from a raw argument.
func clean(s string) string {
	return util.Unquote(s)
}

// ParseFloat parses a host number.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(clean(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}

// ParseInt parses a host number that must be integral.
func ParseInt(s string) (int, error) {
	v, err := parseIntFromFloat(clean(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return int(v), nil
}

// ParseBool accepts true/false in any case and the numeric forms 1/0.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(clean(s)) {
	case "true", "1", "1.0", "1.00":
		return true, nil
	case "false", "0", "0.0", "0.00", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidBool, s)
}

func parseFloats(s string, n int) ([]float64, error) {
	var vals []float64
	if err := json.Unmarshal([]byte(clean(s)), &vals); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidVector, s, err)
	}
	if len(vals) != n {
		return nil, fmt.Errorf("%w: %q: want %d components, got %d", ErrInvalidVector, s, n, len(vals))
	}
	return vals, nil
}

// ParseVector parses "[x,y,z]".
func ParseVector(s string) (mgl64.Vec3, error) {
	v, err := parseFloats(s, 3)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

// ParseQuat parses "[w,x,y,z]". The result is normalized; a zero quaternion
// is returned unchanged and treated as identity downstream.
func ParseQuat(s string) (mgl64.Quat, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return mgl64.Quat{}, err
	}
	q := mgl64.Quat{W: v[0], V: mgl64.Vec3{v[1], v[2], v[3]}}
	if q.Len() == 0 {
		return q, nil
	}
	return q.Normalize(), nil
}

// ParseWarpMode accepts "high"/"low" or the numeric mode.
func ParseWarpMode(s string) (core.WarpMode, error) {
	switch strings.ToLower(clean(s)) {
	case "high", "1":
		return core.WarpHigh, nil
	case "low", "0", "":
		return core.WarpLow, nil
	}
	return core.WarpLow, fmt.Errorf("%w: warp mode %q", ErrInvalidNumber, s)
}

// Parser converts host argument lists into domain values.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

func wantArgs(data []string, min, max int) error {
	if len(data) < min || len(data) > max {
		if min == max {
			return fmt.Errorf("%w: want %d, got %d", ErrArgCount, min, len(data))
		}
		return fmt.Errorf("%w: want %d to %d, got %d", ErrArgCount, min, max, len(data))
	}
	return nil
}

// ParseControl parses x|y|z|pitch|roll|yaw|mainThrottle[|precision].
// Axis values are clamped to [-1, 1] and the throttle to [0, 1].
func (p *Parser) ParseControl(data []string) (core.ControlState, error) {
	var ctrl core.ControlState
	if err := wantArgs(data, 7, 8); err != nil {
		return ctrl, err
	}

	vals := make([]float64, 7)
	for i := range vals {
		v, err := ParseFloat(data[i])
		if err != nil {
			return ctrl, fmt.Errorf("control arg %d: %w", i, err)
		}
		vals[i] = v
	}

	ctrl.X = mgl64.Clamp(vals[0], -1, 1)
	ctrl.Y = mgl64.Clamp(vals[1], -1, 1)
	ctrl.Z = mgl64.Clamp(vals[2], -1, 1)
	ctrl.Pitch = mgl64.Clamp(vals[3], -1, 1)
	ctrl.Roll = mgl64.Clamp(vals[4], -1, 1)
	ctrl.Yaw = mgl64.Clamp(vals[5], -1, 1)
	ctrl.MainThrottle = mgl64.Clamp(vals[6], 0, 1)

	if len(data) == 8 {
		precision, err := ParseBool(data[7])
		if err != nil {
			return ctrl, fmt.Errorf("precision: %w", err)
		}
		ctrl.Precision = precision
	}
	return ctrl, nil
}

// ParseVessel parses
// frame|velocity|com|rcs|controllable|inEditor|staticPressure|warpRate|warpMode.
// The trailing warp fields are optional and default to 1x low warp.
func (p *Parser) ParseVessel(data []string) (VesselUpdate, error) {
	u := VesselUpdate{WarpRate: 1, WarpMode: core.WarpLow}
	if err := wantArgs(data, 7, 9); err != nil {
		return u, err
	}

	var err error
	if u.Frame, err = ParseQuat(data[0]); err != nil {
		return u, fmt.Errorf("frame: %w", err)
	}
	if u.Velocity, err = ParseVector(data[1]); err != nil {
		return u, fmt.Errorf("velocity: %w", err)
	}
	if u.CenterOfMass, err = ParseVector(data[2]); err != nil {
		return u, fmt.Errorf("center of mass: %w", err)
	}
	if u.RCS, err = ParseBool(data[3]); err != nil {
		return u, fmt.Errorf("rcs: %w", err)
	}
	if u.Controllable, err = ParseBool(data[4]); err != nil {
		return u, fmt.Errorf("controllable: %w", err)
	}
	if u.InEditor, err = ParseBool(data[5]); err != nil {
		return u, fmt.Errorf("in editor: %w", err)
	}
	if u.StaticPressure, err = ParseFloat(data[6]); err != nil {
		return u, fmt.Errorf("static pressure: %w", err)
	}
	if u.StaticPressure < 0 {
		p.logger.Warn("negative static pressure clamped", "value", u.StaticPressure)
		u.StaticPressure = 0
	}
	if len(data) > 7 {
		if u.WarpRate, err = ParseFloat(data[7]); err != nil {
			return u, fmt.Errorf("warp rate: %w", err)
		}
		if u.WarpRate <= 0 {
			u.WarpRate = 1
		}
	}
	if len(data) > 8 {
		if u.WarpMode, err = ParseWarpMode(data[8]); err != nil {
			return u, fmt.Errorf("warp mode: %w", err)
		}
	}
	return u, nil
}

// ParseThruster parses partID|position|forward|up[|effectIndex].
func (p *Parser) ParseThruster(data []string) (ThrusterAdd, error) {
	var t ThrusterAdd
	if err := wantArgs(data, 4, 5); err != nil {
		return t, err
	}

	t.PartID = clean(data[0])
	if t.PartID == "" {
		return t, fmt.Errorf("%w: empty part id", ErrArgCount)
	}

	var err error
	if t.Thruster.Position, err = ParseVector(data[1]); err != nil {
		return t, fmt.Errorf("position: %w", err)
	}
	if t.Thruster.Forward, err = ParseVector(data[2]); err != nil {
		return t, fmt.Errorf("forward: %w", err)
	}
	if t.Thruster.Up, err = ParseVector(data[3]); err != nil {
		return t, fmt.Errorf("up: %w", err)
	}
	t.Thruster.EffectIndex = -1
	if len(data) == 5 {
		if t.Thruster.EffectIndex, err = ParseInt(data[4]); err != nil {
			return t, fmt.Errorf("effect index: %w", err)
		}
	}
	if t.Thruster, err = t.Thruster.Normalized(); err != nil {
		return t, fmt.Errorf("%w: %w", ErrInvalidVector, err)
	}
	return t, nil
}

// ParseSessionStart parses name[|tickDuration].
func (p *Parser) ParseSessionStart(data []string) (SessionStart, error) {
	var s SessionStart
	if err := wantArgs(data, 0, 2); err != nil {
		return s, err
	}
	if len(data) > 0 {
		s.Name = clean(data[0])
	}
	if len(data) > 1 {
		dt, err := ParseFloat(data[1])
		if err != nil {
			return s, fmt.Errorf("tick duration: %w", err)
		}
		if dt < 0 {
			return s, fmt.Errorf("%w: negative tick duration %v", ErrInvalidNumber, dt)
		}
		s.TickDuration = dt
	}
	return s, nil
}
