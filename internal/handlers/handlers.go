// Package handlers implements the host commands: vessel and control updates,
// part assembly, session lifecycle and the physics tick.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/internal/api"
	"github.com/rcsfx/extension/internal/cache"
	"github.com/rcsfx/extension/internal/dispatcher"
	"github.com/rcsfx/extension/internal/effects"
	"github.com/rcsfx/extension/internal/influx"
	"github.com/rcsfx/extension/internal/logging"
	"github.com/rcsfx/extension/internal/parser"
	"github.com/rcsfx/extension/internal/part"
	"github.com/rcsfx/extension/internal/resource"
	"github.com/rcsfx/extension/internal/session"
	"github.com/rcsfx/extension/internal/sim"
	"github.com/rcsfx/extension/internal/storage"
	"github.com/rcsfx/extension/internal/util"
	"github.com/rcsfx/extension/pkg/core"
)

var (
	// ErrNoSession is returned by commands that need an active session.
	ErrNoSession = errors.New("no active session")
	// ErrSessionActive is returned when a session is started twice.
	ErrSessionActive = errors.New("session already active")
	// ErrUnknownPart is returned for part ids that were never assembled.
	ErrUnknownPart = errors.New("unknown part")
)

// Host commands.
const (
	CmdVersion      = ":VERSION:"
	CmdVessel       = ":VESSEL:"
	CmdControl      = ":CTRL:"
	CmdThrusterAdd  = ":THRUSTER:ADD:"
	CmdTankAdd      = ":TANK:ADD:"
	CmdPartEnable   = ":PART:ENABLE:"
	CmdPartInfo     = ":PART:INFO:"
	CmdTick         = ":TICK:"
	CmdSessionStart = ":SESSION:START:"
	CmdSessionEnd   = ":SESSION:END:"
	CmdMetric       = ":METRIC:"
)

// Uploader ships an exported session file to a remote server.
type Uploader interface {
	Upload(filePath string, meta api.UploadMetadata) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Vessel   *sim.Vessel
	Parts    *cache.PartCache
	Library  *resource.Library
	Template part.Spec // block used for parts assembled by :THRUSTER:ADD:

	Backend  storage.Backend // optional
	Metrics  *influx.Manager // optional
	Effects  effects.Sink    // optional
	Uploader Uploader        // optional, needs an exporting backend

	LogManager       *logging.SlogManager
	TickDuration     float64
	ExtensionVersion string

	// OnSessionEnd runs after the backend closed the session, e.g. to flush telemetry.
	OnSessionEnd func(context.Context) error
}

// Service provides handler methods for processing host commands
type Service struct {
	deps   Dependencies
	ctx    *session.Context
	parser *parser.Parser
	logger *slog.Logger

	mu  sync.Mutex // guards sim
	sim *sim.Simulation

	sessions cache.SafeCounter // IDs when no backend assigns them
	ticks    cache.SafeCounter
}

// NewService creates a new handler service
func NewService(deps Dependencies, ctx *session.Context) *Service {
	logger := slog.Default()
	if deps.LogManager != nil {
		logger = deps.LogManager.Logger()
	}
	if deps.Parts == nil {
		deps.Parts = cache.NewPartCache()
	}
	if deps.Library == nil {
		deps.Library = resource.DefaultLibrary()
	}
	if deps.Vessel == nil {
		deps.Vessel = sim.NewVessel(sim.NewBody(1), resource.NewPool(deps.Library))
	}
	if deps.Effects == nil {
		deps.Effects = effects.Nop{}
	}
	if deps.TickDuration <= 0 {
		deps.TickDuration = 0.02
	}
	if ctx == nil {
		ctx = session.NewContext()
	}
	return &Service{
		deps:   deps,
		ctx:    ctx,
		parser: parser.NewParser(logger),
		logger: logger,
	}
}

// SessionContext returns the session context
func (s *Service) SessionContext() *session.Context {
	return s.ctx
}

// Ticks returns the number of ticks run in the current session.
func (s *Service) Ticks() int {
	return s.ticks.Value()
}

// LogContext reports the active session and tick for log records.
func (s *Service) LogContext() logging.ContextProvider {
	return logging.SessionContext(
		s.ctx.Active,
		func() uint { return s.ctx.GetSession().ID },
		func() uint { return uint(s.ticks.Value()) },
	)
}

// RegisterHandlers registers every host command with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	gate := dispatcher.Gated(s.requireSession)

	d.Register(CmdVersion, s.handleVersion)
	d.Register(CmdVessel, s.handleVessel)
	d.Register(CmdControl, s.handleControl)
	d.Register(CmdThrusterAdd, s.handleThrusterAdd, dispatcher.Logged())
	d.Register(CmdTankAdd, s.handleTankAdd, dispatcher.Logged())
	d.Register(CmdPartEnable, s.handlePartEnable, dispatcher.Logged())
	d.Register(CmdPartInfo, s.handlePartInfo)
	d.Register(CmdTick, s.handleTick, gate)
	d.Register(CmdSessionStart, s.handleSessionStart, dispatcher.Logged())
	d.Register(CmdSessionEnd, s.handleSessionEnd, gate, dispatcher.Logged())
	if s.deps.Metrics != nil {
		d.Register(CmdMetric, s.handleMetric, dispatcher.Buffered(256))
	}
}

func (s *Service) requireSession() error {
	if !s.ctx.Active() {
		return ErrNoSession
	}
	return nil
}

func (s *Service) handleVersion(dispatcher.Event) (any, error) {
	return s.deps.ExtensionVersion, nil
}

// handleVessel applies frame|velocity|com|rcs|controllable|inEditor|pressure[|warpRate|warpMode].
func (s *Service) handleVessel(e dispatcher.Event) (any, error) {
	u, err := s.parser.ParseVessel(e.Args)
	if err != nil {
		return nil, fmt.Errorf("vessel: %w", err)
	}

	s.deps.Vessel.Update(func(st *sim.State) {
		st.Frame = u.Frame
		st.RCS = u.RCS
		st.Controllable = u.Controllable
		st.InEditor = u.InEditor
		st.StaticPressure = u.StaticPressure
		st.WarpRate = u.WarpRate
		st.WarpMode = u.WarpMode
	})
	s.deps.Vessel.Body.SetKinematics(u.Velocity, u.CenterOfMass)
	return nil, nil
}

// handleControl sets the control state. A single "nil" argument clears it,
// meaning the vessel has no active control context.
func (s *Service) handleControl(e dispatcher.Event) (any, error) {
	if len(e.Args) == 1 && util.IsNil(e.Args[0]) {
		s.deps.Vessel.Update(func(st *sim.State) { st.Control = nil })
		return nil, nil
	}

	ctrl, err := s.parser.ParseControl(e.Args)
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	s.deps.Vessel.Update(func(st *sim.State) { st.Control = &ctrl })
	return nil, nil
}

// handleThrusterAdd appends a nozzle to a part, assembling the part from the
// template on first use. It returns the part's thruster count.
func (s *Service) handleThrusterAdd(e dispatcher.Event) (any, error) {
	t, err := s.parser.ParseThruster(e.Args)
	if err != nil {
		return nil, fmt.Errorf("thruster: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.deps.Parts.Get(t.PartID); ok {
		return existing.AddThruster(t.Thruster), nil
	}

	p := part.New(t.PartID, s.deps.Template,
		part.WithPropellant(s.deps.Vessel.Pool.Requester(t.PartID)),
		part.WithLogger(s.logger),
	)
	n := p.AddThruster(t.Thruster)
	s.deps.Parts.Add(p)
	return n, nil
}

// handleTankAdd adds partID|resource|amount[|stage[|capacity]] to the pool.
func (s *Service) handleTankAdd(e dispatcher.Event) (any, error) {
	if len(e.Args) < 3 || len(e.Args) > 5 {
		return nil, fmt.Errorf("tank: %w: want 3 to 5, got %d", parser.ErrArgCount, len(e.Args))
	}

	tank := resource.Tank{
		PartID:   util.TrimQuotes(e.Args[0]),
		Resource: util.TrimQuotes(e.Args[1]),
	}
	if _, ok := s.deps.Library.Get(tank.Resource); !ok {
		return nil, fmt.Errorf("tank: unknown resource %q", tank.Resource)
	}

	var err error
	if tank.Amount, err = parser.ParseFloat(e.Args[2]); err != nil {
		return nil, fmt.Errorf("tank amount: %w", err)
	}
	if len(e.Args) > 3 {
		if tank.Stage, err = parser.ParseInt(e.Args[3]); err != nil {
			return nil, fmt.Errorf("tank stage: %w", err)
		}
	}
	if len(e.Args) > 4 {
		if tank.Capacity, err = parser.ParseFloat(e.Args[4]); err != nil {
			return nil, fmt.Errorf("tank capacity: %w", err)
		}
	}

	s.deps.Vessel.Pool.AddTank(tank)
	return s.deps.Vessel.Pool.Amount(tank.Resource), nil
}

// handlePartEnable toggles partID|enabled.
func (s *Service) handlePartEnable(e dispatcher.Event) (any, error) {
	if len(e.Args) != 2 {
		return nil, fmt.Errorf("part enable: %w: want 2, got %d", parser.ErrArgCount, len(e.Args))
	}
	p, err := s.part(e.Args[0])
	if err != nil {
		return nil, err
	}
	on, err := parser.ParseBool(e.Args[1])
	if err != nil {
		return nil, fmt.Errorf("part enable: %w", err)
	}
	p.SetEnabled(on)
	return nil, nil
}

func (s *Service) handlePartInfo(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("part info: %w: want 1, got %d", parser.ErrArgCount, len(e.Args))
	}
	p, err := s.part(e.Args[0])
	if err != nil {
		return nil, err
	}
	return p.Info(s.deps.Library), nil
}

func (s *Service) part(arg string) (*part.Part, error) {
	id := util.TrimQuotes(arg)
	p, ok := s.deps.Parts.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPart, id)
	}
	return p, nil
}

// PartResult is the per-part outcome of a tick.
type PartResult struct {
	ID          string  `json:"id"`
	Success     bool    `json:"success"`
	Suppressed  bool    `json:"suppressed"`
	EffectPower float64 `json:"effectPower"`
	TotalThrust float64 `json:"totalThrust"`
}

// TickResult is returned to the host after a physics step.
type TickResult struct {
	Tick   uint         `json:"tick"`
	Force  mgl64.Vec3   `json:"force"`
	Torque mgl64.Vec3   `json:"torque"`
	Parts  []PartResult `json:"parts"`
	Events []string     `json:"events,omitempty"`
}

// handleTick runs one physics step. Recording failures are logged by the
// simulation and do not fail the tick.
func (s *Service) handleTick(e dispatcher.Event) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sim == nil {
		return nil, ErrNoSession
	}

	res, err := s.sim.Step(context.Background())
	if res.Records == nil && err != nil {
		return nil, fmt.Errorf("tick: %w", err)
	}
	s.ticks.Set(int(s.sim.Tick()))

	out := TickResult{
		Tick:   res.Tick,
		Force:  res.Force,
		Torque: res.Torque,
		Parts:  make([]PartResult, 0, len(res.Records)),
	}
	for _, rec := range res.Records {
		out.Parts = append(out.Parts, PartResult{
			ID:          rec.PartID,
			Success:     rec.Success,
			Suppressed:  rec.Suppressed,
			EffectPower: rec.EffectPower,
			TotalThrust: rec.TotalThrust,
		})
	}
	for _, ev := range res.Events {
		out.Events = append(out.Events, ev.Channel)
	}
	return out, nil
}

// handleSessionStart opens a session: name[|tickDuration]. It returns the
// assigned session ID.
func (s *Service) handleSessionStart(e dispatcher.Event) (any, error) {
	if s.ctx.Active() {
		return nil, ErrSessionActive
	}

	ss, err := s.parser.ParseSessionStart(e.Args)
	if err != nil {
		return nil, fmt.Errorf("session start: %w", err)
	}
	dt := ss.TickDuration
	if dt <= 0 {
		dt = s.deps.TickDuration
	}
	name := ss.Name
	if name == "" {
		name = "session"
	}

	thrusters := 0
	for _, p := range s.deps.Parts.All() {
		thrusters += len(p.Spec().Thrusters)
	}

	sess := &core.Session{
		Name:             name,
		PartName:         s.deps.Template.Name,
		StartTime:        e.Timestamp,
		TickDuration:     dt,
		ThrusterCount:    thrusters,
		ExtensionVersion: s.deps.ExtensionVersion,
	}

	opts := []sim.Option{
		sim.WithEffects(s.deps.Effects),
		sim.WithLogger(s.logger),
	}
	if s.deps.Backend != nil {
		if err := s.deps.Backend.StartSession(sess); err != nil {
			return nil, fmt.Errorf("session start: %w", err)
		}
		opts = append(opts, sim.WithRecorder(s.deps.Backend))
	} else {
		s.sessions.Inc()
		sess.ID = uint(s.sessions.Value())
	}
	if s.deps.Metrics != nil {
		opts = append(opts, sim.WithRecorder(s.deps.Metrics))
	}

	simulation, err := sim.New(s.deps.Vessel, s.deps.Parts, dt, opts...)
	if err != nil {
		return nil, fmt.Errorf("session start: %w", err)
	}
	simulation.StartSession(sess.ID)

	s.mu.Lock()
	s.sim = simulation
	s.mu.Unlock()
	s.ticks.Set(0)
	s.ctx.Start(sess)

	s.logger.Info("session started", "session", sess.ID, "name", sess.Name, "thrusters", thrusters, "dt", dt)
	return sess.ID, nil
}

// handleSessionEnd closes the session. It returns the exported file path
// when the backend writes one.
func (s *Service) handleSessionEnd(dispatcher.Event) (any, error) {
	return s.EndSession(context.Background())
}

// EndSession closes the active session, if any.
func (s *Service) EndSession(ctx context.Context) (string, error) {
	if !s.ctx.Active() {
		return "", nil
	}

	s.mu.Lock()
	s.sim = nil
	s.mu.Unlock()
	sess := s.ctx.End()

	var errs []error
	var exported string
	if s.deps.Backend != nil {
		if err := s.deps.Backend.EndSession(); err != nil {
			errs = append(errs, fmt.Errorf("backend: %w", err))
		}
		if exp, ok := s.deps.Backend.(storage.Exportable); ok {
			exported = exp.ExportedFilePath()
		}
	}
	if exported != "" && s.deps.Uploader != nil {
		if err := s.deps.Uploader.Upload(exported, api.MetadataFor(sess, s.ticks.Value())); err != nil {
			errs = append(errs, fmt.Errorf("upload: %w", err))
		} else {
			s.logger.Info("session uploaded", "session", sess.ID, "file", exported)
		}
	}
	if s.deps.OnSessionEnd != nil {
		if err := s.deps.OnSessionEnd(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("session ended", "session", sess.ID, "ticks", s.ticks.Value(), "export", exported)
	if err := errors.Join(errs...); err != nil {
		return exported, fmt.Errorf("session end: %w", err)
	}
	return exported, nil
}

// handleMetric writes a custom point: measurement|tag::k::v|field::type::k::v...
func (s *Service) handleMetric(e dispatcher.Event) (any, error) {
	point, err := influx.ParseMetric(util.UnquoteAll(e.Args))
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Metrics.WritePoint(point)
}
