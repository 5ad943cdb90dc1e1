// Package influx writes per-tick thruster metrics to InfluxDB, falling back
// to a gzipped line-protocol file when the server cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/pkg/core"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx disabled")

// Measurement names.
const (
	MeasurementTick   = "rcs_tick"
	MeasurementEffect = "rcs_effect"
)

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client  influxdb2.Client
	Writer  influxdb2_api.WriteAPI
	IsValid bool
	Logger  zerolog.Logger

	cfg        config.InfluxConfig
	backupPath string

	mu           sync.Mutex
	backupFile   *os.File
	BackupWriter *gzip.Writer
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		cfg:        cfg,
		Logger:     log,
		backupPath: backupPath,
	}
}

// ServerURL returns protocol://host:port.
func (m *Manager) ServerURL() string {
	return fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
}

// Connect establishes a connection to InfluxDB. An unreachable server is not
// an error: points go to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.ServerURL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("backupPath", m.backupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}

	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.Writer.Errors())

	m.IsValid = true
	m.Logger.Info().Str("url", m.ServerURL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", m.cfg.Org, err)
		}
	}

	if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}

	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * 30,
	})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// TickPoint builds the rcs_tick point for one tick record.
func TickPoint(r *core.TickRecord) *influxdb2_write.Point {
	var fired, starved int
	var intensity float64
	for _, s := range r.Thrusters {
		switch s.Status {
		case core.StatusFiring.String():
			fired++
		case core.StatusStarved.String():
			starved++
		}
		intensity += s.Intensity
	}

	return influxdb2_write.NewPoint(
		MeasurementTick,
		map[string]string{
			"part":    r.PartID,
			"session": strconv.FormatUint(uint64(r.SessionID), 10),
		},
		map[string]any{
			"tick":            int64(r.Tick),
			"effect_power":    r.EffectPower,
			"total_thrust":    r.TotalThrust,
			"propellant_mass": r.PropellantMass,
			"intensity":       intensity,
			"fired":           fired,
			"starved":         starved,
			"success":         r.Success,
			"suppressed":      r.Suppressed,
		},
		r.Time,
	)
}

// RecordTick writes the tick as an rcs_tick point.
func (m *Manager) RecordTick(r *core.TickRecord) error {
	return m.WritePoint(TickPoint(r))
}

// RecordEffectEvent writes the event as an rcs_effect point.
func (m *Manager) RecordEffectEvent(e *core.EffectEvent) error {
	return m.WritePoint(influxdb2_write.NewPoint(
		MeasurementEffect,
		map[string]string{"part": e.PartID, "kind": e.Kind},
		map[string]any{"tick": int64(e.Tick), "channel": e.Channel},
		e.Time,
	))
}

// Close flushes pending writes and the backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return nil
	}
	err := errors.Join(m.BackupWriter.Close(), m.backupFile.Close())
	m.BackupWriter = nil
	m.backupFile = nil
	return err
}

// ParseMetric builds a custom point from host arguments:
// measurement, then "tag::name::value" and "field::type::name::value" entries
// where type is string, int, float or bool.
func ParseMetric(args []string) (*influxdb2_write.Point, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, fmt.Errorf("metric requires a measurement name")
	}

	point := influxdb2_write.NewPointWithMeasurement(args[0])
	fields := 0

	for _, arg := range args[1:] {
		parts := strings.Split(arg, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])

		case parts[0] == "field" && len(parts) >= 4:
			name, value := parts[2], parts[3]
			switch parts[1] {
			case "string":
				point.AddField(name, value)
			case "int":
				v, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("error converting field value '%s' to int: %w", value, err)
				}
				point.AddField(name, v)
			case "float":
				v, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("error converting field value '%s' to float: %w", value, err)
				}
				point.AddField(name, v)
			case "bool":
				v, err := strconv.ParseBool(value)
				if err != nil {
					return nil, fmt.Errorf("error converting field value '%s' to bool: %w", value, err)
				}
				point.AddField(name, v)
			default:
				return nil, fmt.Errorf("unknown field type %q", parts[1])
			}
			fields++
		}
	}

	if fields == 0 {
		return nil, fmt.Errorf("metric %s has no fields", args[0])
	}
	return point, nil
}
