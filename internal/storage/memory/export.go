// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rcsfx/extension/pkg/core"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	ExtensionVersion string     `json:"extensionVersion"`
	SessionID        uint       `json:"sessionId"`
	SessionName      string     `json:"sessionName"`
	PartName         string     `json:"partName"`
	StartTime        time.Time  `json:"startTime"`
	TickDuration     float64    `json:"tickDuration"`
	EndTick          uint       `json:"endTick"`
	Parts            []PartJSON `json:"parts"`
	// Events rows are [tick, kind, partId, channel]
	Events [][]any `json:"events"`
}

// PartJSON is one part's series.
type PartJSON struct {
	ID string `json:"id"`
	// Ticks rows are [tick, effectPower, totalThrust, propellantMass, success, [intensity...]]
	Ticks   [][]any     `json:"ticks"`
	Summary PartSummary `json:"summary"`
}

// PartSummary aggregates a part's session.
type PartSummary struct {
	Ticks          int     `json:"ticks"`
	FiringTicks    int     `json:"firingTicks"`
	Engagements    int     `json:"engagements"`
	Flameouts      int     `json:"flameouts"`
	PropellantMass float64 `json:"propellantMass"`
	Impulse        float64 `json:"impulse"` // sum of thrust times tick duration
}

// exportJSON writes the session data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.ReplaceAll(b.session.Name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	if name == "" {
		name = "session"
	}
	timestamp := b.session.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%d_%s.json", name, b.session.ID, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = b.writeGzipJSON(outputPath, export)
	} else {
		err = b.writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		ExtensionVersion: b.session.ExtensionVersion,
		SessionID:        b.session.ID,
		SessionName:      b.session.Name,
		PartName:         b.session.PartName,
		StartTime:        b.session.StartTime,
		TickDuration:     b.session.TickDuration,
		Parts:            make([]PartJSON, 0, len(b.parts)),
		Events:           make([][]any, 0),
	}

	ids := make([]string, 0, len(b.parts))
	for id := range b.parts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type event struct {
		tick uint
		row  []any
	}
	var events []event

	for _, id := range ids {
		rec := b.parts[id]
		p := PartJSON{ID: id, Ticks: make([][]any, 0, len(rec.Ticks))}

		for _, t := range rec.Ticks {
			intensities := make([]float64, len(t.Thrusters))
			for i, s := range t.Thrusters {
				intensities[i] = s.Intensity
			}
			p.Ticks = append(p.Ticks, []any{
				t.Tick,
				t.EffectPower,
				t.TotalThrust,
				t.PropellantMass,
				boolToInt(t.Success),
				intensities,
			})

			p.Summary.Ticks++
			if t.Success {
				p.Summary.FiringTicks++
			}
			p.Summary.PropellantMass += t.PropellantMass
			p.Summary.Impulse += t.TotalThrust * b.session.TickDuration
			if t.Tick > export.EndTick {
				export.EndTick = t.Tick
			}
		}

		for _, e := range rec.Events {
			switch e.Kind {
			case core.EffectEngage:
				p.Summary.Engagements++
			case core.EffectFlameout:
				p.Summary.Flameouts++
			}
			events = append(events, event{e.Tick, []any{e.Tick, e.Kind, e.PartID, e.Channel}})
		}

		export.Parts = append(export.Parts, p)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })
	for _, e := range events {
		export.Events = append(export.Events, e.row)
	}

	return export
}

func (b *Backend) writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func (b *Backend) writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
