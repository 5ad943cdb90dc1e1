package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/storage"
	"github.com/rcsfx/extension/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)
var _ storage.Exportable = (*Backend)(nil)

func newSession() *core.Session {
	return &core.Session{
		Name:             "docking test",
		PartName:         "RCSBlock",
		StartTime:        time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		TickDuration:     0.02,
		ThrusterCount:    4,
		ExtensionVersion: "1.0.0",
	}
}

func TestStartSessionAssignsIDs(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	s1 := newSession()
	if err := b.StartSession(s1); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	s2 := newSession()
	if err := b.StartSession(s2); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if s1.ID != 1 || s2.ID != 2 {
		t.Errorf("expected IDs 1 and 2, got %d and %d", s1.ID, s2.ID)
	}
	got, ok := b.Session()
	if !ok || got.ID != 2 {
		t.Errorf("expected current session 2, got %+v", got)
	}
}

func TestStartSessionResetsRecords(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	_ = b.StartSession(newSession())
	_ = b.RecordTick(&core.TickRecord{PartID: "rcs1", Tick: 1})

	_ = b.StartSession(newSession())

	if ids := b.PartIDs(); len(ids) != 0 {
		t.Errorf("expected no parts after restart, got %v", ids)
	}
}

func TestRecordTicksAndEvents(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	_ = b.StartSession(newSession())

	_ = b.RecordTick(&core.TickRecord{PartID: "rcs2", Tick: 1})
	_ = b.RecordTick(&core.TickRecord{PartID: "rcs1", Tick: 1, Success: true})
	_ = b.RecordTick(&core.TickRecord{PartID: "rcs1", Tick: 2})
	_ = b.RecordEffectEvent(&core.EffectEvent{PartID: "rcs1", Tick: 1, Kind: core.EffectEngage, Channel: "engage"})

	ids := b.PartIDs()
	if len(ids) != 2 || ids[0] != "rcs1" || ids[1] != "rcs2" {
		t.Fatalf("unexpected part IDs: %v", ids)
	}

	rec, ok := b.GetPart("rcs1")
	if !ok {
		t.Fatal("expected rcs1 to be recorded")
	}
	if len(rec.Ticks) != 2 {
		t.Errorf("expected 2 ticks, got %d", len(rec.Ticks))
	}
	if len(rec.Events) != 1 {
		t.Errorf("expected 1 event, got %d", len(rec.Events))
	}

	// returned record is a copy
	rec.Ticks[0].Tick = 99
	again, _ := b.GetPart("rcs1")
	if again.Ticks[0].Tick != 1 {
		t.Error("GetPart leaked internal slice")
	}

	if _, ok := b.GetPart("missing"); ok {
		t.Error("expected missing part to be absent")
	}
}

func TestEndSessionWithoutSessionIsNoop(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})

	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if b.ExportedFilePath() != "" {
		t.Errorf("expected no export, got %s", b.ExportedFilePath())
	}
}

func recordFiringSession(b *Backend) {
	_ = b.StartSession(newSession())
	_ = b.RecordTick(&core.TickRecord{
		PartID: "rcs1", Tick: 1, Success: true,
		EffectPower: 0.5, TotalThrust: 2, PropellantMass: 0.001,
		Thrusters: []core.ThrusterSample{{Index: 0, Intensity: 0.5}, {Index: 1, Intensity: 0}},
	})
	_ = b.RecordTick(&core.TickRecord{
		PartID: "rcs1", Tick: 2, Success: true,
		EffectPower: 1, TotalThrust: 4, PropellantMass: 0.002,
		Thrusters: []core.ThrusterSample{{Index: 0, Intensity: 1}, {Index: 1, Intensity: 0}},
	})
	_ = b.RecordTick(&core.TickRecord{PartID: "rcs1", Tick: 3})
	_ = b.RecordEffectEvent(&core.EffectEvent{PartID: "rcs1", Tick: 3, Kind: core.EffectFlameout, Channel: "flameout"})
	_ = b.RecordEffectEvent(&core.EffectEvent{PartID: "rcs1", Tick: 1, Kind: core.EffectEngage, Channel: "engage"})
}

func TestEndSessionExportsJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	recordFiringSession(b)

	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	path := b.ExportedFilePath()
	if filepath.Base(path) != "docking_test_1_20261001_120000.json" {
		t.Errorf("unexpected export file name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}

	var export SessionExport
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("decoding export: %v", err)
	}

	if export.SessionName != "docking test" || export.PartName != "RCSBlock" {
		t.Errorf("unexpected header: %+v", export)
	}
	if export.EndTick != 3 {
		t.Errorf("expected end tick 3, got %d", export.EndTick)
	}
	if len(export.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(export.Parts))
	}

	part := export.Parts[0]
	if len(part.Ticks) != 3 {
		t.Errorf("expected 3 tick rows, got %d", len(part.Ticks))
	}
	sum := part.Summary
	if sum.Ticks != 3 || sum.FiringTicks != 2 || sum.Engagements != 1 || sum.Flameouts != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	// (2 + 4) * 0.02
	if d := sum.Impulse - 0.12; d > 1e-9 || d < -1e-9 {
		t.Errorf("expected impulse 0.12, got %f", sum.Impulse)
	}

	if len(export.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(export.Events))
	}
	if export.Events[0][1] != core.EffectEngage {
		t.Errorf("expected events ordered by tick, got %v", export.Events)
	}
}

func TestEndSessionExportsGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	recordFiringSession(b)

	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	path := b.ExportedFilePath()
	if !strings.HasSuffix(path, ".json.gz") {
		t.Fatalf("expected gzip export, got %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening export: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gz.Close()

	var export SessionExport
	if err := json.NewDecoder(gz).Decode(&export); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if export.SessionID != 1 {
		t.Errorf("expected session 1, got %d", export.SessionID)
	}
}

func TestEndSessionCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	b := New(config.MemoryConfig{OutputDir: dir})
	_ = b.StartSession(newSession())

	if err := b.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if _, err := os.Stat(b.ExportedFilePath()); err != nil {
		t.Errorf("export missing: %v", err)
	}
}
