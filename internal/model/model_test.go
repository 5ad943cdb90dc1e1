package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Info", &Info{}, "rcsfx_infos"},
		{"Session", &Session{}, "sessions"},
		{"TickRecord", &TickRecord{}, "tick_records"},
		{"EffectEvent", &EffectEvent{}, "effect_events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_SessionsBeforeRecords(t *testing.T) {
	assert.Len(t, DatabaseModels, 4)
	assert.IsType(t, &Info{}, DatabaseModels[0])
	assert.IsType(t, &Session{}, DatabaseModels[1])
}
