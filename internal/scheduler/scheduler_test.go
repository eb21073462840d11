package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaseline/leaseline/internal/canonical"
)

func TestSelectSources(t *testing.T) {
	tests := []struct {
		name   string
		filter []string
		want   []canonical.Source
	}{
		{
			name:   "empty filter means every feed",
			filter: nil,
			want:   canonical.Sources(),
		},
		{
			name:   "subset",
			filter: []string{"resman"},
			want:   []canonical.Source{canonical.SourceResman},
		},
		{
			name:   "unknown names are ignored",
			filter: []string{"yardi", "entrata"},
			want:   []canonical.Source{canonical.SourceEntrata},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectSources(tt.filter))
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 30*time.Minute, cfg.RunTimeout)

	cfg = Config{RunInterval: time.Minute, RunTimeout: time.Second}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, time.Second, cfg.RunTimeout)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
