package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_OverlayWins(t *testing.T) {
	base := Config{
		Engine:  EngineConfig{Binary: "claude", Model: "sonnet", MaxTurns: 16},
		Review:  ReviewConfig{Strictness: "normal", MaxDiffChars: 100},
		Logging: LoggingConfig{Level: "info", Format: "human"},
	}
	overlay := Config{
		Engine: EngineConfig{Model: "opus"},
		Review: ReviewConfig{Strictness: "strict"},
	}

	merged := Merge(base, overlay)

	assert.Equal(t, "opus", merged.Engine.Model)
	assert.Equal(t, "strict", merged.Review.Strictness)

	// Fields the overlay leaves empty survive from the base.
	assert.Equal(t, "claude", merged.Engine.Binary)
	assert.Equal(t, 16, merged.Engine.MaxTurns)
	assert.Equal(t, 100, merged.Review.MaxDiffChars)
	assert.Equal(t, "info", merged.Logging.Level)
}

func TestMerge_LatterConfigsTakePriority(t *testing.T) {
	a := Config{Output: OutputConfig{Directory: "a"}}
	b := Config{Output: OutputConfig{Directory: "b"}}
	c := Config{}

	merged := Merge(a, b, c)
	assert.Equal(t, "b", merged.Output.Directory)
}

func TestEngineTimeout(t *testing.T) {
	d, err := EngineConfig{Timeout: "90s"}.EngineTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = EngineConfig{}.EngineTimeout()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)

	_, err = EngineConfig{Timeout: "soon"}.EngineTimeout()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "zero value ok", cfg: Config{}},
		{name: "known strictness", cfg: Config{Review: ReviewConfig{Strictness: "lenient"}}},
		{
			name:    "unknown strictness",
			cfg:     Config{Review: ReviewConfig{Strictness: "harsh"}},
			wantErr: "strictness",
		},
		{
			name:    "negative max turns",
			cfg:     Config{Engine: EngineConfig{MaxTurns: -1}},
			wantErr: "maxTurns",
		},
		{
			name:    "negative diff budget",
			cfg:     Config{Review: ReviewConfig{MaxDiffChars: -5}},
			wantErr: "maxDiffChars",
		},
		{
			name:    "store enabled without path",
			cfg:     Config{Store: StoreConfig{Enabled: true}},
			wantErr: "store.path",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
