package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/embersend/internal/fee"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

func TestResolveTier(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		configured string
		expected   fee.Tier
		wantErr    bool
	}{
		{name: "flag wins over config", flag: "slow", configured: "fast", expected: fee.TierSlow},
		{name: "configured default used when flag empty", flag: "", configured: "fast", expected: fee.TierFast},
		{name: "average when nothing set", flag: "", configured: "", expected: fee.TierAverage},
		{name: "unknown flag rejected", flag: "turbo", configured: "fast", wantErr: true},
		{name: "unknown configured default rejected", flag: "", configured: "warp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTier(tt.flag, tt.configured)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, embererr.ErrConfigInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
