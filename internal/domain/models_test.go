package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierForAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   Tier
	}{
		{"below silver", 500, ""},
		{"silver threshold", 1000, TierSilver},
		{"just under gold", 4999.99, TierSilver},
		{"gold threshold", 5000, TierGold},
		{"mid gold", 6000, TierGold},
		{"just under platinum", 24999.99, TierGold},
		{"platinum threshold", 25000, TierPlatinum},
		{"well above platinum", 30000, TierPlatinum},
		{"zero", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TierForAmount(tt.amount))
		})
	}
}
