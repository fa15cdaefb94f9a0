package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCapability(t *testing.T) {
	t.Run("both limits", func(t *testing.T) {
		c := ComputeCapability(10, 0.1, Limits{Lower: f(9.7), Upper: f(10.3)})
		require.NotNil(t, c.Cp)
		require.NotNil(t, c.Cpk)
		assert.InDelta(t, 1.0, *c.Cp, 1e-9)
		assert.InDelta(t, 1.0, *c.Cpk, 1e-9)
	})

	t.Run("off center lowers cpk only", func(t *testing.T) {
		c := ComputeCapability(10.1, 0.1, Limits{Lower: f(9.7), Upper: f(10.3)})
		assert.InDelta(t, 1.0, *c.Cp, 1e-9)
		assert.InDelta(t, 0.2/0.3, *c.Cpk, 1e-9)
	})

	t.Run("upper only", func(t *testing.T) {
		c := ComputeCapability(10, 0.1, Limits{Upper: f(10.6)})
		assert.Nil(t, c.Cp)
		require.NotNil(t, c.Cpk)
		assert.InDelta(t, 2.0, *c.Cpk, 1e-9)
	})

	t.Run("lower only", func(t *testing.T) {
		c := ComputeCapability(10, 0.1, Limits{Lower: f(9.4)})
		assert.Nil(t, c.Cp)
		assert.InDelta(t, 2.0, *c.Cpk, 1e-9)
	})

	t.Run("no limits", func(t *testing.T) {
		c := ComputeCapability(10, 0.1, Limits{})
		assert.Nil(t, c.Cp)
		assert.Nil(t, c.Cpk)
	})

	// Zero spread is not epsilon-guarded at this layer: both indices are
	// undefined.
	t.Run("zero stdev", func(t *testing.T) {
		c := ComputeCapability(10, 0, Limits{Lower: f(9), Upper: f(11)})
		assert.Nil(t, c.Cp)
		assert.Nil(t, c.Cpk)
	})

	t.Run("non finite stdev", func(t *testing.T) {
		assert.Nil(t, ComputeCapability(10, math.NaN(), Limits{Lower: f(9), Upper: f(11)}).Cpk)
		assert.Nil(t, ComputeCapability(10, math.Inf(1), Limits{Lower: f(9), Upper: f(11)}).Cpk)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		v         float64
		def, dash CapabilityClass
	}{
		{0.5, ClassInadequate, ClassInadequate},
		{0.999, ClassInadequate, ClassInadequate},
		{1.0, ClassMarginal, ClassMarginal},
		{1.32, ClassMarginal, ClassMarginal},
		{1.33, ClassAcceptable, ClassAcceptable},
		{1.66, ClassAcceptable, ClassAcceptable},
		{1.67, ClassExcellent, ClassAcceptable},
		{1.99, ClassExcellent, ClassAcceptable},
		{2.0, ClassExcellent, ClassExcellent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.def, Classify(f(tt.v), DefaultThresholds), "default %v", tt.v)
		assert.Equal(t, tt.dash, Classify(f(tt.v), DashboardThresholds), "dashboard %v", tt.v)
	}
	assert.Equal(t, ClassUnknown, Classify(nil, DefaultThresholds))
}
