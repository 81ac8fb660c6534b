package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vulnmgt/riskboard-backend/util"
)

func TestComputeRiskScore_AllComponents(t *testing.T) {
	// 7.5*0.4 + 2.0 + 0.8*5.0 + 30*0.01 = 3.0 + 2.0 + 4.0 + 0.3 = 9.3
	score := ComputeRiskScore(util.Float64Ptr(7.5), true, util.Float64Ptr(0.8), util.IntPtr(30))
	assert.InDelta(t, 9.3, score, 1e-9)
}

func TestComputeRiskScore_NoKEV(t *testing.T) {
	// 9.8*0.4 + 0.5*5.0 + 30*0.01 = 3.92 + 2.5 + 0.3 = 6.72
	score := ComputeRiskScore(util.Float64Ptr(9.8), false, util.Float64Ptr(0.5), util.IntPtr(30))
	assert.InDelta(t, 6.72, score, 1e-9)
}

func TestComputeRiskScore_AgeCapped(t *testing.T) {
	// ages beyond 365 days contribute exactly the cap
	capped := ComputeRiskScore(nil, false, nil, util.IntPtr(400))
	atCap := ComputeRiskScore(nil, false, nil, util.IntPtr(365))
	assert.InDelta(t, 3.65, capped, 1e-9)
	assert.Equal(t, atCap, capped)
}

func TestComputeRiskScore_MissingInputsContributeZero(t *testing.T) {
	assert.Zero(t, ComputeRiskScore(nil, false, nil, nil))

	// only the KEV bonus
	assert.InDelta(t, 2.0, ComputeRiskScore(nil, true, nil, nil), 1e-9)

	// a zero score differs from a missing one only semantically, not numerically
	assert.Equal(t,
		ComputeRiskScore(util.Float64Ptr(0), false, nil, nil),
		ComputeRiskScore(nil, false, nil, nil))
}

func TestComputeRiskScore_NotClamped(t *testing.T) {
	// maximal inputs exceed 10 and stay unclamped
	score := ComputeRiskScore(util.Float64Ptr(10.0), true, util.Float64Ptr(1.0), util.IntPtr(365))
	assert.InDelta(t, 14.65, score, 1e-9)
}
