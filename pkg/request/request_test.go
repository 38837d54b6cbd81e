package request

import (
	"testing"

	"github.com/stretchr/testify/require"

	"saginctl/pkg/geo"
)

func TestNewInitialisesAllocationState(t *testing.T) {
	r := New("req-1", ServiceVideo, geo.Point{LatDeg: 1, LonDeg: 2})
	require.Equal(t, 1.0, r.ReliabilityActual)
	require.True(t, r.AllowPartial)
	require.Empty(t, r.DisPath)
}

func TestAdmissionCapEmergencyVsNormal(t *testing.T) {
	emergency := New("e", ServiceEmergency, geo.Point{})
	require.Equal(t, 0.95, emergency.AdmissionCap())

	data := New("d", ServiceData, geo.Point{})
	require.Equal(t, 0.90, data.AdmissionCap())
}

func TestWeightsFallBackToDefault(t *testing.T) {
	r := New("x", ServiceClass(99), geo.Point{})
	require.Equal(t, DefaultWeights, r.Weights())
}

func TestEveryServiceClassHasProfileAndWeights(t *testing.T) {
	for c := ServiceVoice; c <= ServiceEmergency; c++ {
		_, ok := Profiles[c]
		require.True(t, ok, "missing profile for %v", c)
		_, ok = RewardWeights[c]
		require.True(t, ok, "missing weights for %v", c)
	}
}
