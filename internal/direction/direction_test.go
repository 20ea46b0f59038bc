package direction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngularDistance(t *testing.T) {
	tests := []struct {
		a, b float64
		want float64
	}{
		{350, 10, 20},
		{10, 350, 20},
		{0, 180, 180},
		{135, 225, 90},
		{0, 0, 0},
		{-10, 10, 20},
		{720, 90, 90},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, AngularDistance(tt.a, tt.b), 1e-9, "a=%v b=%v", tt.a, tt.b)
	}
}

func TestFromDegrees(t *testing.T) {
	tests := []struct {
		deg  float64
		want Cardinal
	}{
		{0, N},
		{359, N},
		{22.5, NNE},
		{135, SE},
		{225, SW},
		{180, S},
		{-90, W},
		{370, N},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromDegrees(tt.deg), "deg=%v", tt.deg)
	}
}

func TestFromDegrees_TieResolvesToEarlierPoint(t *testing.T) {
	// 11.25 sits exactly between N and NNE.
	assert.Equal(t, N, FromDegrees(11.25))
	// 33.75 sits between NNE and NE.
	assert.Equal(t, NNE, FromDegrees(33.75))
	// 348.75 sits between NNW and N; N is scanned first.
	assert.Equal(t, N, FromDegrees(348.75))
}

func TestDegrees(t *testing.T) {
	assert.Equal(t, 0.0, N.Degrees())
	assert.Equal(t, 135.0, SE.Degrees())
	assert.Equal(t, 337.5, NNW.Degrees())
	assert.True(t, math.IsNaN(Cardinal("XX").Degrees()))
}

func TestParse(t *testing.T) {
	c, err := Parse(" sse ")
	require.NoError(t, err)
	assert.Equal(t, SSE, c)

	_, err = Parse("north")
	assert.Error(t, err)
}

func TestAll_OrderAndCopy(t *testing.T) {
	all := All()
	require.Len(t, all, 16)
	assert.Equal(t, N, all[0])
	assert.Equal(t, NNW, all[15])

	all[0] = S
	assert.Equal(t, N, All()[0])
}
