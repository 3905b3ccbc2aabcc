package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSmile_MergesSidesByStrike(t *testing.T) {
	call := contract("90000", "2026-09-25", Call, "10", "0")
	call.MarkIV = decPtr("52.1")
	put := contract("90000", "2026-09-25", Put, "40", "0")
	put.MarkIV = decPtr("55.8")
	callOnly := contract("100000", "2026-09-25", Call, "5", "0")
	callOnly.MarkIV = decPtr("61.3")
	illiquid := contract("110000", "2026-09-25", Put, "1", "0")

	smile, err := ComputeSmile([]Contract{put, call, callOnly, illiquid}, day("2026-09-25"))
	require.NoError(t, err)
	require.Len(t, smile, 3)

	assert.True(t, smile[0].Strike.Equal(dec("90000")))
	require.NotNil(t, smile[0].CallIV)
	require.NotNil(t, smile[0].PutIV)
	assert.True(t, smile[0].CallIV.Equal(dec("52.1")))
	assert.True(t, smile[0].PutIV.Equal(dec("55.8")))

	assert.Nil(t, smile[1].PutIV, "put side unquoted at 100000")
	require.NotNil(t, smile[1].CallIV)

	assert.Nil(t, smile[2].CallIV)
	assert.Nil(t, smile[2].PutIV, "illiquid contract keeps a nil IV, not zero")
}

func TestComputeSmile_RejectsMixedExpirations(t *testing.T) {
	contracts := []Contract{
		contract("90000", "2026-09-25", Call, "10", "0"),
		contract("90000", "2026-12-25", Call, "10", "0"),
	}

	_, err := ComputeSmile(contracts, day("2026-09-25"))
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestComputeSmile_RejectsWrongExpiration(t *testing.T) {
	contracts := []Contract{
		contract("90000", "2026-12-25", Call, "10", "0"),
	}

	_, err := ComputeSmile(contracts, day("2026-09-25"))
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestComputeSmile_DistinctPrecisionStaysDistinct(t *testing.T) {
	a := contract("90000", "2026-09-25", Call, "1", "0")
	a.MarkIV = decPtr("50")
	b := contract("90000.0", "2026-09-25", Put, "1", "0")
	b.MarkIV = decPtr("55")

	smile, err := ComputeSmile([]Contract{a, b}, day("2026-09-25"))
	require.NoError(t, err)
	require.Len(t, smile, 2)
}

func TestComputeSmile_EmptyInput(t *testing.T) {
	smile, err := ComputeSmile(nil, day("2026-09-25"))
	require.NoError(t, err)
	assert.Empty(t, smile)
}
