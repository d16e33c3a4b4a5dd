package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeClassification(t *testing.T) {
	assert.Equal(t, FixedRate, NewFixedRate(32).Mode())
	assert.Equal(t, FixedPrecision, NewFixedPrecision(40).Mode())
	assert.Equal(t, FixedAccuracy, NewFixedAccuracy(-20).Mode())
	assert.Equal(t, Reversible, NewReversible().Mode())
	assert.Equal(t, Expert, NewExpert(4, 100, 30, -5).Mode())
}

func TestValidate(t *testing.T) {
	require.NoError(t, NewFixedRate(32).Validate())

	bad := NewExpert(100, 10, 30, 0)
	assert.Error(t, bad.Validate())

	badPrec := NewExpert(1, 100, 0, 0)
	assert.Error(t, badPrec.Validate())
}

func TestShortRoundTripFixedRate(t *testing.T) {
	p := NewFixedRate(64)
	v, ok := p.EncodeShort()
	require.True(t, ok)
	assert.LessOrEqual(t, v, uint16(ShortMax))

	decoded, err := Decode(uint64(v))
	require.NoError(t, err)
	assert.Equal(t, p.MaxBits, decoded.MaxBits)
	assert.Equal(t, FixedRate, decoded.Mode())
}

func TestShortRoundTripFixedPrecision(t *testing.T) {
	p := NewFixedPrecision(50)
	v, ok := p.EncodeShort()
	require.True(t, ok)

	decoded, err := Decode(uint64(v))
	require.NoError(t, err)
	assert.Equal(t, 50, decoded.MaxPrec)
	assert.Equal(t, FixedPrecision, decoded.Mode())
}

func TestShortRoundTripFixedAccuracy(t *testing.T) {
	p := NewFixedAccuracy(-100)
	v, ok := p.EncodeShort()
	require.True(t, ok)

	decoded, err := Decode(uint64(v))
	require.NoError(t, err)
	assert.Equal(t, -100, decoded.MinExp)
	assert.Equal(t, FixedAccuracy, decoded.Mode())
}

func TestShortRoundTripReversible(t *testing.T) {
	p := NewReversible()
	v, ok := p.EncodeShort()
	require.True(t, ok)
	assert.Equal(t, uint16(shortReversible), v)

	decoded, err := Decode(uint64(v))
	require.NoError(t, err)
	assert.Equal(t, Reversible, decoded.Mode())
}

func TestLongRoundTripExpert(t *testing.T) {
	p := NewExpert(17, 4001, 53, -900)
	_, ok := p.EncodeShort()
	assert.False(t, ok, "expert tuple should not fit the short encoding")

	v := p.EncodeLong()
	assert.Equal(t, uint64(shortSentinel), v&shortSentinel)

	decoded, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestDecodeLongRejectsInvalidTuple(t *testing.T) {
	bad := NewExpert(100, 10, 30, 0)
	v := bad.EncodeLong()

	_, err := Decode(v)
	assert.Error(t, err)
}
