package xdecimal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncatingQuotient_TruncatesTowardZero(t *testing.T) {
	num := MustParse("10")
	den := MustParse("3")

	got := TruncatingQuotient(num, den, 2)

	assert.True(t, got.Equal(MustParse("3.33")), "got %s", got)
}

func TestTruncatingQuotient_NeverRoundsUp(t *testing.T) {
	// 7 / 2 = 3.5 exactly; at scale 0 this must truncate to 3, not round to 4.
	got := TruncatingQuotient(MustParse("7"), MustParse("2"), 0)
	assert.True(t, got.Equal(MustParse("3")), "got %s", got)
}

func TestParse_RejectsMalformedInput(t *testing.T) {
	_, err := Parse("not-a-number")
	require.Error(t, err)
}

func TestIsPositiveOrZero(t *testing.T) {
	assert.True(t, IsPositiveOrZero(Zero()))
	assert.True(t, IsPositiveOrZero(FromInt64(1)))
	assert.False(t, IsPositiveOrZero(MustParse("-0.00000001")))
}
