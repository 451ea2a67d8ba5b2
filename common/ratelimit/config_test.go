package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_FillsZeroFields(t *testing.T) {
	out := Limits{}.Normalize()
	assert.Equal(t, DefaultLimits, out)
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	in := Limits{UserLimit: 10, GlobalLimit: 100, WindowSeconds: 5}
	assert.Equal(t, in, in.Normalize())
}

func TestNormalize_PartialOverride(t *testing.T) {
	out := Limits{UserLimit: 10}.Normalize()
	assert.Equal(t, int64(10), out.UserLimit)
	assert.Equal(t, DefaultLimits.GlobalLimit, out.GlobalLimit)
	assert.Equal(t, DefaultLimits.WindowSeconds, out.WindowSeconds)

	out = Limits{UserLimit: -1}.Normalize()
	assert.Equal(t, DefaultLimits.UserLimit, out.UserLimit, "negative values fall back to the default")
}
