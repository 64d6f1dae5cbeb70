package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"magic-mirror/internal/types"
)

func TestPresetsPerFeature(t *testing.T) {
	assert.NotEmpty(t, Presets(types.FeatureHairStyle))
	assert.NotEmpty(t, Presets(types.FeatureBeardStyle))
	assert.NotEmpty(t, Presets(types.FeatureAgeChange))
	assert.Empty(t, Presets(types.FeatureTryOn), "try-on takes no prompt")
}

func TestIsPreset(t *testing.T) {
	assert.True(t, IsPreset(types.FeatureHairStyle, "buzz cut"))
	assert.True(t, IsPreset(types.FeatureHairStyle, "  Buzz   Cut "))
	assert.False(t, IsPreset(types.FeatureHairStyle, "space buns"))
	assert.False(t, IsPreset(types.FeatureTryOn, "anything"))
}

func TestNearestSuggestsTypoFix(t *testing.T) {
	got, ok := Nearest(types.FeatureHairStyle, "buz cut")
	assert.True(t, ok)
	assert.Equal(t, "buzz cut", got)

	got, ok = Nearest(types.FeatureBeardStyle, "goate")
	assert.True(t, ok)
	assert.Equal(t, "goatee", got)
}

func TestNearestRejectsFarInput(t *testing.T) {
	_, ok := Nearest(types.FeatureHairStyle, "xq")
	assert.False(t, ok)

	_, ok = Nearest(types.FeatureHairStyle, "")
	assert.False(t, ok)

	_, ok = Nearest(types.FeatureTryOn, "buzz cut")
	assert.False(t, ok)
}
