// Package styles holds the preset catalogs for the prompt-driven
// features and matches free-form user input against them.
package styles

import (
	"strings"

	"github.com/samber/lo"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"magic-mirror/internal/types"
)

// Presets are the suggestions shown for each prompt-driven feature. The
// remote service accepts arbitrary text, so these are a convenience, not
// a whitelist.
var presets = map[types.Feature][]string{
	types.FeatureHairStyle: {
		"buzz cut",
		"bob cut",
		"pixie cut",
		"curly perm",
		"long straight",
		"ponytail",
		"dreadlocks",
		"mohawk",
		"silver gray",
		"platinum blonde",
	},
	types.FeatureBeardStyle: {
		"full beard",
		"goatee",
		"stubble",
		"mutton chops",
		"handlebar mustache",
		"clean shaven",
		"van dyke",
	},
	types.FeatureAgeChange: {
		"10",
		"20",
		"30",
		"40",
		"50",
		"60",
		"70",
		"80",
	},
}

// Presets returns the catalog for a feature, or nil when the feature has
// no prompt.
func Presets(feature types.Feature) []string {
	return presets[feature]
}

// IsPreset reports whether the prompt exactly matches a catalog entry,
// ignoring case and surrounding whitespace.
func IsPreset(feature types.Feature, prompt string) bool {
	normalized := normalize(prompt)
	return lo.ContainsBy(presets[feature], func(p string) bool {
		return normalize(p) == normalized
	})
}

// Nearest returns the catalog entry closest to the input by edit
// distance, for "did you mean" suggestions. The boolean is false when the
// feature has no catalog or the input is too far from everything in it.
func Nearest(feature types.Feature, prompt string) (string, bool) {
	catalog := presets[feature]
	if len(catalog) == 0 {
		return "", false
	}
	normalized := normalize(prompt)
	if normalized == "" {
		return "", false
	}

	best := ""
	bestDist := -1
	for _, p := range catalog {
		dist := levenshtein.DistanceForStrings([]rune(normalized), []rune(normalize(p)), levenshtein.DefaultOptions)
		if bestDist == -1 || dist < bestDist {
			best, bestDist = p, dist
		}
	}

	// A suggestion further away than half the input is noise.
	if bestDist > len([]rune(normalized))/2+1 {
		return "", false
	}
	return best, true
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
