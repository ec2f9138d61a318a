package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionsOrdered(t *testing.T) {
	all := Resolutions()
	require.Len(t, all, len(resolutions))

	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Width*all[i-1].Height, all[i].Width*all[i].Height)
	}
	assert.Equal(t, ResolutionTypeNHD, all[0].Name)
	assert.Equal(t, ResolutionType4KUHD, all[len(all)-1].Name)
}

func TestResolutionMegaPixels(t *testing.T) {
	res, ok := ResolutionByType(ResolutionTypeFHD1080p)
	require.True(t, ok)
	assert.InDelta(t, 2.07, res.MegaPixels(), 1e-9)
	assert.Equal(t, "Full HD 1080p (1920x1080, 2.07MP)", res.String())

	assert.Zero(t, Resolution{}.MegaPixels())

	_, ok = ResolutionByType("8K")
	assert.False(t, ok)
}

func TestLargestResolutionWithin(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          ResolutionType
		found         bool
	}{
		{name: "exact", width: 1280, height: 720, want: ResolutionTypeHD720p, found: true},
		{name: "between", width: 1300, height: 1100, want: ResolutionType1MP54, found: true},
		{name: "huge", width: 10000, height: 10000, want: ResolutionType4KUHD, found: true},
		{name: "too small", width: 320, height: 240},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := LargestResolutionWithin(tt.width, tt.height)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, res.Name)
		})
	}
}
