package images

import (
	"fmt"
	"math"
	"sort"
)

// ResolutionType names a camera resolution standard.
type ResolutionType string

// Camera resolutions frames are commonly captured at.
const (
	ResolutionTypeVGA      ResolutionType = "VGA"
	ResolutionTypeNHD      ResolutionType = "nHD"
	ResolutionTypeQHD540   ResolutionType = "qHD 540p"
	ResolutionTypeHD720p   ResolutionType = "HD 720p"
	ResolutionType1MP54    ResolutionType = "1MP (5:4)"
	ResolutionTypeFHD1080p ResolutionType = "Full HD 1080p"
	ResolutionType3MP43    ResolutionType = "3MP (4:3)"
	ResolutionTypeQHD1440p ResolutionType = "QHD 1440p"
	ResolutionType4KUHD    ResolutionType = "4K UHD"
)

// Resolution is a named frame size.
type Resolution struct {
	Name   ResolutionType `json:"name"   yaml:"name"`
	Width  int            `json:"width"  yaml:"width"`
	Height int            `json:"height" yaml:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return math.Round(float64(r.Width*r.Height)/10_000) / 100
}

// String returns e.g. "HD 720p (1280x720, 0.92MP)".
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

var resolutions = map[ResolutionType]Resolution{
	ResolutionTypeVGA:      {Name: ResolutionTypeVGA, Width: 640, Height: 480},
	ResolutionTypeNHD:      {Name: ResolutionTypeNHD, Width: 640, Height: 360},
	ResolutionTypeQHD540:   {Name: ResolutionTypeQHD540, Width: 960, Height: 540},
	ResolutionTypeHD720p:   {Name: ResolutionTypeHD720p, Width: 1280, Height: 720},
	ResolutionType1MP54:    {Name: ResolutionType1MP54, Width: 1280, Height: 1024},
	ResolutionTypeFHD1080p: {Name: ResolutionTypeFHD1080p, Width: 1920, Height: 1080},
	ResolutionType3MP43:    {Name: ResolutionType3MP43, Width: 2048, Height: 1536},
	ResolutionTypeQHD1440p: {Name: ResolutionTypeQHD1440p, Width: 2560, Height: 1440},
	ResolutionType4KUHD:    {Name: ResolutionType4KUHD, Width: 3840, Height: 2160},
}

// Resolutions returns every known resolution ordered by pixel count, smallest first.
func Resolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, res := range resolutions {
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool {
		pi, pj := all[i].Width*all[i].Height, all[j].Width*all[j].Height
		if pi != pj {
			return pi < pj
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// ResolutionByType looks up a resolution by name.
func ResolutionByType(t ResolutionType) (Resolution, bool) {
	res, ok := resolutions[t]
	return res, ok
}

// LargestResolutionWithin returns the largest known resolution that fits in
// width x height.
func LargestResolutionWithin(width, height int) (Resolution, bool) {
	var (
		best  Resolution
		found bool
	)
	for _, res := range Resolutions() {
		if res.Width <= width && res.Height <= height {
			best, found = res, true
		}
	}
	return best, found
}
