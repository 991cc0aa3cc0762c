package editor

// ActiveRegions returns the regions whose window contains t, bounds
// inclusive, in input order. The input slice is not modified.
func ActiveRegions(all []Region, t float64) []Region {
	var out []Region
	for _, r := range all {
		if r.Contains(t) {
			out = append(out, r)
		}
	}
	return out
}

// DragState is an uncommitted geometry edit for one region. It lives only
// between gesture start and gesture end.
type DragState struct {
	RegionID string
	Rect
}

// ApplyTransient overlays an in-flight drag on the active set. A nil drag,
// or one whose region is not active, returns regions unchanged.
func ApplyTransient(regions []Region, drag *DragState) []Region {
	if drag == nil {
		return regions
	}
	i := indexOf(regions, drag.RegionID)
	if i < 0 {
		return regions
	}
	out := make([]Region, len(regions))
	copy(out, regions)
	out[i].Rect = drag.Rect
	return out
}
