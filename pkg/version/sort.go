package version

import "slices"

// Sort orders versions ascending, in place.
func Sort(versions []*Version) {
	slices.SortStableFunc(versions, func(a, b *Version) int {
		return a.Compare(b)
	})
}

// Latest returns the highest version, or nil for an empty slice.
func Latest(versions []*Version) *Version {
	var best *Version
	for _, v := range versions {
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	return best
}

// NearestBelow returns the highest candidate that is less than or equal to
// target, or nil when every candidate is greater.
func NearestBelow(target *Version, candidates []*Version) *Version {
	var best *Version
	for _, c := range candidates {
		if c.GreaterThan(target) {
			continue
		}
		if best == nil || c.GreaterThan(best) {
			best = c
		}
	}
	return best
}
