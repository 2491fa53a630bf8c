// Package land holds the parcel geometry and the expansion/merge cost curves.
// Everything here is pure; callers load parcels inside a store transaction
// and pass them in.
package land

import "landmarket/internal/domain"

// Bounds is an inclusive axis-aligned box in canvas cells.
type Bounds struct {
	MinX, MinY, MaxX, MaxY int
}

// BoundsOf returns the cells covered by a parcel of the given center and size.
func BoundsOf(centerX, centerY, size int) Bounds {
	half := size / 2
	return Bounds{
		MinX: centerX - half,
		MinY: centerY - half,
		MaxX: centerX + half,
		MaxY: centerY + half,
	}
}

// ParcelBounds is BoundsOf for an existing parcel.
func ParcelBounds(p *domain.LandParcel) Bounds {
	return BoundsOf(p.CenterX, p.CenterY, p.Size)
}

// Overlaps is the standard AABB test: the intervals intersect on both axes.
func (b Bounds) Overlaps(o Bounds) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX &&
		b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// Union returns the smallest box containing both.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: min(b.MinX, o.MinX),
		MinY: min(b.MinY, o.MinY),
		MaxX: max(b.MaxX, o.MaxX),
		MaxY: max(b.MaxY, o.MaxY),
	}
}

func (b Bounds) Width() int  { return b.MaxX - b.MinX + 1 }
func (b Bounds) Height() int { return b.MaxY - b.MinY + 1 }

// Conflicts reports whether candidate overlaps any parcel not listed in
// exclude.
func Conflicts(candidate Bounds, parcels []*domain.LandParcel, exclude ...string) bool {
	return FirstConflict(candidate, parcels, exclude...) != nil
}

// FirstConflict returns the first overlapping parcel, or nil.
func FirstConflict(candidate Bounds, parcels []*domain.LandParcel, exclude ...string) *domain.LandParcel {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	for _, p := range parcels {
		if _, ok := skip[p.ID]; ok {
			continue
		}
		if candidate.Overlaps(ParcelBounds(p)) {
			return p
		}
	}
	return nil
}

// Adjacent reports whether two equal-size parcels share a full edge. Parcels
// touching only at a corner, or overlapping, are not adjacent.
func Adjacent(a, b *domain.LandParcel) bool {
	if a.Size != b.Size {
		return false
	}
	dx := abs(a.CenterX - b.CenterX)
	dy := abs(a.CenterY - b.CenterY)
	return (dy == 0 && dx == a.Size) || (dx == 0 && dy == a.Size)
}

// MergedFootprint returns the center and size of the parcel produced by
// merging a and b. The result is a square covering the union of both, at
// least one size increment larger than the originals, and odd-sized.
func MergedFootprint(a, b *domain.LandParcel, sizeIncrease int) (centerX, centerY, size int) {
	u := ParcelBounds(a).Union(ParcelBounds(b))
	size = max(u.Width(), u.Height(), a.Size+sizeIncrease)
	if size%2 == 0 {
		size++
	}
	centerX = u.MinX + (u.Width()-1)/2
	centerY = u.MinY + (u.Height()-1)/2
	return centerX, centerY, size
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
