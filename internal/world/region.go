package world

import "github.com/annel0/voxel-world/internal/vec"

// Region представляет целочисленный AABB в мировых координатах.
// Полуоткрытый: Min включается, Max — нет.
type Region struct {
	Min vec.Vec3
	Max vec.Vec3
}

// NewRegion создаёт кубический регион с минимальным углом min и ребром edge
func NewRegion(min vec.Vec3, edge int64) Region {
	return Region{
		Min: min,
		Max: vec.Vec3{X: min.X + edge, Y: min.Y + edge, Z: min.Z + edge},
	}
}

// NewRegionRect создаёт регион по двум углам
func NewRegionRect(min, max vec.Vec3) Region {
	return Region{Min: min, Max: max}
}

// Intersects проверяет пересечение двух регионов.
// Касающиеся регионы (общая грань) не пересекаются.
func (r Region) Intersects(other Region) bool {
	return r.Min.X < other.Max.X && r.Max.X > other.Min.X &&
		r.Min.Y < other.Max.Y && r.Max.Y > other.Min.Y &&
		r.Min.Z < other.Max.Z && r.Max.Z > other.Min.Z
}

// Intersection возвращает пересечение регионов.
// ok == false, если пересечение пусто.
func (r Region) Intersection(other Region) (Region, bool) {
	overlap := Region{
		Min: vec.Vec3{
			X: max64(r.Min.X, other.Min.X),
			Y: max64(r.Min.Y, other.Min.Y),
			Z: max64(r.Min.Z, other.Min.Z),
		},
		Max: vec.Vec3{
			X: min64(r.Max.X, other.Max.X),
			Y: min64(r.Max.Y, other.Max.Y),
			Z: min64(r.Max.Z, other.Max.Z),
		},
	}
	if overlap.Max.X <= overlap.Min.X || overlap.Max.Y <= overlap.Min.Y || overlap.Max.Z <= overlap.Min.Z {
		return Region{}, false
	}
	return overlap, true
}

// Contains проверяет, что other целиком лежит внутри r
func (r Region) Contains(other Region) bool {
	return r.Min.X <= other.Min.X && r.Min.Y <= other.Min.Y && r.Min.Z <= other.Min.Z &&
		r.Max.X >= other.Max.X && r.Max.Y >= other.Max.Y && r.Max.Z >= other.Max.Z
}

// ContainsPoint проверяет принадлежность точки региону
func (r Region) ContainsPoint(p vec.Vec3) bool {
	return p.X >= r.Min.X && p.X < r.Max.X &&
		p.Y >= r.Min.Y && p.Y < r.Max.Y &&
		p.Z >= r.Min.Z && p.Z < r.Max.Z
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
