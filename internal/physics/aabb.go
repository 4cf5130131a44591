package physics

import (
	"github.com/annel0/voxel-world/internal/vec"
)

// AABB — осеориентированный параллелепипед в мировых координатах.
// Полуинтервальность здесь не нужна: границы вещественные и замкнутые.
type AABB struct {
	Min vec.Vec3Float
	Max vec.Vec3Float
}

// NewAABB создаёт AABB по минимальному и максимальному углам
func NewAABB(min, max vec.Vec3Float) AABB {
	return AABB{Min: min, Max: max}
}

// NewAABBCenter создаёт AABB по центру и полуразмерам
func NewAABBCenter(center, halfExtents vec.Vec3Float) AABB {
	return AABB{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
}

// VoxelBox возвращает единичный куб вокселя с целочисленным углом p
func VoxelBox(p vec.Vec3) AABB {
	min := vec.FromVec3(p)
	return AABB{Min: min, Max: min.Add(vec.Vec3Float{X: 1, Y: 1, Z: 1})}
}

// Center возвращает геометрический центр
func (b AABB) Center() vec.Vec3Float {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Intersects проверяет пересечение с другим AABB (замкнутые границы)
func (b AABB) Intersects(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// Union возвращает наименьший AABB, покрывающий оба
func (b AABB) Union(other AABB) AABB {
	return AABB{
		Min: vec.Vec3Float{
			X: minf(b.Min.X, other.Min.X),
			Y: minf(b.Min.Y, other.Min.Y),
			Z: minf(b.Min.Z, other.Min.Z),
		},
		Max: vec.Vec3Float{
			X: maxf(b.Max.X, other.Max.X),
			Y: maxf(b.Max.Y, other.Max.Y),
			Z: maxf(b.Max.Z, other.Max.Z),
		},
	}
}

// Inflate равномерно расширяет AABB на указанную величину по каждой оси
func (b AABB) Inflate(amount float64) AABB {
	d := vec.Vec3Float{X: amount, Y: amount, Z: amount}
	return AABB{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

// InflateBy расширяет AABB на указанные полуразмеры (сумма Минковского)
func (b AABB) InflateBy(halfExtents vec.Vec3Float) AABB {
	return AABB{Min: b.Min.Sub(halfExtents), Max: b.Max.Add(halfExtents)}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
