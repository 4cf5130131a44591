package physics

import (
	"math"

	"github.com/annel0/voxel-world/internal/vec"
)

// boundaryEpsilon компенсирует ошибку округления при сравнении
// вещественных расстояний с целочисленными границами вокселей.
// Добавляется к r² в тесте сфера–куб, поэтому касание грани на
// расстоянии ровно r считается пересечением (замкнутая граница),
// а расстояние r+ε уже нет.
const boundaryEpsilon = 1e-7

// ContactInfo описывает один контакт с вокселем. Живёт в пределах
// одного вызова разрешения движения.
type ContactInfo struct {
	VoxelPos     vec.Vec3      // Целочисленный угол вокселя
	ContactPoint vec.Vec3Float // Ближайшая точка поверхности
	Normal       vec.Vec3Float // Единичная нормаль поверхности (к центру тела)
	Penetration  float64       // Глубина проникновения
}

// SphereBoxContact проверяет пересечение сферы с AABB по ближайшей
// точке: центр зажимается в границы куба, пересечение — когда квадрат
// расстояния до зажатой точки не превосходит r².
func SphereBoxContact(center vec.Vec3Float, radius float64, voxelPos vec.Vec3, box AABB) (ContactInfo, bool) {
	closest := center.Clamp(box.Min, box.Max)
	delta := center.Sub(closest)
	distSq := delta.LengthSquared()
	if distSq > radius*radius+boundaryEpsilon {
		return ContactInfo{}, false
	}

	var normal vec.Vec3Float
	var dist float64
	if distSq >= 1e-10 {
		dist = math.Sqrt(distSq)
		normal = delta.Mul(1 / dist)
	} else {
		// Центр внутри куба: нормаль — по оси наименьшего выхода
		normal = interiorNormal(center, box)
		dist = 0
	}

	return ContactInfo{
		VoxelPos:     voxelPos,
		ContactPoint: closest,
		Normal:       normal,
		Penetration:  radius - dist,
	}, true
}

// BoxBoxContact проверяет пересечение двух AABB. Нормаль — по оси
// наименьшего перекрытия, в сторону от b к a.
func BoxBoxContact(a AABB, voxelPos vec.Vec3, b AABB) (ContactInfo, bool) {
	if !a.Intersects(b) {
		return ContactInfo{}, false
	}

	px := minf(b.Max.X-a.Min.X, a.Max.X-b.Min.X)
	py := minf(b.Max.Y-a.Min.Y, a.Max.Y-b.Min.Y)
	pz := minf(b.Max.Z-a.Min.Z, a.Max.Z-b.Min.Z)

	var normal vec.Vec3Float
	var penetration float64
	switch {
	case px < py && px < pz:
		penetration = px
		if a.Max.X-b.Min.X < b.Max.X-a.Min.X {
			normal = vec.Vec3Float{X: -1}
		} else {
			normal = vec.Vec3Float{X: 1}
		}
	case py < pz:
		penetration = py
		if a.Max.Y-b.Min.Y < b.Max.Y-a.Min.Y {
			normal = vec.Vec3Float{Y: -1}
		} else {
			normal = vec.Vec3Float{Y: 1}
		}
	default:
		penetration = pz
		if a.Max.Z-b.Min.Z < b.Max.Z-a.Min.Z {
			normal = vec.Vec3Float{Z: -1}
		} else {
			normal = vec.Vec3Float{Z: 1}
		}
	}

	overlapMin := vec.Vec3Float{
		X: maxf(a.Min.X, b.Min.X),
		Y: maxf(a.Min.Y, b.Min.Y),
		Z: maxf(a.Min.Z, b.Min.Z),
	}
	overlapMax := vec.Vec3Float{
		X: minf(a.Max.X, b.Max.X),
		Y: minf(a.Max.Y, b.Max.Y),
		Z: minf(a.Max.Z, b.Max.Z),
	}

	return ContactInfo{
		VoxelPos:     voxelPos,
		ContactPoint: overlapMin.Add(overlapMax).Mul(0.5),
		Normal:       normal,
		Penetration:  penetration,
	}, true
}

// interiorNormal выбирает нормаль для центра, лежащего внутри куба:
// ось, по которой до грани ближе всего
func interiorNormal(center vec.Vec3Float, box AABB) vec.Vec3Float {
	dxMin := center.X - box.Min.X
	dxMax := box.Max.X - center.X
	dyMin := center.Y - box.Min.Y
	dyMax := box.Max.Y - center.Y
	dzMin := center.Z - box.Min.Z
	dzMax := box.Max.Z - center.Z

	best := dxMin
	normal := vec.Vec3Float{X: -1}
	if dxMax < best {
		best = dxMax
		normal = vec.Vec3Float{X: 1}
	}
	if dyMin < best {
		best = dyMin
		normal = vec.Vec3Float{Y: -1}
	}
	if dyMax < best {
		best = dyMax
		normal = vec.Vec3Float{Y: 1}
	}
	if dzMin < best {
		best = dzMin
		normal = vec.Vec3Float{Z: -1}
	}
	if dzMax < best {
		normal = vec.Vec3Float{Z: 1}
	}
	return normal
}
