package physics

import (
	"math"

	"github.com/annel0/voxel-world/internal/vec"
)

// Ray — луч из точки в направлении (направление единичное)
type Ray struct {
	Origin    vec.Vec3Float
	Direction vec.Vec3Float
}

// NewRay создаёт луч, нормализуя направление
func NewRay(origin, direction vec.Vec3Float) Ray {
	return Ray{Origin: origin, Direction: direction.Normalized()}
}

// IntersectAABB возвращает параметр t входа луча в AABB и нормаль
// грани входа (метод слэбов). ok == false, когда пересечения нет
// или AABB целиком позади начала луча.
func (r Ray) IntersectAABB(box AABB) (t float64, normal vec.Vec3Float, ok bool) {
	txMin, txMax := slab(box.Min.X, box.Max.X, r.Origin.X, r.Direction.X)
	tyMin, tyMax := slab(box.Min.Y, box.Max.Y, r.Origin.Y, r.Direction.Y)
	tzMin, tzMax := slab(box.Min.Z, box.Max.Z, r.Origin.Z, r.Direction.Z)

	tMin := math.Max(txMin, math.Max(tyMin, tzMin))
	tMax := math.Min(txMax, math.Min(tyMax, tzMax))

	if tMax < math.Max(tMin, 0) {
		return 0, vec.Vec3Float{}, false
	}

	// Нормаль определяет ось, давшая t входа
	switch tMin {
	case txMin:
		if r.Direction.X < 0 {
			normal = vec.Vec3Float{X: 1}
		} else {
			normal = vec.Vec3Float{X: -1}
		}
	case tyMin:
		if r.Direction.Y < 0 {
			normal = vec.Vec3Float{Y: 1}
		} else {
			normal = vec.Vec3Float{Y: -1}
		}
	default:
		if r.Direction.Z < 0 {
			normal = vec.Vec3Float{Z: 1}
		} else {
			normal = vec.Vec3Float{Z: -1}
		}
	}
	return tMin, normal, true
}

// slab вычисляет интервал прохождения луча через одну пару
// параллельных плоскостей
func slab(min, max, origin, direction float64) (float64, float64) {
	if direction != 0 {
		invD := 1 / direction
		t0 := (min - origin) * invD
		t1 := (max - origin) * invD
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		return t0, t1
	}
	// Луч параллелен оси: либо всегда внутри слэба, либо никогда
	if origin < min || origin > max {
		return math.Inf(1), math.Inf(-1)
	}
	return math.Inf(-1), math.Inf(1)
}

// castHit — результат броска объёма вдоль направления
type castHit struct {
	Distance float64
	Normal   vec.Vec3Float
	Point    vec.Vec3Float
	VoxelPos vec.Vec3
}

// sphereCast бросает сферу вдоль направления и возвращает ближайшее
// попадание в пределах maxDist. Кубы раздуваются на радиус сферы,
// после чего задача сводится к лучу против AABB.
func sphereCast(origin vec.Vec3Float, radius float64, direction vec.Vec3Float, maxDist float64, boxes []candidateBox) (castHit, bool) {
	ray := NewRay(origin, direction)
	var closest castHit
	found := false
	for _, cb := range boxes {
		inflated := cb.box.Inflate(radius)
		t, normal, ok := ray.IntersectAABB(inflated)
		if !ok || t > maxDist {
			continue
		}
		if !found || t < closest.Distance {
			closest = castHit{
				Distance: t,
				Normal:   normal,
				Point:    ray.Origin.Add(ray.Direction.Mul(t)),
				VoxelPos: cb.pos,
			}
			found = true
		}
	}
	return closest, found
}

// boxCast бросает AABB c полуразмерами halfExtents: кубы расширяются
// на полуразмеры (сумма Минковского), центр тела трактуется как луч
func boxCast(center vec.Vec3Float, halfExtents vec.Vec3Float, direction vec.Vec3Float, maxDist float64, boxes []candidateBox) (castHit, bool) {
	ray := NewRay(center, direction)
	var closest castHit
	found := false
	for _, cb := range boxes {
		inflated := cb.box.InflateBy(halfExtents)
		t, normal, ok := ray.IntersectAABB(inflated)
		if !ok || t > maxDist {
			continue
		}
		if !found || t < closest.Distance {
			closest = castHit{
				Distance: t,
				Normal:   normal,
				Point:    ray.Origin.Add(ray.Direction.Mul(t)),
				VoxelPos: cb.pos,
			}
			found = true
		}
	}
	return closest, found
}
