package physics

import (
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRay_IntersectAABB(t *testing.T) {
	box := NewAABB(vec.Vec3Float{X: 2, Y: -1, Z: -1}, vec.Vec3Float{X: 4, Y: 1, Z: 1})
	ray := NewRay(vec.Vec3Float{}, vec.Vec3Float{X: 1})

	tHit, normal, ok := ray.IntersectAABB(box)
	require.True(t, ok)
	assert.InDelta(t, 2.0, tHit, 1e-12)
	assert.Equal(t, vec.Vec3Float{X: -1}, normal, "Нормаль грани входа смотрит навстречу лучу")
}

func TestRay_MissAndBehind(t *testing.T) {
	box := NewAABB(vec.Vec3Float{X: 2, Y: 2, Z: 2}, vec.Vec3Float{X: 3, Y: 3, Z: 3})

	// Луч параллелен оси и вне слэба
	ray := NewRay(vec.Vec3Float{}, vec.Vec3Float{X: 1})
	_, _, ok := ray.IntersectAABB(box)
	assert.False(t, ok)

	// Куб целиком позади начала луча
	ray = NewRay(vec.Vec3Float{X: 10, Y: 2.5, Z: 2.5}, vec.Vec3Float{X: 1})
	_, _, ok = ray.IntersectAABB(box)
	assert.False(t, ok, "Куб позади начала луча не должен пересекаться")
}

func TestSphereCast_HitsPlane(t *testing.T) {
	// Плоскость из кубов на z=5: бросок сферы радиуса 1 должен
	// остановиться на расстоянии 4 (касание поверхности)
	plane := candidateBox{
		pos: vec.Vec3{Z: 5},
		box: NewAABB(vec.Vec3Float{X: -100, Y: -100, Z: 5}, vec.Vec3Float{X: 100, Y: 100, Z: 25}),
	}

	hit, ok := sphereCast(vec.Vec3Float{}, 1.0, vec.Vec3Float{Z: 1}, 10.0, []candidateBox{plane})
	require.True(t, ok)
	assert.InDelta(t, 4.0, hit.Distance, 1e-9, "Сфера касается плоскости на расстоянии 4")
	assert.Equal(t, vec.Vec3Float{Z: -1}, hit.Normal)
}

func TestSphereCast_RespectsMaxDistance(t *testing.T) {
	plane := candidateBox{
		pos: vec.Vec3{Z: 12},
		box: NewAABB(vec.Vec3Float{X: -100, Y: -100, Z: 12}, vec.Vec3Float{X: 100, Y: 100, Z: 25}),
	}

	_, ok := sphereCast(vec.Vec3Float{}, 1.0, vec.Vec3Float{Z: 1}, 10.0, []candidateBox{plane})
	assert.False(t, ok, "Попадание за пределами maxDist отбрасывается")
}

func TestSphereCast_PicksClosest(t *testing.T) {
	near := candidateBox{pos: vec.Vec3{X: 3}, box: VoxelBox(vec.Vec3{X: 3})}
	far := candidateBox{pos: vec.Vec3{X: 6}, box: VoxelBox(vec.Vec3{X: 6})}

	hit, ok := sphereCast(vec.Vec3Float{Y: 0.5, Z: 0.5}, 0.5, vec.Vec3Float{X: 1}, 10.0, []candidateBox{far, near})
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{X: 3}, hit.VoxelPos, "Из нескольких попаданий выбирается ближайшее")
}
