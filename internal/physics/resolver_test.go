package physics

import (
	"testing"
	"time"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStaticWorld создаёт мир без генерации и устанавливает один чанк,
// заполненный через fill
func newStaticWorld(t *testing.T, chunkEdge int64, fill func(chunk *world.VoxelChunk)) *world.VoxelWorld {
	t.Helper()
	w := world.NewVoxelWorldWorkers(1, chunkEdge, 1)
	t.Cleanup(w.Close)

	chunk := world.NewVoxelChunk(vec.Vec3{}, chunkEdge)
	fill(chunk)
	ok, err := w.Tree().Install(chunk)
	require.NoError(t, err)
	require.True(t, ok)
	return w
}

// newFloorWorld создаёт чанк с твёрдым полом y < 4 (верхняя грань пола — y=4)
func newFloorWorld(t *testing.T) *world.VoxelWorld {
	return newStaticWorld(t, 16, func(chunk *world.VoxelChunk) {
		for x := int64(0); x < 16; x++ {
			for y := int64(0); y < 4; y++ {
				for z := int64(0); z < 16; z++ {
					chunk.Set(vec.Vec3{X: x, Y: y, Z: z}, world.Voxel{Kind: world.KindStone})
				}
			}
		}
	})
}

func drainGeneration(t *testing.T, w *world.VoxelWorld) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for w.PendingGeneration() > 0 {
		require.True(t, time.Now().Before(deadline), "Генерация не завершилась за отведённое время")
		_, failures := w.PollGenerated()
		require.Empty(t, failures)
		time.Sleep(time.Millisecond)
	}
	w.PollGenerated()
}

func TestResolveMotion_FreePath(t *testing.T) {
	w := newFloorWorld(t)
	e := NewEngine(w)

	pos := vec.Vec3Float{X: 8, Y: 10, Z: 8}
	disp := vec.Vec3Float{X: 1, Y: 0, Z: 1}
	res := e.ResolveMotion(Sphere{Radius: 1}, pos, disp)

	assert.Equal(t, pos.Add(disp), res.Position, "Без препятствий смещение применяется целиком")
	assert.Empty(t, res.Contacts)
	assert.False(t, res.Blocked)
}

func TestResolveMotion_FallingSphereRestsTangent(t *testing.T) {
	// Сфера радиуса 1 падает на пол с верхней гранью y=4:
	// покой — центр на y=5, низ сферы касается пола
	w := newFloorWorld(t)
	e := NewEngine(w)

	pos := vec.Vec3Float{X: 8, Y: 10, Z: 8}
	step := vec.Vec3Float{Y: -0.5}
	for i := 0; i < 40; i++ {
		res := e.ResolveMotion(Sphere{Radius: 1}, pos, step)
		pos = res.Position
	}

	assert.InDelta(t, 5.0, pos.Y, 1e-6, "Центр покоящейся сферы на радиус выше пола")
	assert.Equal(t, 8.0, pos.X, "Горизонтальная позиция не должна дрейфовать")
	assert.Equal(t, 8.0, pos.Z)

	// В позиции покоя есть контакт с полом
	res := e.ResolveMotion(Sphere{Radius: 1}, pos, vec.Vec3Float{Y: -0.1})
	assert.InDelta(t, 5.0, res.Position.Y, 1e-6)
}

func TestResolveMotion_SlideAlongFloor(t *testing.T) {
	// Диагональное движение в пол: вертикальная составляющая гасится,
	// горизонтальная сохраняется — скольжение по поверхности
	w := newFloorWorld(t)
	e := NewEngine(w)

	pos := vec.Vec3Float{X: 5, Y: 5.0, Z: 8}
	res := e.ResolveMotion(Sphere{Radius: 1}, pos, vec.Vec3Float{X: 0.5, Y: -0.5})

	assert.InDelta(t, 5.0, res.Position.Y, 1e-6, "Сфера не должна уходить под пол")
	assert.Greater(t, res.Position.X, pos.X, "Горизонтальное скольжение должно сохраниться")
}

func TestResolveMotion_ConcaveCornerNoTunneling(t *testing.T) {
	// Две стены образуют вогнутый угол: x>=8 и z>=8.
	// Сфера, идущая по диагонали в угол, останавливается у угла
	// и не проходит ни сквозь одну из граней.
	w := newStaticWorld(t, 16, func(chunk *world.VoxelChunk) {
		for a := int64(0); a < 16; a++ {
			for y := int64(0); y < 16; y++ {
				for d := int64(8); d < 16; d++ {
					chunk.Set(vec.Vec3{X: d, Y: y, Z: a}, world.Voxel{Kind: world.KindStone})
					chunk.Set(vec.Vec3{X: a, Y: y, Z: d}, world.Voxel{Kind: world.KindStone})
				}
			}
		}
	})
	e := NewEngine(w)

	radius := 1.0
	pos := vec.Vec3Float{X: 5, Y: 8, Z: 5}
	step := vec.Vec3Float{X: 0.4, Z: 0.4}
	for i := 0; i < 30; i++ {
		res := e.ResolveMotion(Sphere{Radius: radius}, pos, step)
		pos = res.Position

		// Допуск SkinWidth: при косом подходе зазор вдоль луча даёт
		// погрешность порядка зазора поперёк грани
		require.LessOrEqual(t, pos.X, 8.0-radius+SkinWidth,
			"Сфера не должна проникать сквозь стену x=8 (шаг %d)", i)
		require.LessOrEqual(t, pos.Z, 8.0-radius+SkinWidth,
			"Сфера не должна проникать сквозь стену z=8 (шаг %d)", i)
	}

	// Сфера дошла до угла, а не застряла на полпути
	assert.InDelta(t, 8.0-radius, pos.X, 0.1, "Сфера должна остановиться у самого угла")
	assert.InDelta(t, 8.0-radius, pos.Z, 0.1)
}

func TestResolveMotion_BoxVolume(t *testing.T) {
	w := newFloorWorld(t)
	e := NewEngine(w)

	half := vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5}
	pos := vec.Vec3Float{X: 8, Y: 8, Z: 8}
	step := vec.Vec3Float{Y: -0.5}
	for i := 0; i < 20; i++ {
		res := e.ResolveMotion(Box{HalfExtents: half}, pos, step)
		pos = res.Position
	}

	assert.InDelta(t, 4.5, pos.Y, 1e-6, "Низ куба должен покоиться на полу")
}

func collectSolid(w *world.VoxelWorld, region world.Region) map[vec.Vec3]struct{} {
	solid := make(map[vec.Vec3]struct{})
	it := w.IterVoxels(region, false)
	for {
		view, ok := it.Next()
		if !ok {
			return solid
		}
		solid[view.Pos] = struct{}{}
	}
}

func TestApplyExplosion_RemovesSphere(t *testing.T) {
	w := newFloorWorld(t)
	e := NewEngine(w)

	center := vec.Vec3Float{X: 8, Y: 4, Z: 8}
	removed := e.ApplyExplosion(center, 3.0)
	require.NotEmpty(t, removed, "Взрыв в полу должен удалить воксели")

	for _, p := range removed {
		assert.False(t, w.VoxelAt(p).IsSolid(), "Удалённый воксель %v должен быть пустым", p)
		_, hit := SphereBoxContact(center, 3.0, p, VoxelBox(p))
		assert.True(t, hit, "Удалённый воксель %v должен пересекать сферу взрыва", p)
	}

	// Воксели за пределами сферы не тронуты
	assert.True(t, w.VoxelAt(vec.Vec3{X: 1, Y: 0, Z: 1}).IsSolid())
}

func TestApplyExplosion_Idempotent(t *testing.T) {
	w := newFloorWorld(t)
	e := NewEngine(w)
	region := world.NewRegion(vec.Vec3{}, 16)

	center := vec.Vec3Float{X: 8, Y: 4, Z: 8}
	first := e.ApplyExplosion(center, 3.0)
	require.NotEmpty(t, first)
	afterFirst := collectSolid(w, region)

	second := e.ApplyExplosion(center, 3.0)
	assert.Empty(t, second, "Повторный взрыв не находит твёрдых вокселей в сфере")
	afterSecond := collectSolid(w, region)

	assert.Equal(t, afterFirst, afterSecond, "Повторный взрыв не должен менять состояние мира")
}

func TestApplyExplosion_OutsideRootBounds(t *testing.T) {
	// Взрыв целиком за пределами текущего корня дерева: там нет узлов,
	// но регион такой же несгенерированный — взрыв откладывается,
	// а генерация ставится в очередь, как и для несгенерированного узла
	w := world.NewVoxelWorldWorkers(42, 16, 1)
	t.Cleanup(w.Close)
	e := NewEngine(w)

	center := vec.Vec3Float{X: 100, Y: 2, Z: 100}
	removed := e.ApplyExplosion(center, 2.0)
	assert.Empty(t, removed, "До генерации удалять нечего")
	assert.Equal(t, 1, e.PendingExplosions(), "Взрыв за границами корня должен быть отложен")
	assert.Greater(t, w.PendingGeneration(), 0, "Генерация области взрыва должна встать в очередь")

	drainGeneration(t, w)

	replayed := e.FlushPending()
	assert.NotEmpty(t, replayed, "После генерации отложенный взрыв должен удалить воксели")
	assert.False(t, w.VoxelAt(vec.Vec3{X: 100, Y: 2, Z: 100}).IsSolid(), "Эпицентр должен быть пустым")
}

func TestApplyExplosion_DeferredUntilGenerated(t *testing.T) {
	// Взрыв по несгенерированному региону откладывается: генерация
	// ставится в очередь, а удаление доигрывается после установки чанков
	w := world.NewVoxelWorldWorkers(42, 16, 1)
	t.Cleanup(w.Close)
	e := NewEngine(w)

	center := vec.Vec3Float{X: 8, Y: 2, Z: 8}
	removed := e.ApplyExplosion(center, 2.0)
	assert.Empty(t, removed, "До генерации удалять нечего")
	assert.Equal(t, 1, e.PendingExplosions(), "Взрыв должен быть отложен")

	drainGeneration(t, w)

	replayed := e.FlushPending()
	assert.NotEmpty(t, replayed, "После генерации отложенный взрыв должен удалить воксели")
	assert.Equal(t, 0, e.PendingExplosions())
	assert.False(t, w.VoxelAt(vec.Vec3{X: 8, Y: 2, Z: 8}).IsSolid(), "Эпицентр должен быть пустым")
}
