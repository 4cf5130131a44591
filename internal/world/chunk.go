package world

import (
	"sync"
	"sync/atomic"

	"github.com/annel0/voxel-world/internal/vec"
)

// VoxelChunk представляет плотный кубический блок вокселей с ребром edge.
// Это атомарная единица хранения и мутации мира: размер чанка фиксируется
// при создании и никогда не меняется, все мутации выполняются на месте.
//
// Чанк не знает своей позиции в дереве — координаты передаются вместе
// с хэндлом в результатах запросов (ChunkHandle).
type VoxelChunk struct {
	Coords vec.Vec3 // Координаты чанка в чанковой решётке

	edge   int64
	voxels []Voxel // Плотный массив edge³, индекс (x*edge+y)*edge+z

	Mu            sync.RWMutex // Мьютекс для безопасного доступа на уровне чанка
	dirty         atomic.Bool  // Сигнал "изменён с последнего рендера"
	changeCounter int          // Счетчик изменений
}

// NewVoxelChunk создаёт пустой чанк с указанными координатами и ребром.
// edge должен быть степенью двойки.
func NewVoxelChunk(coords vec.Vec3, edge int64) *VoxelChunk {
	c := &VoxelChunk{
		Coords: coords,
		edge:   edge,
		voxels: make([]Voxel, edge*edge*edge),
	}
	c.dirty.Store(true)
	return c
}

// Edge возвращает длину ребра чанка
func (c *VoxelChunk) Edge() int64 {
	return c.edge
}

// Origin возвращает минимальный угол чанка в мировых координатах
func (c *VoxelChunk) Origin() vec.Vec3 {
	return c.Coords.Mul(c.edge)
}

// Region возвращает регион чанка в мировых координатах
func (c *VoxelChunk) Region() Region {
	return NewRegion(c.Origin(), c.edge)
}

// index вычисляет смещение в плотном массиве по локальным координатам
func (c *VoxelChunk) index(local vec.Vec3) int64 {
	return (local.X*c.edge+local.Y)*c.edge + local.Z
}

// Get возвращает воксель по локальным координатам [0, edge)
func (c *VoxelChunk) Get(local vec.Vec3) Voxel {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.voxels[c.index(local)]
}

// Set устанавливает воксель по локальным координатам и помечает чанк изменённым
func (c *VoxelChunk) Set(local vec.Vec3, v Voxel) {
	c.Mu.Lock()
	c.voxels[c.index(local)] = v
	c.changeCounter++
	c.Mu.Unlock()
	c.dirty.Store(true)
}

// GetWorld возвращает воксель по мировым координатам.
// Координата обязана лежать внутри региона чанка.
func (c *VoxelChunk) GetWorld(pos vec.Vec3) Voxel {
	return c.Get(pos.LocalInChunk(c.edge))
}

// SetWorld устанавливает воксель по мировым координатам
func (c *VoxelChunk) SetWorld(pos vec.Vec3, v Voxel) {
	c.Set(pos.LocalInChunk(c.edge), v)
}

// setLocalNoLock записывает воксель без захвата мьютекса.
// Используется генератором до того, как чанк станет видимым читателям.
func (c *VoxelChunk) setLocalNoLock(local vec.Vec3, v Voxel) {
	c.voxels[c.index(local)] = v
}

// IsDirty возвращает true, если чанк менялся с последнего SetClean
func (c *VoxelChunk) IsDirty() bool {
	return c.dirty.Load()
}

// SetClean сбрасывает флаг изменённости (вызывает рендер-коллаборатор
// после перестройки кэша чанка)
func (c *VoxelChunk) SetClean() {
	c.dirty.Store(false)
}

// ChangeCounter возвращает число мутаций чанка с момента создания
func (c *VoxelChunk) ChangeCounter() int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.changeCounter
}

// IterRegion возвращает итератор по непустым вокселям чанка,
// попадающим в указанный мировой регион. Итератор ленивый и конечный;
// каждый вызов создаёт независимый курсор.
func (c *VoxelChunk) IterRegion(region Region) *ChunkVoxelIterator {
	overlap, ok := c.Region().Intersection(region)
	if !ok {
		return &ChunkVoxelIterator{chunk: c}
	}
	origin := c.Origin()
	return &ChunkVoxelIterator{
		chunk: c,
		x:     overlap.Min.X - origin.X,
		y:     overlap.Min.Y - origin.Y,
		z:     overlap.Min.Z - origin.Z,
		minY:  overlap.Min.Y - origin.Y,
		minZ:  overlap.Min.Z - origin.Z,
		maxX:  overlap.Max.X - origin.X,
		maxY:  overlap.Max.Y - origin.Y,
		maxZ:  overlap.Max.Z - origin.Z,
	}
}

// ChunkVoxelIterator обходит непустые воксели чанка внутри пересечения
// с запрошенным регионом в порядке x, y, z.
type ChunkVoxelIterator struct {
	chunk *VoxelChunk

	x, y, z          int64
	minY, minZ       int64
	maxX, maxY, maxZ int64
}

// VoxelView — воксель вместе с его мировой координатой
type VoxelView struct {
	Pos   vec.Vec3
	Voxel Voxel
}

// Next возвращает следующий непустой воксель.
// ok == false, когда итерация завершена.
func (it *ChunkVoxelIterator) Next() (VoxelView, bool) {
	origin := it.chunk.Origin()
	for it.x < it.maxX {
		for it.y < it.maxY {
			for it.z < it.maxZ {
				local := vec.Vec3{X: it.x, Y: it.y, Z: it.z}
				it.z++
				v := it.chunk.Get(local)
				if !v.IsSolid() {
					continue
				}
				return VoxelView{Pos: origin.Add(local), Voxel: v}, true
			}
			it.z = it.minZ
			it.y++
		}
		it.y = it.minY
		it.x++
	}
	return VoxelView{}, false
}
