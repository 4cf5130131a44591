package world

import (
	"runtime"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
)

// VoxelWorld — фасад пространственного ядра: дерево, генератор
// и планировщик под одним конструктором. Это единственная связь,
// видимая слою выбора сцены: сид мира и длина ребра чанка.
type VoxelWorld struct {
	seed      int64
	chunkEdge int64

	tree      *WorldTree
	generator ChunkGenerator
	scheduler *GenerationScheduler
}

// NewVoxelWorld создаёт мир с указанным сидом и ребром чанка.
// Воркеры генерации — по числу процессоров.
func NewVoxelWorld(seed, chunkEdge int64) *VoxelWorld {
	return NewVoxelWorldWorkers(seed, chunkEdge, runtime.NumCPU())
}

// NewVoxelWorldWorkers создаёт мир с явным числом воркеров генерации
func NewVoxelWorldWorkers(seed, chunkEdge int64, workers int) *VoxelWorld {
	return NewVoxelWorldGenerator(seed, chunkEdge, workers, NewTerrainGenerator(seed, chunkEdge))
}

// NewVoxelWorldGenerator создаёт мир с произвольным генератором чанков
// (дебажные сцены используют cubic/noise3d вместо основного рельефа)
func NewVoxelWorldGenerator(seed, chunkEdge int64, workers int, generator ChunkGenerator) *VoxelWorld {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	tree := NewWorldTree(chunkEdge)
	scheduler := NewGenerationScheduler(tree, generator, workers)
	logging.Info("Мир создан: сид=%d, ребро чанка=%d", seed, chunkEdge)
	return &VoxelWorld{
		seed:      seed,
		chunkEdge: chunkEdge,
		tree:      tree,
		generator: generator,
		scheduler: scheduler,
	}
}

// Close останавливает воркеров генерации
func (w *VoxelWorld) Close() {
	w.scheduler.Stop()
}

// Seed возвращает сид мира
func (w *VoxelWorld) Seed() int64 { return w.seed }

// ChunkEdge возвращает длину ребра чанка
func (w *VoxelWorld) ChunkEdge() int64 { return w.chunkEdge }

// Tree возвращает пространственный индекс
func (w *VoxelWorld) Tree() *WorldTree { return w.tree }

// Generator возвращает генератор чанков мира
func (w *VoxelWorld) Generator() ChunkGenerator { return w.generator }

// Terrain возвращает основной генератор рельефа или nil,
// если мир построен на другом генераторе
func (w *VoxelWorld) Terrain() *TerrainGenerator {
	t, _ := w.generator.(*TerrainGenerator)
	return t
}

// RequestRegion ставит в очередь генерацию несгенерированных чанков региона.
// Возвращается немедленно; готовые чанки забираются через PollGenerated.
func (w *VoxelWorld) RequestRegion(region Region) (int, error) {
	return w.scheduler.Request(region)
}

// PollGenerated устанавливает готовые чанки в дерево и сообщает
// об ошибках генерации. Для каждого установленного чанка публикуется
// событие ChunkGenerated.
func (w *VoxelWorld) PollGenerated() ([]InstalledChunk, []GenerationError) {
	installed, failures := w.scheduler.Poll()
	for _, ic := range installed {
		publishWorldEvent(EventChunkGenerated, ChunkEventPayload{Coords: ic.Coords})
	}
	for _, f := range failures {
		logging.Warn("Ошибка генерации чанка %v: %v", f.ChunkCoords, f.Err)
	}
	return installed, failures
}

// PendingGeneration возвращает число задач генерации в очереди
func (w *VoxelWorld) PendingGeneration() int {
	return w.scheduler.PendingCount()
}

// CancelRegion снимает задачи генерации региона, который больше не интересен
func (w *VoxelWorld) CancelRegion(region Region) int {
	return w.scheduler.Cancel(region)
}

// VoxelAt возвращает воксель по мировой координате
// (пустота для несгенерированных регионов)
func (w *VoxelWorld) VoxelAt(p vec.Vec3) Voxel {
	return w.tree.VoxelAt(p)
}

// SetVoxel мутирует воксель на месте и публикует ChunkDirty для его чанка.
// Чанк обязан быть сгенерирован.
func (w *VoxelWorld) SetVoxel(p vec.Vec3, v Voxel) error {
	if err := w.tree.SetVoxel(p, v); err != nil {
		return err
	}
	publishWorldEvent(EventChunkDirty, ChunkEventPayload{Coords: p.ToChunkCoords(w.chunkEdge)})
	return nil
}

// IterChunks возвращает ленивый итератор по сгенерированным чанкам региона
func (w *VoxelWorld) IterChunks(region Region) *ChunkIterator {
	return w.tree.IterChunks(region)
}

// IterVoxels возвращает ленивый итератор по непустым вокселям региона
func (w *VoxelWorld) IterVoxels(region Region, exposedOnly bool) *VoxelIterator {
	return w.tree.IterVoxels(region, exposedOnly)
}

// IterNodes возвращает ленивый итератор по узлам региона
// (включая несгенерированные)
func (w *VoxelWorld) IterNodes(region Region) *NodeIterator {
	return w.tree.IterNodes(region)
}

// QueryRegionChunks собирает сгенерированные чанки региона в срез.
// Для больших регионов предпочтительнее IterChunks.
func (w *VoxelWorld) QueryRegionChunks(region Region) []ChunkHandle {
	var handles []ChunkHandle
	it := w.IterChunks(region)
	for {
		h, ok := it.Next()
		if !ok {
			return handles
		}
		handles = append(handles, h)
	}
}

// NotifyVoxelsRemoved публикует событие удаления вокселей (взрыв)
// и ChunkDirty для каждого затронутого чанка
func (w *VoxelWorld) NotifyVoxelsRemoved(removed []vec.Vec3) {
	if len(removed) == 0 {
		return
	}
	publishWorldEvent(EventVoxelsRemoved, VoxelsRemovedPayload{Voxels: removed})
	seen := make(map[vec.Vec3]struct{})
	for _, p := range removed {
		coords := p.ToChunkCoords(w.chunkEdge)
		if _, ok := seen[coords]; ok {
			continue
		}
		seen[coords] = struct{}{}
		publishWorldEvent(EventChunkDirty, ChunkEventPayload{Coords: coords})
	}
}
