package world

import (
	"github.com/aquilax/go-perlin"

	"github.com/annel0/voxel-world/internal/vec"
)

// ChunkGenerator синтезирует содержимое чанка по его координатам.
// Реализации обязаны быть детерминированными и безопасными для
// параллельного вызова из нескольких воркеров.
type ChunkGenerator interface {
	GenerateChunk(coords vec.Vec3) (*VoxelChunk, error)
}

// Параметры рельефа. Частота и амплитуда фиксируются на весь мир,
// чтобы границы чанков сходились без швов.
const (
	defaultNoiseScale      = 0.03 // Масштаб поля высот
	defaultHeightAmplitude = 24.0 // Разброс высот рельефа
	defaultHeightBase      = 4    // Минимальная высота колонны
	defaultSandLevel       = 9    // Ниже этой высоты поверхность — песок
	defaultDirtDepth       = 3    // Толщина слоя земли под поверхностью
	oreNoiseScale          = 0.11 // Масштаб шума угольных жил
	oreThreshold           = 0.72 // Порог появления угля в камне
)

// TerrainGenerator — чистая функция от координат чанка и сида к его
// содержимому. Никакого разделяемого изменяемого состояния: поля шума
// только читаются, поэтому генерация свободно параллелится по чанкам.
type TerrainGenerator struct {
	Seed      int64
	ChunkEdge int64

	surface *perlin.Perlin // Поле высот (x, z)
	ore     *perlin.Perlin // Трёхмерное поле угольных жил
}

// NewTerrainGenerator создаёт генератор рельефа для указанного сида
func NewTerrainGenerator(seed, chunkEdge int64) *TerrainGenerator {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &TerrainGenerator{
		Seed:      seed,
		ChunkEdge: chunkEdge,
		surface:   perlin.NewPerlin(alpha, beta, n, seed),
		ore:       perlin.NewPerlin(alpha, beta, n, seed+42),
	}
}

// SampleHeight возвращает высоту поверхности для колонны (x, z).
// Значение шума (-1..1) приводится к диапазону 0..1 и масштабируется.
func (g *TerrainGenerator) SampleHeight(x, z int64) int64 {
	noise := g.surface.Noise2D(float64(x)*defaultNoiseScale, float64(z)*defaultNoiseScale)
	normalized := (noise + 1.0) / 2.0
	return defaultHeightBase + int64(normalized*defaultHeightAmplitude)
}

// materialAt возвращает материал вокселя на высоте y в колонне
// с поверхностью height
func (g *TerrainGenerator) materialAt(x, y, z, height int64) VoxelKind {
	depth := height - y
	switch {
	case depth == 0:
		if height <= defaultSandLevel {
			return KindSand
		}
		return KindGrass
	case depth <= defaultDirtDepth:
		return KindDirt
	default:
		oreNoise := g.ore.Noise3D(
			float64(x)*oreNoiseScale,
			float64(y)*oreNoiseScale,
			float64(z)*oreNoiseScale,
		)
		if oreNoise > oreThreshold {
			return KindCoal
		}
		return KindStone
	}
}

// GenerateChunk генерирует чанк по его координатам в чанковой решётке.
// Для каждой колонны (x, z) воксели заполняются от основания чанка
// до min(height, верх чанка); выше — пустота. Одинаковые аргументы
// всегда дают побитово одинаковый результат.
func (g *TerrainGenerator) GenerateChunk(coords vec.Vec3) (*VoxelChunk, error) {
	chunk := NewVoxelChunk(coords, g.ChunkEdge)
	origin := chunk.Origin()
	top := origin.Y + g.ChunkEdge - 1

	for lx := int64(0); lx < g.ChunkEdge; lx++ {
		x := origin.X + lx
		for lz := int64(0); lz < g.ChunkEdge; lz++ {
			z := origin.Z + lz
			height := g.SampleHeight(x, z)
			if height < origin.Y {
				continue // Колонна целиком выше рельефа
			}
			columnTop := min64(height, top)
			for y := origin.Y; y <= columnTop; y++ {
				kind := g.materialAt(x, y, z, height)
				chunk.setLocalNoLock(
					vec.Vec3{X: lx, Y: y - origin.Y, Z: lz},
					Voxel{Kind: kind},
				)
			}
		}
	}
	return chunk, nil
}
