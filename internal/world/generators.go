package world

import (
	"fmt"

	"github.com/aquilax/go-perlin"

	"github.com/annel0/voxel-world/internal/vec"
)

// Альтернативные генераторы содержимого чанков. Основной рельеф синтезирует
// TerrainGenerator; эти выбираются отладочными сценами и бенчмарками.

// CubicGenerator заполняет чанк сплошным материалом. Худший случай
// по плотности: каждая ячейка твёрдая.
type CubicGenerator struct {
	ChunkEdge int64
	Kind      VoxelKind
}

// NewCubicGenerator создаёт генератор сплошного заполнения.
// KindEmpty заменяется на землю: пустой куб бессмыслен.
func NewCubicGenerator(chunkEdge int64, kind VoxelKind) *CubicGenerator {
	if kind == KindEmpty {
		kind = KindDirt
	}
	return &CubicGenerator{ChunkEdge: chunkEdge, Kind: kind}
}

func (g *CubicGenerator) GenerateChunk(coords vec.Vec3) (*VoxelChunk, error) {
	chunk := NewVoxelChunk(coords, g.ChunkEdge)
	for x := int64(0); x < g.ChunkEdge; x++ {
		for y := int64(0); y < g.ChunkEdge; y++ {
			for z := int64(0); z < g.ChunkEdge; z++ {
				chunk.setLocalNoLock(vec.Vec3{X: x, Y: y, Z: z}, Voxel{Kind: g.Kind})
			}
		}
	}
	return chunk, nil
}

// DebugGenerator помечает восемь углов чанка одиночными вокселями —
// разреженный каркас для визуальной проверки границ чанков и обхода дерева.
type DebugGenerator struct {
	ChunkEdge int64
}

// NewDebugGenerator создаёт генератор угловых меток
func NewDebugGenerator(chunkEdge int64) *DebugGenerator {
	return &DebugGenerator{ChunkEdge: chunkEdge}
}

func (g *DebugGenerator) GenerateChunk(coords vec.Vec3) (*VoxelChunk, error) {
	chunk := NewVoxelChunk(coords, g.ChunkEdge)
	e := g.ChunkEdge - 1
	corners := [8]vec.Vec3{
		{},
		{X: e}, {Y: e}, {Z: e},
		{X: e, Y: e}, {X: e, Z: e}, {Y: e, Z: e},
		{X: e, Y: e, Z: e},
	}
	for _, p := range corners {
		chunk.setLocalNoLock(p, Voxel{Kind: KindDirt})
	}
	return chunk, nil
}

// Параметры пещерного генератора: твёрдой становится узкая полоса
// значений трёхмерного шума, остальное — пустота.
const (
	caveNoiseScale = 0.03
	caveBandLow    = 0.1
	caveBandHigh   = 0.25
)

// Noise3DGenerator вырезает полый «пещерный» мир из трёхмерного шумового
// поля. Детерминирован и свободен от разделяемого состояния, как и
// остальные генераторы.
type Noise3DGenerator struct {
	Seed      int64
	ChunkEdge int64

	noise *perlin.Perlin
}

// NewNoise3DGenerator создаёт пещерный генератор для указанного сида
func NewNoise3DGenerator(seed, chunkEdge int64) *Noise3DGenerator {
	return &Noise3DGenerator{
		Seed:      seed,
		ChunkEdge: chunkEdge,
		noise:     perlin.NewPerlin(2.0, 2.0, 3, seed),
	}
}

func (g *Noise3DGenerator) GenerateChunk(coords vec.Vec3) (*VoxelChunk, error) {
	chunk := NewVoxelChunk(coords, g.ChunkEdge)
	origin := chunk.Origin()

	for lx := int64(0); lx < g.ChunkEdge; lx++ {
		fx := float64(origin.X+lx) * caveNoiseScale
		for lz := int64(0); lz < g.ChunkEdge; lz++ {
			fz := float64(origin.Z+lz) * caveNoiseScale
			for ly := int64(0); ly < g.ChunkEdge; ly++ {
				fy := float64(origin.Y+ly) * caveNoiseScale
				value := g.noise.Noise3D(fx, fy, fz)
				if value <= caveBandLow || value >= caveBandHigh {
					continue
				}
				// Полоса делится на три яруса материала
				kind := KindSand
				switch {
				case value < 0.15:
					kind = KindStone
				case value < 0.2:
					kind = KindCoal
				}
				chunk.setLocalNoLock(vec.Vec3{X: lx, Y: ly, Z: lz}, Voxel{Kind: kind})
			}
		}
	}
	return chunk, nil
}

// NewGeneratorByName создаёт генератор по имени из конфигурации или CLI.
// Пустое имя означает основной рельеф (heightmap).
func NewGeneratorByName(name string, seed, chunkEdge int64) (ChunkGenerator, error) {
	switch name {
	case "", "heightmap":
		return NewTerrainGenerator(seed, chunkEdge), nil
	case "cubic":
		return NewCubicGenerator(chunkEdge, KindDirt), nil
	case "debug":
		return NewDebugGenerator(chunkEdge), nil
	case "noise3d":
		return NewNoise3DGenerator(seed, chunkEdge), nil
	default:
		return nil, fmt.Errorf("world: неизвестный генератор %q", name)
	}
}
