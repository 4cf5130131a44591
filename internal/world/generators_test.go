package world

import (
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCubicGenerator_FillsChunk(t *testing.T) {
	g := NewCubicGenerator(8, KindDirt)
	chunk, err := g.GenerateChunk(vec.Vec3{X: -1, Y: 2, Z: 0})
	require.NoError(t, err)

	for x := int64(0); x < 8; x++ {
		for y := int64(0); y < 8; y++ {
			for z := int64(0); z < 8; z++ {
				v := chunk.Get(vec.Vec3{X: x, Y: y, Z: z})
				require.Equal(t, KindDirt, v.Kind, "Каждая ячейка сплошного чанка твёрдая")
			}
		}
	}
}

func TestCubicGenerator_EmptyKindDefaultsToDirt(t *testing.T) {
	g := NewCubicGenerator(8, KindEmpty)
	assert.Equal(t, KindDirt, g.Kind, "Пустой материал заменяется на землю")
}

func TestDebugGenerator_CornerMarkers(t *testing.T) {
	g := NewDebugGenerator(8)
	chunk, err := g.GenerateChunk(vec.Vec3{X: 3, Y: -2, Z: 1})
	require.NoError(t, err)

	solid := 0
	for x := int64(0); x < 8; x++ {
		for y := int64(0); y < 8; y++ {
			for z := int64(0); z < 8; z++ {
				if chunk.Get(vec.Vec3{X: x, Y: y, Z: z}).IsSolid() {
					solid++
				}
			}
		}
	}
	assert.Equal(t, 8, solid, "Метки ставятся только в восьми углах чанка")
	assert.True(t, chunk.Get(vec.Vec3{}).IsSolid())
	assert.True(t, chunk.Get(vec.Vec3{X: 7, Y: 7, Z: 7}).IsSolid())
	assert.False(t, chunk.Get(vec.Vec3{X: 4, Y: 4, Z: 4}).IsSolid())
}

func TestNoise3DGenerator_Determinism(t *testing.T) {
	g1 := NewNoise3DGenerator(99, 16)
	g2 := NewNoise3DGenerator(99, 16)

	coords := vec.Vec3{X: 0, Y: -1, Z: 2}
	a, err := g1.GenerateChunk(coords)
	require.NoError(t, err)
	b, err := g2.GenerateChunk(coords)
	require.NoError(t, err)

	for x := int64(0); x < 16; x++ {
		for y := int64(0); y < 16; y++ {
			for z := int64(0); z < 16; z++ {
				local := vec.Vec3{X: x, Y: y, Z: z}
				require.Equal(t, a.Get(local), b.Get(local),
					"Одинаковый сид должен давать идентичные пещеры, расхождение в %v", local)
			}
		}
	}
}

func TestNoise3DGenerator_BandOnly(t *testing.T) {
	// Твёрдые воксели появляются только в полосе шума — часть чанка
	// обязана остаться пустой (полые пещеры, а не сплошной массив)
	g := NewNoise3DGenerator(99, 16)
	chunk, err := g.GenerateChunk(vec.Vec3{})
	require.NoError(t, err)

	solid, empty := 0, 0
	for x := int64(0); x < 16; x++ {
		for y := int64(0); y < 16; y++ {
			for z := int64(0); z < 16; z++ {
				if chunk.Get(vec.Vec3{X: x, Y: y, Z: z}).IsSolid() {
					solid++
				} else {
					empty++
				}
			}
		}
	}
	assert.Greater(t, empty, 0, "Пещерный мир не может быть сплошным")
	assert.Less(t, solid, empty, "Твёрдая полоса — меньшинство объёма")
}

func TestNewGeneratorByName(t *testing.T) {
	g, err := NewGeneratorByName("", 42, 32)
	require.NoError(t, err)
	assert.IsType(t, &TerrainGenerator{}, g, "Пустое имя — основной рельеф")

	g, err = NewGeneratorByName("cubic", 42, 32)
	require.NoError(t, err)
	assert.IsType(t, &CubicGenerator{}, g)

	g, err = NewGeneratorByName("debug", 42, 32)
	require.NoError(t, err)
	assert.IsType(t, &DebugGenerator{}, g)

	g, err = NewGeneratorByName("noise3d", 42, 32)
	require.NoError(t, err)
	assert.IsType(t, &Noise3DGenerator{}, g)

	_, err = NewGeneratorByName("flat-earth", 42, 32)
	assert.Error(t, err, "Неизвестное имя генератора должно отвергаться")
}
