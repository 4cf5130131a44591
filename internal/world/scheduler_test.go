package world

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/vec"
)

// failingGenerator всегда завершает задачу ошибкой
type failingGenerator struct{}

func (failingGenerator) GenerateChunk(coords vec.Vec3) (*VoxelChunk, error) {
	return nil, errors.New("синтез невозможен")
}

// panickyGenerator роняет воркера паникой
type panickyGenerator struct{}

func (panickyGenerator) GenerateChunk(coords vec.Vec3) (*VoxelChunk, error) {
	panic("шум закончился")
}

// gatedGenerator не завершает задачу, пока не открыт gate
type gatedGenerator struct {
	edge int64
	gate chan struct{}
}

func (g *gatedGenerator) GenerateChunk(coords vec.Vec3) (*VoxelChunk, error) {
	<-g.gate
	chunk := NewVoxelChunk(coords, g.edge)
	chunk.Set(vec.Vec3{}, Voxel{Kind: KindStone})
	return chunk, nil
}

// drainScheduler крутит Poll, пока все задачи не завершатся
func drainScheduler(t *testing.T, s *GenerationScheduler) ([]InstalledChunk, []GenerationError) {
	t.Helper()
	var installed []InstalledChunk
	var failures []GenerationError
	deadline := time.Now().Add(10 * time.Second)
	for s.PendingCount() > 0 {
		require.True(t, time.Now().Before(deadline), "Планировщик не завершил задачи за отведённое время")
		in, fail := s.Poll()
		installed = append(installed, in...)
		failures = append(failures, fail...)
		time.Sleep(time.Millisecond)
	}
	in, fail := s.Poll()
	return append(installed, in...), append(failures, fail...)
}

func TestGenerationScheduler_RequestAndInstall(t *testing.T) {
	tree := NewWorldTree(16)
	s := NewGenerationScheduler(tree, NewTerrainGenerator(42, 16), 2)
	defer s.Stop()

	region := NewRegion(vec.Vec3{}, 32) // 2x2x2 чанков
	created, err := s.Request(region)
	require.NoError(t, err)
	assert.Equal(t, 8, created, "Регион 32³ при ребре 16 содержит 8 чанков")

	installed, failures := drainScheduler(t, s)
	assert.Empty(t, failures)
	assert.Len(t, installed, 8, "Каждый запрошенный чанк должен быть установлен")

	// Дерево видит установленные листья
	count := 0
	it := tree.IterChunks(region)
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, 8, count)
}

func TestGenerationScheduler_RequestIdempotent(t *testing.T) {
	tree := NewWorldTree(16)
	gen := &gatedGenerator{edge: 16, gate: make(chan struct{})}
	s := NewGenerationScheduler(tree, gen, 1)
	defer s.Stop()

	region := NewRegion(vec.Vec3{}, 16)
	created, err := s.Request(region)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Повторный запрос того же региона ничего не дублирует
	created, err = s.Request(region)
	require.NoError(t, err)
	assert.Equal(t, 0, created, "Уже отслеживаемый чанк не ставится повторно")

	close(gen.gate)
	installed, failures := drainScheduler(t, s)
	assert.Empty(t, failures)
	assert.Len(t, installed, 1)

	// Сгенерированный регион тоже не ставится повторно
	created, err = s.Request(region)
	require.NoError(t, err)
	assert.Equal(t, 0, created, "Сгенерированный чанк не запрашивается заново")
}

func TestGenerationScheduler_FailureSurfaced(t *testing.T) {
	tree := NewWorldTree(16)
	s := NewGenerationScheduler(tree, failingGenerator{}, 1)
	defer s.Stop()

	_, err := s.Request(NewRegion(vec.Vec3{}, 16))
	require.NoError(t, err)

	installed, failures := drainScheduler(t, s)
	assert.Empty(t, installed)
	require.Len(t, failures, 1, "Ошибка генерации должна всплыть через Poll")
	assert.Equal(t, vec.Vec3{}, failures[0].ChunkCoords)
	assert.Contains(t, failures[0].Error(), "синтез невозможен")

	// Повторный запрос перезапускает задачу
	created, err := s.Request(NewRegion(vec.Vec3{}, 16))
	require.NoError(t, err)
	assert.Equal(t, 1, created, "После ошибки регион можно запросить снова")
}

func TestGenerationScheduler_PanicDoesNotCrash(t *testing.T) {
	tree := NewWorldTree(16)
	s := NewGenerationScheduler(tree, panickyGenerator{}, 1)
	defer s.Stop()

	_, err := s.Request(NewRegion(vec.Vec3{}, 16))
	require.NoError(t, err)

	installed, failures := drainScheduler(t, s)
	assert.Empty(t, installed)
	require.Len(t, failures, 1, "Паника генератора превращается в ошибку задачи")
	assert.Contains(t, failures[0].Err.Error(), "паника")
}

func TestGenerationScheduler_RequestAfterStop(t *testing.T) {
	tree := NewWorldTree(16)
	s := NewGenerationScheduler(tree, NewTerrainGenerator(1, 16), 1)
	s.Stop()

	assert.NotPanics(t, func() {
		created, err := s.Request(NewRegion(vec.Vec3{}, 16))
		assert.NoError(t, err)
		assert.Equal(t, 0, created, "Остановленный планировщик не принимает задачи")
	}, "Запрос после остановки не должен паниковать на закрытом канале")

	assert.NotPanics(t, s.Stop, "Повторная остановка безопасна")
}

func TestGenerationScheduler_CancelReleasesBacklogGauge(t *testing.T) {
	tree := NewWorldTree(16)
	gen := &gatedGenerator{edge: 16, gate: make(chan struct{})}
	s := NewGenerationScheduler(tree, gen, 1)
	defer s.Stop()

	before := testutil.ToFloat64(tasksPending)

	// 343 задачи — заведомо больше ёмкости канала jobs, часть осядет в backlog
	region := NewRegion(vec.Vec3{}, 16*7)
	created, err := s.Request(region)
	require.NoError(t, err)
	require.Equal(t, 343, created)

	s.mu.Lock()
	backlogged := len(s.backlog)
	s.mu.Unlock()
	require.Greater(t, backlogged, 0, "Часть задач должна остаться в backlog")

	cancelled := s.Cancel(region)
	assert.Equal(t, 343, cancelled)

	s.mu.Lock()
	assert.Empty(t, s.backlog, "Отменённые задачи не должны оставаться в backlog")
	s.mu.Unlock()

	// Уже отправленные воркерам задачи доживают до Poll; после полного
	// слива гейдж возвращается к исходному значению
	close(gen.gate)
	require.Eventually(t, func() bool {
		s.Poll()
		return testutil.ToFloat64(tasksPending) == before
	}, 10*time.Second, time.Millisecond, "Гейдж задач должен вернуться к исходному значению")
}

func TestGenerationScheduler_CancelAbandonsResult(t *testing.T) {
	tree := NewWorldTree(16)
	gen := &gatedGenerator{edge: 16, gate: make(chan struct{})}
	s := NewGenerationScheduler(tree, gen, 1)
	defer s.Stop()

	region := NewRegion(vec.Vec3{}, 16)
	_, err := s.Request(region)
	require.NoError(t, err)

	cancelled := s.Cancel(region)
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, 0, s.PendingCount(), "Отменённые задачи снимаются с отслеживания")

	// Задача всё равно завершится, но результат должен быть отброшен
	close(gen.gate)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		installed, _ := s.Poll()
		assert.Empty(t, installed, "Результат отменённой задачи не устанавливается")
		if !tree.VoxelAt(vec.Vec3{}).IsSolid() && len(s.results) == 0 && s.PendingCount() == 0 {
			time.Sleep(10 * time.Millisecond)
			installed, _ = s.Poll()
			assert.Empty(t, installed)
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.False(t, tree.VoxelAt(vec.Vec3{}).IsSolid(), "Чанк отменённой задачи не должен попасть в дерево")
}
