package world

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
)

// TaskState — состояние задачи генерации
type TaskState uint8

const (
	TaskPending  TaskState = iota // Создана, ждёт воркера
	TaskInFlight                  // Выполняется воркером
	TaskDone                      // Чанк готов, ждёт установки
	TaskFailed                    // Генератор завершился ошибкой
)

// GenerationTask — задача генерации одного чанка.
// Принадлежит планировщику от создания до установки или отмены.
type GenerationTask struct {
	ID          string
	ChunkCoords vec.Vec3
	State       TaskState

	chunk *VoxelChunk
	err   error
}

// GenerationError — ошибка генерации, привязанная к координате чанка.
// Возвращается из Poll; повторный запрос региона перезапускает задачу.
type GenerationError struct {
	ChunkCoords vec.Vec3
	Err         error
}

func (e GenerationError) Error() string {
	return fmt.Sprintf("генерация чанка %v: %v", e.ChunkCoords, e.Err)
}

// InstalledChunk — чанк, установленный в дерево на этом Poll
type InstalledChunk struct {
	Coords vec.Vec3
	Chunk  *VoxelChunk
}

// Метрики планировщика. Регистрируются один раз на процесс,
// чтобы несколько планировщиков (в тестах) не конфликтовали.
var (
	metricsOnce sync.Once

	chunksGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worldgen",
		Name:      "chunks_generated_total",
		Help:      "Общее число успешно сгенерированных чанков.",
	})
	generationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worldgen",
		Name:      "generation_failures_total",
		Help:      "Число задач генерации, завершившихся ошибкой.",
	})
	tasksAbandonedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worldgen",
		Name:      "tasks_abandoned_total",
		Help:      "Число задач, результат которых был отброшен после отмены.",
	})
	tasksPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "worldgen",
		Name:      "tasks_pending",
		Help:      "Число задач в очереди или в работе.",
	})
)

func registerSchedulerMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(
			chunksGeneratedTotal,
			generationFailuresTotal,
			tasksAbandonedTotal,
			tasksPending,
		)
	})
}

// GenerationScheduler отделяет "региону нужны данные" от "данные готовы".
// Request не блокирует и не возвращает данные синхронно; воркеры кладут
// готовые чанки в очередь завершения, а Poll устанавливает их в дерево
// на координирующем потоке — единственной точке мутации, видимой читателям.
type GenerationScheduler struct {
	tree      *WorldTree
	generator ChunkGenerator

	mu      sync.Mutex
	tasks   map[vec.Vec3]*GenerationTask // По координатам чанка
	backlog []*GenerationTask            // Не влезли в канал jobs
	stopped bool                         // Канал jobs закрыт, задачи не принимаются

	jobs    chan *GenerationTask
	results chan *GenerationTask

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tracer trace.Tracer
}

// NewGenerationScheduler создаёт планировщик и запускает воркеров
func NewGenerationScheduler(tree *WorldTree, generator ChunkGenerator, workers int) *GenerationScheduler {
	registerSchedulerMetrics()
	if workers <= 0 {
		workers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &GenerationScheduler{
		tree:      tree,
		generator: generator,
		tasks:     make(map[vec.Vec3]*GenerationTask),
		jobs:      make(chan *GenerationTask, 256),
		results:   make(chan *GenerationTask, 256),
		ctx:       ctx,
		cancel:    cancel,
		tracer:    otel.Tracer("voxel-world/worldgen"),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Stop останавливает воркеров и дожидается их завершения.
// Повторный вызов безопасен; Request после Stop — no-op.
func (s *GenerationScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	close(s.jobs)
	s.wg.Wait()
}

// worker выполняет задачи генерации. Паника генератора переводит задачу
// в Failed, не роняя планировщик.
func (s *GenerationScheduler) worker() {
	defer s.wg.Done()
	for task := range s.jobs {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		s.runTask(task)
		select {
		case s.results <- task:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *GenerationScheduler) runTask(task *GenerationTask) {
	_, span := s.tracer.Start(s.ctx, "GenerateChunk",
		trace.WithAttributes(
			attribute.String("task.id", task.ID),
			attribute.Int64("chunk.x", task.ChunkCoords.X),
			attribute.Int64("chunk.y", task.ChunkCoords.Y),
			attribute.Int64("chunk.z", task.ChunkCoords.Z),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			task.err = fmt.Errorf("паника генератора: %v", r)
			task.State = TaskFailed
		}
	}()

	task.State = TaskInFlight
	chunk, err := s.generator.GenerateChunk(task.ChunkCoords)
	if err != nil {
		task.err = err
		task.State = TaskFailed
		return
	}
	task.chunk = chunk
	task.State = TaskDone
}

// Request создаёт задачи генерации для всех несгенерированных чанков,
// пересекающих регион, и немедленно возвращает их число. Уже отслеживаемые
// и уже сгенерированные чанки пропускаются — повторный запрос региона
// ничего не дублирует.
func (s *GenerationScheduler) Request(region Region) (int, error) {
	// Регион интереса должен быть покрыт корнем, иначе узлы за границей
	// дерева не будут видны обходу
	if err := s.tree.EnsureRootCovers(region.Min); err != nil {
		return 0, err
	}
	maxCorner := vec.Vec3{X: region.Max.X - 1, Y: region.Max.Y - 1, Z: region.Max.Z - 1}
	if err := s.tree.EnsureRootCovers(maxCorner); err != nil {
		return 0, err
	}

	edge := s.tree.ChunkEdge()
	created := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0, nil
	}

	it := s.tree.IterNodes(region)
	for {
		view, ok := it.Next()
		if !ok {
			break
		}
		if view.Chunk != nil {
			continue
		}
		overlap, ok := view.Region.Intersection(region)
		if !ok {
			continue
		}
		// Несгенерированный узел может накрывать много чанков:
		// перечисляем чанковые ячейки внутри пересечения
		start := overlap.Min.ChunkOrigin(edge)
		for x := start.X; x < overlap.Max.X; x += edge {
			for y := start.Y; y < overlap.Max.Y; y += edge {
				for z := start.Z; z < overlap.Max.Z; z += edge {
					coords := vec.Vec3{X: x / edge, Y: y / edge, Z: z / edge}
					if _, tracked := s.tasks[coords]; tracked {
						continue
					}
					task := &GenerationTask{
						ID:          uuid.NewString(),
						ChunkCoords: coords,
						State:       TaskPending,
					}
					s.tasks[coords] = task
					s.dispatchLocked(task)
					created++
				}
			}
		}
	}
	if created > 0 {
		tasksPending.Add(float64(created))
		logging.Debug("Планировщик: поставлено %d задач генерации", created)
	}
	return created, nil
}

// dispatchLocked пытается отдать задачу воркерам; при переполненном
// канале задача остаётся в backlog до следующего Poll
func (s *GenerationScheduler) dispatchLocked(task *GenerationTask) {
	if s.stopped {
		return
	}
	select {
	case s.jobs <- task:
	default:
		s.backlog = append(s.backlog, task)
	}
}

// flushBacklogLocked дозаправляет канал jobs из backlog
func (s *GenerationScheduler) flushBacklogLocked() {
	if s.stopped {
		return
	}
	for len(s.backlog) > 0 {
		task := s.backlog[0]
		select {
		case s.jobs <- task:
			s.backlog = s.backlog[1:]
		default:
			return
		}
	}
}

// Poll не блокируясь выгребает завершённые задачи, устанавливает готовые
// чанки в дерево и возвращает установленное вместе с ошибками генерации.
// Безопасен для вызова с потока, который также читает дерево: установка —
// единственная видимая читателям мутация, и она атомарна на уровне узла.
func (s *GenerationScheduler) Poll() ([]InstalledChunk, []GenerationError) {
	var installed []InstalledChunk
	var failures []GenerationError

	s.mu.Lock()
	s.flushBacklogLocked()
	s.mu.Unlock()

	for {
		select {
		case task := <-s.results:
			s.mu.Lock()
			tracked := s.tasks[task.ChunkCoords] == task
			if tracked {
				delete(s.tasks, task.ChunkCoords)
			}
			s.mu.Unlock()
			tasksPending.Dec()

			if !tracked {
				// Задача была отменена — результат отбрасывается
				tasksAbandonedTotal.Inc()
				continue
			}
			switch task.State {
			case TaskFailed:
				generationFailuresTotal.Inc()
				failures = append(failures, GenerationError{
					ChunkCoords: task.ChunkCoords,
					Err:         task.err,
				})
			case TaskDone:
				ok, err := s.tree.Install(task.chunk)
				if err != nil {
					failures = append(failures, GenerationError{
						ChunkCoords: task.ChunkCoords,
						Err:         err,
					})
					continue
				}
				if !ok {
					// Узел уже занят — первый установленный чанк выигрывает
					tasksAbandonedTotal.Inc()
					continue
				}
				chunksGeneratedTotal.Inc()
				installed = append(installed, InstalledChunk{
					Coords: task.ChunkCoords,
					Chunk:  task.chunk,
				})
			}
		default:
			return installed, failures
		}
	}
}

// Cancel снимает с отслеживания задачи, чьи чанки пересекают регион
// (регион больше не интересен — камера ушла). Уже выполняющиеся задачи
// не прерываются; их поздние результаты отбрасываются при Poll.
func (s *GenerationScheduler) Cancel(region Region) int {
	edge := s.tree.ChunkEdge()
	s.mu.Lock()
	defer s.mu.Unlock()
	cancelled := 0
	for coords := range s.tasks {
		chunkRegion := NewRegion(coords.Mul(edge), edge)
		if chunkRegion.Intersects(region) {
			delete(s.tasks, coords)
			cancelled++
		}
	}
	if cancelled == 0 {
		return 0
	}
	// Задачи, не дошедшие до воркеров, снимаются сразу вместе с гейджем;
	// уже отправленные доживают до Poll, где их результат отбрасывается
	kept := s.backlog[:0]
	for _, task := range s.backlog {
		if s.tasks[task.ChunkCoords] == task {
			kept = append(kept, task)
		} else {
			tasksPending.Dec()
		}
	}
	s.backlog = kept
	return cancelled
}

// PendingCount возвращает число отслеживаемых задач
func (s *GenerationScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
