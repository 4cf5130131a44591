package physics

import (
	"math"
	"sync"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

const (
	// SkinWidth — зазор между телом и поверхностью, предотвращающий
	// дрожание и застревание на стыках граней
	SkinWidth = 0.015

	// MaxSlidePlanes — предел последовательных проекций на плоскости
	// контакта за один шаг. Исчерпание бюджета блокирует движение
	// целиком; туннелирование сквозь геометрию исключается.
	MaxSlidePlanes = 3
)

// Volume — ограничивающий объём движущегося тела
type Volume interface {
	// BoundingRadius возвращает радиус описанной сферы
	BoundingRadius() float64
	// ContactAt проверяет контакт объёма с кубом вокселя
	ContactAt(center vec.Vec3Float, voxelPos vec.Vec3, box AABB) (ContactInfo, bool)
	// cast бросает объём вдоль направления через кандидатов
	cast(center, direction vec.Vec3Float, maxDist float64, boxes []candidateBox) (castHit, bool)
}

// Sphere — сферический объём
type Sphere struct {
	Radius float64
}

func (s Sphere) BoundingRadius() float64 { return s.Radius }

func (s Sphere) ContactAt(center vec.Vec3Float, voxelPos vec.Vec3, box AABB) (ContactInfo, bool) {
	return SphereBoxContact(center, s.Radius, voxelPos, box)
}

func (s Sphere) cast(center, direction vec.Vec3Float, maxDist float64, boxes []candidateBox) (castHit, bool) {
	// Бросок уменьшенной на SkinWidth сферой: остановка за SkinWidth
	// до поверхности ставит полную сферу ровно в касание
	return sphereCast(center, s.Radius-SkinWidth, direction, maxDist, boxes)
}

// Box — осеориентированный объём с полуразмерами
type Box struct {
	HalfExtents vec.Vec3Float
}

func (b Box) BoundingRadius() float64 { return b.HalfExtents.Length() }

func (b Box) ContactAt(center vec.Vec3Float, voxelPos vec.Vec3, box AABB) (ContactInfo, bool) {
	return BoxBoxContact(NewAABBCenter(center, b.HalfExtents), voxelPos, box)
}

func (b Box) cast(center, direction vec.Vec3Float, maxDist float64, boxes []candidateBox) (castHit, bool) {
	shrunk := b.HalfExtents.Sub(vec.Vec3Float{X: SkinWidth, Y: SkinWidth, Z: SkinWidth})
	return boxCast(center, shrunk, direction, maxDist, boxes)
}

// candidateBox — куб поверхностного вокселя, собранный перед шагом
type candidateBox struct {
	pos vec.Vec3
	box AABB
}

// MotionResult — исход одного шага разрешения движения
type MotionResult struct {
	Position vec.Vec3Float // Скорректированная позиция
	Velocity vec.Vec3Float // Фактически применённое смещение
	Contacts []ContactInfo // Контакты в конечной позиции
	Blocked  bool          // Бюджет плоскостей исчерпан, движение остановлено
}

type pendingExplosion struct {
	center vec.Vec3Float
	radius float64
}

// Engine разрешает движение ограничивающих объёмов против вокселей
// мира и применяет взрывы. Взрыв, задевающий несгенерированный регион,
// откладывается: генерация ставится в очередь, а отложенная часть
// доигрывается вызовом FlushPending после установки чанков.
type Engine struct {
	world *world.VoxelWorld

	mu      sync.Mutex
	pending []pendingExplosion
}

// NewEngine создаёт физический движок поверх мира
func NewEngine(w *world.VoxelWorld) *Engine {
	return &Engine{world: w}
}

// ResolveMotion применяет смещение к объёму в позиции pos методом
// collide-and-slide: полное смещение, затем проекция остатка на
// плоскость ближайшего контакта, не более MaxSlidePlanes раз.
func (e *Engine) ResolveMotion(vol Volume, pos, displacement vec.Vec3Float) MotionResult {
	candidates := e.gatherCandidates(vol, pos, displacement)
	moved, blocked := e.collideAndSlide(vol, candidates, pos, displacement, 0)
	newPos := pos.Add(moved)
	return MotionResult{
		Position: newPos,
		Velocity: moved,
		Contacts: contactsAt(vol, newPos, candidates),
		Blocked:  blocked,
	}
}

// collideAndSlide — рекурсивный шаг: бросок объёма вдоль смещения,
// подтяжка к поверхности, проекция остатка на плоскость контакта
func (e *Engine) collideAndSlide(vol Volume, candidates []candidateBox, pos, vel vec.Vec3Float, depth int) (vec.Vec3Float, bool) {
	if depth >= MaxSlidePlanes {
		return vec.Vec3Float{}, true
	}
	if vel.LengthSquared() < 1e-12 {
		return vec.Vec3Float{}, false
	}

	dist := vel.Length() + SkinWidth
	dir := vel.Normalized()
	hit, ok := vol.cast(pos, dir, dist, candidates)
	if !ok {
		return vel, false
	}

	snap := dir.Mul(hit.Distance - SkinWidth)
	if snap.Length() <= SkinWidth {
		snap = vec.Vec3Float{}
	}
	leftover := vel.Sub(snap)

	// Скольжение: из остатка убирается составляющая вдоль нормали
	slid := leftover.Sub(hit.Normal.Mul(leftover.Dot(hit.Normal)))

	rest, blocked := e.collideAndSlide(vol, candidates, pos.Add(snap), slid, depth+1)
	return snap.Add(rest), blocked
}

// contactsAt собирает все контакты объёма в указанной позиции
func contactsAt(vol Volume, center vec.Vec3Float, candidates []candidateBox) []ContactInfo {
	var contacts []ContactInfo
	for _, cb := range candidates {
		if info, ok := vol.ContactAt(center, cb.pos, cb.box); ok {
			contacts = append(contacts, info)
		}
	}
	return contacts
}

// gatherCandidates собирает поверхностные воксели в пределах заметённого
// объёма шага: объединение начального и конечного AABB тела, расширенное
// на зазор. Тест коллизии ограничивается приповерхностными вокселями
// вместо всего региона.
func (e *Engine) gatherCandidates(vol Volume, pos, displacement vec.Vec3Float) []candidateBox {
	r := vol.BoundingRadius() + SkinWidth
	half := vec.Vec3Float{X: r, Y: r, Z: r}
	swept := NewAABBCenter(pos, half).Union(NewAABBCenter(pos.Add(displacement), half))

	region := regionForBox(swept)
	var candidates []candidateBox
	it := e.world.IterVoxels(region, true)
	for {
		view, ok := it.Next()
		if !ok {
			return candidates
		}
		candidates = append(candidates, candidateBox{pos: view.Pos, box: VoxelBox(view.Pos)})
	}
}

// SphereCast бросает сферу сквозь мир и возвращает ближайший контакт
// в пределах maxDist. Используется попаданием снарядов.
func (e *Engine) SphereCast(origin vec.Vec3Float, radius float64, direction vec.Vec3Float, maxDist float64) (ContactInfo, bool) {
	dir := direction.Normalized()
	end := origin.Add(dir.Mul(maxDist))
	half := vec.Vec3Float{X: radius, Y: radius, Z: radius}
	swept := NewAABBCenter(origin, half).Union(NewAABBCenter(end, half))

	var candidates []candidateBox
	it := e.world.IterVoxels(regionForBox(swept), true)
	for {
		view, ok := it.Next()
		if !ok {
			break
		}
		candidates = append(candidates, candidateBox{pos: view.Pos, box: VoxelBox(view.Pos)})
	}

	hit, ok := sphereCast(origin, radius, dir, maxDist, candidates)
	if !ok {
		return ContactInfo{}, false
	}
	return ContactInfo{
		VoxelPos:     hit.VoxelPos,
		ContactPoint: hit.Point,
		Normal:       hit.Normal,
		Penetration:  0,
	}, true
}

// ApplyExplosion удаляет все воксели, чьи кубы пересекают сферу взрыва,
// и возвращает их координаты. Несгенерированная часть региона ставится
// в очередь генерации, а взрыв для неё откладывается до FlushPending.
func (e *Engine) ApplyExplosion(center vec.Vec3Float, radius float64) []vec.Vec3 {
	region := regionForBox(NewAABBCenter(center, vec.Vec3Float{X: radius, Y: radius, Z: radius}))

	// Пространство за границами корня не даёт узлов при обходе,
	// но оно такое же несгенерированное, как и несгенерированный узел
	deferred := !e.world.Tree().Bounds().Contains(region)
	if !deferred {
		nodes := e.world.IterNodes(region)
		for {
			view, ok := nodes.Next()
			if !ok {
				break
			}
			if view.Chunk == nil {
				deferred = true
				break
			}
		}
	}
	if deferred {
		if _, err := e.world.RequestRegion(region); err != nil {
			logging.Warn("Взрыв в (%v): запрос генерации региона: %v", center, err)
		}
		e.mu.Lock()
		e.pending = append(e.pending, pendingExplosion{center: center, radius: radius})
		e.mu.Unlock()
	}

	var removed []vec.Vec3
	it := e.world.IterVoxels(region, false)
	for {
		view, ok := it.Next()
		if !ok {
			break
		}
		if _, hit := SphereBoxContact(center, radius, view.Pos, VoxelBox(view.Pos)); !hit {
			continue
		}
		if err := e.world.Tree().SetVoxel(view.Pos, world.Voxel{Kind: world.KindEmpty}); err != nil {
			continue
		}
		removed = append(removed, view.Pos)
	}

	e.world.NotifyVoxelsRemoved(removed)
	return removed
}

// FlushPending доигрывает отложенные взрывы. Взрыв, чей регион всё ещё
// не сгенерирован полностью, откладывается снова; повторное удаление
// уже пустых вокселей — no-op, поэтому доигрывание идемпотентно.
func (e *Engine) FlushPending() []vec.Vec3 {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	var removed []vec.Vec3
	for _, p := range pending {
		removed = append(removed, e.ApplyExplosion(p.center, p.radius)...)
	}
	return removed
}

// PendingExplosions возвращает число отложенных взрывов
func (e *Engine) PendingExplosions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// regionForBox возвращает наименьший целочисленный регион, покрывающий AABB
func regionForBox(b AABB) world.Region {
	min := vec.Vec3{
		X: int64(math.Floor(b.Min.X)),
		Y: int64(math.Floor(b.Min.Y)),
		Z: int64(math.Floor(b.Min.Z)),
	}
	max := vec.Vec3{
		X: int64(math.Ceil(b.Max.X)),
		Y: int64(math.Ceil(b.Max.Y)),
		Z: int64(math.Ceil(b.Max.Z)),
	}
	return world.NewRegionRect(min, max)
}
