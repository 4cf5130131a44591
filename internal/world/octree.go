package world

import (
	"errors"
	"math"
	"sync"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
)

// ErrGrowthOverflow возвращается, когда удвоение корня вышло бы за пределы
// представимого диапазона координат. На 64-битной решётке на практике
// недостижимо, но проверяется явно вместо тихого переполнения.
var ErrGrowthOverflow = errors.New("world: рост дерева переполняет координатную решётку")

// ErrChunkNotPopulated возвращается при попытке мутировать воксель
// в несгенерированном чанке. Генерация — предусловие, SetVoxel её не выполняет.
var ErrChunkNotPopulated = errors.New("world: чанк по координате не сгенерирован")

// nodeKind — закрытый набор вариантов узла дерева.
// Каждый обход сопоставляет все три варианта явно.
type nodeKind uint8

const (
	nodeUnpopulated nodeKind = iota // Регион ещё не сгенерирован
	nodeInternal                    // Восемь дочерних октантов
	nodeLeaf                        // Владеет чанком
)

// treeNode — узел октодерева. Регион узла не хранится в нём самом:
// он выводится при спуске из origin/edge родителя, поэтому рост корня
// не требует обновления поддеревьев.
type treeNode struct {
	kind     nodeKind
	children *[8]*treeNode // только для nodeInternal
	chunk    *VoxelChunk   // только для nodeLeaf
}

func newUnpopulatedNode() *treeNode {
	return &treeNode{kind: nodeUnpopulated}
}

// subdivide превращает несгенерированный узел во внутренний
// с восемью несгенерированными октантами
func (n *treeNode) subdivide() {
	var children [8]*treeNode
	for i := range children {
		children[i] = newUnpopulatedNode()
	}
	n.children = &children
	n.kind = nodeInternal
}

// WorldTree — иерархический пространственный индекс над воксельной решёткой.
// Листья владеют чанками с ребром chunkEdge; внутренние узлы делят свой
// регион на восемь октантов. Дерево растёт по требованию, оборачивая
// текущий корень в новый, вдвое больший — и никогда не уменьшается.
type WorldTree struct {
	root      *treeNode
	origin    vec.Vec3 // Минимальный угол региона корня, выровнен на chunkEdge
	edge      int64    // Ребро региона корня (chunkEdge * 2^n)
	chunkEdge int64

	// Структурные мутации (рост корня, установка чанков) сериализуются
	// этим мьютексом; данные вокселей защищает мьютекс самого чанка.
	mu sync.RWMutex
}

// NewWorldTree создаёт дерево, покрывающее один чанк с углом в начале координат.
// chunkEdge должен быть степенью двойки.
func NewWorldTree(chunkEdge int64) *WorldTree {
	if chunkEdge <= 0 || chunkEdge&(chunkEdge-1) != 0 {
		panic("world: ребро чанка должно быть положительной степенью двойки")
	}
	return &WorldTree{
		root:      newUnpopulatedNode(),
		origin:    vec.Vec3{},
		edge:      chunkEdge,
		chunkEdge: chunkEdge,
	}
}

// ChunkEdge возвращает длину ребра чанка
func (t *WorldTree) ChunkEdge() int64 {
	return t.chunkEdge
}

// Bounds возвращает регион, покрываемый корнем
func (t *WorldTree) Bounds() Region {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return NewRegion(t.origin, t.edge)
}

// EnsureRootCovers растит дерево, пока регион корня не накроет точку.
// Идемпотентна и монотонна: дерево только растёт. Направление роста
// выбирается по знаку точки относительно текущих границ, поэтому для
// произвольно далёкой координаты достаточно O(log(расстояние/ребро)) шагов.
func (t *WorldTree) EnsureRootCovers(p vec.Vec3) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for !NewRegion(t.origin, t.edge).ContainsPoint(p) {
		if t.edge > math.MaxInt64/2 {
			return ErrGrowthOverflow
		}
		if err := t.growTowardLocked(p); err != nil {
			return err
		}
	}
	return nil
}

// growTowardLocked удваивает регион корня один раз в сторону точки p.
// Старый корень становится одним из восьми октантов нового.
func (t *WorldTree) growTowardLocked(p vec.Vec3) error {
	oldEdge := t.edge
	newOrigin := t.origin
	oldIndex := 0
	if p.X < t.origin.X {
		newOrigin.X -= oldEdge
		oldIndex |= 1
	}
	if p.Y < t.origin.Y {
		newOrigin.Y -= oldEdge
		oldIndex |= 2
	}
	if p.Z < t.origin.Z {
		newOrigin.Z -= oldEdge
		oldIndex |= 4
	}
	// Переполнение минимального угла при росте в минус
	if newOrigin.X > t.origin.X || newOrigin.Y > t.origin.Y || newOrigin.Z > t.origin.Z {
		return ErrGrowthOverflow
	}

	if t.root.kind == nodeUnpopulated {
		// Пустой корень можно просто растянуть — оборачивать нечего
		t.origin = newOrigin
		t.edge = oldEdge * 2
		return nil
	}

	newRoot := newUnpopulatedNode()
	newRoot.subdivide()
	newRoot.children[oldIndex] = t.root
	t.root = newRoot
	t.origin = newOrigin
	t.edge = oldEdge * 2
	logging.Debug("Дерево выросло: ребро %d -> %d, регион [%v, %v)",
		oldEdge, t.edge, t.origin, NewRegion(t.origin, t.edge).Max)
	return nil
}

// childIndex выбирает октант, содержащий точку p, внутри узла
// с углом origin и ребром edge
func childIndex(p, origin vec.Vec3, edge int64) int {
	half := edge / 2
	index := 0
	if p.X >= origin.X+half {
		index |= 1
	}
	if p.Y >= origin.Y+half {
		index |= 2
	}
	if p.Z >= origin.Z+half {
		index |= 4
	}
	return index
}

// childOrigin возвращает минимальный угол октанта index
func childOrigin(origin vec.Vec3, edge int64, index int) vec.Vec3 {
	half := edge / 2
	if index&1 != 0 {
		origin.X += half
	}
	if index&2 != 0 {
		origin.Y += half
	}
	if index&4 != 0 {
		origin.Z += half
	}
	return origin
}

// NodeAt спускается от корня к узлу, чей регион содержит координату.
// Возвращает регион узла и чанк (nil для несгенерированного узла).
// Координата вне текущих границ — это тоже "несгенерировано", не ошибка:
// если нужна вставка, вызывающий сначала делает EnsureRootCovers.
func (t *WorldTree) NodeAt(p vec.Vec3) (Region, *VoxelChunk) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	origin, edge := t.origin, t.edge
	if !NewRegion(origin, edge).ContainsPoint(p) {
		return NewRegion(p.ChunkOrigin(t.chunkEdge), t.chunkEdge), nil
	}
	node := t.root
	for {
		switch node.kind {
		case nodeLeaf:
			return NewRegion(origin, edge), node.chunk
		case nodeUnpopulated:
			return NewRegion(origin, edge), nil
		case nodeInternal:
			idx := childIndex(p, origin, edge)
			origin = childOrigin(origin, edge, idx)
			edge /= 2
			node = node.children[idx]
		}
	}
}

// VoxelAt возвращает воксель по мировой координате.
// Несгенерированные регионы читаются как пустота.
func (t *WorldTree) VoxelAt(p vec.Vec3) Voxel {
	_, chunk := t.NodeAt(p)
	if chunk == nil {
		return Voxel{}
	}
	return chunk.GetWorld(p)
}

// SetVoxel мутирует воксель на месте. Чанк обязан существовать:
// генерация — предусловие, а не побочный эффект.
func (t *WorldTree) SetVoxel(p vec.Vec3, v Voxel) error {
	_, chunk := t.NodeAt(p)
	if chunk == nil {
		return ErrChunkNotPopulated
	}
	chunk.SetWorld(p, v)
	return nil
}

// Install устанавливает сгенерированный чанк в целевой узел
// (несгенерировано -> лист). Возвращает false, если узел уже занят:
// первый установленный чанк выигрывает, чтобы повторная генерация
// не затёрла последующие мутации (взрывы).
//
// Читатель, идущий по дереву параллельно, видит узел либо целиком
// несгенерированным, либо целиком листом — чанк публикуется до смены kind.
func (t *WorldTree) Install(chunk *VoxelChunk) (bool, error) {
	origin := chunk.Origin()
	t.mu.Lock()
	defer t.mu.Unlock()
	for !NewRegion(t.origin, t.edge).ContainsPoint(origin) {
		if t.edge > math.MaxInt64/2 {
			return false, ErrGrowthOverflow
		}
		if err := t.growTowardLocked(origin); err != nil {
			return false, err
		}
	}

	node := t.root
	nodeOrigin, edge := t.origin, t.edge
	for edge > t.chunkEdge {
		switch node.kind {
		case nodeLeaf:
			return false, nil
		case nodeUnpopulated:
			node.subdivide()
		case nodeInternal:
			// спуск ниже
		}
		idx := childIndex(origin, nodeOrigin, edge)
		nodeOrigin = childOrigin(nodeOrigin, edge, idx)
		edge /= 2
		node = node.children[idx]
	}
	if node.kind == nodeLeaf {
		return false, nil
	}
	node.chunk = chunk
	node.kind = nodeLeaf
	return true, nil
}
