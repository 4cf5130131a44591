package world

import "github.com/annel0/voxel-world/internal/vec"

// NodeView — узел дерева вместе с его регионом.
// Chunk == nil означает несгенерированный узел.
type NodeView struct {
	Region Region
	Chunk  *VoxelChunk
}

// ChunkHandle — сгенерированный чанк вместе с его координатами.
// Координаты несёт хэндл, а не сам чанк (см. DESIGN.md).
type ChunkHandle struct {
	Coords vec.Vec3
	Chunk  *VoxelChunk
}

type stackItem struct {
	node   *treeNode
	origin vec.Vec3
	edge   int64
}

// NodeIterator лениво обходит все узлы дерева (листья и несгенерированные),
// чьи регионы пересекают запрошенный объём. Поддеревья без пересечения
// отсекаются целиком. Порядок обхода — в глубину, по индексу октанта,
// стабильный между запусками. Каждый вызов NewNodeIterator создаёт
// независимый курсор; состояние между вызовами не разделяется.
type NodeIterator struct {
	region Region
	stack  []stackItem
}

// IterNodes возвращает итератор узлов по региону
func (t *WorldTree) IterNodes(region Region) *NodeIterator {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return &NodeIterator{
		region: region,
		stack:  []stackItem{{node: t.root, origin: t.origin, edge: t.edge}},
	}
}

// Next возвращает следующий узел, пересекающий регион запроса.
// ok == false, когда обход завершён.
func (it *NodeIterator) Next() (NodeView, bool) {
	for len(it.stack) > 0 {
		item := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		bounds := NewRegion(item.origin, item.edge)
		if !bounds.Intersects(it.region) {
			continue
		}
		switch item.node.kind {
		case nodeLeaf:
			return NodeView{Region: bounds, Chunk: item.node.chunk}, true
		case nodeUnpopulated:
			return NodeView{Region: bounds}, true
		case nodeInternal:
			// Октанты кладутся в обратном порядке, чтобы сниматься
			// со стека по возрастанию индекса
			for index := 7; index >= 0; index-- {
				it.stack = append(it.stack, stackItem{
					node:   item.node.children[index],
					origin: childOrigin(item.origin, item.edge, index),
					edge:   item.edge / 2,
				})
			}
		}
	}
	return NodeView{}, false
}

// ChunkIterator фильтрует обход узлов до сгенерированных листьев.
// Используется сборкой рендер-батчей.
type ChunkIterator struct {
	nodes *NodeIterator
}

// IterChunks возвращает итератор по сгенерированным чанкам региона
func (t *WorldTree) IterChunks(region Region) *ChunkIterator {
	return &ChunkIterator{nodes: t.IterNodes(region)}
}

// Next возвращает следующий сгенерированный чанк
func (it *ChunkIterator) Next() (ChunkHandle, bool) {
	for {
		view, ok := it.nodes.Next()
		if !ok {
			return ChunkHandle{}, false
		}
		if view.Chunk == nil {
			continue
		}
		return ChunkHandle{Coords: view.Chunk.Coords, Chunk: view.Chunk}, true
	}
}

// VoxelIterator разворачивает сгенерированные листья региона в отдельные
// непустые воксели. При exposedOnly пропускаются воксели, полностью
// окружённые твёрдыми соседями: физике и рендеру интересна только
// поверхность, это резко сужает множество кандидатов коллизии.
type VoxelIterator struct {
	tree        *WorldTree
	region      Region
	exposedOnly bool
	chunks      *ChunkIterator
	current     *ChunkVoxelIterator
}

// IterVoxels возвращает итератор по непустым вокселям региона
func (t *WorldTree) IterVoxels(region Region, exposedOnly bool) *VoxelIterator {
	return &VoxelIterator{
		tree:        t,
		region:      region,
		exposedOnly: exposedOnly,
		chunks:      t.IterChunks(region),
	}
}

// Next возвращает следующий воксель
func (it *VoxelIterator) Next() (VoxelView, bool) {
	for {
		if it.current == nil {
			handle, ok := it.chunks.Next()
			if !ok {
				return VoxelView{}, false
			}
			it.current = handle.Chunk.IterRegion(it.region)
		}
		view, ok := it.current.Next()
		if !ok {
			it.current = nil
			continue
		}
		if it.exposedOnly && !it.tree.isExposed(view.Pos) {
			continue
		}
		return view, true
	}
}

var neighborOffsets = [6]vec.Vec3{
	{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
}

// isExposed возвращает true, если хотя бы один из шести соседей вокселя
// пуст или лежит в несгенерированном регионе
func (t *WorldTree) isExposed(p vec.Vec3) bool {
	for _, off := range neighborOffsets {
		if !t.VoxelAt(p.Add(off)).IsSolid() {
			return true
		}
	}
	return false
}
