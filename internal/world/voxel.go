package world

// VoxelKind определяет материал вокселя. Нулевое значение — пустота,
// поэтому только что созданный чанк состоит из пустых вокселей.
type VoxelKind uint8

const (
	KindEmpty VoxelKind = iota
	KindStone
	KindDirt
	KindGrass
	KindSand
	KindCoal
)

// String возвращает строковое представление материала
func (k VoxelKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindStone:
		return "stone"
	case KindDirt:
		return "dirt"
	case KindGrass:
		return "grass"
	case KindSand:
		return "sand"
	case KindCoal:
		return "coal"
	default:
		return "unknown"
	}
}

// Orientation задаёт ориентацию вокселя (для направленных материалов).
type Orientation uint8

const (
	OrientNone Orientation = iota
	OrientNorth
	OrientEast
	OrientSouth
	OrientWest
)

// Voxel описывает содержимое одной ячейки решётки
type Voxel struct {
	Kind        VoxelKind
	Orientation Orientation
}

// IsSolid возвращает true для непустых вокселей
func (v Voxel) IsSolid() bool {
	return v.Kind != KindEmpty
}

// MaterialIndex возвращает индекс материала для рендер-коллаборатора
func (v Voxel) MaterialIndex() uint32 {
	return uint32(v.Kind)
}
