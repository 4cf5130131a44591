package vec

import "math"

// Vec3 представляет трехмерные целочисленные координаты воксельной решётки.
// Используется int64, чтобы мир мог расти практически неограниченно.
type Vec3 struct {
	X, Y, Z int64
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec3) Mul(scalar int64) Vec3 {
	return Vec3{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// ToChunkCoords преобразует глобальные координаты в координаты чанка.
// edge должен быть степенью двойки.
func (v Vec3) ToChunkCoords(edge int64) Vec3 {
	mask := edge - 1
	return Vec3{
		X: (v.X &^ mask) / edge,
		Y: (v.Y &^ mask) / edge,
		Z: (v.Z &^ mask) / edge,
	}
}

// LocalInChunk возвращает локальные координаты внутри чанка с ребром edge.
// Для отрицательных координат результат всё равно лежит в [0, edge).
func (v Vec3) LocalInChunk(edge int64) Vec3 {
	mask := edge - 1
	return Vec3{X: v.X & mask, Y: v.Y & mask, Z: v.Z & mask}
}

// ChunkOrigin возвращает минимальный угол чанка, содержащего координату.
func (v Vec3) ChunkOrigin(edge int64) Vec3 {
	mask := edge - 1
	return Vec3{X: v.X &^ mask, Y: v.Y &^ mask, Z: v.Z &^ mask}
}

// DistanceTo вычисляет евклидово расстояние до другой точки
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	dz := float64(v.Z - other.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// ToFloat преобразует в вектор с плавающей точкой
func (v Vec3) ToFloat() Vec3Float {
	return Vec3Float{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}
