package vec

import "math"

// Vec3Float представляет трехмерный вектор с плавающими координатами.
// Используется физикой: позиции, скорости, нормали контактов.
type Vec3Float struct {
	X, Y, Z float64
}

// FromVec3 создает Vec3Float из целочисленного вектора
func FromVec3(v Vec3) Vec3Float {
	return Vec3Float{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// ToVec3 преобразует в целочисленные координаты (пол по каждой оси)
func (v Vec3Float) ToVec3() Vec3 {
	return Vec3{
		X: int64(math.Floor(v.X)),
		Y: int64(math.Floor(v.Y)),
		Z: int64(math.Floor(v.Z)),
	}
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec3Float) Sub(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec3Float) Mul(scalar float64) Vec3Float {
	return Vec3Float{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Dot возвращает скалярное произведение
func (v Vec3Float) Dot(other Vec3Float) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Length возвращает длину вектора
func (v Vec3Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// LengthSquared возвращает квадрат длины (без извлечения корня)
func (v Vec3Float) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Normalized возвращает нормализованный вектор.
// Нулевой вектор возвращается как есть.
func (v Vec3Float) Normalized() Vec3Float {
	length := v.Length()
	if length == 0 {
		return Vec3Float{}
	}
	return Vec3Float{X: v.X / length, Y: v.Y / length, Z: v.Z / length}
}

// Clamp ограничивает каждую компоненту диапазоном [min, max]
func (v Vec3Float) Clamp(min, max Vec3Float) Vec3Float {
	return Vec3Float{
		X: math.Min(math.Max(v.X, min.X), max.X),
		Y: math.Min(math.Max(v.Y, min.Y), max.Y),
		Z: math.Min(math.Max(v.Z, min.Z), max.Z),
	}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec3Float) DistanceTo(other Vec3Float) float64 {
	return v.Sub(other).Length()
}
