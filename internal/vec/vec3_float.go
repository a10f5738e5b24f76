package vec

import "math"

// Vec3Float представляет трёхмерные координаты с плавающей точкой.
// Используется для позиции игрока, от которой считается радиус загрузки.
type Vec3Float struct {
	X, Y, Z float64
}

// ToVec3 преобразует в целочисленные координаты (пол, а не усечение,
// чтобы отрицательные координаты попадали в правильный блок)
func (v Vec3Float) ToVec3() Vec3 {
	return Vec3{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

// FromVec3 создаёт Vec3Float из Vec3
func FromVec3(v Vec3) Vec3Float {
	return Vec3Float{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec3Float) Mul(scalar float64) Vec3Float {
	return Vec3Float{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Length возвращает длину вектора
func (v Vec3Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec3Float) DistanceTo(other Vec3Float) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
