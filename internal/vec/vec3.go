package vec

// Vec3 представляет трёхмерные целочисленные координаты.
// Используется и для мировых координат блоков, и для координат чанков.
type Vec3 struct {
	X, Y, Z int
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
func (v Vec3) Mul(scalar int) Vec3 {
	return Vec3{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// ToChunkCoords преобразует мировые координаты блока в координаты чанка.
// edge должен быть степенью двойки.
func (v Vec3) ToChunkCoords(edge int) Vec3 {
	shift := log2(edge)
	return Vec3{X: v.X >> shift, Y: v.Y >> shift, Z: v.Z >> shift}
}

// LocalInChunk возвращает локальные координаты внутри чанка.
// edge должен быть степенью двойки.
func (v Vec3) LocalInChunk(edge int) Vec3 {
	mask := edge - 1
	return Vec3{X: v.X & mask, Y: v.Y & mask, Z: v.Z & mask}
}

// DistanceSq возвращает квадрат евклидова расстояния до другой точки.
// Квадрат достаточен для сортировки по близости и не требует math.Sqrt.
func (v Vec3) DistanceSq(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// ChebyshevDistance возвращает расстояние Чебышёва до другой точки
func (v Vec3) ChebyshevDistance(other Vec3) int {
	d := absInt(v.X - other.X)
	if dy := absInt(v.Y - other.Y); dy > d {
		d = dy
	}
	if dz := absInt(v.Z - other.Z); dz > d {
		d = dz
	}
	return d
}

// Less задаёт детерминированный порядок координат (X, затем Y, затем Z).
// Используется для разрешения ничьих при сортировке по расстоянию.
func (v Vec3) Less(other Vec3) bool {
	if v.X != other.X {
		return v.X < other.X
	}
	if v.Y != other.Y {
		return v.Y < other.Y
	}
	return v.Z < other.Z
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func log2(x int) uint {
	var n uint
	for x > 1 {
		x >>= 1
		n++
	}
	return n
}
