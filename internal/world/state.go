package world

// ChunkState описывает стадию жизненного цикла чанка.
// Переходы выполняются только на основном потоке (в Update),
// воркеры состояние не трогают.
type ChunkState uint8

const (
	ChunkUnloaded          ChunkState = iota // нет записи или запись только создана
	ChunkGenerating                          // воксели строит генератор
	ChunkLoading                             // воксели читаются из хранилища
	ChunkAwaitingNeighbors                   // данные есть, ждём данных всех 6 соседей
	ChunkReady                               // данные и актуальный меш установлены
	ChunkDirty                               // воксели изменились, меш устарел
	ChunkUnloading                           // чанк покидает мир, идёт сброс на диск
)

// String возвращает имя состояния для логов
func (s ChunkState) String() string {
	switch s {
	case ChunkUnloaded:
		return "unloaded"
	case ChunkGenerating:
		return "generating"
	case ChunkLoading:
		return "loading"
	case ChunkAwaitingNeighbors:
		return "awaiting_neighbors"
	case ChunkReady:
		return "ready"
	case ChunkDirty:
		return "dirty"
	case ChunkUnloading:
		return "unloading"
	default:
		return "unknown"
	}
}

// HasVoxelData сообщает, доступен ли в этом состоянии массив вокселей
func (s ChunkState) HasVoxelData() bool {
	switch s {
	case ChunkAwaitingNeighbors, ChunkReady, ChunkDirty, ChunkUnloading:
		return true
	default:
		return false
	}
}
