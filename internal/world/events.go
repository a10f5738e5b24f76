package world

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// EventType определяет тип события мира
type EventType uint8

const (
	// EventTypeChunkReady — чанк получил данные и первый меш
	EventTypeChunkReady EventType = iota

	// EventTypeChunkUnloading — чанк покидает мир, данные ещё доступны
	EventTypeChunkUnloading

	// EventTypeBlockChange — воксель изменён игроком
	EventTypeBlockChange
)

// String возвращает имя типа события для логов
func (t EventType) String() string {
	switch t {
	case EventTypeChunkReady:
		return "chunk_ready"
	case EventTypeChunkUnloading:
		return "chunk_unloading"
	case EventTypeBlockChange:
		return "block_change"
	default:
		return "unknown"
	}
}

// ChunkEvent — событие жизненного цикла чанка или изменения вокселя.
// События доставляются синхронно на основном потоке.
type ChunkEvent struct {
	Type   EventType
	Coords vec.Vec3 // Координаты чанка

	// Chunk заполнен для ChunkReady и ChunkUnloading.
	// После возврата из обработчика выгружаемый чанк недействителен.
	Chunk *Chunk

	// Position и Block заполнены для BlockChange:
	// мировая координата вокселя и его новое значение
	Position vec.Vec3
	Block    block.BlockID
}

// ChunkObserver получает события мира. Обработчики вызываются на
// основном потоке и не должны блокироваться.
type ChunkObserver interface {
	OnChunkEvent(event ChunkEvent)
}
