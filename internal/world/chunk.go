package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// ErrOutOfBounds возвращается при обращении к локальной координате
// за пределами чанка
var ErrOutOfBounds = errors.New("локальная координата вне пределов чанка")

// Chunk хранит воксели куба со стороной edge в плоском массиве.
// Индекс: x + y*edge + z*edge*edge. Edge — степень двойки.
type Chunk struct {
	Coords vec.Vec3 // Координаты чанка в сетке чанков
	edge   int
	blocks []block.BlockID

	mu        sync.RWMutex
	dirtyMesh bool // воксели менялись после последнего снимка для мешера
	dirtySave bool // воксели менялись после последнего сохранения
}

// NewChunk создаёт пустой (воздушный) чанк
func NewChunk(coords vec.Vec3, edge int) *Chunk {
	return &Chunk{
		Coords: coords,
		edge:   edge,
		blocks: make([]block.BlockID, edge*edge*edge),
	}
}

// NewChunkFromBlocks создаёт чанк поверх готового массива вокселей.
// Используется при загрузке из хранилища; массив не копируется.
func NewChunkFromBlocks(coords vec.Vec3, edge int, blocks []block.BlockID) (*Chunk, error) {
	if len(blocks) != edge*edge*edge {
		return nil, fmt.Errorf("размер массива вокселей %d не соответствует ребру %d", len(blocks), edge)
	}
	return &Chunk{Coords: coords, edge: edge, blocks: blocks}, nil
}

// Edge возвращает длину ребра чанка в блоках
func (c *Chunk) Edge() int {
	return c.edge
}

// index вычисляет плоский индекс локальной координаты.
// Валидность координаты проверяет вызывающий.
func (c *Chunk) index(local vec.Vec3) int {
	return local.X + local.Y*c.edge + local.Z*c.edge*c.edge
}

// inBounds проверяет, что локальная координата лежит внутри чанка
func (c *Chunk) inBounds(local vec.Vec3) bool {
	return local.X >= 0 && local.X < c.edge &&
		local.Y >= 0 && local.Y < c.edge &&
		local.Z >= 0 && local.Z < c.edge
}

// Get возвращает блок по локальной координате
func (c *Chunk) Get(local vec.Vec3) (block.BlockID, error) {
	if !c.inBounds(local) {
		return block.AirBlockID, fmt.Errorf("Get (%d,%d,%d): %w", local.X, local.Y, local.Z, ErrOutOfBounds)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[c.index(local)], nil
}

// Set записывает блок по локальной координате и возвращает прежний.
// Запись помечает чанк как требующий перестроения меша и сохранения,
// даже если значение не изменилось.
func (c *Chunk) Set(local vec.Vec3, id block.BlockID) (block.BlockID, error) {
	if !c.inBounds(local) {
		return block.AirBlockID, fmt.Errorf("Set (%d,%d,%d): %w", local.X, local.Y, local.Z, ErrOutOfBounds)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(local)
	prev := c.blocks[i]
	c.blocks[i] = id
	c.dirtyMesh = true
	c.dirtySave = true
	return prev, nil
}

// setRaw пишет воксель без проверок и без пометки dirty.
// Только для генератора, пока чанк не опубликован.
func (c *Chunk) setRaw(local vec.Vec3, id block.BlockID) {
	c.blocks[c.index(local)] = id
}

// getRaw читает воксель без проверок и без блокировки.
// Только для генератора и мешера поверх локальной копии.
func (c *Chunk) getRaw(local vec.Vec3) block.BlockID {
	return c.blocks[c.index(local)]
}

// BlocksCopy возвращает копию массива вокселей
func (c *Chunk) BlocksCopy() []block.BlockID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]block.BlockID, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// FaceLayer возвращает копию крайнего слоя вокселей, обращённого в
// направлении dir. Слой соседа, примыкающий к чанку, — это
// neighbor.FaceLayer(dir.Opposite()). Индексация совпадает с
// ChunkSnapshot.NeighborFaces.
func (c *Chunk) FaceLayer(dir Direction) []block.BlockID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]block.BlockID, c.edge*c.edge)
	last := c.edge - 1
	switch dir {
	case DirLeft, DirRight:
		x := 0
		if dir == DirRight {
			x = last
		}
		for z := 0; z < c.edge; z++ {
			for y := 0; y < c.edge; y++ {
				out[y+z*c.edge] = c.blocks[c.index(vec.Vec3{X: x, Y: y, Z: z})]
			}
		}
	case DirBottom, DirTop:
		y := 0
		if dir == DirTop {
			y = last
		}
		for z := 0; z < c.edge; z++ {
			for x := 0; x < c.edge; x++ {
				out[x+z*c.edge] = c.blocks[c.index(vec.Vec3{X: x, Y: y, Z: z})]
			}
		}
	default:
		z := 0
		if dir == DirFront {
			z = last
		}
		for y := 0; y < c.edge; y++ {
			for x := 0; x < c.edge; x++ {
				out[x+y*c.edge] = c.blocks[c.index(vec.Vec3{X: x, Y: y, Z: z})]
			}
		}
	}
	return out
}

// DirtyMesh сообщает, устарел ли меш чанка
func (c *Chunk) DirtyMesh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirtyMesh
}

// ClearDirtyMesh снимает пометку устаревшего меша.
// Вызывается в момент снятия снимка для мешера.
func (c *Chunk) ClearDirtyMesh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirtyMesh = false
}

// DirtySave сообщает, есть ли несохранённые изменения
func (c *Chunk) DirtySave() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirtySave
}

// MarkDirtySave помечает чанк как требующий сохранения.
// Используется при первичной генерации, чтобы чанк попал на диск.
func (c *Chunk) MarkDirtySave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirtySave = true
}

// ClearDirtySave снимает пометку несохранённых изменений.
// Вызывается хранилищем после успешной записи.
func (c *Chunk) ClearDirtySave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirtySave = false
}
