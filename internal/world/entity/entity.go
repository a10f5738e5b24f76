package entity

import (
	"github.com/google/uuid"

	"github.com/annel0/blockverse/internal/vec"
)

// Kind — вид сущности
type Kind uint8

const (
	// KindCrab — мирный краб, населяющий равнины
	KindCrab Kind = iota
)

// String возвращает имя вида для логов
func (k Kind) String() string {
	switch k {
	case KindCrab:
		return "crab"
	default:
		return "unknown"
	}
}

// Entity — сущность мира. Сущности живут только в загруженных чанках:
// при выгрузке чанка его сущности деспавнятся.
type Entity struct {
	ID          uuid.UUID
	Kind        Kind
	Position    vec.Vec3 // Мировая координата блока, на котором стоит сущность
	ChunkCoords vec.Vec3 // Чанк-владелец
}
