package entity

import (
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// Spawner населяет мир сущностями по событиям жизненного цикла
// чанков: спавнит при готовности чанка, деспавнит при выгрузке.
// Сущность никогда не ссылается на выгруженный чанк.
type Spawner struct {
	mu        sync.RWMutex
	generator *world.TerrainGenerator
	edge      int

	entities map[uuid.UUID]*Entity
	byChunk  map[vec.Vec3][]uuid.UUID

	logger *logging.Logger
}

// NewSpawner создаёт спавнер. Подписывается на менеджер чанков
// вызовом manager.Subscribe(spawner).
func NewSpawner(generator *world.TerrainGenerator, edge int) *Spawner {
	return &Spawner{
		generator: generator,
		edge:      edge,
		entities:  make(map[uuid.UUID]*Entity),
		byChunk:   make(map[vec.Vec3][]uuid.UUID),
		logger:    logging.GetComponentLogger("entity"),
	}
}

// OnChunkEvent реализует world.ChunkObserver
func (s *Spawner) OnChunkEvent(event world.ChunkEvent) {
	switch event.Type {
	case world.EventTypeChunkReady:
		s.spawnInChunk(event.Coords, event.Chunk)
	case world.EventTypeChunkUnloading:
		s.despawnChunk(event.Coords)
	}
}

// spawnInChunk перебирает колонки чанка и спавнит крабов там, где
// шум спавна превышает порог, биом — равнины, а поверхность — трава
// внутри этого чанка
func (s *Spawner) spawnInChunk(coords vec.Vec3, chunk *world.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := coords.Mul(s.edge)
	spawned := 0
	for z := 0; z < s.edge; z++ {
		for x := 0; x < s.edge; x++ {
			wx, wz := base.X+x, base.Z+z
			if !s.generator.MobSpawnAt(wx, wz) {
				continue
			}
			if s.generator.BiomeAt(wx, wz) != world.BiomePlains {
				continue
			}

			maxY, _ := s.generator.HeightAt(wx, wz)
			surfaceLocal := maxY - 1 - base.Y
			if surfaceLocal < 0 || surfaceLocal >= s.edge {
				continue // поверхность колонки в другом вертикальном чанке
			}
			id, err := chunk.Get(vec.Vec3{X: x, Y: surfaceLocal, Z: z})
			if err != nil || id != block.GrassBlockID {
				continue
			}
			// Ствол дерева начинается прямо на поверхности; когда
			// поверхность лежит на верхнем срезе чанка, ствол уходит
			// в чанк выше и по вокселям этого чанка не виден
			if _, anchored := s.generator.TreeAnchorAt(wx, wz); anchored {
				continue
			}
			// Место над поверхностью должно быть свободно (крона
			// соседнего дерева тоже занимает воксель)
			if surfaceLocal+1 < s.edge {
				above, err := chunk.Get(vec.Vec3{X: x, Y: surfaceLocal + 1, Z: z})
				if err != nil || above != block.AirBlockID {
					continue
				}
			}

			e := &Entity{
				ID:          uuid.New(),
				Kind:        KindCrab,
				Position:    vec.Vec3{X: wx, Y: maxY, Z: wz},
				ChunkCoords: coords,
			}
			s.entities[e.ID] = e
			s.byChunk[coords] = append(s.byChunk[coords], e.ID)
			spawned++
		}
	}

	if spawned > 0 {
		metrics.SpawnedEntities.Add(float64(spawned))
		s.logger.Debug("Чанк (%d,%d,%d): заспавнено сущностей: %d",
			coords.X, coords.Y, coords.Z, spawned)
	}
}

// despawnChunk убирает все сущности выгружаемого чанка
func (s *Spawner) despawnChunk(coords vec.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.byChunk[coords]
	if !ok {
		return
	}
	for _, id := range ids {
		delete(s.entities, id)
	}
	delete(s.byChunk, coords)
	metrics.SpawnedEntities.Sub(float64(len(ids)))
	s.logger.Debug("Чанк (%d,%d,%d): деспавнено сущностей: %d",
		coords.X, coords.Y, coords.Z, len(ids))
}

// EntitiesInChunk возвращает сущности чанка
func (s *Spawner) EntitiesInChunk(coords vec.Vec3) []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byChunk[coords]
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entities[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Count возвращает общее количество живых сущностей
func (s *Spawner) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// ChunksWithEntities возвращает координаты чанков, в которых есть
// хотя бы одна сущность
func (s *Spawner) ChunksWithEntities() []vec.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]vec.Vec3, 0, len(s.byChunk))
	for coords := range s.byChunk {
		out = append(out, coords)
	}
	return out
}
