package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

const (
	spawnEdge   = 16
	spawnHeight = 16
	spawnSea    = 64
)

func newSpawnerFixture() (*world.TerrainGenerator, *Spawner) {
	gen := world.NewTerrainGenerator(20240817, spawnEdge, spawnHeight, spawnSea)
	return gen, NewSpawner(gen, spawnEdge)
}

// expectedSpawns повторяет правило спавна по публичным предикатам
// генератора: порог шума, равнины, травяная поверхность внутри чанка
func expectedSpawns(gen *world.TerrainGenerator, coords vec.Vec3, chunk *world.Chunk) int {
	base := coords.Mul(spawnEdge)
	count := 0
	for z := 0; z < spawnEdge; z++ {
		for x := 0; x < spawnEdge; x++ {
			wx, wz := base.X+x, base.Z+z
			if !gen.MobSpawnAt(wx, wz) || gen.BiomeAt(wx, wz) != world.BiomePlains {
				continue
			}
			maxY, _ := gen.HeightAt(wx, wz)
			local := maxY - 1 - base.Y
			if local < 0 || local >= spawnEdge {
				continue
			}
			id, err := chunk.Get(vec.Vec3{X: x, Y: local, Z: z})
			if err != nil || id != block.GrassBlockID {
				continue
			}
			if _, anchored := gen.TreeAnchorAt(wx, wz); anchored {
				continue
			}
			if local+1 < spawnEdge {
				above, err := chunk.Get(vec.Vec3{X: x, Y: local + 1, Z: z})
				if err != nil || above != block.AirBlockID {
					continue
				}
			}
			count++
		}
	}
	return count
}

func TestSpawnerPopulatesReadyChunks(t *testing.T) {
	gen, spawner := newSpawnerFixture()

	total := 0
	loaded := make(map[vec.Vec3]bool)
	for cz := -4; cz <= 4; cz++ {
		for cx := -4; cx <= 4; cx++ {
			for cy := 3; cy <= 6; cy++ { // вертикальный срез вокруг поверхности
				coords := vec.Vec3{X: cx, Y: cy, Z: cz}
				chunk := gen.GenerateChunk(coords)
				want := expectedSpawns(gen, coords, chunk)

				spawner.OnChunkEvent(world.ChunkEvent{
					Type:   world.EventTypeChunkReady,
					Coords: coords,
					Chunk:  chunk,
				})
				loaded[coords] = true
				total += want

				got := spawner.EntitiesInChunk(coords)
				assert.Len(t, got, want, "спавн в чанке %v по правилу шума", coords)
				for _, e := range got {
					assert.Equal(t, KindCrab, e.Kind)
					assert.Equal(t, coords, e.ChunkCoords, "сущность привязана к своему чанку")
				}
			}
		}
	}
	assert.Equal(t, total, spawner.Count(), "общий счётчик сходится")

	// Сущности существуют только в загруженных чанках
	for _, coords := range spawner.ChunksWithEntities() {
		assert.True(t, loaded[coords], "сущности в чанке %v, который загружен", coords)
	}
}

// Ствол занимает воксель над поверхностью якорной колонки, причём
// при поверхности на верхнем срезе чанка — уже в соседнем чанке
// сверху. Краб не должен оказаться внутри ствола ни в одном случае.
func TestSpawnerAvoidsTreeAnchorColumns(t *testing.T) {
	gen, spawner := newSpawnerFixture()

	for cz := -8; cz <= 8; cz++ {
		for cx := -8; cx <= 8; cx++ {
			for cy := 3; cy <= 6; cy++ {
				coords := vec.Vec3{X: cx, Y: cy, Z: cz}
				spawner.OnChunkEvent(world.ChunkEvent{
					Type:   world.EventTypeChunkReady,
					Coords: coords,
					Chunk:  gen.GenerateChunk(coords),
				})
			}
		}
	}

	for _, coords := range spawner.ChunksWithEntities() {
		for _, e := range spawner.EntitiesInChunk(coords) {
			_, anchored := gen.TreeAnchorAt(e.Position.X, e.Position.Z)
			assert.False(t, anchored,
				"краб в колонне (%d,%d) делит воксель со стволом", e.Position.X, e.Position.Z)
		}
	}
}

func TestSpawnerDespawnsOnUnload(t *testing.T) {
	gen, spawner := newSpawnerFixture()

	var populated []vec.Vec3
	for cz := -4; cz <= 4; cz++ {
		for cx := -4; cx <= 4; cx++ {
			for cy := 3; cy <= 6; cy++ {
				coords := vec.Vec3{X: cx, Y: cy, Z: cz}
				chunk := gen.GenerateChunk(coords)
				spawner.OnChunkEvent(world.ChunkEvent{
					Type:   world.EventTypeChunkReady,
					Coords: coords,
					Chunk:  chunk,
				})
				if len(spawner.EntitiesInChunk(coords)) > 0 {
					populated = append(populated, coords)
				}
			}
		}
	}

	for _, coords := range populated {
		spawner.OnChunkEvent(world.ChunkEvent{
			Type:   world.EventTypeChunkUnloading,
			Coords: coords,
		})
		assert.Empty(t, spawner.EntitiesInChunk(coords),
			"после выгрузки чанка %v его сущности исчезают", coords)
	}
	assert.Equal(t, 0, spawner.Count(), "после выгрузки всех чанков сущностей нет")
	assert.Empty(t, spawner.ChunksWithEntities(),
		"ни одна сущность не ссылается на выгруженный чанк")
}

func TestSpawnerIgnoresUnknownEvents(t *testing.T) {
	_, spawner := newSpawnerFixture()

	require.NotPanics(t, func() {
		spawner.OnChunkEvent(world.ChunkEvent{
			Type:     world.EventTypeBlockChange,
			Coords:   vec.Vec3{X: 1},
			Position: vec.Vec3{X: 20},
			Block:    block.StoneBlockID,
		})
		spawner.OnChunkEvent(world.ChunkEvent{
			Type:   world.EventTypeChunkUnloading,
			Coords: vec.Vec3{X: 9, Y: 9, Z: 9},
		})
	})
	assert.Equal(t, 0, spawner.Count())
}
