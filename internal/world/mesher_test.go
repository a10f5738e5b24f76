package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// emptySnapshot создаёт снимок воздушного чанка с воздушными соседями
func emptySnapshot(edge int) *ChunkSnapshot {
	snap := &ChunkSnapshot{
		Edge:   edge,
		Blocks: make([]block.BlockID, edge*edge*edge),
	}
	for d := Direction(0); d < directionCount; d++ {
		snap.NeighborFaces[d] = AirFace(edge)
	}
	return snap
}

func setSnap(snap *ChunkSnapshot, local vec.Vec3, id block.BlockID) {
	snap.Blocks[local.X+local.Y*snap.Edge+local.Z*snap.Edge*snap.Edge] = id
}

func TestBuildMeshEmptyChunk(t *testing.T) {
	mesh, err := BuildMesh(emptySnapshot(8))
	require.NoError(t, err)
	assert.True(t, mesh.Empty(), "воздушный чанк не даёт граней")
}

func TestBuildMeshIsolatedVoxel(t *testing.T) {
	snap := emptySnapshot(8)
	setSnap(snap, vec.Vec3{X: 3, Y: 3, Z: 3}, block.StoneBlockID)

	mesh, err := BuildMesh(snap)
	require.NoError(t, err)

	assert.Equal(t, 6, mesh.QuadCount(), "одинокий воксель даёт 6 граней")
	g := mesh.Groups[block.StoneBlockID]
	require.NotNil(t, g, "грани в группе своего материала")
	assert.Len(t, g.Positions, 24, "4 вершины на грань")
	assert.Len(t, g.Normals, 24)
	assert.Len(t, g.UVs, 24)
	assert.Len(t, g.Indices, 36, "6 индексов на грань")
}

func TestBuildMeshBuriedVoxelCulled(t *testing.T) {
	snap := emptySnapshot(4)
	// Куб 3x3x3: внутренний воксель полностью скрыт
	for z := 0; z < 3; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 3; x++ {
				setSnap(snap, vec.Vec3{X: x, Y: y, Z: z}, block.StoneBlockID)
			}
		}
	}
	mesh, err := BuildMesh(snap)
	require.NoError(t, err)

	// Поверхность куба 3x3x3 — 54 грани, внутренние не испускаются
	assert.Equal(t, 54, mesh.QuadCount(), "испускаются только видимые грани")
}

func TestBuildMeshSolidNeighborsCullBoundary(t *testing.T) {
	edge := 4
	snap := emptySnapshot(edge)
	for i := range snap.Blocks {
		snap.Blocks[i] = block.StoneBlockID
	}
	// Все соседи тоже камень: ни одной видимой грани
	for d := Direction(0); d < directionCount; d++ {
		face := snap.NeighborFaces[d]
		for i := range face {
			face[i] = block.StoneBlockID
		}
	}

	mesh, err := BuildMesh(snap)
	require.NoError(t, err)
	assert.True(t, mesh.Empty(), "грани у твёрдых соседей отсекаются")
}

func TestBuildMeshExposedBoundary(t *testing.T) {
	edge := 4
	snap := emptySnapshot(edge)
	for i := range snap.Blocks {
		snap.Blocks[i] = block.StoneBlockID
	}

	// Соседи воздушные: видна вся поверхность куба
	mesh, err := BuildMesh(snap)
	require.NoError(t, err)
	assert.Equal(t, 6*edge*edge, mesh.QuadCount(),
		"полный чанк с воздушными соседями показывает все 6 сторон")
}

func TestBuildMeshMissingNeighbor(t *testing.T) {
	snap := emptySnapshot(4)
	snap.NeighborFaces[DirLeft] = nil

	_, err := BuildMesh(snap)
	assert.ErrorIs(t, err, ErrNeighborUnavailable,
		"без грани соседа меш не строится")
}

func TestBuildMeshWaterOnlyAgainstAir(t *testing.T) {
	snap := emptySnapshot(4)
	setSnap(snap, vec.Vec3{X: 1, Y: 1, Z: 1}, block.WaterBlockID)
	setSnap(snap, vec.Vec3{X: 2, Y: 1, Z: 1}, block.WaterBlockID) // вода рядом
	setSnap(snap, vec.Vec3{X: 1, Y: 0, Z: 1}, block.SandBlockID)  // дно под водой

	mesh, err := BuildMesh(snap)
	require.NoError(t, err)

	water := mesh.Groups[block.WaterBlockID]
	require.NotNil(t, water)
	// Грани вода-вода и вода-песок скрыты: у первого вокселя видны 4
	// грани, у второго 5
	assert.Len(t, water.Positions, 9*4, "вода видна только сквозь воздух")

	sand := mesh.Groups[block.SandBlockID]
	require.NotNil(t, sand)
	// Песок испускает грань и к воде: вода не твёрдая
	assert.Len(t, sand.Positions, 6*4, "твёрдый блок виден и под водой")
}

func TestBuildMeshGroupsByMaterial(t *testing.T) {
	snap := emptySnapshot(4)
	setSnap(snap, vec.Vec3{X: 0, Y: 0, Z: 0}, block.StoneBlockID)
	setSnap(snap, vec.Vec3{X: 2, Y: 2, Z: 2}, block.GrassBlockID)

	mesh, err := BuildMesh(snap)
	require.NoError(t, err)

	assert.Len(t, mesh.Groups, 2, "материалы разведены по группам")
	assert.NotNil(t, mesh.Groups[block.StoneBlockID])
	assert.NotNil(t, mesh.Groups[block.GrassBlockID])
}

func TestBuildMeshUsesNeighborFaces(t *testing.T) {
	edge := 4
	snap := emptySnapshot(edge)
	setSnap(snap, vec.Vec3{X: 0, Y: 1, Z: 1}, block.StoneBlockID)

	// Сосед слева закрывает грань -X этого вокселя
	snap.NeighborFaces[DirLeft][1+1*edge] = block.StoneBlockID

	mesh, err := BuildMesh(snap)
	require.NoError(t, err)
	assert.Equal(t, 5, mesh.QuadCount(),
		"грань к твёрдому вокселю соседнего чанка отсекается")
}

func TestUVsWithinAtlas(t *testing.T) {
	snap := emptySnapshot(4)
	setSnap(snap, vec.Vec3{X: 1, Y: 1, Z: 1}, block.SnowBlockID) // последняя строка атласа

	mesh, err := BuildMesh(snap)
	require.NoError(t, err)

	for _, g := range mesh.Groups {
		for _, uv := range g.UVs {
			assert.GreaterOrEqual(t, uv.X(), float32(0))
			assert.LessOrEqual(t, uv.X(), float32(1))
			assert.GreaterOrEqual(t, uv.Y(), float32(0))
			assert.LessOrEqual(t, uv.Y(), float32(1))
		}
	}
}
