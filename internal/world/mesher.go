package world

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// ErrNeighborUnavailable возвращается мешером, когда снимку не хватает
// граничной грани соседа: на краю загруженного мира меш не строится
var ErrNeighborUnavailable = errors.New("граничная грань соседа недоступна")

// Direction — одно из шести направлений граней вокселя
type Direction uint8

const (
	DirLeft   Direction = iota // -X
	DirRight                   // +X
	DirBottom                  // -Y
	DirTop                     // +Y
	DirBack                    // -Z
	DirFront                   // +Z

	directionCount
)

// dirOffsets — смещение к соседнему вокселю по направлению
var dirOffsets = [directionCount]vec.Vec3{
	DirLeft:   {X: -1},
	DirRight:  {X: 1},
	DirBottom: {Y: -1},
	DirTop:    {Y: 1},
	DirBack:   {Z: -1},
	DirFront:  {Z: 1},
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	if d%2 == 0 {
		return d + 1
	}
	return d - 1
}

// Offset возвращает смещение к соседнему вокселю
func (d Direction) Offset() vec.Vec3 {
	return dirOffsets[d]
}

// Normal возвращает нормаль грани
func (d Direction) Normal() mgl32.Vec3 {
	o := dirOffsets[d]
	return mgl32.Vec3{float32(o.X), float32(o.Y), float32(o.Z)}
}

// quadCorners — четыре угла грани вокселя по направлению,
// смещения от позиции вокселя, обход против часовой стрелки снаружи
var quadCorners = [directionCount][4]mgl32.Vec3{
	DirLeft:   {{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	DirRight:  {{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
	DirBottom: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	DirTop:    {{0, 1, 1}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}},
	DirBack:   {{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	DirFront:  {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
}

// Атлас текстур: столбец по роли грани (верх/бок/низ), строка по виду блока
const (
	atlasCols = 3
	atlasRows = 10
)

// ChunkSnapshot — замороженная копия данных чанка для мешера.
// Воркеры работают только со снимками: карта чанков и сами чанки
// остаются во владении основного потока.
type ChunkSnapshot struct {
	Coords vec.Vec3
	Edge   int
	Blocks []block.BlockID

	// NeighborFaces — примыкающий слой каждого из 6 соседей.
	// Индексация слоя: Y+Z*edge для граней по X, X+Z*edge по Y,
	// X+Y*edge по Z. nil означает, что сосед недоступен.
	NeighborFaces [directionCount][]block.BlockID
}

// AirFace возвращает воздушный граничный слой. Используется для
// вертикальных границ мира: выше и ниже мира считается воздух.
func AirFace(edge int) []block.BlockID {
	return make([]block.BlockID, edge*edge)
}

// MeshGroup — вершины одного материала
type MeshGroup struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

// Mesh — результат мешинга чанка, сгруппированный по материалу.
// Позиции заданы в локальных координатах чанка.
type Mesh struct {
	Coords vec.Vec3
	Groups map[block.BlockID]*MeshGroup
}

// QuadCount возвращает суммарное число граней во всех группах
func (m *Mesh) QuadCount() int {
	n := 0
	for _, g := range m.Groups {
		n += len(g.Positions) / 4
	}
	return n
}

// Empty сообщает, пуст ли меш
func (m *Mesh) Empty() bool {
	return m.QuadCount() == 0
}

// neighborID возвращает блок, примыкающий к локальной координате по
// направлению: либо из самого снимка, либо из граничного слоя соседа
func (s *ChunkSnapshot) neighborID(local vec.Vec3, dir Direction) block.BlockID {
	n := local.Add(dirOffsets[dir])
	if n.X >= 0 && n.X < s.Edge && n.Y >= 0 && n.Y < s.Edge && n.Z >= 0 && n.Z < s.Edge {
		return s.Blocks[n.X+n.Y*s.Edge+n.Z*s.Edge*s.Edge]
	}
	face := s.NeighborFaces[dir]
	switch dir {
	case DirLeft, DirRight:
		return face[local.Y+local.Z*s.Edge]
	case DirBottom, DirTop:
		return face[local.X+local.Z*s.Edge]
	default:
		return face[local.X+local.Y*s.Edge]
	}
}

// BuildMesh строит меш чанка с отсечением скрытых граней.
// Грань твёрдого вокселя испускается, только если сосед не твёрдый;
// грань воды — только на границе с воздухом. Требует все 6 граничных
// слоёв: без данных соседа результат был бы недетерминированным.
func BuildMesh(snap *ChunkSnapshot) (*Mesh, error) {
	for d := Direction(0); d < directionCount; d++ {
		if snap.NeighborFaces[d] == nil {
			return nil, ErrNeighborUnavailable
		}
	}

	mesh := &Mesh{
		Coords: snap.Coords,
		Groups: make(map[block.BlockID]*MeshGroup),
	}

	edge := snap.Edge
	for z := 0; z < edge; z++ {
		for y := 0; y < edge; y++ {
			for x := 0; x < edge; x++ {
				id := snap.Blocks[x+y*edge+z*edge*edge]
				if id == block.AirBlockID {
					continue
				}
				local := vec.Vec3{X: x, Y: y, Z: z}
				solid := block.IsSolid(id)
				for d := Direction(0); d < directionCount; d++ {
					nb := snap.neighborID(local, d)
					if solid {
						if block.IsSolid(nb) {
							continue
						}
					} else {
						// Вода видна только сквозь воздух
						if nb != block.AirBlockID {
							continue
						}
					}
					emitQuad(mesh, id, local, d)
				}
			}
		}
	}
	return mesh, nil
}

// emitQuad добавляет одну грань в группу материала
func emitQuad(mesh *Mesh, id block.BlockID, local vec.Vec3, dir Direction) {
	g, ok := mesh.Groups[id]
	if !ok {
		g = &MeshGroup{}
		mesh.Groups[id] = g
	}

	base := uint32(len(g.Positions))
	origin := mgl32.Vec3{float32(local.X), float32(local.Y), float32(local.Z)}
	normal := dir.Normal()
	uvs := uvsFor(id, dir)

	for i, corner := range quadCorners[dir] {
		g.Positions = append(g.Positions, origin.Add(corner))
		g.Normals = append(g.Normals, normal)
		g.UVs = append(g.UVs, uvs[i])
	}
	g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
}

// uvsFor возвращает координаты углов ячейки атласа для материала и
// роли грани. Углы следуют порядку quadCorners.
func uvsFor(id block.BlockID, dir Direction) [4]mgl32.Vec2 {
	var col float32
	switch dir {
	case DirTop:
		col = 0
	case DirBottom:
		col = 2
	default:
		col = 1
	}
	row := float32(id - 1) // воздух в атласе не представлен

	u0 := col / atlasCols
	u1 := (col + 1) / atlasCols
	v0 := row / atlasRows
	v1 := (row + 1) / atlasRows
	return [4]mgl32.Vec2{{u0, v1}, {u1, v1}, {u1, v0}, {u0, v0}}
}
