package world

import (
	"math"

	"github.com/annel0/blockverse/internal/util"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Biome — полоса биома, определяемая шумом биомов по мировым XZ
type Biome uint8

const (
	BiomeOcean Biome = iota
	BiomePlains
	BiomeMountains
)

// String возвращает имя биома для логов
func (b Biome) String() string {
	switch b {
	case BiomeOcean:
		return "ocean"
	case BiomePlains:
		return "plains"
	case BiomeMountains:
		return "mountains"
	default:
		return "unknown"
	}
}

// Пороги шума биомов и ширина зоны смешивания высот на границе полос
const (
	oceanPlainsThreshold    = 0.4
	plainsMountainThreshold = 0.6
	biomeBlendWidth         = 0.1
)

// Пороги шумов деревьев и мобов
const (
	treeNoiseThreshold = 0.85
	mobNoiseThreshold  = 0.85
)

// Геометрия дерева: ствол 4 блока, крона радиуса 2 на уровнях 3-4,
// радиуса 1 на уровне 5 и вершина на уровне 6
const (
	treeTrunkHeight  = 4
	treeCanopyRadius = 2
	treeHeight       = 7
)

// biomeParams — параметры формирования высоты для полосы биома.
// Высоты заданы относительно уровня моря, показатель степени
// "прижимает" шум к минимуму полосы (океан почти плоский).
type biomeParams struct {
	minHeight float64
	maxHeight float64
	exponent  float64
}

// TerrainGenerator детерминированно строит чанки по сиду.
// Все поля неизменяемы после создания, поэтому генератор можно
// безопасно вызывать из нескольких воркеров одновременно.
type TerrainGenerator struct {
	seed        int64
	edge        int
	worldHeight int // высота мира в блоках
	seaLevel    int

	terrainNoise *util.Noise
	biomeNoise   *util.Noise
	treeNoise    *util.Noise
	mobNoise     *util.Noise

	ocean     biomeParams
	plains    biomeParams
	mountains biomeParams
}

// NewTerrainGenerator создаёт генератор для указанного сида.
// heightChunks — высота мира в чанках.
func NewTerrainGenerator(seed int64, edge, heightChunks, seaLevel int) *TerrainGenerator {
	sea := float64(seaLevel)
	return &TerrainGenerator{
		seed:        seed,
		edge:        edge,
		worldHeight: edge * heightChunks,
		seaLevel:    seaLevel,

		// Производные сиды: четыре независимых поля из одного мирового сида
		terrainNoise: util.NewNoise(seed, 0.01, 1.2),
		biomeNoise:   util.NewNoise(seed+1, 0.004, 1.5),
		treeNoise:    util.NewNoise(seed+2, 0.9, 2.5),
		mobNoise:     util.NewNoise(seed+3, 0.8, 2.5),

		ocean:     biomeParams{minHeight: sea - 40, maxHeight: sea + 5, exponent: 4.0},
		plains:    biomeParams{minHeight: sea + 10, maxHeight: sea + 40, exponent: 3.0},
		mountains: biomeParams{minHeight: sea + 50, maxHeight: sea + 180, exponent: 1.5},
	}
}

// Seed возвращает сид мира
func (tg *TerrainGenerator) Seed() int64 {
	return tg.seed
}

// SeaLevel возвращает уровень моря в блоках
func (tg *TerrainGenerator) SeaLevel() int {
	return tg.seaLevel
}

// BiomeAt классифицирует колонку по шуму биомов
func (tg *TerrainGenerator) BiomeAt(wx, wz int) Biome {
	b := tg.biomeNoise.At2D(float64(wx), float64(wz))
	switch {
	case b < oceanPlainsThreshold:
		return BiomeOcean
	case b < plainsMountainThreshold:
		return BiomePlains
	default:
		return BiomeMountains
	}
}

// paramsAt возвращает параметры высоты для значения шума биомов.
// Внутри полосы параметры постоянны, на границах полос минимум,
// максимум и показатель линейно смешиваются, чтобы рельеф не рвался.
func (tg *TerrainGenerator) paramsAt(b float64) biomeParams {
	half := biomeBlendWidth / 2
	switch {
	case b < oceanPlainsThreshold-half:
		return tg.ocean
	case b < oceanPlainsThreshold+half:
		t := (b - (oceanPlainsThreshold - half)) / biomeBlendWidth
		return lerpParams(tg.ocean, tg.plains, t)
	case b < plainsMountainThreshold-half:
		return tg.plains
	case b < plainsMountainThreshold+half:
		t := (b - (plainsMountainThreshold - half)) / biomeBlendWidth
		return lerpParams(tg.plains, tg.mountains, t)
	default:
		return tg.mountains
	}
}

func lerpParams(a, b biomeParams, t float64) biomeParams {
	return biomeParams{
		minHeight: lerp(a.minHeight, b.minHeight, t),
		maxHeight: lerp(a.maxHeight, b.maxHeight, t),
		exponent:  lerp(a.exponent, b.exponent, t),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// HeightAt возвращает высоту колонки maxY (блоки существуют при y < maxY)
// и сырое значение шума рельефа. Детерминирована по (сид, wx, wz).
func (tg *TerrainGenerator) HeightAt(wx, wz int) (int, float64) {
	t := tg.terrainNoise.At2D(float64(wx), float64(wz))
	b := tg.biomeNoise.At2D(float64(wx), float64(wz))
	p := tg.paramsAt(b)

	// Показатель степени прижимает значения к минимуму полосы:
	// у океана почти плоское дно, у гор — резкие пики
	h := p.minHeight + (p.maxHeight-p.minHeight)*math.Pow(t, p.exponent)
	maxY := int(math.Round(h))
	if maxY < 1 {
		maxY = 1
	}
	if maxY > tg.worldHeight-1 {
		maxY = tg.worldHeight - 1
	}
	return maxY, t
}

// BlockAt возвращает блок для мировой координаты при известной высоте
// колонки. Чистая функция стратификации: коренная порода на дне,
// снег и камень на высоте, трава и дёрн у поверхности, вода до уровня моря.
func (tg *TerrainGenerator) BlockAt(pos vec.Vec3, maxY int) block.BlockID {
	snowLine := tg.seaLevel + 101
	stoneLine := tg.seaLevel + 76

	switch {
	case pos.Y == 0:
		return block.BedrockBlockID
	case pos.Y < maxY:
		switch {
		case pos.Y > snowLine:
			return block.SnowBlockID
		case pos.Y > stoneLine:
			return block.StoneBlockID
		case pos.Y == maxY-1:
			return block.GrassBlockID
		case pos.Y >= maxY-4:
			return block.DirtBlockID
		default:
			return block.StoneBlockID
		}
	case pos.Y < tg.seaLevel:
		return block.WaterBlockID
	default:
		return block.AirBlockID
	}
}

// TreeAnchorAt проверяет, укореняется ли дерево в колонке (wx, wz).
// Возвращает высоту основания ствола. Правило чистое по мировым
// координатам, поэтому соседние чанки приходят к одному ответу.
func (tg *TerrainGenerator) TreeAnchorAt(wx, wz int) (int, bool) {
	if tg.treeNoise.At2D(float64(wx), float64(wz)) <= treeNoiseThreshold {
		return 0, false
	}
	maxY, _ := tg.HeightAt(wx, wz)
	if maxY <= tg.seaLevel+2 || maxY >= tg.seaLevel+26 {
		return 0, false
	}
	if tg.BiomeAt(wx, wz) != BiomePlains {
		return 0, false
	}
	return maxY, true
}

// MobNoiseAt возвращает значение шума спавна мобов для колонки
func (tg *TerrainGenerator) MobNoiseAt(wx, wz int) float64 {
	return tg.mobNoise.At2D(float64(wx), float64(wz))
}

// MobSpawnAt проверяет шумовое условие спавна моба в колонке.
// Условия поверхности (равнины, трава) проверяет спавнер.
func (tg *TerrainGenerator) MobSpawnAt(wx, wz int) bool {
	return tg.MobNoiseAt(wx, wz) > mobNoiseThreshold
}

// GenerateChunk строит чанк по координатам. Функция чистая по
// (сид, координаты): повторный вызов даёт идентичный массив вокселей.
func (tg *TerrainGenerator) GenerateChunk(coords vec.Vec3) *Chunk {
	c := NewChunk(coords, tg.edge)
	base := coords.Mul(tg.edge)

	for z := 0; z < tg.edge; z++ {
		for x := 0; x < tg.edge; x++ {
			wx, wz := base.X+x, base.Z+z
			maxY, _ := tg.HeightAt(wx, wz)
			for y := 0; y < tg.edge; y++ {
				wy := base.Y + y
				id := tg.BlockAt(vec.Vec3{X: wx, Y: wy, Z: wz}, maxY)
				if id != block.AirBlockID {
					c.setRaw(vec.Vec3{X: x, Y: y, Z: z}, id)
				}
			}
		}
	}

	tg.stampTrees(c, base)
	return c
}

// stampTrees дописывает деревья в чанк. Кандидаты-якоря сканируются
// с запасом в радиус кроны вокруг чанка, записываются только воксели,
// попадающие внутрь чанка: дерево на границе дорисовывается в каждом
// из затронутых чанков без изменения соседей.
func (tg *TerrainGenerator) stampTrees(c *Chunk, base vec.Vec3) {
	for az := base.Z - treeCanopyRadius; az < base.Z+tg.edge+treeCanopyRadius; az++ {
		for ax := base.X - treeCanopyRadius; ax < base.X+tg.edge+treeCanopyRadius; ax++ {
			anchorY, ok := tg.TreeAnchorAt(ax, az)
			if !ok {
				continue
			}
			// Дерево целиком ниже или выше вертикального среза чанка
			if anchorY+treeHeight <= base.Y || anchorY >= base.Y+tg.edge {
				continue
			}
			tg.stampTree(c, base, vec.Vec3{X: ax, Y: anchorY, Z: az})
		}
	}
}

// stampTree записывает воксели одного дерева, попадающие в чанк.
// Листва не затирает ни рельеф, ни ствол.
func (tg *TerrainGenerator) stampTree(c *Chunk, base vec.Vec3, anchor vec.Vec3) {
	put := func(world vec.Vec3, id block.BlockID, replaceAir bool) {
		local := world.Sub(base)
		if !c.inBounds(local) {
			return
		}
		if replaceAir && c.getRaw(local) != block.AirBlockID {
			return
		}
		c.setRaw(local, id)
	}

	// Ствол
	for dy := 0; dy < treeTrunkHeight; dy++ {
		put(vec.Vec3{X: anchor.X, Y: anchor.Y + dy, Z: anchor.Z}, block.WoodBlockID, false)
	}

	// Крона: два широких уровня, узкий уровень и вершина
	for dy := treeTrunkHeight - 1; dy <= treeTrunkHeight; dy++ {
		for dz := -treeCanopyRadius; dz <= treeCanopyRadius; dz++ {
			for dx := -treeCanopyRadius; dx <= treeCanopyRadius; dx++ {
				if dx == 0 && dz == 0 && dy < treeTrunkHeight {
					continue // здесь ствол
				}
				put(vec.Vec3{X: anchor.X + dx, Y: anchor.Y + dy, Z: anchor.Z + dz}, block.LeafBlockID, true)
			}
		}
	}
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			put(vec.Vec3{X: anchor.X + dx, Y: anchor.Y + treeTrunkHeight + 1, Z: anchor.Z + dz}, block.LeafBlockID, true)
		}
	}
	put(vec.Vec3{X: anchor.X, Y: anchor.Y + treeTrunkHeight + 2, Z: anchor.Z}, block.LeafBlockID, true)
}
