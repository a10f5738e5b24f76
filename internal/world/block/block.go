package block

// BlockID представляет идентификатор типа блока
type BlockID uint16

// Константы ID блоков. Набор закрытый и известен на этапе сборки,
// поэтому поведение задаётся табличными свойствами, а не объектами.
const (
	AirBlockID     BlockID = iota // 0
	StoneBlockID                  // 1
	DirtBlockID                   // 2
	GrassBlockID                  // 3
	PlankBlockID                  // 4
	BedrockBlockID                // 5
	WaterBlockID                  // 6
	SandBlockID                   // 7
	WoodBlockID                   // 8
	LeafBlockID                   // 9
	SnowBlockID                   // 10

	// blockCount — число известных блоков, используется для валидации ID
	blockCount
)

// Properties описывает свойства типа блока.
// Solid участвует в мешинге (отсечение граней) и физике,
// Transparent — в классификации для прозрачных соседей.
type Properties struct {
	Name        string  // Имя блока
	Solid       bool    // Непроходимый/непрозрачный для отсечения граней
	Transparent bool    // Пропускает свет (воздух, вода, листва)
	Hardness    float64 // Твёрдость (время разрушения), 0 — неразрушаемый воздух, <0 — неразрушаемый
}

// registry — таблица свойств блоков, индекс — BlockID
var registry = [blockCount]Properties{
	AirBlockID:     {Name: "air", Solid: false, Transparent: true, Hardness: 0},
	StoneBlockID:   {Name: "stone", Solid: true, Transparent: false, Hardness: 5.0},
	DirtBlockID:    {Name: "dirt", Solid: true, Transparent: false, Hardness: 1.0},
	GrassBlockID:   {Name: "grass", Solid: true, Transparent: false, Hardness: 1.2},
	PlankBlockID:   {Name: "plank", Solid: true, Transparent: false, Hardness: 2.5},
	BedrockBlockID: {Name: "bedrock", Solid: true, Transparent: false, Hardness: -1},
	WaterBlockID:   {Name: "water", Solid: false, Transparent: true, Hardness: 0},
	SandBlockID:    {Name: "sand", Solid: true, Transparent: false, Hardness: 0.8},
	WoodBlockID:    {Name: "wood", Solid: true, Transparent: false, Hardness: 3.0},
	LeafBlockID:    {Name: "leaf", Solid: true, Transparent: true, Hardness: 0.3},
	SnowBlockID:    {Name: "snow", Solid: true, Transparent: false, Hardness: 0.5},
}

// Get возвращает свойства для указанного ID
func Get(id BlockID) (Properties, bool) {
	if !IsValidBlockID(id) {
		return Properties{}, false
	}
	return registry[id], true
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	return id < blockCount
}

// IsSolid сообщает, является ли блок твёрдым.
// Неизвестные ID считаются нетвёрдыми, чтобы повреждённые данные
// не порождали фантомных стен.
func IsSolid(id BlockID) bool {
	if !IsValidBlockID(id) {
		return false
	}
	return registry[id].Solid
}

// IsAir сообщает, является ли блок воздухом
func IsAir(id BlockID) bool {
	return id == AirBlockID
}

// Name возвращает имя блока или "unknown" для недопустимого ID
func Name(id BlockID) string {
	if !IsValidBlockID(id) {
		return "unknown"
	}
	return registry[id].Name
}
