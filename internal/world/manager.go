package world

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// ErrChunkNotLoaded возвращается при редактировании вокселя в чанке,
// данные которого ещё не находятся в памяти
var ErrChunkNotLoaded = errors.New("чанк не загружен")

// RenderSink получает готовые меши. Реализуется рендером снаружи
// пакета; вызовы приходят только с основного потока.
type RenderSink interface {
	// InstallMesh устанавливает (или заменяет) меш чанка
	InstallMesh(coords vec.Vec3, mesh *Mesh)

	// RemoveMesh убирает меш выгружаемого чанка
	RemoveMesh(coords vec.Vec3)
}

// ManagerConfig — параметры менеджера чанков
type ManagerConfig struct {
	ChunkEdge     int // ребро чанка в блоках, степень двойки
	HeightChunks  int // высота мира в чанках
	LoadRadius    int // радиус загрузки (расстояние Чебышёва, в чанках)
	UnloadMargin  int // гистерезис: выгрузка за LoadRadius+UnloadMargin
	OpsPerTick    int // бюджет операций данных и мешей на тик (каждых)
	PoolSize      int // количество воркеров
	AutosaveTicks int // период автосохранения в тиках, 0 — отключено
}

// withDefaults заполняет нулевые поля значениями по умолчанию
func (mc ManagerConfig) withDefaults() ManagerConfig {
	if mc.ChunkEdge == 0 {
		mc.ChunkEdge = 32
	}
	if mc.HeightChunks == 0 {
		mc.HeightChunks = 8
	}
	if mc.LoadRadius == 0 {
		mc.LoadRadius = 8
	}
	if mc.UnloadMargin == 0 {
		mc.UnloadMargin = 2
	}
	if mc.OpsPerTick == 0 {
		mc.OpsPerTick = 15
	}
	if mc.PoolSize == 0 {
		mc.PoolSize = 4
	}
	return mc
}

// chunkEntry — запись карты чанков. Все поля принадлежат основному
// потоку; воркеры видят только снимки и результаты.
type chunkEntry struct {
	chunk *Chunk
	state ChunkState
	epoch uint64 // эпоха резидентности: новая запись — новая эпоха

	meshQueued    bool // снимок отправлен в пул, результата ещё нет
	staleSnapshot bool // воксели менялись после снятия снимка
	everReady     bool // чанк уже проходил через Ready (событие один раз)
}

// ChunkManager ведёт карту чанков вокруг игрока: асинхронно получает
// данные и меши через пул воркеров, синхронно применяет правки
// вокселей, выгружает чанки за радиусом с гистерезисом.
//
// Update и все публичные методы должны вызываться с одного потока
// (потока игрового цикла).
type ChunkManager struct {
	cfg       ManagerConfig
	generator *TerrainGenerator
	store     ChunkStore
	render    RenderSink
	pool      *workerPool

	entries     map[vec.Vec3]*chunkEntry
	observers   []ChunkObserver
	playerChunk vec.Vec3
	tick        uint64
	epoch       uint64 // счётчик эпох резидентности, растёт на каждую запись

	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger
}

// NewChunkManager создаёт менеджер. store и render могут быть nil:
// без хранилища мир живёт только в памяти, без рендера меши строятся
// и отбрасываются.
func NewChunkManager(cfg ManagerConfig, generator *TerrainGenerator, store ChunkStore, render RenderSink) *ChunkManager {
	cfg = cfg.withDefaults()
	queueSize := cfg.OpsPerTick * 8
	return &ChunkManager{
		cfg:       cfg,
		generator: generator,
		store:     store,
		render:    render,
		pool:      newWorkerPool(queueSize, generator, store),
		entries:   make(map[vec.Vec3]*chunkEntry),
		logger:    logging.GetWorldLogger(),
	}
}

// Start запускает воркеров конвейера
func (cm *ChunkManager) Start() {
	cm.ctx, cm.cancel = context.WithCancel(context.Background())
	cm.pool.Run(cm.ctx, cm.cfg.PoolSize)
	cm.logger.Info("Менеджер чанков запущен: радиус %d, бюджет %d, воркеров %d",
		cm.cfg.LoadRadius, cm.cfg.OpsPerTick, cm.cfg.PoolSize)
}

// Stop останавливает воркеров и сбрасывает несохранённые чанки
func (cm *ChunkManager) Stop() {
	if cm.cancel != nil {
		cm.cancel()
		cm.pool.Wait()
	}
	saved := cm.flushDirty()
	cm.logger.Info("Менеджер чанков остановлен, сохранено чанков: %d", saved)
}

// Subscribe подписывает наблюдателя на события мира
func (cm *ChunkManager) Subscribe(observer ChunkObserver) {
	cm.observers = append(cm.observers, observer)
}

func (cm *ChunkManager) notify(event ChunkEvent) {
	for _, o := range cm.observers {
		o.OnChunkEvent(event)
	}
}

// Update выполняет один тик конвейера: забирает результаты воркеров,
// выгружает чанки за радиусом и раздаёт новые задачи в пределах
// бюджета, ближние чанки первыми.
func (cm *ChunkManager) Update(playerPos vec.Vec3Float) {
	cm.tick++
	pc := playerPos.ToVec3().ToChunkCoords(cm.cfg.ChunkEdge)
	if pc.Y < 0 {
		pc.Y = 0
	}
	if pc.Y >= cm.cfg.HeightChunks {
		pc.Y = cm.cfg.HeightChunks - 1
	}
	cm.playerChunk = pc

	dataOps := cm.cfg.OpsPerTick
	meshOps := cm.cfg.OpsPerTick

	cm.drainDataResults(&dataOps)
	cm.drainMeshResults(&meshOps)
	cm.evict()
	cm.dispatchData(&dataOps)
	cm.dispatchMesh(&meshOps)

	if cm.cfg.AutosaveTicks > 0 && cm.tick%uint64(cm.cfg.AutosaveTicks) == 0 {
		saved := cm.flushDirty()
		if saved > 0 {
			cm.logger.Debug("Автосохранение: %d чанков", saved)
		}
	}

	metrics.LoadedChunks.Set(float64(len(cm.entries)))
}

// desired сообщает, входит ли чанк в желаемое множество
func (cm *ChunkManager) desired(coords vec.Vec3) bool {
	if coords.Y < 0 || coords.Y >= cm.cfg.HeightChunks {
		return false
	}
	return coords.ChebyshevDistance(cm.playerChunk) <= cm.cfg.LoadRadius
}

// drainDataResults забирает готовые данные чанков. Результаты для
// исчезнувших, перезагруженных или ушедших за радиус чанков
// отбрасываются: эпоха результата обязана совпадать с эпохой записи.
func (cm *ChunkManager) drainDataResults(budget *int) {
	for *budget > 0 {
		select {
		case res := <-cm.pool.Results():
			*budget--
			entry, ok := cm.entries[res.coords]
			if !ok || entry.epoch != res.epoch ||
				(entry.state != ChunkGenerating && entry.state != ChunkLoading) {
				metrics.StaleResults.Inc()
				continue
			}
			if !cm.desired(res.coords) {
				delete(cm.entries, res.coords)
				metrics.StaleResults.Inc()
				continue
			}
			entry.chunk = res.chunk
			entry.state = ChunkAwaitingNeighbors
			if res.loaded {
				metrics.ChunksLoaded.Inc()
			} else {
				metrics.ChunksGenerated.Inc()
			}
		default:
			return
		}
	}
}

// drainMeshResults устанавливает готовые меши
func (cm *ChunkManager) drainMeshResults(budget *int) {
	for *budget > 0 {
		select {
		case res := <-cm.pool.MeshResults():
			*budget--
			entry, ok := cm.entries[res.coords]
			if !ok || entry.epoch != res.epoch {
				// Меш прежней резидентности: запись уже выгружалась,
				// его воксельная основа могла отличаться от текущей
				metrics.StaleResults.Inc()
				continue
			}
			entry.meshQueued = false
			if res.err != nil {
				// Снимок был неполным: чанк вернётся в очередь,
				// когда соседи появятся
				cm.logger.Warn("Мешинг не удался: %v", res.err)
				entry.staleSnapshot = false
				continue
			}
			if !entry.state.HasVoxelData() || !cm.desired(res.coords) {
				metrics.StaleResults.Inc()
				continue
			}

			if cm.render != nil {
				cm.render.InstallMesh(res.coords, res.mesh)
			}
			metrics.MeshesBuilt.Inc()

			if entry.staleSnapshot {
				// Воксели менялись, пока меш строился
				entry.staleSnapshot = false
				entry.state = ChunkDirty
			} else {
				entry.state = ChunkReady
			}

			if !entry.everReady {
				entry.everReady = true
				cm.notify(ChunkEvent{
					Type:   EventTypeChunkReady,
					Coords: res.coords,
					Chunk:  entry.chunk,
				})
			}
		default:
			return
		}
	}
}

// evict выгружает чанки за радиусом с гистерезисом: порог выгрузки
// дальше порога загрузки, чтобы чанк на границе не мигал
func (cm *ChunkManager) evict() {
	limit := cm.cfg.LoadRadius + cm.cfg.UnloadMargin
	for coords, entry := range cm.entries {
		if coords.ChebyshevDistance(cm.playerChunk) <= limit {
			continue
		}
		entry.state = ChunkUnloading
		if entry.chunk != nil {
			cm.notify(ChunkEvent{
				Type:   EventTypeChunkUnloading,
				Coords: coords,
				Chunk:  entry.chunk,
			})
			if cm.store != nil && entry.chunk.DirtySave() {
				if err := cm.store.SaveChunk(entry.chunk); err != nil {
					cm.logger.Error("Не удалось сохранить чанк (%d,%d,%d): %v",
						coords.X, coords.Y, coords.Z, err)
				}
			}
		}
		if cm.render != nil && entry.everReady {
			cm.render.RemoveMesh(coords)
		}
		delete(cm.entries, coords)
		metrics.ChunksEvicted.Inc()
	}
}

// dispatchData ставит задачи получения данных для недостающих чанков
// желаемого множества, ближние первыми
func (cm *ChunkManager) dispatchData(budget *int) {
	if *budget <= 0 {
		return
	}
	var missing []vec.Vec3
	r := cm.cfg.LoadRadius
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			for y := 0; y < cm.cfg.HeightChunks; y++ {
				coords := vec.Vec3{X: cm.playerChunk.X + dx, Y: y, Z: cm.playerChunk.Z + dz}
				if !cm.desired(coords) {
					continue
				}
				if _, ok := cm.entries[coords]; ok {
					continue
				}
				missing = append(missing, coords)
			}
		}
	}
	cm.sortByDistance(missing)

	for _, coords := range missing {
		if *budget <= 0 {
			return
		}
		kind, state := taskGenerate, ChunkGenerating
		if cm.store != nil && cm.store.Has(coords) {
			kind, state = taskLoad, ChunkLoading
		}
		cm.epoch++
		if !cm.pool.Submit(workerTask{kind: kind, coords: coords, epoch: cm.epoch}) {
			return // очередь заполнена, продолжим на следующем тике
		}
		cm.entries[coords] = &chunkEntry{state: state, epoch: cm.epoch}
		*budget--
	}
}

// dispatchMesh ставит задачи мешинга для чанков, у которых есть данные
// всех шести соседей, ближние первыми
func (cm *ChunkManager) dispatchMesh(budget *int) {
	if *budget <= 0 {
		return
	}
	var pending []vec.Vec3
	for coords, entry := range cm.entries {
		if entry.meshQueued {
			continue
		}
		if entry.state != ChunkAwaitingNeighbors && entry.state != ChunkDirty {
			continue
		}
		if !cm.neighborsAvailable(coords) {
			continue
		}
		pending = append(pending, coords)
	}
	cm.sortByDistance(pending)

	for _, coords := range pending {
		if *budget <= 0 {
			return
		}
		entry := cm.entries[coords]
		snap := cm.makeSnapshot(coords, entry)
		if !cm.pool.Submit(workerTask{kind: taskMesh, coords: coords, epoch: entry.epoch, snapshot: snap}) {
			return
		}
		entry.meshQueued = true
		entry.staleSnapshot = false
		entry.chunk.ClearDirtyMesh()
		*budget--
	}
}

// sortByDistance сортирует координаты по близости к чанку игрока;
// ничьи разрешаются порядком (X, Y, Z) для детерминизма
func (cm *ChunkManager) sortByDistance(coords []vec.Vec3) {
	sort.Slice(coords, func(i, j int) bool {
		di := coords[i].DistanceSq(cm.playerChunk)
		dj := coords[j].DistanceSq(cm.playerChunk)
		if di != dj {
			return di < dj
		}
		return coords[i].Less(coords[j])
	})
}

// neighborsAvailable проверяет наличие данных у всех 6 соседей.
// Выше и ниже мира соседей нет: там считается воздух.
func (cm *ChunkManager) neighborsAvailable(coords vec.Vec3) bool {
	for d := Direction(0); d < directionCount; d++ {
		n := coords.Add(d.Offset())
		if n.Y < 0 || n.Y >= cm.cfg.HeightChunks {
			continue
		}
		entry, ok := cm.entries[n]
		if !ok || !entry.state.HasVoxelData() {
			return false
		}
	}
	return true
}

// makeSnapshot снимает копию чанка и граничных слоёв соседей.
// Вызывается только когда neighborsAvailable вернул true.
func (cm *ChunkManager) makeSnapshot(coords vec.Vec3, entry *chunkEntry) *ChunkSnapshot {
	snap := &ChunkSnapshot{
		Coords: coords,
		Edge:   cm.cfg.ChunkEdge,
		Blocks: entry.chunk.BlocksCopy(),
	}
	for d := Direction(0); d < directionCount; d++ {
		n := coords.Add(d.Offset())
		if n.Y < 0 || n.Y >= cm.cfg.HeightChunks {
			snap.NeighborFaces[d] = AirFace(cm.cfg.ChunkEdge)
			continue
		}
		snap.NeighborFaces[d] = cm.entries[n].chunk.FaceLayer(d.Opposite())
	}
	return snap
}

// flushDirty сохраняет все чанки с несохранёнными изменениями
func (cm *ChunkManager) flushDirty() int {
	if cm.store == nil {
		return 0
	}
	saved := 0
	for coords, entry := range cm.entries {
		if entry.chunk == nil || !entry.chunk.DirtySave() {
			continue
		}
		if err := cm.store.SaveChunk(entry.chunk); err != nil {
			cm.logger.Error("Не удалось сохранить чанк (%d,%d,%d): %v",
				coords.X, coords.Y, coords.Z, err)
			continue
		}
		saved++
	}
	return saved
}

// PlaceBlock ставит блок по мировой координате. Запись синхронная,
// перестроение меша асинхронное на последующих тиках.
func (cm *ChunkManager) PlaceBlock(world vec.Vec3, id block.BlockID) error {
	if !block.IsValidBlockID(id) {
		return fmt.Errorf("недопустимый ID блока %d", id)
	}
	_, err := cm.applyEdit(world, id)
	return err
}

// BreakBlock разрушает блок по мировой координате и возвращает прежний
func (cm *ChunkManager) BreakBlock(world vec.Vec3) (block.BlockID, error) {
	return cm.applyEdit(world, block.AirBlockID)
}

// applyEdit применяет правку вокселя: пишет в чанк, помечает чанк и
// затронутых граничных соседей на перестроение меша
func (cm *ChunkManager) applyEdit(world vec.Vec3, id block.BlockID) (block.BlockID, error) {
	if world.Y < 0 || world.Y >= cm.cfg.HeightChunks*cm.cfg.ChunkEdge {
		return block.AirBlockID, fmt.Errorf("правка (%d,%d,%d): %w",
			world.X, world.Y, world.Z, ErrOutOfBounds)
	}
	coords := world.ToChunkCoords(cm.cfg.ChunkEdge)
	entry, ok := cm.entries[coords]
	if !ok || !entry.state.HasVoxelData() {
		return block.AirBlockID, fmt.Errorf("правка (%d,%d,%d): %w",
			world.X, world.Y, world.Z, ErrChunkNotLoaded)
	}

	local := world.LocalInChunk(cm.cfg.ChunkEdge)
	prev, err := entry.chunk.Set(local, id)
	if err != nil {
		return block.AirBlockID, err
	}
	cm.markDirty(entry)

	// Правка на грани делает меш соседа устаревшим: его отсечение
	// граней опиралось на прежний воксель
	for d := Direction(0); d < directionCount; d++ {
		if !onBoundary(local, d, cm.cfg.ChunkEdge) {
			continue
		}
		n := coords.Add(d.Offset())
		if nEntry, ok := cm.entries[n]; ok && nEntry.state.HasVoxelData() {
			cm.markDirty(nEntry)
		}
	}

	cm.notify(ChunkEvent{
		Type:     EventTypeBlockChange,
		Coords:   coords,
		Position: world,
		Block:    id,
	})
	return prev, nil
}

// markDirty переводит чанк в Dirty; если снимок уже в пуле,
// помечает его устаревшим, чтобы после установки меш перестроился
func (cm *ChunkManager) markDirty(entry *chunkEntry) {
	if entry.meshQueued {
		entry.staleSnapshot = true
		return
	}
	if entry.state == ChunkReady {
		entry.state = ChunkDirty
	}
}

// onBoundary проверяет, лежит ли локальная координата на грани чанка
// в направлении dir
func onBoundary(local vec.Vec3, dir Direction, edge int) bool {
	switch dir {
	case DirLeft:
		return local.X == 0
	case DirRight:
		return local.X == edge-1
	case DirBottom:
		return local.Y == 0
	case DirTop:
		return local.Y == edge-1
	case DirBack:
		return local.Z == 0
	default:
		return local.Z == edge-1
	}
}

// BlockAt возвращает воксель по мировой координате
func (cm *ChunkManager) BlockAt(world vec.Vec3) (block.BlockID, error) {
	coords := world.ToChunkCoords(cm.cfg.ChunkEdge)
	entry, ok := cm.entries[coords]
	if !ok || !entry.state.HasVoxelData() {
		return block.AirBlockID, fmt.Errorf("чтение (%d,%d,%d): %w",
			world.X, world.Y, world.Z, ErrChunkNotLoaded)
	}
	return entry.chunk.Get(world.LocalInChunk(cm.cfg.ChunkEdge))
}

// State возвращает состояние чанка
func (cm *ChunkManager) State(coords vec.Vec3) ChunkState {
	entry, ok := cm.entries[coords]
	if !ok {
		return ChunkUnloaded
	}
	return entry.state
}

// ChunkAt возвращает чанк, если его данные в памяти
func (cm *ChunkManager) ChunkAt(coords vec.Vec3) (*Chunk, bool) {
	entry, ok := cm.entries[coords]
	if !ok || !entry.state.HasVoxelData() {
		return nil, false
	}
	return entry.chunk, true
}

// LoadedCount возвращает количество записей в карте чанков
func (cm *ChunkManager) LoadedCount() int {
	return len(cm.entries)
}

// PlayerChunk возвращает чанк игрока на последнем тике
func (cm *ChunkManager) PlayerChunk() vec.Vec3 {
	return cm.playerChunk
}
