package world

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/blockverse/internal/vec"
)

// ChunkStore — контракт долговременного хранилища чанков.
// Реализуется internal/storage; в тестах подменяется заглушкой.
type ChunkStore interface {
	// SaveChunk сохраняет снимок чанка. Повторное сохранение
	// неизменённого чанка обязано дать идентичную запись.
	SaveChunk(chunk *Chunk) error

	// LoadChunk возвращает чанк, признак наличия и ошибку.
	// Повреждённая запись — это (nil, false, nil): мир деградирует
	// к регенерации, а не падает.
	LoadChunk(coords vec.Vec3) (*Chunk, bool, error)

	// Has сообщает, есть ли запись для координат
	Has(coords vec.Vec3) bool
}

// taskKind — вид задачи воркера
type taskKind uint8

const (
	taskGenerate taskKind = iota // построить чанк генератором
	taskLoad                     // прочитать чанк из хранилища
	taskMesh                     // построить меш по снимку
)

// workerTask — единица работы для пула.
// Задача несёт либо координаты (данные), либо снимок (меш).
// epoch — эпоха резидентности чанка, выдавшего задачу: по ней
// отсеиваются результаты, пережившие выгрузку своего чанка.
type workerTask struct {
	kind     taskKind
	coords   vec.Vec3
	epoch    uint64
	snapshot *ChunkSnapshot
}

// workerResult — результат задачи. Поток-владелец карты чанков
// забирает результаты в Update и сам решает, не устарели ли они.
type workerResult struct {
	kind   taskKind
	coords vec.Vec3
	epoch  uint64
	chunk  *Chunk
	mesh   *Mesh
	loaded bool // данные пришли из хранилища, а не от генератора
	err    error
}

// workerPool — ограниченный пул воркеров чанкового конвейера.
// Очереди буферизованы: постановка задач неблокирующая, при
// заполнении очереди отправитель повторит попытку на следующем тике.
type workerPool struct {
	tasks       chan workerTask
	results     chan workerResult // результаты задач данных
	meshResults chan workerResult // результаты мешинга
	wg          sync.WaitGroup

	generator *TerrainGenerator
	store     ChunkStore
}

// newWorkerPool создаёт пул. store может быть nil — тогда задачи
// загрузки всегда деградируют к генерации.
func newWorkerPool(queueSize int, generator *TerrainGenerator, store ChunkStore) *workerPool {
	return &workerPool{
		tasks:       make(chan workerTask, queueSize),
		results:     make(chan workerResult, queueSize),
		meshResults: make(chan workerResult, queueSize),
		generator:   generator,
		store:       store,
	}
}

// Run запускает воркеров. Завершаются они при отмене контекста.
func (wp *workerPool) Run(ctx context.Context, size int) {
	for i := 0; i < size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

// Wait блокируется до завершения всех воркеров
func (wp *workerPool) Wait() {
	wp.wg.Wait()
}

// Submit ставит задачу в очередь без блокировки.
// Возвращает false, если очередь заполнена.
func (wp *workerPool) Submit(task workerTask) bool {
	select {
	case wp.tasks <- task:
		return true
	default:
		return false
	}
}

// Results возвращает канал результатов задач данных
func (wp *workerPool) Results() <-chan workerResult {
	return wp.results
}

// MeshResults возвращает канал результатов мешинга
func (wp *workerPool) MeshResults() <-chan workerResult {
	return wp.meshResults
}

func (wp *workerPool) worker(ctx context.Context) {
	defer wp.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-wp.tasks:
			result := wp.execute(task)
			out := wp.results
			if task.kind == taskMesh {
				out = wp.meshResults
			}
			select {
			case <-ctx.Done():
				return
			case out <- result:
			}
		}
	}
}

// execute выполняет одну задачу. Воркеры не касаются карты чанков:
// генерация чистая, загрузка читает хранилище, мешинг — только снимок.
func (wp *workerPool) execute(task workerTask) workerResult {
	switch task.kind {
	case taskLoad:
		if wp.store != nil {
			chunk, ok, err := wp.store.LoadChunk(task.coords)
			if err == nil && ok {
				return workerResult{kind: taskLoad, coords: task.coords, epoch: task.epoch, chunk: chunk, loaded: true}
			}
			// Ошибка или повреждённая запись: деградируем к генерации
		}
		chunk := wp.generator.GenerateChunk(task.coords)
		chunk.MarkDirtySave()
		return workerResult{kind: taskLoad, coords: task.coords, epoch: task.epoch, chunk: chunk}

	case taskGenerate:
		chunk := wp.generator.GenerateChunk(task.coords)
		chunk.MarkDirtySave()
		return workerResult{kind: taskGenerate, coords: task.coords, epoch: task.epoch, chunk: chunk}

	case taskMesh:
		mesh, err := BuildMesh(task.snapshot)
		if err != nil {
			err = fmt.Errorf("мешинг чанка (%d,%d,%d): %w",
				task.coords.X, task.coords.Y, task.coords.Z, err)
		}
		return workerResult{kind: taskMesh, coords: task.coords, epoch: task.epoch, mesh: mesh, err: err}

	default:
		return workerResult{kind: task.kind, coords: task.coords, epoch: task.epoch,
			err: fmt.Errorf("неизвестный вид задачи %d", task.kind)}
	}
}
