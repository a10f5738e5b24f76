package storage

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// WorldStorage обеспечивает персистентность чанков через BadgerDB.
// Записи — сжатые zstd снимки массива вокселей, ключ chunk:<x>:<y>:<z>.
type WorldStorage struct {
	db      *badger.DB
	codec   *chunkCodec
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// NewWorldStorage создаёт хранилище мира в указанной директории
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")

	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логи Badger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	codec, err := newChunkCodec()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось создать кодек чанков: %w", err)
	}

	ws := &WorldStorage{
		db:      db,
		codec:   codec,
		isReady: true,
		logger:  logging.GetStorageLogger(),
	}
	ws.logger.Info("Хранилище мира открыто: %s", dbPath)
	return ws, nil
}

// Close закрывает хранилище
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}
	ws.isReady = false
	ws.codec.close()

	if err := ws.db.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия BadgerDB: %w", err)
	}
	ws.logger.Info("Хранилище мира закрыто")
	return nil
}

// chunkKey формирует ключ записи чанка
func chunkKey(coords vec.Vec3) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d:%d", coords.X, coords.Y, coords.Z))
}

// SaveChunk сохраняет снимок чанка. Кодирование детерминировано:
// повторное сохранение неизменённого чанка даёт идентичную запись.
func (ws *WorldStorage) SaveChunk(chunk *world.Chunk) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	data := ws.codec.encode(chunk)
	err := ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(chunk.Coords), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения чанка (%d,%d,%d): %w",
			chunk.Coords.X, chunk.Coords.Y, chunk.Coords.Z, err)
	}

	chunk.ClearDirtySave()
	ws.logger.Debug("Чанк (%d,%d,%d) сохранён, %d байт",
		chunk.Coords.X, chunk.Coords.Y, chunk.Coords.Z, len(data))
	return nil
}

// LoadChunk читает чанк. Отсутствие записи — это (nil, false, nil).
// Повреждённая запись не ошибка загрузки: она списывается в метрику
// и чанк уходит на регенерацию.
func (ws *WorldStorage) LoadChunk(coords vec.Vec3) (*world.Chunk, bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, false, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(coords))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения чанка (%d,%d,%d): %w",
			coords.X, coords.Y, coords.Z, err)
	}

	chunk, err := ws.codec.decode(coords, data)
	if err != nil {
		ws.logger.Warn("Повреждённая запись чанка (%d,%d,%d), уходит на регенерацию: %v",
			coords.X, coords.Y, coords.Z, err)
		metrics.CorruptRecords.Inc()
		return nil, false, nil
	}
	return chunk, true, nil
}

// Has сообщает, есть ли запись для координат
func (ws *WorldStorage) Has(coords vec.Vec3) bool {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return false
	}

	err := ws.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(chunkKey(coords))
		return err
	})
	return err == nil
}
