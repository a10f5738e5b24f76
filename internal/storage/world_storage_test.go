package storage

import (
	"bytes"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

func newTestStorage(t *testing.T) *WorldStorage {
	t.Helper()
	ws, err := NewWorldStorage(t.TempDir())
	require.NoError(t, err, "хранилище открывается во временной директории")
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func testChunk(coords vec.Vec3) *world.Chunk {
	gen := world.NewTerrainGenerator(424242, 16, 8, 64)
	return gen.GenerateChunk(coords)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ws := newTestStorage(t)
	coords := vec.Vec3{X: 2, Y: 3, Z: -5}
	chunk := testChunk(coords)

	require.NoError(t, ws.SaveChunk(chunk))
	assert.False(t, chunk.DirtySave(), "после сохранения чанк чист")
	assert.True(t, ws.Has(coords))

	loaded, ok, err := ws.LoadChunk(coords)
	require.NoError(t, err)
	require.True(t, ok, "сохранённый чанк находится")

	assert.Equal(t, coords, loaded.Coords)
	assert.Equal(t, chunk.Edge(), loaded.Edge())
	assert.Equal(t, chunk.BlocksCopy(), loaded.BlocksCopy(),
		"воксели восстанавливаются точно")
}

func TestLoadMissingChunk(t *testing.T) {
	ws := newTestStorage(t)

	chunk, ok, err := ws.LoadChunk(vec.Vec3{X: 9, Y: 9, Z: 9})
	require.NoError(t, err, "отсутствие записи — не ошибка")
	assert.False(t, ok)
	assert.Nil(t, chunk)
	assert.False(t, ws.Has(vec.Vec3{X: 9, Y: 9, Z: 9}))
}

func TestSaveIdempotentBytes(t *testing.T) {
	ws := newTestStorage(t)
	chunk := testChunk(vec.Vec3{X: 0, Y: 1, Z: 0})

	first := ws.codec.encode(chunk)
	second := ws.codec.encode(chunk)
	assert.True(t, bytes.Equal(first, second),
		"кодирование неизменённого чанка даёт байт-в-байт ту же запись")
}

func TestSaveOverwritesEdit(t *testing.T) {
	ws := newTestStorage(t)
	coords := vec.Vec3{X: 1, Y: 1, Z: 1}
	chunk := testChunk(coords)
	require.NoError(t, ws.SaveChunk(chunk))

	_, err := chunk.Set(vec.Vec3{X: 7, Y: 7, Z: 7}, block.PlankBlockID)
	require.NoError(t, err)
	require.NoError(t, ws.SaveChunk(chunk))

	loaded, ok, err := ws.LoadChunk(coords)
	require.NoError(t, err)
	require.True(t, ok)

	id, err := loaded.Get(vec.Vec3{X: 7, Y: 7, Z: 7})
	require.NoError(t, err)
	assert.Equal(t, block.PlankBlockID, id, "повторное сохранение заменяет запись")
}

func TestCorruptRecordDegradesToRegeneration(t *testing.T) {
	ws := newTestStorage(t)
	coords := vec.Vec3{X: 4, Y: 0, Z: 4}

	// Пишем мусор прямо в BadgerDB под ключ чанка
	err := ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(coords), []byte("не запись чанка"))
	})
	require.NoError(t, err)
	require.True(t, ws.Has(coords))

	chunk, ok, err := ws.LoadChunk(coords)
	assert.NoError(t, err, "повреждённая запись не становится ошибкой загрузки")
	assert.False(t, ok, "повреждённая запись списывается")
	assert.Nil(t, chunk)
}

func TestCorruptPayloadDetectedByChecksum(t *testing.T) {
	ws := newTestStorage(t)
	coords := vec.Vec3{X: 6, Y: 2, Z: 6}
	chunk := testChunk(coords)

	record := ws.codec.encode(chunk)
	// Портим сжатую полезную нагрузку, заголовок оставляем целым
	record[len(record)-1] ^= 0xFF

	_, err := ws.codec.decode(coords, record)
	assert.ErrorIs(t, err, ErrCorruptChunk, "порча данных обнаруживается")
}

func TestDecodeRejectsForeignCoords(t *testing.T) {
	ws := newTestStorage(t)
	chunk := testChunk(vec.Vec3{X: 1, Y: 2, Z: 3})

	record := ws.codec.encode(chunk)
	_, err := ws.codec.decode(vec.Vec3{X: 3, Y: 2, Z: 1}, record)
	assert.ErrorIs(t, err, ErrCorruptChunk,
		"запись с чужими координатами отвергается")
}

func TestStorageClosedRejectsOperations(t *testing.T) {
	ws, err := NewWorldStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	chunk := testChunk(vec.Vec3{})
	assert.Error(t, ws.SaveChunk(chunk), "сохранение в закрытое хранилище")
	_, _, err = ws.LoadChunk(vec.Vec3{})
	assert.Error(t, err, "чтение из закрытого хранилища")
	assert.False(t, ws.Has(vec.Vec3{}))
	assert.NoError(t, ws.Close(), "повторное закрытие безопасно")
}
