package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// ErrCorruptChunk сигнализирует о повреждённой записи чанка
var ErrCorruptChunk = errors.New("повреждённая запись чанка")

// Формат записи: магия, версия, координаты, ребро, контрольная сумма
// сырого массива вокселей, затем массив (uint16 LE на воксель),
// сжатый zstd
const (
	recordMagic   = "BVC1"
	recordVersion = 1

	// магия(4) + версия(1) + x,y,z(int32) + ребро(uint16) + crc32(4)
	recordHeaderSize = 4 + 1 + 12 + 2 + 4
)

// chunkCodec кодирует чанки в записи хранилища. Конкурентность
// компрессора зафиксирована в 1: кодирование обязано быть
// детерминированным, чтобы повторное сохранение неизменённого
// чанка давало байт-в-байт ту же запись.
type chunkCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newChunkCodec() (*chunkCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания компрессора: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("ошибка создания декомпрессора: %w", err)
	}
	return &chunkCodec{enc: enc, dec: dec}, nil
}

func (cc *chunkCodec) close() {
	cc.enc.Close()
	cc.dec.Close()
}

// encode сериализует чанк в запись хранилища
func (cc *chunkCodec) encode(chunk *world.Chunk) []byte {
	blocks := chunk.BlocksCopy()
	payload := make([]byte, len(blocks)*2)
	for i, id := range blocks {
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(id))
	}

	header := make([]byte, 0, recordHeaderSize)
	header = append(header, recordMagic...)
	header = append(header, recordVersion)
	header = binary.LittleEndian.AppendUint32(header, uint32(chunk.Coords.X))
	header = binary.LittleEndian.AppendUint32(header, uint32(chunk.Coords.Y))
	header = binary.LittleEndian.AppendUint32(header, uint32(chunk.Coords.Z))
	header = binary.LittleEndian.AppendUint16(header, uint16(chunk.Edge()))
	header = binary.LittleEndian.AppendUint32(header, crc32.ChecksumIEEE(payload))

	return cc.enc.EncodeAll(payload, header)
}

// decode восстанавливает чанк из записи, проверяя целостность.
// Любое расхождение — ErrCorruptChunk.
func (cc *chunkCodec) decode(coords vec.Vec3, data []byte) (*world.Chunk, error) {
	if len(data) < recordHeaderSize {
		return nil, fmt.Errorf("%w: запись короче заголовка (%d байт)", ErrCorruptChunk, len(data))
	}
	if string(data[:4]) != recordMagic {
		return nil, fmt.Errorf("%w: неверная магия", ErrCorruptChunk)
	}
	if data[4] != recordVersion {
		return nil, fmt.Errorf("%w: неизвестная версия записи %d", ErrCorruptChunk, data[4])
	}

	rx := int(int32(binary.LittleEndian.Uint32(data[5:])))
	ry := int(int32(binary.LittleEndian.Uint32(data[9:])))
	rz := int(int32(binary.LittleEndian.Uint32(data[13:])))
	if rx != coords.X || ry != coords.Y || rz != coords.Z {
		return nil, fmt.Errorf("%w: координаты записи (%d,%d,%d) не совпадают с ключом",
			ErrCorruptChunk, rx, ry, rz)
	}

	edge := int(binary.LittleEndian.Uint16(data[17:]))
	if edge <= 0 || edge&(edge-1) != 0 {
		return nil, fmt.Errorf("%w: недопустимое ребро чанка %d", ErrCorruptChunk, edge)
	}
	wantCRC := binary.LittleEndian.Uint32(data[19:])

	payload, err := cc.dec.DecodeAll(data[recordHeaderSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка распаковки: %v", ErrCorruptChunk, err)
	}
	if crc32.ChecksumIEEE(payload) != wantCRC {
		return nil, fmt.Errorf("%w: контрольная сумма не сходится", ErrCorruptChunk)
	}
	if len(payload) != edge*edge*edge*2 {
		return nil, fmt.Errorf("%w: размер массива %d не соответствует ребру %d",
			ErrCorruptChunk, len(payload), edge)
	}

	blocks := make([]block.BlockID, edge*edge*edge)
	for i := range blocks {
		blocks[i] = block.BlockID(binary.LittleEndian.Uint16(payload[i*2:]))
	}

	chunk, err := world.NewChunkFromBlocks(coords, edge, blocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}
	return chunk, nil
}
