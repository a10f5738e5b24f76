package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики конвейера чанков. Регистрируются в глобальном регистре
// Prometheus при импорте пакета; cmd/game отдаёт их через promhttp.
var (
	// ChunksGenerated — количество чанков, построенных генератором
	ChunksGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockverse_chunks_generated_total",
		Help: "Количество чанков, созданных генератором ландшафта",
	})

	// ChunksLoaded — количество чанков, восстановленных из хранилища
	ChunksLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockverse_chunks_loaded_total",
		Help: "Количество чанков, загруженных из хранилища",
	})

	// ChunksEvicted — количество выгруженных чанков
	ChunksEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockverse_chunks_evicted_total",
		Help: "Количество чанков, выгруженных за радиус",
	})

	// MeshesBuilt — количество построенных мешей (включая перестроения)
	MeshesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockverse_meshes_built_total",
		Help: "Количество построенных мешей чанков",
	})

	// StaleResults — результаты воркеров, отброшенные как устаревшие
	StaleResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockverse_stale_results_total",
		Help: "Количество отброшенных результатов для нежелаемых чанков",
	})

	// CorruptRecords — повреждённые записи, отброшенные при загрузке
	CorruptRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockverse_corrupt_records_total",
		Help: "Количество повреждённых записей чанков, ушедших на регенерацию",
	})

	// LoadedChunks — текущее количество чанков в памяти
	LoadedChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blockverse_loaded_chunks",
		Help: "Текущее количество резидентных чанков",
	})

	// SpawnedEntities — текущее количество сущностей в загруженных чанках
	SpawnedEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blockverse_spawned_entities",
		Help: "Текущее количество сущностей в загруженных чанках",
	})
)
