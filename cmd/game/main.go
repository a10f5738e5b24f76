package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/entity"
)

const ticksPerSecond = 60

// meshSink — приёмник мешей до подключения рендера: считает грани
// и пишет их в лог. Рендер реализует world.RenderSink снаружи ядра.
type meshSink struct{}

func (ms *meshSink) InstallMesh(coords vec.Vec3, mesh *world.Mesh) {
	logging.Debug("Меш чанка (%d,%d,%d): %d граней, %d материалов",
		coords.X, coords.Y, coords.Z, mesh.QuadCount(), len(mesh.Groups))
}

func (ms *meshSink) RemoveMesh(coords vec.Vec3) {
	logging.Debug("Меш чанка (%d,%d,%d) убран", coords.X, coords.Y, coords.Z)
}

func main() {
	configPath := flag.String("config", "", "путь к YAML файлу конфигурации")
	flag.Parse()

	if err := logging.InitDefaultLogger("game"); err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("Ошибка загрузки конфигурации: %v", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = &config.Config{} // конфиг не задан — значения по умолчанию
	}

	// Prometheus метрики конвейера чанков
	metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.GetMetricsPort())
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		logging.Info("Метрики Prometheus: http://localhost%s/metrics", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			logging.Warn("Сервер метрик остановлен: %v", err)
		}
	}()

	store, err := storage.NewWorldStorage(cfg.Storage.GetDataPath())
	if err != nil {
		logging.Error("Ошибка открытия хранилища мира: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	seed := cfg.World.GetSeed()
	edge := cfg.World.GetChunkEdge()
	generator := world.NewTerrainGenerator(seed, edge,
		cfg.World.GetHeightChunks(), cfg.World.GetSeaLevel())

	manager := world.NewChunkManager(world.ManagerConfig{
		ChunkEdge:     edge,
		HeightChunks:  cfg.World.GetHeightChunks(),
		LoadRadius:    cfg.World.GetLoadRadius(),
		UnloadMargin:  cfg.World.GetUnloadMargin(),
		OpsPerTick:    cfg.Workers.GetOpsPerTick(),
		PoolSize:      cfg.Workers.GetPoolSize(),
		AutosaveTicks: cfg.Workers.GetAutosaveTicks(),
	}, generator, store, &meshSink{})

	spawner := entity.NewSpawner(generator, edge)
	manager.Subscribe(spawner)

	manager.Start()
	defer manager.Stop()

	// Игрок появляется на поверхности в начале координат
	surfaceY, _ := generator.HeightAt(0, 0)
	player := vec.Vec3Float{X: 0.5, Y: float64(surfaceY) + 1, Z: 0.5}

	logging.Info("Мир запущен: сид %d, ребро чанка %d, радиус загрузки %d",
		seed, edge, cfg.World.GetLoadRadius())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / ticksPerSecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			logging.Info("Получен сигнал завершения, сохраняем мир")
			return
		case <-ticker.C:
			manager.Update(player)
			// Медленная прогулка вдоль X держит стриминг в работе
			player.X += 0.05
		}
	}
}
