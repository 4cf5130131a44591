package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (или ENV WORLD_CONFIG)")
	seedFlag := flag.Int64("seed", 0, "Сид мира (перекрывает конфиг)")
	chunkEdgeFlag := flag.Int64("chunk-edge", 0, "Ребро чанка, степень двойки (перекрывает конфиг)")
	generatorFlag := flag.String("generator", "", "Генератор чанков: heightmap, cubic, debug, noise3d (перекрывает конфиг)")
	viewDistance := flag.Int64("view-distance", 64, "Радиус региона интереса вокруг начала координат")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.Init("world-server"); err != nil {
		log.Fatalf("Ошибка инициализации логирования: %v", err)
	}
	defer logging.Close()

	logging.Info("🌍 Запуск сервера воксельного мира...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("Ошибка чтения конфигурации: %v", err)
		log.Fatalf("Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	seed := cfg.World.GetSeed()
	if *seedFlag != 0 {
		seed = *seedFlag
	}
	chunkEdge := cfg.World.GetChunkEdge()
	if *chunkEdgeFlag > 0 {
		chunkEdge = *chunkEdgeFlag
	}
	workers := cfg.World.GetWorkers()
	generatorName := cfg.World.GetGenerator()
	if *generatorFlag != "" {
		generatorName = *generatorFlag
	}

	logging.Info("Конфигурация: сид=%d, ребро чанка=%d, воркеры=%d, генератор=%s", seed, chunkEdge, workers, generatorName)

	// === ТЕЛЕМЕТРИЯ ===
	ctx := context.Background()
	shutdownTelemetry, err := observability.InitTelemetry(ctx, "voxel-world")
	if err != nil {
		logging.Warn("OpenTelemetry недоступен: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		jsBus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, retention)
		if err != nil {
			logging.Error("Ошибка подключения к NATS: %v", err)
			log.Fatalf("Ошибка подключения к NATS: %v", err)
		}
		defer jsBus.Close()
		bus = jsBus
		logging.Info("Шина событий: JetStream (%s)", cfg.EventBus.URL)
	} else {
		bus = eventbus.NewMemoryBus(1024)
		logging.Info("Шина событий: in-memory")
	}
	eventbus.Init(bus)
	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("LoggingListener не запущен: %v", err)
	}

	// === МЕТРИКИ ===
	exporter := eventbus.NewMetricsExporter(bus)
	exporter.StartHTTP(fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()))

	// === МИР ===
	generator, err := world.NewGeneratorByName(generatorName, seed, chunkEdge)
	if err != nil {
		logging.Error("Ошибка выбора генератора: %v", err)
		log.Fatalf("Ошибка выбора генератора: %v", err)
	}
	w := world.NewVoxelWorldGenerator(seed, chunkEdge, workers, generator)
	defer w.Close()

	// Прогреваем регион интереса вокруг начала координат
	half := *viewDistance
	interest := world.NewRegionRect(
		vec.Vec3{X: -half, Y: -half, Z: -half},
		vec.Vec3{X: half, Y: half, Z: half},
	)
	if _, err := w.RequestRegion(interest); err != nil {
		logging.Error("Ошибка запроса региона интереса: %v", err)
		log.Fatalf("Ошибка запроса региона интереса: %v", err)
	}

	logging.Info("✅ Сервер запущен, регион интереса ±%d", half)

	// === ОСНОВНОЙ ЦИКЛ ===
	// Единая координирующая линия: установка готовых чанков каждый тик
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			installed, failures := w.PollGenerated()
			if len(installed) > 0 {
				logging.Debug("Установлено чанков: %d, в очереди: %d", len(installed), w.PendingGeneration())
			}
			for _, f := range failures {
				logging.Error("Генерация чанка %v: %v", f.ChunkCoords, f.Err)
			}
		case sig := <-sigCh:
			logging.Info("Получен сигнал %v, завершение работы...", sig)

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := shutdownTelemetry(shCtx); err != nil {
				logging.Warn("Ошибка остановки телеметрии: %v", err)
			}
			cancel()
			exporter.Stop()
			logging.Info("Сервер остановлен")
			return
		}
	}
}
