package eventbus

import (
	"net/http"
	"sync"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsExporter периодически снимает Stats с шины и публикует их
// как Prometheus-метрики. Экспортер опирается только на интерфейс
// EventBus и не знает о конкретной реализации.
type MetricsExporter struct {
	bus  EventBus
	quit chan struct{}
	done chan struct{}

	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge
}

var exporterRegisterOnce sync.Once

var (
	exporterPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventbus",
		Name:      "messages_published_total",
		Help:      "Общее число опубликованных сообщений.",
	})
	exporterConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventbus",
		Name:      "messages_consumed_total",
		Help:      "Общее число доставленных сообщений подписчикам.",
	})
	exporterDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventbus",
		Name:      "messages_dropped_total",
		Help:      "Сообщений, отброшенных из-за back-pressure.",
	})
	exporterInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "eventbus",
		Name:      "messages_inflight",
		Help:      "Количество сообщений в очереди (не доставленных).",
	})
)

// NewMetricsExporter создаёт экспортер, но не запускает HTTP-сервер.
func NewMetricsExporter(bus EventBus) *MetricsExporter {
	exporterRegisterOnce.Do(func() {
		prometheus.MustRegister(exporterPublished, exporterConsumed, exporterDropped, exporterInflight)
	})
	return &MetricsExporter{
		bus:       bus,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		published: exporterPublished,
		consumed:  exporterConsumed,
		dropped:   exporterDropped,
		inflight:  exporterInflight,
	}
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе (например, ":2112").
// Метод неблокирующий: HTTP-сервер стартует в отдельной горутине.
func (m *MetricsExporter) StartHTTP(addr string) {
	go func() {
		logging.Info("Prometheus /metrics доступен по адресу %s", addr)
		if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	go m.loop()
}

// Stop останавливает обновление метрик.
func (m *MetricsExporter) Stop() {
	close(m.quit)
	<-m.done
}

func (m *MetricsExporter) loop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	defer close(m.done)

	// Counter'ы монотонны, поэтому добавляем только дельту от прошлого снимка.
	var prev Stats

	for {
		select {
		case <-ticker.C:
			stats := m.bus.Metrics()

			if d := stats.Published - prev.Published; d > 0 {
				m.published.Add(float64(d))
			}
			if d := stats.Consumed - prev.Consumed; d > 0 {
				m.consumed.Add(float64(d))
			}
			if d := stats.Dropped - prev.Dropped; d > 0 {
				m.dropped.Add(float64(d))
			}
			m.inflight.Set(float64(stats.InFlight))

			prev = stats
		case <-m.quit:
			return
		}
	}
}
