package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP метрики - количество запросов
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP метрики - время обработки запросов
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// WS метрики - количество активных соединений
	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Количество активных WebSocket соединений",
		},
	)

	waitingParticipants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lobby_waiting_participants",
			Help: "Количество участников в очереди ожидания",
		},
	)

	activePairings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lobby_active_pairings",
			Help: "Количество активных пар",
		},
	)

	pairingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lobby_pairings_total",
			Help: "Общее количество созданных пар",
		},
	)

	// Пересылка через relay, type = text|offer|answer|candidate
	relayedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_forwarded_total",
			Help: "Количество пересланных сообщений по типу",
		},
		[]string{"type"},
	)

	relayDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_dropped_total",
			Help: "Количество сообщений без адресата",
		},
		[]string{"type"},
	)

	statsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_dropped_total",
			Help: "Количество записей статистики, отброшенных из-за переполнения очереди",
		},
	)
)

// RecordHTTPMetrics записывает метрики HTTP запроса
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

func IncrementWSActiveConnections() {
	wsActiveConnections.Inc()
}

func DecrementWSActiveConnections() {
	wsActiveConnections.Dec()
}

// SetLobbySize выставляет размеры очереди и количество пар
func SetLobbySize(waiting, pairings int) {
	waitingParticipants.Set(float64(waiting))
	activePairings.Set(float64(pairings))
}

func IncrementPairings() {
	pairingsTotal.Inc()
}

func IncrementRelayed(kind string) {
	relayedTotal.WithLabelValues(kind).Inc()
}

func IncrementRelayDropped(kind string) {
	relayDroppedTotal.WithLabelValues(kind).Inc()
}

func IncrementStatsDropped() {
	statsDroppedTotal.Inc()
}
