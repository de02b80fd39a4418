// Package metrics exposes board lifecycle counters and gauges.
package metrics

import (
	"time"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "boardkeeper"

// Board implements board.Observer.
type Board struct {
	threadsCreated *prometheus.CounterVec
	replies        *prometheus.CounterVec
	evictions      *prometheus.CounterVec
	promotions     *prometheus.CounterVec
	drops          *prometheus.CounterVec
	opErrors       *prometheus.CounterVec

	activeThreads   *prometheus.GaugeVec
	archivedThreads *prometheus.GaugeVec
	stickyThreads   *prometheus.GaugeVec
	livePosts       *prometheus.GaugeVec

	saveDuration prometheus.Histogram
	saveFailures prometheus.Counter
}

func NewBoard(reg prometheus.Registerer) *Board {
	factory := promauto.With(reg)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Name: name, Help: help}, labels)
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{Namespace: Namespace, Name: name, Help: help}, []string{"board"})
	}

	return &Board{
		threadsCreated: counter("threads_created_total", "Threads created", "board"),
		replies:        counter("replies_total", "Replies posted", "board"),
		evictions:      counter("threads_evicted_total", "Threads moved from active to archive", "board"),
		promotions:     counter("threads_promoted_total", "Archived threads bumped back to active", "board"),
		drops:          counter("threads_dropped_total", "Threads pushed out of a full archive", "board"),
		opErrors:       counter("operation_errors_total", "Failed board operations", "board", "op", "kind"),

		activeThreads:   gauge("active_threads", "Threads in the active queue"),
		archivedThreads: gauge("archived_threads", "Threads in the archive queue"),
		stickyThreads:   gauge("sticky_threads", "Sticky threads"),
		livePosts:       gauge("live_posts", "Post ids currently in use"),

		saveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "snapshot_save_duration_seconds",
			Help:      "Duration of a full snapshot pass over all boards",
			Buckets:   prometheus.DefBuckets,
		}),
		saveFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "snapshot_save_failures_total",
			Help:      "Boards whose snapshot could not be saved",
		}),
	}
}

func (m *Board) ThreadEvicted(board domain.BoardName, _ domain.ThreadId) {
	m.evictions.WithLabelValues(board).Inc()
}

func (m *Board) ThreadPromoted(board domain.BoardName, _ domain.ThreadId) {
	m.promotions.WithLabelValues(board).Inc()
}

func (m *Board) ThreadDropped(board domain.BoardName, _ domain.ThreadId) {
	m.drops.WithLabelValues(board).Inc()
}

func (m *Board) ThreadCreated(board domain.BoardName) {
	m.threadsCreated.WithLabelValues(board).Inc()
}

func (m *Board) Replied(board domain.BoardName) {
	m.replies.WithLabelValues(board).Inc()
}

func (m *Board) OpFailed(board domain.BoardName, op string, err error) {
	m.opErrors.WithLabelValues(board, op, internal_errors.Kind(err)).Inc()
}

func (m *Board) SetOccupancy(stats domain.BoardStats) {
	m.activeThreads.WithLabelValues(stats.Name).Set(float64(stats.ActiveLen))
	m.archivedThreads.WithLabelValues(stats.Name).Set(float64(stats.ArchiveLen))
	m.stickyThreads.WithLabelValues(stats.Name).Set(float64(stats.StickyLen))
	m.livePosts.WithLabelValues(stats.Name).Set(float64(stats.LivePosts))
}

func (m *Board) SaveFinished(took time.Duration, failed int) {
	m.saveDuration.Observe(took.Seconds())
	m.saveFailures.Add(float64(failed))
}
