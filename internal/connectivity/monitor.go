package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Monitor reports network reachability. Watch emits the current value on
// subscribe, then only transitions: two consecutive equal emissions never
// occur. The returned func detaches the watcher and closes its channel.
type Monitor interface {
	IsReachable() bool
	Watch() (<-chan bool, func())
}

// ProbeFunc performs one reachability check.
type ProbeFunc func(ctx context.Context) bool

// HTTPProbe builds a ProbeFunc that considers the network reachable when a
// GET against url succeeds with any status.
func HTTPProbe(client *http.Client, url string) ProbeFunc {
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// transitionBuffer bounds how many unconsumed transitions a watcher may
// queue. Must be even: overflow drops the two oldest entries, which keeps
// the queued sequence alternating.
const transitionBuffer = 16

// ProbeMonitor maintains a reachability flag by probing on a fixed
// schedule. It starts unreachable until the first probe says otherwise.
type ProbeMonitor struct {
	probe   ProbeFunc
	timeout time.Duration
	log     *zap.Logger

	scheduler *gocron.Scheduler
	interval  time.Duration

	mu        sync.Mutex
	reachable bool
	watchers  map[int64]chan bool
	nextID    int64
}

func NewProbeMonitor(probe ProbeFunc, interval, timeout time.Duration, log *zap.Logger) *ProbeMonitor {
	return &ProbeMonitor{
		probe:    probe,
		timeout:  timeout,
		interval: interval,
		log:      log,
		watchers: make(map[int64]chan bool),
	}
}

// Start probes once immediately, then keeps probing on the configured
// interval until Stop.
func (m *ProbeMonitor) Start() error {
	m.runProbe()

	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(m.interval).Do(m.runProbe); err != nil {
		return err
	}
	s.StartAsync()
	m.scheduler = s
	return nil
}

// Stop cancels the probe schedule. Watchers stay subscribed; the flag just
// stops changing.
func (m *ProbeMonitor) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}

func (m *ProbeMonitor) runProbe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	m.setReachable(m.probe(ctx))
}

// setReachable records a probe result and broadcasts on transition.
func (m *ProbeMonitor) setReachable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v == m.reachable {
		return
	}
	m.reachable = v
	m.log.Info("reachability changed", zap.Bool("reachable", v))

	for _, ch := range m.watchers {
		select {
		case ch <- v:
		default:
			// Overflow: drop the oldest pair of opposite transitions so
			// the watcher still never sees two equal values in a row.
			for i := 0; i < 2; i++ {
				select {
				case <-ch:
				default:
				}
			}
			ch <- v
		}
	}
}

func (m *ProbeMonitor) IsReachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reachable
}

func (m *ProbeMonitor) Watch() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, transitionBuffer)
	ch <- m.reachable
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.watchers, id)
			close(ch)
		})
	}
	return ch, cancel
}

var _ Monitor = (*ProbeMonitor)(nil)
