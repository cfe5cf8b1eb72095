package input

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	zbxpkg "zte.szuro.net/pkg/zbx"
)

var (
	bufferSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zte_buffer_size",
		Help: "Size of internal ZTE history buffer",
	})
	bufferUsageGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zte_buffer_usage",
		Help: "Values in internal ZTE history buffer",
	})
)

// Consumer receives batches of history values from a Subject.
type Consumer interface {
	GetName() string
	Consume(history []zbxpkg.History)
}

type ConsumerRegistry map[string]Consumer

// Subject batches history from its funnel and hands each batch to every
// registered consumer. A batch is flushed when it is full or when the flush
// interval passes, whichever comes first.
type Subject struct {
	mu            sync.RWMutex
	consumers     ConsumerRegistry
	values        []zbxpkg.History
	buffer        int
	flushInterval time.Duration
	Funnel        chan zbxpkg.History
	done          chan struct{}
}

func NewSubject(size int, flushInterval time.Duration) *Subject {
	s := &Subject{
		consumers:     make(ConsumerRegistry),
		Funnel:        make(chan zbxpkg.History, size*2),
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
	s.SetBuffer(size)
	return s
}

func (s *Subject) SetBuffer(size int) {
	if size <= 0 {
		size = 1
	}
	s.buffer = size
	bufferSizeGauge.Set(float64(size))
	bufferUsageGauge.Set(0)
}

func (s *Subject) Register(consumer Consumer) {
	//nil consumer check
	if consumer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers[consumer.GetName()] = consumer
}

func (s *Subject) Deregister(consumer Consumer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.consumers, consumer.GetName())
}

// NotifyAll hands the current batch to every consumer. Consumers run
// synchronously so values of one item reach them in order.
func (s *Subject) NotifyAll() {
	if len(s.values) == 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.consumers {
		c.Consume(s.values)
	}
}

func (s *Subject) flush() {
	s.NotifyAll()
	s.values = nil
	bufferUsageGauge.Set(0)
}

// AcceptValues runs until the funnel is closed, then flushes what is left.
func (s *Subject) AcceptValues() {
	defer close(s.done)

	var tick <-chan time.Time
	if s.flushInterval > 0 {
		ticker := time.NewTicker(s.flushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case h, ok := <-s.Funnel:
			if !ok {
				s.flush()
				return
			}
			s.values = append(s.values, h)
			usage := len(s.values)
			bufferUsageGauge.Set(float64(usage))
			if usage >= s.buffer {
				s.flush()
			}
		case <-tick:
			s.flush()
		}
	}
}

// Close stops accepting values and waits for the last batch to be delivered.
func (s *Subject) Close() {
	close(s.Funnel)
	s.Wait()
}

// Wait blocks until AcceptValues returns.
func (s *Subject) Wait() {
	<-s.done
}
