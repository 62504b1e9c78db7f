// Package pool runs independent evaluation jobs over a bounded worker set.
// The temporal core is single-threaded by design; callers parallelize over
// disjoint inputs, and this pool is the harness the CLI uses to do that.
package pool

import (
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"

	utillog "github.com/tempora-db/tempora/pkg/util/log"
)

var (
	metricQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tempora",
		Name:      "work_queue_length",
		Help:      "Current length of the work queue.",
	})

	metricQueueMax = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tempora",
		Name:      "work_queue_max",
		Help:      "Maximum number of items in the work queue.",
	})
)

// JobFunc evaluates one payload.
type JobFunc func(payload interface{}) (interface{}, error)

type job struct {
	index   int
	payload interface{}
	fn      JobFunc

	wg      *sync.WaitGroup
	results []interface{}
	err     *atomic.Error
}

type Config struct {
	MaxWorkers int `yaml:"max_workers"`
	QueueDepth int `yaml:"queue_depth"`
}

func defaultConfig() *Config {
	return &Config{
		MaxWorkers: 4,
		QueueDepth: 256,
	}
}

type Pool struct {
	cfg     *Config
	size    *atomic.Int32
	logger  log.Logger
	jobErrs *utillog.RateLimitedLogger

	workQueue chan *job
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewPool(cfg *Config, logger log.Logger) *Pool {
	if cfg == nil {
		cfg = defaultConfig()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	q := make(chan *job, cfg.QueueDepth)
	p := &Pool{
		cfg:       cfg,
		workQueue: q,
		size:      atomic.NewInt32(0),
		logger:    logger,
		jobErrs:   utillog.NewRateLimitedLogger(10, level.Error(logger)),
		stopCh:    make(chan struct{}),
	}

	for i := 0; i < cfg.MaxWorkers; i++ {
		go p.worker(q)
	}

	metricQueueMax.Set(float64(cfg.QueueDepth))

	return p
}

// RunJobs evaluates fn over every payload and returns the results in
// payload order. The first job error aborts the batch.
func (p *Pool) RunJobs(payloads []interface{}, fn JobFunc) ([]interface{}, error) {
	totalJobs := len(payloads)

	// sanity check before we even attempt to start adding jobs
	if int(p.size.Load())+totalJobs > p.cfg.QueueDepth {
		return nil, fmt.Errorf("queue doesn't have room for %d jobs", totalJobs)
	}

	results := make([]interface{}, totalJobs)
	wg := &sync.WaitGroup{}
	errA := atomic.NewError(nil)

	wg.Add(totalJobs)
	for i, payload := range payloads {
		j := &job{
			index:   i,
			payload: payload,
			fn:      fn,
			wg:      wg,
			results: results,
			err:     errA,
		}
		select {
		case p.workQueue <- j:
			p.size.Inc()
			metricQueueLength.Set(float64(p.size.Load()))
		default:
			wg.Done()
			errA.Store(fmt.Errorf("failed to add a job to work queue"))
		}
	}

	wg.Wait()
	if err := errA.Load(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

func (p *Pool) worker(q <-chan *job) {
	for {
		select {
		case <-p.stopCh:
			return
		case j, ok := <-q:
			if !ok {
				return
			}
			p.size.Dec()
			metricQueueLength.Set(float64(p.size.Load()))

			if j.err.Load() != nil {
				// a sibling already failed; drain without evaluating
				j.wg.Done()
				continue
			}
			res, err := j.fn(j.payload)
			if err != nil {
				p.jobErrs.Log("msg", "job failed", "err", err)
				j.err.Store(err)
			} else {
				j.results[j.index] = res
			}
			j.wg.Done()
		}
	}
}
