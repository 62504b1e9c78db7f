package pool

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResults(t *testing.T) {
	p := NewPool(&Config{MaxWorkers: 4, QueueDepth: 64}, nil)
	defer p.Shutdown()

	payloads := make([]interface{}, 10)
	for i := range payloads {
		payloads[i] = i
	}

	results, err := p.RunJobs(payloads, func(payload interface{}) (interface{}, error) {
		return payload.(int) * 2, nil
	})
	require.NoError(t, err)
	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, i*2, r.(int))
	}
}

func TestError(t *testing.T) {
	p := NewPool(&Config{MaxWorkers: 2, QueueDepth: 16}, nil)
	defer p.Shutdown()

	_, err := p.RunJobs([]interface{}{1, 2, 3}, func(payload interface{}) (interface{}, error) {
		if payload.(int) == 2 {
			return nil, fmt.Errorf("boom")
		}
		return payload, nil
	})
	require.Error(t, err)
}

func TestQueueFull(t *testing.T) {
	p := NewPool(&Config{MaxWorkers: 1, QueueDepth: 2}, nil)
	defer p.Shutdown()

	payloads := make([]interface{}, 10)
	_, err := p.RunJobs(payloads, func(payload interface{}) (interface{}, error) {
		return nil, nil
	})
	require.Error(t, err)
}

func TestAllJobsRun(t *testing.T) {
	p := NewPool(&Config{MaxWorkers: 8, QueueDepth: 128}, nil)
	defer p.Shutdown()

	var count int64
	payloads := make([]interface{}, 100)
	_, err := p.RunJobs(payloads, func(interface{}) (interface{}, error) {
		atomic.AddInt64(&count, 1)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), atomic.LoadInt64(&count))
}
