// internal/common/camunda/worker.go
package camunda

import (
	"sync"
	"time"

	"broker-backoffice/internal/common/config"
	"broker-backoffice/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// WorkerGroup owns the job workers opened by the process.
type WorkerGroup struct {
	client  zbc.Client
	logger  logger.Logger
	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkerGroup(client zbc.Client, log logger.Logger) *WorkerGroup {
	return &WorkerGroup{
		client:  client,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// Start opens a job worker for taskType unless cfg disables it.
func (g *WorkerGroup) Start(taskType string, cfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !cfg.Enabled {
		g.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	jobWorker := g.client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(time.Duration(cfg.Timeout) * time.Millisecond).
		Open()

	g.mu.Lock()
	g.workers[taskType] = jobWorker
	g.mu.Unlock()

	g.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": cfg.MaxJobsActive,
		"timeoutMs":     cfg.Timeout,
	})
	return true
}

// TaskTypes lists the running workers.
func (g *WorkerGroup) TaskTypes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.workers))
	for t := range g.workers {
		out = append(out, t)
	}
	return out
}

// Close stops every worker and waits for in-flight jobs.
func (g *WorkerGroup) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for taskType, w := range g.workers {
		w.Close()
		w.AwaitClose()
		g.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
	g.workers = make(map[string]worker.JobWorker)
}
