package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bruin-data/medallion/pkg/metrics"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/bruin-data/medallion/pkg/scheduler"
	"github.com/fatih/color"
	"go.uber.org/zap"
)

var (
	workerColors = []color.Attribute{
		color.FgBlue,
		color.FgMagenta,
		color.FgCyan,
		color.FgWhite,
		color.FgHiMagenta,
		color.FgHiBlue,
		color.FgHiCyan,
	}
	faint = color.New(color.Faint).SprintFunc()
)

type contextKey int

const (
	KeyPrinter contextKey = iota
	ContextLogger

	timeFormat = "2006-01-02 15:04:05"
)

// progress serializes the lines the workers print about the tasks they run.
type progress struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *progress) write(c *color.Color, line string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return c.Fprint(p.out, line)
}

// Concurrent runs the task instances the scheduler hands out on a fixed pool of workers.
type Concurrent struct {
	workers  []*worker
	progress *progress
}

func NewConcurrent(
	logger *zap.SugaredLogger,
	taskTypeMap map[pipeline.AssetType]Config,
	workerCount int,
	registry *metrics.Registry,
) *Concurrent {
	runner := &Sequential{TaskTypeMap: taskTypeMap}
	out := &progress{out: os.Stdout}

	workers := make([]*worker, workerCount)
	for i := range workerCount {
		id := fmt.Sprintf("worker-%d", i)
		workers[i] = &worker{
			id:       id,
			runner:   runner,
			logger:   logger.With("worker", id),
			metrics:  registry,
			color:    color.New(workerColors[i%len(workerColors)]),
			progress: out,
		}
	}

	return &Concurrent{workers: workers, progress: out}
}

// SetOutput redirects the progress lines of every worker.
func (c *Concurrent) SetOutput(w io.Writer) {
	c.progress.mu.Lock()
	defer c.progress.mu.Unlock()
	c.progress.out = w
}

func (c *Concurrent) Start(ctx context.Context, input chan scheduler.TaskInstance, result chan<- *scheduler.TaskExecutionResult) {
	for _, w := range c.workers {
		go w.run(ctx, input, result)
	}
}

type worker struct {
	id       string
	runner   *Sequential
	logger   *zap.SugaredLogger
	metrics  *metrics.Registry
	color    *color.Color
	progress *progress
}

func (w *worker) printf(format string, args ...any) {
	_, _ = w.progress.write(w.color, fmt.Sprintf("[%s] ", time.Now().Format(timeFormat))+fmt.Sprintf(format, args...))
}

func (w *worker) run(ctx context.Context, tasks <-chan scheduler.TaskInstance, results chan<- *scheduler.TaskExecutionResult) {
	for task := range tasks {
		results <- &scheduler.TaskExecutionResult{
			Instance: task,
			Error:    w.execute(ctx, task),
		}
	}
}

func (w *worker) execute(ctx context.Context, task scheduler.TaskInstance) error {
	task.MarkAs(scheduler.Running)
	w.printf("Starting: %s\n", task.GetHumanID())

	taskCtx := context.WithValue(ctx, KeyPrinter, &assetWriter{asset: task.GetAsset().Name, worker: w})
	taskCtx = context.WithValue(taskCtx, ContextLogger, w.logger)

	start := time.Now()
	err := w.runner.RunSingleTask(taskCtx, task)
	duration := time.Since(start)

	w.metrics.ObserveTask(task.GetAsset().Name, task.GetType().String(), err != nil, duration)

	outcome := "Finished"
	if err != nil {
		outcome = "Failed"
		w.logger.Debugw("task failed", "task", task.GetHumanReadableDescription(), "error", err)
	}
	w.printf("%s: %s %s\n", outcome, task.GetHumanID(), faint(fmt.Sprintf("(%s)", duration.Truncate(time.Millisecond))))

	return err
}

// assetWriter prefixes whatever an operator prints with the asset it is running.
type assetWriter struct {
	asset  string
	worker *worker
}

func (a *assetWriter) Write(p []byte) (int, error) {
	if _, err := a.worker.progress.write(a.worker.color, fmt.Sprintf("[%s] [%s] %s", time.Now().Format(timeFormat), a.asset, p)); err != nil {
		return 0, err
	}
	return len(p), nil
}
