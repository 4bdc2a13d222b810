package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spachava753/mixwatch/internal/assets"
	"github.com/spachava753/mixwatch/internal/config"
	"github.com/spachava753/mixwatch/internal/models"
	"github.com/spachava753/mixwatch/internal/task"
)

// NewTaskFunc creates a task from its config entry.
type NewTaskFunc func(spec models.TaskSpec) (task.Task, error)

// outputLister is implemented by tasks that can report their outputs
// safely while they are being watched.
type outputLister interface {
	Outputs() []models.File
}

// DefaultTaskFunc builds the built-in task types.
func DefaultTaskFunc(spec models.TaskSpec) (task.Task, error) {
	switch spec.Type {
	case models.TaskTypeCopy:
		return assets.NewCopyTask(assets.CopyConfig{Sources: spec.Sources, Dest: spec.Output}), nil
	case models.TaskTypeConcat:
		return assets.NewConcatTask(assets.ConcatConfig{Sources: spec.Sources, Output: spec.Output}), nil
	default:
		return nil, fmt.Errorf("unsupported task type: %s", spec.Type)
	}
}

type pipelineTask struct {
	spec models.TaskSpec
	task task.Task
}

// Pipeline runs and watches the tasks of a pipeline config.
type Pipeline struct {
	cfg       models.PipelineConfig
	tasks     []pipelineTask
	watchOpts []task.WatchOption

	manifestMu sync.Mutex
}

// NewPipeline creates a task for every entry in cfg. Extra watch options
// are passed to every task when watching.
func NewPipeline(cfg models.PipelineConfig, newTask NewTaskFunc, watchOpts ...task.WatchOption) (*Pipeline, error) {
	p := &Pipeline{
		cfg:       cfg,
		watchOpts: watchOpts,
	}

	for _, spec := range cfg.Tasks {
		t, err := newTask(spec)
		if err != nil {
			return nil, fmt.Errorf("creating task %s: %w", spec.Name, err)
		}
		p.tasks = append(p.tasks, pipelineTask{spec: spec, task: t})
	}

	return p, nil
}

// Tasks returns the pipeline's tasks in config order.
func (p *Pipeline) Tasks() []task.Task {
	out := make([]task.Task, len(p.tasks))
	for i, pt := range p.tasks {
		out[i] = pt.task
	}
	return out
}

// Run runs every task once. A failing task does not stop the others.
func (p *Pipeline) Run(ctx context.Context) (*models.PipelineResult, error) {
	startTime := time.Now()

	concurrency := p.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*models.TaskResult, len(p.tasks))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, pt := range p.tasks {
		i, pt := i, pt
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.runTask(ctx, pt)
			return nil
		})
	}
	_ = g.Wait()

	name := startTime.Format("2006-01-02__15-04-05")
	if p.cfg.Name != nil {
		name = *p.cfg.Name
	}

	pr := &models.PipelineResult{
		Name:      name,
		StartedAt: startTime,
		EndedAt:   time.Now(),
		Results:   make([]models.TaskResult, 0, len(results)),
	}
	pr.TotalDurationSec = pr.EndedAt.Sub(pr.StartedAt).Seconds()

	for _, r := range results {
		if r == nil {
			pr.Cancelled = true
			continue
		}
		pr.TotalTasks++
		if r.Error != nil {
			pr.FailedTasks++
		} else {
			pr.SucceededTasks++
		}
		pr.Results = append(pr.Results, *r)
	}

	if err := p.writeManifest(); err != nil {
		return pr, err
	}

	return pr, nil
}

func (p *Pipeline) runTask(ctx context.Context, pt pipelineTask) *models.TaskResult {
	start := time.Now()
	slog.Debug("running task", "task", pt.spec.Name, "type", pt.spec.Type)

	result := &models.TaskResult{
		Name: pt.spec.Name,
		Type: pt.spec.Type,
	}

	err := pt.task.Run(ctx)
	result.DurationSec = time.Since(start).Seconds()

	if err != nil {
		errType := models.ErrTaskRunFailed
		if errors.Is(err, task.ErrAbstractMethod) {
			errType = models.ErrInternalError
		}
		result.Error = &models.TaskError{Type: errType, Message: err.Error()}
		slog.Error("task failed", "task", pt.spec.Name, "error", err)
		return result
	}

	for _, f := range outputsOf(pt.task) {
		result.Assets = append(result.Assets, f.Path)
	}
	slog.Info("task finished", "task", pt.spec.Name, "assets", len(result.Assets), "duration", time.Since(start))
	return result
}

// Watch watches every task until ctx is done or a task fails while handling
// a change. All tasks are stopped before it returns.
func (p *Pipeline) Watch(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, pt := range p.tasks {
		opts := append([]task.WatchOption{
			task.WithPolling(p.cfg.Watch.UsePolling),
			task.WithPollInterval(p.cfg.Watch.PollInterval()),
			task.WithOnFileChange(p.onRebuilt(pt.spec.Name)),
		}, p.watchOpts...)

		if err := task.Watch(gctx, pt.task, opts...); err != nil {
			p.stopAll()
			return fmt.Errorf("watching task %s: %w", pt.spec.Name, err)
		}
		slog.Info("watching task", "task", pt.spec.Name, "files", len(pt.spec.Sources), "polling", p.cfg.Watch.UsePolling)
	}

	for _, pt := range p.tasks {
		pt := pt
		g.Go(func() error {
			if err := task.Wait(pt.task); err != nil {
				return fmt.Errorf("task %s: %w", pt.spec.Name, err)
			}
			return nil
		})
	}

	err := g.Wait()
	p.stopAll()
	return err
}

func (p *Pipeline) stopAll() {
	for _, pt := range p.tasks {
		if err := task.Stop(pt.task); err != nil {
			slog.Warn("stopping task", "task", pt.spec.Name, "error", err)
		}
	}
}

func (p *Pipeline) onRebuilt(name string) task.OnFileChange {
	return func(_ context.Context, _ task.Task) {
		slog.Info("task rebuilt", "task", name)
		if err := p.writeManifest(); err != nil {
			slog.Error("writing manifest", "error", err)
		}
	}
}

func (p *Pipeline) writeManifest() error {
	if p.cfg.ManifestPath == "" {
		return nil
	}

	var files []models.File
	for _, pt := range p.tasks {
		files = append(files, outputsOf(pt.task)...)
	}

	p.manifestMu.Lock()
	defer p.manifestMu.Unlock()
	if err := WriteManifest(p.cfg.ManifestPath, files); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

func outputsOf(t task.Task) []models.File {
	if ol, ok := t.(outputLister); ok {
		return ol.Outputs()
	}
	return nil
}

// Options controls RunFromConfig.
type Options struct {
	// Watch keeps watching all tasks after the initial run.
	Watch bool

	// ForcePolling enables polling even if the config does not.
	ForcePolling bool
}

// RunPipeline runs cfg once and, if requested, watches it until ctx is done.
func RunPipeline(ctx context.Context, cfg models.PipelineConfig, opts Options) (*models.PipelineResult, error) {
	if opts.ForcePolling {
		cfg.Watch.UsePolling = true
	}

	pipeline, err := NewPipeline(cfg, DefaultTaskFunc)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	result, err := pipeline.Run(ctx)
	if err != nil || !opts.Watch {
		return result, err
	}

	if err := pipeline.Watch(ctx); err != nil {
		return result, fmt.Errorf("watching pipeline: %w", err)
	}
	return result, nil
}

// RunFromConfig loads a pipeline config file and runs it.
func RunFromConfig(ctx context.Context, configPath string, opts Options) (*models.PipelineResult, error) {
	cfg, err := config.LoadPipelineConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading pipeline config: %w", err)
	}
	return RunPipeline(ctx, cfg, opts)
}
