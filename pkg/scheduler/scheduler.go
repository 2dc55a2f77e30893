package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bruin-data/medallion/pkg/logger"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/bruin-data/medallion/pkg/state"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type TaskInstanceStatus int

func (s TaskInstanceStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case UpstreamFailed:
		return "upstream_failed"
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

type TaskInstanceType int

func (s TaskInstanceType) String() string {
	switch s {
	case TaskInstanceTypeMain:
		return "main"
	case TaskInstanceTypeColumnCheck:
		return "column_check"
	case TaskInstanceTypeCustomCheck:
		return "custom_check"
	}
	return "unknown"
}

const (
	Pending TaskInstanceStatus = iota
	Queued
	Running
	Failed
	UpstreamFailed
	Succeeded
	Skipped
)

const (
	TaskInstanceTypeMain TaskInstanceType = iota
	TaskInstanceTypeColumnCheck
	TaskInstanceTypeCustomCheck
)

type TaskInstance interface {
	GetID() string
	GetAsset() *pipeline.Asset
	GetType() TaskInstanceType
	GetHumanID() string
	GetHumanReadableDescription() string

	GetStatus() TaskInstanceStatus
	MarkAs(status TaskInstanceStatus)
	Completed() bool
	Blocking() bool

	GetUpstream() []TaskInstance
	GetDownstream() []TaskInstance
	AddUpstream(t TaskInstance)
	AddDownstream(t TaskInstance)
}

// AssetInstance runs the transform of an asset. Its status is written by the scheduler loop and
// read by the workers, hence the lock.
type AssetInstance struct {
	ID      string
	HumanID string
	Asset   *pipeline.Asset

	mu         sync.RWMutex
	status     TaskInstanceStatus
	upstream   []TaskInstance
	downstream []TaskInstance
}

func newAssetInstance(asset *pipeline.Asset, humanID string) *AssetInstance {
	return &AssetInstance{
		ID:         uuid.New().String(),
		HumanID:    humanID,
		Asset:      asset,
		status:     Pending,
		upstream:   make([]TaskInstance, 0),
		downstream: make([]TaskInstance, 0),
	}
}

func (t *AssetInstance) GetID() string {
	return t.ID
}

func (t *AssetInstance) GetHumanID() string {
	return t.HumanID
}

func (t *AssetInstance) GetHumanReadableDescription() string {
	return t.Asset.Name
}

func (t *AssetInstance) GetStatus() TaskInstanceStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *AssetInstance) Completed() bool {
	switch t.GetStatus() {
	case Failed, Succeeded, UpstreamFailed, Skipped:
		return true
	}
	return false
}

func (t *AssetInstance) Blocking() bool {
	return true
}

func (t *AssetInstance) MarkAs(status TaskInstanceStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

func (t *AssetInstance) GetAsset() *pipeline.Asset {
	return t.Asset
}

func (t *AssetInstance) GetType() TaskInstanceType {
	return TaskInstanceTypeMain
}

func (t *AssetInstance) GetUpstream() []TaskInstance {
	return t.upstream
}

func (t *AssetInstance) GetDownstream() []TaskInstance {
	return t.downstream
}

func (t *AssetInstance) AddUpstream(task TaskInstance) {
	t.upstream = append(t.upstream, task)
}

func (t *AssetInstance) AddDownstream(task TaskInstance) {
	t.downstream = append(t.downstream, task)
}

// ColumnCheckInstance runs one check of one column against the asset's checked dataset.
type ColumnCheckInstance struct {
	*AssetInstance

	Column *pipeline.Column
	Check  *pipeline.ColumnCheck
}

func (t *ColumnCheckInstance) GetType() TaskInstanceType {
	return TaskInstanceTypeColumnCheck
}

func (t *ColumnCheckInstance) GetHumanReadableDescription() string {
	return fmt.Sprintf("%s - Column '%s' / Check '%s'", t.Asset.Name, t.Column.Name, t.Check.Name)
}

func (t *ColumnCheckInstance) Blocking() bool {
	return t.Check.Blocking.Bool()
}

type CustomCheckInstance struct {
	*AssetInstance

	Check *pipeline.CustomCheck
}

func (t *CustomCheckInstance) GetType() TaskInstanceType {
	return TaskInstanceTypeCustomCheck
}

func (t *CustomCheckInstance) GetHumanReadableDescription() string {
	return fmt.Sprintf("%s - Custom Check '%s'", t.Asset.Name, t.Check.Name)
}

func (t *CustomCheckInstance) Blocking() bool {
	return t.Check.Blocking.Bool()
}

type TaskExecutionResult struct {
	Instance TaskInstance
	Error    error
}

type InstancesByType map[TaskInstanceType][]TaskInstance

func (i InstancesByType) AddUpstreamByType(instanceType TaskInstanceType, upstream TaskInstance) {
	for _, instance := range i[instanceType] {
		instance.AddUpstream(upstream)
		upstream.AddDownstream(instance)
	}
}

type Scheduler struct {
	logger           logger.Logger
	taskScheduleLock sync.Mutex
	pipeline         *pipeline.Pipeline
	state            *state.State

	taskInstances []TaskInstance
	taskNameMap   map[string]InstancesByType

	WorkQueue chan TaskInstance
	Results   chan *TaskExecutionResult
}

func NewScheduler(logger logger.Logger, p *pipeline.Pipeline, st *state.State) *Scheduler {
	instances := make([]TaskInstance, 0, len(p.Assets))
	for _, asset := range p.Assets {
		instances = append(instances, newAssetInstance(asset, asset.Name))

		for ci := range asset.Columns {
			col := &asset.Columns[ci]
			for ki := range col.Checks {
				check := &col.Checks[ki]
				instances = append(instances, &ColumnCheckInstance{
					AssetInstance: newAssetInstance(asset, fmt.Sprintf("%s:%s:%s", asset.Name, col.Name, check.Name)),
					Column:        col,
					Check:         check,
				})
			}
		}

		for ki := range asset.CustomChecks {
			check := &asset.CustomChecks[ki]
			humanIDName := strings.ReplaceAll(strings.ToLower(check.Name), " ", "_")
			instances = append(instances, &CustomCheckInstance{
				AssetInstance: newAssetInstance(asset, fmt.Sprintf("%s:custom-check:%s", asset.Name, humanIDName)),
				Check:         check,
			})
		}
	}

	s := &Scheduler{
		logger:        logger,
		pipeline:      p,
		taskInstances: instances,
		state:         st,
		WorkQueue:     make(chan TaskInstance, max(100, len(instances))),
		Results:       make(chan *TaskExecutionResult),
	}
	s.initialize()

	return s
}

func (s *Scheduler) initialize() {
	s.constructTaskNameMap()
	s.constructInstanceRelationships()
}

func (s *Scheduler) constructTaskNameMap() {
	s.taskNameMap = make(map[string]InstancesByType)
	for _, ti := range s.taskInstances {
		assetName := ti.GetAsset().Name
		if _, ok := s.taskNameMap[assetName]; !ok {
			s.taskNameMap[assetName] = InstancesByType{}
		}

		s.taskNameMap[assetName][ti.GetType()] = append(s.taskNameMap[assetName][ti.GetType()], ti)
	}
}

// constructInstanceRelationships makes checks run after their asset and makes an asset wait for
// its upstream assets and their blocking checks.
func (s *Scheduler) constructInstanceRelationships() {
	for _, ti := range s.taskInstances {
		if ti.GetType() != TaskInstanceTypeMain {
			continue
		}

		assetName := ti.GetAsset().Name
		s.taskNameMap[assetName].AddUpstreamByType(TaskInstanceTypeColumnCheck, ti)
		s.taskNameMap[assetName].AddUpstreamByType(TaskInstanceTypeCustomCheck, ti)

		for _, dep := range ti.GetAsset().GetUpstream() {
			upstreamInstances, ok := s.taskNameMap[dep.Name]
			if !ok {
				continue
			}

			for _, instances := range upstreamInstances {
				for _, upstream := range instances {
					if !upstream.Blocking() {
						continue
					}

					ti.AddUpstream(upstream)
					upstream.AddDownstream(ti)
				}
			}
		}
	}
}

func (s *Scheduler) InstanceCount() int {
	return len(s.taskInstances)
}

func (s *Scheduler) InstanceCountByStatus(status TaskInstanceStatus) int {
	return len(s.GetTaskInstancesByStatus(status))
}

// Summary counts the instances per status.
func (s *Scheduler) Summary() map[TaskInstanceStatus]int {
	return lo.CountValuesBy(s.taskInstances, func(ti TaskInstance) TaskInstanceStatus { return ti.GetStatus() })
}

func (s *Scheduler) GetTaskInstancesByStatus(status TaskInstanceStatus) []TaskInstance {
	return lo.Filter(s.taskInstances, func(ti TaskInstance, _ int) bool { return ti.GetStatus() == status })
}

func (s *Scheduler) MarkAll(status TaskInstanceStatus) {
	for _, instance := range s.taskInstances {
		instance.MarkAs(status)
	}
}

func (s *Scheduler) MarkAsset(asset *pipeline.Asset, status TaskInstanceStatus, downstream bool) {
	for _, instances := range s.taskNameMap[asset.Name] {
		for _, i := range instances {
			s.MarkTaskInstance(i, status, downstream)
		}
	}
}

func (s *Scheduler) MarkPendingInstancesByType(instanceType TaskInstanceType, status TaskInstanceStatus) {
	for _, instance := range s.taskInstances {
		if instance.GetStatus() != Pending || instance.GetType() != instanceType {
			continue
		}

		s.MarkTaskInstance(instance, status, false)
	}
}

func (s *Scheduler) MarkByTag(tag string, status TaskInstanceStatus, downstream bool) {
	for _, instance := range s.taskInstances {
		if !instance.GetAsset().HasTag(tag) {
			continue
		}

		s.MarkTaskInstance(instance, status, downstream)
	}
}

// SelectByTags restricts the run to the assets carrying any of the included tags, when there are
// some, and then skips the assets carrying any of the excluded tags. It returns the number of
// instances left pending.
func (s *Scheduler) SelectByTags(include, exclude []string) int {
	if len(include) > 0 {
		s.MarkAll(Skipped)
		for _, tag := range include {
			s.MarkByTag(tag, Pending, false)
		}
	}

	for _, tag := range exclude {
		s.MarkByTag(tag, Skipped, false)
	}

	return s.InstanceCountByStatus(Pending)
}

func (s *Scheduler) MarkTaskInstance(instance TaskInstance, status TaskInstanceStatus, downstream bool) {
	instance.MarkAs(status)
	if !downstream {
		return
	}

	for _, d := range instance.GetDownstream() {
		s.MarkTaskInstance(d, status, downstream)
	}
}

func (s *Scheduler) MarkTaskInstanceIfNotSkipped(instance TaskInstance, status TaskInstanceStatus, markDownstream bool) {
	if instance.GetStatus() == Skipped {
		return
	}
	instance.MarkAs(status)
	if !markDownstream {
		return
	}

	for _, d := range instance.GetDownstream() {
		s.MarkTaskInstanceIfNotSkipped(d, status, markDownstream)
	}
}

func (s *Scheduler) markTaskInstanceFailedWithDownstream(instance TaskInstance) {
	s.MarkTaskInstanceIfNotSkipped(instance, UpstreamFailed, true)
	s.MarkTaskInstanceIfNotSkipped(instance, Failed, false)
}

// Run drives the scheduler loop until every instance completed or the context is done. Workers
// consume WorkQueue and report on Results.
func (s *Scheduler) Run(ctx context.Context) []*TaskExecutionResult {
	results := make([]*TaskExecutionResult, 0)
	if s.InstanceCountByStatus(Pending) == 0 {
		s.logger.Debug("no tasks to run, finishing the scheduler loop")
		return nil
	}

	go s.Kickstart()

	s.logger.Debug("started the scheduler loop")
	for {
		select {
		case <-ctx.Done():
			s.taskScheduleLock.Lock()
			close(s.WorkQueue)
			s.taskScheduleLock.Unlock()
			s.saveState(results)
			return results
		case result := <-s.Results:
			s.logger.Debugw("received task result", "task", result.Instance.GetHumanID(), "failed", result.Error != nil)
			results = append(results, result)
			if s.Tick(result) {
				s.logger.Debug("pipeline has completed, finishing the scheduler loop")
				s.saveState(results)
				return results
			}
		}
	}
}

func (s *Scheduler) saveState(results []*TaskExecutionResult) {
	if s.state == nil {
		return
	}

	states := make([]*state.AssetInstance, 0, len(results))
	for _, result := range results {
		asset := result.Instance.GetAsset()
		instance := &state.AssetInstance{
			ID:       result.Instance.GetID(),
			HumanID:  result.Instance.GetHumanID(),
			Name:     asset.Name,
			Type:     result.Instance.GetType().String(),
			Status:   result.Instance.GetStatus().String(),
			Upstream: lo.Map(asset.Upstreams, func(u pipeline.Upstream, _ int) string { return u.Value }),
		}
		if result.Error != nil {
			instance.Error = result.Error.Error()
		}
		states = append(states, instance)
	}
	s.state.SetState(states)
}

// Tick marks an iteration of the scheduler loop. It is called when a result is received.
// The results are mainly fed from a channel, but Tick allows simulating scheduler loops, which
// the tests rely on.
func (s *Scheduler) Tick(result *TaskExecutionResult) bool {
	s.taskScheduleLock.Lock()
	defer s.taskScheduleLock.Unlock()

	if result.Instance.GetStatus() != Skipped {
		s.MarkTaskInstance(result.Instance, Succeeded, false)
	}
	if result.Error != nil {
		s.markTaskInstanceFailedWithDownstream(result.Instance)
	}

	if s.hasPipelineFinished() {
		close(s.WorkQueue)
		return true
	}

	for _, task := range s.getScheduleableTasks() {
		task.MarkAs(Queued)
		s.WorkQueue <- task
	}

	return false
}

// Kickstart initiates the scheduler process by sending a "start" task for the processing.
func (s *Scheduler) Kickstart() {
	s.Tick(&TaskExecutionResult{
		Instance: &AssetInstance{
			Asset:  &pipeline.Asset{Name: "start"},
			status: Succeeded,
		},
	})
}

func (s *Scheduler) getScheduleableTasks() []TaskInstance {
	return lo.Filter(s.taskInstances, func(task TaskInstance, _ int) bool {
		return task.GetStatus() == Pending && s.allDependenciesCompletedForTask(task)
	})
}

func (s *Scheduler) allDependenciesCompletedForTask(t TaskInstance) bool {
	for _, upstream := range t.GetUpstream() {
		switch upstream.GetStatus() {
		case Pending, Queued, Running:
			return false
		}
	}

	return true
}

func (s *Scheduler) hasPipelineFinished() bool {
	for _, task := range s.taskInstances {
		if !task.Completed() {
			return false
		}
	}

	return true
}
