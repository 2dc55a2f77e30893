package executor

import (
	"context"

	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/bruin-data/medallion/pkg/scheduler"
	"github.com/pkg/errors"
)

type Operator interface {
	Run(ctx context.Context, ti scheduler.TaskInstance) error
}

// skipOperator runs the grouping assets that have nothing to compute.
type skipOperator struct{}

func (skipOperator) Run(context.Context, scheduler.TaskInstance) error {
	return nil
}

// Sequential runs a single task instance with the operator registered for its asset and
// instance type.
type Sequential struct {
	TaskTypeMap map[pipeline.AssetType]Config
}

func (s Sequential) operatorFor(instance scheduler.TaskInstance) (Operator, error) {
	asset := instance.GetAsset()

	operators, ok := s.TaskTypeMap[asset.Type]
	if !ok {
		return nil, errors.Errorf("asset '%s' cannot be run, no operator is configured for the asset type '%s'", asset.Name, asset.Type)
	}

	op, ok := operators[instance.GetType()]
	if !ok {
		return nil, errors.Errorf("asset '%s' cannot be run, no operator is configured for '%s' instances", asset.Name, instance.GetType())
	}
	return op, nil
}

func (s Sequential) RunSingleTask(ctx context.Context, instance scheduler.TaskInstance) error {
	op, err := s.operatorFor(instance)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "'%s' was not started", instance.GetHumanID())
	}

	return op.Run(ctx, instance)
}
