package executor

import (
	"context"
	"testing"

	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/bruin-data/medallion/pkg/scheduler"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOperator struct {
	mock.Mock
}

func (d *mockOperator) Run(ctx context.Context, ti scheduler.TaskInstance) error {
	args := d.Called(ctx, ti)
	return args.Error(0)
}

func TestSequential_RunSingleTask(t *testing.T) {
	t.Parallel()

	asset := &pipeline.Asset{
		Name: "silver.sales_daily",
		Type: pipeline.AssetTypeSilver,
	}
	instance := &scheduler.AssetInstance{
		Asset: asset,
	}

	t.Run("simple instance is executed successfully", func(t *testing.T) {
		t.Parallel()

		op := new(mockOperator)
		op.On("Run", mock.Anything, instance).Return(nil)

		l := Sequential{
			TaskTypeMap: map[pipeline.AssetType]Config{
				pipeline.AssetTypeSilver: {scheduler.TaskInstanceTypeMain: op},
			},
		}

		require.NoError(t, l.RunSingleTask(context.Background(), instance))
		op.AssertExpectations(t)
	})

	t.Run("unknown asset type is rejected", func(t *testing.T) {
		t.Parallel()

		op := new(mockOperator)
		l := Sequential{
			TaskTypeMap: map[pipeline.AssetType]Config{
				pipeline.AssetTypeGold: {scheduler.TaskInstanceTypeMain: op},
			},
		}

		err := l.RunSingleTask(context.Background(), instance)
		require.Error(t, err)
		require.Contains(t, err.Error(), "silver.build")
		op.AssertExpectations(t)
	})

	t.Run("unknown instance type is rejected", func(t *testing.T) {
		t.Parallel()

		op := new(mockOperator)
		l := Sequential{
			TaskTypeMap: map[pipeline.AssetType]Config{
				pipeline.AssetTypeSilver: {scheduler.TaskInstanceTypeColumnCheck: op},
			},
		}

		require.Error(t, l.RunSingleTask(context.Background(), instance))
		op.AssertExpectations(t)
	})

	t.Run("operator errors are returned", func(t *testing.T) {
		t.Parallel()

		op := new(mockOperator)
		op.On("Run", mock.Anything, instance).Return(errors.New("some error occurred"))

		l := Sequential{
			TaskTypeMap: map[pipeline.AssetType]Config{
				pipeline.AssetTypeSilver: {scheduler.TaskInstanceTypeMain: op},
			},
		}

		require.Error(t, l.RunSingleTask(context.Background(), instance))
		op.AssertExpectations(t)
	})
}
