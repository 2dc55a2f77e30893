package executor

import (
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/bruin-data/medallion/pkg/scheduler"
)

type Config map[scheduler.TaskInstanceType]Operator

var tableAssetTypes = []pipeline.AssetType{
	pipeline.AssetTypeNormalize,
	pipeline.AssetTypeMerge,
	pipeline.AssetTypeSilver,
	pipeline.AssetTypeGold,
	pipeline.AssetTypeView,
}

// DefaultExecutors routes every asset type to the operators running it. Quality logs produce text
// artifacts only, so they carry no checks.
func DefaultExecutors(transform, columnCheck, customCheck Operator) map[pipeline.AssetType]Config {
	executors := map[pipeline.AssetType]Config{
		pipeline.AssetTypeLog: {
			scheduler.TaskInstanceTypeMain: transform,
		},
		pipeline.AssetTypeEmpty: {
			scheduler.TaskInstanceTypeMain: skipOperator{},
		},
	}

	for _, t := range tableAssetTypes {
		executors[t] = Config{
			scheduler.TaskInstanceTypeMain:        transform,
			scheduler.TaskInstanceTypeColumnCheck: columnCheck,
			scheduler.TaskInstanceTypeCustomCheck: customCheck,
		}
	}

	return executors
}
