package path

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runRecord struct {
	RunID    string   `json:"run_id" validate:"required"`
	Workers  int      `json:"workers" validate:"gte=1"`
	Assets   []string `json:"assets"`
	Failures int      `json:"failures"`
}

func TestWriteAndReadJSON(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	in := &runRecord{RunID: "2024_02_01_06_00_00", Workers: 4, Assets: []string{"bronze.sales_all", "gold.fact_daily"}}
	require.NoError(t, WriteJSON(fs, "logs/runs/pos/out.json", in))

	out := &runRecord{}
	require.NoError(t, ReadJSON(fs, "logs/runs/pos/out.json", out))
	assert.Equal(t, in, out)
}

func TestReadJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "valid file",
			content: `{"run_id": "r1", "workers": 2}`,
		},
		{
			name:    "validation fails",
			content: `{"run_id": "r1", "workers": 0}`,
			wantErr: "Workers",
		},
		{
			name:    "invalid json",
			content: `{"run_id": `,
			wantErr: "failed to parse JSON file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "state.json", []byte(tt.content), 0o644))

			err := ReadJSON(fs, "state.json", &runRecord{})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestReadJSON_MissingFile(t *testing.T) {
	t.Parallel()

	err := ReadJSON(afero.NewMemMapFs(), "missing.json", &runRecord{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.json")
}
