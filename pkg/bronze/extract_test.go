package bronze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	item := map[string]any{"ArtikelNummer": "1070", "ArtikelPreis": "2.99"}
	fields := []string{"ArtikelNummer", "ArtikelPreis"}

	tests := []struct {
		name    string
		payload any
		want    []map[string]any
		wantOK  bool
	}{
		{
			name:    "list",
			payload: []any{item},
			want:    []map[string]any{item},
			wantOK:  true,
		},
		{
			name:    "record",
			payload: item,
			want:    []map[string]any{item},
			wantOK:  true,
		},
		{
			name:    "wrapped list",
			payload: map[string]any{"Verkaufspreise": []any{item}},
			want:    []map[string]any{item},
			wantOK:  true,
		},
		{
			name:    "doubly wrapped list",
			payload: map[string]any{"Verkaufspreise": map[string]any{"Verkaufspreise": []any{item}}},
			want:    []map[string]any{item},
			wantOK:  true,
		},
		{
			name:    "stringified wrapper",
			payload: `{"Verkaufspreise": {"Verkaufspreise": [{"ArtikelNummer": "1070", "ArtikelPreis": "2.99"}]}}`,
			want:    []map[string]any{item},
			wantOK:  true,
		},
		{
			name: "wrapped deeper than the limit",
			payload: map[string]any{"Verkaufspreise": map[string]any{"Verkaufspreise": map[string]any{
				"Verkaufspreise": map[string]any{"Verkaufspreise": []any{item}},
			}}},
		},
		{
			name:    "unknown wrapper",
			payload: map[string]any{"Preise": []any{item}},
		},
		{
			name:    "plain string",
			payload: "not json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := extract(tt.payload, "Verkaufspreise", fields, 0)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
