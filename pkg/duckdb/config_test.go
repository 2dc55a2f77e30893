package duck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ToDBConnectionURI(t *testing.T) {
	t.Parallel()
	c := Config{
		Path: "/some/path/warehouse.duckdb",
	}

	assert.Equal(t, "/some/path/warehouse.duckdb", c.ToDBConnectionURI())
}
