package duck

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockDatabase_SerializesSamePath(t *testing.T) {
	t.Parallel()

	path := "lock-test-same.duckdb"
	counter := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			LockDatabase(path)
			defer UnlockDatabase(path)
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestLockDatabase_PathsAreIndependent(t *testing.T) {
	t.Parallel()

	LockDatabase("lock-test-a.duckdb")
	defer UnlockDatabase("lock-test-a.duckdb")

	done := make(chan struct{})
	go func() {
		LockDatabase("lock-test-b.duckdb")
		UnlockDatabase("lock-test-b.duckdb")
		close(done)
	}()
	<-done
}
