package hotkeys

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_TopOrdering(t *testing.T) {
	tr := New(10, 0)
	defer tr.Close()

	for i := 0; i < 5; i++ {
		tr.Record("hot")
	}
	for i := 0; i < 3; i++ {
		tr.Record("warm")
	}
	tr.Record("cold")

	top := tr.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, Entry{Key: "hot", Count: 5}, top[0])
	assert.Equal(t, Entry{Key: "warm", Count: 3}, top[1])
}

func TestTracker_LimitDropsUnseenKeys(t *testing.T) {
	tr := New(2, 0)
	defer tr.Close()

	tr.Record("a")
	tr.Record("b")
	tr.Record("c") // table full, dropped
	tr.Record("a") // existing keys still count

	assert.Equal(t, 2, tr.Size())
	top := tr.Top(0)
	assert.Equal(t, "a", top[0].Key)
	assert.Equal(t, int64(2), top[0].Count)
}

func TestTracker_Reset(t *testing.T) {
	tr := New(10, 0)
	defer tr.Close()

	tr.Record("k")
	tr.Reset()
	assert.Zero(t, tr.Size())
	assert.Empty(t, tr.Top(5))
}

func TestTracker_Decay(t *testing.T) {
	tr := New(10, 20*time.Millisecond)
	defer tr.Close()

	tr.Record("once")
	assert.Eventually(t, func() bool {
		return tr.Size() == 0
	}, time.Second, 10*time.Millisecond, "single-count key should decay away")
}

func TestTracker_Concurrent(t *testing.T) {
	tr := New(100, 0)
	defer tr.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Record(fmt.Sprintf("k%d", i%10))
		}(i)
	}
	wg.Wait()

	total := int64(0)
	for _, e := range tr.Top(0) {
		total += e.Count
	}
	assert.Equal(t, int64(50), total)
}
