package signal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateNotifiesInOrder(t *testing.T) {
	s := New(0)

	var got []string
	s.Subscribe(func(v int) { got = append(got, "first") })
	s.Subscribe(func(v int) { got = append(got, "second") })

	s.Set(1)

	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, 1, s.Load())
}

func TestUnchangedUpdateIsSilent(t *testing.T) {
	s := New("a")
	calls := 0
	s.Subscribe(func(string) { calls++ })

	changed := s.Update(func(cur string) (string, bool) { return cur, false })

	assert.False(t, changed)
	assert.Zero(t, calls)
}

func TestCancelStopsNotifications(t *testing.T) {
	s := New(0)
	calls := 0
	cancel := s.Subscribe(func(int) { calls++ })

	s.Set(1)
	cancel()
	cancel()
	s.Set(2)

	assert.Equal(t, 1, calls)
}

func TestSubscriberMayReadState(t *testing.T) {
	s := New(0)
	var seen int
	s.Subscribe(func(int) { seen = s.Load() })

	s.Set(5)

	assert.Equal(t, 5, seen)
}

func TestConcurrentUpdates(t *testing.T) {
	s := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(cur int) (int, bool) { return cur + 1, true })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Load())
}
