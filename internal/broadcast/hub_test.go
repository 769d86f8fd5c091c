package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	t.Parallel()

	h := New[int]()

	assert.NotPanics(t, func() { h.Publish(1) })
	assert.Equal(t, 0, h.Len())
}

func TestHub_DeliversInSubscriptionOrder(t *testing.T) {
	t.Parallel()

	h := New[string]()
	var got []string

	h.Subscribe(func(v string) { got = append(got, "a:"+v) })
	h.Subscribe(func(v string) { got = append(got, "b:"+v) })
	h.Subscribe(func(v string) { got = append(got, "c:"+v) })

	h.Publish("1")
	h.Publish("2")

	assert.Equal(t, []string{"a:1", "b:1", "c:1", "a:2", "b:2", "c:2"}, got)
}

func TestHub_Unsubscribe(t *testing.T) {
	t.Parallel()

	h := New[int]()
	var a, b []int

	unsubA := h.Subscribe(func(v int) { a = append(a, v) })
	h.Subscribe(func(v int) { b = append(b, v) })
	require.Equal(t, 2, h.Len())

	h.Publish(1)
	unsubA()
	unsubA() // idempotent
	h.Publish(2)

	assert.Equal(t, []int{1}, a)
	assert.Equal(t, []int{1, 2}, b)
	assert.Equal(t, 1, h.Len())
}

func TestHub_UnsubscribeFromCallback(t *testing.T) {
	t.Parallel()

	h := New[int]()
	var calls int
	var unsub func()
	unsub = h.Subscribe(func(int) {
		calls++
		unsub()
	})

	h.Publish(1)
	h.Publish(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, h.Len())
}

func TestHub_NilSubscriber(t *testing.T) {
	t.Parallel()

	h := New[int]()
	unsub := h.Subscribe(nil)

	assert.Equal(t, 0, h.Len())
	assert.NotPanics(t, unsub)
}

func TestHub_ConcurrentSubscribeAndPublish(t *testing.T) {
	t.Parallel()

	h := New[int]()
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := h.Subscribe(func(v int) {
				mu.Lock()
				total += v
				mu.Unlock()
			})
			h.Publish(1)
			unsub()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.Len())
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, total, 20)
}
