package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFOAndClose(t *testing.T) {
	q := newQueue()
	for i := 0; i < 3; i++ {
		q.push(notice{kind: noticeError, change: StateChange{Attempt: i}})
	}
	q.close()
	q.push(notice{kind: noticeError}) // ignored after close

	for i := 0; i < 3; i++ {
		n, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, i, n.change.Attempt)
	}
	_, ok := q.pop()
	require.False(t, ok)
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := newQueue()
	got := make(chan notice, 1)
	go func() {
		n, _ := q.pop()
		got <- n
	}()

	select {
	case <-got:
		t.Fatal("pop returned before push")
	case <-time.After(20 * time.Millisecond):
	}
	q.push(notice{kind: noticeState, change: StateChange{To: StateOpen}})
	select {
	case n := <-got:
		require.Equal(t, StateOpen, n.change.To)
	case <-time.After(time.Second):
		t.Fatal("pop did not wake")
	}
}

func TestRegistryUnsubscribeDuringIteration(t *testing.T) {
	var r registry[func()]
	var calls []int
	var subs []*Subscription
	for i := 0; i < 3; i++ {
		i := i
		subs = append(subs, r.add(func() { calls = append(calls, i) }))
	}
	for idx, e := range r.snapshot() {
		if idx == 0 {
			subs[2].Unsubscribe()
		}
		if e.sub.Active() {
			e.fn()
		}
	}
	require.Equal(t, []int{0, 1}, calls)
	require.Equal(t, 2, r.count())

	subs[2].Unsubscribe()
	require.Equal(t, 2, r.count())
	var nilSub *Subscription
	nilSub.Unsubscribe()
	require.False(t, nilSub.Active())
}
