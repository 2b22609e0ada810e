package ring_test

import (
	"slices"
	"testing"

	"github.com/djdv/go-smo/internal/ring"
)

func TestFIFO(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var queue ring.FIFO[int64, int]
		if queue.Pop() != nil || queue.Len() != 0 {
			t.Fatal("expected empty queue to have no elements")
		}
	})
	t.Run("order", func(t *testing.T) {
		var queue ring.FIFO[int64, int]
		for i := range 4 {
			queue.Push(int64(i), i*10)
		}
		checkKeys(t, &queue, []int64{0, 1, 2, 3})
		for want := range int64(4) {
			got := queue.Pop()
			if got.Key != want || got.Value != int(want)*10 {
				t.Fatalf("expected pop %d but got %d:%d", want, got.Key, got.Value)
			}
		}
		if queue.Len() != 0 {
			t.Fatalf("expected drained queue but len is %d", queue.Len())
		}
	})
	t.Run("interleaved", func(t *testing.T) {
		var queue ring.FIFO[int64, int]
		queue.Push(1, 1)
		queue.Push(2, 2)
		queue.Pop()
		queue.Push(3, 3)
		checkKeys(t, &queue, []int64{2, 3})
		queue.Reset()
		checkKeys(t, &queue, nil)
	})
}

func checkKeys(tb testing.TB, queue *ring.FIFO[int64, int], want []int64) {
	tb.Helper()
	var got []int64
	for element := range queue.All() {
		got = append(got, element.Key)
	}
	if !slices.Equal(got, want) {
		tb.Fatalf(
			"unexpected queue order"+
				"\n\tgot: %v"+
				"\n\twant: %v",
			got, want)
	}
}
