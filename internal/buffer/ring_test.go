// SPDX-License-Identifier: MIT
package buffer

import (
	"sync"
	"testing"
)

func TestNew_RoundsToPowerOfTwo(t *testing.T) {
	cases := []struct{ in, want int }{
		{1, 1},
		{2, 2},
		{3, 4},
		{1000, 1024},
		{32768, 32768},
	}
	for _, c := range cases {
		r, err := New[float64](c.in)
		if err != nil {
			t.Fatalf("New(%d): %v", c.in, err)
		}
		if got := r.Capacity(); got != c.want {
			t.Errorf("New(%d).Capacity() = %d, want %d", c.in, got, c.want)
		}
	}

	for _, bad := range []int{0, -1} {
		if _, err := New[float64](bad); err == nil {
			t.Errorf("New(%d) accepted a non-positive capacity", bad)
		}
	}
}

func TestWriteRead_PreservesOrder(t *testing.T) {
	r, err := New[int](16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var got []int
	dst := make([]int, 5)
	next := 0

	// Interleave writes and reads across many wraps of the backing slice.
	for round := 0; round < 50; round++ {
		block := make([]int, 7)
		for i := range block {
			block[i] = next
			next++
		}
		if d := r.Write(block); d != 0 {
			t.Fatalf("round %d: dropped %d elements from a non-full ring", round, d)
		}
		for {
			n := r.Read(dst)
			if n == 0 {
				break
			}
			got = append(got, dst[:n]...)
		}
	}

	if len(got) != next {
		t.Fatalf("read %d elements, wrote %d", len(got), next)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("element %d = %d, order broken", i, v)
		}
	}
}

func TestWrite_DropsOldestWhenFull(t *testing.T) {
	r, err := New[int](8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Fill completely, then push 3 more: the 3 oldest must give way.
	first := []int{0, 1, 2, 3, 4, 5, 6, 7}
	if d := r.Write(first); d != 0 {
		t.Fatalf("initial fill dropped %d", d)
	}
	if d := r.Write([]int{8, 9, 10}); d != 3 {
		t.Fatalf("overflow write dropped %d, want 3", d)
	}
	if got := r.Dropped(); got != 3 {
		t.Fatalf("Dropped() = %d, want 3", got)
	}

	dst := make([]int, 16)
	n := r.Read(dst)
	if n != 8 {
		t.Fatalf("Read returned %d elements, want 8", n)
	}
	for i, want := range []int{3, 4, 5, 6, 7, 8, 9, 10} {
		if dst[i] != want {
			t.Errorf("element %d = %d, want %d (newest must survive)", i, dst[i], want)
		}
	}
}

func TestWrite_BlockLargerThanRing(t *testing.T) {
	r, err := New[int](4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	block := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if d := r.Write(block); d != 6 {
		t.Fatalf("oversized write dropped %d, want 6", d)
	}

	dst := make([]int, 4)
	if n := r.Read(dst); n != 4 {
		t.Fatalf("Read returned %d, want 4", n)
	}
	for i, want := range []int{6, 7, 8, 9} {
		if dst[i] != want {
			t.Errorf("element %d = %d, want %d", i, dst[i], want)
		}
	}
}

func TestRead_EmptyReturnsZero(t *testing.T) {
	r, err := New[float64](8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dst := make([]float64, 8)
	if n := r.Read(dst); n != 0 {
		t.Errorf("Read on empty ring = %d, want 0", n)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestWake_CoalescesSignals(t *testing.T) {
	r, err := New[int](64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 10; i++ {
		r.Write([]int{i})
	}

	select {
	case <-r.Wake():
	default:
		t.Fatal("no wake signal after writes")
	}
	select {
	case <-r.Wake():
		t.Fatal("wake signals not coalesced into a single token")
	default:
	}
}

func TestWriteRead_ZeroAlloc(t *testing.T) {
	r, err := New[float64](1024)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := make([]float64, 128)
	dst := make([]float64, 128)

	allocs := testing.AllocsPerRun(100, func() {
		r.Write(src)
		r.Read(dst)
	})
	if allocs != 0 {
		t.Errorf("Write+Read allocated %.1f times per run, want 0", allocs)
	}
}

// A producer overruns a slow consumer; everything the consumer does see
// must still be in order, and drops plus reads must account for every
// element written.
func TestConcurrent_DropsAreAccounted(t *testing.T) {
	r, err := New[int](256)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const total = 100000
	var read int
	var lastSeen = -1

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dst := make([]int, 64)
		drain := false
		for {
			n := r.Read(dst)
			if n == 0 {
				if drain {
					return
				}
				select {
				case <-r.Wake():
				case <-done:
					// Producer finished; one last pass empties the ring.
					drain = true
				}
				continue
			}
			for _, v := range dst[:n] {
				if v <= lastSeen {
					t.Errorf("saw %d after %d, order broken", v, lastSeen)
					return
				}
				lastSeen = v
			}
			read += n
		}
	}()

	block := make([]int, 48)
	for i := 0; i < total; i += len(block) {
		for j := range block {
			block[j] = i + j
		}
		r.Write(block)
	}
	close(done)
	wg.Wait()

	if got := read + int(r.Dropped()) + r.Len(); got != total {
		t.Errorf("read %d + dropped %d + unread %d = %d, want %d",
			read, r.Dropped(), r.Len(), got, total)
	}
}
