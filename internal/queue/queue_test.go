package queue

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
	}{
		{"short text", []byte("Hello, World!")},
		{"trailing null", []byte("Hello, World!\x00")},
		{"invalid utf-8", []byte{0xC0}},
		{"nulls between invalid bytes", []byte{0xC0, 0x00, 0xC1}},
		{"all nulls", bytes.Repeat([]byte{0x00}, MaxMessageLen)},
		{"single byte", []byte{0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()

			n, err := q.Enqueue(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, len(tt.msg), n)

			got, err := q.Dequeue()
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestDequeueEmpty(t *testing.T) {
	q := New()

	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestEmptyAfterReading(t *testing.T) {
	q := New()

	_, err := q.Enqueue([]byte("Hello, World!"))
	require.NoError(t, err)

	msg, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello, World!"), msg)

	_, err = q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestBoundarySizes(t *testing.T) {
	tests := []struct {
		name string
		size int
		err  error
	}{
		{"one under limit", MaxMessageLen - 1, nil},
		{"exactly at limit", MaxMessageLen, nil},
		{"one over limit", MaxMessageLen + 1, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			msg := bytes.Repeat([]byte("A"), tt.size)

			n, err := q.Enqueue(msg)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Zero(t, n)
				// Rejection must not have admitted anything
				_, err = q.Dequeue()
				assert.ErrorIs(t, err, ErrWouldBlock)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.size, n)
			got, err := q.Dequeue()
			require.NoError(t, err)
			assert.Equal(t, msg, got)
		})
	}
}

func TestOversizeRejectionVariants(t *testing.T) {
	// The limit applies to raw byte length no matter where nulls sit.
	filler := bytes.Repeat([]byte("A"), MaxMessageLen/2-1)
	withNull := append(append(append([]byte{}, filler...), 0x00), filler...)
	withNull = append(withNull, 'A')

	tests := []struct {
		name string
		msg  []byte
	}{
		{"all nulls", bytes.Repeat([]byte{0x00}, MaxMessageLen+1)},
		{"last byte null", append(bytes.Repeat([]byte("A"), MaxMessageLen), 0x00)},
		{"first byte null", append([]byte{0x00}, bytes.Repeat([]byte("A"), MaxMessageLen)...)},
		{"null in the middle", append(withNull, 'A')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			require.Greater(t, len(tt.msg), MaxMessageLen)

			_, err := q.Enqueue(tt.msg)
			assert.ErrorIs(t, err, ErrTooLarge)

			_, err = q.Dequeue()
			assert.ErrorIs(t, err, ErrWouldBlock)
		})
	}
}

func TestZeroLengthEnqueueIsNoop(t *testing.T) {
	q := New()

	n, err := q.Enqueue(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = q.Enqueue([]byte{})
	require.NoError(t, err)
	assert.Zero(t, n)

	// Nothing was admitted
	assert.Zero(t, q.Len())
	_, err = q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestCapacityEnforcement(t *testing.T) {
	q := New()
	msg := []byte("Hello, World!")

	for i := 0; i < MaxQueueLen; i++ {
		n, err := q.Enqueue(msg)
		require.NoError(t, err, "enqueue %d", i)
		require.Equal(t, len(msg), n)
	}

	_, err := q.Enqueue(msg)
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, MaxQueueLen, q.Len())

	for i := 0; i < MaxQueueLen; i++ {
		got, err := q.Dequeue()
		require.NoError(t, err, "dequeue %d", i)
		require.Equal(t, msg, got)
	}

	_, err = q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestCapacityEnforcementMaxLength(t *testing.T) {
	q := New()
	msg := bytes.Repeat([]byte("A"), MaxMessageLen)

	for i := 0; i < MaxQueueLen; i++ {
		_, err := q.Enqueue(msg)
		require.NoError(t, err)
	}
	_, err := q.Enqueue(msg)
	assert.ErrorIs(t, err, ErrFull)

	for i := 0; i < MaxQueueLen; i++ {
		got, err := q.Dequeue()
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
	_, err = q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestFIFOOrdering(t *testing.T) {
	q := New()

	for i := 0; i < 10; i++ {
		_, err := q.Enqueue([]byte(fmt.Sprintf("Write %d", i)))
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		got, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("Write %d", i), string(got))
	}

	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestFIFOAcrossRingWraparound(t *testing.T) {
	q := New()

	// Fill and drain repeatedly so head walks the whole ring.
	for round := 0; round < 5; round++ {
		for i := 0; i < MaxQueueLen/2-1; i++ {
			_, err := q.Enqueue([]byte(strconv.Itoa(i)))
			require.NoError(t, err)
		}
		for i := 0; i < MaxQueueLen/2-1; i++ {
			got, err := q.Dequeue()
			require.NoError(t, err)
			require.Equal(t, strconv.Itoa(i), string(got))
		}
		_, err := q.Dequeue()
		require.ErrorIs(t, err, ErrWouldBlock)
	}
}

func TestInterleavedFillDrain(t *testing.T) {
	q := New()
	msg := bytes.Repeat([]byte("A"), MaxMessageLen)

	for i := 0; i < MaxQueueLen/2; i++ {
		_, err := q.Enqueue(msg)
		require.NoError(t, err)
	}
	for i := 0; i < MaxQueueLen/2-1; i++ {
		_, err := q.Dequeue()
		require.NoError(t, err)
	}
	// Depth 1; top back up past the wrap point.
	for i := 0; i < MaxQueueLen/2; i++ {
		_, err := q.Enqueue(msg)
		require.NoError(t, err)
	}
	for i := 0; i < MaxQueueLen/2+1; i++ {
		got, err := q.Dequeue()
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestRejectedEnqueueLeavesQueueIntact(t *testing.T) {
	q := New(WithCapacity(2))

	_, err := q.Enqueue([]byte("first"))
	require.NoError(t, err)
	_, err = q.Enqueue([]byte("second"))
	require.NoError(t, err)

	_, err = q.Enqueue([]byte("third"))
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 2, q.Len())

	got, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	got, err = q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestEnqueueCopiesCallerBuffer(t *testing.T) {
	q := New()
	buf := []byte("Hello, World!")

	_, err := q.Enqueue(buf)
	require.NoError(t, err)

	// Mutating the caller's buffer must not reach the queued copy.
	buf[0] = 'X'

	got, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(got))
}

func TestStats(t *testing.T) {
	q := New()

	_, err := q.Enqueue([]byte("one"))
	require.NoError(t, err)
	_, err = q.Enqueue([]byte("two"))
	require.NoError(t, err)
	_, err = q.Dequeue()
	require.NoError(t, err)

	stats := q.Stats()
	assert.Equal(t, 1, stats.Depth)
	assert.Equal(t, MaxQueueLen, stats.Capacity)
	assert.Equal(t, MaxMessageLen, stats.MaxMessage)
	assert.Equal(t, uint64(2), stats.Enqueued)
	assert.Equal(t, uint64(1), stats.Dequeued)
}

func TestReset(t *testing.T) {
	q := New()

	for i := 0; i < 10; i++ {
		_, err := q.Enqueue([]byte("data"))
		require.NoError(t, err)
	}

	q.Reset()
	assert.Zero(t, q.Len())
	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestConcurrentSpam(t *testing.T) {
	q := New()
	msg := []byte("Hello, World!")

	// 16 workers, each 10 rounds of 5 enqueues then 5 dequeues. Every
	// dequeue must see the literal message and nothing may be left over.
	var wg sync.WaitGroup
	errs := make(chan error, 16)

	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for round := 0; round < 10; round++ {
				for i := 0; i < 5; i++ {
					if _, err := q.Enqueue(msg); err != nil {
						errs <- fmt.Errorf("enqueue: %w", err)
						return
					}
				}
				for i := 0; i < 5; i++ {
					got, err := q.Dequeue()
					if err != nil {
						errs <- fmt.Errorf("dequeue: %w", err)
						return
					}
					if !bytes.Equal(got, msg) {
						errs <- fmt.Errorf("corrupt message: %q", got)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	assert.Zero(t, q.Len())
	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestConcurrentFIFOPerProducer(t *testing.T) {
	q := New()

	// With concurrent producers only a per-producer order is observable;
	// verify each producer's messages drain in its own enqueue order.
	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_, err := q.Enqueue([]byte(fmt.Sprintf("%d:%d", p, i)))
				if err != nil {
					t.Errorf("enqueue: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	next := make([]int, producers)
	for i := 0; i < producers*perProducer; i++ {
		got, err := q.Dequeue()
		require.NoError(t, err)

		var p, seq int
		_, err = fmt.Sscanf(string(got), "%d:%d", &p, &seq)
		require.NoError(t, err)
		require.Equal(t, next[p], seq, "producer %d out of order", p)
		next[p]++
	}

	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}
