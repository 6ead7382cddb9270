/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package driver

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForWaiters(t *testing.T, e *events, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return e.Waiters() == n }, time.Second, time.Millisecond)
}

func TestRingFifo(t *testing.T) {
	e := newEvents()
	_, ok := e.PopDIOEvent()
	assert.False(t, ok)

	for _, bit := range []int{3, 1, 24} {
		e.PushDIOEvent(bit)
	}
	for _, want := range []int{3, 1, 24} {
		bit, ok := e.PopDIOEvent()
		require.True(t, ok)
		assert.Equal(t, want, bit)
	}
	_, ok = e.PopDIOEvent()
	assert.False(t, ok)
}

func TestRingOverflowDropsOldest(t *testing.T) {
	e := newEvents()
	for i := 0; i < RingSize+10; i++ {
		e.PushDIOEvent(i%24 + 1)
	}
	pending, dropped, _ := e.stats()
	assert.Equal(t, RingSize-1, pending)
	assert.Equal(t, uint64(11), dropped)

	// events 0..10 are gone, the oldest left is number 11
	bit, ok := e.PopDIOEvent()
	require.True(t, ok)
	assert.Equal(t, 11%24+1, bit)
}

func TestWaitReadyCoalesces(t *testing.T) {
	e := newEvents()
	var wakeups int32
	done := make(chan error)
	go func() {
		err := e.WaitReady(context.Background(), SourceAdc1)
		atomic.AddInt32(&wakeups, 1)
		done <- err
	}()
	waitForWaiters(t, e, 1)

	e.SetReady(SourceAdc1)
	e.SetReady(SourceAdc1)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&wakeups))
}

func TestWaitReadyIgnoresOtherSources(t *testing.T) {
	e := newEvents()
	done := make(chan error, 1)
	go func() {
		done <- e.WaitReady(context.Background(), SourceDac2)
	}()
	waitForWaiters(t, e, 1)

	e.SetReady(SourceDac1)
	select {
	case <-done:
		t.Fatal("woken by another source")
	case <-time.After(20 * time.Millisecond):
	}
	// the waiter went back to sleep
	waitForWaiters(t, e, 1)
	e.SetReady(SourceDac2)
	assert.NoError(t, <-done)
}

func TestWaitReadyForgetsEarlierInterrupts(t *testing.T) {
	e := newEvents()
	e.SetReady(SourceAdc2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.WaitReady(ctx, SourceAdc2), context.DeadlineExceeded)
}

func TestWaitDIOEvent(t *testing.T) {
	e := newEvents()
	e.PushDIOEvent(7)
	bit, err := e.WaitDIOEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, bit)

	result := make(chan int)
	go func() {
		bit, _ := e.WaitDIOEvent(context.Background())
		result <- bit
	}()
	waitForWaiters(t, e, 1)
	e.deliver([]Source{SourceDio}, []int{12})
	assert.Equal(t, 12, <-result)
}

func TestWaitDIOEventCancel(t *testing.T) {
	e := newEvents()
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error)
	go func() {
		bit, err := e.WaitDIOEvent(ctx)
		assert.Equal(t, 0, bit)
		result <- err
	}()
	waitForWaiters(t, e, 1)
	cancel()
	assert.ErrorIs(t, <-result, context.Canceled)
	assert.Equal(t, 0, e.Waiters())
}

func TestWaitDIOEventSurvivesEmptyWake(t *testing.T) {
	e := newEvents()
	result := make(chan int)
	go func() {
		bit, _ := e.WaitDIOEvent(context.Background())
		result <- bit
	}()
	waitForWaiters(t, e, 1)
	// DIO flagged but nothing resolved
	e.deliver([]Source{SourceDio}, nil)
	waitForWaiters(t, e, 1)
	e.deliver([]Source{SourceDio}, []int{2})
	assert.Equal(t, 2, <-result)
}

func TestTapRelaysEvents(t *testing.T) {
	e := newEvents()
	ch := make(chan int, 2)
	e.setTap(ch)
	e.PushDIOEvent(4)
	e.PushDIOEvent(5)
	// full tap does not block the producer
	e.PushDIOEvent(6)
	assert.Equal(t, 4, <-ch)
	assert.Equal(t, 5, <-ch)
	pending, _, relayDropped := e.stats()
	assert.Equal(t, 3, pending)
	assert.Equal(t, uint64(1), relayDropped)
}
