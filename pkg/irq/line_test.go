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

package irq

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedLineRunsEveryHandler(t *testing.T) {
	l := NewLine(5)
	defer l.Close()

	var a, b int32
	require.NoError(t, l.Request("a", func() Result { atomic.AddInt32(&a, 1); return Handled }))
	require.NoError(t, l.Request("b", func() Result { atomic.AddInt32(&b, 1); return None }))
	assert.Error(t, l.Request("a", func() Result { return None }))

	l.Raise()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&a) == 1 && atomic.LoadInt32(&b) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, uint64(0), l.Spurious())
}

func TestRaiseCoalesces(t *testing.T) {
	l := NewLine(7)
	defer l.Close()

	release := make(chan struct{})
	var calls int32
	require.NoError(t, l.Request("slow", func() Result {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-release
		}
		return Handled
	}))

	l.Raise()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	// three assertions while the handler runs make one more dispatch
	l.Raise()
	l.Raise()
	l.Raise()
	close(release)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSpurious(t *testing.T) {
	l := NewLine(3)
	defer l.Close()
	l.Raise()
	assert.Eventually(t, func() bool { return l.Spurious() == 1 }, time.Second, time.Millisecond)
}

func TestTableConnectsOnceAndClosesWithLastHandler(t *testing.T) {
	var connects, detaches int32
	table := NewTable(func(l *Line) (func(), error) {
		atomic.AddInt32(&connects, 1)
		return func() { atomic.AddInt32(&detaches, 1) }, nil
	})
	noop := func() Result { return None }

	require.NoError(t, table.Request(10, "a", noop))
	require.NoError(t, table.Request(10, "b", noop))
	assert.Equal(t, int32(1), atomic.LoadInt32(&connects))

	table.Free(10, "a")
	_, ok := table.Line(10)
	assert.True(t, ok)
	table.Free(10, "b")
	_, ok = table.Line(10)
	assert.False(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&detaches))
}

func TestTableConnectError(t *testing.T) {
	table := NewTable(func(l *Line) (func(), error) {
		return nil, errors.New("no source")
	})
	assert.Error(t, table.Request(4, "a", func() Result { return None }))
	_, ok := table.Line(4)
	assert.False(t, ok)
}

func TestUIOConnectorMissing(t *testing.T) {
	connect := UIOConnector(map[uint16]string{5: filepath.Join(t.TempDir(), "uio0")})
	l := NewLine(6)
	defer l.Close()
	_, err := connect(l)
	assert.Error(t, err)

	l5 := NewLine(5)
	defer l5.Close()
	_, err = connect(l5)
	assert.Error(t, err)
}
