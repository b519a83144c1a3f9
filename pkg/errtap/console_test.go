package errtap

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsole_Prints(t *testing.T) {
	var errOut, logOut bytes.Buffer
	c := NewConsole(&errOut, &logOut)

	c.Error("failed", 3)
	c.Log("hello")

	assert.Equal(t, "failed 3\n", errOut.String())
	assert.Equal(t, "hello\n", logOut.String())
}

func TestTap_ObserverSeesArgsAndNextRuns(t *testing.T) {
	var seen []any
	next := &recordedCalls{}

	fn := Tap(next.fn, func(args []any) { seen = args })
	fn("a", 1)

	assert.Equal(t, []any{"a", 1}, seen)
	assert.Equal(t, [][]any{{"a", 1}}, next.get())
}

func TestTap_ObserverPanicStillCallsNext(t *testing.T) {
	next := &recordedCalls{}
	fn := Tap(next.fn, func([]any) { panic("observer broke") })

	require.NotPanics(t, func() { fn("still printed") })
	assert.Equal(t, [][]any{{"still printed"}}, next.get())
}

func TestTap_ObserverCannotMutateArgs(t *testing.T) {
	next := &recordedCalls{}
	fn := Tap(next.fn, func(args []any) { args[0] = "rewritten" })

	fn("original")

	assert.Equal(t, [][]any{{"original"}}, next.get())
}

func TestConsole_WrapLayers(t *testing.T) {
	c, errs, _ := newTestConsole()
	var order []string

	c.WrapError(TapWith(func([]any) { order = append(order, "inner") }))
	c.WrapError(TapWith(func([]any) { order = append(order, "outer") }))
	c.Error("x")

	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Len(t, errs.get(), 1)
}

func TestConsole_ZeroValue(t *testing.T) {
	var c Console

	require.NotPanics(t, func() {
		c.Error("dropped")
		c.Log("dropped")
		c.WrapLog(TapWith(func([]any) {}))
		c.Log("still dropped")
	})

	c.SetErrorFunc(nil)
	require.NotPanics(t, func() { c.Error("nil func") })
}

func TestConsole_ConcurrentWrap(t *testing.T) {
	c, errs, _ := newTestConsole()
	var mu sync.Mutex
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.WrapError(TapWith(func([]any) {
				mu.Lock()
				count++
				mu.Unlock()
			}))
		}()
	}
	wg.Wait()

	c.Error("once")

	assert.Equal(t, 20, count)
	assert.Len(t, errs.get(), 1)
}
