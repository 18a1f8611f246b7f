package hook

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *fakeLogger) Warn(msg string, err error, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *fakeLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

type ctxKey string

func recordingPair(events *[]string, name string) (PreFunc, PostFunc) {
	pre := func(ctx context.Context, call Call) Entry {
		*events = append(*events, "pre:"+name)
		return Entry{Handle: name}
	}
	post := func(ctx context.Context, call Call, handle, result any, err error) {
		*events = append(*events, "post:"+handle.(string))
	}
	return pre, post
}

func TestInvokeOrdersEntriesAndExits(t *testing.T) {
	r := NewRegistry(nil)
	var events []string
	pre1, post1 := recordingPair(&events, "a")
	pre2, post2 := recordingPair(&events, "b")
	r.Register("svc", "run", pre1, post1)
	r.Register("svc", "run", pre2, post2)

	res, err := r.Invoke(context.Background(), Call{Class: "svc", Function: "run"}, func(ctx context.Context, args []any) (any, error) {
		events = append(events, "op")
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.Equal(t, []string{"pre:a", "pre:b", "op", "post:b", "post:a"}, events)
}

func TestInvokeOnlyMatchingTarget(t *testing.T) {
	r := NewRegistry(nil)
	var events []string
	pre, post := recordingPair(&events, "a")
	r.Register("svc", "other", pre, post)

	_, err := r.Invoke(context.Background(), Call{Class: "svc", Function: "run"}, func(ctx context.Context, args []any) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.True(t, r.Registered("svc", "other"))
	assert.False(t, r.Registered("svc", "run"))
}

func TestExitReceivesErrorUnchanged(t *testing.T) {
	r := NewRegistry(nil)
	boom := errors.New("boom")
	var seen error
	r.Register("svc", "run", nil, func(ctx context.Context, call Call, handle, result any, err error) {
		seen = err
	})

	_, err := r.Invoke(context.Background(), Call{Class: "svc", Function: "run"}, func(ctx context.Context, args []any) (any, error) {
		return nil, boom
	})

	assert.Same(t, boom, err)
	assert.Same(t, boom, seen)
}

func TestExitRunsOnPanicAndPanicPropagates(t *testing.T) {
	r := NewRegistry(nil)
	var seen error
	r.Register("svc", "run", nil, func(ctx context.Context, call Call, handle, result any, err error) {
		seen = err
	})

	assert.PanicsWithValue(t, "kaboom", func() {
		_, _ = r.Invoke(context.Background(), Call{Class: "svc", Function: "run"}, func(ctx context.Context, args []any) (any, error) {
			panic("kaboom")
		})
	})

	var pe *PanicError
	require.ErrorAs(t, seen, &pe)
	assert.Equal(t, "kaboom", pe.Value)
}

func TestEntryReplacesContextAndArgs(t *testing.T) {
	r := NewRegistry(nil)
	var exitArgs []any
	r.Register("svc", "run", func(ctx context.Context, call Call) Entry {
		return Entry{
			Context: context.WithValue(ctx, ctxKey("k"), "v"),
			Args:    []any{"replaced"},
		}
	}, func(ctx context.Context, call Call, handle, result any, err error) {
		exitArgs = call.Args
		assert.Nil(t, ctx.Value(ctxKey("k")), "exit sees the context from before the entry actions")
	})

	_, err := r.Invoke(context.Background(), Call{Class: "svc", Function: "run", Args: []any{"original"}}, func(ctx context.Context, args []any) (any, error) {
		assert.Equal(t, "v", ctx.Value(ctxKey("k")))
		assert.Equal(t, []any{"replaced"}, args)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"original"}, exitArgs)
}

func TestPanickingActionsFailOpen(t *testing.T) {
	log := &fakeLogger{}
	r := NewRegistry(log)
	r.Register("svc", "run", func(ctx context.Context, call Call) Entry {
		panic("bad carrier")
	}, func(ctx context.Context, call Call, handle, result any, err error) {
		assert.Nil(t, handle)
		panic("bad exit")
	})

	res, err := r.Invoke(context.Background(), Call{Class: "svc", Function: "run"}, func(ctx context.Context, args []any) (any, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 2, log.count())
}

func TestNestedInvocationsPairIndependently(t *testing.T) {
	r := NewRegistry(nil)
	var events []string
	depth := 0
	r.Register("svc", "run", func(ctx context.Context, call Call) Entry {
		depth++
		events = append(events, "pre")
		return Entry{Handle: depth}
	}, func(ctx context.Context, call Call, handle, result any, err error) {
		events = append(events, "post")
		assert.Equal(t, depth, handle)
		depth--
	})

	var run Operation
	run = func(ctx context.Context, args []any) (any, error) {
		n := args[0].(int)
		if n == 0 {
			return nil, nil
		}
		return r.Invoke(ctx, Call{Class: "svc", Function: "run", Args: []any{n - 1}}, run)
	}
	_, err := r.Invoke(context.Background(), Call{Class: "svc", Function: "run", Args: []any{2}}, run)

	require.NoError(t, err)
	assert.Equal(t, []string{"pre", "pre", "pre", "post", "post", "post"}, events)
	assert.Equal(t, 0, depth)
}

func TestEnterExitIsIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	exits := 0
	r.Register("db", "exec", nil, func(ctx context.Context, call Call, handle, result any, err error) {
		exits++
	})

	_, inv := r.Enter(context.Background(), Call{Class: "db", Function: "exec"})
	inv.Exit(nil, nil)
	inv.Exit(nil, nil)

	assert.Equal(t, 1, exits)
}

func TestUnitsAreBegunOnce(t *testing.T) {
	r := NewRegistry(nil)
	begun := 0
	r.OnUnit(func(ctx context.Context) context.Context {
		begun++
		return context.WithValue(ctx, ctxKey("unit"), begun)
	})

	ctx := r.BeginUnit(context.Background())
	assert.True(t, InUnit(ctx))
	assert.Equal(t, 1, begun)

	_, err := r.Invoke(ctx, Call{Class: "svc", Function: "run"}, func(ctx context.Context, args []any) (any, error) {
		assert.Equal(t, 1, ctx.Value(ctxKey("unit")))
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, begun)

	_, err = r.Invoke(context.Background(), Call{Class: "svc", Function: "run"}, func(ctx context.Context, args []any) (any, error) {
		assert.True(t, InUnit(ctx))
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, begun)
}

func TestCallLocationDefaultsToCaller(t *testing.T) {
	r := NewRegistry(nil)
	var file string
	r.Register("svc", "run", func(ctx context.Context, call Call) Entry {
		file = call.File
		return Entry{}
	}, nil)

	_, _ = r.Invoke(context.Background(), Call{Class: "svc", Function: "run"}, func(ctx context.Context, args []any) (any, error) {
		return nil, nil
	})

	assert.True(t, strings.HasSuffix(file, "registry_test.go"), file)
}

func TestNilRegistryRunsOperation(t *testing.T) {
	var r *Registry
	res, err := r.Invoke(context.Background(), Call{Args: []any{1}}, func(ctx context.Context, args []any) (any, error) {
		return args[0], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res)

	_, inv := r.Enter(context.Background(), Call{})
	inv.Exit(nil, nil)
}

func TestCallArg(t *testing.T) {
	c := Call{Args: []any{"a"}}
	assert.Equal(t, "a", c.Arg(0))
	assert.Nil(t, c.Arg(1))
	assert.Nil(t, c.Arg(-1))
}
