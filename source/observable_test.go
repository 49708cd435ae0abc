package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kdsmith18542/tmplkit/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opRecord struct {
	operation  string
	sourceType string
	success    bool
}

type opObserver struct {
	mu  sync.Mutex
	ops []opRecord
}

func (o *opObserver) OnBundleLoad(context.Context, int, int, time.Duration)       {}
func (o *opObserver) OnSourceSkipped(context.Context, string, error)              {}
func (o *opObserver) OnLocaleResolution(context.Context, string, string, bool)    {}
func (o *opObserver) OnFsChange(context.Context, string, string)                  {}
func (o *opObserver) OnTemplateReload(context.Context, int, time.Duration, error) {}

func (o *opObserver) OnSourceOperation(ctx context.Context, operation string, sourceType string, duration time.Duration, success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, opRecord{operation, sourceType, success})
}

func TestObservableSource(t *testing.T) {
	obs := &opObserver{}
	observability.SetObserver(obs)
	t.Cleanup(func() { observability.SetObserver(nil) })

	mock := NewMock("mem", map[string]string{"en.json": "{}"})
	src := NewObservable(mock, "mock")
	assert.Equal(t, "mem", src.Name())
	assert.Same(t, mock, src.Unwrap())

	ctx := context.Background()
	_, err := src.List(ctx)
	require.NoError(t, err)

	rc, err := src.Open(ctx, "en.json")
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	_, err = src.Open(ctx, "missing.json")
	require.Error(t, err)

	mock.FailList(errors.New("down"))
	_, err = src.List(ctx)
	require.Error(t, err)

	assert.Equal(t, []opRecord{
		{"list", "mock", true},
		{"open", "mock", true},
		{"open", "mock", false},
		{"list", "mock", false},
	}, obs.ops)
	assert.NoError(t, src.Close())
}
