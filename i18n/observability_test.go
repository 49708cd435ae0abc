package i18n

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdsmith18542/tmplkit/observability"
)

type resolutionEvent struct {
	requested string
	resolved  string
	fallback  bool
}

type recordingObserver struct {
	mu          sync.Mutex
	loads       []int
	skipped     []string
	resolutions []resolutionEvent
}

func (r *recordingObserver) OnBundleLoad(ctx context.Context, sources int, locales int, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, locales)
}

func (r *recordingObserver) OnSourceSkipped(ctx context.Context, source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, source)
}

func (r *recordingObserver) OnLocaleResolution(ctx context.Context, requested string, resolved string, fallbackUsed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions = append(r.resolutions, resolutionEvent{requested, resolved, fallbackUsed})
}

// globalRecorder captures what EnableObservability forwards.
type globalRecorder struct {
	recordingObserver
}

func (g *globalRecorder) OnSourceOperation(context.Context, string, string, time.Duration, bool) {}
func (g *globalRecorder) OnFsChange(context.Context, string, string)                           {}
func (g *globalRecorder) OnTemplateReload(context.Context, int, time.Duration, error)          {}

func TestRegisterObserver(t *testing.T) {
	t.Cleanup(func() { RegisterObserver(nil) })

	assert.Nil(t, getObserver())

	obs := &recordingObserver{}
	RegisterObserver(obs)
	assert.Same(t, obs, getObserver())

	RegisterObserver(nil)
	assert.Nil(t, getObserver())
}

func TestEnableObservability(t *testing.T) {
	global := &globalRecorder{}
	observability.SetObserver(global)
	EnableObservability()
	t.Cleanup(func() {
		RegisterObserver(nil)
		observability.SetObserver(nil)
	})

	ctx := context.Background()
	bundle := LoadMessageBundles(ctx, Dirs("testdata/primary", "testdata/does-not-exist"), "en_us")
	require.NotEmpty(t, bundle)
	Resolve(ctx, "nl-BE", bundle, "en_us")

	require.Len(t, global.loads, 1)
	assert.Equal(t, len(bundle), global.loads[0])
	assert.Equal(t, []string{"testdata/does-not-exist"}, global.skipped)
	assert.Equal(t, []resolutionEvent{{"nl-BE", "nl_be", false}}, global.resolutions)

}
