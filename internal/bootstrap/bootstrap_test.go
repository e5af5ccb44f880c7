package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/pkg/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.LocalRoot = t.TempDir()
	cfg.Metrics.Enabled = true
	return cfg
}

func TestNew_LocalStack(t *testing.T) {
	s, err := New(context.Background(), testConfig(t), nil, Options{})
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.Pipeline)
	assert.NotNil(t, s.Store)
	assert.Equal(t, "vina", s.Engine.Name())
	assert.NotNil(t, s.Collector)
	assert.NotNil(t, s.Metrics)
	assert.Nil(t, s.Repository)
	assert.Nil(t, s.Cache)
	assert.Nil(t, s.Producer)
	assert.Empty(t, s.Checks)
}

func TestNew_SkipPipeline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	s, err := New(context.Background(), cfg, nil, Options{SkipPipeline: true})
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Pipeline)
	assert.Nil(t, s.Engine)
	assert.Nil(t, s.Metrics)
}

func TestNew_UnknownBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "tape"
	_, err := New(context.Background(), cfg, nil, Options{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	cfg = testConfig(t)
	cfg.Engine.Backend = "gnina"
	_, err = New(context.Background(), cfg, nil, Options{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, nil, Options{})
	assert.Error(t, err)
}

func TestRunnerConfigAndPadding(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.RecoverableExitCodes = []int{137}
	cfg.Docking.Runner.RunTimeout = 3 * time.Minute

	rc := RunnerConfig(cfg)
	assert.Equal(t, config.DefaultSeeds, rc.Seeds)
	assert.Equal(t, 3*time.Minute, rc.RunTimeout)
	assert.Equal(t, []int{137}, rc.RecoverableExitCodes)

	pad := Padding(cfg)
	assert.Equal(t, config.DefaultMargin, pad.Margin)
	assert.Equal(t, config.DefaultHintMaxExtent, pad.HintMaxExtent)
	assert.Equal(t, config.DefaultMinAtoms, pad.MinAtoms)
}

func TestClose_ReverseOrderAndJoinedErrors(t *testing.T) {
	var order []int
	s := &Stack{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return assert.AnError },
	}}

	err := s.Close()
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, s.Close())
}

// ─── metered cache ───

type fakeCache struct {
	tables map[string]*app.Table
}

func (f *fakeCache) GetTable(_ context.Context, id string) (*app.Table, error) {
	if t, ok := f.tables[id]; ok {
		return t, nil
	}
	return nil, errors.NotFound("miss")
}

func (f *fakeCache) PutTable(_ context.Context, id string, t *app.Table) error {
	f.tables[id] = t
	return nil
}

type loaderCache struct{ fakeCache }

func (l *loaderCache) GetOrLoad(ctx context.Context, id string, load app.TableLoadFunc) (*app.Table, error) {
	if t, err := l.GetTable(ctx, id); err == nil {
		return t, nil
	}
	t, cacheable, err := load(ctx)
	if err == nil && cacheable {
		_ = l.PutTable(ctx, id, t)
	}
	return t, err
}

type invalidatingCache struct {
	fakeCache
	dropped []string
}

func (c *invalidatingCache) Invalidate(_ context.Context, id string) error {
	c.dropped = append(c.dropped, id)
	delete(c.tables, id)
	return nil
}

type hitCounter struct{ hits, misses int }

func (h *hitCounter) RecordCacheAccess(hit bool) {
	if hit {
		h.hits++
	} else {
		h.misses++
	}
}

func TestMeteredCache_GetTable(t *testing.T) {
	rec := &hitCounter{}
	c := newMeteredCache(&fakeCache{tables: map[string]*app.Table{"a": {JobID: "a"}}}, rec)
	_, isLoader := c.(app.TableLoader)
	assert.False(t, isLoader)

	_, err := c.GetTable(context.Background(), "a")
	require.NoError(t, err)
	_, err = c.GetTable(context.Background(), "b")
	require.Error(t, err)

	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestMeteredCache_GetOrLoad(t *testing.T) {
	rec := &hitCounter{}
	c := newMeteredCache(&loaderCache{fakeCache{tables: map[string]*app.Table{}}}, rec)
	loader, ok := c.(app.TableLoader)
	require.True(t, ok)

	load := func(context.Context) (*app.Table, bool, error) { return &app.Table{JobID: "j"}, true, nil }
	_, err := loader.GetOrLoad(context.Background(), "j", load)
	require.NoError(t, err)
	_, err = loader.GetOrLoad(context.Background(), "j", load)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, 1, rec.hits)
}

func TestMeteredCache_Invalidate(t *testing.T) {
	inner := &invalidatingCache{fakeCache: fakeCache{tables: map[string]*app.Table{"a": {JobID: "a"}}}}
	c := newMeteredCache(inner, &hitCounter{})
	inv, ok := c.(app.CacheInvalidator)
	require.True(t, ok)
	require.NoError(t, inv.Invalidate(context.Background(), "a"))
	assert.Equal(t, []string{"a"}, inner.dropped)

	plain := newMeteredCache(&fakeCache{tables: map[string]*app.Table{}}, &hitCounter{})
	assert.NoError(t, plain.(app.CacheInvalidator).Invalidate(context.Background(), "a"))
}

func TestMeteredCache_NilRecorderReturnsInner(t *testing.T) {
	inner := &fakeCache{tables: map[string]*app.Table{}}
	assert.Same(t, inner, newMeteredCache(inner, nil))
}

//Personal.AI order the ending
