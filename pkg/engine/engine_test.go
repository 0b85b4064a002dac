package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/adapters/fs"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/engine"
	"github.com/aretw0/strata/pkg/graph"
	"github.com/aretw0/strata/pkg/ordered"
	"github.com/aretw0/strata/pkg/registry"
)

type Weapon interface{ Damage() int }

type Sword struct{ Edge int }

func (s *Sword) Damage() int { return s.Edge }

type Settings struct {
	Volume int
	Theme  string
}

type Stats struct {
	HP int
}

type Player struct {
	Score    int       `persist:"progress.json"`
	Name     string    `persist:"progress.json"`
	Weapon   Weapon    `persist:"inventory.json"`
	Settings *Settings `persist:"prefs.yaml,asset"`
	Stats    *Stats    `persist:"progress.json,ref"`
	Inbox    []string  `persist:"inbox.json"`
}

type Enemy struct {
	HP int `persist:"progress.json"`
}

// memStore is an in-memory core.Store that can be told to fail writes.
type memStore struct {
	mu       sync.Mutex
	groups   map[string][]core.Record
	failSave map[string]bool
	saves    int
}

func newMemStore() *memStore {
	return &memStore{groups: map[string][]core.Record{}, failSave: map[string]bool{}}
}

func (m *memStore) Save(_ context.Context, group string, records []core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failSave[group] {
		return errors.New("disk full")
	}
	m.groups[group] = append([]core.Record(nil), records...)
	return nil
}

func (m *memStore) Load(_ context.Context, group string) ([]core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, ok := m.groups[group]
	if !ok {
		return nil, core.ErrNotFound
	}
	return recs, nil
}

func (m *memStore) List(context.Context, string) ([]string, error) { return nil, nil }
func (m *memStore) Delete(context.Context, string) ([]string, error) { return nil, nil }
func (m *memStore) Initialize(context.Context) error { return nil }

func newScene(t *testing.T) (*graph.Scene, *Player, *Enemy) {
	t.Helper()
	scene := graph.NewScene()
	p := &Player{
		Score:    42,
		Name:     "Ada",
		Weapon:   &Sword{Edge: 9},
		Settings: &Settings{Volume: 7, Theme: "dark"},
		Stats:    &Stats{HP: 80},
		Inbox:    []string{"welcome"},
	}
	e := &Enemy{HP: 100}
	_, err := scene.AddWithID("p1", "hero", p)
	require.NoError(t, err)
	_, err = scene.AddWithID("e1", "boss", e)
	require.NoError(t, err)
	return scene, p, e
}

func newFSStore(t *testing.T) *fs.Store {
	t.Helper()
	s := fs.NewStore(fs.Config{Path: t.TempDir()})
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestEngine_RoundTrip(t *testing.T) {
	ctx := context.Background()
	scene, p, e := newScene(t)
	store := newFSStore(t)
	eng := engine.New(scene, store)

	require.NoError(t, eng.SaveAll(ctx))

	groups, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"inbox.json", "inventory.json", "prefs.yaml", "progress.json"}, groups)

	stats := p.Stats
	*p = Player{Stats: stats, Weapon: &Sword{}}
	stats.HP = 1
	e.HP = 0

	report := eng.Load(ctx)
	require.True(t, report.OK(), report.String())
	assert.Equal(t, 4, report.Loaded)
	assert.Zero(t, report.Skipped)

	assert.Equal(t, 42, p.Score)
	assert.Equal(t, "Ada", p.Name)
	assert.Equal(t, []string{"welcome"}, p.Inbox)
	assert.Equal(t, 100, e.HP)

	t.Run("Asset Builds New Instance", func(t *testing.T) {
		require.NotNil(t, p.Settings)
		assert.Equal(t, Settings{Volume: 7, Theme: "dark"}, *p.Settings)
		require.IsType(t, &Sword{}, p.Weapon)
		assert.Equal(t, 9, p.Weapon.Damage())
	})

	t.Run("Ref Fills Existing Instance", func(t *testing.T) {
		assert.Same(t, stats, p.Stats)
		assert.Equal(t, 80, stats.HP)
	})

	t.Run("Introspection", func(t *testing.T) {
		st := eng.State().(engine.EngineState)
		assert.Equal(t, engine.PhaseDone, st.Phase)
		assert.Equal(t, "store", st.StoreType)
		assert.Equal(t, registry.DefaultTag, st.Tag)
		require.NotNil(t, st.LastReport)
		assert.Equal(t, report.Applied, st.LastReport.Applied)
	})
}

func TestEngine_SaveGroup(t *testing.T) {
	ctx := context.Background()
	scene, _, _ := newScene(t)
	store := newMemStore()
	eng := engine.New(scene, store)

	require.NoError(t, eng.SaveGroup(ctx, "progress.json"))
	assert.Len(t, store.groups, 1)
	assert.Len(t, store.groups["progress.json"], 4)

	// Records keep traversal order: owner, then component, then field.
	fields := []string{}
	for _, r := range store.groups["progress.json"] {
		fields = append(fields, r.Owner+"."+r.Field)
	}
	assert.Equal(t, []string{"hero.Score", "hero.Name", "hero.Stats", "boss.HP"}, fields)

	t.Run("Unknown Group Writes Nothing", func(t *testing.T) {
		before := store.saves
		require.NoError(t, eng.SaveGroup(ctx, "nothing.json"))
		assert.Equal(t, before, store.saves)
	})
}

func TestEngine_EmptyGraph(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	eng := engine.New(graph.NewScene(), store)

	require.NoError(t, eng.SaveAll(ctx))
	assert.Zero(t, store.saves)
	assert.True(t, eng.LoadAll(ctx))
}

func TestEngine_EmptyStoreLoadsOK(t *testing.T) {
	ctx := context.Background()
	scene, p, _ := newScene(t)
	eng := engine.New(scene, newFSStore(t))

	report := eng.Load(ctx)
	assert.True(t, report.OK())
	assert.Equal(t, 4, report.Groups)
	assert.Zero(t, report.WithEntry)
	assert.Equal(t, 42, p.Score, "live values stay untouched")
}

func TestEngine_SaveContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	scene, _, _ := newScene(t)
	store := newMemStore()
	store.failSave["inventory.json"] = true
	eng := engine.New(scene, store)

	err := eng.SaveAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory.json")
	assert.Equal(t, 4, store.saves)
	assert.Len(t, store.groups, 3)
}

func TestEngine_CorruptGroupIsIsolated(t *testing.T) {
	ctx := context.Background()
	scene, p, _ := newScene(t)
	store := newFSStore(t)
	eng := engine.New(scene, store)
	require.NoError(t, eng.SaveAll(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "inventory.json"), []byte("{ broken"), 0644))
	p.Score = 0
	p.Weapon = &Sword{Edge: 1}

	report := eng.Load(ctx)
	assert.False(t, report.OK())
	assert.Equal(t, 1, report.Failed())
	assert.True(t, errors.Is(report.Err(), core.ErrCorruptGroup))

	assert.Equal(t, 42, p.Score, "other groups still load")
	assert.Equal(t, 1, p.Weapon.Damage(), "corrupt group leaves its fields alone")
	assert.False(t, eng.LoadAll(ctx))
}

func TestEngine_BadRecordsAreSkipped(t *testing.T) {
	ctx := context.Background()
	scene, p, _ := newScene(t)
	store := newMemStore()
	eng := engine.New(scene, store)

	comp := graph.TypeName(p)
	store.groups["progress.json"] = []core.Record{
		{Owner: "ghost", Component: comp, Field: "Score", Payload: "1"},
		{OwnerID: "p1", Owner: "hero", Component: "nope.Type", Field: "Score", Payload: "1"},
		{OwnerID: "p1", Owner: "hero", Component: comp, Field: "Missing", Payload: "1"},
		{OwnerID: "p1", Owner: "hero", Component: comp, Field: "Score", Payload: `"text"`},
		{OwnerID: "p1", Owner: "hero", Component: comp, Field: "Score", Payload: "7"},
	}

	report := eng.Load(ctx)
	assert.True(t, report.OK(), "per-record failures do not fail the load")
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 4, report.Skipped)
	assert.Equal(t, 7, p.Score)

	err := report.Err()
	assert.ErrorIs(t, err, core.ErrOwnerNotFound)
	assert.ErrorIs(t, err, core.ErrComponentNotFound)
	assert.ErrorIs(t, err, core.ErrFieldNotFound)
	assert.ErrorIs(t, err, core.ErrTypeMismatch)
}

func TestEngine_LastRecordWins(t *testing.T) {
	ctx := context.Background()
	scene, p, _ := newScene(t)
	store := newMemStore()
	eng := engine.New(scene, store)

	comp := graph.TypeName(p)
	store.groups["progress.json"] = []core.Record{
		{OwnerID: "p1", Owner: "hero", Component: comp, Field: "Score", Payload: "1"},
		{OwnerID: "p1", Owner: "hero", Component: comp, Field: "Score", Payload: "2"},
		{OwnerID: "p1", Owner: "hero", Component: comp, Field: "Score", Payload: "3"},
	}

	require.True(t, eng.LoadAll(ctx))
	assert.Equal(t, 3, p.Score)
}

func TestEngine_OwnerResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("Falls Back To Name", func(t *testing.T) {
		scene, p, _ := newScene(t)
		store := newMemStore()
		store.groups["progress.json"] = []core.Record{
			{OwnerID: "stale-id", Owner: "hero", Component: graph.TypeName(p), Field: "Score", Payload: "5"},
		}
		require.True(t, engine.New(scene, store).LoadAll(ctx))
		assert.Equal(t, 5, p.Score)
	})

	t.Run("Ambiguous Name", func(t *testing.T) {
		scene := graph.NewScene()
		a, b := &Enemy{HP: 1}, &Enemy{HP: 2}
		_, _ = scene.Add("grunt", a)
		_, _ = scene.Add("grunt", b)

		store := newMemStore()
		store.groups["progress.json"] = []core.Record{
			{Owner: "grunt", Component: graph.TypeName(a), Field: "HP", Payload: "9"},
		}
		report := engine.New(scene, store).Load(ctx)
		assert.ErrorIs(t, report.Err(), core.ErrAmbiguousOwner)
		assert.Equal(t, 1, a.HP)
		assert.Equal(t, 2, b.HP)
	})

	t.Run("Duplicate Names With Stable IDs", func(t *testing.T) {
		scene := graph.NewScene()
		a, b := &Enemy{HP: 1}, &Enemy{HP: 2}
		_, _ = scene.AddWithID("g1", "grunt", a)
		_, _ = scene.AddWithID("g2", "grunt", b)
		store := newMemStore()
		eng := engine.New(scene, store)
		require.NoError(t, eng.SaveAll(ctx))

		a.HP, b.HP = 0, 0
		require.True(t, eng.LoadAll(ctx))
		assert.Equal(t, 1, a.HP)
		assert.Equal(t, 2, b.HP)
	})
}

func TestEngine_AssetFactory(t *testing.T) {
	ctx := context.Background()
	scene := graph.NewScene()
	p := &Player{}
	_, _ = scene.AddWithID("p1", "hero", p)

	store := newMemStore()
	store.groups["inventory.json"] = []core.Record{
		{OwnerID: "p1", Owner: "hero", Component: graph.TypeName(p), Field: "Weapon", Payload: `{"Edge":4}`},
	}

	t.Run("Nil Interface Without Factory", func(t *testing.T) {
		report := engine.New(scene, store).Load(ctx)
		assert.ErrorIs(t, report.Err(), core.ErrNotConstructible)
		assert.Nil(t, p.Weapon)
	})

	t.Run("Registered Factory", func(t *testing.T) {
		f := make(registry.Factories)
		registry.RegisterFactory(f, func() Weapon { return &Sword{} })
		eng := engine.New(scene, store, engine.WithRegistry(registry.New(registry.WithFactories(f))))

		require.True(t, eng.LoadAll(ctx))
		require.NotNil(t, p.Weapon)
		assert.Equal(t, 4, p.Weapon.Damage())
	})
}

func TestEngine_NilRefs(t *testing.T) {
	ctx := context.Background()
	scene := graph.NewScene()
	p := &Player{Settings: nil, Stats: nil}
	_, _ = scene.AddWithID("p1", "hero", p)
	store := newMemStore()
	eng := engine.New(scene, store)

	require.NoError(t, eng.SaveAll(ctx))
	report := eng.Load(ctx)
	assert.True(t, report.OK())
	assert.Zero(t, report.Skipped, "null ref and asset payloads round trip: %v", report.Err())
	assert.Nil(t, p.Stats)
	assert.Nil(t, p.Settings)

	t.Run("Ref Into Nil Target", func(t *testing.T) {
		store.groups["progress.json"] = []core.Record{
			{OwnerID: "p1", Owner: "hero", Component: graph.TypeName(p), Field: "Stats", Payload: `{"HP":3}`},
		}
		assert.ErrorIs(t, eng.Load(ctx).Err(), core.ErrNilReference)
	})
}

type Bag struct {
	Items ordered.Map[string, int] `persist:"bag.json"`
}

func TestEngine_OrderedMapField(t *testing.T) {
	ctx := context.Background()
	scene := graph.NewScene()
	b := &Bag{}
	b.Items.SetPairs([]ordered.Pair[string, int]{{Key: "gem", Value: 1}, {Key: "key", Value: 2}, {Key: "gem", Value: 3}})
	_, _ = scene.AddWithID("b1", "bag", b)

	store := newFSStore(t)
	eng := engine.New(scene, store)
	require.NoError(t, eng.SaveAll(ctx))

	b.Items.Clear()
	report := eng.Load(ctx)
	require.True(t, report.OK(), report.String())
	require.NoError(t, report.Err())
	assert.Equal(t, 1, report.Applied)

	assert.Equal(t, 3, b.Items.SeqLen(), "shadowed duplicates are persisted")
	assert.True(t, b.Items.Collision())
	gem, _ := b.Items.Get("gem")
	assert.Equal(t, 1, gem)
	assert.NoError(t, b.Items.Validate())
}

type Split struct {
	A int `persist:"progress"`
	B int `persist:"progress.json"`
	C int `persist:"./progress.json"`
}

func TestEngine_GroupSpellingsShareOneEntry(t *testing.T) {
	ctx := context.Background()
	scene := graph.NewScene()
	s := &Split{A: 1, B: 2, C: 3}
	_, _ = scene.AddWithID("s1", "split", s)

	store := newFSStore(t)
	eng := engine.New(scene, store)
	require.NoError(t, eng.SaveAll(ctx))

	groups, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"progress.json"}, groups)

	*s = Split{}
	report := eng.Load(ctx)
	require.True(t, report.OK(), report.String())
	assert.Equal(t, 1, report.Groups)
	assert.Equal(t, 3, report.Applied)
	assert.Equal(t, Split{A: 1, B: 2, C: 3}, *s)

	t.Run("SaveGroup Accepts Any Spelling", func(t *testing.T) {
		s.A = 9
		require.NoError(t, eng.SaveGroup(ctx, "progress"))
		s.A = 0
		require.True(t, eng.LoadAll(ctx))
		assert.Equal(t, 9, s.A)
	})
}

type unencodable struct{}

func (unencodable) MarshalJSON() ([]byte, error) { return nil, errors.New("cannot encode") }

type Faulty struct {
	Bad unencodable `persist:"faulty.json"`
	OK  int         `persist:"faulty.json"`
}

func TestEngine_LoadReportsEncodeFailures(t *testing.T) {
	ctx := context.Background()
	scene := graph.NewScene()
	_, _ = scene.AddWithID("f1", "faulty", &Faulty{OK: 1})

	report := engine.New(scene, newMemStore()).Load(ctx)
	assert.True(t, report.OK(), "encode failures do not fail any group")
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "cannot encode")
}
