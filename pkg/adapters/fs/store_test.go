package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aretw0/strata/pkg/core"
)

func sampleRecords(group string) []core.Record {
	return []core.Record{
		{Group: group, OwnerID: "p1", Owner: "hero", Component: "game.Player", Field: "Score", Payload: "42"},
		{Group: group, OwnerID: "p1", Owner: "hero", Component: "game.Player", Field: "Name", Payload: `"Ada"`},
		{Group: group, Owner: "boss", Component: "game.Enemy", Field: "HP", Payload: "100"},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(Config{Path: t.TempDir()})
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return s
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()

	for _, group := range []string{"progress.json", "prefs.yaml", "nested/deep/slot1.yml"} {
		t.Run(group, func(t *testing.T) {
			s := newTestStore(t)
			want := sampleRecords(group)

			if err := s.Save(ctx, group, want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := s.Load(ctx, group)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
			}
		})
	}

	t.Run("Replaces Whole Entry", func(t *testing.T) {
		s := newTestStore(t)
		_ = s.Save(ctx, "a.json", sampleRecords("a.json"))
		if err := s.Save(ctx, "a.json", sampleRecords("a.json")[:1]); err != nil {
			t.Fatal(err)
		}
		got, _ := s.Load(ctx, "a.json")
		if len(got) != 1 {
			t.Errorf("expected 1 record after overwrite, got %d", len(got))
		}
	})

	t.Run("Empty Record List", func(t *testing.T) {
		s := newTestStore(t)
		if err := s.Save(ctx, "empty.json", nil); err != nil {
			t.Fatal(err)
		}
		got, err := s.Load(ctx, "empty.json")
		if err != nil || len(got) != 0 {
			t.Errorf("expected empty load, got %v (%v)", got, err)
		}
	})

	t.Run("Default Extension", func(t *testing.T) {
		s := newTestStore(t)
		if err := s.Save(ctx, "slot1", sampleRecords("slot1")); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(filepath.Join(s.Dir(), "slot1.json")); err != nil {
			t.Errorf("expected slot1.json on disk: %v", err)
		}
		if _, err := s.Load(ctx, "slot1"); err != nil {
			t.Errorf("expected slot1 to load back: %v", err)
		}
	})

	t.Run("Container Shape", func(t *testing.T) {
		s := newTestStore(t)
		_ = s.Save(ctx, "shape.json", sampleRecords("shape.json")[:1])
		data, err := os.ReadFile(filepath.Join(s.Dir(), "shape.json"))
		if err != nil {
			t.Fatal(err)
		}
		text := string(data)
		if !strings.Contains(text, `"records"`) || !strings.Contains(text, `\"payload\":\"42\"`) {
			t.Errorf("unexpected file contents:\n%s", text)
		}
	})
}

func TestStore_LoadErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Load(ctx, "missing.json"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	corrupt := map[string]string{
		"garbage.json":   "{ not json",
		"empty.json":     "",
		"badrecord.json": `{"records": ["{oops"]}`,
		"garbage.yaml":   "records: [unterminated",
	}
	for name, content := range corrupt {
		if err := os.WriteFile(filepath.Join(s.Dir(), name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Load(ctx, name); !errors.Is(err, core.ErrCorruptGroup) {
			t.Errorf("%s: expected ErrCorruptGroup, got %v", name, err)
		}
	}
}

func TestStore_InvalidGroup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, group := range []string{"", "/etc/passwd", "../outside.json", "a/../../b.json", ".strata/index.json"} {
		if err := s.Save(ctx, group, nil); !errors.Is(err, core.ErrInvalidGroup) {
			t.Errorf("Save(%q): expected ErrInvalidGroup, got %v", group, err)
		}
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, g := range []string{"progress.json", "prefs.yaml", "saves/slot1.json", "saves/slot2.json"} {
		if err := s.Save(ctx, g, sampleRecords(g)); err != nil {
			t.Fatal(err)
		}
	}
	// Noise the store must not report.
	_ = os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("hi"), 0644)
	_ = os.WriteFile(filepath.Join(s.Dir(), TempFilePrefix+"123"), []byte("x"), 0644)
	if _, err := s.Describe(ctx, ""); err != nil {
		t.Fatal(err)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"prefs.yaml", "progress.json", "saves/slot1.json", "saves/slot2.json"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("List mismatch\n got: %v\nwant: %v", all, want)
	}

	saves, _ := s.List(ctx, "saves/**")
	if len(saves) != 2 {
		t.Errorf("expected 2 saves, got %v", saves)
	}

	if _, err := s.List(ctx, "[invalid"); err == nil {
		t.Error("expected invalid pattern error")
	}

	if _, err := s.Delete(ctx, ""); err == nil {
		t.Error("expected empty pattern to be refused")
	}

	removed, err := s.Delete(ctx, "saves/*.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Errorf("expected 2 removed, got %v", removed)
	}
	left, _ := s.List(ctx, "")
	if len(left) != 2 {
		t.Errorf("expected 2 groups left, got %v", left)
	}
}

func TestStore_Describe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.Save(ctx, "progress.json", sampleRecords("progress.json"))

	infos, err := s.Describe(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 group, got %d", len(infos))
	}
	if infos[0].Records != 3 || !reflect.DeepEqual(infos[0].Owners, []string{"hero", "boss"}) {
		t.Errorf("unexpected info %+v", infos[0])
	}

	t.Run("Fresh Store Reads Persisted Index", func(t *testing.T) {
		other := NewStore(Config{Path: s.Dir()})
		infos, err := other.Describe(ctx, "")
		if err != nil || len(infos) != 1 || infos[0].Records != 3 {
			t.Errorf("unexpected describe from fresh store: %+v (%v)", infos, err)
		}
	})
}

func TestStore_ReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer := NewStore(Config{Path: dir})
	_ = writer.Save(ctx, "a.json", sampleRecords("a.json"))

	s := NewStore(Config{Path: dir, ReadOnly: true})
	if err := s.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "a.json", nil); !errors.Is(err, core.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly on Save, got %v", err)
	}
	if _, err := s.Delete(ctx, "**"); !errors.Is(err, core.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly on Delete, got %v", err)
	}
	if got, err := s.Load(ctx, "a.json"); err != nil || len(got) != 3 {
		t.Errorf("expected reads to work, got %v (%v)", got, err)
	}

	t.Run("Missing Directory", func(t *testing.T) {
		s := NewStore(Config{Path: filepath.Join(dir, "nope"), MustExist: true})
		if err := s.Initialize(ctx); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}

func TestStore_Group(t *testing.T) {
	s := NewStore(Config{Path: t.TempDir(), DefaultExt: ".yaml"})
	cases := map[string]string{
		"progress":            "progress.yaml",
		"progress.yaml":       "progress.yaml",
		"./progress.yaml":     "progress.yaml",
		"saves//slot1.json":   "saves/slot1.json",
		"saves/../prefs.json": "prefs.json",
	}
	for in, want := range cases {
		got, err := s.Group(in)
		if err != nil || got != want {
			t.Errorf("Group(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := s.Group("../escape.json"); !errors.Is(err, core.ErrInvalidGroup) {
		t.Errorf("expected ErrInvalidGroup, got %v", err)
	}
}
