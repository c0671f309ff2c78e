package icons

import (
	"context"
	"testing"

	"github.com/tilepad/hub/internal/hub/eventbus"
	"github.com/tilepad/hub/internal/hub/model"
)

type fakeTileLister struct {
	tiles []model.Tile
}

func (f fakeTileLister) AllTiles(ctx context.Context) ([]model.Tile, error) {
	return f.tiles, nil
}

func TestLoadUnloadPackTracksLoadedState(t *testing.T) {
	m := New(eventbus.New(func(eventbus.Event) error { return nil }), fakeTileLister{})

	if m.Loaded("pack-1") {
		t.Fatal("pack should not be loaded before LoadPack")
	}
	m.LoadPack("pack-1")
	if !m.Loaded("pack-1") {
		t.Error("pack should be loaded after LoadPack")
	}
	m.UnloadPack("pack-1")
	if m.Loaded("pack-1") {
		t.Error("pack should not be loaded after UnloadPack")
	}
}

func TestIsUploadedIconReferenced(t *testing.T) {
	ctx := context.Background()
	tiles := fakeTileLister{tiles: []model.Tile{
		{ID: "t1", Config: model.TileConfig{Icon: model.TileIcon{Kind: model.IconKindUploaded, Value: "a.png"}}},
		{ID: "t2", Config: model.TileConfig{Icon: model.TileIcon{Kind: model.IconKindPluginIcon, Value: "b.png"}}},
	}}
	m := New(eventbus.New(func(eventbus.Event) error { return nil }), tiles)

	referenced, err := m.IsUploadedIconReferenced(ctx, "a.png")
	if err != nil {
		t.Fatalf("IsUploadedIconReferenced() error = %v", err)
	}
	if !referenced {
		t.Error("a.png is referenced by t1 and should report true")
	}

	referenced, err = m.IsUploadedIconReferenced(ctx, "c.png")
	if err != nil {
		t.Fatalf("IsUploadedIconReferenced() error = %v", err)
	}
	if referenced {
		t.Error("c.png is not referenced by any tile and should report false")
	}
}
