package pipeline

import (
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bodega/internal"
)

func TestParseSnapshotKeepsGoodRecords(t *testing.T) {
	blob := []byte(`{"town":"Icemule Trace","shops":[{"id":{"odd":true},"inv":[
		{"room_title":"Stall","sign":["Written on the sign:",42,"Furs"],"items":[{"id":"1","name":"a dagger"},"garbage",7]}
	]}],"removed_items":[null,{"id":"9","name":"a ruby"}]}`)

	snap, err := ParseSnapshot(blob)
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}
	room := snap.Shops[0].Rooms[0]
	if len(room.Sign) != 2 || room.Sign[1] != "Furs" {
		t.Fatalf("sign=%v", room.Sign)
	}

	core, logs := observer.New(zap.WarnLevel)
	proc := NewProcessor(zap.New(core))
	names := []string{}
	proc.Snapshot(snap, func(item *internal.NormalizedItem, _ internal.RawItem) {
		names = append(names, item.Name)
	})
	if len(names) != 1 || names[0] != "a dagger" {
		t.Fatalf("names=%v", names)
	}
	if proc.Failed() != 2 {
		t.Fatalf("failed=%d", proc.Failed())
	}

	removed := proc.EmbeddedRemoved(snap, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	if len(removed) != 1 || removed[0].Name != "a ruby" {
		t.Fatalf("removed=%v", removed)
	}
	if proc.Failed() != 3 {
		t.Fatalf("failed=%d", proc.Failed())
	}
	if logs.FilterMessage("item skipped").Len() != 3 {
		t.Fatalf("warnings=%d", logs.FilterMessage("item skipped").Len())
	}
}

func TestParseSnapshotSingleLineSign(t *testing.T) {
	snap, err := ParseSnapshot([]byte(`{"town":"Solhaven","shops":[{"inv":[{"room_title":"Glimmer","sign":"Gems","items":{"not":"a list"}}]}]}`))
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}
	room := snap.Shops[0].Rooms[0]
	if len(room.Sign) != 1 || room.Sign[0] != "Gems" {
		t.Fatalf("sign=%v", room.Sign)
	}
	if len(room.Items) != 0 {
		t.Fatalf("items=%v", room.Items)
	}
}

func TestParseRemovedFileSkipsNonArrays(t *testing.T) {
	file, skipped, err := ParseRemovedFile([]byte(`{"Icemule Trace":[{"id":"1","name":"a ruby"},"junk"],"last_updated":"2025-01-01","count":3}`))
	if err != nil {
		t.Fatalf("ParseRemovedFile: %v", err)
	}
	sort.Strings(skipped)
	if len(skipped) != 2 || skipped[0] != "count" || skipped[1] != "last_updated" {
		t.Fatalf("skipped=%v", skipped)
	}
	if len(file) != 1 || len(file["Icemule Trace"]) != 2 {
		t.Fatalf("file=%v", file)
	}

	proc := NewProcessor(nil)
	items := proc.SeparateRemoved(file, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	if len(items) != 1 || items[0].Name != "a ruby" || proc.Failed() != 1 {
		t.Fatalf("items=%d failed=%d", len(items), proc.Failed())
	}

	empty, _, err := ParseRemovedFile([]byte(`{"last_updated":"2025-01-01"}`))
	if err != nil || empty == nil {
		t.Fatalf("empty=%v err=%v", empty, err)
	}
	if _, _, err := ParseRemovedFile([]byte(`[1,2]`)); err == nil {
		t.Fatal("expected error for a non-object file")
	}
}
