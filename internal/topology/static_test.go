package topology

import (
	"testing"

	"github.com/mikey-austin/lumen/pkg/lumen"
)

func TestStaticSnapshotIsCopy(t *testing.T) {
	p := NewStatic(lumen.Topology{"A": {Width: 10, Height: 10}})
	snap, _ := p.Snapshot()
	snap["B"] = lumen.Geometry{}
	again, _ := p.Snapshot()
	if len(again) != 1 {
		t.Fatalf("snapshot must not alias provider state")
	}
}

func TestStaticSetSignalsOnlyOnChange(t *testing.T) {
	p := NewStatic(lumen.Topology{"A": {Width: 10, Height: 10}})
	p.Set(lumen.Topology{"A": {Width: 10, Height: 10}})
	select {
	case <-p.Changes():
		t.Fatalf("unexpected change signal")
	default:
	}

	p.Set(lumen.Topology{"A": {Width: 20, Height: 10}})
	p.Set(lumen.Topology{"A": {Width: 30, Height: 10}})
	select {
	case <-p.Changes():
	default:
		t.Fatalf("expected change signal")
	}
	select {
	case <-p.Changes():
		t.Fatalf("signals must coalesce")
	default:
	}
	snap, _ := p.Snapshot()
	if snap["A"].Width != 30 {
		t.Fatalf("expected latest topology")
	}
}

func TestFromSpecs(t *testing.T) {
	p, err := FromSpecs([]string{"eDP-1=1920x1080+0+1600", "DP-1=2560x1440+1920+600"})
	if err != nil {
		t.Fatalf("from specs: %v", err)
	}
	snap, _ := p.Snapshot()
	if len(snap) != 2 || snap["DP-1"].X != 1920 {
		t.Fatalf("unexpected topology %+v", snap)
	}
	if _, err := FromSpecs([]string{"bad"}); err == nil {
		t.Fatalf("expected error")
	}
}
