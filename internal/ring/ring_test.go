package ring

import (
	"testing"

	"github.com/MaximushkaBed/camera-ingest-module/internal/model"
)

func frameWithSeq(seq uint64) model.Frame {
	return model.Frame{Seq: seq, Source: model.SourceHTTPPush}
}

func TestBufferEvictsOldestOnOverflow(t *testing.T) {
	b := New(5)
	for i := uint64(0); i < 7; i++ {
		b.Append(frameWithSeq(i))
	}

	if got := b.Fill(); got != 5 {
		t.Fatalf("Fill() = %d, want 5", got)
	}

	snap := b.Snapshot(5)
	if len(snap) != 5 {
		t.Fatalf("Snapshot(5) returned %d frames, want 5", len(snap))
	}
	if snap[0].Seq != 2 {
		t.Fatalf("oldest retained seq = %d, want 2 (k=%d appended, N=%d)", snap[0].Seq, 7, 5)
	}
	for i, f := range snap {
		want := uint64(2 + i)
		if f.Seq != want {
			t.Fatalf("snapshot[%d].Seq = %d, want %d", i, f.Seq, want)
		}
	}
}

func TestBufferLatestEmpty(t *testing.T) {
	b := New(3)
	if _, ok := b.Latest(); ok {
		t.Fatal("Latest() on empty buffer returned ok=true")
	}
	if snap := b.Snapshot(10); snap != nil {
		t.Fatalf("Snapshot on empty buffer = %v, want nil", snap)
	}
}

func TestBufferLatestReflectsLastAppend(t *testing.T) {
	b := New(3)
	b.Append(frameWithSeq(0))
	b.Append(frameWithSeq(1))
	b.Append(frameWithSeq(2))

	f, ok := b.Latest()
	if !ok || f.Seq != 2 {
		t.Fatalf("Latest() = %+v, ok=%v, want seq=2", f, ok)
	}
}

func TestBufferSnapshotClampsToFill(t *testing.T) {
	b := New(10)
	b.Append(frameWithSeq(0))
	b.Append(frameWithSeq(1))

	snap := b.Snapshot(10)
	if len(snap) != 2 {
		t.Fatalf("Snapshot(10) with 2 appended = %d frames, want 2", len(snap))
	}
}

func TestBufferMinimumCapacity(t *testing.T) {
	b := New(0)
	if b.Capacity() != 1 {
		t.Fatalf("Capacity() = %d, want 1 for clamped input", b.Capacity())
	}
}
