package asset

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestAsset(name string) *AudioAsset {
	return &AudioAsset{
		ID:         uuid.New(),
		Name:       name,
		Data:       []byte("audio-bytes"),
		Duration:   12.5,
		UploadedAt: time.Now(),
	}
}

func TestRegistryNewestFirst(t *testing.T) {
	r := NewRegistry()
	first := newTestAsset("first.mp3")
	second := newTestAsset("second.mp3")

	r.Add(first)
	r.Add(second)

	recent := r.Recent()
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].ID != second.ID {
		t.Errorf("expected newest upload first, got %s", recent[0].Name)
	}
	if recent[1].ID != first.ID {
		t.Errorf("expected oldest upload last, got %s", recent[1].Name)
	}
}

func TestRegistryEvictsBeyondCap(t *testing.T) {
	r := NewRegistry()

	assets := make([]*AudioAsset, 0, 11)
	for i := 0; i < 11; i++ {
		a := newTestAsset("upload.mp3")
		assets = append(assets, a)
		r.Add(a)
	}

	recent := r.Recent()
	if len(recent) != 10 {
		t.Fatalf("expected registry capped at 10, got %d", len(recent))
	}
	if recent[0].ID != assets[10].ID {
		t.Error("expected the 11th addition to be first in iteration order")
	}
	if _, ok := r.Get(assets[0].ID); ok {
		t.Error("expected the first addition to be evicted")
	}
	if _, ok := r.Get(assets[1].ID); !ok {
		t.Error("expected the second addition to still be present")
	}
}

func TestRegistryKeepsDuplicateUploads(t *testing.T) {
	r := NewRegistry()
	a := newTestAsset("dup.mp3")
	b := newTestAsset("dup.mp3")

	r.Add(a)
	r.Add(b)

	if len(r.Recent()) != 2 {
		t.Error("expected repeated uploads of the same bytes to create distinct entries")
	}
}

func TestWithTranscriptReturnsCopy(t *testing.T) {
	a := newTestAsset("episode.mp3")
	tr := &Transcript{Text: "hello", Segments: []Segment{{ID: "segment-0", End: 1, Text: "hello"}}}

	b := a.WithTranscript(tr)

	if a.Transcript != nil {
		t.Error("expected original asset to stay untouched")
	}
	if b.Transcript != tr {
		t.Error("expected copy to carry the transcript")
	}
	if b.ID != a.ID || b.Name != a.Name {
		t.Error("expected copy to keep identity and name")
	}
}
