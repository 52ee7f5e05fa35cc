package preview_test

import (
	"bytes"
	"sync"
	"testing"

	"capdeck/internal/preview"
)

func TestSinkPublishesCompletedFrames(t *testing.T) {
	var presented []preview.Frame
	sink := preview.NewSink(2, 1, preview.SurfaceFunc(func(f preview.Frame) { presented = append(presented, f) }))

	if _, ok := sink.Snapshot(); ok {
		t.Fatal("expected no snapshot before the first frame")
	}

	if err := sink.Receive([]byte{1, 2, 3}, 0); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := sink.Receive([]byte{4, 5, 6, 7, 8}, 3); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	sink.FrameComplete()

	if len(presented) != 1 {
		t.Fatalf("expected one presented frame, got %d", len(presented))
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(presented[0].Pix, want) {
		t.Fatalf("presented %v, want %v", presented[0].Pix, want)
	}

	snap, ok := sink.Snapshot()
	if !ok || snap.Sequence != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	snap.Pix[0] = 99
	again, _ := sink.Snapshot()
	if again.Pix[0] != 1 {
		t.Fatal("snapshot must be independent of the published buffer")
	}
}

func TestSinkRejectsOutOfRangeChunks(t *testing.T) {
	sink := preview.NewSink(1, 1, nil)
	if err := sink.Receive([]byte{1, 2, 3}, 2); err == nil {
		t.Fatal("expected error for chunk past frame end")
	}
}

func TestSnapshotNeverTorn(t *testing.T) {
	const width, height = 16, 16
	sink := preview.NewSink(width, height, nil)
	frame := make([]byte, sink.FrameLen())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap, ok := sink.Snapshot()
			if !ok {
				continue
			}
			first := snap.Pix[0]
			for _, b := range snap.Pix {
				if b != first {
					t.Errorf("torn snapshot: saw %d and %d", first, b)
					return
				}
			}
		}
	}()

	for i := 0; i < 200; i++ {
		for j := range frame {
			frame[j] = byte(i)
		}
		half := len(frame) / 2
		_ = sink.Receive(frame[:half], 0)
		_ = sink.Receive(frame[half:], half)
		sink.FrameComplete()
	}
	close(stop)
	wg.Wait()
}

func TestFrameImageConvertsChannels(t *testing.T) {
	frame := preview.Frame{Width: 1, Height: 1, Pix: []byte{10, 20, 30, 0}}
	img := frame.Image()
	got := img.Pix[:4]
	want := []byte{30, 20, 10, 255}
	if !bytes.Equal(got, want) {
		t.Fatalf("Image pixels %v, want %v", got, want)
	}
}
