package usecase

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"camclip/internal/ports"
)

func TestRecorderFinalizedAssetEqualsChunkConcatenation(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		payload := make([]byte, 1+rng.Intn(64*1024))
		rng.Read(payload)

		encoder := newFakeEncoder()
		factory := &fakeEncoderFactory{encoders: []*fakeEncoder{encoder}}
		rec, err := startRecorder(factory, &fakeStream{id: "s"}, ports.EncoderOptions{MIMEType: "video/webm"})
		if err != nil {
			t.Fatalf("start recorder: %v", err)
		}

		go func(data []byte) {
			for len(data) > 0 {
				n := 1 + rng.Intn(4096)
				if n > len(data) {
					n = len(data)
				}
				encoder.emit(append([]byte(nil), data[:n]...))
				data = data[n:]
			}
			_ = encoder.Stop()
		}(payload)

		<-rec.done
		asset, err := rec.stop(context.Background())
		if err != nil {
			t.Fatalf("stop recorder: %v", err)
		}
		if !bytes.Equal(asset.Data, payload) {
			t.Fatalf("round %d: finalized asset differs from emitted chunks", round)
		}
		if asset.MIMEType != "video/webm" {
			t.Fatalf("unexpected mime type %q", asset.MIMEType)
		}
		_, size := rec.stats()
		if size != int64(len(payload)) {
			t.Fatalf("round %d: expected size %d, got %d", round, len(payload), size)
		}
	}
}

func TestStartRecorderRejectsNilEncoder(t *testing.T) {
	t.Parallel()

	_, err := startRecorder(nilEncoderFactory{}, &fakeStream{}, ports.EncoderOptions{})
	if !errors.Is(err, ErrEncoderConstruction) {
		t.Fatalf("expected encoder construction error, got %v", err)
	}
}

func TestRecorderStopReportsStopError(t *testing.T) {
	t.Parallel()

	encoder := newFakeEncoder()
	encoder.stopErr = errors.New("signal failed")
	factory := &fakeEncoderFactory{encoders: []*fakeEncoder{encoder}}
	rec, err := startRecorder(factory, &fakeStream{}, ports.EncoderOptions{})
	if err != nil {
		t.Fatalf("start recorder: %v", err)
	}
	encoder.emit([]byte("x"))

	asset, err := rec.stop(context.Background())
	if err == nil || !errors.Is(err, encoder.stopErr) {
		t.Fatalf("expected stop error, got %v", err)
	}
	if string(asset.Data) != "x" {
		t.Fatalf("expected received data despite error, got %q", asset.Data)
	}
}

func TestRecorderStopTimeoutFreezesAndReleasesPump(t *testing.T) {
	t.Parallel()

	encoder := newFakeEncoder()
	encoder.hang = true
	factory := &fakeEncoderFactory{encoders: []*fakeEncoder{encoder}}
	rec, err := startRecorder(factory, &fakeStream{}, ports.EncoderOptions{})
	if err != nil {
		t.Fatalf("start recorder: %v", err)
	}
	encoder.emit([]byte("kept"))
	waitFor(t, func() bool {
		chunks, _ := rec.stats()
		return chunks == 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	asset, err := rec.stop(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if string(asset.Data) != "kept" {
		t.Fatalf("expected received data, got %q", asset.Data)
	}

	encoder.emit([]byte("dropped"))
	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatalf("pump still running after stop gave up")
	}
	if chunks, size := rec.stats(); chunks != 1 || size != 4 {
		t.Fatalf("expected frozen totals of 1 chunk and 4 bytes, got %d and %d", chunks, size)
	}
}

type nilEncoderFactory struct{}

func (nilEncoderFactory) NewEncoder(_ ports.CaptureStream, _ ports.EncoderOptions) (ports.Encoder, error) {
	return nil, nil
}
