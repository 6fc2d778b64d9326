package usecase

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"camclip/internal/domain"
	"camclip/internal/ports"
)

// recorder buffers the chunks of one recording attempt and finalizes them
// into a single asset.
type recorder struct {
	encoder  ports.Encoder
	mimeType string

	mu     sync.Mutex
	chunks [][]byte
	count  int
	size   int64
	frozen bool

	done        chan struct{}
	abandon     chan struct{}
	abandonOnce sync.Once
	err         error
}

func startRecorder(factory ports.EncoderFactory, stream ports.CaptureStream, opts ports.EncoderOptions) (*recorder, error) {
	encoder, err := factory.NewEncoder(stream, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoderConstruction, err)
	}
	if encoder == nil {
		return nil, fmt.Errorf("%w: factory returned no encoder", ErrEncoderConstruction)
	}
	if err := encoder.Start(); err != nil {
		return nil, fmt.Errorf("%w: start: %w", ErrEncoderConstruction, err)
	}

	r := &recorder{
		encoder:  encoder,
		mimeType: opts.MIMEType,
		done:     make(chan struct{}),
		abandon:  make(chan struct{}),
	}
	go r.pump()
	return r, nil
}

// pump drains the encoder until it signals completion by closing Data, or
// until the recorder is abandoned.
func (r *recorder) pump() {
	defer close(r.done)

	data := r.encoder.Data()
	for {
		select {
		case <-r.abandon:
			return
		case chunk, ok := <-data:
			if !ok {
				if err := r.encoder.Err(); err != nil {
					r.mu.Lock()
					r.err = err
					r.mu.Unlock()
				}
				return
			}
			if len(chunk) == 0 {
				continue
			}
			r.mu.Lock()
			if !r.frozen {
				r.chunks = append(r.chunks, chunk)
				r.count++
				r.size += int64(len(chunk))
			}
			r.mu.Unlock()
		}
	}
}

// stop signals the encoder to finalize and waits for the pump to drain. On
// timeout the chunks received so far are returned with the error and later
// chunks are dropped.
func (r *recorder) stop(ctx context.Context) (domain.Asset, error) {
	stopErr := r.encoder.Stop()

	select {
	case <-r.done:
	case <-ctx.Done():
		r.release()
		return r.freeze(), fmt.Errorf("encoder did not finish: %w", ctx.Err())
	}

	asset := r.freeze()
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()
	if err == nil && stopErr != nil {
		err = stopErr
	}
	if err != nil {
		return asset, fmt.Errorf("encoder finished with error: %w", err)
	}
	return asset, nil
}

// discard stops the encoder without waiting for finalization.
func (r *recorder) discard() {
	_ = r.encoder.Stop()
	r.release()
	r.freeze()
}

// release ends the pump without waiting for the encoder.
func (r *recorder) release() {
	r.abandonOnce.Do(func() { close(r.abandon) })
}

// freeze stops accepting chunks and returns the asset built from the chunks
// received so far. stats keeps reporting what the asset holds.
func (r *recorder) freeze() domain.Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	asset := domain.Asset{
		MIMEType: r.mimeType,
		Data:     bytes.Join(r.chunks, nil),
	}
	r.chunks = nil
	return asset
}

func (r *recorder) stats() (int, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count, r.size
}
