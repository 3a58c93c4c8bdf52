// Package worker runs no-fit polygon calculations on background goroutines.
// Requests and replies cross the goroutine boundary as JSON frames so the
// workers never share geometry with the caller.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/piwi3910/SlabNest/internal/geometry"
	"github.com/piwi3910/SlabNest/internal/model"
)

var (
	ErrClosed   = errors.New("worker pool closed")
	ErrNFP      = errors.New("nfp calculation failed")
	ErrProtocol = errors.New("worker protocol error")
)

// Pool is a fixed set of worker goroutines. Every request carries an ID
// that resolves its own reply channel, so any number of callers may wait
// on the pool at once.
type Pool struct {
	compute ComputeFunc
	logger  *slog.Logger

	frames chan []byte
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Response
}

// NewPool starts workers goroutines computing no-fit polygons in-process.
// workers <= 0 uses one per CPU. A nil logger discards output.
func NewPool(workers int, logger *slog.Logger) *Pool {
	return newPool(workers, logger, geometry.LocalNFP)
}

func newPool(workers int, logger *slog.Logger, compute ComputeFunc) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Pool{
		compute: compute,
		logger:  logger,
		frames:  make(chan []byte),
		done:    make(chan struct{}),
		pending: make(map[uint64]chan Response),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work(i)
	}
	logger.Debug("worker pool started", "workers", workers)
	return p
}

func (p *Pool) work(n int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case frame := <-p.frames:
			p.deliver(handleFrame(frame, p.compute), n)
		}
	}
}

// deliver routes a reply frame to the caller waiting on its ID.
func (p *Pool) deliver(frame []byte, worker int) {
	var resp Response
	if err := json.Unmarshal(frame, &resp); err != nil {
		p.logger.Error("undecodable reply", "worker", worker, "err", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.pending[resp.ID]
	delete(p.pending, resp.ID)
	p.mu.Unlock()
	if !ok {
		p.logger.Warn("reply without a waiting request", "worker", worker, "id", resp.ID, "type", resp.Type)
		return
	}
	if resp.Type == TypeNFPError || resp.Type == TypeError {
		p.logger.Warn("worker error", "worker", worker, "id", resp.ID, "type", resp.Type, "message", resp.Message)
	}
	ch <- resp
}

// Call sends req to the next free worker and waits for its reply. The
// request ID is assigned by the pool.
func (p *Pool) Call(ctx context.Context, req Request) (Response, error) {
	p.mu.Lock()
	if p.pending == nil {
		p.mu.Unlock()
		return Response{}, ErrClosed
	}
	p.nextID++
	req.ID = p.nextID
	ch := make(chan Response, 1)
	p.pending[req.ID] = ch
	p.mu.Unlock()

	frame, err := json.Marshal(req)
	if err != nil {
		p.forget(req.ID)
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	select {
	case p.frames <- frame:
	case <-ctx.Done():
		p.forget(req.ID)
		return Response{}, ctx.Err()
	case <-p.done:
		p.forget(req.ID)
		return Response{}, ErrClosed
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		p.forget(req.ID)
		return Response{}, ctx.Err()
	case <-p.done:
		p.forget(req.ID)
		return Response{}, ErrClosed
	}
}

func (p *Pool) forget(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		delete(p.pending, id)
	}
}

// NoFitPolygon implements the engine's calculator interface on top of Call.
func (p *Pool) NoFitPolygon(ctx context.Context, a, b model.Outline, rotA, rotB float64, ids [2]string) ([]model.Outline, error) {
	resp, err := p.Call(ctx, Request{
		Type:      TypeCalculateNFP,
		A:         a,
		B:         b,
		RotationA: rotA,
		RotationB: rotB,
		IDs:       ids,
	})
	if err != nil {
		return nil, err
	}
	switch resp.Type {
	case TypeNFPResult:
		return resp.NFP, nil
	case TypeNFPError:
		return nil, fmt.Errorf("%w: %s", ErrNFP, resp.Message)
	default:
		return nil, fmt.Errorf("%w: %s", ErrProtocol, resp.Message)
	}
}

// Close stops the workers. Requests still waiting fail with ErrClosed.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		p.mu.Lock()
		p.pending = nil
		p.mu.Unlock()
		p.logger.Debug("worker pool stopped")
	})
}
