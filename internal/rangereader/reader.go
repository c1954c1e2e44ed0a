// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rangereader implements one HTTP range-GET stream backed by a
// bounded sliding buffer, per spec.md §4.1. ~40% of the core per spec.md
// §2: the producer/consumer synchronization, backpressure, timeout and
// cancellation of a single reader.
//
// Grounded on tingold-gocog's http_range_reader.go (fetchRange's
// Range: bytes=N-M header construction and status-code handling) and
// generalized from a single-shot fetch into a streaming producer with a
// sliding buffer, per spec.md §4.1.
package rangereader

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/googlecloudplatform/httprangefs/internal/dataaddr"
	"github.com/googlecloudplatform/httprangefs/internal/logger"
	"github.com/valyala/fasthttp"
)

// Reference values from spec.md §4.1 and §9.
const (
	DefaultMaxBufferSize        = 1 << 20 // 1 MiB
	DefaultBufferFillRecheck    = 10 * time.Millisecond
	DefaultResponseAwaitTimeout = 10 * time.Second
	fetchChunkSize              = 64 * 1024
)

// ProducerState mirrors spec.md §3's producer_state enum.
type ProducerState int32

const (
	StateStarting ProducerState = iota
	StateFetching
	StatePausedBackpressure
	StateStopped
	StateErrored
)

func (s ProducerState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateFetching:
		return "fetching"
	case StatePausedBackpressure:
		return "paused-backpressure"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Header is a verbatim outbound request header, spec.md §6's
// "--additional_header", passed through to both HEAD and GET requests.
type Header struct {
	Name  string
	Value string
}

// Config tunes the reference values the spec calls out as tunable.
type Config struct {
	MaxBufferSize        int64
	BufferFillRecheck     time.Duration
	ResponseAwaitTimeout  time.Duration
	// PrependReserve retains this many already-drained bytes ahead of
	// base_offset so small backward seeks don't spawn a new reader — the
	// "prepend reserve" variant from spec.md §4.1 phase 3 / §9. Zero
	// disables it (the simpler "drop everything" variant).
	PrependReserve int64
}

// DefaultConfig returns the spec's reference tunables.
func DefaultConfig() Config {
	return Config{
		MaxBufferSize:        DefaultMaxBufferSize,
		BufferFillRecheck:    DefaultBufferFillRecheck,
		ResponseAwaitTimeout: DefaultResponseAwaitTimeout,
	}
}

// Reader is one HTTP range-GET stream with a sliding byte buffer. See
// spec.md §3 "RangeReader" for the field-level invariants.
type Reader struct {
	url          string
	headers      []Header
	client       *fasthttp.Client
	resourceSize int64
	cfg          Config

	// offMu guards baseOffset. Acquired buffer -> offset when both locks
	// are needed, per spec.md §9's deadlock-avoidance note.
	offMu      sync.Mutex
	baseOffset int64

	bufMu  sync.Mutex
	buffer []byte

	stopped atomic.Bool

	stateMu sync.Mutex
	state   ProducerState

	done chan struct{}
}

// New constructs a Reader without performing I/O; callers must call Start
// exactly once (spec.md §4.1 "Construction").
func New(url string, startOffset, resourceSize int64, headers []Header, client *fasthttp.Client, cfg Config) *Reader {
	if cfg.MaxBufferSize <= 0 {
		cfg.MaxBufferSize = DefaultMaxBufferSize
	}
	if cfg.BufferFillRecheck <= 0 {
		cfg.BufferFillRecheck = DefaultBufferFillRecheck
	}
	if cfg.ResponseAwaitTimeout <= 0 {
		cfg.ResponseAwaitTimeout = DefaultResponseAwaitTimeout
	}
	return &Reader{
		url:          url,
		headers:      headers,
		client:       client,
		resourceSize: resourceSize,
		cfg:          cfg,
		baseOffset:   startOffset,
		done:         make(chan struct{}),
	}
}

// BaseOffset returns the absolute offset of byte 0 of the live buffer.
func (r *Reader) BaseOffset() int64 {
	r.offMu.Lock()
	defer r.offMu.Unlock()
	return r.baseOffset
}

// State returns the producer's current state.
func (r *Reader) State() ProducerState {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.state
}

func (r *Reader) setState(s ProducerState) {
	r.stateMu.Lock()
	r.state = s
	r.stateMu.Unlock()
}

// Stop requests the producer terminate its HTTP transfer. Idempotent:
// calling it twice is indistinguishable from calling it once (spec.md §8).
func (r *Reader) Stop() {
	r.stopped.Store(true)
}

func (r *Reader) stopRequested() bool {
	return r.stopped.Load()
}

// Start launches the producer task. Must be called exactly once.
func (r *Reader) Start() {
	go r.fetchingLoop()
}

// Done is closed once the producer has terminated (natural EOF, transport
// error, or stop).
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

func (r *Reader) bufferLen() int64 {
	r.bufMu.Lock()
	defer r.bufMu.Unlock()
	return int64(len(r.buffer))
}

// fetchingLoop is the producer task: spec.md §4.1 "Producer task —
// fetching_loop".
func (r *Reader) fetchingLoop() {
	defer close(r.done)
	r.setState(StateStarting)

	start := r.BaseOffset()

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.url)
	req.Header.SetMethod("GET")
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	for _, h := range r.headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp.StreamBody = true
	if err := r.client.Do(req, resp); err != nil {
		logger.Warnf("rangereader: GET %s failed: %v", r.url, err)
		r.setState(StateErrored)
		return
	}

	status := resp.StatusCode()
	if status != fasthttp.StatusPartialContent && status != fasthttp.StatusOK {
		logger.Warnf("rangereader: GET %s: unexpected status %d", r.url, status)
		r.setState(StateErrored)
		return
	}

	// spec.md §9 "HTTP semantics gap": reject a response whose
	// Content-Range start doesn't match what we asked for, rather than
	// silently consuming bytes from the wrong offset.
	if got, ok := parseContentRangeStart(string(resp.Header.Peek("Content-Range"))); ok {
		if got != start {
			logger.Warnf("rangereader: GET %s: Content-Range start %d != requested %d", r.url, got, start)
			r.setState(StateErrored)
			return
		}
	} else if status == fasthttp.StatusOK && start != 0 {
		logger.Warnf("rangereader: GET %s: server returned full body for range request at %d", r.url, start)
		r.setState(StateErrored)
		return
	}

	stream := resp.BodyStream()
	chunk := make([]byte, fetchChunkSize)

	for {
		if r.stopRequested() {
			r.setState(StateStopped)
			return
		}

		// Backpressure: spin while the buffer is at capacity, per
		// spec.md §4.1 step 1. The next chance to observe stop is at
		// most BufferFillRecheck later.
		for r.bufferLen() >= r.cfg.MaxBufferSize {
			if r.stopRequested() {
				r.setState(StateStopped)
				return
			}
			r.setState(StatePausedBackpressure)
			time.Sleep(r.cfg.BufferFillRecheck)
		}
		r.setState(StateFetching)

		n, err := stream.Read(chunk)
		if n > 0 {
			r.append(chunk[:n])
		}
		if err != nil {
			if err != io.EOF {
				logger.Warnf("rangereader: GET %s: transport error mid-stream: %v", r.url, err)
				r.setState(StateErrored)
			} else {
				r.setState(StateStopped)
			}
			return
		}
	}
}

func (r *Reader) append(chunk []byte) {
	r.bufMu.Lock()
	r.buffer = append(r.buffer, chunk...)
	r.bufMu.Unlock()
}

// TryDrain attempts to serve addr from this reader's buffer. It returns
// (nil, false) when this reader cannot serve the request (either because
// it has already advanced past it, the range is out of its reach even at
// full buffer, or the wait for data timed out) — spec.md §4.1 "Consumer
// operation".
func (r *Reader) TryDrain(ctx context.Context, addr dataaddr.DataAddr, resourceSize int64) ([]byte, bool) {
	offset, size := addr.Offset, addr.Size
	if addr.Empty() {
		return []byte{}, true
	}
	if offset == resourceSize {
		return []byte{}, true
	}

	// Phase 1: address translation.
	base := r.BaseOffset()
	if offset < base {
		return nil, false
	}
	if addr.End() > base+r.cfg.MaxBufferSize {
		return nil, false
	}

	// Phase 2: wait for fill.
	requiredEnd := addr.End()
	if resourceSize < requiredEnd {
		requiredEnd = resourceSize
	}
	deadline := time.Now().Add(r.cfg.ResponseAwaitTimeout)
	for {
		base = r.BaseOffset()
		if base+r.bufferLen() >= requiredEnd {
			break
		}
		select {
		case <-ctx.Done():
			return nil, false
		default:
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		time.Sleep(r.cfg.BufferFillRecheck)
	}

	// Phase 3: drain. buffer -> offset lock order, per spec.md §9.
	r.bufMu.Lock()
	r.offMu.Lock()
	rel := offset - r.baseOffset
	if rel < 0 {
		// base_offset advanced past us between phase 1/2 and here under
		// concurrent drains; report as unservable rather than panic.
		r.offMu.Unlock()
		r.bufMu.Unlock()
		return nil, false
	}
	end := rel + size
	if end > int64(len(r.buffer)) {
		end = int64(len(r.buffer))
	}
	if rel > end {
		rel = end
	}
	out := make([]byte, end-rel)
	copy(out, r.buffer[rel:end])

	advance := rel
	if r.cfg.PrependReserve > 0 {
		if advance > r.cfg.PrependReserve {
			advance -= r.cfg.PrependReserve
		} else {
			advance = 0
		}
	}
	r.baseOffset += advance
	r.buffer = r.buffer[advance:]
	r.offMu.Unlock()
	r.bufMu.Unlock()

	return out, true
}

// parseContentRangeStart extracts the start offset from a header of the
// form "bytes 100-199/2000".
func parseContentRangeStart(header string) (int64, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	header = strings.TrimPrefix(header, "bytes ")
	dash := strings.IndexByte(header, '-')
	if dash < 0 {
		return 0, false
	}
	start, err := strconv.ParseInt(header[:dash], 10, 64)
	if err != nil {
		return 0, false
	}
	return start, true
}
