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

// Package readerpool implements the bounded, FIFO-ordered collection of
// RangeReaders that mediates between kernel read requests and HTTP range
// streams, per spec.md §4.2. ~25% of the core per spec.md §2.
package readerpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/googlecloudplatform/httprangefs/common"
	"github.com/googlecloudplatform/httprangefs/internal/dataaddr"
	"github.com/googlecloudplatform/httprangefs/internal/logger"
	"github.com/googlecloudplatform/httprangefs/internal/rangereader"
	"github.com/googlecloudplatform/httprangefs/metrics"
	"github.com/valyala/fasthttp"
)

// DefaultMaxReaders is the reference value from spec.md §3.
const DefaultMaxReaders = 5

// Pool is the bounded ordered collection of live RangeReaders. The pool
// lock is held across serve's three steps (scan, spawn, evict) — spec.md
// §4.2 calls this out explicitly: it serializes concurrent kernel reads
// at the pool boundary so two racing reads can never create duplicate
// readers for the same offset, at the cost of not parallelizing readers
// within a single pool.
type Pool struct {
	url          string
	headers      []rangereader.Header
	client       *fasthttp.Client
	resourceSize int64
	cfg          rangereader.Config
	maxReaders   int
	metrics      *metrics.Metrics

	lock    sync.Mutex
	readers common.Queue[*rangereader.Reader]
}

// Option configures a new Pool.
type Option func(*Pool)

// WithMaxReaders overrides DefaultMaxReaders.
func WithMaxReaders(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxReaders = n
		}
	}
}

// WithMetrics attaches a metrics sink; nil is valid and turns metrics off.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// New constructs an empty pool for a single resource.
func New(url string, resourceSize int64, headers []rangereader.Header, client *fasthttp.Client, cfg rangereader.Config, opts ...Option) *Pool {
	p := &Pool{
		url:          url,
		headers:      headers,
		client:       client,
		resourceSize: resourceSize,
		cfg:          cfg,
		maxReaders:   DefaultMaxReaders,
		readers:      common.NewLinkedListQueue[*rangereader.Reader](),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Serve answers a kernel read request, spec.md §4.2 "serve(addr) ->
// bytes". It never fails outright (spec.md §7): a timed-out or
// unservable request degrades to a short read, never an error, except
// when offset is entirely outside the resource.
func (p *Pool) Serve(ctx context.Context, offset, size int64) ([]byte, error) {
	if offset < 0 || size < 0 {
		return nil, fmt.Errorf("readerpool: invalid range offset=%d size=%d", offset, size)
	}
	if offset > p.resourceSize {
		return nil, fmt.Errorf("readerpool: offset %d beyond resource size %d", offset, p.resourceSize)
	}
	return p.ServeAddr(ctx, dataaddr.New(offset, size))
}

// ServeAddr is Serve expressed in terms of the DataAddr value object,
// spec.md §3's "absolute-offset address of a byte range".
func (p *Pool) ServeAddr(ctx context.Context, addr dataaddr.DataAddr) ([]byte, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	var (
		served []byte
		hit    bool
	)
	p.readers.Each(func(r *rangereader.Reader) bool {
		if data, ok := r.TryDrain(ctx, addr, p.resourceSize); ok {
			served = data
			hit = true
			return false
		}
		return true
	})
	if hit {
		p.metrics.ReaderHit()
		p.metrics.BytesServed(len(served))
		return served, nil
	}

	logger.Debugf("readerpool: no existing reader serves %s; spawning new reader", addr)
	nr := rangereader.New(p.url, addr.Offset, p.resourceSize, p.headers, p.client, p.cfg)
	nr.Start()
	p.readers.Push(nr)
	p.metrics.ReaderCreated()

	data, ok := nr.TryDrain(ctx, addr, p.resourceSize)
	if !ok {
		logger.Warnf("readerpool: new reader at %d timed out before serving %s; returning short read", addr.Offset, addr)
		data = []byte{}
		p.metrics.ServeTimeout()
	}
	p.metrics.BytesServed(len(data))

	for p.readers.Len() > p.maxReaders {
		oldest := p.readers.Pop()
		oldest.Stop()
		p.metrics.ReaderEvicted()
	}

	return data, nil
}

// Len reports the current number of live readers, used by tests to
// assert the spec.md §8 bounded-pool-size property.
func (p *Pool) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.readers.Len()
}

// Close stops every live reader, used at unmount.
func (p *Pool) Close() {
	p.lock.Lock()
	defer p.lock.Unlock()
	for p.readers.Len() > 0 {
		p.readers.Pop().Stop()
	}
}
