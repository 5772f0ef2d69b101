package flatjson

import (
	"sync"
)

// Pool hands out codecs for one schema. Get returns the pool's default codec
// when nobody holds it and mints a fresh default otherwise, so callers that
// release promptly share one loaded schema while overlapping callers never
// share mutable codec state. The pool's bookkeeping is safe for concurrent
// use; the codecs it returns are not.
type Pool[T any, PT Root[T]] struct {
	modules []SchemaModule
	opts    []Option
	o       options

	mu      sync.Mutex
	current *Codec[T, PT]
	holders map[*Codec[T, PT]]int
	minted  int
}

// NewPool returns a pool whose codecs are built from modules and opts.
func NewPool[T any, PT Root[T]](modules []SchemaModule, opts ...Option) (*Pool[T, PT], error) {
	first, err := NewCodec[T, PT](modules, opts...)
	if err != nil {
		return nil, err
	}
	return &Pool[T, PT]{
		modules: first.modules,
		opts:    append([]Option(nil), opts...),
		o:       first.opts,
		current: first,
		holders: map[*Codec[T, PT]]int{},
		minted:  1,
	}, nil
}

// Get checks out a codec. The lease must be released when the caller is done.
func (p *Pool[T, PT]) Get() *Lease[T, PT] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.holders[p.current] > 0 {
		// modules were validated by NewPool
		p.current, _ = NewCodec[T, PT](p.modules, p.opts...)
		p.minted++
		p.o.logger.Debug("codec pool minted a new default", "minted", p.minted)
	}
	p.holders[p.current]++
	return &Lease[T, PT]{pool: p, codec: p.current}
}

// Holders returns how many leases currently hold the default codec.
func (p *Pool[T, PT]) Holders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holders[p.current]
}

// Minted returns how many codecs the pool has built, including the first.
func (p *Pool[T, PT]) Minted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minted
}

func (p *Pool[T, PT]) release(c *Codec[T, PT]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.holders[c] <= 1 {
		delete(p.holders, c)
		return
	}
	p.holders[c]--
}

// Lease is a checked-out codec.
type Lease[T any, PT Root[T]] struct {
	pool  *Pool[T, PT]
	codec *Codec[T, PT]
	once  sync.Once
}

// Codec returns the leased codec. Do not use it after Release.
func (l *Lease[T, PT]) Codec() *Codec[T, PT] { return l.codec }

// Release checks the codec back in. Calling it more than once is a no-op.
func (l *Lease[T, PT]) Release() {
	l.once.Do(func() { l.pool.release(l.codec) })
}
