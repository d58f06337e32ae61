// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool provides typed object pools for the buffers used when encoding
// wire payloads.
package pool

import (
	"bytes"
	"strings"
	"sync"
)

// Pool is a generics wrapper around [sync.Pool].
type Pool[T any] struct {
	p sync.Pool
}

// Resetter is implemented by pooled values that must be cleared before reuse.
type Resetter interface {
	Reset()
}

// New returns a new [Pool] for T, using fn to construct values when the pool is empty.
func New[T any](fn func() T) *Pool[T] {
	return &Pool[T]{
		p: sync.Pool{
			New: func() any {
				return fn()
			},
		},
	}
}

// Get gets a T from the pool, or creates a new one.
func (p *Pool[T]) Get() T {
	return p.p.Get().(T)
}

// Put resets x when it implements [Resetter] and returns it to the pool.
func (p *Pool[T]) Put(x T) {
	if r, ok := any(x).(Resetter); ok {
		r.Reset()
	}
	p.p.Put(x)
}

// Bytes pools [*bytes.Buffer] values for JSON encoding.
var Bytes = New(func() *bytes.Buffer {
	return &bytes.Buffer{}
})

// Builder pools [*strings.Builder] values for SSE framing.
var Builder = New(func() *strings.Builder {
	return &strings.Builder{}
})
