// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import "testing"

type counter struct{ n int }

func (c *counter) Reset() { c.n = 0 }

func TestPutResets(t *testing.T) {
	p := New(func() *counter { return &counter{} })

	c := p.Get()
	c.n = 42
	p.Put(c)
	if c.n != 0 {
		t.Errorf("Put() left n = %d, want 0", c.n)
	}
}

func TestBytesReset(t *testing.T) {
	buf := Bytes.Get()
	buf.WriteString("payload")
	Bytes.Put(buf)
	if buf.Len() != 0 {
		t.Errorf("Bytes.Put() left %d bytes", buf.Len())
	}

	b := Builder.Get()
	b.WriteString("data: x")
	Builder.Put(b)
	if b.Len() != 0 {
		t.Errorf("Builder.Put() left %d bytes", b.Len())
	}
}
