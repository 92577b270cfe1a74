/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package schema implements the persistent ASN1Node tree and its
// session-scoped overlay mechanism: one schema instance, reused across many
// concurrent messages, where a (session-id, linked-node) pair on each node
// decides what is "present" in a given encoding.
package schema

import (
	libatm "github.com/minkfabric/mink/atomic"
	"github.com/minkfabric/mink/gdt/tlv"
)

// Overlay is the per-node (session-id, linked-node) pair from the data
// model. A node is "present" in an encoding for a session when SessionID
// equals that session and the node is bound, either to Linked or to raw
// octets (see Present).
type Overlay struct {
	SessionID uint64
	Linked    *Node
}

// Node is a persistent schema tree node (ASN1Node). The tree owns its
// children exclusively; Overlay is a non-owning alias onto whichever
// value node is bound for the current session.
type Node struct {
	Desc     *tlv.Descriptor
	Name     string
	Children []*Node
	parent   *Node

	Optional bool
	Choice   bool // container is a CHOICE: exactly one child may be present
	Any      bool // ANY: consumes/produces opaque octets verbatim
	Selected int  // index of the selected child, valid when Choice is true

	overlay Overlay
	raw     []byte // opaque payload for leaf/ANY nodes bound directly (no Linked child)
}

// NewNode allocates a schema node with the given descriptor. Children are
// attached with AddChild, which also wires the parent back-reference.
func NewNode(name string, desc *tlv.Descriptor) *Node {
	return &Node{Desc: desc, Name: name}
}

// AddChild appends a child in schema (positional) order and sets its
// parent back-reference.
func (n *Node) AddChild(c *Node) *Node {
	c.parent = n
	n.Children = append(n.Children, c)
	return n
}

// Parent returns the non-owning parent back-reference, nil at the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Tree is the arena owning a full message's schema nodes plus the
// thread-local "current session" comparison cell (teacher: atomic.Value[T],
// used here instead of a bare field so concurrent encode/decode callers
// never race on a raw uint64).
type Tree struct {
	Root    *Node
	current libatm.Value[uint64]
}

// NewTree wraps root as the arena's entry point.
func NewTree(root *Node) *Tree {
	t := &Tree{Root: root, current: libatm.NewValue[uint64]()}
	return t
}

// SetCurrentSession records a session id that CurrentSession returns until
// changed again. Encode, Decode and Present take the session id as an
// argument and do not read this value.
func (t *Tree) SetCurrentSession(id uint64) {
	t.current.Store(id)
}

// CurrentSession returns the session id set by SetCurrentSession.
func (t *Tree) CurrentSession() uint64 {
	return t.current.Load()
}
