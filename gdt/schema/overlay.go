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

package schema

// SetRaw binds this leaf node to raw value octets for the given session and
// propagates the resulting length delta up the parent chain. This is the
// common case for OCTET STRING / UTF8String / INTEGER leaves: the "linked
// node" is implicit (the raw bytes themselves) rather than another schema
// node.
func (n *Node) SetRaw(sessionID uint64, value []byte) {
	n.overlay = Overlay{SessionID: sessionID}
	n.raw = value
	n.Desc.ValueLength = len(value)
	n.Desc.Recompute()
	n.propagateDelta(sessionID)
}

// SetLinked binds this node's overlay to another schema node (e.g. a
// constructed SEQUENCE reusing a sibling subtree) for the given session.
func (n *Node) SetLinked(sessionID uint64, linked *Node) {
	n.overlay = Overlay{SessionID: sessionID, Linked: linked}
	n.raw = nil
	if linked != nil {
		n.Desc.ValueLength = linked.Desc.EncodedSize()
	}
	n.Desc.Recompute()
	n.propagateDelta(sessionID)
}

// Unlink clears the overlay for sessionID, pinning the node's effective
// length to zero so the parent shrinks symmetrically (spec §3: "pins its
// effective length to a sentinel"). A no-op if the node's current overlay
// belongs to a different session.
func (n *Node) Unlink(sessionID uint64) {
	if n.overlay.SessionID != sessionID {
		return
	}
	n.overlay = Overlay{}
	n.raw = nil
	n.Desc.ValueLength = 0
	n.Desc.Recompute()
	n.propagateDelta(sessionID)
}

// Present reports whether n carries a binding for sessionID — "present in
// that encoding" per spec §3. A CHOICE or SEQUENCE/SET container with at
// least one present child is also considered present, since its own value
// length is derived from its children rather than from a raw payload.
func (n *Node) Present(sessionID uint64) bool {
	if n.overlay.SessionID == sessionID && (n.raw != nil || n.overlay.Linked != nil) {
		return true
	}
	for _, c := range n.Children {
		if n.Choice && c != n.Children[n.Selected] {
			continue
		}
		if c.Present(sessionID) {
			return true
		}
	}
	return false
}

// Raw returns the bound payload octets for a leaf/ANY node, or nil.
func (n *Node) Raw() []byte {
	return n.raw
}

// propagateDelta recomputes every constructed ancestor's value length from
// its present children's encoded sizes, for the session that was just
// mutated. Each ancestor recomputes in O(children) — not a full subtree
// re-walk — since only the immediate children's already-correct
// EncodedSize values are summed.
func (n *Node) propagateDelta(sessionID uint64) {
	n.Desc.CommitDelta()

	p := n.parent
	for p != nil {
		total := 0
		for _, c := range p.Children {
			if p.Choice && c != p.Children[p.Selected] {
				continue
			}
			if c.Present(sessionID) {
				total += c.Desc.EncodedSize()
			}
		}
		p.Desc.ValueLength = total
		p.Desc.Recompute()
		p.Desc.CommitDelta()
		p = p.parent
	}
}
