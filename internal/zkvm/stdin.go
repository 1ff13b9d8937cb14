// Package zkvm is the boundary between the host and the proving engine.
// The engine itself is external; this package defines the input vector,
// the guest execution environment and the Engine interface, and ships a
// local engine that runs guests in-process and emits mock proofs.
package zkvm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Stdin is the ordered input vector handed to a guest. Every item is stored
// RLP-encoded; the guest reads them back in the same order.
type Stdin struct {
	items []rlp.RawValue
}

// NewStdin returns an empty input vector
func NewStdin() *Stdin {
	return &Stdin{}
}

// Write appends one RLP-encodable value
func (s *Stdin) Write(v interface{}) error {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("encode stdin item %d: %w", len(s.items), err)
	}
	s.items = append(s.items, enc)
	return nil
}

// WriteBytes appends an opaque byte string (a serialized sketch, a bundle...)
func (s *Stdin) WriteBytes(b []byte) error {
	return s.Write(b)
}

// Len returns the number of items written so far
func (s *Stdin) Len() int {
	return len(s.items)
}

// Encode serializes the whole vector as one RLP list, for transport to a remote prover
func (s *Stdin) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(s.items)
}

// DecodeStdin parses the output of Encode
func DecodeStdin(b []byte) (*Stdin, error) {
	var items []rlp.RawValue
	if err := rlp.DecodeBytes(b, &items); err != nil {
		return nil, fmt.Errorf("decode stdin: %w", err)
	}
	return &Stdin{items: items}, nil
}

// Reader returns a cursor over the vector
func (s *Stdin) Reader() *Reader {
	return &Reader{items: s.items}
}

// Reader consumes a Stdin in order
type Reader struct {
	items []rlp.RawValue
	pos   int
}

// Read decodes the next item into v
func (r *Reader) Read(v interface{}) error {
	if r.pos >= len(r.items) {
		return fmt.Errorf("stdin exhausted after %d items", r.pos)
	}
	item := r.items[r.pos]
	if err := rlp.DecodeBytes(item, v); err != nil {
		return fmt.Errorf("decode stdin item %d: %w", r.pos, err)
	}
	r.pos++
	return nil
}

// Remaining returns how many items have not been read yet
func (r *Reader) Remaining() int {
	return len(r.items) - r.pos
}
