package tagg

import (
	"bytes"
	"encoding/binary"

	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/wkb"
)

// State serialization lets parallel plans ship partial aggregates between
// workers: a small header (reducer, piece kind, count) followed by the
// length-prefixed WKB of every stored piece.

const stateMagic = uint32(0x54414747) // "TAGG"

// MarshalState serializes the accumulator.
func MarshalState(s *State) ([]byte, error) {
	var buf bytes.Buffer
	w := func(v interface{}) {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	vals := s.list.values()
	w(stateMagic)
	w(uint8(s.reducer))
	kind := uint8(0)
	if s.instantKind {
		kind = 1
	}
	w(kind)
	w(uint32(len(vals)))
	for _, v := range vals {
		b, err := wkb.MarshalTemporal(v, wkb.Options{Order: wkb.NDR, Extended: true})
		if err != nil {
			return nil, err
		}
		w(uint32(len(b)))
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// UnmarshalState rebuilds an accumulator from its serialized form.
func UnmarshalState(b []byte) (*State, error) {
	r := bytes.NewReader(b)
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil || magic != stateMagic {
		return nil, terrors.New(terrors.CodecError, "not an aggregation state")
	}
	var reducer, kind uint8
	if err := binary.Read(r, binary.LittleEndian, &reducer); err != nil {
		return nil, terrors.Wrap(err, terrors.CodecError, "reading reducer tag")
	}
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return nil, terrors.Wrap(err, terrors.CodecError, "reading piece kind")
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, terrors.Wrap(err, terrors.CodecError, "reading piece count")
	}
	s := NewState(Reducer(reducer))
	if s.reducer.String() == "unknown-reducer" {
		return nil, terrors.New(terrors.CodecError, "unknown reducer tag %d", reducer)
	}
	for i := uint32(0); i < count; i++ {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, terrors.Wrap(err, terrors.CodecError, "reading piece length")
		}
		piece := make([]byte, n)
		if _, err := r.Read(piece); err != nil {
			return nil, terrors.Wrap(err, terrors.CodecError, "reading piece body")
		}
		tm, err := wkb.UnmarshalTemporal(piece)
		if err != nil {
			return nil, err
		}
		// pieces are already in accumulator shape
		if err := s.merge(tm); err != nil {
			return nil, err
		}
	}
	return s, nil
}
