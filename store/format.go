package store

import (
	"encoding/binary"
	"errors"
)

// PageSize is the size of a store page in bytes.
const PageSize = 8192

// Record sizes in bytes.
const (
	NodeRecordSize         = 32
	RelationshipRecordSize = 64
	GroupRecordSize        = 48
	PropertyRecordSize     = 72
	TokenRecordSize        = 40
	DynamicHeaderSize      = 16

	StringBlockSize = 120
	ArrayBlockSize  = 120
	LabelBlockSize  = 56

	MaxTokenNameLength = 32
)

const (
	flagInUse = 1 << 0

	nodeFlagDense = 1 << 1

	relFlagFirstInFirstChain  = 1 << 1
	relFlagFirstInSecondChain = 1 << 2

	dynFlagStart = 1 << 1
)

var le = binary.LittleEndian

// ErrNameTooLong is returned when encoding a token name that does not fit.
var ErrNameTooLong = errors.New("store: token name too long")

// Codec converts records of type R to and from their slot bytes.
type Codec[R any] struct {
	Name       string
	RecordSize int
	// Decode fills a record from slot bytes. A zeroed slot decodes as unused.
	Decode func(id int64, b []byte) R
	// Unused returns the record read for ids outside the file.
	Unused func(id int64) R
	Encode func(r *R, b []byte) error
}

// NodeCodec encodes node records.
var NodeCodec = Codec[Node]{
	Name:       "node",
	RecordSize: NodeRecordSize,
	Decode: func(id int64, b []byte) Node {
		return Node{
			ID:       id,
			InUse:    b[0]&flagInUse != 0,
			Dense:    b[0]&nodeFlagDense != 0,
			NextRel:  int64(le.Uint64(b[8:])),
			NextProp: int64(le.Uint64(b[16:])),
			Labels:   LabelField(le.Uint64(b[24:])),
		}
	},
	Unused: func(id int64) Node {
		return Node{ID: id, NextRel: Null, NextProp: Null}
	},
	Encode: func(n *Node, b []byte) error {
		clear(b[:NodeRecordSize])
		if n.InUse {
			b[0] |= flagInUse
		}
		if n.Dense {
			b[0] |= nodeFlagDense
		}
		le.PutUint64(b[8:], uint64(n.NextRel))
		le.PutUint64(b[16:], uint64(n.NextProp))
		le.PutUint64(b[24:], uint64(n.Labels))
		return nil
	},
}

// RelationshipCodec encodes relationship records.
var RelationshipCodec = Codec[Relationship]{
	Name:       "relationship",
	RecordSize: RelationshipRecordSize,
	Decode: func(id int64, b []byte) Relationship {
		return Relationship{
			ID:                 id,
			InUse:              b[0]&flagInUse != 0,
			FirstInFirstChain:  b[0]&relFlagFirstInFirstChain != 0,
			FirstInSecondChain: b[0]&relFlagFirstInSecondChain != 0,
			Type:               int32(le.Uint32(b[4:])),
			FirstNode:          int64(le.Uint64(b[8:])),
			SecondNode:         int64(le.Uint64(b[16:])),
			FirstPrev:          int64(le.Uint64(b[24:])),
			FirstNext:          int64(le.Uint64(b[32:])),
			SecondPrev:         int64(le.Uint64(b[40:])),
			SecondNext:         int64(le.Uint64(b[48:])),
			NextProp:           int64(le.Uint64(b[56:])),
		}
	},
	Unused: func(id int64) Relationship {
		return Relationship{
			ID: id, FirstNode: Null, SecondNode: Null,
			FirstPrev: Null, FirstNext: Null, SecondPrev: Null, SecondNext: Null,
			NextProp: Null,
		}
	},
	Encode: func(r *Relationship, b []byte) error {
		clear(b[:RelationshipRecordSize])
		if r.InUse {
			b[0] |= flagInUse
		}
		if r.FirstInFirstChain {
			b[0] |= relFlagFirstInFirstChain
		}
		if r.FirstInSecondChain {
			b[0] |= relFlagFirstInSecondChain
		}
		le.PutUint32(b[4:], uint32(r.Type))
		le.PutUint64(b[8:], uint64(r.FirstNode))
		le.PutUint64(b[16:], uint64(r.SecondNode))
		le.PutUint64(b[24:], uint64(r.FirstPrev))
		le.PutUint64(b[32:], uint64(r.FirstNext))
		le.PutUint64(b[40:], uint64(r.SecondPrev))
		le.PutUint64(b[48:], uint64(r.SecondNext))
		le.PutUint64(b[56:], uint64(r.NextProp))
		return nil
	},
}

// GroupCodec encodes relationship group records.
var GroupCodec = Codec[RelationshipGroup]{
	Name:       "relationship group",
	RecordSize: GroupRecordSize,
	Decode: func(id int64, b []byte) RelationshipGroup {
		return RelationshipGroup{
			ID:         id,
			InUse:      b[0]&flagInUse != 0,
			Type:       int32(le.Uint32(b[4:])),
			Next:       int64(le.Uint64(b[8:])),
			FirstOut:   int64(le.Uint64(b[16:])),
			FirstIn:    int64(le.Uint64(b[24:])),
			FirstLoop:  int64(le.Uint64(b[32:])),
			OwningNode: int64(le.Uint64(b[40:])),
		}
	},
	Unused: func(id int64) RelationshipGroup {
		return RelationshipGroup{
			ID: id, Next: Null, FirstOut: Null, FirstIn: Null, FirstLoop: Null, OwningNode: Null,
		}
	},
	Encode: func(g *RelationshipGroup, b []byte) error {
		clear(b[:GroupRecordSize])
		if g.InUse {
			b[0] |= flagInUse
		}
		le.PutUint32(b[4:], uint32(g.Type))
		le.PutUint64(b[8:], uint64(g.Next))
		le.PutUint64(b[16:], uint64(g.FirstOut))
		le.PutUint64(b[24:], uint64(g.FirstIn))
		le.PutUint64(b[32:], uint64(g.FirstLoop))
		le.PutUint64(b[40:], uint64(g.OwningNode))
		return nil
	},
}

const (
	propHeaderSize = 18
	propBlockSize  = 13
)

// PropertyCodec encodes property records. Block counts above
// MaxPropertyBlocks are clamped on decode.
var PropertyCodec = Codec[Property]{
	Name:       "property",
	RecordSize: PropertyRecordSize,
	Decode: func(id int64, b []byte) Property {
		p := Property{
			ID:    id,
			InUse: b[0]&flagInUse != 0,
			Prev:  int64(le.Uint64(b[2:])),
			Next:  int64(le.Uint64(b[10:])),
		}
		n := min(int(b[1]), MaxPropertyBlocks)
		if n > 0 {
			p.Blocks = make([]PropertyBlock, n)
			for i := range p.Blocks {
				off := propHeaderSize + i*propBlockSize
				p.Blocks[i] = PropertyBlock{
					Key:   int32(le.Uint32(b[off:])),
					Type:  PropertyType(b[off+4]),
					Value: int64(le.Uint64(b[off+5:])),
				}
			}
		}
		return p
	},
	Unused: func(id int64) Property {
		return Property{ID: id, Prev: Null, Next: Null}
	},
	Encode: func(p *Property, b []byte) error {
		clear(b[:PropertyRecordSize])
		if len(p.Blocks) > MaxPropertyBlocks {
			return errors.New("store: too many property blocks")
		}
		if p.InUse {
			b[0] |= flagInUse
		}
		b[1] = byte(len(p.Blocks))
		le.PutUint64(b[2:], uint64(p.Prev))
		le.PutUint64(b[10:], uint64(p.Next))
		for i, blk := range p.Blocks {
			off := propHeaderSize + i*propBlockSize
			le.PutUint32(b[off:], uint32(blk.Key))
			b[off+4] = byte(blk.Type)
			le.PutUint64(b[off+5:], uint64(blk.Value))
		}
		return nil
	},
}

// DynamicCodec returns the codec for dynamic records with dataSize payload
// bytes. Decode returns the full payload area; Length says how much of it is used.
func DynamicCodec(name string, dataSize int) Codec[DynamicRecord] {
	size := DynamicHeaderSize + dataSize
	return Codec[DynamicRecord]{
		Name:       name,
		RecordSize: size,
		Decode: func(id int64, b []byte) DynamicRecord {
			data := make([]byte, dataSize)
			copy(data, b[DynamicHeaderSize:size])
			return DynamicRecord{
				ID:     id,
				InUse:  b[0]&flagInUse != 0,
				Start:  b[0]&dynFlagStart != 0,
				Length: int(le.Uint32(b[4:])),
				Next:   int64(le.Uint64(b[8:])),
				Data:   data,
			}
		},
		Unused: func(id int64) DynamicRecord {
			return DynamicRecord{ID: id, Next: Null}
		},
		Encode: func(d *DynamicRecord, b []byte) error {
			clear(b[:size])
			if len(d.Data) > dataSize {
				return errors.New("store: dynamic record payload too large")
			}
			if d.InUse {
				b[0] |= flagInUse
			}
			if d.Start {
				b[0] |= dynFlagStart
			}
			le.PutUint32(b[4:], uint32(d.Length))
			le.PutUint64(b[8:], uint64(d.Next))
			copy(b[DynamicHeaderSize:], d.Data)
			return nil
		},
	}
}

// TokenCodec encodes token records.
var TokenCodec = Codec[Token]{
	Name:       "token",
	RecordSize: TokenRecordSize,
	Decode: func(id int64, b []byte) Token {
		n := min(int(b[1]), MaxTokenNameLength)
		return Token{
			ID:    id,
			InUse: b[0]&flagInUse != 0,
			Name:  string(b[2 : 2+n]),
		}
	},
	Unused: func(id int64) Token {
		return Token{ID: id}
	},
	Encode: func(t *Token, b []byte) error {
		clear(b[:TokenRecordSize])
		if len(t.Name) > MaxTokenNameLength {
			return ErrNameTooLong
		}
		if t.InUse {
			b[0] |= flagInUse
		}
		b[1] = byte(len(t.Name))
		copy(b[2:], t.Name)
		return nil
	},
}
