package checker

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
	"github.com/hupe1980/graphcheck/token"
)

// propertyChainReader walks property chains defensively. It is not safe for
// concurrent use; every task owns one.
type propertyChainReader struct {
	properties *store.RecordStore[store.Property]
	keys       *token.Holder
	reporter   *report.Reporter
	strings    *dynamicChainReader
	arrays     *dynamicChainReader
	cancel     *Cancellation
	seen       *roaring64.Bitmap
	present    *roaring.Bitmap
}

func newPropertyChainReader(c *Checker) *propertyChainReader {
	s := c.cfg.Stores
	return &propertyChainReader{
		properties: s.Properties,
		keys:       c.cfg.Tokens.PropertyKeys,
		reporter:   c.cfg.Reporter,
		strings:    newDynamicChainReader(s.Strings, report.EntityString, c.cfg.Reporter),
		arrays:     newDynamicChainReader(s.Arrays, report.EntityArray, c.cfg.Reporter),
		cancel:     c.cancel,
		seen:       roaring64.New(),
		present:    roaring.New(),
	}
}

// read decodes the chain starting at first into values, keyed by property
// key. It reports every violation on owner or the records involved and
// returns whether the chain was free of them. values is only meaningful when
// the chain is ok.
func (p *propertyChainReader) read(ctx context.Context, owner report.EntityReport, first int64, values map[int32]store.Value) (bool, error) {
	clear(values)
	p.seen.Clear()
	p.present.Clear()
	ok := true
	prev := store.Null
	for id := first; id != store.Null && !p.cancel.Cancelled(); {
		if id >= 0 && p.seen.Contains(uint64(id)) {
			owner.PropertyChainCycle(id)
			return false, nil
		}
		rec, err := p.properties.Get(ctx, id, store.LoadCheck)
		if err != nil {
			return false, err
		}
		if !rec.InUse {
			if prev == store.Null {
				owner.PropertyNotInUse(id)
			} else {
				p.reporter.Property(prev).NextNotInUse(id)
			}
			return false, nil
		}
		p.seen.Add(uint64(id))
		if rec.Prev != prev {
			if prev == store.Null {
				owner.PropertyNotFirstInChain(id)
			} else {
				p.reporter.Property(id).PreviousDoesNotReferenceBack(prev)
			}
			ok = false
		}
		for _, b := range rec.Blocks {
			blockOK, err := p.readBlock(ctx, owner, id, b, values)
			if err != nil {
				return false, err
			}
			ok = ok && blockOK
		}
		prev, id = id, rec.Next
	}
	return ok, nil
}

func (p *propertyChainReader) readBlock(ctx context.Context, owner report.EntityReport, id int64, b store.PropertyBlock, values map[int32]store.Value) (bool, error) {
	rep := p.reporter.Property(id)
	if b.Key < 0 {
		rep.InvalidPropertyKey(b.Key)
		return false, nil
	}
	if !p.keys.Valid(b.Key) {
		rep.KeyNotInUse(b.Key)
		return false, nil
	}
	if !p.present.CheckedAdd(uint32(b.Key)) {
		owner.PropertyKeyNotUniqueInChain(b.Key)
		return false, nil
	}

	var (
		v   store.Value
		err error
	)
	switch b.Type {
	case store.PropertyBool, store.PropertyLong, store.PropertyDouble:
		if v, err = store.InlineValue(b); err != nil {
			rep.InvalidPropertyValue(b.Key, err)
			return false, nil
		}
	case store.PropertyString:
		payload, ok, err := p.dynamic(ctx, p.strings, b, rep.StringEmpty, rep.StringNotInUse)
		if err != nil || !ok {
			return false, err
		}
		v = store.Value{Type: store.PropertyString, Text: string(payload)}
	case store.PropertyArray:
		payload, ok, err := p.dynamic(ctx, p.arrays, b, rep.ArrayEmpty, rep.ArrayNotInUse)
		if err != nil || !ok {
			return false, err
		}
		arr, derr := store.DecodeArray(payload)
		if derr != nil {
			rep.InvalidPropertyValue(b.Key, derr)
			return false, nil
		}
		v = store.Value{Type: store.PropertyArray, Array: arr}
	default:
		rep.InvalidPropertyType(b.Key)
		return false, nil
	}
	values[b.Key] = v
	return true, nil
}

func (p *propertyChainReader) dynamic(ctx context.Context, r *dynamicChainReader, b store.PropertyBlock,
	empty, notInUse func(key int32, record int64)) ([]byte, bool, error) {
	if b.Value < 0 {
		empty(b.Key, b.Value)
		return nil, false, nil
	}
	return r.read(ctx, b.Value, chainCallbacks{
		firstNotInUse: func(record int64) { notInUse(b.Key, record) },
	})
}
