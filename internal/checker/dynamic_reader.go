package checker

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
)

// dynamicChainReader reads the payload of a dynamic record chain, reporting
// broken links instead of failing. It is not safe for concurrent use.
type dynamicChainReader struct {
	store    *store.RecordStore[store.DynamicRecord]
	entity   report.EntityType
	reporter *report.Reporter
	seen     *roaring64.Bitmap
	buf      []byte
}

func newDynamicChainReader(s *store.RecordStore[store.DynamicRecord], entity report.EntityType, rep *report.Reporter) *dynamicChainReader {
	return &dynamicChainReader{store: s, entity: entity, reporter: rep, seen: roaring64.New()}
}

// chainCallbacks lets the owner of a chain report problems on itself.
type chainCallbacks struct {
	// firstNotInUse is called when the first record is unused.
	firstNotInUse func(record int64)
	// cycle is called when the chain revisits record. Nil reports on the
	// dynamic record.
	cycle func(record int64)
}

// read returns the payload of the chain starting at first. ok is false when
// the chain is broken; the payload is then incomplete. The returned slice is
// reused by the next call.
func (d *dynamicChainReader) read(ctx context.Context, first int64, cb chainCallbacks) (payload []byte, ok bool, err error) {
	d.seen.Clear()
	d.buf = d.buf[:0]
	prev := store.Null
	for id := first; id != store.Null; {
		rec, err := d.store.Get(ctx, id, store.LoadCheck)
		if err != nil {
			return nil, false, err
		}
		if !rec.InUse {
			if prev == store.Null {
				cb.firstNotInUse(id)
			} else {
				d.reporter.Dynamic(d.entity, prev).NextNotInUse(id)
			}
			return d.buf, false, nil
		}
		d.seen.Add(uint64(id))
		rep := d.reporter.Dynamic(d.entity, id)
		if rec.Length > len(rec.Data) || rec.Length < 0 {
			rep.InvalidLength(rec.Length)
			return d.buf, false, nil
		}
		if rec.Length == 0 && !rec.Start {
			rep.EmptyBlock()
		}
		if rec.Length < len(rec.Data) && rec.Next != store.Null {
			rep.RecordNotFullReferencesNext()
		}
		d.buf = append(d.buf, rec.Data[:rec.Length]...)
		switch {
		case rec.Next == id:
			rep.SelfReferentialNext()
			return d.buf, false, nil
		case rec.Next >= 0 && d.seen.Contains(uint64(rec.Next)):
			if cb.cycle != nil {
				cb.cycle(rec.Next)
			} else {
				rep.ChainCycle(rec.Next)
			}
			return d.buf, false, nil
		}
		prev, id = id, rec.Next
	}
	return d.buf, true, nil
}
