package store

import (
	"context"
	"fmt"

	"github.com/hupe1980/graphcheck/blobstore"
)

type fileWriter struct {
	name       string
	recordSize int
	rpp        int64
	buf        []byte
	high       int64
}

func newFileWriter(name string, recordSize int) *fileWriter {
	return &fileWriter{name: name, recordSize: recordSize, rpp: int64(PageSize / recordSize)}
}

// slot returns the bytes of id, growing the file page by page.
func (w *fileWriter) slot(id int64) []byte {
	page := id / w.rpp
	need := int((page + 1) * PageSize)
	if need > len(w.buf) {
		w.buf = append(w.buf, make([]byte, need-len(w.buf))...)
	}
	if id >= w.high {
		w.high = id + 1
	}
	off := int(page*PageSize + (id%w.rpp)*int64(w.recordSize))
	return w.buf[off : off+w.recordSize]
}

// bytes trims the last page after the highest written slot.
func (w *fileWriter) bytes() []byte {
	if w.high == 0 {
		return nil
	}
	last := w.high - 1
	end := (last/w.rpp)*PageSize + (last%w.rpp+1)*int64(w.recordSize)
	return w.buf[:end]
}

// Builder writes a graph store. Records are written verbatim, so a builder
// can produce inconsistent stores as easily as consistent ones.
type Builder struct {
	files    []*fileWriter
	nodes    *fileWriter
	rels     *fileWriter
	groups   *fileWriter
	props    *fileWriter
	strings  *fileWriter
	arrays   *fileWriter
	labels   *fileWriter
	labelTok *fileWriter
	relTok   *fileWriter
	keyTok   *fileWriter

	nextString int64
	nextArray  int64
	nextLabel  int64
	err        error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	b := &Builder{
		nodes:    newFileWriter(NodeStoreFile, NodeRecordSize),
		rels:     newFileWriter(RelationshipStoreFile, RelationshipRecordSize),
		groups:   newFileWriter(GroupStoreFile, GroupRecordSize),
		props:    newFileWriter(PropertyStoreFile, PropertyRecordSize),
		strings:  newFileWriter(StringStoreFile, StringCodec.RecordSize),
		arrays:   newFileWriter(ArrayStoreFile, ArrayCodec.RecordSize),
		labels:   newFileWriter(NodeLabelStoreFile, NodeLabelCodec.RecordSize),
		labelTok: newFileWriter(LabelTokenStoreFile, TokenRecordSize),
		relTok:   newFileWriter(RelationshipTypeStoreFile, TokenRecordSize),
		keyTok:   newFileWriter(PropertyKeyStoreFile, TokenRecordSize),
	}
	b.files = []*fileWriter{
		b.nodes, b.rels, b.groups, b.props, b.strings,
		b.arrays, b.labels, b.labelTok, b.relTok, b.keyTok,
	}
	return b
}

func put[R any](b *Builder, w *fileWriter, codec Codec[R], id int64, r *R) {
	if id < 0 {
		b.setErr(fmt.Errorf("%s record id %d: negative", codec.Name, id))
		return
	}
	if err := codec.Encode(r, w.slot(id)); err != nil {
		b.setErr(fmt.Errorf("%s record %d: %w", codec.Name, id, err))
	}
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Node writes a node record.
func (b *Builder) Node(n Node) *Builder {
	put(b, b.nodes, NodeCodec, n.ID, &n)
	return b
}

// Relationship writes a relationship record.
func (b *Builder) Relationship(r Relationship) *Builder {
	put(b, b.rels, RelationshipCodec, r.ID, &r)
	return b
}

// Group writes a relationship group record.
func (b *Builder) Group(g RelationshipGroup) *Builder {
	put(b, b.groups, GroupCodec, g.ID, &g)
	return b
}

// Property writes a property record.
func (b *Builder) Property(p Property) *Builder {
	put(b, b.props, PropertyCodec, p.ID, &p)
	return b
}

// StringRecord, ArrayRecord and NodeLabelRecord write raw dynamic records.
func (b *Builder) StringRecord(d DynamicRecord) *Builder {
	put(b, b.strings, StringCodec, d.ID, &d)
	b.nextString = max(b.nextString, d.ID+1)
	return b
}

func (b *Builder) ArrayRecord(d DynamicRecord) *Builder {
	put(b, b.arrays, ArrayCodec, d.ID, &d)
	b.nextArray = max(b.nextArray, d.ID+1)
	return b
}

func (b *Builder) NodeLabelRecord(d DynamicRecord) *Builder {
	put(b, b.labels, NodeLabelCodec, d.ID, &d)
	b.nextLabel = max(b.nextLabel, d.ID+1)
	return b
}

// LabelToken, RelationshipType and PropertyKey write in-use tokens.
func (b *Builder) LabelToken(id int64, name string) *Builder {
	t := Token{ID: id, InUse: true, Name: name}
	put(b, b.labelTok, TokenCodec, id, &t)
	return b
}

func (b *Builder) RelationshipType(id int64, name string) *Builder {
	t := Token{ID: id, InUse: true, Name: name}
	put(b, b.relTok, TokenCodec, id, &t)
	return b
}

func (b *Builder) PropertyKey(id int64, name string) *Builder {
	t := Token{ID: id, InUse: true, Name: name}
	put(b, b.keyTok, TokenCodec, id, &t)
	return b
}

// String stores s as a new string chain and returns its first record id.
func (b *Builder) String(s string) int64 {
	return b.chain(b.strings, StringCodec, &b.nextString, StringBlockSize, []byte(s))
}

// Array stores values as a new array chain and returns its first record id.
func (b *Builder) Array(values []int64) int64 {
	return b.chain(b.arrays, ArrayCodec, &b.nextArray, ArrayBlockSize, EncodeArray(values))
}

// Labels returns the label field for labels, inlining when possible and
// otherwise storing a node-label chain owned by node.
func (b *Builder) Labels(node int64, labels ...int32) LabelField {
	if f, ok := InlineLabelField(labels); ok {
		return f
	}
	return b.DynamicLabels(node, labels...)
}

// DynamicLabels stores labels in the node-label store regardless of size.
func (b *Builder) DynamicLabels(node int64, labels ...int32) LabelField {
	id := b.chain(b.labels, NodeLabelCodec, &b.nextLabel, LabelBlockSize, EncodeNodeLabels(node, labels))
	return DynamicLabelField(id)
}

func (b *Builder) chain(w *fileWriter, codec Codec[DynamicRecord], next *int64, blockSize int, payload []byte) int64 {
	first := *next
	n := max(1, (len(payload)+blockSize-1)/blockSize)
	for i := 0; i < n; i++ {
		id := first + int64(i)
		lo := i * blockSize
		hi := min(lo+blockSize, len(payload))
		d := DynamicRecord{
			ID:     id,
			InUse:  true,
			Start:  i == 0,
			Length: hi - lo,
			Next:   Null,
			Data:   payload[lo:hi],
		}
		if i < n-1 {
			d.Next = id + 1
		}
		put(b, w, codec, id, &d)
	}
	*next = first + int64(n)
	return first
}

// Files returns the encoded store files keyed by name.
func (b *Builder) Files() (map[string][]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make(map[string][]byte, len(b.files))
	for _, w := range b.files {
		out[w.name] = w.bytes()
	}
	return out, nil
}

// Write puts every store file into bs.
func (b *Builder) Write(ctx context.Context, bs blobstore.BlobStore) error {
	files, err := b.Files()
	if err != nil {
		return err
	}
	for name, data := range files {
		if err := bs.Put(ctx, name, data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
