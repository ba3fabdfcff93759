package nodecache

// LabelEncoding says how the labels word of a node row is to be read.
type LabelEncoding uint8

const (
	// LabelsNone means the node has no labels.
	LabelsNone LabelEncoding = iota
	// LabelsSingle means the word holds one label id.
	LabelsSingle
	// LabelsInline means the word holds the raw inline label field.
	LabelsInline
	// LabelsDynamic means the word holds an offset into the dynamic label cache.
	LabelsDynamic
)

// NodeRow is the node pass view of a row.
type NodeRow struct {
	InUse     bool
	Dense     bool
	NextRel   int64
	Labels    uint64
	Encoding  LabelEncoding
	CheckMark bool
}

// PutNode writes a full node row.
func (c *Cache) PutNode(offset int64, r NodeRow) {
	w0 := flag(r.InUse, bitA) | flag(r.Dense, bitB) | flag(r.CheckMark, bitE) | encodeID(r.NextRel)
	switch r.Encoding {
	case LabelsInline:
		w0 |= bitC
	case LabelsSingle:
		w0 |= bitD
	case LabelsDynamic:
		w0 |= bitC | bitD
	}
	c.store(offset, 1, r.Labels)
	c.store(offset, 0, w0)
}

// Node reads the node view of a row.
func (c *Cache) Node(offset int64) NodeRow {
	w0 := c.load(offset, 0)
	r := NodeRow{
		InUse:     w0&bitA != 0,
		Dense:     w0&bitB != 0,
		CheckMark: w0&bitE != 0,
		NextRel:   decodeID(w0),
		Labels:    c.load(offset, 1),
	}
	switch w0 & (bitC | bitD) {
	case bitC:
		r.Encoding = LabelsInline
	case bitD:
		r.Encoding = LabelsSingle
	case bitC | bitD:
		r.Encoding = LabelsDynamic
	}
	return r
}

// InUse reports whether the node row is marked in use.
func (c *Cache) InUse(offset int64) bool {
	return c.load(offset, 0)&bitA != 0
}

// NextRel returns the cached next relationship of the node.
func (c *Cache) NextRel(offset int64) int64 {
	return decodeID(c.load(offset, 0))
}

// CheckMark reports whether the node still awaits a first-in-chain back reference.
func (c *Cache) CheckMark(offset int64) bool {
	return c.load(offset, 0)&bitE != 0
}

// ClearCheckMark marks the node as referenced back.
func (c *Cache) ClearCheckMark(offset int64) {
	c.clearBits(offset, bitE)
}
