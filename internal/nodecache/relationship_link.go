package nodecache

// LinkRow is the relationship chain pass view of a row: the last relationship
// seen for the node and the chain pointer it holds on the node's side.
type LinkRow struct {
	InUse bool
	// SourceOrTarget is true when the node is the relationship's second node.
	SourceOrTarget bool
	// PrevOrNext is true when Reference is a next pointer.
	PrevOrNext   bool
	FirstInChain bool
	// HasMultiple is set once a second relationship touched the node.
	HasMultiple    bool
	RelationshipID int64
	Reference      int64
}

// PutLink writes a full relationship link row.
func (c *Cache) PutLink(offset int64, r LinkRow) {
	w0 := flag(r.InUse, bitA) | flag(r.SourceOrTarget, bitB) | flag(r.PrevOrNext, bitC) |
		flag(r.FirstInChain, bitD) | flag(r.HasMultiple, bitE) | encodeID(r.RelationshipID)
	c.store(offset, 1, uint64(r.Reference))
	c.store(offset, 0, w0)
}

// Link reads the relationship link view of a row.
func (c *Cache) Link(offset int64) LinkRow {
	w0 := c.load(offset, 0)
	return LinkRow{
		InUse:          w0&bitA != 0,
		SourceOrTarget: w0&bitB != 0,
		PrevOrNext:     w0&bitC != 0,
		FirstInChain:   w0&bitD != 0,
		HasMultiple:    w0&bitE != 0,
		RelationshipID: decodeID(w0),
		Reference:      int64(c.load(offset, 1)),
	}
}

// MarkMultiple flags that the node has more than one relationship.
func (c *Cache) MarkMultiple(offset int64) {
	c.setBits(offset, bitE)
}
