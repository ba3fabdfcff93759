package store

const (
	labelDynamicBit   = uint64(1) << 63
	labelCountShift   = 56
	labelCountMask    = uint64(0xF) << labelCountShift
	labelPayloadBits  = 56
	labelDynamicIDMax = uint64(1)<<48 - 1

	// MaxInlineLabels is the largest label count a node field holds inline.
	MaxInlineLabels = 7
)

// LabelField is the label slot of a node record. It either holds up to seven
// label ids inline or points at a chain in the node-label dynamic store.
type LabelField uint64

// DynamicLabelField returns a field referencing the node-label record firstID.
func DynamicLabelField(firstID int64) LabelField {
	return LabelField(labelDynamicBit | uint64(firstID)&labelDynamicIDMax)
}

// InlineLabelField packs labels into the field in the given order. It returns
// false if there are too many labels or one of them is too large to inline.
func InlineLabelField(labels []int32) (LabelField, bool) {
	c := len(labels)
	if c == 0 {
		return 0, true
	}
	if c > MaxInlineLabels {
		return 0, false
	}
	bits := uint(labelPayloadBits / c)
	limit := uint64(1) << bits
	field := uint64(c) << labelCountShift
	for i, l := range labels {
		if l < 0 || uint64(l) >= limit {
			return 0, false
		}
		field |= uint64(l) << (uint(i) * bits)
	}
	return LabelField(field), true
}

// IsDynamic reports whether the labels live in the node-label store.
func (f LabelField) IsDynamic() bool {
	return uint64(f)&labelDynamicBit != 0
}

// DynamicID returns the first node-label record id of a dynamic field.
func (f LabelField) DynamicID() int64 {
	return int64(uint64(f) & labelDynamicIDMax)
}

// InlineCount returns the number of inline labels.
func (f LabelField) InlineCount() int {
	if f.IsDynamic() {
		return 0
	}
	return int((uint64(f) & labelCountMask) >> labelCountShift)
}

// InlineLabels appends the inline labels to dst in stored order.
func (f LabelField) InlineLabels(dst []int32) []int32 {
	c := f.InlineCount()
	if c == 0 {
		return dst
	}
	if c > MaxInlineLabels {
		c = MaxInlineLabels
	}
	bits := uint(labelPayloadBits / c)
	mask := uint64(1)<<bits - 1
	for i := 0; i < c; i++ {
		dst = append(dst, int32((uint64(f)>>(uint(i)*bits))&mask))
	}
	return dst
}
