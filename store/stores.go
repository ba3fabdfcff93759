package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/graphcheck/blobstore"
)

// Store file names.
const (
	NodeStoreFile             = "neostore.nodestore.db"
	RelationshipStoreFile     = "neostore.relationshipstore.db"
	GroupStoreFile            = "neostore.relationshipgroupstore.db"
	PropertyStoreFile         = "neostore.propertystore.db"
	StringStoreFile           = "neostore.propertystore.db.strings"
	ArrayStoreFile            = "neostore.propertystore.db.arrays"
	NodeLabelStoreFile        = "neostore.nodestore.db.labels"
	LabelTokenStoreFile       = "neostore.labeltokenstore.db"
	RelationshipTypeStoreFile = "neostore.relationshiptypestore.db"
	PropertyKeyStoreFile      = "neostore.propertystore.db.index"
)

// Dynamic record codecs of the three dynamic stores.
var (
	StringCodec    = DynamicCodec("string", StringBlockSize)
	ArrayCodec     = DynamicCodec("array", ArrayBlockSize)
	NodeLabelCodec = DynamicCodec("node label", LabelBlockSize)
)

// Stores bundles the record stores of one graph database.
type Stores struct {
	Nodes                  *RecordStore[Node]
	Relationships          *RecordStore[Relationship]
	Groups                 *RecordStore[RelationshipGroup]
	Properties             *RecordStore[Property]
	Strings                *RecordStore[DynamicRecord]
	Arrays                 *RecordStore[DynamicRecord]
	NodeLabels             *RecordStore[DynamicRecord]
	LabelTokens            *RecordStore[Token]
	RelationshipTypeTokens *RecordStore[Token]
	PropertyKeyTokens      *RecordStore[Token]
}

// OpenOptions configures Open.
type OpenOptions struct {
	// MaxCachedPages is the page budget each store may use for read-ahead.
	// Zero derives it from a blobstore.CachingStore, or 1024.
	MaxCachedPages int64
}

// Open opens every store file in bs. Missing files open as empty stores.
func Open(ctx context.Context, bs blobstore.BlobStore, optFns ...func(*OpenOptions)) (*Stores, error) {
	opts := OpenOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxCachedPages <= 0 {
		opts.MaxCachedPages = 1024
		if cs, ok := bs.(*blobstore.CachingStore); ok {
			opts.MaxCachedPages = max(1, cs.Cache().Capacity()/cs.PageSize())
		}
	}

	s := &Stores{}
	var err error
	if s.Nodes, err = openStore(ctx, bs, NodeStoreFile, NodeCodec, opts); err != nil {
		return nil, err
	}
	opened := []func() error{s.Nodes.Close}
	fail := func(err error) (*Stores, error) {
		for _, c := range opened {
			_ = c()
		}
		return nil, err
	}
	if s.Relationships, err = openStore(ctx, bs, RelationshipStoreFile, RelationshipCodec, opts); err != nil {
		return fail(err)
	}
	opened = append(opened, s.Relationships.Close)
	if s.Groups, err = openStore(ctx, bs, GroupStoreFile, GroupCodec, opts); err != nil {
		return fail(err)
	}
	opened = append(opened, s.Groups.Close)
	if s.Properties, err = openStore(ctx, bs, PropertyStoreFile, PropertyCodec, opts); err != nil {
		return fail(err)
	}
	opened = append(opened, s.Properties.Close)
	if s.Strings, err = openStore(ctx, bs, StringStoreFile, StringCodec, opts); err != nil {
		return fail(err)
	}
	opened = append(opened, s.Strings.Close)
	if s.Arrays, err = openStore(ctx, bs, ArrayStoreFile, ArrayCodec, opts); err != nil {
		return fail(err)
	}
	opened = append(opened, s.Arrays.Close)
	if s.NodeLabels, err = openStore(ctx, bs, NodeLabelStoreFile, NodeLabelCodec, opts); err != nil {
		return fail(err)
	}
	opened = append(opened, s.NodeLabels.Close)
	if s.LabelTokens, err = openStore(ctx, bs, LabelTokenStoreFile, TokenCodec, opts); err != nil {
		return fail(err)
	}
	opened = append(opened, s.LabelTokens.Close)
	if s.RelationshipTypeTokens, err = openStore(ctx, bs, RelationshipTypeStoreFile, TokenCodec, opts); err != nil {
		return fail(err)
	}
	opened = append(opened, s.RelationshipTypeTokens.Close)
	if s.PropertyKeyTokens, err = openStore(ctx, bs, PropertyKeyStoreFile, TokenCodec, opts); err != nil {
		return fail(err)
	}
	return s, nil
}

func openStore[R any](ctx context.Context, bs blobstore.BlobStore, name string, codec Codec[R], opts OpenOptions) (*RecordStore[R], error) {
	blob, err := bs.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return NewRecordStore(name, nil, codec, opts.MaxCachedPages), nil
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return NewRecordStore(name, blob, codec, opts.MaxCachedPages), nil
}

// HighIDs returns the high id of every store keyed by file name.
func (s *Stores) HighIDs() map[string]int64 {
	return map[string]int64{
		s.Nodes.Name():                  s.Nodes.HighID(),
		s.Relationships.Name():          s.Relationships.HighID(),
		s.Groups.Name():                 s.Groups.HighID(),
		s.Properties.Name():             s.Properties.HighID(),
		s.Strings.Name():                s.Strings.HighID(),
		s.Arrays.Name():                 s.Arrays.HighID(),
		s.NodeLabels.Name():             s.NodeLabels.HighID(),
		s.LabelTokens.Name():            s.LabelTokens.HighID(),
		s.RelationshipTypeTokens.Name(): s.RelationshipTypeTokens.HighID(),
		s.PropertyKeyTokens.Name():      s.PropertyKeyTokens.HighID(),
	}
}

// Close closes every store.
func (s *Stores) Close() error {
	return errors.Join(
		s.Nodes.Close(),
		s.Relationships.Close(),
		s.Groups.Close(),
		s.Properties.Close(),
		s.Strings.Close(),
		s.Arrays.Close(),
		s.NodeLabels.Close(),
		s.LabelTokens.Close(),
		s.RelationshipTypeTokens.Close(),
		s.PropertyKeyTokens.Close(),
	)
}
