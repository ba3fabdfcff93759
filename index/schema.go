package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/graphcheck/blobstore"
)

// SchemaFile is the blob name of the schema.
const SchemaFile = "neostore.schema.json"

// ExistenceConstraint requires entities carrying Token to have every Keys
// property.
type ExistenceConstraint struct {
	Entity EntityType `json:"entity"`
	Token  int32      `json:"token"`
	Keys   []int32    `json:"keys"`
}

// Schema lists the online indexes and the existence constraints of a store.
type Schema struct {
	Indexes     []Descriptor          `json:"indexes"`
	Constraints []ExistenceConstraint `json:"constraints"`
}

// IndexesFor returns the descriptors that apply to entity.
func (s *Schema) IndexesFor(entity EntityType) []Descriptor {
	if s == nil {
		return nil
	}
	var out []Descriptor
	for _, d := range s.Indexes {
		if d.Entity == entity {
			out = append(out, d)
		}
	}
	return out
}

// MandatoryKeys returns, per token, the property keys entities of the given
// type must have.
func (s *Schema) MandatoryKeys(entity EntityType) map[int32][]int32 {
	if s == nil {
		return nil
	}
	out := make(map[int32][]int32)
	for _, c := range s.Constraints {
		if c.Entity == entity {
			out[c.Token] = append(out[c.Token], c.Keys...)
		}
	}
	return out
}

// LoadSchema reads the schema from bs. A missing schema is an empty schema.
func LoadSchema(ctx context.Context, bs blobstore.BlobStore) (*Schema, error) {
	blob, err := bs.Open(ctx, SchemaFile)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return &Schema{}, nil
		}
		return nil, err
	}
	defer func() { _ = blob.Close() }()
	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &s, nil
}

// SaveSchema writes s to bs.
func SaveSchema(ctx context.Context, bs blobstore.BlobStore, s *Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return bs.Put(ctx, SchemaFile, data)
}

// LoadAll loads every index of the schema. Indexes without an entries blob
// load empty.
func LoadAll(ctx context.Context, bs blobstore.BlobStore, s *Schema) ([]Accessor, error) {
	out := make([]Accessor, 0, len(s.Indexes))
	for _, d := range s.Indexes {
		m, err := Load(ctx, bs, d)
		if errors.Is(err, blobstore.ErrNotFound) {
			m, err = NewMemoryIndex(d), nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
