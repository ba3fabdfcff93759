// Package nodecache implements the bounded per-node cache shared by the
// checker passes of one node range.
//
// Each node in the active range owns a row of two 64-bit words living in an
// anonymous mapping. The node pass writes rows through the NodeLink view; the
// relationship chain pass later reuses the same rows through the
// RelationshipLink view. Words are read and written atomically so rows written
// by one worker are visible to another.
//
// Word 0 holds five flag bits and a 48-bit relationship id stored as id+1,
// which makes a zeroed row read as NULL. Word 1 holds labels (node view) or a
// signed reference (relationship view).
package nodecache
