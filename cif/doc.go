// Package cif implements a streaming reader for mmCIF (text) and
// BinaryCIF (packed, msgpack-based) files, the two serializations of the
// tabular data model used to exchange structural biology models and
// metadata.
//
// A caller registers the categories and keywords it cares about, supplies
// per-row and finalize callbacks, and repeatedly calls Reader.ReadBlock
// until it returns false. Everything not registered is skipped without
// being materialized.
//
// The reader is single-threaded and not reentrant: a callback must not
// itself drive the same Reader.
package cif
