// Package dataset owns the ambient dataset: parsing the uploaded workbook
// into observation and launch tables, and the in-memory snapshot store the
// HTTP layer reads from.
//
// The store implements the single-writer/many-reader lifecycle the engine
// relies on: an upload replaces the whole snapshot atomically, concurrent
// readers see either the old snapshot fully or the new one fully, and
// there is no merge or partial-update path. The analytics core never
// touches the store; it only receives snapshots as arguments.
package dataset
