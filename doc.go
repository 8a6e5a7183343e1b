// Package rtags builds and maintains a persistent cross-reference database
// for a source tree: for every symbol, where it is defined and every
// location that refers to it, plus a name dictionary for lookup.
//
// # Pipeline
//
// An index build runs in three phases:
//
//  1. Collect: every compiled file from the build's compile commands is
//     parsed by the front end and its syntax tree folded into the entity
//     table, one entity per unique location. A dependency record (build
//     arguments, modification time, transitive includes) is captured per
//     unit alongside.
//
//  2. Link: a single pass over the completed table merges method
//     declarations with their out-of-line definitions and populates each
//     entity's inbound reference set.
//
//  3. Write: entities, dictionary rows and dependency records are
//     serialized into the ordered key-value store.
//
// # Usage
//
// Create an Engine, build, and query:
//
//	e := rtags.New(".rtags.db")
//	err := e.Build(ctx, "compile_commands.json")
//
//	q, err := e.Query()
//	defer q.Close()
//	locs, err := q.FindSymbol("N::C::m")
//
// # Incremental updates
//
// [Engine.Update] scans the stored dependency records, determines which
// compiled files (or headers they include) changed on disk, re-walks only
// the affected units, and rewrites the database. Unchanged files' entities
// are reloaded from the stored entry set rather than re-collected.
//
// Translation units may be walked in parallel ([WithWorkers]); each worker
// owns a private table merged before linking, so the link pass always sees
// a globally consistent table.
package rtags
