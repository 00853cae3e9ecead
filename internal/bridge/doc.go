// Package bridge turns a bundler engine into a pipeline stage.
//
// A Bridge buffers every buffered item it receives, adds each one as an entry
// point of the configured targets, runs the engine into an in-memory
// filesystem and forwards the artifacts downstream. An artifact whose name
// equals an input basename replaces that item's contents; a source map for an
// input that carries one is merged into it; anything else becomes a new item.
// Null items pass straight through.
//
// In watch mode the engine keeps rebuilding on change. A failing pass
// suspends the watch and resumes it after [Options.WatchResume], so a broken
// edit never tears the stage down.
//
// Bridges that share a [Cache] reuse the engine runner and output filesystem
// as long as they are invoked with the same engine and configuration.
//
// Lifecycle:
//
//	b, err := bridge.New(bridge.Options{Config: cfg}, bridge.WithLogger(logger))
//	err = b.Run(ctx, in, out) // returns when in is drained and the build reported
package bridge
