// Package pipeline provides the stage graph and the execution engine that
// turns one chat message into a stream of execution events.
//
// # Architecture
//
// A Graph holds stages and the edges between them, with a designated Start
// and End. Compile walks the graph topologically and produces a Plan: the
// single path of stages from Start to End. Branches and cycles are rejected.
//
// The default graph is:
//
//	Start -> analyzer -> generator -> saver -> End
//
// # Events
//
// Executor.Start runs a plan in its own goroutine and writes events to a
// bounded channel:
//
//	stage.entered   before a stage runs
//	stage.fragment  for every fragment a streaming stage produces
//	stage.exited    after the stage update is merged, with a state snapshot
//	stage.failed    when a stage or merge fails; terminal
//	run.completed   after the last stage; terminal
//
// Fragments of a stage always fall between its entered and exited events.
// The channel is closed after the terminal event.
package pipeline
