// Package main hosts the shotnamer CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the captioning
// client and rename pipeline, and exposes the watch daemon alongside one-shot
// renames, startup checks, the rename journal, and configuration scaffolding.
package main
