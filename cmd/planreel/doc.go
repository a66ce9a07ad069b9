// Package main hosts the planreel CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the internal
// packages: manifest verification, narration sanitizing, audio generation,
// figure fetching, rendering, reconciliation and muxing. It centralizes
// configuration resolution, .env loading and logger setup so subcommands
// only parse arguments and print results.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it through a command or flag here.
package main
