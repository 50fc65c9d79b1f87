package main

import "path/filepath"

// layout resolves the filesystem paths of spec.md §6 "Persisted state
// layout" under a single data directory root.
type layout struct {
	root string
}

func newLayout(root string) layout { return layout{root: root} }

func (l layout) input() string    { return filepath.Join(l.root, "muck.db") }
func (l layout) output() string   { return filepath.Join(l.root, "muck.out") }
func (l layout) previous() string { return filepath.Join(l.root, "muck.old") }
func (l layout) panic() string    { return filepath.Join(l.root, "muck.PANIC") }
func (l layout) deltaLog() string { return filepath.Join(l.root, "deltas") }
func (l layout) parmfile() string { return filepath.Join(l.root, "parmfile.cfg") }
