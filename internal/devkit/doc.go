// Package devkit is the workspace toolkit generators run against. It provides
// a buffered file Tree over a workspace root, project registration backed by
// project.json files, template instantiation, a formatting pass, JSON helpers,
// and the package.json dependency merge that returns an install task.
//
// Generators mutate a Tree only. Nothing reaches the disk until the caller
// flushes the tree's changes with FlushChanges, with the single exception of
// WriteJSONFile, which writes straight to the OS filesystem.
package devkit
