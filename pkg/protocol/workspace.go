package protocol

// Workspace is the filesystem and template-rendering capability prepare
// actions use to materialize launch artifacts from a resolved configuration
// chain.
type Workspace interface {
	// EnsureDir creates the directory (and parents) if absent.
	EnsureDir(path string) error

	// RemoveDir removes the directory and its contents.
	RemoveDir(path string) error

	// Exists reports whether the path exists.
	Exists(path string) bool

	// RenderFile renders the template source with data and writes the
	// result to path.
	RenderFile(path, source string, data map[string]any) error
}
