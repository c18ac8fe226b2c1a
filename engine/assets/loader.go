package assets

import "context"

// Loader produces avatars from a path. The viewer loads through this
// interface so tests and embedders can swap the file system out.
type Loader interface {
	Load(ctx context.Context, path string) (*Avatar, error)
}

// FileLoader loads avatars from disk.
type FileLoader struct{}

func (FileLoader) Load(ctx context.Context, path string) (*Avatar, error) {
	return LoadAvatar(ctx, path)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) (*Avatar, error)

func (f LoaderFunc) Load(ctx context.Context, path string) (*Avatar, error) {
	return f(ctx, path)
}
