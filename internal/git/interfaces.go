package git

import "context"

// Repository defines what history extraction needs from a mirror.
// This abstraction allows for easier testing and alternative implementations.
type Repository interface {
	// Update refreshes every head from origin.
	Update(ctx context.Context) error
	// Sync fetches new objects and returns the new commit hashes, oldest first.
	Sync(ctx context.Context) ([]string, error)
	Log(ctx context.Context, opts LogOptions) (LineStream, error)
	Show(ctx context.Context, commits []string) (LineStream, error)
	RevList(ctx context.Context, branches []string) (LineStream, error)
	// Branches lists local head names.
	Branches(ctx context.Context) ([]string, error)
	PacksByDate() ([]string, error)
	HasLooseObjects(ctx context.Context) (bool, error)
	CommitsFromPacks(ctx context.Context, packs []string, fromCommit string) ([]string, error)
}

// Compile-time interface conformance check.
var _ Repository = (*Mirror)(nil)
