//go:build !unix

package storage

// lockFile is a no-op where flock is unavailable; writers are then only
// serialized within one process.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
