// Package storage stores file attachments and backups outside the
// database. Keys follow the "<id>/<name>" layout: id is a namespace
// (usually a record or backup id), name the file name.
package storage

import "context"

// FileStore uploads, downloads, and lists files in one namespace.
type FileStore interface {
	Upload(ctx context.Context, id, name string, data []byte) error
	Download(ctx context.Context, id, name string) ([]byte, error)
	List(ctx context.Context, id string) ([]string, error)
}
