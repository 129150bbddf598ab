// Package blob re-exports the core blob abstractions and constructs the
// backend implementations. Packages outside the blob tree depend on blob.Store
// and never import internal/infra/blob directly.
package blob

import (
	"imgtdb/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrNotFound is wrapped by Get and Head when a key is missing.
var ErrNotFound = core.ErrNotFound
