package archive

import (
	"context"
	"fmt"
	"os"

	infraS3 "traitcore/internal/archive/s3"
)

// Open selects an archive.Store implementation using environment variables.
//
//	TRAITCORE_ARCHIVE_DRIVER: fs|s3|memory (default fs)
//	TRAITCORE_ARCHIVE_FS_ROOT: directory root when driver=fs (default ./archivedata)
//	(S3 specific variables documented in the s3 subpackage)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("TRAITCORE_ARCHIVE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("TRAITCORE_ARCHIVE_FS_ROOT")
		return NewFilesystem(root)
	case DriverS3:
		return infraS3.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}

// S3Config re-exports the S3 driver configuration type.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed archive.Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}
