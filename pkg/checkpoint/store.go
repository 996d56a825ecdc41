package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/operator-framework/daily-billing/pkg/billing"
)

var (
	// ErrNotFound is returned by a Store when no object exists for a key.
	ErrNotFound = errors.New("checkpoint not found")
)

// Store manages the persistence of checkpoints as opaque blobs.
type Store interface {
	// Download returns the object stored under key, or ErrNotFound.
	Download(ctx context.Context, key string) ([]byte, error)

	// Upload stores data under key, replacing any existing object.
	Upload(ctx context.Context, key string, data []byte) error
}

// Key returns the object key of the checkpoint for target within folder.
func Key(folder, target string) string {
	return path.Join(folder, target+".json")
}

// Load downloads and decodes the checkpoint stored under key. A missing
// object is not an error and yields an empty checkpoint.
func Load(ctx context.Context, store Store, key string) (billing.Checkpoint, error) {
	data, err := store.Download(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return billing.Checkpoint{}, nil
	}
	if err != nil {
		return billing.Checkpoint{}, fmt.Errorf("could not download checkpoint '%s': %w", key, err)
	}
	cp, err := Decode(data)
	if err != nil {
		return billing.Checkpoint{}, fmt.Errorf("could not read checkpoint '%s': %w", key, err)
	}
	return cp, nil
}

// Save encodes and uploads cp under key.
func Save(ctx context.Context, store Store, key string, cp billing.Checkpoint) error {
	data, err := Encode(cp)
	if err != nil {
		return fmt.Errorf("could not encode checkpoint: %w", err)
	}
	if err := store.Upload(ctx, key, data); err != nil {
		return fmt.Errorf("could not upload checkpoint '%s': %w", key, err)
	}
	return nil
}

// NewStore configures a store from a URL. An empty URL selects the S3 bucket
// given. Supported schemes are s3://bucket, file:///path and mem://.
func NewStore(rawURL, bucket, region string) (Store, error) {
	if rawURL == "" {
		if bucket == "" {
			return nil, errors.New("a bucket is required when no checkpoint store URL is given")
		}
		return NewS3Store(bucket, region), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("a valid checkpoint store URL with scheme (s3://, file:// or mem://) must be given: %v", err)
	}

	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("no bucket in checkpoint store URL '%s'", rawURL)
		}
		return NewS3Store(u.Host, region), nil
	case "file":
		dir := u.Path
		if u.Host != "" {
			// file://relative/dir
			dir = path.Join(u.Host, strings.TrimPrefix(u.Path, "/"))
		}
		return NewFileStore(dir)
	case "mem":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown scheme '%s' given, please provide either s3://, file:// or mem://", u.Scheme)
	}
}
