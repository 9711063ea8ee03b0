// Package store persists trained model artifacts under string keys.
//
// An artifact is always the model together with the scaling parameters it
// depends on; they are written and read as one record. Every backend makes a
// Save atomic from a reader's point of view: Load returns either the previous
// artifact or the new one, never a partial write.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/predict"
)

// DefaultKey is the single model slot used by the application.
const DefaultKey = "house-price-model"

// Artifact is the unit persisted by a Store.
type Artifact struct {
	Bundle  predict.Bundle `json:"bundle"`
	SavedAt time.Time      `json:"savedAt"`
}

// Store saves and loads artifacts by key.
type Store interface {
	// Save writes a under key, replacing any earlier artifact, and returns the
	// timestamp it recorded. a.SavedAt is ignored.
	Save(ctx context.Context, key string, a Artifact) (time.Time, error)

	// Load returns the artifact last saved under key, or an error matching
	// errors.ErrNotFound if nothing was ever saved there.
	Load(ctx context.Context, key string) (Artifact, error)
}

// ValidateKey rejects keys that cannot be used as a file name or primary key.
func ValidateKey(key string) error {
	if key == "" {
		return errors.NewValidationError("key", "must not be empty", key)
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return errors.NewValidationError("key", "must be a plain name", key)
	}
	return nil
}

func encodeArtifact(a Artifact, savedAt time.Time) ([]byte, uint64, error) {
	rec := a.Bundle.Record()
	rec.SavedAt = savedAt
	return marshal(rec)
}

func now() time.Time {
	return time.Now().UTC()
}
