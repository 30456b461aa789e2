// Package upload stores the successful images of a batch and maps each
// input to its public URL.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/blob"
	"github.com/abhisek/quizgen/internal/imagegen"
)

// Report is the per-index result of an upload.
type Report struct {
	// URLs holds one entry per input. Nil means no image: generation failed
	// or the upload did.
	URLs []*string

	// GenerationErrors maps index to the generation failure text.
	GenerationErrors map[int]string

	// UploadErrors maps index to the upload failure text. These are images
	// that were generated but could not be stored.
	UploadErrors map[int]string

	objects []object
}

type object struct {
	index        int
	bucket, path string
}

// Stored returns the number of images that were stored.
func (r Report) Stored() int { return len(r.objects) }

// Uploader writes batch outcomes to a blob store.
type Uploader struct {
	store blob.Store
	log   *zap.Logger
	newID func() string
}

// New creates an Uploader over store.
func New(store blob.Store, log *zap.Logger) *Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Uploader{store: store, log: log.Named("upload"), newID: uuid.NewString}
}

// Upload stores each successful payload at <kind>-images/<quizID>/<uuid>.png.
// kinds must be the list the outcome was generated from. Upload failures
// are recorded per index and never abort the remaining items; only a
// malformed call returns an error.
func (u *Uploader) Upload(ctx context.Context, quizID string, outcome imagegen.BatchOutcome, kinds []imagegen.ImageKind) (Report, error) {
	quizID = strings.TrimSpace(quizID)
	if err := ValidateQuizID(quizID); err != nil {
		return Report{}, err
	}
	if len(kinds) != len(outcome.Results) {
		return Report{}, &imagegen.InvalidArgumentError{
			Reason: fmt.Sprintf("got %d results but %d kinds", len(outcome.Results), len(kinds)),
		}
	}

	report := Report{
		URLs:             make([]*string, len(outcome.Results)),
		GenerationErrors: map[int]string{},
		UploadErrors:     map[int]string{},
	}

	for i, res := range outcome.Results {
		if !res.Success {
			report.GenerationErrors[i] = res.Error
			continue
		}

		bucket := kinds[i].Bucket()
		path := fmt.Sprintf("%s/%s.png", quizID, u.newID())
		url, err := u.store.Put(ctx, bucket, path, res.Payload)
		if err != nil {
			report.UploadErrors[i] = err.Error()
			u.log.Warn("image upload failed",
				zap.String("quiz_id", quizID),
				zap.Int("index", i),
				zap.String("bucket", bucket),
				zap.Error(err),
			)
			continue
		}

		report.URLs[i] = &url
		report.objects = append(report.objects, object{index: i, bucket: bucket, path: path})
	}

	u.log.Info("upload finished",
		zap.String("quiz_id", quizID),
		zap.Int("stored", report.Stored()),
		zap.Int("generation_failures", len(report.GenerationErrors)),
		zap.Int("upload_failures", len(report.UploadErrors)),
	)
	return report, nil
}

// ValidateQuizID rejects IDs that cannot be used as a storage path segment.
func ValidateQuizID(quizID string) error {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" || quizID == "." || quizID == ".." || strings.ContainsAny(quizID, `/\`) {
		return &imagegen.InvalidArgumentError{Reason: fmt.Sprintf("invalid quiz ID %q", quizID)}
	}
	return nil
}

// Rollback deletes every blob stored by report, for callers that abandon
// the quiz after uploading. Blobs already gone are ignored.
func (u *Uploader) Rollback(ctx context.Context, report Report) error {
	var errs []error
	for _, o := range report.objects {
		err := u.store.Delete(ctx, o.bucket, o.path)
		if err != nil && !errors.Is(err, blob.ErrNotFound) {
			errs = append(errs, fmt.Errorf("index %d: %w", o.index, err))
		}
	}
	return errors.Join(errs...)
}
