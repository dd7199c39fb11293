package upload

import (
	"context"
	"fmt"

	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"golang.org/x/sync/errgroup"
)

// UploadAll uploads pairs with at most MaxConcurrentUploads in flight.
// Outcomes are in the order of pairs regardless of completion order.
// Pairs not started before ctx is done are reported as TransferFailure.
func (u *Uploader) UploadAll(ctx context.Context, pairs []models.Pair) []models.UploadOutcome {
	outcomes := make([]models.UploadOutcome, len(pairs))
	if len(pairs) == 0 {
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(u.cfg.MaxConcurrentUploads)
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			outcomes[i] = u.abandoned(pair, err)
			continue
		}
		g.Go(func() error {
			outcomes[i] = u.Upload(ctx, pair)
			return nil
		})
	}
	g.Wait()

	return outcomes
}

func (u *Uploader) abandoned(pair models.Pair, cause error) models.UploadOutcome {
	name := RemoteFilename(pair.Reference.NormalizedCode, pair.Image.DeclaredExtension)
	outcome := models.UploadOutcome{
		Pair:           pair,
		Row:            pair.Reference.Row,
		RemoteFilename: name,
		RemoteURL:      PublicURL(u.cfg.PublicBaseURL, name),
	}
	err := &Error{Category: TransferFailure, Op: "upload", Err: fmt.Errorf("not started: %w", cause)}
	return failed(outcome, err, u.logger.With("ref", pair.Reference.NormalizedCode, "row", pair.Reference.Row))
}
