package refimg

import "github.com/ukaji3/refimg-go/pkg/refimg/models"

// Counts are the pre-upload figures reported alongside outcomes.
type Counts struct {
	TotalRefs              int
	ImagesFound            int
	ReferencesWithoutImage int
	IgnoredImages          int
	SkippedImages          int
}

// CountsFor derives report counts from the pipeline's intermediate results.
// Images anchored above startRow are not counted as found.
func CountsFor(refs []models.Reference, images []models.EmbeddedImage, pairing models.PairingResult, skipped, startRow int) Counts {
	c := Counts{
		ReferencesWithoutImage: len(pairing.MissingImages),
		IgnoredImages:          len(pairing.DuplicateImages) + len(pairing.OrphanImages),
		SkippedImages:          skipped,
	}
	for _, ref := range refs {
		if ref.IsValid {
			c.TotalRefs++
		}
	}
	for _, img := range images {
		if img.AnchorRow >= startRow {
			c.ImagesFound++
		}
	}
	return c
}

// Aggregate builds the report for one workbook. Outcome order is preserved.
func Aggregate(counts Counts, outcomes []models.UploadOutcome) *models.ReportSummary {
	summary := &models.ReportSummary{
		TotalRefs:              counts.TotalRefs,
		ImagesFound:            counts.ImagesFound,
		ReferencesWithoutImage: counts.ReferencesWithoutImage,
		IgnoredImages:          counts.IgnoredImages,
		SkippedImages:          counts.SkippedImages,
		Images:                 []models.PublishedImage{},
		Outcomes:               make([]models.UploadOutcome, len(outcomes)),
	}
	copy(summary.Outcomes, outcomes)

	for _, o := range outcomes {
		if o.Succeeded() {
			summary.UploadsSuccessful++
			summary.Images = append(summary.Images, models.PublishedImage{
				Name: o.RemoteFilename,
				URL:  o.RemoteURL,
				Row:  o.Row,
			})
			continue
		}
		summary.UploadsFailed++
		summary.Errors = append(summary.Errors, models.FailedImage{
			Name:     o.RemoteFilename,
			Row:      o.Row,
			Category: o.Category,
			Error:    o.Error,
		})
	}
	return summary
}
