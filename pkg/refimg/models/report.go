package models

// PublishedImage is a successful upload as shown to callers.
type PublishedImage struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Row  int    `json:"row"`
}

// FailedImage is a failed upload as shown to callers.
type FailedImage struct {
	Name     string `json:"name"`
	Row      int    `json:"row"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

// ReportSummary is the result of processing one workbook.
type ReportSummary struct {
	Workbook          string `json:"workbook,omitempty"`
	TotalRefs         int    `json:"total_refs"`
	ImagesFound       int    `json:"images_found"`
	UploadsSuccessful int    `json:"uploads_successful"`
	UploadsFailed     int    `json:"uploads_failed"`
	// Images lists successful uploads in row order.
	Images []PublishedImage `json:"images"`
	// Errors lists failed uploads in row order.
	Errors []FailedImage `json:"errors,omitempty"`
	// ReferencesWithoutImage counts valid references with no image on their row.
	ReferencesWithoutImage int `json:"references_without_image"`
	// IgnoredImages counts duplicate-row images and images without a valid reference.
	IgnoredImages int `json:"ignored_images"`
	// SkippedImages counts drawing objects whose picture part was unreadable.
	SkippedImages int `json:"skipped_images"`
	// Outcomes preserves every per-pair result in row order.
	Outcomes []UploadOutcome `json:"-"`
}
