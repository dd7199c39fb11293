package models

// Reason values for invalid references.
const (
	ReasonInvalidToken = "invalid_token"
	ReasonUnsafe       = "unsafe"
)

// Reference is the reference code read from one row.
type Reference struct {
	// Row is the row number (1-based).
	Row            int    `json:"row"`
	RawText        string `json:"raw_text"`
	NormalizedCode string `json:"normalized_code"`
	IsValid        bool   `json:"is_valid"`
	// Reason explains why IsValid is false.
	Reason string `json:"reason,omitempty"`
}

// Pair is a valid reference joined to the image anchored on its row.
type Pair struct {
	Reference Reference     `json:"reference"`
	Image     EmbeddedImage `json:"image"`
}

// PairingResult is the output of joining references and images.
type PairingResult struct {
	// Pairs are ordered by ascending row.
	Pairs []Pair
	// DuplicateImages are extra images on a row that already produced a pair.
	DuplicateImages []EmbeddedImage
	// OrphanImages are images on rows without a valid reference.
	OrphanImages []EmbeddedImage
	// MissingImages are valid references with no image on their row.
	MissingImages []Reference
}
