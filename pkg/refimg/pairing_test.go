package refimg

import (
	"testing"

	"github.com/ukaji3/refimg-go/pkg/refimg/models"
)

func anchoredImage(row int, name string) models.EmbeddedImage {
	return models.EmbeddedImage{AnchorRow: row, AnchorColumn: 7, Name: name, DeclaredExtension: "png"}
}

func TestPairImages(t *testing.T) {
	refs := []models.Reference{
		{Row: 4, NormalizedCode: "TOTAL", IsValid: false, Reason: models.ReasonInvalidToken},
		{Row: 5, NormalizedCode: "CHDJ25001", IsValid: true},
		{Row: 7, NormalizedCode: "T608", IsValid: true},
		{Row: 8, NormalizedCode: "NOIMG", IsValid: true},
	}
	images := []models.EmbeddedImage{
		anchoredImage(7, "second row first"),
		anchoredImage(5, "first"),
		anchoredImage(4, "on total"),
		anchoredImage(5, "duplicate"),
		anchoredImage(12, "no reference"),
	}

	result := PairImages(refs, images)

	if len(result.Pairs) != 2 {
		t.Fatalf("Expected 2 pairs, got %d", len(result.Pairs))
	}
	if result.Pairs[0].Reference.Row != 5 || result.Pairs[0].Image.Name != "first" {
		t.Errorf("Expected row 5 paired with the first image, got %+v", result.Pairs[0])
	}
	if result.Pairs[1].Reference.Row != 7 {
		t.Errorf("Expected pairs in ascending row order, got row %d second", result.Pairs[1].Reference.Row)
	}
	for _, p := range result.Pairs {
		if p.Reference.Row != p.Image.AnchorRow || !p.Reference.IsValid {
			t.Errorf("Pair breaks the row join: %+v", p)
		}
	}

	if len(result.DuplicateImages) != 1 || result.DuplicateImages[0].Name != "duplicate" {
		t.Errorf("Expected one duplicate, got %+v", result.DuplicateImages)
	}
	if len(result.OrphanImages) != 2 {
		t.Errorf("Expected 2 orphan images (invalid and missing reference), got %+v", result.OrphanImages)
	}
	if len(result.MissingImages) != 1 || result.MissingImages[0].NormalizedCode != "NOIMG" {
		t.Errorf("Expected NOIMG without image, got %+v", result.MissingImages)
	}
}

func TestPairImagesInvalidTokenNeverPaired(t *testing.T) {
	refs := []models.Reference{{Row: 4, NormalizedCode: "Total", IsValid: false, Reason: models.ReasonInvalidToken}}
	result := PairImages(refs, []models.EmbeddedImage{anchoredImage(4, "x")})
	if len(result.Pairs) != 0 {
		t.Errorf("Expected no pairs, got %+v", result.Pairs)
	}
}

func TestPairImagesEmpty(t *testing.T) {
	result := PairImages(nil, nil)
	if len(result.Pairs) != 0 || len(result.MissingImages) != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}
