package refimg

import (
	"sort"

	"github.com/ukaji3/refimg-go/pkg/refimg/models"
)

// PairImages joins images to valid references by row.
//
// Images are taken in document order. The first image on a row with a valid
// reference forms the pair; later images on that row are recorded as
// duplicates. Images on rows without a valid reference are never paired.
// Pairs are returned in ascending row order.
func PairImages(refs []models.Reference, images []models.EmbeddedImage) models.PairingResult {
	valid := make(map[int]models.Reference, len(refs))
	for _, ref := range refs {
		if ref.IsValid {
			valid[ref.Row] = ref
		}
	}

	var result models.PairingResult
	paired := make(map[int]bool, len(valid))
	for _, img := range images {
		ref, ok := valid[img.AnchorRow]
		switch {
		case !ok:
			result.OrphanImages = append(result.OrphanImages, img)
		case paired[img.AnchorRow]:
			result.DuplicateImages = append(result.DuplicateImages, img)
		default:
			paired[img.AnchorRow] = true
			result.Pairs = append(result.Pairs, models.Pair{Reference: ref, Image: img})
		}
	}

	sort.SliceStable(result.Pairs, func(i, j int) bool {
		return result.Pairs[i].Reference.Row < result.Pairs[j].Reference.Row
	})

	for _, ref := range refs {
		if ref.IsValid && !paired[ref.Row] {
			result.MissingImages = append(result.MissingImages, ref)
		}
	}
	return result
}
