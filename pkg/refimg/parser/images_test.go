package parser

import (
	"bytes"
	"errors"
	"strconv"
	"testing"

	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"github.com/xuri/excelize/v2"
)

func absoluteXML(x, y int64, pic string) string {
	return `<xdr:absoluteAnchor><xdr:pos x="` + strconv.FormatInt(x, 10) + `" y="` + strconv.FormatInt(y, 10) +
		`"/><xdr:ext cx="100" cy="100"/>` + pic + `<xdr:clientData/></xdr:absoluteAnchor>`
}

func TestResolveImagesHandBuilt(t *testing.T) {
	pngData := testPNG(t)
	drawing := drawingXML(
		twoCellXML(7, 4, picXML("Picture 1", "rId1")) +
			twoCellXML(7, 6, picXML("Picture 2", "rId2")) +
			`<xdr:oneCellAnchor><xdr:from><xdr:col>7</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>5</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:from><xdr:ext cx="100" cy="100"/>` +
			picXML("Picture 3", "rId3") + `<xdr:clientData/></xdr:oneCellAnchor>` +
			absoluteXML(7*64*EMUPerPixel+10*EMUPerPixel, 30*EMUPerPoint+2*15*EMUPerPoint+1000, picXML("Picture 4", "rId1")) +
			`<mc:AlternateContent><mc:Choice Requires="a14">` + twoCellXML(7, 8, picXML("Picture 5", "rId1")) +
			`</mc:Choice><mc:Fallback>` + twoCellXML(7, 8, picXML("Picture 5 fallback", "rId1")) + `</mc:Fallback></mc:AlternateContent>`)

	wb := openZip(t, handPackage(drawing,
		zipPart{"xl/media/image1.png", string(pngData)},
		zipPart{"xl/media/photo.bin", "\xff\xd8\xff\xe0not really a jpeg"},
	))

	set, err := ResolveImages(wb, "")
	if err != nil {
		t.Fatalf("ResolveImages failed: %v", err)
	}
	if set.Sheet != "Produtos" {
		t.Errorf("Expected sheet 'Produtos', got %q", set.Sheet)
	}

	tests := []struct {
		row    int
		anchor models.AnchorKind
		part   string
		ext    string
	}{
		{5, models.AnchorTwoCell, "xl/media/image1.png", "png"},
		{6, models.AnchorOneCell, "xl/media/photo.bin", "jpg"},
		{4, models.AnchorAbsolute, "xl/media/image1.png", "png"},
		{9, models.AnchorTwoCell, "xl/media/image1.png", "png"},
	}
	if len(set.Images) != len(tests) {
		t.Fatalf("Expected %d images, got %d: %+v", len(tests), len(set.Images), set.Images)
	}
	for i, tt := range tests {
		img := set.Images[i]
		if img.AnchorRow != tt.row || img.AnchorColumn != 7 || img.Anchor != tt.anchor || img.Part != tt.part || img.DeclaredExtension != tt.ext {
			t.Errorf("Images[%d] = row %d col %s anchor %s part %s ext %s, expected row %d col H anchor %s part %s ext %s",
				i, img.AnchorRow, img.AnchorColumn, img.Anchor, img.Part, img.DeclaredExtension,
				tt.row, tt.anchor, tt.part, tt.ext)
		}
	}
	if !bytes.Equal(set.Images[0].Bytes, pngData) {
		t.Error("Expected image bytes to match the media part")
	}
	if set.Images[3].Name != "Picture 5" {
		t.Errorf("Expected the Choice branch picture, got %q", set.Images[3].Name)
	}

	if len(set.Skipped) != 1 {
		t.Fatalf("Expected 1 skipped image, got %d", len(set.Skipped))
	}
	skipped := set.Skipped[0]
	if skipped.AnchorRow != 7 || skipped.Reason != "media part missing" || skipped.Part != "xl/media/missing.png" {
		t.Errorf("Unexpected skipped image: %+v", skipped)
	}
}

func TestResolveImagesSheetWithoutDrawing(t *testing.T) {
	wb := openZip(t, handPackage(drawingXML("")))

	set, err := ResolveImages(wb, "Outra")
	if err != nil {
		t.Fatalf("ResolveImages failed: %v", err)
	}
	if len(set.Images) != 0 || len(set.Skipped) != 0 {
		t.Errorf("Expected no images, got %+v", set)
	}
}

func TestResolveImagesMissingDrawingPart(t *testing.T) {
	parts := handPackage("")
	kept := parts[:0]
	for _, p := range parts {
		if p.name != "xl/drawings/drawing1.xml" {
			kept = append(kept, p)
		}
	}
	wb := openZip(t, kept)

	_, err := ResolveImages(wb, "")
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Part != "xl/drawings/drawing1.xml" {
		t.Fatalf("Expected FormatError for the drawing part, got %v", err)
	}
}

func TestResolveImagesLinkedPicture(t *testing.T) {
	linked := `<xdr:pic><xdr:nvPicPr><xdr:cNvPr id="2" name="Linked"/></xdr:nvPicPr>` +
		`<xdr:blipFill><a:blip r:link="rId9"/></xdr:blipFill></xdr:pic>`
	wb := openZip(t, handPackage(drawingXML(twoCellXML(7, 4, linked))))

	set, err := ResolveImages(wb, "")
	if err != nil {
		t.Fatalf("ResolveImages failed: %v", err)
	}
	if len(set.Images) != 0 {
		t.Errorf("Expected linked picture to be skipped, got %d images", len(set.Images))
	}
	if len(set.Skipped) != 1 || set.Skipped[0].Reason != "linked picture is not embedded" {
		t.Errorf("Unexpected skipped list: %+v", set.Skipped)
	}
}

func TestResolveImagesExcelize(t *testing.T) {
	pngData := testPNG(t)
	path := saveWorkbook(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A5", "CHDJ25001")
		f.SetCellValue("Sheet1", "A7", "T608")
		for _, cell := range []string{"H5", "H7"} {
			err := f.AddPictureFromBytes("Sheet1", cell, &excelize.Picture{
				Extension: ".png",
				File:      pngData,
				Format:    &excelize.GraphicOptions{},
			})
			if err != nil {
				t.Fatalf("AddPictureFromBytes(%s) failed: %v", cell, err)
			}
		}
	})
	wb := openPath(t, path)

	set, err := ResolveImages(wb, "")
	if err != nil {
		t.Fatalf("ResolveImages failed: %v", err)
	}
	if len(set.Images) != 2 {
		t.Fatalf("Expected 2 images, got %d", len(set.Images))
	}
	for i, row := range []int{5, 7} {
		img := set.Images[i]
		if img.AnchorRow != row || img.AnchorColumn.String() != "H" || img.DeclaredExtension != "png" {
			t.Errorf("Images[%d] = %s%d ext %s, expected H%d png", i, img.AnchorColumn, img.AnchorRow, img.DeclaredExtension, row)
		}
	}
}

func TestNormalizeExtension(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{".PNG", "png"},
		{"jpeg", "jpg"},
		{".jfif", "jpg"},
		{"tif", "tiff"},
		{" gif ", "gif"},
		{"", ""},
	}
	for _, tt := range tests {
		if result := NormalizeExtension(tt.input); result != tt.expected {
			t.Errorf("NormalizeExtension(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestSniffExtension(t *testing.T) {
	if ext := SniffExtension(testPNG(t)); ext != "png" {
		t.Errorf("Expected png, got %q", ext)
	}
	if ext := SniffExtension([]byte("plain text")); ext != "" {
		t.Errorf("Expected no extension for text, got %q", ext)
	}
}
