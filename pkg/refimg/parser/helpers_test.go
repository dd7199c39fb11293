package parser

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"
)

// testPNG returns a small valid PNG image.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// saveWorkbook builds a workbook with excelize and saves it to a temp file.
func saveWorkbook(t *testing.T, build func(f *excelize.File)) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)

	path := filepath.Join(t.TempDir(), "test.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}
	return path
}

func openPath(t *testing.T, path string) *Workbook {
	t.Helper()
	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer fh.Close()

	wb, err := Open(fh, OpenOptions{Name: filepath.Base(path)})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { wb.Close() })
	return wb
}

type zipPart struct {
	name string
	data string
}

// openZip opens a hand-built package from parts.
func openZip(t *testing.T, parts []zipPart) *Workbook {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			t.Fatalf("Failed to create %s: %v", p.name, err)
		}
		if _, err := w.Write([]byte(p.data)); err != nil {
			t.Fatalf("Failed to write %s: %v", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}

	wb, err := Open(&buf, OpenOptions{Name: "hand.xlsx"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { wb.Close() })
	return wb
}

const (
	testContentTypes = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Override PartName="/xl/media/photo.bin" ContentType="image/jpeg"/>
</Types>`

	testPackageRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`

	testWorkbookXML = `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Produtos" sheetId="1" r:id="rId1"/><sheet name="Outra" sheetId="2" r:id="rId2"/></sheets>
</workbook>`

	testWorkbookRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="/xl/worksheets/sheet2.xml"/>
</Relationships>`

	testSheetXML = `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetFormatPr defaultRowHeight="15"/>
<cols><col min="1" max="7" width="9.140625"/><col min="8" max="8" width="20" customWidth="1"/></cols>
<sheetData><row r="1" ht="30" customHeight="1"><c r="A1" t="inlineStr"><is><t>REF</t></is></c></row></sheetData>
<drawing r:id="rId1" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"/>
</worksheet>`

	testSheetRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/vmlDrawing" Target="../drawings/vmlDrawing1.vml"/>
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/drawing" Target="../drawings/drawing1.xml"/>
</Relationships>`

	testDrawingRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/missing.png"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/photo.bin"/>
</Relationships>`
)

// drawingXML wraps anchors in a wsDr root element.
func drawingXML(anchors string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<xdr:wsDr xmlns:xdr="http://schemas.openxmlformats.org/drawingml/2006/spreadsheetDrawing" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006">` +
		anchors + `</xdr:wsDr>`
}

func picXML(name, embed string) string {
	return `<xdr:pic><xdr:nvPicPr><xdr:cNvPr id="2" name="` + name + `"/><xdr:cNvPicPr/></xdr:nvPicPr>` +
		`<xdr:blipFill><a:blip r:embed="` + embed + `"/><a:stretch><a:fillRect/></a:stretch></xdr:blipFill>` +
		`<xdr:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="100" cy="100"/></a:xfrm></xdr:spPr></xdr:pic>`
}

func twoCellXML(col, row int, pic string) string {
	return `<xdr:twoCellAnchor editAs="oneCell"><xdr:from><xdr:col>` + strconv.Itoa(col) + `</xdr:col><xdr:colOff>95250</xdr:colOff><xdr:row>` +
		strconv.Itoa(row) + `</xdr:row><xdr:rowOff>19050</xdr:rowOff></xdr:from><xdr:to><xdr:col>` + strconv.Itoa(col+1) +
		`</xdr:col><xdr:colOff>0</xdr:colOff><xdr:row>` + strconv.Itoa(row+1) + `</xdr:row><xdr:rowOff>0</xdr:rowOff></xdr:to>` +
		pic + `<xdr:clientData/></xdr:twoCellAnchor>`
}

// handPackage returns the common parts for a one-drawing workbook.
func handPackage(drawing string, media ...zipPart) []zipPart {
	parts := []zipPart{
		{contentTypesPart, testContentTypes},
		{packageRelsPart, testPackageRels},
		{"xl/workbook.xml", testWorkbookXML},
		{"xl/_rels/workbook.xml.rels", testWorkbookRels},
		{"xl/worksheets/sheet1.xml", testSheetXML},
		{"xl/worksheets/_rels/sheet1.xml.rels", testSheetRels},
		{"xl/worksheets/sheet2.xml", `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData/></worksheet>`},
		{"xl/drawings/drawing1.xml", drawing},
		{"xl/drawings/_rels/drawing1.xml.rels", testDrawingRels},
	}
	return append(parts, media...)
}
