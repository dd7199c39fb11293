package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	contentTypesPart = "[Content_Types].xml"
	packageRelsPart  = "_rels/.rels"
	defaultWorkbook  = "xl/workbook.xml"
)

// Relationship type suffixes. Transitional and strict OOXML differ only in
// the namespace prefix, so types are matched by suffix.
const (
	relOfficeDocument = "/officeDocument"
	relWorksheet      = "/worksheet"
	relDrawing        = "/drawing"
	relImage          = "/image"
)

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type xlsxRelationships struct {
	Relationships []relationship `xml:"Relationship"`
}

func (r relationship) isType(suffix string) bool {
	return strings.HasSuffix(r.Type, suffix)
}

func (r relationship) external() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

func parseRelationships(data []byte) ([]relationship, error) {
	var rels xlsxRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	return rels.Relationships, nil
}

// relsPartFor returns the relationships part that belongs to part,
// e.g. xl/worksheets/sheet1.xml -> xl/worksheets/_rels/sheet1.xml.rels.
func relsPartFor(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

// resolveTarget resolves a relationship target against the part that owns
// the relationship. Absolute targets are rooted at the package root.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	resolved := path.Clean(path.Join(path.Dir(source), target))
	return strings.TrimPrefix(resolved, "/")
}

// readRelationships loads the relationships of part. A part without a
// relationships part has none.
func (wb *Workbook) readRelationships(part string) ([]relationship, error) {
	relsPart := relsPartFor(part)
	if !wb.HasPart(relsPart) {
		return nil, nil
	}
	data, err := wb.ReadPart(relsPart)
	if err != nil {
		return nil, err
	}
	rels, err := parseRelationships(data)
	if err != nil {
		return nil, &FormatError{Part: relsPart, Err: err}
	}
	return rels, nil
}

// SheetInfo locates one worksheet inside the package.
type SheetInfo struct {
	Name  string
	RelID string
	// Part is the worksheet part name, e.g. xl/worksheets/sheet1.xml.
	Part string
}

// Sheets returns the worksheets in workbook order.
func (wb *Workbook) Sheets() ([]SheetInfo, error) {
	wb.sheetsOnce.Do(func() {
		wb.sheets, wb.sheetsErr = wb.loadSheets()
	})
	return wb.sheets, wb.sheetsErr
}

// Sheet returns the named worksheet, or the first one when name is empty.
func (wb *Workbook) Sheet(name string) (SheetInfo, error) {
	sheets, err := wb.Sheets()
	if err != nil {
		return SheetInfo{}, err
	}
	if len(sheets) == 0 {
		return SheetInfo{}, &FormatError{Err: fmt.Errorf("%w: workbook has no worksheets", ErrSheetNotFound)}
	}
	if name == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return SheetInfo{}, &FormatError{Err: fmt.Errorf("%w: %q", ErrSheetNotFound, name)}
}

func (wb *Workbook) loadSheets() ([]SheetInfo, error) {
	workbookPart := defaultWorkbook
	if rels, err := wb.readRelationships(""); err == nil {
		for _, r := range rels {
			if r.isType(relOfficeDocument) {
				workbookPart = resolveTarget("", r.Target)
				break
			}
		}
	}

	data, err := wb.ReadPart(workbookPart)
	if err != nil {
		return nil, err
	}
	sheets, err := parseWorkbookSheets(data)
	if err != nil {
		return nil, &FormatError{Part: workbookPart, Err: err}
	}

	rels, err := wb.readRelationships(workbookPart)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels))
	for _, r := range rels {
		if r.isType(relWorksheet) {
			targets[r.ID] = resolveTarget(workbookPart, r.Target)
		}
	}

	result := make([]SheetInfo, 0, len(sheets))
	for _, s := range sheets {
		part, ok := targets[s.RelID]
		if !ok {
			// Chart sheets and dialog sheets have no worksheet relationship.
			continue
		}
		s.Part = part
		result = append(result, s)
	}
	return result, nil
}

// parseWorkbookSheets returns the sheet elements of workbook.xml in order.
func parseWorkbookSheets(data []byte) ([]SheetInfo, error) {
	var result []SheetInfo
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "sheet" {
			var info SheetInfo
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					info.Name = attr.Value
				case "id":
					info.RelID = attr.Value
				}
			}
			if info.Name != "" && info.RelID != "" {
				result = append(result, info)
			}
		}
	}

	return result, nil
}

type xlsxContentTypes struct {
	Defaults []struct {
		Extension   string `xml:"Extension,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Default"`
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

type contentTypes struct {
	defaults  map[string]string
	overrides map[string]string
}

func parseContentTypes(data []byte) (*contentTypes, error) {
	var raw xlsxContentTypes
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	ct := &contentTypes{
		defaults:  make(map[string]string, len(raw.Defaults)),
		overrides: make(map[string]string, len(raw.Overrides)),
	}
	for _, d := range raw.Defaults {
		ct.defaults[strings.ToLower(d.Extension)] = d.ContentType
	}
	for _, o := range raw.Overrides {
		ct.overrides[strings.TrimPrefix(o.PartName, "/")] = o.ContentType
	}
	return ct, nil
}

// lookup returns the declared content type of a part, if any.
func (ct *contentTypes) lookup(part string) string {
	if v, ok := ct.overrides[part]; ok {
		return v
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(part), "."))
	return ct.defaults[ext]
}

func (wb *Workbook) contentTypes() (*contentTypes, error) {
	wb.ctOnce.Do(func() {
		data, err := wb.ReadPart(contentTypesPart)
		if err != nil {
			wb.ctErr = err
			return
		}
		wb.ct, wb.ctErr = parseContentTypes(data)
		if wb.ctErr != nil {
			wb.ctErr = &FormatError{Part: contentTypesPart, Err: wb.ctErr}
		}
	})
	return wb.ct, wb.ctErr
}

func readElementText(decoder *xml.Decoder) (string, error) {
	var text strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return text.String(), err
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return strings.TrimSpace(text.String()), nil
}
