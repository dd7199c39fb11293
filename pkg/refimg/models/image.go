package models

// AnchorKind is the drawing anchor type an image was positioned with.
type AnchorKind string

const (
	// AnchorTwoCell is a twoCellAnchor (moves and sizes with cells).
	AnchorTwoCell AnchorKind = "twoCell"
	// AnchorOneCell is a oneCellAnchor (moves with its top-left cell).
	AnchorOneCell AnchorKind = "oneCell"
	// AnchorAbsolute is an absoluteAnchor mapped to its enclosing cell.
	AnchorAbsolute AnchorKind = "absolute"
	// AnchorInCell is a picture stored as a cell value.
	AnchorInCell AnchorKind = "inCell"
)

// EmbeddedImage is a picture recovered from a worksheet with the cell it is anchored to.
type EmbeddedImage struct {
	// AnchorRow is the row number (1-based).
	AnchorRow    int        `json:"anchor_row"`
	AnchorColumn Column     `json:"anchor_column"`
	Anchor       AnchorKind `json:"anchor"`
	// Part is the package part the bytes were read from, e.g. xl/media/image1.png.
	Part string `json:"part,omitempty"`
	// Name is the drawing object name (cNvPr@name), when present.
	Name              string `json:"name,omitempty"`
	Bytes             []byte `json:"-"`
	DeclaredExtension string `json:"declared_extension"`
}

// SkippedImage is a drawing object whose picture could not be read.
type SkippedImage struct {
	AnchorRow    int    `json:"anchor_row"`
	AnchorColumn Column `json:"anchor_column"`
	Part         string `json:"part,omitempty"`
	Reason       string `json:"reason"`
}
