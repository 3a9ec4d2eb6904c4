package hocr

// Doc represents an entire hOCR document
type Doc struct {
	Title    string            // Document title
	Language string            // Document language
	System   string            // Producing OCR system (ocr-system meta)
	Metadata map[string]string // Additional head metadata
	Pages    []Page            // Pages in reading order
}

// Page is one page of recognized text
// Corresponds to an hOCR element with class 'ocr_page'
type Page struct {
	ID         string  // Unique identifier
	PageNumber int     // 1-based page number (ppageno)
	Image      string  // Source image reference from the title attribute
	Lang       string  // Language code for this page
	BBox       BBox    // Page bounds in recognition-space pixels
	DPI        float64 // Effective recognition resolution, 0 if unknown
	Lines      []Line  // Text lines in reading order
}

// Class assigns 'ocr_page' to the Page struct
func (Page) Class() string { return "ocr_page" }

// Line represents a line of text
// Corresponds to an hOCR element with class 'ocr_line'
type Line struct {
	ID       string   // Unique identifier
	BBox     BBox     // Line bounds
	Baseline Baseline // Baseline slope and offset relative to the bbox bottom
	Words    []Word   // Words in this line
}

// Class assigns 'ocr_line' to the Line struct
func (Line) Class() string { return "ocr_line" }

// Word is a recognized word with its bounding box
// Corresponds to an hOCR element with class 'ocrx_word'
type Word struct {
	ID         string  // Unique identifier
	Text       string  // Recognized text content
	BBox       BBox    // Word bounds in recognition-space pixels
	Confidence float64 // Recognition confidence (0-100, x_wconf)
	Order      int     // Reading-order index within the page, assigned at parse
}

// Class assigns 'ocrx_word' to the Word struct
func (Word) Class() string { return "ocrx_word" }

// Baseline holds the hOCR 'baseline' property: a linear slope and a pixel
// offset measured from the bottom edge of the owning line's bounding box.
type Baseline struct {
	Slope  float64
	Offset float64
}

// BBox represents a rectangle in recognition-space
// x1,y1 is the top-left corner, x2,y2 the bottom-right
type BBox struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// NewBBox creates a bounding box from the x1, y1, x2, y2 coordinates found in
// hOCR 'bbox' properties.
func NewBBox(x1, y1, x2, y2 float64) BBox {
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Empty reports whether the box has no positive area.
func (b BBox) Empty() bool { return b.X2 <= b.X1 || b.Y2 <= b.Y1 }
