// Package hocr implements parsing, generation, and text extraction for hOCR
// data, the HTML-based interchange format for optical recognition results.
//
// The object model is deliberately flat: a Doc holds Pages, a Page holds
// Lines, a Line holds Words. Recognition engines that report richer layout
// (blocks, columns, paragraphs) are flattened into lines during conversion,
// since word geometry is the only level the text-layer graft consumes.
//
// Every Word carries a reading-order index assigned during parsing or
// conversion. The index is stable for a given input and is never reassigned,
// so downstream consumers can rely on it for ordering text extraction.
//
// Main Functions:
//
// - Parse: parses hOCR HTML into the object model
// - Generate: renders the object model back to valid hOCR HTML
// - Text: extracts linearized plain text in reading order
package hocr
