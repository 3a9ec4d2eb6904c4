package hocr

import "strings"

// Text extracts all text from a Doc in reading order.
// Words are joined by spaces, lines by newlines, pages by double newlines.
func Text(doc *Doc) string {
	var builder strings.Builder
	for i, page := range doc.Pages {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(PageText(&page))
	}
	return builder.String()
}

// PageText extracts the text of a single page, one line per text line.
func PageText(page *Page) string {
	var builder strings.Builder
	for i, line := range page.Lines {
		if i > 0 {
			builder.WriteString("\n")
		}
		for j, word := range line.Words {
			if j > 0 {
				builder.WriteString(" ")
			}
			builder.WriteString(word.Text)
		}
	}
	return builder.String()
}

// Words flattens a page into its words in reading order.
func Words(page *Page) []Word {
	var words []Word
	for _, line := range page.Lines {
		words = append(words, line.Words...)
	}
	return words
}
