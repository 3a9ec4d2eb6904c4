package hocr

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// Parse converts raw hOCR data into a structured Doc.
func Parse(data []byte) (Doc, error) {
	var result Doc
	result.Metadata = make(map[string]string)

	// Figure out the character encoding from the meta charset, defaulting to UTF-8
	content := string(data)
	encoding := "utf-8"
	if idx := strings.Index(content, "charset="); idx >= 0 {
		snippet := content[idx+len("charset="):]
		fields := strings.FieldsFunc(snippet, func(r rune) bool {
			return r == '"' || r == ';' || r == '\'' || r == '>'
		})
		if len(fields) > 0 && fields[0] != "" {
			encoding = strings.ToLower(fields[0])
		}
	}

	decoded := data
	if encoding != "utf-8" {
		var err error
		decoded, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return result, fmt.Errorf("failed to decode %s: %w", encoding, err)
		}
	}

	doc, err := html.Parse(strings.NewReader(string(decoded)))
	if err != nil {
		return result, err
	}

	parseHead(&result, doc)

	var findPages func(*html.Node)
	findPages = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" &&
			strings.Contains(getAttrVal(n, "class"), "ocr_page") {
			result.Pages = append(result.Pages, parsePage(n, len(result.Pages)+1))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findPages(c)
		}
	}
	findPages(doc)

	if len(result.Pages) == 0 {
		return result, fmt.Errorf("no ocr_page elements found in hOCR data")
	}
	return result, nil
}

// ParseTitle breaks down an hOCR title attribute into its properties
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

// ParseBBoxFromTitle extracts a bounding box from a title string
// Returns nil if the title carries no bbox property
func ParseBBoxFromTitle(title string) *BBox {
	props := ParseTitle(title)
	if bbox, ok := props["bbox"]; ok && len(bbox) >= 4 {
		x1, _ := strconv.ParseFloat(bbox[0], 64)
		y1, _ := strconv.ParseFloat(bbox[1], 64)
		x2, _ := strconv.ParseFloat(bbox[2], 64)
		y2, _ := strconv.ParseFloat(bbox[3], 64)
		result := NewBBox(x1, y1, x2, y2)
		return &result
	}
	return nil
}

// parseHead extracts document-level metadata from the html head section.
func parseHead(result *Doc, doc *html.Node) {
	var findHTMLLang func(*html.Node)
	findHTMLLang = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "html" {
			for _, a := range n.Attr {
				if a.Key == "lang" || a.Key == "xml:lang" {
					result.Language = a.Val
					return
				}
			}
		}
		if n.Parent == nil {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				findHTMLLang(c)
			}
		}
	}
	findHTMLLang(doc)

	var findHead func(*html.Node) *html.Node
	findHead = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "head" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := findHead(c); found != nil {
				return found
			}
		}
		return nil
	}
	head := findHead(doc)
	if head == nil {
		return
	}

	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "title":
			if c.FirstChild != nil {
				result.Title = c.FirstChild.Data
			}
		case "meta":
			name := getAttrVal(c, "name")
			content := getAttrVal(c, "content")
			if name == "" || content == "" {
				continue
			}
			switch name {
			case "ocr-system":
				result.System = content
				result.Metadata[name] = content
			case "dc.language":
				result.Language = content
			default:
				if strings.HasPrefix(name, "ocr-") {
					result.Metadata[name] = content
				}
			}
		}
	}
}

// parsePage extracts one ocr_page element with all lines found beneath it,
// regardless of intermediate carea/paragraph nesting.
func parsePage(n *html.Node, fallbackNumber int) Page {
	page := Page{PageNumber: fallbackNumber}

	for _, attr := range n.Attr {
		switch attr.Key {
		case "id":
			page.ID = attr.Val
		case "lang":
			page.Lang = attr.Val
		case "title":
			if bbox := ParseBBoxFromTitle(attr.Val); bbox != nil {
				page.BBox = *bbox
			}
			props := ParseTitle(attr.Val)
			if image, ok := props["image"]; ok && len(image) > 0 {
				page.Image = strings.Trim(image[0], `"`)
			}
			if ppageno, ok := props["ppageno"]; ok && len(ppageno) > 0 {
				// hOCR ppageno is 0-based
				if no, err := strconv.Atoi(ppageno[0]); err == nil {
					page.PageNumber = no + 1
				}
			}
			if res, ok := props["scan_res"]; ok && len(res) > 0 {
				page.DPI, _ = strconv.ParseFloat(res[0], 64)
			}
		}
	}

	order := 0
	var collectLines func(*html.Node)
	collectLines = func(node *html.Node) {
		if node.Type == html.ElementNode {
			class := getAttrVal(node, "class")
			if strings.Contains(class, "ocr_line") ||
				strings.Contains(class, "ocr_header") ||
				strings.Contains(class, "ocr_caption") ||
				strings.Contains(class, "ocr_textfloat") {
				line := parseLine(node, &order)
				if len(line.Words) > 0 {
					page.Lines = append(page.Lines, line)
				}
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collectLines(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectLines(c)
	}

	return page
}

// parseLine extracts one ocr_line element and its ocrx_word children.
// The shared order counter assigns each word its page-wide reading index.
func parseLine(n *html.Node, order *int) Line {
	line := Line{}

	for _, attr := range n.Attr {
		switch attr.Key {
		case "id":
			line.ID = attr.Val
		case "title":
			if bbox := ParseBBoxFromTitle(attr.Val); bbox != nil {
				line.BBox = *bbox
			}
			props := ParseTitle(attr.Val)
			if baseline, ok := props["baseline"]; ok && len(baseline) >= 2 {
				line.Baseline.Slope, _ = strconv.ParseFloat(baseline[0], 64)
				line.Baseline.Offset, _ = strconv.ParseFloat(baseline[1], 64)
			}
		}
	}

	var collectWords func(*html.Node)
	collectWords = func(node *html.Node) {
		if node.Type == html.ElementNode &&
			strings.Contains(getAttrVal(node, "class"), "ocrx_word") {
			word := Word{ID: getAttrVal(node, "id"), Order: *order}
			if title := getAttrVal(node, "title"); title != "" {
				if bbox := ParseBBoxFromTitle(title); bbox != nil {
					word.BBox = *bbox
				}
				props := ParseTitle(title)
				if conf, ok := props["x_wconf"]; ok && len(conf) > 0 {
					word.Confidence, _ = strconv.ParseFloat(conf[0], 64)
				}
			}
			word.Text = strings.TrimSpace(nodeText(node))
			if word.Text != "" {
				*order++
				line.Words = append(line.Words, word)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collectWords(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectWords(c)
	}

	return line
}

// nodeText concatenates all text content beneath a node.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

// getAttrVal returns the value of the named attribute, or "" when absent.
func getAttrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
