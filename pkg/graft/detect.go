package graft

import (
	"fmt"
	"regexp"
	"strings"
)

// LayerCheck contains the results of scanning a PDF for grafted text layers.
type LayerCheck struct {
	Layers    []string // All optional-content layer names found
	HasLayer  bool     // True when a layer matching the graft layer name exists
	LayerName string   // Name of the matching layer, if any
	Warnings  []string // Layers that look like OCR but don't match the name
}

// nameGroup captures a PDF literal string body; escape sequences keep
// parens like "\(Page 1\)" inside one name.
const nameGroup = `((?:\\.|[^\\)])+)`

var ocgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/Type\s*/OCG\s*/Name\s*\(` + nameGroup + `\)`),
	regexp.MustCompile(`<</Type/OCG/Name\(` + nameGroup + `\)`),
	regexp.MustCompile(`/OCG\s*<<[^>]*?/Name\s*\(` + nameGroup + `\)`),
	regexp.MustCompile(`/Name\s*\(` + nameGroup + `\)[\s\S]{1,50}/Type\s*/OCG`),
}

// DetectLayers finds optional-content layer names in raw PDF data.
func DetectLayers(pdfData []byte) ([]string, error) {
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("empty PDF data")
	}

	content := string(pdfData)
	var layers []string
	for _, regex := range ocgPatterns {
		for _, match := range regex.FindAllStringSubmatch(content, -1) {
			if len(match) >= 2 {
				layers = append(layers, unescapePDFString(match[1]))
			}
		}
	}

	// Decode any UTF-16BE names
	for i, layer := range layers {
		if len(layer) >= 2 && layer[0] == '\xfe' && layer[1] == '\xff' {
			if decoded, err := decodeUTF16BE([]byte(layer)); err == nil {
				layers[i] = decoded
			}
		}
	}

	// Deduplicate
	unique := make([]string, 0, len(layers))
	seen := make(map[string]bool)
	for _, l := range layers {
		if !seen[l] {
			seen[l] = true
			unique = append(unique, l)
		}
	}
	return unique, nil
}

// CheckLayer reports whether pdfData already carries a graft layer with the
// given base name, either exactly or in its per-page "(Page N)" form.
func CheckLayer(pdfData []byte, layerName string) (LayerCheck, error) {
	result := LayerCheck{}

	layers, err := DetectLayers(pdfData)
	if err != nil {
		return result, fmt.Errorf("cannot analyze layers: %w", err)
	}
	result.Layers = layers

	pageLayerPattern := regexp.MustCompile(fmt.Sprintf(`^%s\s*\(Page\s*\d+.*`, regexp.QuoteMeta(layerName)))

	for _, layer := range layers {
		if layer == layerName || pageLayerPattern.MatchString(layer) {
			result.HasLayer = true
			result.LayerName = layer
			break
		}
		if strings.Contains(strings.ToLower(layer), "ocr") && !strings.HasPrefix(layer, layerName) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("existing layer detected that might contain OCR: %s", layer))
		}
	}

	return result, nil
}

func unescapePDFString(s string) string {
	s = strings.ReplaceAll(s, "\\(", "(")
	s = strings.ReplaceAll(s, "\\)", ")")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return s
}

func decodeUTF16BE(b []byte) (string, error) {
	if len(b) < 2 || b[0] != 0xFE || b[1] != 0xFF {
		return "", fmt.Errorf("no UTF-16BE BOM detected")
	}
	b = b[2:]
	var runes []rune
	for i := 0; i+1 < len(b); i += 2 {
		runes = append(runes, rune(uint16(b[i])<<8|uint16(b[i+1])))
	}
	return string(runes), nil
}
