package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/halldor/pdfgraft/pkg/hocr"
)

// DocAIConfig identifies the Document AI processor to call.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS.
type DocAIConfig struct {
	ProjectID   string `yaml:"project_id"`
	Location    string `yaml:"location"`
	ProcessorID string `yaml:"processor_id"`
}

// DocAI implements Engine using Google Document AI as the recognition
// service. One client is shared across Recognize calls.
type DocAI struct {
	cfg    DocAIConfig
	client *documentai.DocumentProcessorClient
}

// NewDocAI instantiates a Document AI client against the regional endpoint.
func NewDocAI(ctx context.Context, cfg DocAIConfig) (*DocAI, error) {
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("incomplete Document AI config: project, location, and processor are required")
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	client, err := documentai.NewDocumentProcessorClient(
		ctx,
		option.WithEndpoint(endpoint),
		option.WithCredentialsFile(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &DocAI{cfg: cfg, client: client}, nil
}

func (e *DocAI) Name() string { return "docai" }

// Close releases the underlying client connection.
func (e *DocAI) Close() error { return e.client.Close() }

// Recognize sends the raster to the configured processor and converts the
// response into an hOCR page.
func (e *DocAI) Recognize(ctx context.Context, in Input) (hocr.Page, error) {
	name := fmt.Sprintf(
		"projects/%s/locations/%s/processors/%s",
		e.cfg.ProjectID, e.cfg.Location, e.cfg.ProcessorID,
	)

	req := &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  in.Image,
				MimeType: in.Format,
			},
		},
		SkipHumanReview: true,
	}

	resp, err := e.client.ProcessDocument(ctx, req)
	if err != nil {
		return hocr.Page{}, fmt.Errorf("failed to process document: %w", err)
	}

	doc := resp.Document
	if doc == nil || len(doc.Pages) == 0 {
		return hocr.Page{}, fmt.Errorf("empty Document AI response")
	}

	page := pageFromProto(doc.Pages[0], doc.Text, in.PageIndex+1)
	if page.DPI == 0 && in.DPI > 0 {
		page.DPI = float64(in.DPI)
	}
	return page, nil
}

// pageFromProto converts one Document AI page into the flat hOCR model.
// Tokens are assigned to the line whose text-anchor interval contains their
// start index.
func pageFromProto(page *documentaipb.Document_Page, fullText string, pageNumber int) hocr.Page {
	dim := page.GetDimension()
	result := hocr.Page{
		ID:         fmt.Sprintf("page_%d", pageNumber),
		PageNumber: pageNumber,
		BBox:       hocr.NewBBox(0, 0, float64(dim.GetWidth()), float64(dim.GetHeight())),
	}
	if langs := page.GetDetectedLanguages(); len(langs) > 0 {
		result.Lang = langs[0].GetLanguageCode()
	}

	order := 0
	for lidx, line := range page.GetLines() {
		start, end := anchorInterval(line.GetLayout())
		ocrLine := hocr.Line{
			ID:   fmt.Sprintf("line_%d_%d", pageNumber, lidx),
			BBox: layoutBBox(line.GetLayout(), dim),
		}
		for tidx, token := range page.GetTokens() {
			tstart, _ := anchorInterval(token.GetLayout())
			if tstart < start || tstart >= end {
				continue
			}
			text := strings.TrimSpace(anchorText(token.GetLayout(), fullText))
			if text == "" {
				continue
			}
			ocrLine.Words = append(ocrLine.Words, hocr.Word{
				ID:         fmt.Sprintf("word_%d_%d_%d", pageNumber, lidx, tidx),
				Text:       text,
				BBox:       layoutBBox(token.GetLayout(), dim),
				Confidence: float64(token.GetLayout().GetConfidence()) * 100,
				Order:      order,
			})
			order++
		}
		if len(ocrLine.Words) > 0 {
			result.Lines = append(result.Lines, ocrLine)
		}
	}
	return result
}

// anchorInterval returns the [start, end) rune interval of a layout's first
// text segment.
func anchorInterval(layout *documentaipb.Document_Page_Layout) (int64, int64) {
	segs := layout.GetTextAnchor().GetTextSegments()
	if len(segs) == 0 {
		return 0, 0
	}
	return segs[0].GetStartIndex(), segs[0].GetEndIndex()
}

// anchorText extracts the text covered by a layout's anchor segments.
func anchorText(layout *documentaipb.Document_Page_Layout, fullText string) string {
	runes := []rune(fullText)
	total := int64(len(runes))
	var sb strings.Builder
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start, end := seg.GetStartIndex(), seg.GetEndIndex()
		if start < 0 {
			start = 0
		}
		if end > total {
			end = total
		}
		if start > end {
			start = end
		}
		sb.WriteString(string(runes[start:end]))
	}
	return sb.String()
}

// layoutBBox converts a layout's bounding polygon to pixel coordinates,
// preferring normalized vertices scaled by the page dimension.
func layoutBBox(layout *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension) hocr.BBox {
	poly := layout.GetBoundingPoly()
	if poly == nil {
		return hocr.BBox{}
	}

	minX, minY := -1.0, -1.0
	maxX, maxY := 0.0, 0.0
	update := func(x, y float64) {
		if minX < 0 || x < minX {
			minX = x
		}
		if minY < 0 || y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}

	if nv := poly.GetNormalizedVertices(); len(nv) > 0 {
		for _, v := range nv {
			update(float64(v.GetX())*float64(dim.GetWidth()), float64(v.GetY())*float64(dim.GetHeight()))
		}
	} else {
		for _, v := range poly.GetVertices() {
			update(float64(v.GetX()), float64(v.GetY()))
		}
	}
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	return hocr.NewBBox(minX, minY, maxX, maxY)
}
