package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"lexease-backend/internal/llm"
	"lexease-backend/internal/shared/storage/object"
	"lexease-backend/internal/shared/telemetry"
)

const (
	MimePDF    = "application/pdf"
	MimeDOCX   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeMSWord = "application/msword"
	mimeZip    = "application/zip"
	mimeOctet  = "application/octet-stream"
)

// Extraction methods reported in Result.Method.
const (
	MethodPDF  = "pdf"
	MethodDOCX = "docx"
	MethodText = "text"
	MethodOCR  = "ocr"
)

// Result is the outcome of a successful extraction.
type Result struct {
	Text     string
	MimeType string
	Method   string
}

// Extractor converts uploaded bytes into plain text. OCR is optional; without
// it images are unsupported and scanned PDFs yield empty text.
type Extractor struct {
	OCR llm.Client
}

// New returns an Extractor. A nil ocr disables OCR.
func New(ocr llm.Client) *Extractor {
	return &Extractor{OCR: ocr}
}

// readPDFPages is swapped in tests.
var readPDFPages = pdfPages

// Extract dispatches on the normalized MIME type. Unsupported types are
// logged and reported as ErrUnsupportedFormat with empty text.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	normalized := NormalizeMimeType(mimeType, fileName, data)
	res := Result{MimeType: normalized}

	switch {
	case normalized == MimePDF:
		pages, err := readPDFPages(data)
		if err != nil {
			return res, &ExtractionError{Format: "pdf", Err: err}
		}
		res.Text, res.Method = joinPages(pages), MethodPDF
		if res.Text == "" && e.OCR != nil {
			return e.ocr(ctx, data, normalized)
		}
		return res, nil

	case normalized == MimeDOCX || normalized == MimeMSWord:
		text, err := docxText(data)
		if err != nil {
			return res, &ExtractionError{Format: "docx", Err: err}
		}
		res.Text, res.Method = text, MethodDOCX
		return res, nil

	case strings.HasPrefix(normalized, "text/"):
		res.Text, res.Method = decodeText(data), MethodText
		return res, nil

	case strings.HasPrefix(normalized, "image/"):
		if e.OCR == nil {
			logUnsupported(normalized, fileName, "ocr not configured")
			return res, fmt.Errorf("%w: %s (ocr not configured)", ErrUnsupportedFormat, normalized)
		}
		return e.ocr(ctx, data, normalized)

	default:
		logUnsupported(normalized, fileName, "")
		return res, fmt.Errorf("%w: %s", ErrUnsupportedFormat, normalized)
	}
}

// ExtractStored reads key from the store, extracts its text and saves a
// derived <key>.extracted.txt copy next to it.
func (e *Extractor) ExtractStored(ctx context.Context, store object.ObjectStore, key, mimeType, fileName string) (Result, error) {
	data, err := object.ReadAll(ctx, store, key)
	if err != nil {
		return Result{}, fmt.Errorf("extract key=%s: read: %w", key, err)
	}
	res, err := e.Extract(ctx, data, mimeType, fileName)
	if err != nil {
		return res, err
	}
	if res.Text != "" {
		if _, err := store.Put(ctx, key+".extracted.txt", "text/plain; charset=utf-8", strings.NewReader(res.Text)); err != nil {
			return res, fmt.Errorf("extract key=%s: save derived text: %w", key, err)
		}
	}
	return res, nil
}

func (e *Extractor) ocr(ctx context.Context, data []byte, mimeType string) (Result, error) {
	prompt, err := llm.RenderPrompt(llm.PromptOCR, nil)
	if err != nil {
		return Result{}, err
	}
	text, err := e.OCR.Generate(ctx, llm.Request{
		Task:   "ocr",
		Prompt: prompt,
		Media:  []llm.Media{{MIMEType: mimeType, Data: data}},
	})
	if err != nil && !errors.Is(err, llm.ErrEmptyResponse) {
		return Result{MimeType: mimeType}, &ExtractionError{Format: "ocr", Err: err}
	}
	return Result{Text: strings.TrimSpace(text), MimeType: mimeType, Method: MethodOCR}, nil
}

func logUnsupported(mimeType, fileName, reason string) {
	fields := map[string]any{"mime_type": mimeType, "file_name": fileName}
	if reason != "" {
		fields["reason"] = reason
	}
	telemetry.Warn("extract.unsupported_format", fields)
}

// pdfPages returns the plain text of every page in order. The pdf library
// panics on some malformed inputs, so panics become errors.
func pdfPages(data []byte) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// joinPages concatenates non-empty pages with a single space.
func joinPages(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

func docxText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not an OOXML package: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return documentXMLText(rc)
}

// documentXMLText keeps run text and turns paragraphs, breaks and tabs into whitespace.
func documentXMLText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteString("\t")
			case "br", "cr":
				buf.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// NormalizeMimeType resolves the effective MIME type from the declared type,
// the file extension and the payload itself.
func NormalizeMimeType(mimeType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean == "" || clean == mimeOctet {
		clean = guessFromName(fileName)
	}
	if clean == "" || clean == mimeOctet {
		clean = strings.Split(http.DetectContentType(data), ";")[0]
	}
	if clean != mimeZip && clean != MimeMSWord {
		return clean
	}
	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}
	if clean == MimeMSWord {
		return clean
	}
	if strings.EqualFold(filepath.Ext(fileName), ".docx") {
		return MimeDOCX
	}
	return clean
}

func guessFromName(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case "":
		return ""
	case ".docx":
		return MimeDOCX
	case ".doc":
		return MimeMSWord
	case ".txt", ".md":
		return "text/plain"
	}
	return strings.Split(mime.TypeByExtension(ext), ";")[0]
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		switch strings.ReplaceAll(f.Name, "\\", "/") {
		case "word/document.xml":
			return MimeDOCX
		case "xl/workbook.xml":
			return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		case "ppt/presentation.xml":
			return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
		}
	}
	return ""
}
