// Package source turns resume and job description documents into plain text.
package source

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// ErrUnsupported is returned for document kinds that cannot be read.
var ErrUnsupported = errors.New("unsupported document type")

type Kind string

const (
	KindText Kind = "text"
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindHTML Kind = "html"
)

// KindFromPath picks the document kind by file extension.
func KindFromPath(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".text", "":
		return KindText, nil
	case ".pdf":
		return KindPDF, nil
	case ".docx":
		return KindDOCX, nil
	case ".html", ".htm":
		return KindHTML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
}

// KindFromMIME picks the document kind by MIME type.
func KindFromMIME(mime string) (Kind, error) {
	mime = strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	switch mime {
	case "", "text/plain", "text/markdown":
		return KindText, nil
	case "application/pdf":
		return KindPDF, nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return KindDOCX, nil
	case "text/html":
		return KindHTML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}
}

// ReadFile extracts the text of the document at path.
func ReadFile(path string) (string, error) {
	kind, err := KindFromPath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := Extract(kind, data)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", path, err)
	}
	return text, nil
}

// Extract converts raw document bytes of the given kind to text.
func Extract(kind Kind, data []byte) (string, error) {
	switch kind {
	case KindText:
		return string(data), nil
	case KindPDF:
		return extractPDFText(bytes.NewReader(data))
	case KindDOCX:
		return extractDocxText(data)
	case KindHTML:
		return HTMLText(string(data))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

func extractPDFText(reader *bytes.Reader) (string, error) {
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}
	return textBuilder.String(), nil
}

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return docxBodyText(doc.Editable().GetContent())
}

// docxBodyText keeps the character data of a WordprocessingML body and puts
// every paragraph on its own line.
func docxBodyText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx body: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				sb.WriteString("\t")
			}
			if t.Name.Local == "br" {
				sb.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), nil
}
