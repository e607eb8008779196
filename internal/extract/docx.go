package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const documentPart = "word/document.xml"

// docxText returns the body paragraphs followed by one line per table row,
// cells joined by " | ".
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("read docx: missing %s", documentPart)
	}
	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer rc.Close()

	paragraphs, rows, err := walkDocument(rc)
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	out := append(paragraphs, rows...)
	if len(out) == 0 {
		return emptyDocument, nil
	}
	return strings.Join(out, "\n\n"), nil
}

// walkDocument streams document.xml collecting top-level paragraph text and
// table rows. Paragraphs nested in table cells belong to their row.
func walkDocument(r io.Reader) (paragraphs, rows []string, err error) {
	dec := xml.NewDecoder(r)
	var (
		tableDepth int
		para       strings.Builder
		cell       strings.Builder
		cells      []string
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				if tableDepth == 1 {
					cells = cells[:0]
				}
			case "tc":
				if tableDepth == 1 {
					cell.Reset()
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				if tableDepth == 0 {
					if text != "" {
						paragraphs = append(paragraphs, text)
					}
				} else if text != "" {
					if cell.Len() > 0 {
						cell.WriteByte('\n')
					}
					cell.WriteString(text)
				}
			case "tc":
				if tableDepth == 1 {
					cells = append(cells, strings.TrimSpace(cell.String()))
				}
			case "tr":
				if tableDepth == 1 {
					row := strings.Join(cells, " | ")
					if strings.TrimSpace(strings.ReplaceAll(row, "|", "")) != "" {
						rows = append(rows, row)
					}
				}
			case "tbl":
				tableDepth--
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return paragraphs, rows, nil
}
