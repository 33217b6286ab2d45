package classify

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// convertXLSX renders a spreadsheet as per-sheet delimited text. Each sheet
// becomes a labelled block of comma-joined rows.
func convertXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	var out strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString("Sheet: " + sheet + "\n")
		for _, row := range rows {
			out.WriteString(strings.Join(row, ", ") + "\n")
		}
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("no data found in spreadsheet")
	}
	return out.String(), nil
}

// DOCX XML structures (simplified: body text and tables only).
type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Paras  []docxPara  `xml:"p"`
	Tables []docxTable `xml:"tbl"`
}

type docxPara struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

// convertDOCX extracts the raw text of a word-processor document: paragraphs
// in order, then tables as pipe-delimited rows.
func convertDOCX(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening DOCX: %w", err)
	}

	var docXML []byte
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", fmt.Errorf("opening document.xml: %w", err)
			}
			var buf bytes.Buffer
			_, err = buf.ReadFrom(rc)
			rc.Close()
			if err != nil {
				return "", err
			}
			docXML = buf.Bytes()
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("word/document.xml not found in DOCX")
	}

	var doc docxDocument
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return "", fmt.Errorf("parsing DOCX XML: %w", err)
	}

	var out strings.Builder
	for _, para := range doc.Body.Paras {
		text := paraText(para)
		if text == "" {
			continue
		}
		out.WriteString(text + "\n")
	}

	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				var cellText strings.Builder
				for _, p := range cell.Paras {
					if cellText.Len() > 0 {
						cellText.WriteString(" ")
					}
					cellText.WriteString(paraText(p))
				}
				cells = append(cells, cellText.String())
			}
			out.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("no text found in DOCX")
	}
	return out.String(), nil
}

func paraText(para docxPara) string {
	var b strings.Builder
	for _, run := range para.Runs {
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}

// extractPDFText pulls plain page text out of a PDF. Used as the degraded
// text when the model path fails, since raw PDF bytes are useless as "text".
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var out strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(text)
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("no extractable text in PDF")
	}
	return out.String(), nil
}
