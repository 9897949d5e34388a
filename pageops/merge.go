package pageops

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
)

// Merge combines PDF documents and writes the result to w.
// Pages are added in order: all pages of the first document, then all of
// the second, etc.
func Merge(w io.Writer, docs ...[]byte) error {
	pdf, err := merge(docs)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

// MergeFiles combines PDF files into a single output file.
func MergeFiles(outputPath string, inputPaths ...string) error {
	docs := make([][]byte, 0, len(inputPaths))
	for _, p := range inputPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("pageops: reading %s: %w", p, err)
		}
		docs = append(docs, data)
	}
	pdf, err := merge(docs)
	if err != nil {
		return err
	}
	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("pageops: writing %s: %w", outputPath, err)
	}
	return nil
}

func merge(docs [][]byte) (*gofpdf.Fpdf, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("pageops: no input documents provided")
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, doc := range docs {
		if err := appendDoc(pdf, doc); err != nil {
			return nil, fmt.Errorf("pageops: merging document %d: %w", i+1, err)
		}
	}
	if pdf.Err() {
		return nil, fmt.Errorf("pageops: merge: %w", pdf.Error())
	}
	return pdf, nil
}

// appendDoc imports all pages of doc into the target PDF.
func appendDoc(pdf *gofpdf.Fpdf, doc []byte) (err error) {
	pageCount, err := PageCount(doc)
	if err != nil {
		return err
	}
	defer catch(&err)

	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(doc))

	for i := 1; i <= pageCount; i++ {
		tplID, w, h := importPage(pdf, imp, &rs, i)
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		imp.UseImportedTemplate(pdf, tplID, 0, 0, w, h)
	}
	return pdf.Error()
}
