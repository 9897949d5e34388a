package pageops_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/psyreport/pageops"
)

// testPDF generates a simple PDF with the given number of pages.
func testPDF(t *testing.T, numPages int, orientation string) []byte {
	t.Helper()
	pdf := gofpdf.New(orientation, "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	for i := 1; i <= numPages; i++ {
		pdf.AddPage()
		pdf.Text(60, 80, fmt.Sprintf("Page %d of %d", i, numPages))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("creating test PDF: %v", err)
	}
	return buf.Bytes()
}

func TestPageCount(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		got, err := pageops.PageCount(testPDF(t, n, "P"))
		if err != nil {
			t.Fatalf("PageCount: %v", err)
		}
		if got != n {
			t.Errorf("expected %d pages, got %d", n, got)
		}
	}
}

func TestPageCountRejectsGarbage(t *testing.T) {
	if _, err := pageops.PageCount([]byte("hello")); !errors.Is(err, pageops.ErrNotPDF) {
		t.Errorf("expected ErrNotPDF, got %v", err)
	}
	if _, err := pageops.PageCount([]byte("%PDF-1.3\ntruncated")); err == nil {
		t.Error("expected an error for a truncated PDF")
	}
}

func TestMerge(t *testing.T) {
	var buf bytes.Buffer
	if err := pageops.Merge(&buf, testPDF(t, 2, "P"), testPDF(t, 3, "L")); err != nil {
		t.Fatalf("merge: %v", err)
	}
	n, err := pageops.PageCount(buf.Bytes())
	if err != nil {
		t.Fatalf("reading merged PDF: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 pages, got %d", n)
	}
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	file1 := filepath.Join(dir, "doc1.pdf")
	file2 := filepath.Join(dir, "doc2.pdf")
	output := filepath.Join(dir, "merged.pdf")
	if err := os.WriteFile(file1, testPDF(t, 1, "P"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file2, testPDF(t, 2, "P"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := pageops.MergeFiles(output, file1, file2); err != nil {
		t.Fatalf("merge: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := pageops.PageCount(data); err != nil || n != 3 {
		t.Errorf("expected 3 pages, got %d (%v)", n, err)
	}
}

func TestMergeNoInputs(t *testing.T) {
	var buf bytes.Buffer
	if err := pageops.Merge(&buf); err == nil {
		t.Error("expected error for empty merge")
	}
}

func TestMergeInvalidInput(t *testing.T) {
	var buf bytes.Buffer
	err := pageops.Merge(&buf, testPDF(t, 1, "P"), []byte("not a pdf"))
	if !errors.Is(err, pageops.ErrNotPDF) {
		t.Errorf("expected ErrNotPDF, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("no output expected on error")
	}
}
