package reader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wadansyaku/band-part-key-app/core"
)

// buildPDF writes a document with n pages, each with one content stream
// drawing a line at a page-specific height.
func buildPDF(t *testing.T, n int) []byte {
	t.Helper()
	w := core.NewWriter()
	pagesRef := w.Reserve()
	kids := core.Array{}
	for i := 0; i < n; i++ {
		content, err := core.NewFlateStream(nil, []byte(fmt.Sprintf("0 %d m 100 %d l S", 100+i, 100+i)))
		if err != nil {
			t.Fatal(err)
		}
		contentRef := w.Add(content)
		kids = append(kids, w.Add(core.Dict{
			"Type":     core.Name("Page"),
			"Parent":   pagesRef,
			"Contents": contentRef,
		}))
	}
	w.Set(pagesRef, core.Dict{
		"Type":     core.Name("Pages"),
		"Kids":     kids,
		"Count":    core.Int(n),
		"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(595), core.Int(842)},
	})
	w.SetRoot(w.Add(core.Dict{"Type": core.Name("Catalog"), "Pages": pagesRef}))

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNewReaderBytes(t *testing.T) {
	r, err := NewReaderBytes(buildPDF(t, 3))
	if err != nil {
		t.Fatalf("NewReaderBytes: %v", err)
	}
	defer r.Close()

	if r.Version().String() != "1.7" {
		t.Errorf("Version = %s", r.Version())
	}
	if r.Repaired() {
		t.Error("a well-formed file should not need repair")
	}
	count, err := r.PageCount()
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if count != 3 {
		t.Errorf("PageCount = %d, want 3", count)
	}

	page, err := r.GetPage(2)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.Width() != 595 || page.Height() != 842 {
		t.Errorf("page size %vx%v", page.Width(), page.Height())
	}
	data, err := page.ContentData()
	if err != nil {
		t.Fatalf("ContentData: %v", err)
	}
	if string(data) != "0 102 m 100 102 l S" {
		t.Errorf("ContentData = %q", data)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "score.pdf")
	if err := os.WriteFile(path, buildPDF(t, 1), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.FileSize() == 0 {
		t.Error("FileSize = 0")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestNewReaderFromStream(t *testing.T) {
	r, err := NewReader(bytes.NewReader(buildPDF(t, 2)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if n, _ := r.PageCount(); n != 2 {
		t.Errorf("PageCount = %d", n)
	}
}

func TestInvalidHeader(t *testing.T) {
	if _, err := NewReaderBytes([]byte("hello world")); err == nil {
		t.Error("expected error for non-PDF data")
	}
	if LooksLikePDF([]byte("GIF89a")) {
		t.Error("GIF detected as PDF")
	}
	if !LooksLikePDF([]byte("junk\n%PDF-1.4\n")) {
		t.Error("PDF with leading junk not detected")
	}
}

func TestRepairBrokenXRef(t *testing.T) {
	data := buildPDF(t, 2)
	idx := bytes.LastIndex(data, []byte("startxref"))
	broken := append(append([]byte(nil), data[:idx]...), []byte("startxref\n999999\n%%EOF\n")...)

	r, err := NewReaderBytes(broken)
	if err != nil {
		t.Fatalf("NewReaderBytes: %v", err)
	}
	if !r.Repaired() {
		t.Error("expected Repaired() after reconstruction")
	}
	if n, err := r.PageCount(); err != nil || n != 2 {
		t.Errorf("PageCount = %d, %v", n, err)
	}
}

func TestRepairWithoutTrailer(t *testing.T) {
	data := buildPDF(t, 1)
	idx := bytes.Index(data, []byte("xref"))
	broken := data[:idx]

	r, err := NewReaderBytes(broken)
	if err != nil {
		t.Fatalf("NewReaderBytes: %v", err)
	}
	if _, ok := r.Trailer().GetIndirectRef("Root"); !ok {
		t.Fatal("catalog should be found by scanning")
	}
	if n, err := r.PageCount(); err != nil || n != 1 {
		t.Errorf("PageCount = %d, %v", n, err)
	}
}

func TestEncryptedRejected(t *testing.T) {
	w := core.NewWriter()
	pagesRef := w.Add(core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{}})
	w.SetRoot(w.Add(core.Dict{"Type": core.Name("Catalog"), "Pages": pagesRef}))
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	data := bytes.Replace(buf.Bytes(), []byte("trailer\n<<"), []byte("trailer\n<</Encrypt 9 0 R"), 1)

	_, err := NewReaderBytes(data)
	if !errors.Is(err, ErrEncrypted) {
		t.Errorf("err = %v, want ErrEncrypted", err)
	}
}

func TestResolveDeep(t *testing.T) {
	r, err := NewReaderBytes(buildPDF(t, 1))
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := r.GetCatalog()
	if err != nil {
		t.Fatal(err)
	}
	deep, err := r.ResolveDeep(catalog)
	if err != nil {
		t.Fatalf("ResolveDeep: %v", err)
	}
	pagesDict, ok := deep.(core.Dict).GetDict("Pages")
	if !ok {
		t.Fatalf("Pages not resolved: %v", deep)
	}
	kids, _ := pagesDict.GetArray("Kids")
	if _, ok := kids.Get(0).(core.Dict); !ok {
		t.Errorf("kid not resolved: %T", kids.Get(0))
	}
}

func TestResolveDeepCycle(t *testing.T) {
	w := core.NewWriter()
	a := w.Reserve()
	b := w.Add(core.Dict{"Next": a})
	w.Set(a, core.Dict{"Type": core.Name("Catalog"), "Next": b})
	w.SetRoot(a)
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	r, err := NewReaderBytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	deep, err := r.ResolveDeep(a)
	if err != nil {
		t.Fatalf("ResolveDeep: %v", err)
	}
	next, _ := deep.(core.Dict).GetDict("Next")
	if ref, ok := next.Get("Next").(core.IndirectRef); !ok || ref != a {
		t.Errorf("back reference = %v, want %v", next.Get("Next"), a)
	}
}

func TestConcurrentPageAccess(t *testing.T) {
	r, err := NewReaderBytes(buildPDF(t, 8))
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			page, err := r.GetPage(i)
			if err != nil {
				errs <- err
				return
			}
			if _, err := page.ContentData(); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if r.CacheSize() == 0 {
		t.Error("expected cached objects")
	}
	r.ClearCache()
	if r.CacheSize() != 0 {
		t.Error("cache not cleared")
	}
}
