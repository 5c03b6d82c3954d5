package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/wadansyaku/band-part-key-app/core"
	"github.com/wadansyaku/band-part-key-app/pages"
)

// ErrEncrypted is returned for files with an /Encrypt dictionary. Their
// content streams cannot be transplanted without the key.
var ErrEncrypted = errors.New("reader: encrypted PDF files are not supported")

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader gives random access to the objects of a PDF held in memory.
// It is safe for concurrent use.
type Reader struct {
	data      []byte
	xrefTable *core.XRefTable
	trailer   core.Dict
	version   PDFVersion
	repaired  bool

	mu       sync.Mutex
	objCache map[int]core.Object
	objStms  map[int]*core.ObjectStream
	pageTree *pages.PageTree
}

// Ensure Reader implements pages.ObjectResolver
var _ pages.ObjectResolver = (*Reader)(nil)

// Open reads a PDF file from disk.
func Open(filename string) (*Reader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return NewReaderBytes(data)
}

// NewReader reads the whole of r and parses it.
func NewReader(r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	return NewReaderBytes(data)
}

// NewReaderBytes parses a PDF held in memory. A damaged cross-reference
// section is rebuilt by scanning for object headers.
func NewReaderBytes(data []byte) (*Reader, error) {
	version, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	r := &Reader{
		data:     data,
		version:  version,
		objCache: make(map[int]core.Object),
		objStms:  make(map[int]*core.ObjectStream),
	}

	table, err := core.LoadXRef(data)
	if err != nil || !table.Trailer.Has("Root") {
		rebuilt, rerr := core.ReconstructXRef(data)
		if rerr != nil {
			if err == nil {
				err = fmt.Errorf("trailer missing /Root entry")
			}
			return nil, fmt.Errorf("failed to load xref: %w", err)
		}
		table = rebuilt
		r.repaired = true
	}
	r.xrefTable = table
	r.trailer = table.Trailer

	if r.trailer.Has("Encrypt") {
		return nil, ErrEncrypted
	}
	if !r.trailer.Has("Root") {
		if ref, ok := r.findCatalog(); ok {
			r.trailer = r.trailer.Clone()
			r.trailer["Root"] = ref
		}
	}
	return r, nil
}

var headerVersion = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// parseHeader finds %PDF-x.y within the first KiB, where some producers put
// junk before the header.
func parseHeader(data []byte) (PDFVersion, error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	m := headerVersion.FindSubmatch(head)
	if m == nil {
		return PDFVersion{}, fmt.Errorf("not a PDF file")
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// findCatalog scans every known object for a /Type /Catalog dictionary.
func (r *Reader) findCatalog() (core.IndirectRef, bool) {
	for num := range r.xrefTable.Entries {
		obj, err := r.GetObject(num)
		if err != nil {
			continue
		}
		if d, ok := obj.(core.Dict); ok {
			if name, _ := d.GetName("Type"); name == "Catalog" {
				return core.IndirectRef{Number: num}, true
			}
		}
	}
	return core.IndirectRef{}, false
}

// Close releases the reader. The data is held in memory so there is nothing
// to release beyond the caches.
func (r *Reader) Close() error {
	r.ClearCache()
	return nil
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Repaired reports whether the cross-reference data had to be rebuilt.
func (r *Reader) Repaired() bool {
	return r.repaired
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// GetObject loads an object by its number
// Uses caching to avoid re-reading objects
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getObjectLocked(objNum, 0)
}

func (r *Reader) getObjectLocked(objNum, depth int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}
	if depth > 8 {
		return nil, fmt.Errorf("object %d: reference chain too deep", objNum)
	}

	entry, ok := r.xrefTable.Get(objNum)
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref table", objNum)
	}

	var obj core.Object
	switch entry.Kind {
	case core.EntryFree:
		// A reference to a free object is the null object.
		obj = core.Null{}
	case core.EntryCompressed:
		stm, err := r.objectStreamLocked(entry.Stream, depth)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", objNum, err)
		}
		o, num, err := stm.ObjectAt(entry.Index)
		if err != nil || num != objNum {
			o, err = stm.Lookup(objNum)
		}
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", objNum, err)
		}
		obj = o
	default:
		parser := core.NewParser(r.data)
		parser.SetReferenceResolver(lockedResolver{r: r, depth: depth})
		parser.Seek(int(entry.Offset))
		indObj, err := parser.ParseIndirectObject()
		if err != nil {
			return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
		}
		if indObj.Ref.Number != objNum {
			return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
		}
		obj = indObj.Object
	}

	r.objCache[objNum] = obj
	return obj, nil
}

func (r *Reader) objectStreamLocked(num, depth int) (*core.ObjectStream, error) {
	if stm, ok := r.objStms[num]; ok {
		return stm, nil
	}
	obj, err := r.getObjectLocked(num, depth+1)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is %T", num, obj)
	}
	stm, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, err
	}
	r.objStms[num] = stm
	return stm, nil
}

// lockedResolver resolves stream lengths while the reader lock is held.
type lockedResolver struct {
	r     *Reader
	depth int
}

func (l lockedResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return l.r.getObjectLocked(ref.Number, l.depth+1)
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (core.Dict, error) {
	ref, ok := r.trailer.GetIndirectRef("Root")
	if !ok {
		return nil, fmt.Errorf("trailer missing /Root entry")
	}
	obj, err := r.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}
	return catalog, nil
}

// NumObjects returns the number of objects the cross-reference data knows.
func (r *Reader) NumObjects() int {
	return len(r.xrefTable.Entries)
}

// FileSize returns the size of the PDF file in bytes
func (r *Reader) FileSize() int64 {
	return int64(len(r.data))
}

// ClearCache clears the object cache
// Useful for freeing memory when processing large PDFs
func (r *Reader) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objCache = make(map[int]core.Object)
	r.objStms = make(map[int]*core.ObjectStream)
}

// CacheSize returns the number of cached objects
func (r *Reader) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objCache)
}

// Resolve resolves an object if it's an indirect reference, otherwise returns it as-is
// Implements pages.ObjectResolver interface
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// ResolveDeep recursively resolves all indirect references in an object.
// A reference back to an object already being resolved, such as a page's
// /Parent, is left as a reference. Stream dictionaries are kept as stored.
func (r *Reader) ResolveDeep(obj core.Object) (core.Object, error) {
	return r.resolveDeep(obj, map[int]bool{})
}

func (r *Reader) resolveDeep(obj core.Object, visiting map[int]bool) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		if visiting[ref.Number] {
			return ref, nil
		}
		visiting[ref.Number] = true
		defer delete(visiting, ref.Number)
	}
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}

	switch v := resolved.(type) {
	case core.Array:
		result := make(core.Array, len(v))
		for i, elem := range v {
			if result[i], err = r.resolveDeep(elem, visiting); err != nil {
				return nil, err
			}
		}
		return result, nil
	case core.Dict:
		result := make(core.Dict, len(v))
		for key, val := range v {
			if result[key], err = r.resolveDeep(val, visiting); err != nil {
				return nil, err
			}
		}
		return result, nil
	default:
		return resolved, nil
	}
}

// PageCount returns the number of pages in the PDF
func (r *Reader) PageCount() (int, error) {
	tree, err := r.ensurePageTree()
	if err != nil {
		return 0, err
	}
	return tree.Count()
}

// GetPage returns the page at the given index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	tree, err := r.ensurePageTree()
	if err != nil {
		return nil, err
	}
	return tree.GetPage(index)
}

// ensurePageTree loads the page tree if not already loaded
func (r *Reader) ensurePageTree() (*pages.PageTree, error) {
	r.mu.Lock()
	tree := r.pageTree
	r.mu.Unlock()
	if tree != nil {
		return tree, nil
	}

	catalog, err := r.GetCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	pagesDict, err := pages.NewCatalog(catalog, r).Pages()
	if err != nil {
		return nil, err
	}
	tree = pages.NewPageTree(pagesDict, r)
	if _, err := tree.Count(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.pageTree = tree
	r.mu.Unlock()
	return tree, nil
}

// Raw returns the file contents.
func (r *Reader) Raw() []byte {
	return r.data
}

// LooksLikePDF reports whether data starts with a PDF header, allowing for
// leading junk.
func LooksLikePDF(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}
