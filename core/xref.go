package core

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

// EntryKind distinguishes the three kinds of cross-reference entries.
type EntryKind int

const (
	EntryFree EntryKind = iota
	EntryInUse
	EntryCompressed
)

// XRefEntry locates one object. In-use entries carry a byte Offset;
// compressed entries name the object Stream holding them and their Index.
type XRefEntry struct {
	Kind       EntryKind
	Offset     int64
	Generation int
	Stream     int
	Index      int
}

// XRefTable is the merged cross-reference data of a file.
type XRefTable struct {
	Entries map[int]XRefEntry
	Trailer Dict
}

// NewXRefTable returns an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{Entries: make(map[int]XRefEntry), Trailer: Dict{}}
}

// Get returns the entry for an object number.
func (x *XRefTable) Get(objNum int) (XRefEntry, bool) {
	e, ok := x.Entries[objNum]
	return e, ok
}

// FindStartXRef reads the offset following the last "startxref" keyword.
func FindStartXRef(data []byte) (int64, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	lex := NewLexer(tail[idx+len("startxref"):])
	tok, err := lex.NextToken()
	if err != nil || tok.Type != TokenInteger {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	return strconv.ParseInt(string(tok.Value), 10, 64)
}

// LoadXRef follows the startxref chain (classic tables, cross-reference
// streams, hybrid /XRefStm sections and /Prev links) and merges it so that
// newer sections win.
func LoadXRef(data []byte) (*XRefTable, error) {
	offset, err := FindStartXRef(data)
	if err != nil {
		return nil, err
	}

	merged := NewXRefTable()
	seen := map[int64]bool{}
	first := true
	for offset >= 0 && !seen[offset] {
		seen[offset] = true
		section, err := ParseXRefSection(data, offset)
		if err != nil {
			if first {
				return nil, err
			}
			break
		}

		mergeOlder(merged, section)
		if stm, ok := section.Trailer.GetInt("XRefStm"); ok && !seen[int64(stm)] {
			seen[int64(stm)] = true
			if hybrid, err := ParseXRefSection(data, int64(stm)); err == nil {
				mergeOlder(merged, hybrid)
			}
		}

		first = false
		prev, ok := section.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	return merged, nil
}

// mergeOlder copies entries and trailer keys that newer sections have not
// already supplied.
func mergeOlder(dst, older *XRefTable) {
	for num, e := range older.Entries {
		if _, ok := dst.Entries[num]; !ok {
			dst.Entries[num] = e
		}
	}
	for k, v := range older.Trailer {
		if k == "Prev" || k == "XRefStm" {
			continue
		}
		if !dst.Trailer.Has(k) {
			dst.Trailer[k] = v
		}
	}
}

// ParseXRefSection parses the classic table or cross-reference stream that
// starts at offset.
func ParseXRefSection(data []byte, offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("xref offset %d outside file", offset)
	}
	p := NewParser(data)
	p.Seek(int(offset))
	tok, err := p.peek(0)
	if err != nil {
		return nil, err
	}
	if tok.is(TokenKeyword, "xref") {
		p.queue = p.queue[1:]
		return parseXRefTable(p)
	}
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref stream at %d: %w", offset, err)
	}
	stream, ok := ind.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object at xref offset %d is not a stream", offset)
	}
	return parseXRefStream(stream)
}

func parseXRefTable(p *Parser) (*XRefTable, error) {
	table := NewXRefTable()
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.is(TokenKeyword, "trailer") {
			obj, err := p.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("trailer: %w", err)
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is %T, not a dictionary", obj)
			}
			table.Trailer = trailer
			return table, nil
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("malformed xref subsection at offset %d", tok.Pos)
		}
		countTok, err := p.next()
		if err != nil || countTok.Type != TokenInteger {
			return nil, fmt.Errorf("malformed xref subsection count at offset %d", tok.Pos)
		}
		start, _ := strconv.Atoi(string(tok.Value))
		count, _ := strconv.Atoi(string(countTok.Value))

		for i := 0; i < count; i++ {
			offTok, err1 := p.next()
			genTok, err2 := p.next()
			flagTok, err3 := p.next()
			if err1 != nil || err2 != nil || err3 != nil || offTok.Type != TokenInteger || genTok.Type != TokenInteger {
				return nil, fmt.Errorf("malformed xref entry %d", start+i)
			}
			off, _ := strconv.ParseInt(string(offTok.Value), 10, 64)
			gen, _ := strconv.Atoi(string(genTok.Value))
			entry := XRefEntry{Kind: EntryFree, Offset: off, Generation: gen}
			switch string(flagTok.Value) {
			case "n":
				entry.Kind = EntryInUse
			case "f":
			default:
				return nil, fmt.Errorf("invalid xref flag %q for object %d", flagTok.Value, start+i)
			}
			if _, dup := table.Entries[start+i]; !dup {
				table.Entries[start+i] = entry
			}
		}
	}
}

func parseXRefStream(stream *Stream) (*XRefTable, error) {
	if name, _ := stream.Dict.GetName("Type"); name != "XRef" {
		return nil, fmt.Errorf("stream is not a cross-reference stream")
	}
	widthsObj, ok := stream.Dict.GetArray("W")
	if !ok || len(widthsObj) != 3 {
		return nil, fmt.Errorf("xref stream has invalid /W")
	}
	var w [3]int
	for i := range w {
		n, ok := widthsObj[i].(Int)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("xref stream has invalid /W entry %v", widthsObj[i])
		}
		w[i] = int(n)
	}

	size, _ := stream.Dict.GetInt("Size")
	index := Array{Int(0), size}
	if idx, ok := stream.Dict.GetArray("Index"); ok && len(idx)%2 == 0 {
		index = idx
	}

	raw, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict.Clone()
	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return table, nil
	}
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, _ := index[i].(Int)
		count, _ := index[i+1].(Int)
		for n := 0; n < int(count); n++ {
			if pos+rowLen > len(raw) {
				return table, nil
			}
			row := raw[pos : pos+rowLen]
			pos += rowLen

			kind := int64(1)
			if w[0] > 0 {
				kind = readField(row[:w[0]])
			}
			f2 := readField(row[w[0] : w[0]+w[1]])
			f3 := readField(row[w[0]+w[1]:])

			var entry XRefEntry
			switch kind {
			case 0:
				entry = XRefEntry{Kind: EntryFree, Offset: f2, Generation: int(f3)}
			case 1:
				entry = XRefEntry{Kind: EntryInUse, Offset: f2, Generation: int(f3)}
			case 2:
				entry = XRefEntry{Kind: EntryCompressed, Stream: int(f2), Index: int(f3)}
			default:
				continue
			}
			table.Entries[int(start)+n] = entry
		}
	}
	return table, nil
}

func readField(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

var objectHeader = regexp.MustCompile(`(?m)(?:^|[\r\n\s])(\d+)\s+(\d+)\s+obj\b`)

// ReconstructXRef rebuilds cross-reference data by scanning the file for
// object headers. It is the recovery path for files whose xref is damaged.
// The last definition of an object number wins, as in an incremental update.
func ReconstructXRef(data []byte) (*XRefTable, error) {
	table := NewXRefTable()
	for _, m := range objectHeader.FindAllSubmatchIndex(data, -1) {
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		table.Entries[num] = XRefEntry{Kind: EntryInUse, Offset: int64(m[2]), Generation: gen}
	}
	if len(table.Entries) == 0 {
		return nil, fmt.Errorf("no objects found while reconstructing xref")
	}

	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		p := NewParser(data)
		p.Seek(idx + len("trailer"))
		if obj, err := p.ParseObject(); err == nil {
			if trailer, ok := obj.(Dict); ok {
				table.Trailer = trailer
			}
		}
	}
	return table, nil
}
