package core

import (
	"fmt"
)

// ObjectStream gives access to the objects packed in a /Type /ObjStm stream.
// The stream is decoded and its header parsed on first use.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	decoded []byte
	numbers []int
	offsets []int
}

// NewObjectStream validates the dictionary of an object stream.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("object stream is nil")
	}
	if name, _ := stream.Dict.GetName("Type"); name != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream")
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First")
	}
	return &ObjectStream{stream: stream, n: int(n), first: int(first)}, nil
}

// N returns the number of objects declared by the stream.
func (os *ObjectStream) N() int { return os.n }

func (os *ObjectStream) load() error {
	if os.decoded != nil {
		return nil
	}
	decoded, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("object stream: %w", err)
	}
	if os.first > len(decoded) {
		return fmt.Errorf("object stream /First %d beyond %d decoded bytes", os.first, len(decoded))
	}

	p := NewParser(decoded[:os.first])
	for i := 0; i < os.n; i++ {
		num, err1 := p.ParseObject()
		off, err2 := p.ParseObject()
		numInt, ok1 := num.(Int)
		offInt, ok2 := off.(Int)
		if err1 != nil || err2 != nil || !ok1 || !ok2 {
			return fmt.Errorf("object stream header entry %d is malformed", i)
		}
		os.numbers = append(os.numbers, int(numInt))
		os.offsets = append(os.offsets, int(offInt))
	}
	os.decoded = decoded
	return nil
}

// ObjectAt parses the object at a header index and returns it with its
// object number.
func (os *ObjectStream) ObjectAt(index int) (Object, int, error) {
	if err := os.load(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("object stream index %d out of range [0, %d)", index, len(os.offsets))
	}
	start := os.first + os.offsets[index]
	end := len(os.decoded)
	if index+1 < len(os.offsets) {
		end = os.first + os.offsets[index+1]
	}
	if start > len(os.decoded) || end > len(os.decoded) || start > end {
		return nil, 0, fmt.Errorf("object stream index %d has invalid bounds", index)
	}
	obj, err := NewParser(os.decoded[start:end]).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("object stream index %d: %w", index, err)
	}
	return obj, os.numbers[index], nil
}

// Lookup finds an object by number, for callers whose xref index is stale.
func (os *ObjectStream) Lookup(objNum int) (Object, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	for i, n := range os.numbers {
		if n == objNum {
			obj, _, err := os.ObjectAt(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not in object stream", objNum)
}
