package core

import (
	"fmt"
	"strconv"
)

// ObjectStream represents a PDF Object Stream (Type /ObjStm), introduced in
// PDF 1.5. Object streams store multiple objects in a single compressed
// stream.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	decoded []byte
	nums    []int
	offsets []int
	objects map[int]Object
}

// NewObjectStream validates the stream dictionary. Decoding is deferred to
// the first object access.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type /%s", t)
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First")
	}
	return &ObjectStream{
		stream:  stream,
		n:       int(n),
		first:   int(first),
		objects: make(map[int]Object),
	}, nil
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int {
	return os.n
}

func (os *ObjectStream) decode() error {
	if os.decoded != nil {
		return nil
	}
	decoded, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}

	lex := NewLexer(decoded)
	nums := make([]int, 0, os.n)
	offsets := make([]int, 0, os.n)
	for i := 0; i < os.n; i++ {
		numTok, err1 := lex.NextToken()
		offTok, err2 := lex.NextToken()
		if err1 != nil || err2 != nil || numTok.Type != TokenInteger || offTok.Type != TokenInteger {
			return fmt.Errorf("object stream header entry %d is invalid", i)
		}
		num, _ := strconv.Atoi(string(numTok.Value))
		off, _ := strconv.Atoi(string(offTok.Value))
		nums = append(nums, num)
		offsets = append(offsets, off)
	}
	os.decoded = decoded
	os.nums = nums
	os.offsets = offsets
	return nil
}

// ObjectNumbers returns the object numbers stored in the stream, in slot
// order.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}
	return os.nums, nil
}

// GetObjectByIndex parses the object in the given slot and returns it with
// its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.nums) {
		return nil, 0, fmt.Errorf("object stream index %d out of range [0,%d)", index, len(os.nums))
	}
	if obj, ok := os.objects[index]; ok {
		return obj, os.nums[index], nil
	}

	start := os.first + os.offsets[index]
	if start < 0 || start >= len(os.decoded) {
		return nil, 0, fmt.Errorf("object stream offset %d out of range", start)
	}
	p := NewParser(os.decoded)
	p.Seek(start)
	obj, err := p.ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("object %d in object stream: %w", os.nums[index], err)
	}
	os.objects[index] = obj
	return obj, os.nums[index], nil
}
