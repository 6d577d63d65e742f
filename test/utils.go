package test

import (
	"encoding/binary"

	"github.com/google/uuid"
)

var (
	// TestEdgeTypes - test data
	TestEdgeTypes []string = []string{"red", "blue", "green", "yellow", "purple"}

	// TestAttributes - test data
	TestAttributes [][]byte = [][]byte{[]byte("Attr1"), []byte("Attr2"), []byte("Attr3"), []byte("Attr4"), []byte("Attr5")}
)

// SequentialIDGenerator returns an identifier generator producing
// deterministic uuids 1, 2, 3, ... for reproducible tests.
func SequentialIDGenerator() func() uuid.UUID {
	var n uint64
	return func() uuid.UUID {
		n++
		var id uuid.UUID
		binary.BigEndian.PutUint64(id[8:], n)
		return id
	}
}

// TestID returns the uuid the sequential generator produces on its nth call.
func TestID(n uint64) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], n)
	return id
}
