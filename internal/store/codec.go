package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeRecords serializes a record sequence as a pretty-printed JSON
// array. HTML escaping is disabled so paths and URLs embedded in data
// stay readable in the document files.
//
// The output is deterministic for a given input and round-trips through
// [DecodeRecords].
func EncodeRecords[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encoding records: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeRecords is the inverse of [EncodeRecords].
//
// Empty or whitespace-only input decodes to an empty sequence rather than
// an error, so a never-written document reads as an empty collection.
// A document holding valid JSON that is not an array (null, a bare
// scalar) also decodes to an empty sequence. Malformed input fails with a
// [*DecodeError] carrying path and the underlying syntax error; callers
// must treat this as distinct from "file absent".
func DecodeRecords[T any](path string, data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []T{}, nil
	}

	var records []T

	if err := json.Unmarshal(trimmed, &records); err != nil {
		if json.Valid(trimmed) && trimmed[0] != '[' {
			return []T{}, nil
		}

		return nil, &DecodeError{Path: path, Err: err}
	}

	if records == nil {
		// The literal "null".
		records = []T{}
	}

	return records, nil
}
