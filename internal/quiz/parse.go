package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Parse strips any code fence from raw model output, decodes exactly one JSON
// object and validates it. Unknown fields are ignored; trailing data after
// the object is rejected.
func Parse(raw string) (*Document, error) {
	text := StripCodeFence(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: response is empty", ErrInvalidContent)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidContent, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after json object", ErrInvalidContent)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
