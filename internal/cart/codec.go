package cart

import (
	"encoding/json"
	"fmt"
)

const docVersion = 1

// document is the persisted form shared by every store.
type document struct {
	Version int    `json:"version"`
	Items   []Line `json:"items"`
}

func encode(lines []Line) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(document{Version: docVersion, Items: lines})
}

func decode(b []byte) ([]Line, error) {
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if doc.Version != docVersion {
		return nil, fmt.Errorf("decode cart: unsupported version %d", doc.Version)
	}
	out := doc.Items[:0]
	for _, ln := range doc.Items {
		if ln.ProductID != "" && ln.Quantity > 0 {
			out = append(out, ln)
		}
	}
	return out, nil
}
