package item

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"

	"github.com/devvoxel/itemdb/internal/common"
)

// Encode serializes the item to its portable string form: base64 over a gob
// stream. The result is what gets persisted and archived; backends never
// look inside it.
func Encode(it *Item) (string, error) {
	if it == nil {
		return "", fmt.Errorf("%w: nil item", common.ErrCodec)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(it); err != nil {
		return "", fmt.Errorf("%w: encode: %v", common.ErrCodec, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Malformed base64 or a gob stream that does not
// describe an Item yields common.ErrCodec.
func Decode(s string) (*Item, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", common.ErrCodec, err)
	}
	var it Item
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&it); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", common.ErrCodec, err)
	}
	if it.Type == "" {
		return nil, fmt.Errorf("%w: decoded payload has no type", common.ErrCodec)
	}
	return &it, nil
}
