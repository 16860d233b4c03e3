package domain

import (
	"bytes"
	"encoding/json"
)

// maxDecodeDepth bounds how many layers of JSON string wrapping are peeled
// off a payload. Ordering clients have been seen storing items encoded once
// or twice.
const maxDecodeDepth = 2

// DecodeLenient returns the JSON value held by raw, unwrapping up to
// maxDecodeDepth levels of string encoding. It returns nil for absent,
// null or undecodable input.
func DecodeLenient(raw []byte) json.RawMessage {
	b := bytes.TrimSpace(raw)
	for i := 0; i <= maxDecodeDepth; i++ {
		if len(b) == 0 || bytes.Equal(b, []byte("null")) {
			return nil
		}
		if b[0] != '"' {
			if !json.Valid(b) {
				return nil
			}
			return json.RawMessage(b)
		}
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		b = bytes.TrimSpace([]byte(s))
	}
	return nil
}

// DecodeItems never fails: anything that is not a list of items becomes an
// empty list.
func DecodeItems(raw []byte) []Item {
	v := DecodeLenient(raw)
	if v == nil {
		return []Item{}
	}
	var items []Item
	if err := json.Unmarshal(v, &items); err != nil || items == nil {
		return []Item{}
	}
	return items
}

func DecodeCustomer(raw []byte) CustomerInfo {
	v := DecodeLenient(raw)
	if v == nil {
		return CustomerInfo{}
	}
	var c CustomerInfo
	if err := json.Unmarshal(v, &c); err != nil {
		return CustomerInfo{}
	}
	return c
}
