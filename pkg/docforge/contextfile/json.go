package contextfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/benjaminschreck/go-docforge/pkg/docforge"
)

// decodeJSON walks the token stream instead of unmarshalling into a Go map
// so object keys keep their document order.
func decodeJSON(data []byte) (*docforge.Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("top level must be a JSON object")
	}
	m, err := readJSONObject(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level object")
	}
	return m, nil
}

func readJSONObject(dec *json.Decoder) (*docforge.Map, error) {
	m := docforge.NewMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		value, err := readJSONValue(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		m.Set(key, value)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return m, nil
}

func readJSONValue(dec *json.Decoder) (docforge.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return docforge.None(), err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		// string, bool, json.Number or nil
		return docforge.ValueOf(tok), nil
	}

	switch delim {
	case '{':
		m, err := readJSONObject(dec)
		if err != nil {
			return docforge.None(), err
		}
		return docforge.MapValue(m), nil
	case '[':
		var items []docforge.Value
		for dec.More() {
			item, err := readJSONValue(dec)
			if err != nil {
				return docforge.None(), fmt.Errorf("[%d]: %w", len(items), err)
			}
			items = append(items, item)
		}
		// closing ']'
		if _, err := dec.Token(); err != nil {
			return docforge.None(), err
		}
		return docforge.Seq(items...), nil
	}
	return docforge.None(), fmt.Errorf("unexpected delimiter %q", delim)
}
