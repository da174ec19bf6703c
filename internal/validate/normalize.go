package validate

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	errInvalidJSON = errors.New("invalid_json")
	errNotObject   = errors.New("not_an_object")
)

// normalize turns a raw candidate into a mutable JSON object. Accepted
// inputs mirror what upstream callers hand us: an already-decoded mapping,
// raw text/bytes, or any marshalable value.
//
// Text gets a single direct parse; there is no salvage for fully
// unparseable input here. After a successful parse the configured
// caller-injected transport keys are removed so they never count as
// extra properties.
func normalize(candidate any, strip []string) (map[string]any, error) {
	obj, err := decode(candidate)
	if err != nil {
		return nil, err
	}
	for _, k := range strip {
		delete(obj, k)
	}
	return obj, nil
}

func decode(candidate any) (map[string]any, error) {
	switch v := candidate.(type) {
	case nil:
		return nil, errInvalidJSON
	case map[string]any:
		return v, nil
	case string:
		return decodeBytes([]byte(v))
	case []byte:
		return decodeBytes(v)
	case json.RawMessage:
		return decodeBytes(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
		}
		return decodeBytes(data)
	}
}

func decodeBytes(data []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errInvalidJSON
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}
