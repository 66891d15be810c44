package model

// Document is a keyed record read from or written to a collection.
// Data is passed through untouched: nested maps, slices and scalars are never
// interpreted by the copier.
type Document struct {
	ID   string                 `json:"id"`
	Data map[string]interface{} `json:"data"`
}

// NewDocument creates a document. A nil payload becomes an empty map so that
// backends always receive a writable value.
func NewDocument(id string, data map[string]interface{}) *Document {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Document{ID: id, Data: data}
}

// CloneData returns a deep copy of a document payload.
func CloneData(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return CloneData(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	default:
		return val
	}
}
