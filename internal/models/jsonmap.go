package models

//
// JSONMap helper
//

// JSONMap holds free-form user metadata. Backed by map[string]any and
// serialized as a JSON object inside the registry document.
type JSONMap map[string]any

// Clone returns a shallow copy of the map. Nested values are shared; the
// registry treats custom metadata as opaque and never mutates it.
func (m JSONMap) Clone() JSONMap {
	if m == nil {
		return nil
	}
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CloneStringMap copies a string map, preserving nil.
func CloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CloneFloatMap copies a metric map, preserving nil.
func CloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
