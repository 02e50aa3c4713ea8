package profile

// DeepMerge recursively combines two nested mappings without mutating
// either input. When both sides hold a mapping at the same key, the
// mappings merge recursively; otherwise the overlay value wins. This is
// the merge used for catalog layering, so a descendant profile overrides
// individual fields of an entry rather than replacing the whole entry.
func DeepMerge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		baseMap, baseOK := out[k].(map[string]any)
		overlayMap, overlayOK := v.(map[string]any)
		if baseOK && overlayOK {
			out[k] = DeepMerge(baseMap, overlayMap)
			continue
		}
		out[k] = v
	}
	return out
}
