package pricing

// The editing operations below never modify the slice they are given. Each
// returns a new slice in which only the affected item differs, with its
// LineTotal recomputed.

// Add appends a new empty line.
func Add(items []LineItem) []LineItem {
	out := make([]LineItem, len(items), len(items)+1)
	copy(out, items)
	return append(out, NewLineItem().Recalculate())
}

// Remove drops the line with the given id. Unknown ids leave the list as is.
func Remove(items []LineItem, id string) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// Apply sets one field of one line and recomputes that line's total.
// Unknown ids and fields leave the list unchanged.
func Apply(items []LineItem, id string, field Field, value string) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	for i, it := range out {
		if it.ID != id {
			continue
		}
		if updated, ok := it.set(field, value); ok {
			out[i] = updated
		}
		break
	}
	return out
}

// Find returns the line with the given id.
func Find(items []LineItem, id string) (LineItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return LineItem{}, false
}
