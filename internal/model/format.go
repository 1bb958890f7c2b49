package model

import "strings"

// FormatKind enumerates the shapes a final answer can take.
type FormatKind string

const (
	FormatInt    FormatKind = "int"
	FormatFloat  FormatKind = "float"
	FormatString FormatKind = "str"
	FormatObject FormatKind = "object"
	FormatList   FormatKind = "list"
)

// FormatField is one declared key of an object-shaped answer.
type FormatField struct {
	Name string
	Kind FormatKind
}

// FormatHint is the parsed shape declaration for a final answer.
// Hints look like "int", "float", "{category: str, quantity: int}" or
// "list[{product: str, revenue: float}]".
type FormatHint struct {
	Kind   FormatKind
	Fields []FormatField // object fields; for list hints, the element fields
}

// ParseFormatHint parses a declared answer shape. Unknown or empty hints
// parse as plain strings rather than failing: the hint grammar is closed but
// inputs are not trusted.
func ParseFormatHint(hint string) FormatHint {
	h := strings.TrimSpace(hint)
	switch {
	case h == "int":
		return FormatHint{Kind: FormatInt}
	case strings.HasPrefix(h, "float"):
		return FormatHint{Kind: FormatFloat}
	case strings.HasPrefix(h, "list"):
		inner := strings.TrimSpace(strings.TrimPrefix(h, "list"))
		inner = strings.TrimPrefix(inner, "[")
		inner = strings.TrimSuffix(inner, "]")
		elem := ParseFormatHint(inner)
		return FormatHint{Kind: FormatList, Fields: elem.Fields}
	case strings.HasPrefix(h, "{") && strings.HasSuffix(h, "}"):
		return FormatHint{Kind: FormatObject, Fields: parseFields(h[1 : len(h)-1])}
	default:
		return FormatHint{Kind: FormatString}
	}
}

func parseFields(body string) []FormatField {
	var fields []FormatField
	for _, piece := range strings.Split(body, ",") {
		name, typ, ok := strings.Cut(piece, ":")
		if !ok {
			continue
		}
		name = strings.Trim(strings.TrimSpace(name), `"'`)
		if name == "" {
			continue
		}
		kind := FormatString
		switch strings.TrimSpace(typ) {
		case "int":
			kind = FormatInt
		case "float":
			kind = FormatFloat
		}
		fields = append(fields, FormatField{Name: strings.ToLower(name), Kind: kind})
	}
	return fields
}
