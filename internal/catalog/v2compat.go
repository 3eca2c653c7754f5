package catalog

import "strings"

// Swagger v2 documents in the wild often break two rules kin-openapi's
// converter enforces: an operation has at most one body parameter, and body
// and formData parameters never mix. relaxV2 rewrites such operations in
// place so conversion succeeds. Only the parameter lists change; paths,
// methods and tags, which the catalog reads, are untouched.
//
// Several body parameters are merged into one object-typed body whose
// properties are the original parameters. Body parameters next to formData
// parameters become formData fields and the operation consumes
// multipart/form-data.
//
// It returns the number of operations rewritten.
func relaxV2(doc map[string]any) int {
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		return 0
	}
	rewritten := 0
	for _, raw := range paths {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for method, rawOp := range item {
			if !isV2Operation(method) {
				continue
			}
			op, ok := rawOp.(map[string]any)
			if !ok {
				continue
			}
			if relaxOperation(op) {
				rewritten++
			}
		}
	}
	return rewritten
}

func isV2Operation(key string) bool {
	switch strings.ToLower(key) {
	case "get", "put", "post", "delete", "options", "head", "patch":
		return true
	}
	return false
}

func relaxOperation(op map[string]any) bool {
	params, ok := op["parameters"].([]any)
	if !ok || len(params) == 0 {
		return false
	}
	var bodies, others []map[string]any
	hasForm := false
	for _, p := range params {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		switch in := stringField(pm, "in"); {
		case strings.EqualFold(in, "body"):
			bodies = append(bodies, pm)
		case strings.EqualFold(in, "formData"):
			hasForm = true
			others = append(others, pm)
		default:
			others = append(others, pm)
		}
	}

	switch {
	case len(bodies) > 0 && hasForm:
		out := make([]any, 0, len(params))
		for _, p := range params {
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if strings.EqualFold(stringField(pm, "in"), "body") {
				pm = bodyAsFormField(pm)
			}
			out = append(out, pm)
		}
		op["parameters"] = out
		consumes, _ := op["consumes"].([]any)
		if !containsValue(consumes, "multipart/form-data") {
			op["consumes"] = append(consumes, "multipart/form-data")
		}
		return true
	case len(bodies) > 1:
		props := make(map[string]any, len(bodies))
		var required []any
		for _, b := range bodies {
			name := fieldName(b)
			schema := paramSchema(b)
			if schema == nil {
				schema = map[string]any{"type": "string"}
			}
			props[name] = schema
			if req, _ := b["required"].(bool); req {
				required = append(required, name)
			}
		}
		merged := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			merged["required"] = required
		}
		out := make([]any, 0, len(others)+1)
		out = append(out, map[string]any{"in": "body", "name": "body", "schema": merged})
		for _, o := range others {
			out = append(out, o)
		}
		op["parameters"] = out
		return true
	}
	return false
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func fieldName(pm map[string]any) string {
	if name := stringField(pm, "name"); name != "" {
		return name
	}
	return "field"
}

func containsValue(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

// paramSchema returns the body schema, or one synthesized from the
// parameter's own type, items and format.
func paramSchema(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	typ := stringField(pm, "type")
	if typ == "" {
		return nil
	}
	out := map[string]any{"type": typ}
	if items, ok := pm["items"].(map[string]any); ok {
		out["items"] = items
	}
	if f := stringField(pm, "format"); f != "" {
		out["format"] = f
	}
	return out
}

// bodyAsFormField degrades a body parameter to a formData field. Referenced
// object schemas have no form representation and become strings.
func bodyAsFormField(pm map[string]any) map[string]any {
	out := map[string]any{"in": "formData", "name": fieldName(pm)}
	if desc := stringField(pm, "description"); desc != "" {
		out["description"] = desc
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}
	typ, format := "", ""
	var items any
	if sch := paramSchema(pm); sch != nil {
		typ = stringField(sch, "type")
		format = stringField(sch, "format")
		items = sch["items"]
	}
	if typ == "" || typ == "object" {
		typ = "string"
		items = nil
	}
	out["type"] = typ
	if typ == "array" && items != nil {
		out["items"] = items
	}
	if format != "" {
		out["format"] = format
	}
	return out
}
