package probe

// ShapeFunc judges a parsed JSON body. Validators are deliberately
// loose: they check the contract a probe cares about and nothing else,
// so extra fields never cost credit.
type ShapeFunc func(v any) bool

// NonEmptyObject accepts any JSON object with at least one field.
func NonEmptyObject(v any) bool {
	obj, ok := v.(map[string]any)
	return ok && len(obj) > 0
}

// SuccessEnvelope accepts {"ok": true, ...} carrying every named key.
func SuccessEnvelope(keys ...string) ShapeFunc {
	return func(v any) bool {
		obj, ok := v.(map[string]any)
		if !ok {
			return false
		}
		if flag, ok := obj["ok"].(bool); !ok || !flag {
			return false
		}
		for _, k := range keys {
			if _, present := obj[k]; !present {
				return false
			}
		}
		return true
	}
}

// ErrorEnvelope accepts {"ok": false, ...} with a non-empty error
// message.
func ErrorEnvelope(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if flag, ok := obj["ok"].(bool); !ok || flag {
		return false
	}
	msg, ok := obj["error"].(string)
	return ok && msg != ""
}
