package validate

// IsUnspecifiedValue indica se o valor está ausente ou é string vazia.
// `null` (nil presente) não conta como não especificado.
func IsUnspecifiedValue(v any, present bool) bool {
	if !present {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// IsUnspecifiedOrNullValue é como IsUnspecifiedValue, mas também aceita `null`.
func IsUnspecifiedOrNullValue(v any, present bool) bool {
	return IsUnspecifiedValue(v, present) || (present && v == nil)
}

// IsUnspecified verifica a chave key do objeto.
func IsUnspecified(obj map[string]any, key string) bool {
	v, ok := obj[key]
	return IsUnspecifiedValue(v, ok)
}

// IsUnspecifiedOrNull verifica a chave key do objeto, tratando `null` como ausente.
func IsUnspecifiedOrNull(obj map[string]any, key string) bool {
	v, ok := obj[key]
	return IsUnspecifiedOrNullValue(v, ok)
}

// IsNull indica que a chave existe e carrega `null` explícito.
func IsNull(obj map[string]any, key string) bool {
	v, ok := obj[key]
	return ok && v == nil
}

// IsUnspecifiedNested percorre obj seguindo keys.
func IsUnspecifiedNested(obj any, keys ...string) bool {
	return walk(obj, keys, IsUnspecifiedValue)
}

// IsUnspecifiedOrNullNested percorre obj seguindo keys, tratando `null` como ausente.
func IsUnspecifiedOrNullNested(obj any, keys ...string) bool {
	return walk(obj, keys, IsUnspecifiedOrNullValue)
}

// walk checa cada salto antes de avançar; o valor final também é checado.
// Um salto que não é objeto (incluindo `null`) não tem filhos e conta como não especificado.
func walk(obj any, keys []string, unspecified func(any, bool) bool) bool {
	cur, present := obj, true
	for i := 0; i <= len(keys); i++ {
		if unspecified(cur, present) {
			return true
		}
		if i == len(keys) {
			break
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return true
		}
		cur, present = m[keys[i]]
	}
	return false
}
