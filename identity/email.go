package identity

import "strings"

// EmailFromProfile probes a decoded profile response for an email
// address. The upstream contract is inconsistent across deployments,
// so this is an explicit ordered list of extraction strategies rather
// than a single field read. The final strategy is a recursive scan for
// any key containing "email" whose value looks like an address.
func EmailFromProfile(body map[string]any) string {
	strategies := []func(map[string]any) string{
		func(m map[string]any) string { return nestedString(m, "data", "email") },
		func(m map[string]any) string { return stringField(m, "email") },
		func(m map[string]any) string { return nestedString(m, "user", "email") },
		func(m map[string]any) string { return nestedString(m, "data", "user", "email") },
		scanForEmail,
	}
	for _, s := range strategies {
		if v := s(body); v != "" {
			return v
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok && strings.Contains(v, "@") {
		return v
	}
	return ""
}

func nestedString(m map[string]any, path ...string) string {
	cur := m
	for i, key := range path {
		if i == len(path)-1 {
			return stringField(cur, key)
		}
		next, ok := cur[key].(map[string]any)
		if !ok {
			return ""
		}
		cur = next
	}
	return ""
}

// scanForEmail walks the whole document looking for any key containing
// "email" with an "@"-bearing string value.
func scanForEmail(m map[string]any) string {
	for key, val := range m {
		switch v := val.(type) {
		case string:
			if strings.Contains(strings.ToLower(key), "email") && strings.Contains(v, "@") {
				return v
			}
		case map[string]any:
			if found := scanForEmail(v); found != "" {
				return found
			}
		}
	}
	return ""
}
