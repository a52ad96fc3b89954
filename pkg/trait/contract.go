package trait

import (
	"reflect"
	"strings"

	"traitcore/pkg/modelapi"
)

// goInitialisms are contract-name segments spelled in full caps in Go.
var goInitialisms = map[string]string{
	"id":  "ID",
	"ttl": "TTL",
	"url": "URL",
	"api": "API",
}

// goName maps a snake_case contract name to its exported Go spelling:
// id -> ID, id_type -> IDType, created_at -> CreatedAt.
func goName(attr string) string {
	parts := strings.Split(attr, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if up, ok := goInitialisms[p]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// hasAttribute reports whether the Go type exposes the contract attribute as
// an exported field (by Go spelling or json tag), or as a method.
func hasAttribute(rt reflect.Type, attr string) bool {
	if rt == nil {
		return false
	}
	name := goName(attr)
	base := rt
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.Struct {
		if _, ok := base.FieldByName(name); ok {
			return true
		}
		for i := 0; i < base.NumField(); i++ {
			tag := base.Field(i).Tag.Get("json")
			if tag == "" {
				continue
			}
			if tagName, _, _ := strings.Cut(tag, ","); tagName == attr {
				return true
			}
		}
	}
	return hasMethod(rt, name)
}

// hasOperation reports whether the Go type exposes the contract operation as
// a method.
func hasOperation(rt reflect.Type, op string) bool {
	if rt == nil {
		return false
	}
	return hasMethod(rt, goName(op))
}

func hasMethod(rt reflect.Type, name string) bool {
	if _, ok := rt.MethodByName(name); ok {
		return true
	}
	if rt.Kind() != reflect.Pointer {
		if _, ok := reflect.PointerTo(rt).MethodByName(name); ok {
			return true
		}
	}
	return false
}

// missingOnType returns the required-contract names the Go type does not
// expose. Required names may be attributes or operations; either a matching
// field or method satisfies them.
func missingOnType(rt reflect.Type, required []string) []string {
	var missing []string
	for _, name := range required {
		if !hasAttribute(rt, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// missingOnModel returns the required-contract names a generated descriptor
// does not expose among its fields or operations.
func missingOnModel(m *modelapi.Type, required []string) []string {
	var missing []string
	for _, name := range required {
		if !m.HasField(name) && !m.HasOperation(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// protocolContract flattens a definition's full contract into one required
// name list for protocol-mode checks.
func protocolContract(def Definition) []string {
	out := make([]string, 0, len(def.Attributes)+len(def.Operations))
	for _, a := range def.Attributes {
		out = append(out, a.Name)
	}
	out = append(out, def.Operations...)
	return out
}

// satisfiesProtocol reports whether the Go type structurally satisfies the
// trait's full contract: every attribute as field or method, every operation
// as method.
func satisfiesProtocol(rt reflect.Type, def Definition) bool {
	for _, a := range def.Attributes {
		if !hasAttribute(rt, a.Name) {
			return false
		}
	}
	for _, op := range def.Operations {
		if !hasOperation(rt, op) {
			return false
		}
	}
	return true
}

// satisfiesProtocolModel is the descriptor form of satisfiesProtocol.
func satisfiesProtocolModel(m *modelapi.Type, def Definition) bool {
	for _, a := range def.Attributes {
		if !m.HasField(a.Name) && !m.HasOperation(a.Name) {
			return false
		}
	}
	for _, op := range def.Operations {
		if !m.HasOperation(op) {
			return false
		}
	}
	return true
}
