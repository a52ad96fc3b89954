// Package adapt moves record sets between external formats and the attribute
// shape of a generated model descriptor. Adapters never inspect implementing
// Go types; the descriptor's trait markers are their only contract with the
// engine, so a record decoded here can be stored, re-encoded or bound to any
// struct that carries the same attributes.
package adapt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"traitcore/pkg/modelapi"
	"traitcore/pkg/trait"
)

// Record is one row of adapter payload keyed by model attribute name.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Adapter converts between one external payload format and records shaped by
// a model descriptor. Implementations must be safe for concurrent use; the
// descriptor may be nil when the caller has no model to shape against.
type Adapter interface {
	Key() string
	Decode(ctx context.Context, src []byte, model *modelapi.Type) ([]Record, error)
	Encode(ctx context.Context, records []Record, model *modelapi.Type) ([]byte, error)
}

// Registry associates adapters with their keys and layers trait-aware record
// enrichment over them: decoding fills missing identity attributes for
// IDENTIFIABLE models, encoding stamps timestamps for TEMPORAL ones. Safe
// for concurrent use.
type Registry struct {
	clock trait.Clock
	newID func() string

	mu       sync.RWMutex
	adapters map[string]Adapter
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the clock used for temporal stamping.
func WithClock(c trait.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewRegistry builds an empty adapter registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		clock:    trait.ClockFunc(time.Now),
		newID:    uuid.NewString,
		adapters: make(map[string]Adapter),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds the adapter under its key. A later registration for the same
// key replaces the earlier one.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return &ConfigError{Reason: "nil adapter"}
	}
	key := strings.TrimSpace(a.Key())
	if key == "" {
		return &ConfigError{Adapter: fmt.Sprintf("%T", a), Reason: "adapter key required"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[key] = a
	return nil
}

// Get returns the adapter registered under key.
func (r *Registry) Get(key string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[key]
	if !ok {
		return nil, fmt.Errorf("adapter %q: %w", key, ErrAdapterNotFound)
	}
	return a, nil
}

// Keys lists the registered adapter keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodeVia decodes the payload through the keyed adapter, fills identity
// attributes the model's traits call for, and checks every record against
// the descriptor.
func (r *Registry) DecodeVia(ctx context.Context, key string, src []byte, model *modelapi.Type) ([]Record, error) {
	a, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	records, err := a.Decode(ctx, src, model)
	if err != nil {
		return nil, err
	}
	for i := range records {
		r.fillIdentity(records[i], model)
		if err := CheckRecord(records[i], model); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

// EncodeVia stamps temporal attributes on copies of the records and encodes
// them through the keyed adapter. The caller's records are not mutated.
func (r *Registry) EncodeVia(ctx context.Context, key string, records []Record, model *modelapi.Type) ([]byte, error) {
	a, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
		r.stampTemporal(out[i], model)
	}
	return a.Encode(ctx, out, model)
}

func (r *Registry) fillIdentity(rec Record, model *modelapi.Type) {
	if rec == nil || model == nil || !model.HasTraitName(trait.Identifiable.String()) {
		return
	}
	if v, ok := rec["id"]; ok && v != nil && v != "" {
		return
	}
	rec["id"] = r.newID()
	if model.HasField("id_type") {
		if v, ok := rec["id_type"]; !ok || v == nil || v == "" {
			rec["id_type"] = "uuid"
		}
	}
}

func (r *Registry) stampTemporal(rec Record, model *modelapi.Type) {
	if rec == nil || model == nil || !model.HasTraitName(trait.Temporal.String()) {
		return
	}
	now := r.clock.Now().UTC()
	if v, ok := rec["created_at"]; !ok || v == nil {
		rec["created_at"] = now
	}
	rec["updated_at"] = now
}

// CheckRecord verifies a record against the descriptor: required attributes
// must be present and non-nil, and every present attribute must fit its
// declared kind. A nil descriptor accepts anything.
func CheckRecord(rec Record, model *modelapi.Type) error {
	if model == nil {
		return nil
	}
	var missing []string
	for _, f := range model.Fields() {
		v, ok := rec[f.Name]
		if !ok || v == nil {
			if f.Required {
				missing = append(missing, f.Name)
			}
			continue
		}
		if !kindMatches(v, f.Kind) {
			return &TypeConversionError{Model: model.Name(), Field: f.Name, Value: v, Want: f.Kind}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("record for %s missing required attributes %s", model.Name(), strings.Join(missing, ", "))
	}
	return nil
}

func kindMatches(v any, kind modelapi.FieldKind) bool {
	switch kind {
	case modelapi.KindAny, modelapi.FieldKind(""):
		return true
	case modelapi.KindString:
		_, ok := v.(string)
		return ok
	case modelapi.KindInt:
		switch n := v.(type) {
		case int, int32, int64, uint, uint32, uint64:
			return true
		case float64:
			return n == math.Trunc(n)
		case float32:
			return float64(n) == math.Trunc(float64(n))
		case json.Number:
			_, err := n.Int64()
			return err == nil
		default:
			return false
		}
	case modelapi.KindFloat:
		switch v.(type) {
		case float32, float64, int, int32, int64, json.Number:
			return true
		default:
			return false
		}
	case modelapi.KindBool:
		_, ok := v.(bool)
		return ok
	case modelapi.KindTime:
		switch t := v.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339, t)
			return err == nil
		default:
			return false
		}
	case modelapi.KindStringList:
		switch list := v.(type) {
		case []string:
			return true
		case []any:
			for _, item := range list {
				if _, ok := item.(string); !ok {
					return false
				}
			}
			return true
		default:
			return false
		}
	case modelapi.KindMap:
		switch v.(type) {
		case map[string]any, Record:
			return true
		default:
			return false
		}
	}
	return false
}
