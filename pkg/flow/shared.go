package flow

// Shared is the mutable key/value context threaded through a whole flow run.
// Keys are untyped by design; callers namespace them by convention. The
// engine enforces no schema.
type Shared map[string]any

// Clone returns a one-level-deep copy: top-level map and slice values are
// copied into fresh containers, deeper structures are shared by reference.
// Branches of a parallel flow must not mutate those deeper structures in
// divergent ways.
func (s Shared) Clone() Shared {
	out := make(Shared, len(s))
	for k, v := range s {
		switch tv := v.(type) {
		case map[string]any:
			m := make(map[string]any, len(tv))
			for mk, mv := range tv {
				m[mk] = mv
			}
			out[k] = m
		case []any:
			l := make([]any, len(tv))
			copy(l, tv)
			out[k] = l
		default:
			out[k] = v
		}
	}
	return out
}

// GetString reads a string value, returning "" when absent or mistyped.
func (s Shared) GetString(key string) string {
	v, _ := s[key].(string)
	return v
}

// GetInt reads an int value, returning 0 when absent or mistyped.
func (s Shared) GetInt(key string) int {
	v, _ := s[key].(int)
	return v
}

// GetSlice reads a []any value, returning nil when absent or mistyped.
func (s Shared) GetSlice(key string) []any {
	v, _ := s[key].([]any)
	return v
}

// AppendTo appends items to the []any stored under key, creating it if needed.
func (s Shared) AppendTo(key string, items ...any) {
	s[key] = append(s.GetSlice(key), items...)
}
