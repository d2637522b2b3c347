package record

import "strings"

// Schema declares which fields of a kind are relations and what kind they
// point at. Stores use it to resolve populate paths and one-hop relation
// filters; nothing else about a record's shape is declared.
type Schema struct {
	relations map[string]map[string]string
}

func NewSchema() *Schema {
	return &Schema{relations: make(map[string]map[string]string)}
}

// Relate declares that field on kind references a record of target kind.
func (s *Schema) Relate(kind, field, target string) {
	if s.relations[kind] == nil {
		s.relations[kind] = make(map[string]string)
	}
	s.relations[kind][field] = target
}

// Target resolves the kind a relation field points at.
func (s *Schema) Target(kind, field string) (string, bool) {
	target, ok := s.relations[kind][field]
	return target, ok
}

// splitPath cuts a populate or filter path into its head segment and the
// remainder ("profile.user.id" -> "profile", "user.id").
func splitPath(path string) (head, rest string) {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}
