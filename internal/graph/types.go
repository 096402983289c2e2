package graph

// Direction selects which side of the inheritance hierarchy a query walks.
type Direction string

const (
	DirectionDerived Direction = "derived" // classes inheriting from the root
	DirectionBases   Direction = "bases"   // classes the root inherits from
	DirectionBoth    Direction = "both"    // both walks, derived first
)

// ClassNode is one class or struct entity as a graph vertex.
type ClassNode struct {
	ID         int64  `json:"id"`          // Store-assigned entity id
	Name       string `json:"name"`        // Identifier as written in source
	Namespace  string `json:"namespace"`   // "::"-joined, "" at global scope
	FilePath   string `json:"file_path"`   // Relative file path
	LineNumber int    `json:"line_number"` // 1-indexed declaration line
	IsStruct   bool   `json:"is_struct"`   // Declared with the struct keyword
	IsTemplate bool   `json:"is_template"` // Template class
}

// QualifiedName returns the node's name prefixed with its namespace.
func (n *ClassNode) QualifiedName() string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "::" + n.Name
}
