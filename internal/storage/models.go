package storage

import "time"

// Domain models that mirror SQL tables in schema.go.
// These are lightweight data transfer structs, NOT ORM models.

// Entity types stored in entities.entity_type.
const (
	EntityClass    = "class"
	EntityEnum     = "enum"
	EntityFunction = "function"
	EntityTypedef  = "typedef"
)

// Declaration kinds stored in entities.decl_type.
const (
	DeclDeclaration        = "declaration"
	DeclDefinition         = "definition"
	DeclForwardDeclaration = "forward_declaration"
)

// Member kinds stored in members.member_type.
const (
	MemberField  = "field"
	MemberMethod = "method"
)

// Access levels stored in members.visibility and base-class payloads.
const (
	AccessPublic    = "public"
	AccessProtected = "protected"
	AccessPrivate   = "private"
)

// RelationInheritsFrom is the only relationship_type written today.
// The column stays free-form so later passes (calls, aliases) can add their own types.
const RelationInheritsFrom = "inherits_from"

// Directions accepted by EntityReader.GetRelationships.
const (
	DirectionFrom = "from"
	DirectionTo   = "to"
	DirectionBoth = "both"
)

// Entity represents one declared C++ symbol. Common columns live as struct
// fields; exactly one variant pointer (matching EntityType) is non-nil and
// is serialized into entities.data_json.
type Entity struct {
	ID             int64  // id: assigned by SQLite on insert
	Name           string // name: identifier as written in source
	EntityType     string // entity_type: class | enum | function | typedef
	Namespace      string // namespace: "::"-joined, "" at global scope
	FilePath       string // file_path: relative, forward slashes
	LineNumber     int    // line_number: 1-based
	DeclType       string // decl_type: declaration | definition | forward_declaration
	IsTemplate     bool   // is_template
	TemplateParams string // template_params: verbatim "<...>" text
	IsPrivateImpl  bool   // is_private_impl: defined with a body in a .cpp/.cc/.cxx

	// Variant payload, one of:
	Class    *ClassData    `json:"-"`
	Enum     *EnumData     `json:"-"`
	Function *FunctionData `json:"-"`
	Typedef  *TypedefData  `json:"-"`

	Members []Member `json:"-"` // Joined: members rows (classes/structs only)
}

// ClassData is the data_json payload for class and struct entities.
type ClassData struct {
	IsStruct    bool        `json:"is_struct"`
	BaseClasses []BaseClass `json:"base_classes,omitempty"` // declaration order
}

// BaseClass is one entry of a class's inheritance clause.
type BaseClass struct {
	Name      string `json:"name"`   // template argument suffix stripped
	Access    string `json:"access"` // public | protected | private
	IsVirtual bool   `json:"is_virtual"`
}

// EnumData is the data_json payload for enum entities.
type EnumData struct {
	IsEnumClass    bool        `json:"is_enum_class"`             // enum class / enum struct
	UnderlyingType string      `json:"underlying_type,omitempty"` // text after ":", "" if absent
	Values         []EnumValue `json:"values,omitempty"`          // declaration order
}

// EnumValue is a single enumerator. Value holds the verbatim initializer
// text after "=", or "" when the enumerator has no explicit value.
type EnumValue struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// FunctionData is the data_json payload for free-function entities.
type FunctionData struct {
	ReturnType string      `json:"return_type"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// Parameter is one parameter of a function or method signature.
// Name is "" for unnamed parameters; Type then carries the full text.
type Parameter struct {
	Name         string `json:"name,omitempty"`
	Type         string `json:"type"`
	DefaultValue string `json:"default_value,omitempty"`
}

// TypedefData is the data_json payload for typedef and using-alias entities.
type TypedefData struct {
	TargetType string `json:"target_type"`
	IsUsing    bool   `json:"is_using"` // using Alias = T, as opposed to typedef T Alias
}

// Member is a field or method row owned by a class/struct entity.
// Maps to the members table.
type Member struct {
	ID         int64  // id: assigned on insert
	EntityID   int64  // entity_id: owning entity
	MemberType string // member_type: field | method
	Name       string // name
	DataType   string // data_type: field type, or method return type
	Visibility string // visibility: public | protected | private
	IsStatic   bool   // is_static
	Ordinal    int    // ordinal: declaration order within the entity

	// Method payload, nil for fields. Serialized into members.data_json.
	Method *MethodData `json:"-"`
}

// MethodData carries the method-only attributes of a member.
type MethodData struct {
	Parameters    []Parameter `json:"parameters,omitempty"`
	IsConst       bool        `json:"is_const"`
	IsVirtual     bool        `json:"is_virtual"`
	IsPureVirtual bool        `json:"is_pure_virtual"` // declared "= 0"
}

// Relationship is a directed edge between two stored entities.
// Maps to the relationships table.
type Relationship struct {
	ID               int64             // id
	FromEntityID     int64             // from_entity_id: source entity
	ToEntityID       int64             // to_entity_id: target entity
	RelationshipType string            // relationship_type: inherits_from
	Data             *RelationshipData // relationship_data JSON, may be nil
}

// RelationshipData is the edge payload. For inherits_from it records the
// access and virtual-ness taken from the derived class's inheritance clause.
type RelationshipData struct {
	Access    string `json:"access,omitempty"`
	IsVirtual bool   `json:"is_virtual,omitempty"`
}

// FileRecord tracks one indexed source file for change detection.
// Maps to the files table.
type FileRecord struct {
	ID           int64     // id
	FilePath     string    // file_path: relative, forward slashes, unique
	LastModified time.Time // last_modified: filesystem mtime at parse time
	FileHash     string    // file_hash: SHA-256 hex of file contents
	ParsedAt     time.Time // parsed_at: when the file was last parsed
}

// SearchFilter narrows SearchEntities. Zero values mean no constraint;
// all set fields are combined with AND.
type SearchFilter struct {
	NamePattern string   // substring match on entity name
	Types       []string // entity_type membership
	Namespace   string   // exact namespace match
	DeclType    string   // exact decl_type match
	FilePattern string   // substring match on file_path
	Limit       int      // 0 = unlimited
}

// Stats summarizes the store for status output.
type Stats struct {
	TotalEntities  int            `json:"total_entities"`
	EntitiesByType map[string]int `json:"entities_by_type"`
	FilesTracked   int            `json:"files_tracked"`
	Relationships  int            `json:"relationships"`
	StoreSizeBytes int64          `json:"store_size_bytes"`
}
