package mcp

import (
	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// EntityResult is one entity in a tool response. Both the SQL and the
// fuzzy search path produce this shape, so tool consumers only deal with
// one format.
type EntityResult struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	QualifiedName string  `json:"qualified_name"`
	Namespace     string  `json:"namespace"`
	EntityType    string  `json:"entity_type"`
	DeclType      string  `json:"decl_type,omitempty"`
	FilePath      string  `json:"file_path"`
	LineNumber    int     `json:"line_number,omitempty"`
	IsTemplate    bool    `json:"is_template,omitempty"`
	Score         float64 `json:"score,omitempty"` // Fuzzy match quality, 0 for SQL results
}

// MemberResult is one field or method of a class in a tool response.
// Method-only attributes stay zero-valued for fields.
type MemberResult struct {
	Name          string              `json:"name"`
	MemberType    string              `json:"member_type"`
	DataType      string              `json:"data_type"`
	Visibility    string              `json:"visibility"`
	IsStatic      bool                `json:"is_static,omitempty"`
	IsConst       bool                `json:"is_const,omitempty"`
	IsVirtual     bool                `json:"is_virtual,omitempty"`
	IsPureVirtual bool                `json:"is_pure_virtual,omitempty"`
	Parameters    []storage.Parameter `json:"parameters,omitempty"`
}

// CppSearchResponse is the JSON response of the cpp_search tool.
type CppSearchResponse struct {
	Query   string         `json:"query"`
	Fuzzy   bool           `json:"fuzzy,omitempty"`
	Total   int            `json:"total"`
	Results []EntityResult `json:"results"`
}

// CppMembersResponse is the JSON response of the cpp_members tool.
type CppMembersResponse struct {
	Entity  EntityResult   `json:"entity"`
	Total   int            `json:"total"`
	Members []MemberResult `json:"members"`
}

// CppStatsResponse is the JSON response of the cpp_stats tool.
type CppStatsResponse struct {
	ProjectName   string         `json:"project_name,omitempty"`
	SchemaVersion string         `json:"schema_version"`
	LastRunID     string         `json:"last_run_id,omitempty"`
	LastRunAt     string         `json:"last_run_at,omitempty"`
	Stats         *storage.Stats `json:"stats"`
}

// entityToResult converts a stored entity to its response shape.
func entityToResult(e *storage.Entity) EntityResult {
	qualified := e.Name
	if e.Namespace != "" {
		qualified = e.Namespace + "::" + e.Name
	}
	return EntityResult{
		ID:            e.ID,
		Name:          e.Name,
		QualifiedName: qualified,
		Namespace:     e.Namespace,
		EntityType:    e.EntityType,
		DeclType:      e.DeclType,
		FilePath:      e.FilePath,
		LineNumber:    e.LineNumber,
		IsTemplate:    e.IsTemplate,
	}
}

// memberToResult converts a stored member to its response shape.
func memberToResult(m *storage.Member) MemberResult {
	result := MemberResult{
		Name:       m.Name,
		MemberType: m.MemberType,
		DataType:   m.DataType,
		Visibility: m.Visibility,
		IsStatic:   m.IsStatic,
	}
	if m.Method != nil {
		result.IsConst = m.Method.IsConst
		result.IsVirtual = m.Method.IsVirtual
		result.IsPureVirtual = m.Method.IsPureVirtual
		result.Parameters = m.Method.Parameters
	}
	return result
}
