package parsers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// Test Plan for C++ Parser:
// - Parse header files and extract classes with bases, members, and visibility
// - Track the running access level and class/struct visibility defaults
// - Extract scoped and plain enums with underlying types and value initializers
// - Capture template classes with verbatim parameter text
// - Extract typedef and using aliases with their target types
// - Extract free functions with multi-token return types and parameter details
// - Set is_private_impl only for bodies in translation units (static-only for functions)
// - Skip qualified (out-of-line) member definitions at file scope
// - Resolve nested and anonymous namespaces
// - Walk inheritance clauses with access/virtual carry and reset
// - Apply the textual parameter rule (names, markers, defaults)
// - Fold missing-file errors into the per-file Result

func TestCppParser_ParseClasses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.hpp")

	require.NoError(t, result.Err)
	require.Len(t, result.Entities, 12)

	shape := findEntity(t, result.Entities, "Shape")
	assert.Equal(t, storage.EntityClass, shape.EntityType)
	assert.Equal(t, "geo", shape.Namespace)
	assert.Equal(t, 34, shape.LineNumber)
	assert.Equal(t, storage.DeclDefinition, shape.DeclType)
	assert.False(t, shape.IsTemplate)
	assert.False(t, shape.IsPrivateImpl, "headers never set is_private_impl")
	require.NotNil(t, shape.Class)
	assert.False(t, shape.Class.IsStruct)

	require.Len(t, shape.Class.BaseClasses, 2)
	assert.Equal(t, storage.BaseClass{Name: "Drawable", Access: "public"}, shape.Class.BaseClasses[0])
	assert.Equal(t, storage.BaseClass{Name: "Counted", Access: "private", IsVirtual: true}, shape.Class.BaseClasses[1])

	require.Len(t, shape.Members, 8)
	members := membersByName(shape.Members)

	ctor := members["Shape"]
	assert.Equal(t, storage.MemberMethod, ctor.MemberType)
	assert.Equal(t, 0, ctor.Ordinal)
	assert.Equal(t, "public", ctor.Visibility)
	assert.Empty(t, ctor.DataType, "constructors declare no return type")
	require.NotNil(t, ctor.Method)
	require.Len(t, ctor.Method.Parameters, 2)
	assert.Equal(t, storage.Parameter{Name: "width", Type: "double"}, ctor.Method.Parameters[0])
	assert.Equal(t, storage.Parameter{Name: "height", Type: "double"}, ctor.Method.Parameters[1])

	draw := members["draw"]
	assert.Equal(t, storage.MemberMethod, draw.MemberType)
	assert.Equal(t, 1, draw.Ordinal)
	assert.Equal(t, "void", draw.DataType)
	require.NotNil(t, draw.Method)
	assert.True(t, draw.Method.IsVirtual)
	assert.True(t, draw.Method.IsConst)
	assert.False(t, draw.Method.IsPureVirtual, "overriding draw in Shape is not pure")

	area := members["area"]
	assert.Equal(t, 2, area.Ordinal)
	assert.Equal(t, "double", area.DataType)
	require.NotNil(t, area.Method)
	assert.True(t, area.Method.IsConst)
	assert.False(t, area.Method.IsVirtual)

	unit := members["unit"]
	assert.Equal(t, storage.MemberMethod, unit.MemberType)
	assert.Equal(t, 3, unit.Ordinal)
	assert.True(t, unit.IsStatic)
	assert.Equal(t, "Shape*", unit.DataType)

	label := members["label"]
	assert.Equal(t, storage.MemberField, label.MemberType)
	assert.Equal(t, 4, label.Ordinal)
	assert.Equal(t, "std::string", label.DataType)
	assert.Equal(t, "public", label.Visibility)

	scale := members["scale"]
	assert.Equal(t, 5, scale.Ordinal)
	assert.Equal(t, "protected", scale.Visibility)
	require.NotNil(t, scale.Method)
	require.Len(t, scale.Method.Parameters, 1)
	assert.Equal(t, storage.Parameter{Name: "factor", Type: "double", DefaultValue: "1.0"}, scale.Method.Parameters[0])

	assert.Equal(t, 6, members["width_"].Ordinal)
	assert.Equal(t, 7, members["height_"].Ordinal)
	assert.Equal(t, "private", members["width_"].Visibility)
	assert.Equal(t, "private", members["height_"].Visibility)
	assert.Equal(t, "double", members["width_"].DataType)
}

func TestCppParser_PureVirtualAndDestructor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.hpp")
	require.NoError(t, result.Err)

	drawable := findEntity(t, result.Entities, "Drawable")
	require.Len(t, drawable.Members, 2)
	members := membersByName(drawable.Members)

	dtor := members["~Drawable"]
	assert.Equal(t, storage.MemberMethod, dtor.MemberType)
	require.NotNil(t, dtor.Method)
	assert.True(t, dtor.Method.IsVirtual)
	assert.False(t, dtor.Method.IsPureVirtual)

	draw := members["draw"]
	require.NotNil(t, draw.Method)
	assert.True(t, draw.Method.IsVirtual)
	assert.True(t, draw.Method.IsConst)
	assert.True(t, draw.Method.IsPureVirtual)
}

func TestCppParser_VisibilityDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.hpp")
	require.NoError(t, result.Err)

	// Struct members default to public without any access specifier.
	point := findEntity(t, result.Entities, "Point")
	require.NotNil(t, point.Class)
	assert.True(t, point.Class.IsStruct)
	require.Len(t, point.Members, 3)
	for _, member := range point.Members {
		assert.Equal(t, "public", member.Visibility, "struct member %s", member.Name)
	}
	members := membersByName(point.Members)
	assert.Equal(t, storage.MemberField, members["x"].MemberType)
	assert.Equal(t, storage.MemberField, members["y"].MemberType)
	assert.Equal(t, storage.MemberMethod, members["norm"].MemberType)

	// Class members before the first access specifier default to private.
	cache := findEntity(t, result.Entities, "Cache")
	require.Len(t, cache.Members, 2)
	byName := membersByName(cache.Members)
	assert.Equal(t, "private", byName["capacity_"].Visibility)
	assert.Equal(t, "public", byName["capacity"].Visibility)
}

func TestCppParser_ParseEnums(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.hpp")
	require.NoError(t, result.Err)

	color := findEntity(t, result.Entities, "Color")
	assert.Equal(t, storage.EntityEnum, color.EntityType)
	assert.Equal(t, "geo", color.Namespace)
	assert.Equal(t, 9, color.LineNumber)
	assert.Equal(t, storage.DeclDefinition, color.DeclType)
	require.NotNil(t, color.Enum)
	assert.True(t, color.Enum.IsEnumClass)
	assert.Equal(t, "uint8_t", color.Enum.UnderlyingType)
	require.Len(t, color.Enum.Values, 3)
	assert.Equal(t, storage.EnumValue{Name: "Red"}, color.Enum.Values[0])
	assert.Equal(t, storage.EnumValue{Name: "Green", Value: "5"}, color.Enum.Values[1])
	assert.Equal(t, storage.EnumValue{Name: "Blue"}, color.Enum.Values[2])

	winding := findEntity(t, result.Entities, "Winding")
	require.NotNil(t, winding.Enum)
	assert.False(t, winding.Enum.IsEnumClass)
	assert.Empty(t, winding.Enum.UnderlyingType)
	require.Len(t, winding.Enum.Values, 2)
	assert.Equal(t, storage.EnumValue{Name: "Clockwise"}, winding.Enum.Values[0])
	assert.Equal(t, storage.EnumValue{Name: "CounterClockwise", Value: "Clockwise + 1"}, winding.Enum.Values[1])
}

func TestCppParser_TemplateClass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.hpp")
	require.NoError(t, result.Err)

	grid := findEntity(t, result.Entities, "Grid")
	assert.Equal(t, storage.EntityClass, grid.EntityType)
	assert.True(t, grid.IsTemplate)
	assert.Equal(t, "<typename T>", grid.TemplateParams)
	assert.Equal(t, storage.DeclDefinition, grid.DeclType)
	assert.Equal(t, 65, grid.LineNumber)

	require.Len(t, grid.Members, 2)
	members := membersByName(grid.Members)
	at := members["at"]
	assert.Equal(t, "T", at.DataType)
	assert.Equal(t, "public", at.Visibility)
	require.NotNil(t, at.Method)
	require.Len(t, at.Method.Parameters, 2)
	assert.Equal(t, storage.Parameter{Name: "row", Type: "int"}, at.Method.Parameters[0])
	cells := members["cells_"]
	assert.Equal(t, "std::vector<T>", cells.DataType)
	assert.Equal(t, "private", cells.Visibility)
}

func TestCppParser_TypedefAndAlias(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.hpp")
	require.NoError(t, result.Err)

	path := findEntity(t, result.Entities, "Path")
	assert.Equal(t, storage.EntityTypedef, path.EntityType)
	assert.Equal(t, 73, path.LineNumber)
	require.NotNil(t, path.Typedef)
	assert.True(t, path.Typedef.IsUsing)
	assert.Equal(t, "std::vector<Point>", path.Typedef.TargetType)

	hash := findEntity(t, result.Entities, "hash_t")
	assert.Equal(t, storage.EntityTypedef, hash.EntityType)
	require.NotNil(t, hash.Typedef)
	assert.False(t, hash.Typedef.IsUsing)
	assert.Equal(t, "unsigned long", hash.Typedef.TargetType)
}

func TestCppParser_ForwardDeclaration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.hpp")
	require.NoError(t, result.Err)

	renderer := findEntity(t, result.Entities, "Renderer")
	assert.Equal(t, storage.EntityClass, renderer.EntityType)
	assert.Equal(t, storage.DeclDeclaration, renderer.DeclType)
	assert.False(t, renderer.IsPrivateImpl)
	assert.Empty(t, renderer.Members)
}

func TestCppParser_ParseFunctions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.cpp")

	require.NoError(t, result.Err)
	require.Len(t, result.Entities, 4)
	for _, entity := range result.Entities {
		assert.Equal(t, storage.EntityFunction, entity.EntityType)
		assert.Equal(t, storage.DeclDefinition, entity.DeclType)
	}

	clamp := findEntity(t, result.Entities, "clamp_positive")
	assert.Equal(t, "geo", clamp.Namespace)
	assert.Equal(t, 7, clamp.LineNumber)
	assert.True(t, clamp.IsPrivateImpl, "static definition in a .cpp")
	require.NotNil(t, clamp.Function)
	assert.Equal(t, "double", clamp.Function.ReturnType)
	require.Len(t, clamp.Function.Parameters, 1)
	assert.Equal(t, storage.Parameter{Name: "value", Type: "double"}, clamp.Function.Parameters[0])

	area := findEntity(t, result.Entities, "area")
	assert.False(t, area.IsPrivateImpl, "non-static functions are part of the public surface")
	require.NotNil(t, area.Function)
	assert.Equal(t, "double", area.Function.ReturnType)
	require.Len(t, area.Function.Parameters, 1)
	assert.Equal(t, storage.Parameter{Name: "shape", Type: "const Shape&"}, area.Function.Parameters[0])

	colors := findEntity(t, result.Entities, "enumerate_colors")
	require.NotNil(t, colors.Function)
	assert.Equal(t, "unsigned int", colors.Function.ReturnType)
	require.Len(t, colors.Function.Parameters, 2)
	assert.Equal(t, storage.Parameter{Name: "out", Type: "Color*"}, colors.Function.Parameters[0])
	assert.Equal(t, storage.Parameter{Name: "max", Type: "unsigned int"}, colors.Function.Parameters[1])

	main := findEntity(t, result.Entities, "main")
	assert.Empty(t, main.Namespace)
	assert.Equal(t, 26, main.LineNumber)
	require.NotNil(t, main.Function)
	require.Len(t, main.Function.Parameters, 2)
	assert.Equal(t, storage.Parameter{Name: "argv", Type: "char**"}, main.Function.Parameters[1])

	// Out-of-line member definitions carry qualified names and are skipped.
	for _, entity := range result.Entities {
		assert.NotEqual(t, "norm", entity.Name)
	}
}

func TestCppParser_FunctionDeclarationInHeader(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.hpp")
	require.NoError(t, result.Err)

	area := findEntity(t, result.Entities, "area")
	assert.Equal(t, storage.EntityFunction, area.EntityType)
	assert.Equal(t, storage.DeclDeclaration, area.DeclType)
	assert.Equal(t, 76, area.LineNumber)
	assert.False(t, area.IsPrivateImpl)
}

func TestCppParser_MissingFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/does_not_exist.cpp")

	require.NotNil(t, result)
	assert.True(t, result.Failed())
	assert.Error(t, result.Err)
	assert.Empty(t, result.Entities)
}

func TestCppParser_KindFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parser := NewCppParser(storage.EntityEnum)

	result := parser.ParseFile(ctx, "../../../testdata/code/cpp/shapes.hpp")
	require.NoError(t, result.Err)

	require.Len(t, result.Entities, 2)
	for _, entity := range result.Entities {
		assert.Equal(t, storage.EntityEnum, entity.EntityType)
	}
}

func TestCppParser_Namespaces(t *testing.T) {
	t.Parallel()

	source := `
namespace app {
namespace detail {
class Impl {};
}
class Outer {};
}
namespace {
class Hidden {};
}
class Global {};
`
	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseSource(ctx, "scopes.hpp", []byte(source))
	require.NoError(t, result.Err)
	require.Len(t, result.Entities, 4)

	assert.Equal(t, "app::detail", findEntity(t, result.Entities, "Impl").Namespace)
	assert.Equal(t, "app", findEntity(t, result.Entities, "Outer").Namespace)
	assert.Empty(t, findEntity(t, result.Entities, "Hidden").Namespace, "anonymous namespaces contribute no path segment")
	assert.Empty(t, findEntity(t, result.Entities, "Global").Namespace)
}

func TestCppParser_BaseClauseCarryAndReset(t *testing.T) {
	t.Parallel()

	source := `
class Multi : A, public B, virtual C, public virtual D {};
class Holder : public Container<int> {};
`
	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseSource(ctx, "bases.hpp", []byte(source))
	require.NoError(t, result.Err)

	multi := findEntity(t, result.Entities, "Multi")
	require.NotNil(t, multi.Class)
	require.Len(t, multi.Class.BaseClasses, 4)
	assert.Equal(t, storage.BaseClass{Name: "A", Access: "private"}, multi.Class.BaseClasses[0])
	assert.Equal(t, storage.BaseClass{Name: "B", Access: "public"}, multi.Class.BaseClasses[1])
	assert.Equal(t, storage.BaseClass{Name: "C", Access: "private", IsVirtual: true}, multi.Class.BaseClasses[2])
	assert.Equal(t, storage.BaseClass{Name: "D", Access: "public", IsVirtual: true}, multi.Class.BaseClasses[3])

	holder := findEntity(t, result.Entities, "Holder")
	require.NotNil(t, holder.Class)
	require.Len(t, holder.Class.BaseClasses, 1)
	assert.Equal(t, "Container", holder.Class.BaseClasses[0].Name, "template arguments are stripped from base names")
}

func TestCppParser_PureVirtualNotConfusedByDefaultArg(t *testing.T) {
	t.Parallel()

	source := `
class Widget {
  public:
    virtual void redraw() = 0;
    virtual void resize(int w = 0);
    void normal();
};
`
	ctx := context.Background()
	parser := NewCppParser()

	result := parser.ParseSource(ctx, "widget.hpp", []byte(source))
	require.NoError(t, result.Err)

	widget := findEntity(t, result.Entities, "Widget")
	require.Len(t, widget.Members, 3)
	members := membersByName(widget.Members)

	require.NotNil(t, members["redraw"].Method)
	assert.True(t, members["redraw"].Method.IsPureVirtual)

	resize := members["resize"]
	require.NotNil(t, resize.Method)
	assert.True(t, resize.Method.IsVirtual)
	assert.False(t, resize.Method.IsPureVirtual, "a default argument of 0 is not a pure-virtual marker")
	require.Len(t, resize.Method.Parameters, 1)
	assert.Equal(t, storage.Parameter{Name: "w", Type: "int", DefaultValue: "0"}, resize.Method.Parameters[0])

	require.NotNil(t, members["normal"].Method)
	assert.False(t, members["normal"].Method.IsVirtual)
	assert.False(t, members["normal"].Method.IsPureVirtual)
}

func TestCppParser_PrivateImplByExtension(t *testing.T) {
	t.Parallel()

	source := `
class Engine {
    int rpm_;
};
class Later;
`
	ctx := context.Background()
	parser := NewCppParser()

	asImpl := parser.ParseSource(ctx, "engine.cpp", []byte(source))
	require.NoError(t, asImpl.Err)
	assert.True(t, findEntity(t, asImpl.Entities, "Engine").IsPrivateImpl)
	assert.False(t, findEntity(t, asImpl.Entities, "Later").IsPrivateImpl, "no body, no private impl")

	asHeader := parser.ParseSource(ctx, "engine.hpp", []byte(source))
	require.NoError(t, asHeader.Err)
	assert.False(t, findEntity(t, asHeader.Entities, "Engine").IsPrivateImpl)
}

func TestParseParameterText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want storage.Parameter
	}{
		{"int x", storage.Parameter{Name: "x", Type: "int"}},
		{"int* x", storage.Parameter{Name: "x", Type: "int*"}},
		{"int *x", storage.Parameter{Name: "x", Type: "int *"}},
		{"unsigned int n", storage.Parameter{Name: "n", Type: "unsigned int"}},
		{"const Shape& shape", storage.Parameter{Name: "shape", Type: "const Shape&"}},
		{"const T&", storage.Parameter{Type: "const T&"}},
		{"std::vector<int> items", storage.Parameter{Name: "items", Type: "std::vector<int>"}},
		{"char** argv", storage.Parameter{Name: "argv", Type: "char**"}},
		{"double factor = 1.0", storage.Parameter{Name: "factor", Type: "double", DefaultValue: "1.0"}},
		{"int", storage.Parameter{Type: "int"}},
		{"...", storage.Parameter{Type: "..."}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseParameterText(tt.text))
		})
	}
}

// findEntity returns the first entity with the given name, failing the test
// when none exists.
func findEntity(t *testing.T, entities []*storage.Entity, name string) *storage.Entity {
	t.Helper()
	for _, entity := range entities {
		if entity.Name == name {
			return entity
		}
	}
	require.Failf(t, "entity not found", "no entity named %q among %d entities", name, len(entities))
	return nil
}

func membersByName(members []storage.Member) map[string]storage.Member {
	byName := make(map[string]storage.Member, len(members))
	for _, member := range members {
		byName[member.Name] = member
	}
	return byName
}
