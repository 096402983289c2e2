package parsers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
	cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// CppParser extracts C++ declarations from source files. It recognizes
// classes and structs (plain and template), enums, free functions, and
// typedef/using aliases, producing storage entities ready for insertion.
type CppParser struct {
	*treeSitterParser
	kinds map[string]bool // nil means every entity kind
}

// NewCppParser creates a parser for C++ source files. With no arguments
// every entity kind is extracted; passing storage.EntityClass and friends
// restricts extraction to those kinds.
func NewCppParser(kinds ...string) *CppParser {
	p := &CppParser{
		treeSitterParser: newTreeSitterParser(sitter.NewLanguage(cpp.Language()), "cpp"),
	}
	if len(kinds) > 0 {
		p.kinds = make(map[string]bool, len(kinds))
		for _, kind := range kinds {
			p.kinds[kind] = true
		}
	}
	return p
}

// Extensions returns the file extensions this parser handles.
func (p *CppParser) Extensions() []string {
	return []string{".cpp", ".cc", ".cxx", ".hpp", ".h", ".hh"}
}

func (p *CppParser) wants(kind string) bool {
	return p.kinds == nil || p.kinds[kind]
}

// ParseFile reads and parses a single C++ file. Read and parse failures are
// folded into the Result rather than returned, so one broken file never
// aborts a directory scan.
func (p *CppParser) ParseFile(ctx context.Context, filePath string) *Result {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return &Result{FilePath: filePath, Err: fmt.Errorf("read %s: %w", filePath, err)}
	}
	return p.ParseSource(ctx, filePath, source)
}

// ParseSource parses C++ source held in memory. filePath is recorded on
// every extracted entity but is not touched on disk, so callers that
// already read the file (the builder hashes content before parsing) can
// pass the path they want stored.
func (p *CppParser) ParseSource(_ context.Context, filePath string, source []byte) *Result {
	tree, err := p.parseTree(source)
	if err != nil {
		return &Result{FilePath: filePath, Err: err}
	}
	defer tree.Close()

	ext := &cppExtractor{
		source:   source,
		filePath: filePath,
		isImpl:   isTranslationUnit(filePath),
		wants:    p.wants,
	}
	ext.walk(tree.RootNode())

	return &Result{FilePath: filePath, Entities: ext.entities}
}

// translationUnitExts marks implementation files as opposed to headers.
var translationUnitExts = map[string]bool{
	".cpp": true,
	".cc":  true,
	".cxx": true,
}

func isTranslationUnit(filePath string) bool {
	return translationUnitExts[strings.ToLower(filepath.Ext(filePath))]
}

// cppExtractor carries per-file state for one extraction pass.
type cppExtractor struct {
	source   []byte
	filePath string
	isImpl   bool // file extension denotes a translation unit
	wants    func(string) bool
	entities []*storage.Entity
}

// walk dispatches on declaration nodes. Class, struct, enum, and typedef
// nodes stop descent so their interiors are only visited by the member
// sub-parser; everything else is walked through, which keeps declarations
// inside namespaces, extern "C" blocks, and preprocessor branches visible.
func (e *cppExtractor) walk(root *sitter.Node) {
	walkTree(root, func(node *sitter.Node) bool {
		switch node.Kind() {
		case "template_declaration":
			return !e.extractTemplate(node)
		case "class_specifier":
			e.extractClass(node, false, nil)
			return false
		case "struct_specifier":
			e.extractClass(node, true, nil)
			return false
		case "enum_specifier":
			e.extractEnum(node)
			return false
		case "type_definition":
			e.extractTypedef(node)
			return false
		case "alias_declaration":
			e.extractAlias(node)
			return false
		case "function_declarator":
			e.extractFunction(node)
			return false
		}
		return true
	})
}

// extractTemplate handles template-wrapped class and struct declarations,
// reporting true when it consumed the node so the walk does not extract the
// inner specifier a second time. Template functions and alias templates
// report false and fall through to the regular cases.
func (e *cppExtractor) extractTemplate(node *sitter.Node) bool {
	params := node.ChildByFieldName("parameters")

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		switch child.Kind() {
		case "class_specifier":
			e.extractClass(child, false, params)
			return true
		case "struct_specifier":
			e.extractClass(child, true, params)
			return true
		case "declaration":
			// Forward declaration form: template <...> class X;
			if inner := findChildByType(child, "class_specifier"); inner != nil {
				e.extractClass(inner, false, params)
				return true
			}
			if inner := findChildByType(child, "struct_specifier"); inner != nil {
				e.extractClass(inner, true, params)
				return true
			}
		}
	}
	return false
}

// extractClass records a class or struct entity. templateParams is the
// template-parameter-list node when the specifier sits under a template
// declaration, nil otherwise.
func (e *cppExtractor) extractClass(node *sitter.Node, isStruct bool, templateParams *sitter.Node) {
	if !e.wants(storage.EntityClass) {
		return
	}

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return // anonymous
	}
	body := node.ChildByFieldName("body")

	entity := &storage.Entity{
		Name:       extractNodeText(nameNode, e.source),
		EntityType: storage.EntityClass,
		Namespace:  namespaceFor(node, e.source),
		FilePath:   e.filePath,
		LineNumber: int(node.StartPosition().Row) + 1,
		DeclType:   storage.DeclDeclaration,
		Class:      &storage.ClassData{IsStruct: isStruct},
	}
	if body != nil {
		entity.DeclType = storage.DeclDefinition
		entity.IsPrivateImpl = e.isImpl
	}
	if templateParams != nil {
		entity.IsTemplate = true
		entity.TemplateParams = extractNodeText(templateParams, e.source)
		entity.DeclType = storage.DeclDefinition
	}

	if clause := findChildByType(node, "base_class_clause"); clause != nil {
		entity.Class.BaseClasses = e.parseBaseClause(clause)
	}
	if body != nil {
		defaultAccess := storage.AccessPrivate
		if isStruct {
			defaultAccess = storage.AccessPublic
		}
		entity.Members = e.parseMembers(body, defaultAccess)
	}

	e.entities = append(e.entities, entity)
}

// extractEnum records an enum entity, covering both plain and scoped enums.
func (e *cppExtractor) extractEnum(node *sitter.Node) {
	if !e.wants(storage.EntityEnum) {
		return
	}

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return // anonymous
	}
	body := node.ChildByFieldName("body")

	text := extractNodeText(node, e.source)
	data := &storage.EnumData{
		IsEnumClass:    strings.HasPrefix(text, "enum class") || strings.HasPrefix(text, "enum struct"),
		UnderlyingType: e.enumUnderlyingType(node),
	}
	if body != nil {
		data.Values = e.parseEnumeratorList(body)
	}

	entity := &storage.Entity{
		Name:       extractNodeText(nameNode, e.source),
		EntityType: storage.EntityEnum,
		Namespace:  namespaceFor(node, e.source),
		FilePath:   e.filePath,
		LineNumber: int(node.StartPosition().Row) + 1,
		DeclType:   storage.DeclDeclaration,
		Enum:       data,
	}
	if body != nil {
		entity.DeclType = storage.DeclDefinition
		entity.IsPrivateImpl = e.isImpl
	}

	e.entities = append(e.entities, entity)
}

// enumUnderlyingType reads the type following ":" in an enum header, e.g.
// "uint8_t" in "enum class Color : uint8_t". Empty when none is declared.
func (e *cppExtractor) enumUnderlyingType(node *sitter.Node) string {
	sawColon := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		switch {
		case child.Kind() == ":":
			sawColon = true
		case child.Kind() == "enumerator_list":
			return ""
		case sawColon:
			return extractNodeText(child, e.source)
		}
	}
	return ""
}

// parseEnumeratorList reads enum values in declaration order. Value carries
// the verbatim right-hand side when an "=" initializer is present.
func (e *cppExtractor) parseEnumeratorList(body *sitter.Node) []storage.EnumValue {
	var values []storage.EnumValue
	for _, enumerator := range findChildrenByType(body, "enumerator") {
		nameNode := enumerator.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		value := storage.EnumValue{Name: extractNodeText(nameNode, e.source)}
		if valueNode := enumerator.ChildByFieldName("value"); valueNode != nil {
			value.Value = extractNodeText(valueNode, e.source)
		}
		values = append(values, value)
	}
	return values
}

// extractTypedef records a typedef entity from a type_definition node.
func (e *cppExtractor) extractTypedef(node *sitter.Node) {
	if !e.wants(storage.EntityTypedef) {
		return
	}

	name := declaratorName(node.ChildByFieldName("declarator"), e.source)
	if name == "" {
		return
	}

	target := extractNodeText(node.ChildByFieldName("type"), e.source)
	if markers := typeMarkers(node); markers != "" {
		target += markers
	}

	e.entities = append(e.entities, &storage.Entity{
		Name:       name,
		EntityType: storage.EntityTypedef,
		Namespace:  namespaceFor(node, e.source),
		FilePath:   e.filePath,
		LineNumber: int(node.StartPosition().Row) + 1,
		DeclType:   storage.DeclDeclaration,
		Typedef:    &storage.TypedefData{TargetType: target},
	})
}

// extractAlias records a using-alias entity from an alias_declaration node.
func (e *cppExtractor) extractAlias(node *sitter.Node) {
	if !e.wants(storage.EntityTypedef) {
		return
	}

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	e.entities = append(e.entities, &storage.Entity{
		Name:       extractNodeText(nameNode, e.source),
		EntityType: storage.EntityTypedef,
		Namespace:  namespaceFor(node, e.source),
		FilePath:   e.filePath,
		LineNumber: int(node.StartPosition().Row) + 1,
		DeclType:   storage.DeclDeclaration,
		Typedef: &storage.TypedefData{
			TargetType: extractNodeText(node.ChildByFieldName("type"), e.source),
			IsUsing:    true,
		},
	})
}

// extractFunction records a free function from a function_declarator node.
// Method declarators never reach here because the walk does not descend
// into class bodies; out-of-line member definitions and operator overloads
// carry qualified or operator names rather than a bare identifier and are
// skipped, as are declarators nested inside function bodies.
func (e *cppExtractor) extractFunction(declarator *sitter.Node) {
	if !e.wants(storage.EntityFunction) {
		return
	}

	nameNode := declarator.ChildByFieldName("declarator")
	if nameNode == nil || nameNode.Kind() != "identifier" {
		return
	}
	if declarator.ChildByFieldName("parameters") == nil {
		return
	}

	owner := declarationOwner(declarator)
	if owner == nil || !isFileScope(owner) {
		return
	}

	entity := &storage.Entity{
		Name:       extractNodeText(nameNode, e.source),
		EntityType: storage.EntityFunction,
		Namespace:  namespaceFor(declarator, e.source),
		FilePath:   e.filePath,
		LineNumber: int(owner.StartPosition().Row) + 1,
		DeclType:   storage.DeclDeclaration,
		Function: &storage.FunctionData{
			ReturnType: e.declaredType(owner),
			Parameters: e.parseParameterList(declarator.ChildByFieldName("parameters")),
		},
	}
	if owner.Kind() == "function_definition" {
		entity.DeclType = storage.DeclDefinition
		entity.IsPrivateImpl = e.isImpl && strings.HasPrefix(extractNodeText(owner, e.source), "static")
	}

	e.entities = append(e.entities, entity)
}

// parseMembers walks a class or struct body in declaration order,
// maintaining the running access level set by access-specifier children.
// Ordinals record traversal order across fields and methods together.
func (e *cppExtractor) parseMembers(body *sitter.Node, defaultAccess string) []storage.Member {
	var members []storage.Member

	access := defaultAccess
	ordinal := 0
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(uint(i))
		switch child.Kind() {
		case "access_specifier":
			text := strings.TrimSpace(extractNodeText(child, e.source))
			access = strings.TrimSpace(strings.TrimSuffix(text, ":"))
		case "field_declaration", "declaration", "function_definition":
			member := e.parseMember(child, access)
			if member != nil {
				member.Ordinal = ordinal
				ordinal++
				members = append(members, *member)
			}
		}
	}
	return members
}

// parseMember classifies one body child as a method (anything carrying a
// function declarator, including constructor and destructor declarations)
// or a field (a named data member). Children that are neither, such as
// nested types or friend declarations, yield nil.
func (e *cppExtractor) parseMember(node *sitter.Node, access string) *storage.Member {
	if declarator := findFunctionDeclarator(node); declarator != nil {
		return e.parseMethod(node, declarator, access)
	}
	return e.parseField(node, access)
}

// parseField extracts a data member.
func (e *cppExtractor) parseField(node *sitter.Node, access string) *storage.Member {
	name := declaratorName(node.ChildByFieldName("declarator"), e.source)
	if name == "" {
		return nil
	}

	dataType := e.declaredType(node)
	if markers := typeMarkers(node); markers != "" {
		dataType += markers
	}

	return &storage.Member{
		MemberType: storage.MemberField,
		Name:       name,
		DataType:   dataType,
		Visibility: access,
		IsStatic:   hasStorageClass(node, "static", e.source),
	}
}

// parseMethod extracts a method member. Constructors and destructors come
// through with an empty data type since they declare no return type.
func (e *cppExtractor) parseMethod(node, declarator *sitter.Node, access string) *storage.Member {
	name := declaratorName(declarator.ChildByFieldName("declarator"), e.source)
	if name == "" {
		return nil
	}

	dataType := e.declaredType(node)
	if markers := typeMarkers(node); markers != "" {
		dataType += markers
	}

	method := &storage.MethodData{
		Parameters: e.parseParameterList(declarator.ChildByFieldName("parameters")),
		IsConst:    hasTrailingConst(declarator, e.source),
		IsVirtual:  isVirtualMember(node),
	}
	if node.Kind() != "function_definition" {
		// "= 0" after the parameter list marks a pure virtual declaration.
		// Looking only past the declarator keeps "void f(int x = 0)" clean.
		suffix := string(e.source[declarator.EndByte():node.EndByte()])
		method.IsPureVirtual = strings.Contains(strings.ReplaceAll(suffix, " ", ""), "=0")
	}

	return &storage.Member{
		MemberType: storage.MemberMethod,
		Name:       name,
		DataType:   dataType,
		Visibility: access,
		IsStatic:   hasStorageClass(node, "static", e.source),
		Method:     method,
	}
}

// parseBaseClause walks an inheritance clause left to right. Access and
// virtual carry forward from the most recent specifier to the next base
// name, then reset to the C++ class defaults after each base.
func (e *cppExtractor) parseBaseClause(clause *sitter.Node) []storage.BaseClass {
	var bases []storage.BaseClass

	access := storage.AccessPrivate
	virtual := false
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(uint(i))
		switch child.Kind() {
		case "access_specifier":
			access = strings.TrimSpace(strings.TrimSuffix(extractNodeText(child, e.source), ":"))
		case "virtual", "virtual_specifier":
			virtual = true
		case "type_identifier", "qualified_identifier", "template_type":
			bases = append(bases, storage.BaseClass{
				Name:      stripTemplateArgs(extractNodeText(child, e.source)),
				Access:    access,
				IsVirtual: virtual,
			})
			access = storage.AccessPrivate
			virtual = false
		}
	}
	return bases
}

// parseParameterList applies the textual parameter rule to every entry of a
// parameter_list node.
func (e *cppExtractor) parseParameterList(list *sitter.Node) []storage.Parameter {
	if list == nil {
		return nil
	}

	var params []storage.Parameter
	for i := 0; i < int(list.ChildCount()); i++ {
		child := list.Child(uint(i))
		switch child.Kind() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			params = append(params, parseParameterText(extractNodeText(child, e.source)))
		}
	}
	return params
}

// parseParameterText splits one parameter's source text into type, name,
// and default value. The last whitespace token is taken as the name only
// when it is a bare identifier once pointer and reference markers glued to
// it are peeled off; otherwise the whole text is an unnamed type.
func parseParameterText(text string) storage.Parameter {
	text = strings.TrimSpace(text)

	var param storage.Parameter
	if idx := strings.Index(text, "="); idx >= 0 {
		param.DefaultValue = strings.TrimSpace(text[idx+1:])
		text = strings.TrimSpace(text[:idx])
	}

	fields := strings.Fields(text)
	if len(fields) < 2 {
		param.Type = text
		return param
	}

	name := strings.TrimLeft(fields[len(fields)-1], "*&")
	if !isIdentifier(name) {
		param.Type = text
		return param
	}

	param.Name = name
	param.Type = strings.TrimSpace(strings.TrimSuffix(text, name))
	return param
}

// declaredType joins the type-specifier children of a declaration with
// spaces, covering multi-token specifiers such as "unsigned int" and
// leading qualifiers such as "const". Storage class keywords and the
// declarator itself are not type specifiers and do not contribute.
func (e *cppExtractor) declaredType(node *sitter.Node) string {
	var parts []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if typeSpecifierKinds[child.Kind()] {
			parts = append(parts, extractNodeText(child, e.source))
		}
	}
	return strings.Join(parts, " ")
}

var typeSpecifierKinds = map[string]bool{
	"primitive_type":       true,
	"sized_type_specifier": true,
	"type_identifier":      true,
	"qualified_identifier": true,
	"template_type":        true,
	"type_qualifier":       true,
	"class_specifier":      true,
	"struct_specifier":     true,
	"enum_specifier":       true,
}

// namespaceFor walks the ancestors of a node collecting enclosing namespace
// names, innermost last, joined with "::". Anonymous namespaces contribute
// nothing. Returns the empty string at global scope.
func namespaceFor(node *sitter.Node, source []byte) string {
	var parts []string
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if parent.Kind() != "namespace_definition" {
			continue
		}
		nameNode := parent.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		parts = append([]string{extractNodeText(nameNode, source)}, parts...)
	}
	return strings.Join(parts, "::")
}

// isFileScope reports whether a declaration sits at translation-unit or
// namespace scope rather than inside a function body or class body.
func isFileScope(node *sitter.Node) bool {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		switch parent.Kind() {
		case "function_definition", "compound_statement", "field_declaration_list":
			return false
		case "translation_unit":
			return true
		}
	}
	return true
}

// declarationOwner climbs from a function declarator, through any pointer
// or reference wrappers, to the declaration or function_definition node
// carrying its type specifiers. Returns nil for declarators that belong to
// something else entirely, such as function-pointer types.
func declarationOwner(node *sitter.Node) *sitter.Node {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		switch parent.Kind() {
		case "declaration", "function_definition":
			return parent
		case "pointer_declarator", "reference_declarator":
			// climb through the wrapper
		default:
			return nil
		}
	}
	return nil
}

// declaratorName digs through pointer, reference, array, and function
// declarators to the declared name. Parameter lists are skipped so
// parameter names are never mistaken for the declared name.
func declaratorName(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "identifier", "field_identifier", "type_identifier", "destructor_name", "operator_name":
		return extractNodeText(node, source)
	case "parameter_list":
		return ""
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if name := declaratorName(node.Child(uint(i)), source); name != "" {
			return name
		}
	}
	return ""
}

// findFunctionDeclarator finds the first function_declarator in a subtree.
func findFunctionDeclarator(node *sitter.Node) *sitter.Node {
	var result *sitter.Node
	walkTree(node, func(n *sitter.Node) bool {
		if result != nil {
			return false
		}
		if n.Kind() == "function_declarator" {
			result = n
			return false
		}
		return true
	})
	return result
}

// typeMarkers collects the pointer and reference markers wrapped around a
// declared name, e.g. "*" for "Shape* unit()" or "double* data_".
func typeMarkers(node *sitter.Node) string {
	markers := ""
	current := node
	for current != nil {
		var next *sitter.Node
		for i := 0; i < int(current.ChildCount()); i++ {
			child := current.Child(uint(i))
			switch child.Kind() {
			case "pointer_declarator":
				markers += "*"
				next = child
			case "reference_declarator":
				markers += "&"
				next = child
			}
			if next != nil {
				break
			}
		}
		current = next
	}
	return markers
}

// hasStorageClass reports whether a declaration carries the given storage
// class keyword, such as "static".
func hasStorageClass(node *sitter.Node, keyword string, source []byte) bool {
	for _, child := range findChildrenByType(node, "storage_class_specifier") {
		if extractNodeText(child, source) == keyword {
			return true
		}
	}
	return false
}

// hasTrailingConst reports a const qualifier on the function declarator
// itself, i.e. after the parameter list.
func hasTrailingConst(declarator *sitter.Node, source []byte) bool {
	for _, qualifier := range findChildrenByType(declarator, "type_qualifier") {
		if extractNodeText(qualifier, source) == "const" {
			return true
		}
	}
	return false
}

// isVirtualMember reports a leading virtual keyword on a member
// declaration. Both node spellings used across grammar versions are
// checked; override and final produce a different kind and do not match.
func isVirtualMember(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		switch node.Child(uint(i)).Kind() {
		case "virtual", "virtual_function_specifier":
			return true
		}
	}
	return false
}

// stripTemplateArgs removes a trailing template-argument list from a type
// name, so "Container<T>" links against "Container".
func stripTemplateArgs(name string) string {
	if i := strings.Index(name, "<"); i >= 0 {
		return name[:i]
	}
	return name
}

// isIdentifier reports whether s is a bare C++ identifier.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
