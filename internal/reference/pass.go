package reference

import (
	"slices"
	"strings"

	"github.com/shopware/phpsymbols/internal/phpdoc"
	"github.com/shopware/phpsymbols/internal/symbol"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
	"github.com/shopware/phpsymbols/internal/typestring"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// pass runs the reference pass over one file. Scope-opening declarations are
// taken from the file's symbol table in the order the declaration pass
// created them.
type pass struct {
	content   []byte
	uri       string
	uriHash   uint64
	store     *symbol.Store
	queue     []*symbol.Symbol
	resolver  *symbol.NameResolver
	variables *VariableTable

	scopes      []*Scope
	classScopes []*Scope
	// namespaceScope is the scope of the unbraced namespace in effect
	namespaceScope *Scope
}

// referenceHandler reads one construct and returns the type of the value it
// evaluates to, or "".
type referenceHandler func(p *pass, node *tree_sitter.Node) string

var referenceHandlers map[string]referenceHandler

func init() {
	referenceHandlers = map[string]referenceHandler{
		// declarations
		"namespace_definition":                   (*pass).readNamespace,
		"namespace_use_declaration":              (*pass).readUseDeclaration,
		"class_declaration":                      (*pass).readClassLike,
		"interface_declaration":                  (*pass).readClassLike,
		"trait_declaration":                      (*pass).readClassLike,
		"enum_declaration":                       (*pass).readClassLike,
		"anonymous_class":                        (*pass).readAnonymousClass,
		"base_clause":                            (*pass).readClassNames,
		"class_interface_clause":                 (*pass).readClassNames,
		"function_definition":                    (*pass).readFunction,
		"method_declaration":                     (*pass).readMethod,
		"anonymous_function":                     (*pass).readClosure,
		"anonymous_function_creation_expression": (*pass).readClosure,
		"arrow_function":                         (*pass).readClosure,
		"property_declaration":                   (*pass).readProperty,
		"const_declaration":                      (*pass).readConst,
		"enum_case":                              (*pass).readEnumCase,
		"use_declaration":                        (*pass).readTraitUse,
		"named_type":                             (*pass).readNamedType,
		"attribute":                              (*pass).readAttribute,

		// expressions
		"variable_name":                      (*pass).readVariable,
		"assignment_expression":              (*pass).readAssignment,
		"reference_assignment_expression":    (*pass).readAssignment,
		"augmented_assignment_expression":    (*pass).readAugmentedAssignment,
		"member_call_expression":             (*pass).readMemberCall,
		"nullsafe_member_call_expression":    (*pass).readMemberCall,
		"member_access_expression":           (*pass).readMemberAccess,
		"nullsafe_member_access_expression":  (*pass).readMemberAccess,
		"scoped_call_expression":             (*pass).readScopedCall,
		"scoped_property_access_expression":  (*pass).readScopedPropertyAccess,
		"class_constant_access_expression":   (*pass).readClassConstantAccess,
		"object_creation_expression":         (*pass).readObjectCreation,
		"function_call_expression":           (*pass).readFunctionCall,
		"name":                               (*pass).readConstantName,
		"qualified_name":                     (*pass).readConstantName,
		"argument":                           (*pass).readArgument,
		"binary_expression":                  (*pass).readBinary,
		"conditional_expression":             (*pass).readConditional,
		"parenthesized_expression":           (*pass).readParenthesized,
		"array_creation_expression":          (*pass).readArrayCreation,
		"subscript_expression":               (*pass).readSubscript,
		"clone_expression":                   (*pass).readParenthesized,
		"cast_expression":                    (*pass).readCast,
		"unary_op_expression":                (*pass).readUnary,
		"match_expression":                   (*pass).readMatch,
		"encapsed_string":                    (*pass).readString,
		"heredoc":                            (*pass).readString,

		// statements
		"foreach_statement":     (*pass).readForeach,
		"if_statement":          (*pass).readIf,
		"while_statement":       (*pass).readLoop,
		"do_statement":          (*pass).readLoop,
		"for_statement":         (*pass).readLoop,
		"switch_statement":      (*pass).readSwitch,
		"try_statement":         (*pass).readTry,
		"catch_clause":          (*pass).readCatch,
		"named_label_statement": skip,
		"goto_statement":        skip,
	}
}

func skip(*pass, *tree_sitter.Node) string {
	return ""
}

// Read runs the reference pass over the syntax tree of a file whose symbol
// table is table. Member and call types are looked up in store, which should
// already hold table.
func Read(table *symbol.Table, content []byte, root *tree_sitter.Node, store *symbol.Store) *Table {
	uriHash := symbol.HashURI(table.URI)
	rootScope := &Scope{Location: symbol.Location{URIHash: uriHash, Range: treesitterhelper.NodeRange(root)}}

	p := &pass{
		content:   content,
		uri:       table.URI,
		uriHash:   uriHash,
		store:     store,
		queue:     table.ScopeSymbols(),
		resolver:  symbol.NewNameResolver(),
		variables: NewVariableTable(),
		scopes:    []*Scope{rootScope},
	}

	p.evalChildren(root)
	p.closeNamespace()

	return &Table{URI: table.URI, Root: rootScope}
}

func (p *pass) eval(node *tree_sitter.Node) string {
	if treesitterhelper.IsMalformed(node) {
		return ""
	}

	if handler, ok := referenceHandlers[node.Kind()]; ok {
		return handler(p, node)
	}

	p.evalChildren(node)
	return symbol.LiteralType(node)
}

func (p *pass) evalChildren(node *tree_sitter.Node) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		p.eval(node.NamedChild(uint(i)))
	}
}

func (p *pass) text(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(p.content)
}

func (p *pass) location(node *tree_sitter.Node) symbol.Location {
	return symbol.Location{URIHash: p.uriHash, Range: treesitterhelper.NodeRange(node)}
}

func (p *pass) symbolLocation(sym *symbol.Symbol, node *tree_sitter.Node) symbol.Location {
	if sym != nil && sym.Location != nil {
		return *sym.Location
	}
	return p.location(node)
}

func (p *pass) scope() *Scope {
	return p.scopes[len(p.scopes)-1]
}

func (p *pass) pushScope(loc symbol.Location) {
	scope := &Scope{Location: loc}
	p.scope().addScope(scope)
	p.scopes = append(p.scopes, scope)
}

func (p *pass) popScope() {
	if len(p.scopes) > 1 {
		p.scopes = p.scopes[:len(p.scopes)-1]
	}
}

func (p *pass) add(ref *symbol.Reference) *symbol.Reference {
	p.scope().addReference(ref)
	return ref
}

// addTyped adds ref with the type of the symbols it resolves to.
func (p *pass) addTyped(ref *symbol.Reference) string {
	ref.Type = p.store.ReferenceToTypeString(ref)
	p.add(ref)
	return ref.Type
}

// shift takes the declaration created for node off the queue. Declarations
// the declaration pass skipped are not in the queue and yield nil.
func (p *pass) shift(node *tree_sitter.Node, kinds ...symbol.Kind) *symbol.Symbol {
	start := treesitterhelper.NodeRange(node).Start

	for i, sym := range p.queue {
		if sym.Location == nil || sym.Location.Range.Start != start || !slices.Contains(kinds, sym.Kind) {
			continue
		}
		p.queue = p.queue[i+1:]
		return sym
	}

	return nil
}

// branch reads a conditional or loop body in its own scope and branch frame.
func (p *pass) branch(node *tree_sitter.Node, narrowed map[string]string, read func()) {
	p.variables.PushBranch()
	p.variables.SetVariables(narrowed)
	p.pushScope(p.location(node))

	read()

	p.popScope()
	p.variables.PopBranch()
}

// memberScope keeps only the class-like atoms of an object type.
func memberScope(t string) string {
	return strings.Join(typestring.AtomicClassArray(t), "|")
}

func withoutNull(t string) string {
	var atoms []string
	for _, atom := range typestring.Atoms(t) {
		if !strings.EqualFold(atom, "null") {
			atoms = append(atoms, atom)
		}
	}
	return strings.Join(atoms, "|")
}

func (p *pass) closeNamespace() {
	if p.namespaceScope == nil {
		return
	}

	for len(p.scopes) > 1 {
		top := p.scope()
		p.popScope()
		if top == p.namespaceScope {
			break
		}
	}

	p.namespaceScope = nil
	p.resolver.SetNamespace("")
}

func (p *pass) readNamespace(node *tree_sitter.Node) string {
	p.closeNamespace()

	sym := p.shift(node, symbol.KindNamespace)
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = treesitterhelper.GetFirstNodeOfKind(node, "namespace_name")
	}
	name := strings.Trim(p.text(nameNode), "\\")

	p.resolver.SetNamespace(name)
	p.pushScope(p.symbolLocation(sym, node))
	if name != "" {
		p.add(&symbol.Reference{Kind: symbol.KindNamespace, Name: name, Location: p.location(nameNode)})
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		body = treesitterhelper.GetFirstNodeOfKind(node, "compound_statement")
	}
	if body == nil {
		p.namespaceScope = p.scope()
		return ""
	}

	p.evalChildren(body)
	p.popScope()
	p.resolver.SetNamespace("")
	return ""
}

func (p *pass) readUseDeclaration(node *tree_sitter.Node) string {
	for _, rule := range symbol.UseRules(node, p.content, p.uriHash) {
		p.resolver.AddRule(rule)

		target := rule.Associated[0]
		p.add(&symbol.Reference{Kind: target.Kind, Name: target.Name, Location: *rule.Location})
	}
	return ""
}

// addClassReference resolves a written class name and references it. self,
// static and parent resolve to the enclosing classes without a reference.
func (p *pass) addClassReference(node *tree_sitter.Node) string {
	text := p.text(node)

	switch strings.ToLower(text) {
	case "self", "static", "parent":
		return p.resolver.ResolveNotFullyQualified(text, symbol.KindClass, true)
	}
	if typestring.IsKeyword(text) {
		return strings.ToLower(text)
	}

	name := p.resolver.Resolve(text, symbol.KindClass)
	p.add(&symbol.Reference{Kind: symbol.KindClass, Name: name, Location: p.location(node)})
	return name
}

func (p *pass) readClassNames(node *tree_sitter.Node) string {
	for _, name := range treesitterhelper.GetNamedChildrenOfKind(node, "name", "qualified_name", "relative_name") {
		p.addClassReference(name)
	}
	return ""
}

func (p *pass) readClassLike(node *tree_sitter.Node) string {
	kind := symbol.ClassLikeKind(node)
	sym := p.shift(node, kind)
	nameNode := node.ChildByFieldName("name")
	if sym == nil || treesitterhelper.IsMalformed(nameNode) {
		return ""
	}

	p.add(&symbol.Reference{Kind: kind, Name: sym.Name, Location: p.location(nameNode)})
	p.readClassBody(node, sym)
	return ""
}

func (p *pass) readClassBody(node *tree_sitter.Node, class *symbol.Symbol) {
	for _, header := range treesitterhelper.GetNamedChildrenOfKind(node, "attribute_list", "base_clause", "class_interface_clause") {
		p.eval(header)
	}

	p.resolver.PushClass(class)
	p.pushScope(p.symbolLocation(class, node))
	p.classScopes = append(p.classScopes, p.scope())

	body := node.ChildByFieldName("body")
	if body == nil {
		body = treesitterhelper.GetFirstNodeOfKind(node, "declaration_list")
	}
	p.evalChildren(body)

	p.classScopes = p.classScopes[:len(p.classScopes)-1]
	p.popScope()
	p.resolver.PopClass()
}

// inClassBody reports whether the current scope is a class-like body.
func (p *pass) inClassBody() bool {
	return len(p.classScopes) > 0 && p.classScopes[len(p.classScopes)-1] == p.scope()
}

func (p *pass) readAnonymousClass(node *tree_sitter.Node) string {
	p.eval(treesitterhelper.GetFirstNodeOfKind(node, "arguments"))

	class := p.shift(node, symbol.KindClass)
	if class == nil {
		class = &symbol.Symbol{
			Kind:      symbol.KindClass,
			Name:      symbol.AnonymousClassName(p.uri, node.StartByte()),
			Modifiers: symbol.ModifierAnonymous,
		}
	}

	p.readClassBody(node, class)
	return class.Name
}

func (p *pass) readObjectCreation(node *tree_sitter.Node) string {
	if treesitterhelper.GetFirstNodeOfKind(node, "declaration_list") != nil {
		return p.readAnonymousClass(node)
	}

	className := ""
	for _, child := range treesitterhelper.NamedChildren(node) {
		switch child.Kind() {
		case "name", "qualified_name", "relative_name":
			className = p.addClassReference(child)
		case "anonymous_class":
			className = p.eval(child)
		default:
			p.eval(child)
		}
	}

	return className
}

func (p *pass) readFunction(node *tree_sitter.Node) string {
	sym := p.shift(node, symbol.KindFunction)
	if nameNode := node.ChildByFieldName("name"); sym != nil && nameNode != nil {
		p.add(&symbol.Reference{Kind: symbol.KindFunction, Name: sym.Name, Location: p.location(nameNode)})
	}

	p.readFunctionLike(node, sym, nil, "")
	return ""
}

func (p *pass) readMethod(node *tree_sitter.Node) string {
	sym := p.shift(node, symbol.KindMethod)
	class := p.resolver.Class()

	scope := ""
	if class != nil {
		scope = class.Name
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		p.add(&symbol.Reference{Kind: symbol.KindMethod, Name: p.text(nameNode), Scope: scope, Location: p.location(nameNode)})
	}

	thisType := scope
	if treesitterhelper.GetFirstNodeOfKind(node, "static_modifier") != nil {
		thisType = ""
	}

	p.readFunctionLike(node, sym, nil, thisType)
	return ""
}

func (p *pass) readClosure(node *tree_sitter.Node) string {
	sym := p.shift(node, symbol.KindFunction)

	var carry []string
	if node.Kind() == "arrow_function" {
		carry = p.variables.Names()
	} else {
		carry = []string{"$this"}
		if use := treesitterhelper.GetFirstNodeOfKind(node, "anonymous_function_use_clause"); use != nil {
			for _, variable := range treesitterhelper.NamedChildren(use) {
				carry = append(carry, capturedName(p.text(variable)))
			}
		}
	}

	p.readFunctionLike(node, sym, carry, "")
	return "Closure"
}

func capturedName(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "&"))
}

// readFunctionLike reads parameters, captured variables, return type and
// body of a function, method or closure in a fresh variable scope.
func (p *pass) readFunctionLike(node *tree_sitter.Node, sym *symbol.Symbol, carry []string, thisType string) {
	p.variables.PushScope(carry...)
	if thisType != "" {
		p.variables.SetVariable("$this", thisType)
	}
	p.pushScope(p.symbolLocation(sym, node))

	for _, attributes := range treesitterhelper.GetNamedChildrenOfKind(node, "attribute_list") {
		p.eval(attributes)
	}

	p.readParameters(node.ChildByFieldName("parameters"), sym)

	if use := treesitterhelper.GetFirstNodeOfKind(node, "anonymous_function_use_clause"); use != nil {
		for _, variable := range treesitterhelper.NamedChildren(use) {
			name := capturedName(p.text(variable))
			p.add(&symbol.Reference{
				Kind:     symbol.KindVariable,
				Name:     name,
				Type:     p.variables.GetType(name),
				Location: p.location(variable),
			})
		}
	}

	p.eval(node.ChildByFieldName("return_type"))

	body := node.ChildByFieldName("body")
	if node.Kind() == "arrow_function" {
		p.eval(body)
	} else {
		p.evalChildren(body)
	}

	p.popScope()
	p.variables.PopScope()
}

func (p *pass) readParameters(params *tree_sitter.Node, owner *symbol.Symbol) {
	for _, param := range treesitterhelper.NamedChildren(params) {
		switch param.Kind() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
		default:
			continue
		}
		if treesitterhelper.IsMalformed(param) {
			continue
		}

		for _, attributes := range treesitterhelper.GetNamedChildrenOfKind(param, "attribute_list") {
			p.eval(attributes)
		}
		p.eval(param.ChildByFieldName("type"))

		nameNode := param.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = treesitterhelper.GetFirstNodeOfKind(param, "variable_name")
		}
		if nameNode != nil && nameNode.Kind() == "by_ref" {
			nameNode = treesitterhelper.GetFirstNodeOfKind(nameNode, "variable_name")
		}
		if nameNode == nil {
			continue
		}

		name := p.text(nameNode)
		paramType := ""
		if owner != nil {
			if declared := owner.Child(symbol.KindParameter, name); declared != nil {
				paramType = declared.Type
			}
		}

		varType := paramType
		if param.Kind() == "variadic_parameter" && varType != "" {
			varType = typestring.ArrayReference(varType)
		}

		p.variables.SetVariable(name, varType)
		p.add(&symbol.Reference{Kind: symbol.KindParameter, Name: name, Type: paramType, Location: p.location(nameNode)})

		p.eval(param.ChildByFieldName("default_value"))
	}
}

func (p *pass) readProperty(node *tree_sitter.Node) string {
	class := p.resolver.Class()
	if class == nil {
		return ""
	}

	p.eval(node.ChildByFieldName("type"))

	for _, element := range treesitterhelper.GetNamedChildrenOfKind(node, "property_element") {
		nameNode := element.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = treesitterhelper.GetFirstNodeOfKind(element, "variable_name")
		}
		if nameNode == nil {
			continue
		}

		name := p.text(nameNode)
		propertyType := ""
		if declared := class.Child(symbol.KindProperty, name); declared != nil {
			propertyType = declared.Type
		}
		p.add(&symbol.Reference{
			Kind:     symbol.KindProperty,
			Name:     name,
			Scope:    class.Name,
			Type:     propertyType,
			Location: p.location(nameNode),
		})

		for _, child := range treesitterhelper.NamedChildren(element) {
			if !treesitterhelper.SameNode(child, nameNode) {
				p.eval(child)
			}
		}
	}

	return ""
}

func (p *pass) readConst(node *tree_sitter.Node) string {
	class := p.resolver.Class()
	inClass := class != nil && p.inClassBody()

	for _, element := range treesitterhelper.GetNamedChildrenOfKind(node, "const_element") {
		children := treesitterhelper.NamedChildren(element)
		if len(children) == 0 {
			continue
		}

		nameNode := children[0]
		valueType := ""
		if len(children) > 1 {
			valueType = p.eval(children[len(children)-1])
		}

		ref := &symbol.Reference{
			Kind:     symbol.KindConstant,
			Name:     p.resolver.ResolveRelative(p.text(nameNode)),
			Type:     valueType,
			Location: p.location(nameNode),
		}
		if inClass {
			ref.Kind = symbol.KindClassConstant
			ref.Name = p.text(nameNode)
			ref.Scope = class.Name
		}
		p.add(ref)
	}

	return ""
}

func (p *pass) readEnumCase(node *tree_sitter.Node) string {
	class := p.resolver.Class()
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = treesitterhelper.GetFirstNodeOfKind(node, "name")
	}
	if class == nil || nameNode == nil {
		return ""
	}

	p.add(&symbol.Reference{
		Kind:     symbol.KindEnumCase,
		Name:     p.text(nameNode),
		Scope:    class.Name,
		Type:     class.Name,
		Location: p.location(nameNode),
	})
	p.eval(node.ChildByFieldName("value"))

	return ""
}

func (p *pass) readTraitUse(node *tree_sitter.Node) string {
	if !p.inClassBody() {
		return ""
	}

	for _, name := range treesitterhelper.GetNamedChildrenOfKind(node, "name", "qualified_name", "relative_name") {
		p.addClassReference(name)
	}
	return ""
}

func (p *pass) readNamedType(node *tree_sitter.Node) string {
	inner := node.NamedChild(0)
	if inner == nil {
		inner = node
	}
	return p.addClassReference(inner)
}

func (p *pass) readAttribute(node *tree_sitter.Node) string {
	for _, child := range treesitterhelper.NamedChildren(node) {
		switch child.Kind() {
		case "name", "qualified_name", "relative_name":
			p.addClassReference(child)
		default:
			p.eval(child)
		}
	}
	return ""
}

func (p *pass) readVariable(node *tree_sitter.Node) string {
	name := p.text(node)

	if name == "$this" {
		if t := p.variables.GetType(name); t != "" {
			return t
		}
		return p.resolver.ClassName()
	}

	t := p.variables.GetType(name)
	p.add(&symbol.Reference{Kind: symbol.KindVariable, Name: name, Type: t, Location: p.location(node)})
	return t
}

func (p *pass) readAssignment(node *tree_sitter.Node) string {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")

	valueType := p.eval(right)
	if documented := p.assignmentDocType(node, left); documented != "" {
		valueType = documented
	}

	p.assign(left, valueType)
	return valueType
}

var statementPattern = treesitterhelper.Parent(treesitterhelper.NodeKind("expression_statement"))

// assignmentDocType returns the type of a "/** @var Foo $x */" comment in
// front of the statement assigning $x.
func (p *pass) assignmentDocType(node, left *tree_sitter.Node) string {
	if !treesitterhelper.NodeKind("variable_name").Matches(left, p.content) || !statementPattern.Matches(node, p.content) {
		return ""
	}

	doc := phpdoc.Parse(treesitterhelper.PrecedingDocComment(node.Parent(), p.content))
	tag := doc.Var(p.text(left))
	if tag == nil || tag.Type == "" {
		return ""
	}

	return p.resolver.ResolveType(typestring.FromGeneric(tag.Type))
}

// assign records t as the type of the assignment target, destructuring
// list() and [...] targets element by element.
func (p *pass) assign(target *tree_sitter.Node, t string) {
	if treesitterhelper.IsMalformed(target) {
		return
	}

	switch target.Kind() {
	case "variable_name":
		name := p.text(target)
		if name == "$this" {
			return
		}
		p.variables.SetVariable(name, t)
		p.add(&symbol.Reference{Kind: symbol.KindVariable, Name: name, Type: t, Location: p.location(target)})
	case "by_ref":
		for _, child := range treesitterhelper.NamedChildren(target) {
			p.assign(child, t)
		}
	case "list_literal", "array_creation_expression":
		p.destructure(target, typestring.ArrayDereference(t))
	default:
		p.eval(target)
	}
}

func (p *pass) destructure(node *tree_sitter.Node, elementType string) {
	for _, child := range treesitterhelper.NamedChildren(node) {
		value := child
		if child.Kind() == "array_element_initializer" {
			children := treesitterhelper.NamedChildren(child)
			if len(children) == 0 {
				continue
			}
			if len(children) > 1 {
				p.eval(children[0])
			}
			value = children[len(children)-1]
		}

		switch value.Kind() {
		case "variable_name", "by_ref", "list_literal", "array_creation_expression":
			p.assign(value, elementType)
		default:
			p.eval(value)
		}
	}
}

func (p *pass) readAugmentedAssignment(node *tree_sitter.Node) string {
	left := node.ChildByFieldName("left")
	leftType := p.eval(left)
	rightType := p.eval(node.ChildByFieldName("right"))

	switch p.text(node.ChildByFieldName("operator")) {
	case ".=":
		return "string"
	case "??=":
		merged := typestring.Merge(withoutNull(leftType), rightType)
		if left != nil && left.Kind() == "variable_name" {
			p.variables.SetVariable(p.text(left), merged)
		}
		return merged
	}

	return leftType
}

func (p *pass) readMemberCall(node *tree_sitter.Node) string {
	objectType := p.eval(node.ChildByFieldName("object"))

	result := ""
	nameNode := node.ChildByFieldName("name")
	if nameNode != nil && nameNode.Kind() == "name" {
		result = p.addTyped(&symbol.Reference{
			Kind:     symbol.KindMethod,
			Name:     p.text(nameNode),
			Scope:    memberScope(objectType),
			Location: p.location(nameNode),
		})
	} else {
		p.eval(nameNode)
	}

	p.eval(node.ChildByFieldName("arguments"))
	return result
}

func (p *pass) readMemberAccess(node *tree_sitter.Node) string {
	objectType := p.eval(node.ChildByFieldName("object"))

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "name" {
		p.eval(nameNode)
		return ""
	}

	return p.addTyped(&symbol.Reference{
		Kind:     symbol.KindProperty,
		Name:     "$" + p.text(nameNode),
		Scope:    memberScope(objectType),
		Location: p.location(nameNode),
	})
}

// readScope resolves the left side of "::" to a class name.
func (p *pass) readScope(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}

	switch node.Kind() {
	case "name", "qualified_name", "relative_name":
		return p.addClassReference(node)
	case "relative_scope":
		return p.resolver.ResolveNotFullyQualified(p.text(node), symbol.KindClass, true)
	}

	return memberScope(p.eval(node))
}

func (p *pass) readScopedCall(node *tree_sitter.Node) string {
	className := p.readScope(node.ChildByFieldName("scope"))

	result := ""
	nameNode := node.ChildByFieldName("name")
	if nameNode != nil && nameNode.Kind() == "name" {
		result = p.addTyped(&symbol.Reference{
			Kind:     symbol.KindMethod,
			Name:     p.text(nameNode),
			Scope:    className,
			Location: p.location(nameNode),
		})
	} else {
		p.eval(nameNode)
	}

	p.eval(node.ChildByFieldName("arguments"))
	return result
}

func (p *pass) readScopedPropertyAccess(node *tree_sitter.Node) string {
	className := p.readScope(node.ChildByFieldName("scope"))

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "variable_name" {
		p.eval(nameNode)
		return ""
	}

	return p.addTyped(&symbol.Reference{
		Kind:     symbol.KindProperty,
		Name:     p.text(nameNode),
		Scope:    className,
		Location: p.location(nameNode),
	})
}

func (p *pass) readClassConstantAccess(node *tree_sitter.Node) string {
	children := treesitterhelper.NamedChildren(node)
	if len(children) < 2 {
		p.evalChildren(node)
		return ""
	}

	className := p.readScope(children[0])
	nameNode := children[len(children)-1]
	name := p.text(nameNode)

	if strings.EqualFold(name, "class") {
		return "string"
	}

	return p.addTyped(&symbol.Reference{
		Kind:     symbol.KindClassConstant,
		Name:     name,
		Scope:    className,
		Location: p.location(nameNode),
	})
}

// globalFallback returns the name as written when an unqualified function or
// constant name may still resolve to the global namespace.
func globalFallback(text, resolved string) string {
	if strings.Contains(text, "\\") || resolved == text {
		return ""
	}
	return text
}

func (p *pass) readFunctionCall(node *tree_sitter.Node) string {
	function := node.ChildByFieldName("function")

	result := ""
	if function != nil {
		switch function.Kind() {
		case "name", "qualified_name", "relative_name":
			text := p.text(function)
			name := p.resolver.Resolve(text, symbol.KindFunction)
			result = p.addTyped(&symbol.Reference{
				Kind:     symbol.KindFunction,
				Name:     name,
				AltName:  globalFallback(text, name),
				Location: p.location(function),
			})
		default:
			p.eval(function)
		}
	}

	p.eval(node.ChildByFieldName("arguments"))
	return result
}

// readConstantName reads a bare name in expression position.
func (p *pass) readConstantName(node *tree_sitter.Node) string {
	text := p.text(node)
	switch strings.ToLower(text) {
	case "true", "false":
		return "bool"
	case "null":
		return "null"
	}

	name := p.resolver.Resolve(text, symbol.KindConstant)
	return p.addTyped(&symbol.Reference{
		Kind:     symbol.KindConstant,
		Name:     name,
		AltName:  globalFallback(text, name),
		Location: p.location(node),
	})
}

func (p *pass) readArgument(node *tree_sitter.Node) string {
	label := node.ChildByFieldName("name")

	result := ""
	for _, child := range treesitterhelper.NamedChildren(node) {
		if label != nil && treesitterhelper.SameNode(child, label) {
			continue
		}
		result = p.eval(child)
	}
	return result
}

func (p *pass) readBinary(node *tree_sitter.Node) string {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	operator := strings.ToLower(p.text(node.ChildByFieldName("operator")))

	if operator == "instanceof" {
		p.eval(left)
		if right != nil && (right.Kind() == "name" || right.Kind() == "qualified_name" || right.Kind() == "relative_name") {
			p.addClassReference(right)
		} else {
			p.eval(right)
		}
		return "bool"
	}

	leftType := p.eval(left)
	rightType := p.eval(right)

	switch operator {
	case "??":
		return typestring.Merge(withoutNull(leftType), rightType)
	case ".":
		return "string"
	case "==", "===", "!=", "!==", "<>", "<", ">", "<=", ">=", "&&", "||", "and", "or", "xor":
		return "bool"
	case "<=>", "&", "|", "^", "<<", ">>":
		return "int"
	case "+", "-", "*", "/", "%", "**":
		switch {
		case leftType == "int" && rightType == "int" && operator != "/":
			return "int"
		case leftType == "float" || rightType == "float":
			return "float"
		case operator == "%":
			return "int"
		}
	}

	return ""
}

func (p *pass) readConditional(node *tree_sitter.Node) string {
	conditionType := p.eval(node.ChildByFieldName("condition"))

	bodyType := conditionType
	if body := node.ChildByFieldName("body"); body != nil {
		bodyType = p.eval(body)
	}

	return typestring.Merge(bodyType, p.eval(node.ChildByFieldName("alternative")))
}

func (p *pass) readParenthesized(node *tree_sitter.Node) string {
	result := ""
	for _, child := range treesitterhelper.NamedChildren(node) {
		result = p.eval(child)
	}
	return result
}

func (p *pass) readArrayCreation(node *tree_sitter.Node) string {
	elementType := ""
	untyped := false

	for _, element := range treesitterhelper.GetNamedChildrenOfKind(node, "array_element_initializer") {
		children := treesitterhelper.NamedChildren(element)
		if len(children) == 0 {
			continue
		}
		if len(children) > 1 {
			p.eval(children[0])
		}

		valueType := p.eval(children[len(children)-1])
		if valueType == "" {
			untyped = true
		}
		elementType = typestring.Merge(elementType, valueType)
	}

	if elementType == "" || untyped {
		return "array"
	}
	return typestring.ArrayReference(elementType)
}

func (p *pass) readSubscript(node *tree_sitter.Node) string {
	children := treesitterhelper.NamedChildren(node)
	if len(children) == 0 {
		return ""
	}

	baseType := p.eval(children[0])
	for _, child := range children[1:] {
		p.eval(child)
	}

	return typestring.ArrayDereference(baseType)
}

var castTypes = map[string]string{
	"int":     "int",
	"integer": "int",
	"bool":    "bool",
	"boolean": "bool",
	"float":   "float",
	"double":  "float",
	"real":    "float",
	"string":  "string",
	"binary":  "string",
	"array":   "array",
	"object":  "object",
	"unset":   "null",
}

func (p *pass) readCast(node *tree_sitter.Node) string {
	castType := treesitterhelper.GetFirstNodeOfKind(node, "cast_type")

	for _, child := range treesitterhelper.NamedChildren(node) {
		if !treesitterhelper.SameNode(child, castType) {
			p.eval(child)
		}
	}

	return castTypes[strings.ToLower(strings.TrimSpace(p.text(castType)))]
}

func (p *pass) readUnary(node *tree_sitter.Node) string {
	operandType := p.readParenthesized(node)

	if first := node.Child(0); first != nil && first.Kind() == "!" {
		return "bool"
	}
	return operandType
}

func (p *pass) readMatch(node *tree_sitter.Node) string {
	p.eval(node.ChildByFieldName("condition"))

	body := node.ChildByFieldName("body")
	if body == nil {
		body = treesitterhelper.GetFirstNodeOfKind(node, "match_block")
	}

	result := ""
	for _, arm := range treesitterhelper.NamedChildren(body) {
		p.eval(arm.ChildByFieldName("conditional_expressions"))
		result = typestring.Merge(result, p.eval(arm.ChildByFieldName("return_expression")))
	}
	return result
}

func (p *pass) readString(node *tree_sitter.Node) string {
	p.evalChildren(node)
	return "string"
}

func (p *pass) readForeach(node *tree_sitter.Node) string {
	children := treesitterhelper.NamedChildren(node)
	if len(children) < 2 {
		p.evalChildren(node)
		return ""
	}

	elementType := typestring.ArrayDereference(p.eval(children[0]))

	rest := children[1:]
	value := rest[0]
	rest = rest[1:]

	switch {
	case value.Kind() == "pair":
		parts := treesitterhelper.NamedChildren(value)
		if len(parts) == 2 {
			p.assign(parts[0], "")
			value = parts[1]
		}
	case len(rest) > 0 && isForeachTarget(rest[0]) && !treesitterhelper.SameNode(rest[0], node.ChildByFieldName("body")):
		p.assign(value, "")
		value = rest[0]
		rest = rest[1:]
	}

	p.assign(value, elementType)

	p.branch(node, nil, func() {
		for _, child := range rest {
			p.eval(child)
		}
	})
	p.variables.PruneBranches()

	return ""
}

func isForeachTarget(node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "variable_name", "by_ref", "list_literal":
		return true
	}
	return false
}

// narrowing returns the variable types implied by an "$x instanceof Foo"
// condition, including conjunctions of them.
func (p *pass) narrowing(condition *tree_sitter.Node) map[string]string {
	for condition != nil && condition.Kind() == "parenthesized_expression" {
		condition = condition.NamedChild(0)
	}
	if condition == nil || condition.Kind() != "binary_expression" {
		return nil
	}

	left := condition.ChildByFieldName("left")
	right := condition.ChildByFieldName("right")

	switch strings.ToLower(p.text(condition.ChildByFieldName("operator"))) {
	case "instanceof":
		if left == nil || right == nil || left.Kind() != "variable_name" {
			return nil
		}
		switch right.Kind() {
		case "name", "qualified_name", "relative_name":
			return map[string]string{p.text(left): p.resolver.ResolveNotFullyQualified(p.text(right), symbol.KindClass, true)}
		}
	case "&&", "and":
		narrowed := p.narrowing(left)
		for name, t := range p.narrowing(right) {
			if narrowed == nil {
				narrowed = make(map[string]string)
			}
			narrowed[name] = t
		}
		return narrowed
	}

	return nil
}

func (p *pass) readIf(node *tree_sitter.Node) string {
	condition := node.ChildByFieldName("condition")
	p.eval(condition)

	body := node.ChildByFieldName("body")
	bodyNode := body
	if bodyNode == nil {
		bodyNode = node
	}
	p.branch(bodyNode, p.narrowing(condition), func() {
		p.eval(body)
	})

	for _, alternative := range treesitterhelper.GetNamedChildrenOfKind(node, "else_if_clause", "else_clause") {
		var narrowed map[string]string
		if altCondition := alternative.ChildByFieldName("condition"); altCondition != nil {
			p.eval(altCondition)
			narrowed = p.narrowing(altCondition)
		}

		altBody := alternative.ChildByFieldName("body")
		p.branch(alternative, narrowed, func() {
			if altBody != nil {
				p.eval(altBody)
				return
			}
			p.evalChildren(alternative)
		})
	}

	p.variables.PruneBranches()
	return ""
}

func (p *pass) readLoop(node *tree_sitter.Node) string {
	p.branch(node, nil, func() {
		p.evalChildren(node)
	})
	p.variables.PruneBranches()
	return ""
}

func (p *pass) readSwitch(node *tree_sitter.Node) string {
	p.eval(node.ChildByFieldName("condition"))

	body := node.ChildByFieldName("body")
	for _, child := range treesitterhelper.NamedChildren(body) {
		switch child.Kind() {
		case "case_statement", "default_statement":
			p.branch(child, nil, func() {
				p.evalChildren(child)
			})
		default:
			p.eval(child)
		}
	}

	p.variables.PruneBranches()
	return ""
}

func (p *pass) readTry(node *tree_sitter.Node) string {
	for _, child := range treesitterhelper.NamedChildren(node) {
		switch child.Kind() {
		case "compound_statement", "finally_clause":
			p.branch(child, nil, func() {
				p.evalChildren(child)
			})
		case "catch_clause":
			p.branch(child, nil, func() {
				p.readCatch(child)
			})
		default:
			p.eval(child)
		}
	}

	p.variables.PruneBranches()
	return ""
}

func (p *pass) readCatch(node *tree_sitter.Node) string {
	caught := ""
	if types := node.ChildByFieldName("type"); types != nil {
		if types.Kind() == "type_list" {
			for _, child := range treesitterhelper.NamedChildren(types) {
				caught = typestring.Merge(caught, p.eval(child))
			}
		} else {
			caught = p.eval(types)
		}
	}

	if name := node.ChildByFieldName("name"); name != nil {
		p.assign(name, caught)
	}

	p.eval(node.ChildByFieldName("body"))
	return ""
}
