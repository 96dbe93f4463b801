package symbol

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/shopware/phpsymbols/internal/phpdoc"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
	"github.com/shopware/phpsymbols/internal/typestring"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// reader runs the declaration pass over one file. The stack holds the symbols
// currently being built; every symbol started while another is on top of the
// stack becomes its child.
type reader struct {
	content  []byte
	uri      string
	uriHash  uint64
	resolver *NameResolver
	stack    []*Symbol
	// openNamespace is the unbraced namespace ("namespace App;") in effect
	openNamespace *Symbol
}

type declarationHandler func(r *reader, node *tree_sitter.Node)

var declarationHandlers map[string]declarationHandler

func init() {
	declarationHandlers = map[string]declarationHandler{
		"namespace_definition":                   (*reader).readNamespace,
		"namespace_use_declaration":              (*reader).readUseDeclaration,
		"class_declaration":                      (*reader).readClassLike,
		"interface_declaration":                  (*reader).readClassLike,
		"trait_declaration":                      (*reader).readClassLike,
		"enum_declaration":                       (*reader).readClassLike,
		"anonymous_class":                        (*reader).readAnonymousClass,
		"object_creation_expression":             (*reader).readObjectCreation,
		"function_definition":                    (*reader).readFunction,
		"method_declaration":                     (*reader).readMethod,
		"anonymous_function":                     (*reader).readClosure,
		"anonymous_function_creation_expression": (*reader).readClosure,
		"arrow_function":                         (*reader).readClosure,
		"property_declaration":                   (*reader).readProperty,
		"const_declaration":                      (*reader).readConst,
		"enum_case":                              (*reader).readEnumCase,
		"use_declaration":                        (*reader).readTraitUse,
		"function_call_expression":               (*reader).readFunctionCall,
		"assignment_expression":                  (*reader).readAssignment,
		"reference_assignment_expression":        (*reader).readAssignment,
		"foreach_statement":                      (*reader).readForeach,
		"catch_clause":                           (*reader).readCatch,
	}
}

// Read runs the declaration pass over the syntax tree of one file and
// returns its symbol table. Malformed subtrees contribute nothing.
func Read(uri string, content []byte, root *tree_sitter.Node) *Table {
	file := &Symbol{
		Kind:     KindFile,
		Name:     uri,
		Location: &Location{URIHash: HashURI(uri), Range: treesitterhelper.NodeRange(root)},
	}

	r := &reader{
		content:  content,
		uri:      uri,
		uriHash:  HashURI(uri),
		resolver: NewNameResolver(),
		stack:    []*Symbol{file},
	}

	r.readChildren(root)
	r.closeNamespace(treesitterhelper.NodeRange(root).End)

	return &Table{
		URI:  uri,
		Hash: xxhash.Sum64(content),
		Root: file,
	}
}

func (r *reader) visit(node *tree_sitter.Node) {
	if treesitterhelper.IsMalformed(node) {
		return
	}

	if handler, ok := declarationHandlers[node.Kind()]; ok {
		handler(r, node)
		return
	}

	r.readChildren(node)
}

func (r *reader) readChildren(node *tree_sitter.Node) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		r.visit(node.NamedChild(uint(i)))
	}
}

func (r *reader) text(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(r.content)
}

func (r *reader) location(node *tree_sitter.Node) *Location {
	return &Location{URIHash: r.uriHash, Range: treesitterhelper.NodeRange(node)}
}

func (r *reader) top() *Symbol {
	return r.stack[len(r.stack)-1]
}

// begin adds sym to the symbol on top of the stack and makes it the new top.
func (r *reader) begin(sym *Symbol) {
	r.addChild(sym)
	r.stack = append(r.stack, sym)
}

func (r *reader) end() {
	r.stack = r.stack[:len(r.stack)-1]
}

func (r *reader) addChild(sym *Symbol) {
	top := r.top()
	top.Children = append(top.Children, sym)
}

// nearestFunction returns the innermost function, method or closure that
// owns local variables at the current position.
func (r *reader) nearestFunction() *Symbol {
	for i := len(r.stack) - 1; i >= 0; i-- {
		sym := r.stack[i]
		if sym.Kind.IsFunctionLike() {
			return sym
		}
		if sym.Kind.IsClassLike() || sym.Kind == KindNamespace || sym.Kind == KindFile {
			return nil
		}
	}
	return nil
}

func (r *reader) docComment(node *tree_sitter.Node) *phpdoc.DocBlock {
	return phpdoc.Parse(treesitterhelper.PrecedingDocComment(node, r.content))
}

// docType resolves a type-string read from a doc comment.
func (r *reader) docType(t string) string {
	if t == "" {
		return ""
	}
	return r.resolver.ResolveType(typestring.FromGeneric(t))
}

func (r *reader) closeNamespace(end treesitterhelper.Position) {
	if r.openNamespace == nil {
		return
	}

	r.openNamespace.Location.Range.End = end
	for len(r.stack) > 1 && r.top() != r.openNamespace {
		r.end()
	}
	if len(r.stack) > 1 {
		r.end()
	}

	r.openNamespace = nil
	r.resolver.SetNamespace("")
}

func (r *reader) readNamespace(node *tree_sitter.Node) {
	r.closeNamespace(treesitterhelper.NodeRange(node).Start)

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = treesitterhelper.GetFirstNodeOfKind(node, "namespace_name")
	}
	name := strings.Trim(r.text(nameNode), "\\")

	sym := &Symbol{
		Kind:     KindNamespace,
		Name:     name,
		Location: r.location(node),
	}

	r.resolver.SetNamespace(name)
	r.begin(sym)

	body := node.ChildByFieldName("body")
	if body == nil {
		body = treesitterhelper.GetFirstNodeOfKind(node, "compound_statement")
	}

	if body == nil {
		r.openNamespace = sym
		return
	}

	r.readChildren(body)
	r.end()
	r.resolver.SetNamespace("")
}

func (r *reader) readUseDeclaration(node *tree_sitter.Node) {
	for _, rule := range UseRules(node, r.content, r.uriHash) {
		r.addChild(rule)
		r.resolver.AddRule(rule)
	}
}

// UseRules reads the import rules of a namespace_use_declaration node,
// including group uses ("use A\{B, C as D};") and use function/const.
func UseRules(node *tree_sitter.Node, content []byte, uriHash uint64) []*Symbol {
	kind := KindClass
	if treesitterhelper.HasChildToken(node, "function") {
		kind = KindFunction
	} else if treesitterhelper.HasChildToken(node, "const") {
		kind = KindConstant
	}

	prefix := ""
	clauses := treesitterhelper.GetNamedChildrenOfKind(node, "namespace_use_clause")

	if group := treesitterhelper.GetFirstNodeOfKind(node, "namespace_use_group"); group != nil {
		if ns := treesitterhelper.GetFirstNodeOfKind(node, "namespace_name"); ns != nil {
			prefix = strings.Trim(ns.Utf8Text(content), "\\")
		}
		clauses = treesitterhelper.GetNamedChildrenOfKind(group, "namespace_use_clause", "namespace_use_group_clause")
	}

	var rules []*Symbol
	for _, clause := range clauses {
		if treesitterhelper.IsMalformed(clause) {
			continue
		}

		clauseKind := kind
		if treesitterhelper.HasChildToken(clause, "function") {
			clauseKind = KindFunction
		} else if treesitterhelper.HasChildToken(clause, "const") {
			clauseKind = KindConstant
		}

		names := treesitterhelper.GetNamedChildrenOfKind(clause, "name", "qualified_name", "namespace_name")
		if len(names) == 0 {
			continue
		}

		target := names[0]
		alias := clause.ChildByFieldName("alias")
		if alias != nil && treesitterhelper.SameNode(alias, target) {
			alias = nil
		}
		if alias == nil && len(names) > 1 {
			alias = names[len(names)-1]
		}

		fqn := strings.TrimPrefix(target.Utf8Text(content), "\\")
		if prefix != "" {
			fqn = prefix + "\\" + fqn
		}

		local := fqn
		if i := strings.LastIndex(fqn, "\\"); i >= 0 {
			local = fqn[i+1:]
		}
		if alias != nil {
			local = alias.Utf8Text(content)
		}

		rules = append(rules, &Symbol{
			Kind:       clauseKind,
			Name:       local,
			Modifiers:  ModifierUse,
			Associated: []*Symbol{NewStub(clauseKind, fqn)},
			Location:   &Location{URIHash: uriHash, Range: treesitterhelper.NodeRange(clause)},
		})
	}

	return rules
}

var classLikeKinds = map[string]Kind{
	"class_declaration":     KindClass,
	"interface_declaration": KindInterface,
	"trait_declaration":     KindTrait,
	"enum_declaration":      KindEnum,
}

// ClassLikeKind returns the symbol kind declared by a named class-like
// declaration node, or KindNone.
func ClassLikeKind(node *tree_sitter.Node) Kind {
	if node == nil {
		return KindNone
	}
	return classLikeKinds[node.Kind()]
}

var (
	staticClosurePattern = treesitterhelper.Or(
		treesitterhelper.HasChildOfKind("static_modifier"),
		treesitterhelper.FuncPattern(func(node *tree_sitter.Node, _ []byte) bool {
			return treesitterhelper.HasChildToken(node, "static")
		}),
	)

	backedEnumPattern = treesitterhelper.Or(
		treesitterhelper.FuncPattern(func(node *tree_sitter.Node, _ []byte) bool {
			return node.ChildByFieldName("type") != nil
		}),
		treesitterhelper.HasChildOfKind("primitive_type"),
	)
)

func (r *reader) readClassLike(node *tree_sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if treesitterhelper.IsMalformed(nameNode) {
		return
	}

	kind := ClassLikeKind(node)
	sym := &Symbol{
		Kind:      kind,
		Name:      r.resolver.ResolveRelative(r.text(nameNode)),
		Modifiers: readModifiers(node, r.content),
		Location:  r.location(node),
	}

	r.readAssociated(node, sym)

	if kind == KindEnum {
		sym.Associated = append(sym.Associated, NewStub(KindInterface, "UnitEnum"))
		if backedEnumPattern.Matches(node, r.content) {
			sym.Associated = append(sym.Associated, NewStub(KindInterface, "BackedEnum"))
		}
	}

	r.readClassBody(node, sym)
}

func (r *reader) readAssociated(node *tree_sitter.Node, sym *Symbol) {
	baseKind := KindClass
	if sym.Kind == KindInterface {
		baseKind = KindInterface
	}

	if base := treesitterhelper.GetFirstNodeOfKind(node, "base_clause"); base != nil {
		for _, name := range treesitterhelper.GetNamedChildrenOfKind(base, "name", "qualified_name") {
			sym.Associated = append(sym.Associated, NewStub(baseKind, r.resolver.Resolve(r.text(name), KindClass)))
		}
	}

	if implements := treesitterhelper.GetFirstNodeOfKind(node, "class_interface_clause"); implements != nil {
		for _, name := range treesitterhelper.GetNamedChildrenOfKind(implements, "name", "qualified_name") {
			sym.Associated = append(sym.Associated, NewStub(KindInterface, r.resolver.Resolve(r.text(name), KindClass)))
		}
	}
}

func (r *reader) readClassBody(node *tree_sitter.Node, sym *Symbol) {
	doc := r.docComment(node)
	if doc != nil {
		sym.Doc = newDoc(doc.Description, "")
	}

	r.begin(sym)
	r.resolver.PushClass(sym)

	body := node.ChildByFieldName("body")
	if body == nil {
		body = treesitterhelper.GetFirstNodeOfKind(node, "declaration_list")
	}
	r.readChildren(body)

	for _, tag := range doc.Magic() {
		r.addChild(r.magicMember(sym, tag))
	}

	r.resolver.PopClass()
	r.end()
}

func (r *reader) magicMember(class *Symbol, tag phpdoc.Tag) *Symbol {
	member := &Symbol{
		Kind:      KindProperty,
		Name:      tag.Variable,
		Modifiers: ModifierPublic | ModifierMagic,
		Type:      r.docType(tag.Type),
		Scope:     class.Name,
		Location:  class.Location,
	}
	member.Doc = newDoc(tag.Description, member.Type)

	switch tag.Name {
	case "property-read":
		member.Modifiers |= ModifierReadOnlyMagic
	case "property-write":
		member.Modifiers |= ModifierWriteOnly
	case "method":
		member.Kind = KindMethod
		if tag.IsStatic {
			member.Modifiers |= ModifierStatic
		}
		for _, param := range tag.Parameters {
			parameter := &Symbol{
				Kind:     KindParameter,
				Name:     param.Name,
				Type:     r.docType(param.Type),
				Value:    param.DefaultValue,
				Scope:    member.Name,
				Location: class.Location,
			}
			if param.IsVariadic {
				parameter.Modifiers |= ModifierVariadic
			}
			if param.IsReference {
				parameter.Modifiers |= ModifierReference
			}
			member.Children = append(member.Children, parameter)
		}
	}

	return member
}

func (r *reader) readObjectCreation(node *tree_sitter.Node) {
	// grammars before anonymous_class existed inline the class body here
	if treesitterhelper.GetFirstNodeOfKind(node, "declaration_list") != nil {
		r.readAnonymousClass(node)
		return
	}
	r.readChildren(node)
}

// AnonymousClassName returns the generated name of an anonymous class
// declared at byte offset in uri.
func AnonymousClassName(uri string, offset uint) string {
	return fmt.Sprintf("#anon#%s#%d", uri, offset)
}

func (r *reader) readAnonymousClass(node *tree_sitter.Node) {
	// constructor arguments belong to the enclosing scope
	r.readChildren(treesitterhelper.GetFirstNodeOfKind(node, "arguments"))

	sym := &Symbol{
		Kind:      KindClass,
		Name:      AnonymousClassName(r.uri, node.StartByte()),
		Modifiers: ModifierAnonymous,
		Location:  r.location(node),
	}

	r.readAssociated(node, sym)
	r.readClassBody(node, sym)
}

func (r *reader) readFunction(node *tree_sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if treesitterhelper.IsMalformed(nameNode) {
		return
	}

	sym := &Symbol{
		Kind:     KindFunction,
		Name:     r.resolver.ResolveRelative(r.text(nameNode)),
		Location: r.location(node),
	}
	if treesitterhelper.GetFirstNodeOfKind(node, "reference_modifier") != nil {
		sym.Modifiers |= ModifierReference
	}

	r.readFunctionLike(node, sym, nil)
}

func (r *reader) readMethod(node *tree_sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	class := r.resolver.Class()
	if treesitterhelper.IsMalformed(nameNode) || class == nil {
		return
	}

	sym := &Symbol{
		Kind:      KindMethod,
		Name:      r.text(nameNode),
		Modifiers: withDefaultVisibility(readModifiers(node, r.content)),
		Scope:     class.Name,
		Location:  r.location(node),
	}
	if treesitterhelper.GetFirstNodeOfKind(node, "reference_modifier") != nil {
		sym.Modifiers |= ModifierReference
	}

	var promoteTo *Symbol
	if strings.EqualFold(sym.Name, "__construct") {
		promoteTo = class
	}

	r.readFunctionLike(node, sym, promoteTo)
}

func (r *reader) readClosure(node *tree_sitter.Node) {
	name := "{closure}"
	if node.Kind() == "arrow_function" {
		name = "{arrow}"
	}

	sym := &Symbol{
		Kind:      KindFunction,
		Name:      name,
		Modifiers: ModifierAnonymous,
		Location:  r.location(node),
	}
	if staticClosurePattern.Matches(node, r.content) {
		sym.Modifiers |= ModifierStatic
	}

	r.readFunctionLike(node, sym, nil)
}

// readFunctionLike reads parameters, captured variables, return type and
// body of a function, method or closure.
func (r *reader) readFunctionLike(node *tree_sitter.Node, sym *Symbol, promoteTo *Symbol) {
	doc := r.docComment(node)
	if doc == nil && node.Parent() != nil && node.Parent().Kind() == "expression_statement" {
		doc = r.docComment(node.Parent())
	}

	outer := r.nearestFunction()

	r.begin(sym)

	r.readParameters(node.ChildByFieldName("parameters"), doc, sym, promoteTo)

	if use := treesitterhelper.GetFirstNodeOfKind(node, "anonymous_function_use_clause"); use != nil {
		for _, variable := range treesitterhelper.NamedChildren(use) {
			captured := &Symbol{
				Kind:     KindVariable,
				Name:     r.text(variable),
				Scope:    sym.Name,
				Location: r.location(variable),
			}
			if variable.Kind() == "by_ref" {
				captured.Modifiers |= ModifierReference
				captured.Name = strings.TrimPrefix(strings.TrimSpace(captured.Name), "&")
			}
			if outer != nil {
				if known := outer.Child(KindVariable, captured.Name); known != nil {
					captured.Type = known.Type
				} else if known := outer.Child(KindParameter, captured.Name); known != nil {
					captured.Type = known.Type
				}
			}
			r.addChild(captured)
		}
	}

	declared := r.readType(node.ChildByFieldName("return_type"))
	documented := ""
	if ret := doc.Return(); ret != nil {
		documented = r.docType(ret.Type)
	}
	sym.Type = preferDocType(declared, documented)
	if doc != nil {
		sym.Doc = newDoc(doc.Description, documented)
	}

	body := node.ChildByFieldName("body")
	if node.Kind() == "arrow_function" {
		r.visit(body)
	} else {
		r.readChildren(body)
	}

	r.end()
}

func (r *reader) readParameters(params *tree_sitter.Node, doc *phpdoc.DocBlock, owner *Symbol, promoteTo *Symbol) {
	if params == nil {
		return
	}

	for _, param := range treesitterhelper.NamedChildren(params) {
		if treesitterhelper.IsMalformed(param) {
			continue
		}

		switch param.Kind() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
		default:
			continue
		}

		nameNode := param.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = treesitterhelper.GetFirstNodeOfKind(param, "variable_name")
		}
		if nameNode == nil {
			continue
		}

		var modifiers Modifier
		if nameNode.Kind() == "by_ref" {
			modifiers |= ModifierReference
			if inner := treesitterhelper.GetFirstNodeOfKind(nameNode, "variable_name"); inner != nil {
				nameNode = inner
			}
		}
		if param.Kind() == "variadic_parameter" {
			modifiers |= ModifierVariadic
		}
		if treesitterhelper.GetFirstNodeOfKind(param, "reference_modifier") != nil {
			modifiers |= ModifierReference
		}

		name := r.text(nameNode)
		declared := r.readType(param.ChildByFieldName("type"))
		value := r.text(param.ChildByFieldName("default_value"))
		if declared != "" && strings.EqualFold(value, "null") {
			declared = typestring.Merge(declared, "null")
		}

		description := ""
		documented := ""
		if tag := doc.Param(name); tag != nil {
			documented = r.docType(tag.Type)
			description = tag.Description
		}

		parameter := &Symbol{
			Kind:      KindParameter,
			Name:      name,
			Modifiers: modifiers,
			Type:      preferDocType(declared, documented),
			Value:     value,
			Doc:       newDoc(description, documented),
			Scope:     owner.Name,
			Location:  r.location(param),
		}
		r.addChild(parameter)

		if param.Kind() == "property_promotion_parameter" && promoteTo != nil {
			promoted := parameter.Clone()
			promoted.Kind = KindProperty
			promoted.Modifiers = withDefaultVisibility(readModifiers(param, r.content)) | (modifiers & ModifierReference)
			promoted.Scope = promoteTo.Name
			promoteTo.Children = append(promoteTo.Children, promoted)
		}
	}
}

func (r *reader) readProperty(node *tree_sitter.Node) {
	class := r.resolver.Class()
	if class == nil {
		return
	}

	modifiers := withDefaultVisibility(readModifiers(node, r.content))
	declared := r.readType(node.ChildByFieldName("type"))
	doc := r.docComment(node)

	for _, element := range treesitterhelper.GetNamedChildrenOfKind(node, "property_element") {
		nameNode := element.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = treesitterhelper.GetFirstNodeOfKind(element, "variable_name")
		}
		if nameNode == nil {
			continue
		}

		name := r.text(nameNode)
		valueNode := element.ChildByFieldName("default_value")
		if valueNode == nil {
			if initializer := treesitterhelper.GetFirstNodeOfKind(element, "property_initializer"); initializer != nil && initializer.NamedChildCount() > 0 {
				valueNode = initializer.NamedChild(0)
			}
		}

		documented := ""
		description := ""
		if doc != nil {
			description = doc.Description
			if tag := doc.Var(name); tag != nil {
				documented = r.docType(tag.Type)
				if description == "" {
					description = tag.Description
				}
			}
		}

		propertyType := preferDocType(declared, documented)
		if propertyType == "" && valueNode != nil {
			propertyType = LiteralType(valueNode)
		}

		r.addChild(&Symbol{
			Kind:      KindProperty,
			Name:      name,
			Modifiers: modifiers,
			Type:      propertyType,
			Value:     r.text(valueNode),
			Doc:       newDoc(description, documented),
			Scope:     class.Name,
			Location:  r.location(element),
		})

		r.visit(valueNode)
	}
}

func (r *reader) readConst(node *tree_sitter.Node) {
	class := r.resolver.Class()
	inClass := class != nil && r.top() == class

	modifiers := readModifiers(node, r.content)
	if inClass {
		modifiers = withDefaultVisibility(modifiers)
	}
	doc := r.docComment(node)

	for _, element := range treesitterhelper.GetNamedChildrenOfKind(node, "const_element") {
		children := treesitterhelper.NamedChildren(element)
		if len(children) == 0 {
			continue
		}

		nameNode := children[0]
		var valueNode *tree_sitter.Node
		if len(children) > 1 {
			valueNode = children[len(children)-1]
		}

		sym := &Symbol{
			Kind:      KindConstant,
			Name:      r.resolver.ResolveRelative(r.text(nameNode)),
			Modifiers: modifiers,
			Value:     r.text(valueNode),
			Location:  r.location(element),
		}
		if inClass {
			sym.Kind = KindClassConstant
			sym.Name = r.text(nameNode)
			sym.Scope = class.Name
		}

		documented := ""
		if tag := doc.Var(""); tag != nil {
			documented = r.docType(tag.Type)
		}
		sym.Type = documented
		if sym.Type == "" && valueNode != nil {
			sym.Type = LiteralType(valueNode)
		}
		if doc != nil {
			sym.Doc = newDoc(doc.Description, documented)
		}

		r.addChild(sym)
		r.visit(valueNode)
	}
}

func (r *reader) readEnumCase(node *tree_sitter.Node) {
	class := r.resolver.Class()
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = treesitterhelper.GetFirstNodeOfKind(node, "name")
	}
	if class == nil || nameNode == nil {
		return
	}

	sym := &Symbol{
		Kind:      KindEnumCase,
		Name:      r.text(nameNode),
		Modifiers: ModifierPublic,
		Type:      class.Name,
		Value:     r.text(node.ChildByFieldName("value")),
		Scope:     class.Name,
		Location:  r.location(node),
	}
	if doc := r.docComment(node); doc != nil {
		sym.Doc = newDoc(doc.Description, "")
	}

	r.addChild(sym)
}

// readTraitUse adds the traits of a "use Foo, Bar;" class body statement to
// the associated types of the enclosing class-like.
func (r *reader) readTraitUse(node *tree_sitter.Node) {
	class := r.resolver.Class()
	if class == nil || r.top() != class {
		return
	}

	for _, name := range treesitterhelper.GetNamedChildrenOfKind(node, "name", "qualified_name") {
		class.Associated = append(class.Associated, NewStub(KindTrait, r.resolver.Resolve(r.text(name), KindClass)))
	}
}

func (r *reader) readFunctionCall(node *tree_sitter.Node) {
	if treesitterhelper.PHPDefineCallPattern.Matches(node, r.content) {
		args := treesitterhelper.GetNamedChildrenOfKind(node.ChildByFieldName("arguments"), "argument")
		if len(args) >= 2 {
			nameExpr := lastNamedChild(args[0])
			valueExpr := lastNamedChild(args[1])

			if nameExpr != nil && (nameExpr.Kind() == "string" || nameExpr.Kind() == "encapsed_string") {
				r.addChild(&Symbol{
					Kind:     KindConstant,
					Name:     strings.TrimPrefix(treesitterhelper.GetNodeText(nameExpr, r.content), "\\"),
					Type:     LiteralType(valueExpr),
					Value:    r.text(valueExpr),
					Location: r.location(node),
				})
			}
		}
	}

	r.readChildren(node)
}

func (r *reader) readAssignment(node *tree_sitter.Node) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")

	if function := r.nearestFunction(); function != nil && left != nil {
		switch left.Kind() {
		case "variable_name":
			varType := ""
			if doc := r.docComment(node.Parent()); doc != nil {
				if tag := doc.Var(r.text(left)); tag != nil {
					varType = r.docType(tag.Type)
				}
			}
			if varType == "" {
				varType = r.simpleType(right)
			}
			r.declareVariable(function, left, varType)
		case "list_literal", "array_creation_expression":
			for _, variable := range treesitterhelper.FindAll(left, treesitterhelper.PHPWriteTargetPattern, r.content) {
				r.declareVariable(function, variable, "")
			}
		}
	}

	r.readChildren(node)
}

func (r *reader) readForeach(node *tree_sitter.Node) {
	if function := r.nearestFunction(); function != nil {
		children := treesitterhelper.NamedChildren(node)
		if len(children) > 1 {
			for _, variable := range treesitterhelper.FindAll(children[1], treesitterhelper.PHPWriteTargetPattern, r.content) {
				r.declareVariable(function, variable, "")
			}
		}
	}

	r.readChildren(node)
}

func (r *reader) readCatch(node *tree_sitter.Node) {
	if function := r.nearestFunction(); function != nil {
		if name := node.ChildByFieldName("name"); name != nil {
			r.declareVariable(function, name, r.readType(node.ChildByFieldName("type")))
		}
	}

	r.readChildren(node.ChildByFieldName("body"))
}

// declareVariable records the first assignment of a local variable.
func (r *reader) declareVariable(function *Symbol, node *tree_sitter.Node, varType string) {
	name := r.text(node)
	if name == "" || name == "$this" || !strings.HasPrefix(name, "$") {
		return
	}
	if function.Child(KindParameter, name) != nil {
		return
	}
	if existing := function.Child(KindVariable, name); existing != nil {
		existing.Type = typestring.Merge(existing.Type, varType)
		return
	}

	function.Children = append(function.Children, &Symbol{
		Kind:     KindVariable,
		Name:     name,
		Type:     varType,
		Scope:    function.Name,
		Location: r.location(node),
	})
}

// simpleType infers the type of an expression without consulting other files.
func (r *reader) simpleType(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}

	if node.Kind() == "object_creation_expression" {
		for _, child := range treesitterhelper.NamedChildren(node) {
			switch child.Kind() {
			case "name", "qualified_name":
				return r.resolver.Resolve(r.text(child), KindClass)
			}
		}
		return ""
	}

	return LiteralType(node)
}

// readType converts a declared type node into a resolved type-string.
func (r *reader) readType(node *tree_sitter.Node) string {
	if node == nil || treesitterhelper.IsMalformed(node) {
		return ""
	}

	switch node.Kind() {
	case "primitive_type":
		return strings.ToLower(r.text(node))
	case "bottom_type":
		return "never"
	case "named_type":
		inner := node.NamedChild(0)
		if inner == nil {
			return r.resolver.Resolve(r.text(node), KindClass)
		}
		return r.readType(inner)
	case "name", "qualified_name", "relative_name":
		text := r.text(node)
		if typestring.IsKeyword(text) && !strings.EqualFold(text, "self") && !strings.EqualFold(text, "parent") {
			return strings.ToLower(text)
		}
		return r.resolver.Resolve(text, KindClass)
	case "optional_type":
		if inner := node.NamedChild(0); inner != nil {
			return typestring.Merge(r.readType(inner), "null")
		}
		return ""
	case "intersection_type":
		var parts []string
		for _, child := range treesitterhelper.NamedChildren(node) {
			parts = append(parts, r.readType(child))
		}
		return strings.Join(parts, "&")
	case "union_type", "type_list", "disjunctive_normal_form_type":
		result := ""
		for _, child := range treesitterhelper.NamedChildren(node) {
			result = typestring.Merge(result, r.readType(child))
		}
		return result
	}

	return r.resolver.ResolveType(typestring.Normalize(r.text(node)))
}

// LiteralType returns the type of a literal expression or "".
func LiteralType(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}

	switch node.Kind() {
	case "integer":
		return "int"
	case "float":
		return "float"
	case "string", "encapsed_string", "heredoc", "nowdoc", "shell_command_expression":
		return "string"
	case "boolean":
		return "bool"
	case "null":
		return "null"
	case "array_creation_expression":
		return "array"
	case "unary_op_expression", "parenthesized_expression":
		if inner := lastNamedChild(node); inner != nil {
			return LiteralType(inner)
		}
	}

	return ""
}

func lastNamedChild(node *tree_sitter.Node) *tree_sitter.Node {
	if node == nil || node.NamedChildCount() == 0 {
		return nil
	}
	return node.NamedChild(node.NamedChildCount() - 1)
}

func readModifiers(node *tree_sitter.Node, content []byte) Modifier {
	var modifiers Modifier

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child == nil {
			continue
		}

		switch child.Kind() {
		case "visibility_modifier":
			switch strings.ToLower(child.Utf8Text(content)) {
			case "public":
				modifiers |= ModifierPublic
			case "protected":
				modifiers |= ModifierProtected
			case "private":
				modifiers |= ModifierPrivate
			}
		case "var_modifier":
			modifiers |= ModifierPublic
		case "static_modifier":
			modifiers |= ModifierStatic
		case "abstract_modifier":
			modifiers |= ModifierAbstract
		case "final_modifier":
			modifiers |= ModifierFinal
		case "readonly_modifier":
			modifiers |= ModifierReadOnly
		}
	}

	return modifiers
}

func withDefaultVisibility(modifiers Modifier) Modifier {
	if modifiers.Visibility() == 0 {
		return modifiers | ModifierPublic
	}
	return modifiers
}

// genericDeclaredTypes are declared types a doc comment may refine.
var genericDeclaredTypes = map[string]bool{
	"array":    true,
	"iterable": true,
	"mixed":    true,
	"object":   true,
	"null":     true,
}

// preferDocType picks the doc type when the declared type is missing or only
// generic.
func preferDocType(declared, documented string) string {
	if documented == "" {
		return declared
	}
	if declared == "" {
		return documented
	}

	for _, atom := range typestring.Atoms(declared) {
		if !genericDeclaredTypes[strings.ToLower(atom)] {
			return declared
		}
	}

	return documented
}

func newDoc(description, docType string) *Doc {
	if description == "" && docType == "" {
		return nil
	}
	return &Doc{Description: description, Type: docType}
}
