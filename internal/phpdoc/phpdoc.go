// Package phpdoc parses PHP doc comments (/** ... */) into a description and
// the tags the symbol index consumes.
package phpdoc

import (
	"regexp"
	"strings"
)

// tagPattern matches a tag line such as "@param Foo $bar description"
// Captures the tag name and the remainder of the line
var tagPattern = regexp.MustCompile(`^@([a-zA-Z][a-zA-Z0-9_-]*)\s*(.*)$`)

// methodPattern matches the signature part of an @method tag after the
// optional static keyword and return type have been removed
// Captures the method name, the raw parameter list and the description
var methodPattern = regexp.MustCompile(`^([a-zA-Z_\x80-\xff][a-zA-Z0-9_\x80-\xff]*)\s*\(([^)]*)\)\s*(.*)$`)

// inheritDocPattern matches a description that only inherits documentation
var inheritDocPattern = regexp.MustCompile(`(?i)^\{?@inheritdoc\}?$`)

// Tag is one parsed doc tag.
type Tag struct {
	Name        string
	Type        string
	Variable    string
	Description string
	// IsStatic is set on @method tags declared with the static keyword
	IsStatic   bool
	Parameters []Parameter
}

// Parameter is one parameter of an @method tag.
type Parameter struct {
	Name         string
	Type         string
	DefaultValue string
	IsVariadic   bool
	IsReference  bool
}

// DocBlock is a parsed doc comment.
type DocBlock struct {
	Description string
	Tags        []Tag
}

// IsDocComment reports whether text is a /** doc comment.
func IsDocComment(text string) bool {
	return strings.HasPrefix(text, "/**") && strings.HasSuffix(text, "*/") && len(text) >= 5
}

// Parse parses a doc comment. It returns nil when text is not a doc comment.
func Parse(text string) *DocBlock {
	if !IsDocComment(text) {
		return nil
	}

	body := strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")
	lines := strings.Split(body, "\n")

	doc := &DocBlock{}
	var description []string
	var current *Tag

	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))

		match := tagPattern.FindStringSubmatch(line)
		if match == nil {
			if current != nil {
				if line != "" {
					current.Description = strings.TrimSpace(current.Description + " " + line)
				}
				continue
			}
			description = append(description, line)
			continue
		}

		tag := parseTag(strings.ToLower(match[1]), strings.TrimSpace(match[2]))
		doc.Tags = append(doc.Tags, tag)
		current = &doc.Tags[len(doc.Tags)-1]
	}

	doc.Description = strings.TrimSpace(strings.Join(description, "\n"))
	if doc.Description == "" && doc.Tag("inheritdoc") != nil {
		doc.Description = "@inheritdoc"
	}

	return doc
}

func parseTag(name, rest string) Tag {
	tag := Tag{Name: name}

	switch name {
	case "param", "property", "property-read", "property-write", "var":
		tag.Type, rest = splitType(rest)
		if strings.HasPrefix(tag.Type, "$") || strings.HasPrefix(tag.Type, "&$") || strings.HasPrefix(tag.Type, "...$") {
			// untyped: "@param $foo"
			rest = strings.TrimSpace(tag.Type + " " + rest)
			tag.Type = ""
		}
		tag.Variable, rest = splitVariable(rest)
		tag.Description = rest

	case "return", "throws":
		tag.Type, rest = splitType(rest)
		tag.Description = rest

	case "method":
		parseMethodTag(&tag, rest)

	default:
		tag.Description = rest
	}

	return tag
}

func parseMethodTag(tag *Tag, rest string) {
	if strings.HasPrefix(rest, "static ") {
		tag.IsStatic = true
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "static "))
	}

	match := methodPattern.FindStringSubmatch(rest)
	if match == nil {
		// return type first: "@method Foo bar()"
		tag.Type, rest = splitType(rest)
		match = methodPattern.FindStringSubmatch(rest)
	}
	if match == nil {
		tag.Description = rest
		return
	}

	tag.Variable = match[1]
	tag.Description = strings.TrimSpace(match[3])

	for _, raw := range splitParameters(match[2]) {
		if param, ok := parseMethodParameter(raw); ok {
			tag.Parameters = append(tag.Parameters, param)
		}
	}
}

func parseMethodParameter(raw string) (Parameter, bool) {
	var param Parameter

	if eq := strings.Index(raw, "="); eq >= 0 {
		param.DefaultValue = strings.TrimSpace(raw[eq+1:])
		raw = strings.TrimSpace(raw[:eq])
	}

	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return param, false
	}

	name := fields[len(fields)-1]
	if len(fields) > 1 {
		param.Type = strings.Join(fields[:len(fields)-1], " ")
	}

	if strings.HasPrefix(name, "...") {
		param.IsVariadic = true
		name = name[3:]
	}
	if strings.HasPrefix(name, "&") {
		param.IsReference = true
		name = name[1:]
	}
	if !strings.HasPrefix(name, "$") {
		return param, false
	}

	param.Name = name
	return param, true
}

// splitParameters splits a parameter list on commas that are not nested in
// brackets.
func splitParameters(list string) []string {
	var params []string
	depth := 0
	start := 0

	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(', '<', '[', '{':
			depth++
		case ')', '>', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				params = append(params, strings.TrimSpace(list[start:i]))
				start = i + 1
			}
		}
	}

	if last := strings.TrimSpace(list[start:]); last != "" {
		params = append(params, last)
	}

	return params
}

// splitType returns the leading type expression of s and the remainder.
// Whitespace inside brackets belongs to the type.
func splitType(s string) (string, string) {
	s = strings.TrimSpace(s)
	depth := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '<', '{', '[':
			depth++
		case ')', '>', '}', ']':
			if depth > 0 {
				depth--
			}
		case ' ', '\t':
			if depth == 0 {
				// "Foo | Bar" keeps the union together
				rest := strings.TrimSpace(s[i:])
				if strings.HasPrefix(rest, "|") {
					continue
				}
				if i > 0 && s[i-1] == '|' {
					continue
				}
				return strings.ReplaceAll(s[:i], " ", ""), rest
			}
		}
	}

	return strings.ReplaceAll(s, " ", ""), ""
}

func splitVariable(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}

	name, rest, _ := strings.Cut(s, " ")
	name = strings.TrimPrefix(name, "...")
	name = strings.TrimPrefix(name, "&")
	if !strings.HasPrefix(name, "$") {
		return "", s
	}

	return name, strings.TrimSpace(rest)
}

// Tag returns the first tag named name.
func (d *DocBlock) Tag(name string) *Tag {
	if d == nil {
		return nil
	}
	for i := range d.Tags {
		if d.Tags[i].Name == name {
			return &d.Tags[i]
		}
	}
	return nil
}

// Param returns the @param tag for variable name ("$foo").
func (d *DocBlock) Param(name string) *Tag {
	if d == nil {
		return nil
	}
	for i := range d.Tags {
		if d.Tags[i].Name == "param" && d.Tags[i].Variable == name {
			return &d.Tags[i]
		}
	}
	return nil
}

// Return returns the @return tag.
func (d *DocBlock) Return() *Tag {
	return d.Tag("return")
}

// Var returns the @var tag for name, or the first @var tag without a variable
// when name is empty or not found.
func (d *DocBlock) Var(name string) *Tag {
	if d == nil {
		return nil
	}

	var untargeted *Tag
	for i := range d.Tags {
		tag := &d.Tags[i]
		if tag.Name != "var" {
			continue
		}
		if name != "" && tag.Variable == name {
			return tag
		}
		if tag.Variable == "" && untargeted == nil {
			untargeted = tag
		}
	}

	return untargeted
}

// Magic returns the @property, @property-read, @property-write and @method tags.
func (d *DocBlock) Magic() []Tag {
	if d == nil {
		return nil
	}

	var tags []Tag
	for _, tag := range d.Tags {
		switch tag.Name {
		case "property", "property-read", "property-write", "method":
			if tag.Variable != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// IsInheritDoc reports whether description only inherits the parent's documentation.
func IsInheritDoc(description string) bool {
	return inheritDocPattern.MatchString(strings.TrimSpace(description))
}
