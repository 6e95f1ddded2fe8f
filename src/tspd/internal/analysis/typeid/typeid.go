// Package typeid projects semantic types to their wire representation.
package typeid

import (
	"strings"

	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/analysis/semantic"
	tspprotocol "github.com/uber/tsp-lsp/src/tspd/internal/protocol"
)

const (
	_maxDescriptionLength = 100
	_maxNameLength        = 50
	_unknownName          = "Unknown"
)

var (
	// wrapper noise removed from descriptions used as names
	_noise = []string{"NominalInstance(", "ClassLiteral(", "GenericAlias(", "builtins.", ")"}

	// builtin classes whose instances are named by the class, primitives and collections
	_namedBuiltins = map[string]bool{
		"int": true, "str": true, "float": true, "bool": true,
		"list": true, "dict": true, "tuple": true, "set": true,
	}
)

// Project converts a semantic type to its wire form. The result is a pure function of t.
func Project(t semantic.Type) entity.Type {
	category, flags := Classify(t)
	return entity.Type{
		Handle:     Handle(t),
		Category:   category,
		Flags:      flags,
		ModuleName: ModuleName(t),
		Decl:       Declaration(t),
		Name:       Name(t),
	}
}

// Handle folds the 64-bit hash of a type into an integer handle.
func Handle(t semantic.Type) entity.TypeHandle {
	return entity.IntHandle(int32(t.Hash()))
}

// Name returns the display name of a type.
func Name(t semantic.Type) string {
	switch t := t.(type) {
	case semantic.Literal:
		return t.Class().Name
	case semantic.None:
		return "None"
	case semantic.Instance:
		if t.Class.IsBuiltin() && _namedBuiltins[t.Class.Name] {
			return t.Class.Name
		}
		description := strings.ToLower(t.Describe())
		for _, guess := range []string{"list", "dict", "tuple"} {
			if strings.Contains(description, guess) {
				return guess
			}
		}
		return "object"
	case semantic.Function:
		return "function"
	case semantic.Union:
		return "Union"
	case semantic.Module:
		return "module"
	case semantic.Dynamic:
		return "Any"
	}

	description := t.Describe()
	if len(description) > _maxDescriptionLength {
		return _unknownName
	}
	for _, noise := range _noise {
		description = strings.ReplaceAll(description, noise, "")
	}
	description = strings.TrimSpace(description)
	if description == "" || len(description) > _maxNameLength {
		return _unknownName
	}
	return description
}

// Classify returns the category and flags of a type.
func Classify(t semantic.Type) (entity.TypeCategory, entity.TypeFlags) {
	switch t.(type) {
	case semantic.Function:
		return entity.TypeCategoryFunction, entity.TypeFlagsCallable
	case semantic.Instance:
		return entity.TypeCategoryClass, entity.TypeFlagsInstantiable
	case semantic.Module:
		return entity.TypeCategoryModule, entity.TypeFlagsNone
	case semantic.Union:
		return entity.TypeCategoryUnion, entity.TypeFlagsNone
	case semantic.Literal:
		return entity.TypeCategoryAny, entity.TypeFlagsLiteral
	default:
		return entity.TypeCategoryAny, entity.TypeFlagsNone
	}
}

// TypeArgs returns the type arguments of a type. Only unions have arguments: their elements
// in order.
func TypeArgs(t semantic.Type) []semantic.Type {
	if u, ok := t.(semantic.Union); ok {
		return append([]semantic.Type(nil), u.Elements...)
	}
	return []semantic.Type{}
}

// ModuleName returns the module a type comes from, if known.
func ModuleName(t semantic.Type) *entity.ModuleName {
	var module string
	switch t := t.(type) {
	case semantic.Module:
		module = t.Name
	case semantic.Function:
		module = t.Module
	case semantic.ClassLiteral:
		module = t.Class.Module
	case semantic.Instance:
		if t.Class.Def != nil {
			module = t.Class.Module
		}
	}
	if module == "" {
		return nil
	}
	return &entity.ModuleName{NameParts: strings.Split(module, ".")}
}

// Declaration locates the definition of user defined functions and classes.
func Declaration(t semantic.Type) *entity.Declaration {
	var def *semantic.Definition
	switch t := t.(type) {
	case semantic.Function:
		def = t.Def
	case semantic.ClassLiteral:
		def = t.Class.Def
	}
	if def == nil || def.Document == nil || def.Document.Tree == nil {
		return nil
	}
	name := def.NameNode()
	if name == nil {
		return nil
	}

	src := def.Document.Tree.Source
	r, err := tspprotocol.NewTextOffsetMapper(src).OffsetRange(int(name.Start), int(name.End))
	if err != nil {
		return nil
	}
	return &entity.Declaration{
		URI:   def.Document.URI,
		Range: r,
		Name:  name.Text(src),
	}
}
