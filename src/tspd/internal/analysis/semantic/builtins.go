package semantic

// TypingModule is the module of typing special forms.
const TypingModule = "typing"

func builtinClass(name string) *Class {
	return &Class{Module: BuiltinsModule, Name: name}
}

// Builtin classes.
var (
	ClassInt        = builtinClass("int")
	ClassStr        = builtinClass("str")
	ClassFloat      = builtinClass("float")
	ClassBool       = builtinClass("bool")
	ClassBytes      = builtinClass("bytes")
	ClassComplex    = builtinClass("complex")
	ClassList       = builtinClass("list")
	ClassDict       = builtinClass("dict")
	ClassTuple      = builtinClass("tuple")
	ClassSet        = builtinClass("set")
	ClassFrozenSet  = builtinClass("frozenset")
	ClassObject     = builtinClass("object")
	ClassType       = builtinClass("type")
	ClassRange      = builtinClass("range")
	ClassDictKeys   = builtinClass("dict_keys")
	ClassDictValues = builtinClass("dict_values")
	ClassDictItems  = builtinClass("dict_items")
	ClassGenerator  = &Class{Module: TypingModule, Name: "Generator"}
	ClassTextIO     = &Class{Module: "io", Name: "TextIOWrapper"}
)

var _builtinClasses = map[string]*Class{}

func init() {
	for _, c := range []*Class{
		ClassInt, ClassStr, ClassFloat, ClassBool, ClassBytes, ClassComplex, ClassList, ClassDict,
		ClassTuple, ClassSet, ClassFrozenSet, ClassObject, ClassType, ClassRange,
	} {
		_builtinClasses[c.Name] = c
	}
}

// BuiltinClass returns the builtin class of the given name.
func BuiltinClass(name string) (*Class, bool) {
	c, ok := _builtinClasses[name]
	return c, ok
}

// CollectionClasses are the builtin collection classes.
var CollectionClasses = map[*Class]bool{
	ClassList:  true,
	ClassDict:  true,
	ClassTuple: true,
	ClassSet:   true,
}

func builtinFunction(name string, returns Type) Function {
	return Function{Name: name, Module: BuiltinsModule, Returns: returns}
}

var _builtinFunctions = map[string]Function{
	"len":        builtinFunction("len", Instance{Class: ClassInt}),
	"id":         builtinFunction("id", Instance{Class: ClassInt}),
	"hash":       builtinFunction("hash", Instance{Class: ClassInt}),
	"ord":        builtinFunction("ord", Instance{Class: ClassInt}),
	"round":      builtinFunction("round", Instance{Class: ClassInt}),
	"chr":        builtinFunction("chr", Instance{Class: ClassStr}),
	"repr":       builtinFunction("repr", Instance{Class: ClassStr}),
	"input":      builtinFunction("input", Instance{Class: ClassStr}),
	"format":     builtinFunction("format", Instance{Class: ClassStr}),
	"hex":        builtinFunction("hex", Instance{Class: ClassStr}),
	"oct":        builtinFunction("oct", Instance{Class: ClassStr}),
	"bin":        builtinFunction("bin", Instance{Class: ClassStr}),
	"isinstance": builtinFunction("isinstance", Instance{Class: ClassBool}),
	"issubclass": builtinFunction("issubclass", Instance{Class: ClassBool}),
	"callable":   builtinFunction("callable", Instance{Class: ClassBool}),
	"hasattr":    builtinFunction("hasattr", Instance{Class: ClassBool}),
	"any":        builtinFunction("any", Instance{Class: ClassBool}),
	"all":        builtinFunction("all", Instance{Class: ClassBool}),
	"print":      builtinFunction("print", None{}),
	"sorted":     builtinFunction("sorted", Instance{Class: ClassList}),
	"open":       builtinFunction("open", Instance{Class: ClassTextIO}),
	"getattr":    builtinFunction("getattr", Unknown),
}

// LookupBuiltin resolves a name in the builtins scope.
func LookupBuiltin(name string) (Type, bool) {
	if c, ok := _builtinClasses[name]; ok {
		return ClassLiteral{Class: c}, true
	}
	if f, ok := _builtinFunctions[name]; ok {
		return f, true
	}
	switch name {
	case "None":
		return None{}, true
	case "True", "False":
		return Literal{LitKind: LiteralBool, Value: name}, true
	}
	return nil, false
}

// methodResult computes the return type of a builtin method from the receiver.
type methodResult func(recv Instance) Type

func returns(t Type) methodResult {
	return func(Instance) Type { return t }
}

func receiver(recv Instance) Type { return recv }

func typeArg(i int) methodResult {
	return func(recv Instance) Type {
		if i < len(recv.Args) {
			return recv.Args[i]
		}
		return Unknown
	}
}

var (
	_str   = Instance{Class: ClassStr}
	_bytes = Instance{Class: ClassBytes}
	_int   = Instance{Class: ClassInt}
	_bool  = Instance{Class: ClassBool}
)

var _builtinMethods = map[*Class]map[string]methodResult{
	ClassStr: {
		"upper": returns(_str), "lower": returns(_str), "strip": returns(_str),
		"lstrip": returns(_str), "rstrip": returns(_str), "title": returns(_str),
		"capitalize": returns(_str), "replace": returns(_str), "join": returns(_str),
		"format": returns(_str),
		"isdigit": returns(_bool), "isalpha": returns(_bool), "isspace": returns(_bool),
		"isupper": returns(_bool), "islower": returns(_bool), "startswith": returns(_bool),
		"endswith": returns(_bool),
		"find": returns(_int), "index": returns(_int), "count": returns(_int),
		"split":      returns(Instance{Class: ClassList, Args: []Type{_str}}),
		"splitlines": returns(Instance{Class: ClassList, Args: []Type{_str}}),
		"encode":     returns(Instance{Class: ClassBytes}),
	},
	ClassList: {
		"append": returns(None{}), "extend": returns(None{}), "insert": returns(None{}),
		"remove": returns(None{}), "clear": returns(None{}), "sort": returns(None{}),
		"reverse": returns(None{}),
		"pop":     typeArg(0),
		"index":   returns(_int), "count": returns(_int),
		"copy": receiver,
	},
	ClassDict: {
		"keys":   func(recv Instance) Type { return Instance{Class: ClassDictKeys, Args: recv.Args} },
		"values": func(recv Instance) Type { return Instance{Class: ClassDictValues, Args: recv.Args} },
		"items":  func(recv Instance) Type { return Instance{Class: ClassDictItems, Args: recv.Args} },
		"get": func(recv Instance) Type {
			return NewUnion(typeArg(1)(recv), None{})
		},
		"pop":        typeArg(1),
		"setdefault": typeArg(1),
		"update":     returns(None{}), "clear": returns(None{}),
		"copy": receiver,
	},
	ClassSet: {
		"add": returns(None{}), "remove": returns(None{}), "discard": returns(None{}),
		"clear": returns(None{}),
		"union": receiver, "intersection": receiver, "difference": receiver, "copy": receiver,
	},
	ClassInt: {
		"bit_length": returns(_int),
	},
	ClassFloat: {
		"is_integer": returns(_bool),
	},
}

// builtinMethod returns the bound builtin method of an instance.
func builtinMethod(recv Instance, name string) (Type, bool) {
	methods, ok := _builtinMethods[recv.Class]
	if !ok {
		return nil, false
	}
	result, ok := methods[name]
	if !ok {
		return nil, false
	}
	return Function{
		Name:    recv.Class.Name + "." + name,
		Module:  BuiltinsModule,
		Returns: result(recv),
	}, true
}

// typingAliases maps typing special forms to the builtin classes they alias.
var typingAliases = map[string]*Class{
	"List":      ClassList,
	"Dict":      ClassDict,
	"Tuple":     ClassTuple,
	"Set":       ClassSet,
	"FrozenSet": ClassFrozenSet,
	"Type":      ClassType,
}

// typingForm returns the value of a name imported from typing.
func typingForm(name string) Type {
	return ClassLiteral{Class: &Class{Module: TypingModule, Name: name}}
}
