// Package universe loads declarative descriptions of a type universe
// (classes, interfaces, enums, functions) and of expression units to
// compile against it. Files are TOML or YAML with the same schema.
package universe

// File is the decoded form of one universe file.
type File struct {
	Classes    []ClassSpec `toml:"class" yaml:"class"`
	Interfaces []ClassSpec `toml:"interface" yaml:"interface"`
	Enums      []EnumSpec  `toml:"enum" yaml:"enum"`
	Funcs      []FuncSpec  `toml:"func" yaml:"func"`
	Units      []UnitSpec  `toml:"unit" yaml:"unit"`
}

// GenericSpec declares a generic parameter. Bound is a type reference; a
// plain class C stands for [null to C]. Variance is "", "in" or "out".
type GenericSpec struct {
	Name     string `toml:"name" yaml:"name"`
	Bound    string `toml:"bound" yaml:"bound,omitempty"`
	Variance string `toml:"variance" yaml:"variance,omitempty"`
}

type FieldSpec struct {
	Name string `toml:"name" yaml:"name"`
	Type string `toml:"type" yaml:"type"`
}

type ParamSpec struct {
	Name     string `toml:"name" yaml:"name"`
	Type     string `toml:"type" yaml:"type"`
	Variadic bool   `toml:"variadic" yaml:"variadic,omitempty"`
}

// FuncSpec declares a function, method or constructor.
type FuncSpec struct {
	Name     string        `toml:"name" yaml:"name"`
	Generics []GenericSpec `toml:"generics" yaml:"generics,omitempty"`
	Params   []ParamSpec   `toml:"params" yaml:"params,omitempty"`
	Result   string        `toml:"result" yaml:"result,omitempty"`
	Static   bool          `toml:"static" yaml:"static,omitempty"`
}

// ClassSpec declares a class or an interface.
type ClassSpec struct {
	Name       string        `toml:"name" yaml:"name"`
	Parent     string        `toml:"parent" yaml:"parent,omitempty"`
	Interfaces []string      `toml:"interfaces" yaml:"interfaces,omitempty"`
	Generics   []GenericSpec `toml:"generics" yaml:"generics,omitempty"`
	Fields     []FieldSpec   `toml:"fields" yaml:"fields,omitempty"`
	Methods    []FuncSpec    `toml:"method" yaml:"method,omitempty"`
	Ctors      []FuncSpec    `toml:"ctor" yaml:"ctor,omitempty"`
}

type EnumValueSpec struct {
	Name  string `toml:"name" yaml:"name"`
	Value int64  `toml:"value" yaml:"value"`
}

type EnumSpec struct {
	Name   string          `toml:"name" yaml:"name"`
	Base   string          `toml:"base" yaml:"base,omitempty"`
	Values []EnumValueSpec `toml:"values" yaml:"values"`
}

type LocalSpec struct {
	Name string `toml:"name" yaml:"name"`
	Type string `toml:"type" yaml:"type"`
}

// UnitSpec is one compilation unit: an expression over typed locals.
// Expect names the diagnostic code (e.g. "SEM3011") the unit must fail
// with; empty means it must compile.
type UnitSpec struct {
	Name   string      `toml:"name" yaml:"name"`
	Locals []LocalSpec `toml:"locals" yaml:"locals,omitempty"`
	Stmt   bool        `toml:"stmt" yaml:"stmt,omitempty"`
	Expect string      `toml:"expect" yaml:"expect,omitempty"`
	Expr   ExprSpec    `toml:"expr" yaml:"expr"`
}

// ExprSpec is the struct form of an expression. Exactly one of the kind
// fields (a literal, Local, Field, Index, Op, Cast, Assign, Call, New,
// ClassOf) must be set.
type ExprSpec struct {
	Int   *int64   `toml:"int" yaml:"int,omitempty"`
	Float *float64 `toml:"float" yaml:"float,omitempty"`
	Str   *string  `toml:"str" yaml:"str,omitempty"`
	Bool  *bool    `toml:"bool" yaml:"bool,omitempty"`
	Null  bool     `toml:"null" yaml:"null,omitempty"`
	Enum  string   `toml:"enum" yaml:"enum,omitempty"`
	// Type overrides the primitive kind of a numeric literal.
	Type string `toml:"type" yaml:"type,omitempty"`

	Local string `toml:"local" yaml:"local,omitempty"`

	Object *ExprSpec `toml:"object" yaml:"object,omitempty"`
	Field  string    `toml:"field" yaml:"field,omitempty"`
	Index  *ExprSpec `toml:"index" yaml:"index,omitempty"`

	Op    string    `toml:"op" yaml:"op,omitempty"`
	Left  *ExprSpec `toml:"left" yaml:"left,omitempty"`
	Right *ExprSpec `toml:"right" yaml:"right,omitempty"`

	Cast  string    `toml:"cast" yaml:"cast,omitempty"`
	Force bool      `toml:"force" yaml:"force,omitempty"`
	Value *ExprSpec `toml:"value" yaml:"value,omitempty"`

	Assign *ExprSpec `toml:"assign" yaml:"assign,omitempty"`

	Call     string     `toml:"call" yaml:"call,omitempty"`
	Receiver *ExprSpec  `toml:"receiver" yaml:"receiver,omitempty"`
	Args     []ExprSpec `toml:"args" yaml:"args,omitempty"`

	New string `toml:"new" yaml:"new,omitempty"`

	ClassOf *ExprSpec `toml:"classof" yaml:"classof,omitempty"`
}
