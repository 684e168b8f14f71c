package jack

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the Jack programming language.
//
// A program is basically a container of classes (the only top-level object allowed)
// and the program is started by locating the Main class and executing its 'main' method.
// Other than classes the other 3 main constructs are:
// - Variables: to declare containers of value (also used for class' fields)
// - Subroutines: to declare containers of instruction (also used for class' methods)
// - Expressions: to perform a calculation that produces a result (arithmetic ops and so on...)
//
// Unlike a two-phase compiler a Jack class is never materialized as a full syntax tree: the
// CompilationEngine consumes a token stream and emits VM operations as it goes, so this file
// only carries the small vocabulary of enums and value types shared across that single pass.

// ----------------------------------------------------------------------------
// Subroutines

// SubroutineType distinguishes the three kinds of callable a class may declare, each
// requiring a different prologue to be emitted before its body.
type SubroutineType string

const (
	Method      SubroutineType = "method"      // Implicit 'this' argument, bound to an object instance
	Function    SubroutineType = "function"    // Plain static procedure, no implicit receiver
	Constructor SubroutineType = "constructor" // Allocates a new instance of the declaring class and returns it
)

// ----------------------------------------------------------------------------
// Expressions

// ExprType enumerates the binary and unary operators a Jack expression may apply.
type ExprType string

const (
	Plus     ExprType = "plus"
	Minus    ExprType = "minus" // Used both for subtraction (binary) and arithmetic negation (unary)
	Divide   ExprType = "divide"
	Multiply ExprType = "multiply"

	BoolOr  ExprType = "bool_or"
	BoolAnd ExprType = "bool_and"
	BoolNot ExprType = "bool_neg" // Unary only

	Equal     ExprType = "equal"
	LessThan  ExprType = "less_than"
	GreatThan ExprType = "greater_than"
)

// ----------------------------------------------------------------------------
// Variables

// Variable is a container of value that can be read/written through expressions/statements.
//
// The struct accommodates multiple configurations at the same time such as
// - Static & instanced fields for classes
// - Local variables and parameters for subroutines
type Variable struct {
	Name      string   // The var name, acts as identifier in the scope it is declared
	Type      VarType  // The variable type helps determine the scope of the variable
	DataType  DataType // The data type defines how to read or cast the value contained by the variable
	ClassName string   // The additional and specific class type if (DataType = Object)
}

type VarType string // Enum to manage the operation allowed for an VarType

const (
	Local     VarType = "local"
	Field     VarType = "field"
	Static    VarType = "static"
	Parameter VarType = "parameter"
)

type DataType string // Enum to manage the operation allowed for an DataType

const (
	Int    DataType = "int"
	Bool   DataType = "bool"
	Char   DataType = "char"
	Null   DataType = "null"
	String DataType = "string"
	Void   DataType = "void"
	Object DataType = "object"
)
