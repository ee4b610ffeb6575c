package expr

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tabula/pkg/domain"
)

// Function names understood by the engine's function application.
const (
	FnCol         = "Col"
	FnLit         = "Lit"
	FnSHA256      = "SHA256"
	FnSHA512      = "SHA512"
	FnCollectList = "CollectList"
	FnCollectSet  = "CollectSet"
)

// Tag discriminates the concrete expression kinds on the wire.
type Tag string

const (
	TagFunction Tag = "function"
	TagSplit    Tag = "split"
)

// Expr is a column-producing operation. The set of implementations is closed:
// only FunctionCall and Split satisfy it.
type Expr interface {
	Tag() Tag
	isExpr()
}

// FunctionCall applies the named function to the given source columns.
type FunctionCall struct {
	Name string
	Args []string
}

// Tag implements Expr.
func (FunctionCall) Tag() Tag { return TagFunction }
func (FunctionCall) isExpr()  {}

// Split splits the values of Source by Delimiter.
type Split struct {
	Source    string
	Delimiter string
}

// Tag implements Expr.
func (Split) Tag() Tag { return TagSplit }
func (Split) isExpr()  {}

// Call builds a FunctionCall over one or more columns.
func Call(name string, columns ...string) FunctionCall {
	args := make([]string, len(columns))
	copy(args, columns)
	return FunctionCall{Name: name, Args: args}
}

// Column references an existing column.
func Column(name string) FunctionCall {
	return Call(FnCol, name)
}

// Literal produces a constant column. The value travels as its JSON encoding
// so numbers and booleans keep their type; values that cannot be encoded fall
// back to their fmt representation.
func Literal(value any) FunctionCall {
	b, err := json.Marshal(value)
	if err != nil {
		return Call(FnLit, fmt.Sprintf("%q", fmt.Sprint(value)))
	}
	return Call(FnLit, string(b))
}

// SHA256 hashes the concatenated string values of the given columns.
func SHA256(columns ...string) FunctionCall {
	return Call(FnSHA256, columns...)
}

// SHA512 hashes the concatenated string values of the given columns.
func SHA512(columns ...string) FunctionCall {
	return Call(FnSHA512, columns...)
}

// CollectList gathers a column's values into a list.
func CollectList(column string) FunctionCall {
	return Call(FnCollectList, column)
}

// CollectSet gathers a column's distinct values into a set.
func CollectSet(column string) FunctionCall {
	return Call(FnCollectSet, column)
}

// SplitOn builds a Split expression.
func SplitOn(column, delimiter string) Split {
	return Split{Source: column, Delimiter: delimiter}
}

// Validate checks an expression before it reaches the engine: identifiers
// must not be empty, and the collect aggregations take exactly one column.
func Validate(e Expr) error {
	switch v := e.(type) {
	case FunctionCall:
		if v.Name == "" {
			return fmt.Errorf("%w: function name is empty", domain.ErrInvalidExpression)
		}
		if len(v.Args) == 0 {
			return fmt.Errorf("%w: %s takes at least one argument", domain.ErrInvalidExpression, v.Name)
		}
		if (v.Name == FnCollectList || v.Name == FnCollectSet) && len(v.Args) != 1 {
			return fmt.Errorf("%w: %s takes exactly one column, got %d", domain.ErrInvalidExpression, v.Name, len(v.Args))
		}
		for i, a := range v.Args {
			if a == "" && v.Name != FnLit {
				return fmt.Errorf("%w: %s argument %d is empty", domain.ErrInvalidExpression, v.Name, i)
			}
		}
		return nil
	case Split:
		if v.Source == "" {
			return fmt.Errorf("%w: split source is empty", domain.ErrInvalidExpression)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported expression %T", domain.ErrInvalidExpression, e)
	}
}

// String renders the expression in call notation, e.g. SHA256(a, b) or Split(tags, ",").
func String(e Expr) string {
	switch v := e.(type) {
	case FunctionCall:
		s := v.Name + "("
		for i, a := range v.Args {
			if i > 0 {
				s += ", "
			}
			s += a
		}
		return s + ")"
	case Split:
		return fmt.Sprintf("Split(%s, %q)", v.Source, v.Delimiter)
	}
	return fmt.Sprintf("<invalid %T>", e)
}
