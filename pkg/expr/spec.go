package expr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/tabula/pkg/domain"
)

// Spec is the declarative form of an expression used by recipes, CLI flags
// and MCP tool arguments. Exactly one of Function or Split must be set.
type Spec struct {
	Function string   `json:"function,omitempty" yaml:"function,omitempty" mapstructure:"function"`
	Args     []string `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
	// Value is the constant for Lit; when nil the single arg is used instead.
	Value     any    `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Split     string `json:"split,omitempty" yaml:"split,omitempty" mapstructure:"split"`
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty" mapstructure:"delimiter"`
}

var canonical = map[string]string{
	"col":          FnCol,
	"lit":          FnLit,
	"sha256":       FnSHA256,
	"sha512":       FnSHA512,
	"collectlist":  FnCollectList,
	"collect_list": FnCollectList,
	"collectset":   FnCollectSet,
	"collect_set":  FnCollectSet,
}

// FunctionName returns the engine spelling of a known function name, matched
// case-insensitively. Unknown names are returned unchanged.
func FunctionName(name string) string {
	if fn, ok := canonical[strings.ToLower(name)]; ok {
		return fn
	}
	return name
}

// Build turns the spec into an expression.
func (s Spec) Build() (Expr, error) {
	if s.Split != "" {
		if s.Function != "" {
			return nil, fmt.Errorf("%w: use either function or split, not both", domain.ErrInvalidExpression)
		}
		return SplitOn(s.Split, s.Delimiter), nil
	}
	if s.Function == "" {
		return nil, fmt.Errorf("%w: function or split is required", domain.ErrInvalidExpression)
	}

	name := FunctionName(s.Function)
	switch name {
	case FnLit:
		if s.Value != nil {
			return Literal(s.Value), nil
		}
		if len(s.Args) != 1 {
			return nil, fmt.Errorf("%w: Lit takes a value", domain.ErrInvalidExpression)
		}
		return Literal(LiteralValue(s.Args[0])), nil
	case FnCollectList, FnCollectSet:
		if len(s.Args) != 1 {
			return nil, fmt.Errorf("%w: %s takes exactly one column", domain.ErrInvalidExpression, name)
		}
		if name == FnCollectList {
			return CollectList(s.Args[0]), nil
		}
		return CollectSet(s.Args[0]), nil
	}
	e := Call(name, s.Args...)
	if err := Validate(e); err != nil {
		return nil, err
	}
	return e, nil
}

// LiteralValue decodes raw as JSON and falls back to the raw text, so "3"
// is a number and "north" is a string.
func LiteralValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// ParseSplit parses "column:delimiter". The delimiter may itself contain ':'.
func ParseSplit(raw string) (Split, error) {
	col, delim, ok := strings.Cut(raw, ":")
	if !ok || col == "" {
		return Split{}, errors.New("split must look like column:delimiter")
	}
	return SplitOn(col, delim), nil
}
