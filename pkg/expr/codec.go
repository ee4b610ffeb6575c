package expr

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tabula/pkg/domain"
)

// wire is the tagged JSON form shared by every expression kind.
type wire struct {
	Type      Tag      `json:"type"`
	Name      string   `json:"name,omitempty"`
	Args      []string `json:"args,omitempty"`
	Source    string   `json:"source,omitempty"`
	Delimiter string   `json:"delimiter,omitempty"`
}

// MarshalJSON encodes the call as {"type":"function","name":..,"args":[..]}.
func (f FunctionCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{Type: TagFunction, Name: f.Name, Args: f.Args})
}

// MarshalJSON encodes the split as {"type":"split","source":..,"delimiter":..}.
func (s Split) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{Type: TagSplit, Source: s.Source, Delimiter: s.Delimiter})
}

// Encode serializes any expression to its tagged JSON form.
func Encode(e Expr) ([]byte, error) {
	if err := Validate(e); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Decode parses a tagged JSON expression. Unknown tags are rejected with
// domain.ErrInvalidExpression.
func Decode(data []byte) (Expr, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidExpression, err)
	}

	var e Expr
	switch w.Type {
	case TagFunction:
		e = Call(w.Name, w.Args...)
	case TagSplit:
		e = SplitOn(w.Source, w.Delimiter)
	default:
		return nil, fmt.Errorf("%w: unknown tag %q", domain.ErrInvalidExpression, w.Type)
	}

	if err := Validate(e); err != nil {
		return nil, err
	}
	return e, nil
}
