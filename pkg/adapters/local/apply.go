package local

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"strings"

	"github.com/aretw0/tabula/pkg/expr"
	"github.com/aretw0/tabula/pkg/registry"
)

// applyFunction derives target by evaluating the named function on each row.
// Names that are not built in are looked up in funcs.
func applyFunction(ctx context.Context, f *frame, funcs *registry.Registry, target, name string, args []string) (*frame, error) {
	var values []any
	switch name {
	case expr.FnCol:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes exactly one column, got %d", name, len(args))
		}
		src, err := f.column(args[0])
		if err != nil {
			return nil, err
		}
		values = append([]any(nil), src...)
	case expr.FnLit:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes exactly one value, got %d", name, len(args))
		}
		lit := literal(args[0])
		values = make([]any, f.Rows)
		for i := range values {
			values[i] = lit
		}
	case expr.FnSHA256:
		return digest(f, target, args, sha256.New)
	case expr.FnSHA512:
		return digest(f, target, args, sha512.New)
	default:
		if _, ok := funcs.Lookup(name); !ok {
			return nil, fmt.Errorf("unknown function %q", name)
		}
		return applyRegistered(ctx, f, funcs, target, name, args)
	}

	out := f.clone()
	out.set(target, values)
	return out, nil
}

// literal decodes a JSON-encoded literal, falling back to the raw text.
func literal(arg string) any {
	if !json.Valid([]byte(arg)) {
		return arg
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return arg
	}
	return normalize(v)
}

func digest(f *frame, target string, cols []string, newHash func() hash.Hash) (*frame, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("hash needs at least one column")
	}
	sources := make([][]any, len(cols))
	for i, c := range cols {
		src, err := f.column(c)
		if err != nil {
			return nil, err
		}
		sources[i] = src
	}

	values := make([]any, f.Rows)
	h := newHash()
	for r := range values {
		h.Reset()
		for _, src := range sources {
			h.Write([]byte(text(src[r])))
		}
		values[r] = hex.EncodeToString(h.Sum(nil))
	}

	out := f.clone()
	out.set(target, values)
	return out, nil
}

func applyRegistered(ctx context.Context, f *frame, funcs *registry.Registry, target, name string, cols []string) (*frame, error) {
	sources := make([][]any, len(cols))
	for i, c := range cols {
		src, err := f.column(c)
		if err != nil {
			return nil, err
		}
		sources[i] = src
	}
	rows := make([][]any, f.Rows)
	for r := range rows {
		row := make([]any, len(sources))
		for i, src := range sources {
			row[i] = src[r]
		}
		rows[r] = row
	}

	values, err := funcs.Apply(ctx, name, rows)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		values[i] = normalize(v)
	}

	out := f.clone()
	out.set(target, values)
	return out, nil
}

func applySplit(f *frame, target, source, delimiter string) (*frame, error) {
	src, err := f.column(source)
	if err != nil {
		return nil, err
	}
	values := make([]any, f.Rows)
	for i, v := range src {
		if v == nil {
			continue
		}
		parts := strings.Split(text(v), delimiter)
		list := make([]any, len(parts))
		for j, p := range parts {
			list[j] = p
		}
		values[i] = list
	}

	out := f.clone()
	out.set(target, values)
	return out, nil
}

// applyCollectList wraps each value of source in a single-element list.
func applyCollectList(f *frame, target, source string) (*frame, error) {
	src, err := f.column(source)
	if err != nil {
		return nil, err
	}
	values := make([]any, f.Rows)
	for i, v := range src {
		values[i] = []any{v}
	}

	out := f.clone()
	out.set(target, values)
	return out, nil
}

// applyCollectSet turns each value of source into a list without repeats.
// List values are deduplicated in order; scalars become a single-element list.
func applyCollectSet(f *frame, target, source string) (*frame, error) {
	src, err := f.column(source)
	if err != nil {
		return nil, err
	}
	values := make([]any, f.Rows)
	for i, v := range src {
		list, ok := v.([]any)
		if !ok {
			values[i] = []any{v}
			continue
		}
		seen := make(map[string]bool, len(list))
		set := make([]any, 0, len(list))
		for _, e := range list {
			k := key(e)
			if seen[k] {
				continue
			}
			seen[k] = true
			set = append(set, e)
		}
		values[i] = set
	}

	out := f.clone()
	out.set(target, values)
	return out, nil
}
