// Package signature derives callable signatures from bound method values.
//
// A supported callable takes an optional context.Context followed by at most
// one argument struct whose exported fields are the named parameters. A field
// is optional when it carries a `default` tag; string defaults are taken
// verbatim, every other type is parsed as YAML. A callable whose argument
// position is a plain map[string]any has no statically known parameter names:
// Inspect reports it as lenient (alongside ErrIntrospection) and callers skip
// strict validation for it.
package signature

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/modelserve/internal/mapsafe"
)

var (
	ctxType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType    = reflect.TypeOf((*error)(nil)).Elem()
	rawMapType = reflect.TypeOf(map[string]any(nil))
)

type resultShape int

const (
	resultsNone resultShape = iota
	resultsValue
	resultsError
	resultsValueError
)

// Param describes a single named parameter of an inspected callable.
type Param struct {
	Name     string
	Type     reflect.Type
	Default  any
	Required bool

	index int // field index within the argument struct
}

// Info is the derived signature of a bound callable. It is computed once at
// mapping construction time and reused for every call.
type Info struct {
	Params  []Param
	Lenient bool
	Doc     string

	takesCtx bool
	argsType reflect.Type // argument struct type; nil when the callable takes none
	results  resultShape
}

// Inspect derives the signature of a bound callable. For callables with a
// dynamic parameter map it returns a lenient Info together with
// ErrIntrospection so callers can decide whether to keep the function with
// validation disabled.
func Inspect(fn reflect.Value) (*Info, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("signature: not a callable: %v", fn)
	}

	t := fn.Type()

	info := &Info{}
	switch t.NumOut() {
	case 0:
		info.results = resultsNone
	case 1:
		if t.Out(0) == errType {
			info.results = resultsError
		} else {
			info.results = resultsValue
		}
	case 2:
		if t.Out(1) != errType {
			return nil, fmt.Errorf("signature: second return value of %s must be error", t)
		}
		info.results = resultsValueError
	default:
		return nil, fmt.Errorf("signature: unsupported return values in %s", t)
	}

	if t.IsVariadic() {
		return nil, fmt.Errorf("signature: variadic callable %s: parameters carry no names", t)
	}

	in := 0
	if t.NumIn() > 0 && t.In(0) == ctxType {
		info.takesCtx = true
		in = 1
	}

	switch t.NumIn() - in {
	case 0:
		return info, nil
	case 1:
		at := t.In(in)
		if at == rawMapType {
			info.Lenient = true
			info.argsType = at
			return info, fmt.Errorf("signature: %s takes an opaque parameter map: %w", t, ErrIntrospection)
		}
		if at.Kind() != reflect.Struct {
			return nil, fmt.Errorf("signature: argument of %s must be a struct or map[string]any, got %s", t, at)
		}
		params, err := paramsOf(at)
		if err != nil {
			return nil, err
		}
		info.Params = params
		info.argsType = at
		return info, nil
	default:
		return nil, fmt.Errorf("signature: %s takes more than one argument struct", t)
	}
}

func paramsOf(st reflect.Type) ([]Param, error) {
	params := make([]Param, 0, st.NumField())

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.PkgPath != "" || f.Anonymous {
			continue // unexported and embedded fields are not parameters
		}

		name := fieldName(f)
		if name == "-" {
			continue
		}

		p := Param{Name: name, Type: f.Type, Required: true, index: i}
		if tag, ok := f.Tag.Lookup("default"); ok {
			def, err := parseDefault(tag, f.Type)
			if err != nil {
				return nil, fmt.Errorf("signature: bad default for parameter %q: %w", name, err)
			}
			p.Default = def
			p.Required = false
		}

		params = append(params, p)
	}

	return params, nil
}

func parseDefault(tag string, t reflect.Type) (any, error) {
	if t.Kind() == reflect.String {
		return tag, nil
	}

	out := reflect.New(t)
	if err := yaml.Unmarshal([]byte(tag), out.Interface()); err != nil {
		return nil, err
	}

	return out.Elem().Interface(), nil
}

func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok {
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name
		}
	}

	r, size := utf8.DecodeRuneInString(f.Name)
	return string(unicode.ToLower(r)) + f.Name[size:]
}

// Names returns the ordered parameter names.
func (i *Info) Names() []string {
	names := make([]string, len(i.Params))
	for n, p := range i.Params {
		names[n] = p.Name
	}

	return names
}

// RequiredNames returns the names of parameters without defaults.
func (i *Info) RequiredNames() []string {
	var names []string
	for _, p := range i.Params {
		if p.Required {
			names = append(names, p.Name)
		}
	}

	return names
}

// Validate checks a parameter map against the signature: every required name
// must be present and every provided name must be declared. Lenient
// signatures accept anything.
func (i *Info) Validate(params map[string]any) error {
	if i.Lenient {
		return nil
	}

	known := make(map[string]bool, len(i.Params))
	mismatch := &MismatchError{Expected: i.String()}

	for _, p := range i.Params {
		known[p.Name] = true
		if _, ok := params[p.Name]; p.Required && !ok {
			mismatch.Missing = append(mismatch.Missing, p.Name)
		}
	}
	for name := range params {
		if !known[name] {
			mismatch.Unknown = append(mismatch.Unknown, name)
		}
	}

	if len(mismatch.Missing) > 0 || len(mismatch.Unknown) > 0 {
		return mismatch
	}

	return nil
}

// String renders the signature in a human-readable form, e.g.
// (name string, suffix string = "!").
func (i *Info) String() string {
	if i.Lenient {
		return "(parameters map[string]any)"
	}

	parts := make([]string, len(i.Params))
	for n, p := range i.Params {
		parts[n] = fmt.Sprintf("%s %s", p.Name, p.Type)
		if !p.Required {
			if s, ok := p.Default.(string); ok {
				parts[n] += fmt.Sprintf(" = %q", s)
			} else {
				parts[n] += fmt.Sprintf(" = %v", p.Default)
			}
		}
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// Call invokes fn with parameters applied by name, merging declared defaults
// for omitted optional parameters. Validation is the caller's concern; a
// value that cannot be coerced to its parameter type fails with an error
// wrapping ErrBind.
func (i *Info) Call(ctx context.Context, fn reflect.Value, params map[string]any) (any, error) {
	in := make([]reflect.Value, 0, 2)
	if i.takesCtx {
		in = append(in, reflect.ValueOf(ctx))
	}

	switch {
	case i.Lenient:
		if params == nil {
			params = map[string]any{}
		}
		in = append(in, reflect.ValueOf(params))
	case i.argsType != nil:
		args := reflect.New(i.argsType).Elem()
		for _, p := range i.Params {
			if v, ok := params[p.Name]; ok {
				cv, err := mapsafe.Convert(v, p.Type)
				if err != nil {
					return nil, fmt.Errorf("%w %q: %v", ErrBind, p.Name, err)
				}
				args.Field(p.index).Set(cv)
			} else if p.Default != nil {
				args.Field(p.index).Set(reflect.ValueOf(p.Default))
			}
		}
		in = append(in, args)
	}

	out := fn.Call(in)

	switch i.results {
	case resultsNone:
		return nil, nil
	case resultsError:
		return nil, asError(out[0])
	case resultsValue:
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}

	return v.Interface().(error)
}
