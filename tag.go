package fragcache

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const usingPrefix = "using="

// ExpireFunc rescales the expire time of a tag after it was validated.
type ExpireFunc func(seconds int, r Resolver) (int, error)

type TagOptions struct {
	// Versioning takes the last vary argument as the content version.
	Versioning bool
	// ResolveFragmentName treats an unquoted fragment name as a variable.
	ResolveFragmentName bool
	ExpireFunc          ExpireFunc
}

// Tag is a parsed cache directive:
//
//	<nodename> <expire|None> <fragment> [vary ...] [using=<backend>]
//
// Expressions are kept unresolved until Request is called with the render
// context.
type Tag struct {
	Nodename    string
	Expire      string
	Fragment    string
	FragmentVar bool
	VaryOn      []string
	Version     string
	HasVersion  bool
	Backend     string

	expireFunc ExpireFunc
}

// ParseTag parses the arguments that follow the directive name.
func ParseTag(nodename string, bits []string, opts TagOptions) (*Tag, error) {
	args := make([]string, 0, len(bits))
	var backend string
	for _, b := range bits {
		if v, ok := strings.CutPrefix(b, usingPrefix); ok {
			if s, ok := unquote(v); ok {
				v = s
			}
			backend = v
			continue
		}
		args = append(args, b)
	}
	if len(args) < 2 {
		return nil, &SyntaxError{Tag: nodename, Msg: "tag requires at least 2 arguments"}
	}

	t := &Tag{
		Nodename:   nodename,
		Expire:     args[0],
		Backend:    backend,
		expireFunc: opts.ExpireFunc,
	}

	name := args[1]
	if s, ok := unquote(name); ok {
		t.Fragment = s
	} else if strings.ContainsAny(name[:1], `"'`) || strings.ContainsAny(name[len(name)-1:], `"'`) {
		return nil, &SyntaxError{Tag: nodename, Msg: fmt.Sprintf("tag got an incoherent quoted fragment name: %s", name)}
	} else {
		t.Fragment = name
		t.FragmentVar = opts.ResolveFragmentName
	}

	vary := args[2:]
	if opts.Versioning && len(vary) > 0 {
		t.Version = vary[len(vary)-1]
		t.HasVersion = true
		vary = vary[:len(vary)-1]
	}
	t.VaryOn = append([]string(nil), vary...)
	return t, nil
}

// Request resolves the tag expressions against r.
func (t *Tag) Request(r Resolver) (Request, error) {
	req := Request{Nodename: t.Nodename, Backend: t.Backend}

	exp, err := t.expire(r)
	if err != nil {
		return Request{}, err
	}
	req.ExpireSeconds = exp

	req.FragmentName = t.Fragment
	if t.FragmentVar {
		v, err := t.resolve(t.Fragment, r)
		if err != nil {
			return Request{}, err
		}
		name, err := Stringify(v)
		if err != nil {
			return Request{}, &SyntaxError{Tag: t.Nodename, Msg: "tag got an invalid fragment name", Err: err}
		}
		req.FragmentName = name
	}

	req.VaryOn = make([]any, len(t.VaryOn))
	for i, expr := range t.VaryOn {
		v, err := t.resolve(expr, r)
		if err != nil {
			return Request{}, err
		}
		req.VaryOn[i] = v
	}

	if t.HasVersion {
		v, err := t.resolve(t.Version, r)
		if err != nil {
			return Request{}, err
		}
		s, err := Stringify(v)
		if err != nil {
			return Request{}, &SyntaxError{Tag: t.Nodename, Msg: "tag got an invalid version", Err: err}
		}
		req.Version = &s
	}
	return req, nil
}

func (t *Tag) resolve(expr string, r Resolver) (any, error) {
	v, err := resolveArg(expr, r)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, ErrVariableDoesNotExist) {
		return nil, &SyntaxError{Tag: t.Nodename, Msg: fmt.Sprintf("tag got an unknown variable: %s", expr), Err: err}
	}
	return nil, &SyntaxError{Tag: t.Nodename, Msg: fmt.Sprintf("tag could not resolve %s", expr), Err: err}
}

func (t *Tag) expire(r Resolver) (*int, error) {
	bad := func(v any) error {
		return &SyntaxError{Tag: t.Nodename, Msg: fmt.Sprintf("tag got a non-integer (or None) timeout value: %v", v)}
	}
	if _, err := strconv.ParseFloat(t.Expire, 64); err == nil {
		if _, err := strconv.Atoi(t.Expire); err != nil {
			return nil, bad(t.Expire)
		}
	}
	v, err := t.resolve(t.Expire, r)
	if err != nil {
		return nil, err
	}

	var n int
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int:
		n = x
	case int8:
		n = int(x)
	case int16:
		n = int(x)
	case int32:
		n = int(x)
	case int64:
		n = int(x)
	case uint:
		n = int(x)
	case uint8:
		n = int(x)
	case uint16:
		n = int(x)
	case uint32:
		n = int(x)
	case uint64:
		n = int(x)
	case float32:
		if float32(int(x)) != x {
			return nil, bad(x)
		}
		n = int(x)
	case float64:
		if math.Trunc(x) != x || math.IsInf(x, 0) {
			return nil, bad(x)
		}
		n = int(x)
	case string:
		n, err = strconv.Atoi(x)
		if err != nil {
			return nil, bad(strconv.Quote(x))
		}
	default:
		return nil, bad(v)
	}
	if n < 0 {
		return nil, bad(n)
	}
	if t.expireFunc != nil {
		n, err = t.expireFunc(n, r)
		if err != nil {
			return nil, &SyntaxError{Tag: t.Nodename, Msg: "tag could not compute expire time", Err: err}
		}
	}
	return &n, nil
}
