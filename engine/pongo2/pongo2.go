// Package fragpongo registers the fragment cache directives with pongo2:
//
//	{% cache 300 "sidebar" user.id %} ... {% nocache %} ... {% endnocache %} ... {% endcache %}
//
// The regenerate and partial flags are read from the template context
// variables __regenerate__ and __partial__.
package fragpongo

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/unkn0wn-root/fragcache"
)

const (
	RegenerateVar = "__regenerate__"
	PartialVar    = "__partial__"
)

type Options struct {
	Name     string // default "cache"
	LiveName string // default "nocache"

	ExpireFunc fragcache.ExpireFunc
	// Context returns the context passed to the cache for one execution.
	// Defaults to context.Background.
	Context func(*pongo2.ExecutionContext) context.Context
}

// Register installs the cache directive and its live-region directive in
// pongo2's global tag registry. Names must not be registered yet.
func Register(c fragcache.Cache, opts Options) error {
	if c == nil {
		return fmt.Errorf("fragpongo: nil cache")
	}
	opts.Name = coalesce(opts.Name, "cache")
	opts.LiveName = coalesce(opts.LiveName, "nocache")
	if opts.Context == nil {
		opts.Context = func(*pongo2.ExecutionContext) context.Context { return context.Background() }
	}

	tagOpts := c.Settings().TagOptions()
	tagOpts.ExpireFunc = opts.ExpireFunc

	if err := pongo2.RegisterTag(opts.Name, cacheParser(c, tagOpts, opts)); err != nil {
		return err
	}
	return pongo2.RegisterTag(opts.LiveName, liveParser(c, opts.LiveName))
}

type cacheNode struct {
	cache   fragcache.Cache
	tag     *fragcache.Tag
	wrapper *pongo2.NodeWrapper
	start   *pongo2.Token
	ctxFn   func(*pongo2.ExecutionContext) context.Context
}

func cacheParser(c fragcache.Cache, tagOpts fragcache.TagOptions, opts Options) pongo2.TagParser {
	return func(doc *pongo2.Parser, start *pongo2.Token, arguments *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
		tag, err := fragcache.ParseTag(opts.Name, bits(consumeAll(arguments)), tagOpts)
		if err != nil {
			return nil, arguments.Error(err.Error(), start)
		}
		wrapper, endargs, perr := doc.WrapUntilTag("end" + opts.Name)
		if perr != nil {
			return nil, perr
		}
		if endargs.Remaining() > 0 {
			return nil, endargs.Error(fmt.Sprintf("'end%s' takes no arguments", opts.Name), nil)
		}
		return &cacheNode{cache: c, tag: tag, wrapper: wrapper, start: start, ctxFn: opts.Context}, nil
	}
}

func (n *cacheNode) Execute(ectx *pongo2.ExecutionContext, w pongo2.TemplateWriter) *pongo2.Error {
	vars := contextVars(ectx)
	req, err := n.tag.Request(fragcache.ContextResolver(vars))
	if err != nil {
		return ectx.OrigError(err, n.start)
	}
	req.Regenerate = truthy(vars[RegenerateVar])
	req.Partial = truthy(vars[PartialVar])

	out, err := n.cache.Render(n.ctxFn(ectx), req, &renderer{node: n, ectx: ectx, vars: vars})
	if err != nil {
		return ectx.OrigError(err, n.start)
	}
	if _, err := w.WriteString(out); err != nil {
		return ectx.OrigError(err, n.start)
	}
	return nil
}

type renderer struct {
	node *cacheNode
	ectx *pongo2.ExecutionContext
	vars pongo2.Context
}

func (r *renderer) RenderBody(context.Context) (string, error) {
	var buf bytes.Buffer
	if perr := r.node.wrapper.Execute(r.ectx, &buf); perr != nil {
		return "", perr
	}
	return buf.String(), nil
}

func (r *renderer) RenderSource(_ context.Context, src string) (string, error) {
	tpl, err := pongo2.FromString(src)
	if err != nil {
		return "", err
	}
	return tpl.Execute(r.vars)
}

// liveNode outputs its region as captured source between markers.
type liveNode struct {
	out string
}

func (n *liveNode) Execute(_ *pongo2.ExecutionContext, w pongo2.TemplateWriter) *pongo2.Error {
	_, err := w.WriteString(n.out)
	if err != nil {
		return &pongo2.Error{Sender: "fragpongo", OrigError: err}
	}
	return nil
}

func liveParser(c fragcache.Cache, name string) pongo2.TagParser {
	return func(doc *pongo2.Parser, start *pongo2.Token, arguments *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
		if arguments.Remaining() > 0 {
			return nil, arguments.Error(fmt.Sprintf("'%s' takes no arguments", name), start)
		}
		tokens, perr := captureUntil(doc, name, start)
		if perr != nil {
			return nil, perr
		}
		return &liveNode{out: c.Reconciler().Capture(tokens, nil)}, nil
	}
}

// captureUntil consumes doc up to and including the matching end tag and
// returns the consumed tokens converted back to template tokens.
func captureUntil(doc *pongo2.Parser, name string, start *pongo2.Token) ([]fragcache.Token, *pongo2.Error) {
	var out []fragcache.Token
	depth := 1
	for doc.Remaining() > 0 {
		t := doc.Current()
		doc.Consume()

		if t.Typ == pongo2.TokenHTML {
			out = append(out, fragcache.Token{Type: fragcache.TokenText, Contents: t.Val})
			continue
		}
		if t.Typ != pongo2.TokenSymbol {
			return nil, doc.Error(fmt.Sprintf("unexpected token %q in '%s'", t.Val, name), t)
		}

		var typ fragcache.TokenType
		var closer string
		switch {
		case strings.HasPrefix(t.Val, "{{"):
			typ, closer = fragcache.TokenVar, "}}"
		case strings.HasPrefix(t.Val, "{%"):
			typ, closer = fragcache.TokenBlock, "%}"
		default:
			return nil, doc.Error(fmt.Sprintf("unexpected symbol %q in '%s'", t.Val, name), t)
		}

		var inner []*pongo2.Token
		var end *pongo2.Token
		for doc.Remaining() > 0 {
			it := doc.Current()
			doc.Consume()
			if it.Typ == pongo2.TokenSymbol && strings.HasSuffix(it.Val, closer) {
				end = it
				break
			}
			inner = append(inner, it)
		}
		if end == nil {
			break
		}

		if typ == fragcache.TokenBlock && len(inner) > 0 {
			switch inner[0].Val {
			case name:
				depth++
			case "end" + name:
				depth--
				if depth == 0 {
					return out, nil
				}
			}
		}
		out = append(out, fragcache.Token{Type: typ, Contents: contents(t.Val, end.Val, inner)})
	}
	return nil, doc.Error(fmt.Sprintf("'%s' is missing its 'end%s'", name, name), start)
}

// contents rebuilds the text between the delimiters, keeping the
// whitespace-control dashes of "{%-" and "-%}" style symbols.
func contents(openSym, closeSym string, inner []*pongo2.Token) string {
	var b strings.Builder
	if strings.HasSuffix(openSym, "-") {
		b.WriteByte('-')
	}
	b.WriteByte(' ')
	b.WriteString(strings.Join(bits(inner), " "))
	b.WriteByte(' ')
	if strings.HasPrefix(closeSym, "-") {
		b.WriteByte('-')
	}
	return b.String()
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func consumeAll(p *pongo2.Parser) []*pongo2.Token {
	var out []*pongo2.Token
	for p.Remaining() > 0 {
		out = append(out, p.Current())
		p.Consume()
	}
	return out
}

// bits joins tokens into whitespace-separated arguments. Attribute access,
// keyword arguments, filters and a leading minus sign stay attached to
// their neighbours.
func bits(tokens []*pongo2.Token) []string {
	var out []string
	glue := false
	for _, t := range tokens {
		text := t.Val
		if t.Typ == pongo2.TokenString {
			text = `"` + stringEscaper.Replace(t.Val) + `"`
		}
		sym := ""
		if t.Typ == pongo2.TokenSymbol {
			sym = t.Val
		}
		attach := sym == "." || sym == "=" || sym == "|" || sym == ":"
		if len(out) > 0 && (glue || attach) {
			out[len(out)-1] += text
		} else {
			out = append(out, text)
		}
		glue = attach || (sym == "-" && len(out[len(out)-1]) == 1)
	}
	return out
}

// contextVars flattens the public and private variables of an execution,
// private ones winning.
func contextVars(ectx *pongo2.ExecutionContext) pongo2.Context {
	vars := make(pongo2.Context, len(ectx.Public)+len(ectx.Private))
	for k, v := range ectx.Public {
		vars[k] = v
	}
	for k, v := range ectx.Private {
		vars[k] = v
	}
	return vars
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	default:
		return true
	}
}

func coalesce(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
