package pattern

import (
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/syntax"
)

// Node kinds produced by FromSyntax.
const (
	KindModule        = "Module"
	KindAssign        = "Assign"
	KindExpr          = "Expr"
	KindName          = "Name"
	KindConstant      = "Constant"
	KindBinOp         = "BinOp"
	KindUnaryOp       = "UnaryOp"
	KindCall          = "Call"
	KindKeyword       = "Keyword"
	KindAttribute     = "Attribute"
	KindSubscript     = "Subscript"
	KindSlice         = "Slice"
	KindList          = "List"
	KindTuple         = "Tuple"
	KindDict          = "Dict"
	KindDictEntry     = "DictEntry"
	KindComprehension = "Comprehension"
	KindForClause     = "ForClause"
	KindIfClause      = "IfClause"
	KindFor           = "For"
	KindIf            = "If"
	KindWhile         = "While"
	KindDef           = "Def"
	KindLambda        = "Lambda"
	KindReturn        = "Return"
	KindCondExpr      = "CondExpr"
	KindBranch        = "Branch"
	KindLoad          = "Load"
)

// kindFields lists the fields each kind carries. Descriptors are validated against it.
var kindFields = map[string][]string{
	KindModule:        {"body"},
	KindAssign:        {"op", "target", "value"},
	KindExpr:          {"value"},
	KindName:          {"id"},
	KindConstant:      {"type", "value"},
	KindBinOp:         {"op", "left", "right"},
	KindUnaryOp:       {"op", "operand"},
	KindCall:          {"func", "args"},
	KindKeyword:       {"name", "value"},
	KindAttribute:     {"value", "attr"},
	KindSubscript:     {"value", "index"},
	KindSlice:         {"value", "lo", "hi", "step"},
	KindList:          {"elts"},
	KindTuple:         {"elts"},
	KindDict:          {"items"},
	KindDictEntry:     {"key", "value"},
	KindComprehension: {"kind", "body", "clauses"},
	KindForClause:     {"target", "iter"},
	KindIfClause:      {"cond"},
	KindFor:           {"target", "iter", "body"},
	KindIf:            {"cond", "body", "orelse"},
	KindWhile:         {"cond", "body"},
	KindDef:           {"name", "params", "body"},
	KindLambda:        {"params", "body"},
	KindReturn:        {"value"},
	KindCondExpr:      {"cond", "then", "else"},
	KindBranch:        {"token"},
	KindLoad:          {"module", "names"},
}

// KnownKind reports whether kind is produced by FromSyntax.
func KnownKind(kind string) bool {
	_, ok := kindFields[kind]
	return ok
}

func knownField(kind, field string) bool {
	for _, f := range kindFields[kind] {
		if f == field {
			return true
		}
	}
	return false
}

// Node is an immutable, position-free view of a syntax tree node.
// Field values are scalars (string, int64, float64, bool), *Node, []*Node or nil.
type Node struct {
	Kind   string
	Fields map[string]any
}

// Field returns the named field value.
func (n *Node) Field(name string) (any, bool) {
	if n == nil {
		return nil, false
	}
	v, ok := n.Fields[name]
	return v, ok
}

// Child returns the named field when it holds a node.
func (n *Node) Child(name string) *Node {
	v, _ := n.Field(name)
	c, _ := v.(*Node)
	return c
}

// Children returns the named field when it holds a node list.
func (n *Node) Children(name string) []*Node {
	v, _ := n.Field(name)
	c, _ := v.([]*Node)
	return c
}

// String renders the node in a compact, deterministic form, e.g.
// Assign(op="=", target=Name(id="name"), value=Constant(type="string", value="Ann")).
func (n *Node) String() string {
	var b strings.Builder
	writeValue(&b, n)
	return b.String()
}

func writeValue(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("None")
	case *Node:
		if x == nil {
			b.WriteString("None")
			return
		}
		b.WriteString(x.Kind)
		b.WriteByte('(')
		keys := make([]string, 0, len(x.Fields))
		for k := range x.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteByte('=')
			writeValue(b, x.Fields[k])
		}
		b.WriteByte(')')
	case []*Node:
		b.WriteByte('[')
		for i, c := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, c)
		}
		b.WriteByte(']')
	case string:
		fmt.Fprintf(b, "%q", x)
	default:
		fmt.Fprintf(b, "%v", x)
	}
}

func node(kind string, kv ...any) *Node {
	n := &Node{Kind: kind, Fields: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		if c, ok := v.(*Node); ok && c == nil {
			v = nil
		}
		n.Fields[kv[i].(string)] = v
	}
	return n
}

// FromSyntax converts a parsed Starlark file into a Module node.
// It must be called before the file is resolved or executed.
func FromSyntax(f *syntax.File) *Node {
	return node(KindModule, "body", stmts(f.Stmts))
}

func stmts(list []syntax.Stmt) []*Node {
	out := make([]*Node, 0, len(list))
	for _, s := range list {
		out = append(out, stmt(s))
	}
	return out
}

func stmt(s syntax.Stmt) *Node {
	switch s := s.(type) {
	case *syntax.AssignStmt:
		return node(KindAssign, "op", s.Op.String(), "target", expr(s.LHS), "value", expr(s.RHS))
	case *syntax.ExprStmt:
		return node(KindExpr, "value", expr(s.X))
	case *syntax.BranchStmt:
		return node(KindBranch, "token", s.Token.String())
	case *syntax.DefStmt:
		return node(KindDef, "name", s.Name.Name, "params", exprs(s.Params), "body", stmts(s.Body))
	case *syntax.ForStmt:
		return node(KindFor, "target", expr(s.Vars), "iter", expr(s.X), "body", stmts(s.Body))
	case *syntax.WhileStmt:
		return node(KindWhile, "cond", expr(s.Cond), "body", stmts(s.Body))
	case *syntax.IfStmt:
		return node(KindIf, "cond", expr(s.Cond), "body", stmts(s.True), "orelse", stmts(s.False))
	case *syntax.ReturnStmt:
		return node(KindReturn, "value", expr(s.Result))
	case *syntax.LoadStmt:
		names := make([]*Node, 0, len(s.To))
		for _, id := range s.To {
			names = append(names, node(KindName, "id", id.Name))
		}
		module, _ := s.Module.Value.(string)
		return node(KindLoad, "module", module, "names", names)
	}
	return node(fmt.Sprintf("%T", s))
}

func exprs(list []syntax.Expr) []*Node {
	out := make([]*Node, 0, len(list))
	for _, e := range list {
		if n := expr(e); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// expr returns nil for an absent expression.
func expr(e syntax.Expr) *Node {
	switch e := e.(type) {
	case nil:
		return nil
	case *syntax.Ident:
		return node(KindName, "id", e.Name)
	case *syntax.Literal:
		return literal(e)
	case *syntax.ParenExpr:
		return expr(e.X)
	case *syntax.BinaryExpr:
		if e.Op == syntax.EQ {
			// Only reachable inside call arguments: f(name=value).
			if id, ok := e.X.(*syntax.Ident); ok {
				return node(KindKeyword, "name", id.Name, "value", expr(e.Y))
			}
		}
		return node(KindBinOp, "op", e.Op.String(), "left", expr(e.X), "right", expr(e.Y))
	case *syntax.UnaryExpr:
		return node(KindUnaryOp, "op", e.Op.String(), "operand", expr(e.X))
	case *syntax.CallExpr:
		return node(KindCall, "func", expr(e.Fn), "args", exprs(e.Args))
	case *syntax.DotExpr:
		return node(KindAttribute, "value", expr(e.X), "attr", e.Name.Name)
	case *syntax.IndexExpr:
		return node(KindSubscript, "value", expr(e.X), "index", expr(e.Y))
	case *syntax.SliceExpr:
		return node(KindSlice, "value", expr(e.X), "lo", expr(e.Lo), "hi", expr(e.Hi), "step", expr(e.Step))
	case *syntax.ListExpr:
		return node(KindList, "elts", exprs(e.List))
	case *syntax.TupleExpr:
		return node(KindTuple, "elts", exprs(e.List))
	case *syntax.DictExpr:
		return node(KindDict, "items", exprs(e.List))
	case *syntax.DictEntry:
		return node(KindDictEntry, "key", expr(e.Key), "value", expr(e.Value))
	case *syntax.CondExpr:
		return node(KindCondExpr, "cond", expr(e.Cond), "then", expr(e.True), "else", expr(e.False))
	case *syntax.LambdaExpr:
		return node(KindLambda, "params", exprs(e.Params), "body", expr(e.Body))
	case *syntax.Comprehension:
		kind := "list"
		if e.Curly {
			kind = "dict"
		}
		clauses := make([]*Node, 0, len(e.Clauses))
		for _, c := range e.Clauses {
			switch c := c.(type) {
			case *syntax.ForClause:
				clauses = append(clauses, node(KindForClause, "target", expr(c.Vars), "iter", expr(c.X)))
			case *syntax.IfClause:
				clauses = append(clauses, node(KindIfClause, "cond", expr(c.Cond)))
			}
		}
		return node(KindComprehension, "kind", kind, "body", expr(e.Body), "clauses", clauses)
	}
	return node(fmt.Sprintf("%T", e))
}

func literal(l *syntax.Literal) *Node {
	var typ string
	switch l.Token {
	case syntax.STRING:
		typ = "string"
	case syntax.BYTES:
		typ = "bytes"
	case syntax.INT:
		typ = "int"
	case syntax.FLOAT:
		typ = "float"
	default:
		typ = l.Token.String()
	}

	var value any
	switch v := l.Value.(type) {
	case string, int64, float64:
		value = v
	case fmt.Stringer:
		// *big.Int for integers that overflow int64.
		value = v.String()
	default:
		value = l.Raw
	}
	return node(KindConstant, "type", typ, "value", value)
}
