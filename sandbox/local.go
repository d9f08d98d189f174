package sandbox

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Local runs snippets in-process through a restricted evaluator. The language
// exposes numbers, strings, lists, assignment, print, a repeat loop, and an
// allow-list of builtins. There is no filesystem, process, or network surface
// to escape to. Development use only: Run refuses outright when the deployment
// environment is production.
type Local struct {
	// Environment is the deployment environment ("development", "production").
	Environment string
}

// NewLocal builds a local sandbox for the given deployment environment.
func NewLocal(environment string) *Local {
	return &Local{Environment: environment}
}

// Name implements Sandbox.
func (l *Local) Name() string { return "local" }

// Run implements Sandbox. The production refusal is a hard policy gate and is
// reported as a setup error, not an Execution.
func (l *Local) Run(ctx context.Context, code string, limits Limits) (*Execution, error) {
	if l.Environment == "production" {
		return nil, fmt.Errorf("sandbox: local execution is forbidden in production; configure the remote tier")
	}
	if limits.Timeout <= 0 {
		limits.Timeout = DefaultLimits().Timeout
	}
	if limits.MaxOutputBytes <= 0 {
		limits.MaxOutputBytes = DefaultLimits().MaxOutputBytes
	}
	if limits.MaxMemoryMB <= 0 {
		limits.MaxMemoryMB = DefaultLimits().MaxMemoryMB
	}

	runCtx, cancel := context.WithTimeout(ctx, limits.Timeout)
	defer cancel()

	start := time.Now()
	interp := &interpreter{
		ctx:       runCtx,
		vars:      map[string]any{},
		maxOutput: limits.MaxOutputBytes,
		maxAlloc:  limits.MaxMemoryMB * 1024 * 1024,
	}
	value, err := interp.run(code)
	exec := &Execution{
		Stdout:   interp.out.String(),
		Duration: time.Since(start),
	}
	switch {
	case err == nil:
		exec.Status = StatusCompleted
		exec.Value = value
	case err == errOutputCeiling:
		exec.Status = StatusResourceExceeded
		exec.Err = "output ceiling exceeded"
	case err == errMemoryCeiling:
		exec.Status = StatusResourceExceeded
		exec.Err = "memory ceiling exceeded"
	case runCtx.Err() != nil:
		exec.Status = StatusTimedOut
		exec.Err = "execution timeout exceeded"
	default:
		exec.Status = StatusErrored
		exec.Err = err.Error()
	}
	return exec, nil
}

var (
	errOutputCeiling = fmt.Errorf("output ceiling exceeded")
	errMemoryCeiling = fmt.Errorf("memory ceiling exceeded")
)

type interpreter struct {
	ctx       context.Context
	vars      map[string]any
	out       strings.Builder
	maxOutput int
	// maxAlloc caps the size of any single value in bytes. String
	// concatenation is the only unbounded growth path (literals and lists are
	// bounded by the snippet's own token count), so the cap is applied there.
	maxAlloc int

	toks []token
	pos  int
}

type token struct {
	kind string // ident, num, str, punct
	text string
}

func (in *interpreter) run(code string) (any, error) {
	toks, err := lex(code)
	if err != nil {
		return nil, err
	}
	in.toks, in.pos = toks, 0
	var last any
	for !in.atEnd() {
		v, err := in.statement()
		if err != nil {
			return nil, err
		}
		if v != nil {
			last = v
		}
	}
	return last, nil
}

func lex(code string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(code) {
		c := rune(code[i])
		switch {
		case c == '#': // comment to end of line
			for i < len(code) && code[i] != '\n' {
				i++
			}
		case unicode.IsSpace(c):
			i++
		case c == '"':
			j := i + 1
			for j < len(code) && code[j] != '"' {
				j++
			}
			if j >= len(code) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, token{"str", code[i+1 : j]})
			i = j + 1
		case unicode.IsDigit(c):
			j := i
			for j < len(code) && (unicode.IsDigit(rune(code[j])) || code[j] == '.') {
				j++
			}
			toks = append(toks, token{"num", code[i:j]})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(code) && (unicode.IsLetter(rune(code[j])) || unicode.IsDigit(rune(code[j])) || code[j] == '_') {
				j++
			}
			toks = append(toks, token{"ident", code[i:j]})
			i = j
		case strings.ContainsRune("=+-*/%(),[]{};", c):
			toks = append(toks, token{"punct", string(c)})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return toks, nil
}

func (in *interpreter) atEnd() bool { return in.pos >= len(in.toks) }

func (in *interpreter) peek() token {
	if in.atEnd() {
		return token{}
	}
	return in.toks[in.pos]
}

func (in *interpreter) next() token {
	t := in.peek()
	in.pos++
	return t
}

func (in *interpreter) expect(text string) error {
	t := in.next()
	if t.text != text {
		return fmt.Errorf("expected %q, got %q", text, t.text)
	}
	return nil
}

func (in *interpreter) statement() (any, error) {
	if err := in.ctx.Err(); err != nil {
		return nil, err
	}
	t := in.peek()

	if t.kind == "ident" && t.text == "repeat" {
		return nil, in.repeatBlock()
	}

	// assignment: ident = expr
	if t.kind == "ident" && in.pos+1 < len(in.toks) && in.toks[in.pos+1].text == "=" {
		name := in.next().text
		in.next() // =
		v, err := in.expression()
		if err != nil {
			return nil, err
		}
		in.vars[name] = v
		in.skipSemi()
		return nil, nil
	}

	v, err := in.expression()
	if err != nil {
		return nil, err
	}
	in.skipSemi()
	return v, nil
}

func (in *interpreter) skipSemi() {
	for in.peek().text == ";" {
		in.next()
	}
}

func (in *interpreter) repeatBlock() error {
	in.next() // repeat
	countVal, err := in.expression()
	if err != nil {
		return err
	}
	count, ok := countVal.(float64)
	if !ok || count < 0 {
		return fmt.Errorf("repeat count must be a non-negative number")
	}
	if err := in.expect("{"); err != nil {
		return err
	}
	bodyStart := in.pos
	depth := 1
	bodyEnd := in.pos
	for i := in.pos; i < len(in.toks); i++ {
		switch in.toks[i].text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				bodyEnd = i
			}
		}
		if depth == 0 {
			break
		}
	}
	if depth != 0 {
		return fmt.Errorf("unterminated repeat block")
	}
	for n := 0; n < int(count); n++ {
		if err := in.ctx.Err(); err != nil {
			return err
		}
		in.pos = bodyStart
		for in.pos < bodyEnd {
			if _, err := in.statement(); err != nil {
				return err
			}
		}
	}
	in.pos = bodyEnd + 1
	in.skipSemi()
	return nil
}

func (in *interpreter) expression() (any, error) {
	left, err := in.term()
	if err != nil {
		return nil, err
	}
	for in.peek().text == "+" || in.peek().text == "-" {
		op := in.next().text
		right, err := in.term()
		if err != nil {
			return nil, err
		}
		left, err = in.applyBinary(op, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (in *interpreter) term() (any, error) {
	left, err := in.factor()
	if err != nil {
		return nil, err
	}
	for in.peek().text == "*" || in.peek().text == "/" || in.peek().text == "%" {
		op := in.next().text
		right, err := in.factor()
		if err != nil {
			return nil, err
		}
		left, err = in.applyBinary(op, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (in *interpreter) factor() (any, error) {
	t := in.next()
	switch {
	case t.kind == "num":
		return strconv.ParseFloat(t.text, 64)
	case t.kind == "str":
		return t.text, nil
	case t.text == "(":
		v, err := in.expression()
		if err != nil {
			return nil, err
		}
		return v, in.expect(")")
	case t.text == "[":
		var items []any
		for in.peek().text != "]" {
			v, err := in.expression()
			if err != nil {
				return nil, err
			}
			items = append(items, v)
			if in.peek().text == "," {
				in.next()
			}
		}
		in.next() // ]
		return items, nil
	case t.kind == "ident":
		if in.peek().text == "(" {
			return in.call(t.text)
		}
		v, ok := in.vars[t.text]
		if !ok {
			return nil, fmt.Errorf("undefined variable %q", t.text)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

func (in *interpreter) call(name string) (any, error) {
	in.next() // (
	var args []any
	for in.peek().text != ")" {
		v, err := in.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		if in.peek().text == "," {
			in.next()
		}
	}
	if err := in.expect(")"); err != nil {
		return nil, err
	}
	return in.invoke(name, args)
}

// invoke dispatches the builtin allow-list. Nothing here touches the
// filesystem, spawns processes, or opens sockets.
func (in *interpreter) invoke(name string, args []any) (any, error) {
	num := func(i int) (float64, error) {
		if i >= len(args) {
			return 0, fmt.Errorf("%s: missing argument %d", name, i)
		}
		v, ok := args[i].(float64)
		if !ok {
			return 0, fmt.Errorf("%s: argument %d must be a number", name, i)
		}
		return v, nil
	}

	switch name {
	case "print":
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = format(a)
		}
		line := strings.Join(parts, " ") + "\n"
		if in.out.Len()+len(line) > in.maxOutput {
			return nil, errOutputCeiling
		}
		in.out.WriteString(line)
		return nil, nil
	case "abs":
		v, err := num(0)
		if err != nil {
			return nil, err
		}
		return math.Abs(v), nil
	case "sqrt":
		v, err := num(0)
		if err != nil {
			return nil, err
		}
		return math.Sqrt(v), nil
	case "round":
		v, err := num(0)
		if err != nil {
			return nil, err
		}
		return math.Round(v), nil
	case "min", "max":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: needs at least one argument", name)
		}
		best, err := num(0)
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(args); i++ {
			v, err := num(i)
			if err != nil {
				return nil, err
			}
			if (name == "min" && v < best) || (name == "max" && v > best) {
				best = v
			}
		}
		return best, nil
	case "sum":
		if len(args) == 1 {
			if list, ok := args[0].([]any); ok {
				args = list
			}
		}
		total := 0.0
		for i := range args {
			v, ok := args[i].(float64)
			if !ok {
				return nil, fmt.Errorf("sum: element %d is not a number", i)
			}
			total += v
		}
		return total, nil
	case "len":
		if len(args) != 1 {
			return nil, fmt.Errorf("len: needs exactly one argument")
		}
		switch v := args[0].(type) {
		case string:
			return float64(len(v)), nil
		case []any:
			return float64(len(v)), nil
		default:
			return nil, fmt.Errorf("len: unsupported type %T", v)
		}
	case "sleep":
		secs, err := num(0)
		if err != nil {
			return nil, err
		}
		select {
		case <-time.After(time.Duration(secs * float64(time.Second))):
			return nil, nil
		case <-in.ctx.Done():
			return nil, in.ctx.Err()
		}
	default:
		return nil, fmt.Errorf("unknown function %q", name)
	}
}

func (in *interpreter) applyBinary(op string, left, right any) (any, error) {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok && op == "+" {
			if in.maxAlloc > 0 && len(ls)+len(rs) > in.maxAlloc {
				return nil, errMemoryCeiling
			}
			return ls + rs, nil
		}
		return nil, fmt.Errorf("unsupported string operation %q", op)
	}
	l, lok := left.(float64)
	r, rok := right.(float64)
	if !lok || !rok {
		return nil, fmt.Errorf("operator %q needs numeric operands", op)
	}
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Mod(l, r), nil
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}

func format(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = format(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", t)
	}
}
