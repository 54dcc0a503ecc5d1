// Package asm checks generated ca65 source for the mistakes ca65 and ld65
// would reject late and with little context: duplicate labels, unbalanced
// .proc scopes, unknown mnemonics and references to symbols that are never
// defined.
package asm

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"nesgen/pkg/isa"
)

var (
	ErrSyntax          = errors.New("syntax error")
	ErrDuplicateLabel  = errors.New("duplicate label")
	ErrUndefinedSymbol = errors.New("undefined symbol")
	ErrUnbalancedProc  = errors.New("unbalanced .proc")
	ErrUnknownOp       = errors.New("unknown mnemonic")
)

var mnemonics = func() map[string]isa.Opcode {
	m := make(map[string]isa.Opcode)
	for _, op := range isa.Opcodes() {
		if name, err := op.Mnemonic(); err == nil {
			m[name] = op
		}
	}
	return m
}()

// Problem is one finding, tied to its 1-based source line.
type Problem struct {
	Line int
	Err  error
	Name string
}

func (p Problem) String() string {
	if p.Name == "" {
		return fmt.Sprintf("line %d: %v", p.Line, p.Err)
	}
	return fmt.Sprintf("line %d: %v '%s'", p.Line, p.Err, p.Name)
}

// Error collects every problem found in one source text.
type Error struct {
	Problems []Problem
}

func (e *Error) Error() string {
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = p.String()
	}
	return strings.Join(lines, "\n")
}

// Is matches any of the collected problem kinds.
func (e *Error) Is(target error) bool {
	for _, p := range e.Problems {
		if errors.Is(p.Err, target) {
			return true
		}
	}
	return false
}

type parsedLine struct {
	lineNo   int
	labels   []string
	symbol   string // left-hand side of NAME = value
	mnemonic string
	operands []string
}

// reference is a symbol use, resolved once the whole text has been read.
type reference struct {
	lineNo int
	name   string
	scope  string // enclosing .proc path
	cheap  int    // cheap-local scope at the point of use
}

type Checker struct {
	symbols  map[string]int // fully qualified name -> defining line
	cheap    map[string]int // "<scope id>:@name" -> defining line
	procs    []string
	cheapID  int
	refs     []reference
	problems []Problem
}

func NewChecker() *Checker {
	return &Checker{
		symbols: make(map[string]int),
		cheap:   make(map[string]int),
	}
}

// Check reports every problem in code, or nil when there are none.
func Check(code string) error {
	return NewChecker().Check(code)
}

func (c *Checker) Check(code string) error {
	for i, raw := range strings.Split(code, "\n") {
		c.line(raw, i+1)
	}
	for i := len(c.procs) - 1; i >= 0; i-- {
		c.report(0, ErrUnbalancedProc, c.procs[i])
	}
	c.resolve()
	if len(c.problems) == 0 {
		return nil
	}
	sort.SliceStable(c.problems, func(i, j int) bool { return c.problems[i].Line < c.problems[j].Line })
	return &Error{Problems: c.problems}
}

func (c *Checker) report(lineNo int, err error, name string) {
	c.problems = append(c.problems, Problem{Line: lineNo, Err: err, Name: name})
}

func (c *Checker) scope() string {
	return strings.Join(c.procs, "::")
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

func (c *Checker) define(lineNo int, name string) {
	if strings.HasPrefix(name, "@") {
		key := fmt.Sprintf("%d:%s", c.cheapID, name)
		if _, exists := c.cheap[key]; exists {
			c.report(lineNo, ErrDuplicateLabel, name)
			return
		}
		c.cheap[key] = lineNo
		return
	}
	key := qualify(c.scope(), name)
	if _, exists := c.symbols[key]; exists {
		c.report(lineNo, ErrDuplicateLabel, name)
		return
	}
	c.symbols[key] = lineNo
	// a normal label ends the cheap-local scope
	c.cheapID++
}

func (c *Checker) line(raw string, lineNo int) {
	p, err := parseLine(raw, lineNo)
	if err != nil {
		c.problems = append(c.problems, Problem{Line: lineNo, Err: err})
		return
	}
	for _, l := range p.labels {
		c.define(lineNo, l)
	}
	if p.symbol != "" {
		key := qualify(c.scope(), p.symbol)
		if _, exists := c.symbols[key]; exists {
			c.report(lineNo, ErrDuplicateLabel, p.symbol)
		} else {
			c.symbols[key] = lineNo
		}
		return
	}

	switch p.mnemonic {
	case "":
	case ".PROC":
		if len(p.operands) != 1 || !isIdentifier(p.operands[0]) {
			c.report(lineNo, ErrSyntax, ".proc")
			return
		}
		c.define(lineNo, p.operands[0])
		c.procs = append(c.procs, p.operands[0])
		c.cheapID++
	case ".ENDPROC":
		if len(c.procs) == 0 {
			c.report(lineNo, ErrUnbalancedProc, ".endproc")
			return
		}
		c.procs = c.procs[:len(c.procs)-1]
		c.cheapID++
	case ".WORD", ".ADDR":
		for _, o := range p.operands {
			c.use(lineNo, o)
		}
	case ".SEGMENT", ".BYTE", ".RES", ".INCBIN":
	default:
		if strings.HasPrefix(p.mnemonic, ".") {
			return
		}
		if _, ok := mnemonics[p.mnemonic]; !ok {
			c.report(lineNo, ErrUnknownOp, p.mnemonic)
			return
		}
		if len(p.operands) > 0 {
			c.use(lineNo, p.operands[0])
		}
	}
}

// use records the symbol an operand refers to, if any.
func (c *Checker) use(lineNo int, operand string) {
	name := operandSymbol(operand)
	if name == "" {
		return
	}
	c.refs = append(c.refs, reference{lineNo: lineNo, name: name, scope: c.scope(), cheap: c.cheapID})
}

func (c *Checker) resolve() {
	for _, r := range c.refs {
		if strings.HasPrefix(r.name, "@") {
			if _, ok := c.cheap[fmt.Sprintf("%d:%s", r.cheap, r.name)]; !ok {
				c.report(r.lineNo, ErrUndefinedSymbol, r.name)
			}
			continue
		}
		if !c.visible(r.scope, r.name) {
			c.report(r.lineNo, ErrUndefinedSymbol, r.name)
		}
	}
}

// visible looks name up in scope and then in each enclosing scope.
func (c *Checker) visible(scope, name string) bool {
	for {
		if _, ok := c.symbols[qualify(scope, name)]; ok {
			return true
		}
		if scope == "" {
			return false
		}
		if i := strings.LastIndex(scope, "::"); i >= 0 {
			scope = scope[:i]
		} else {
			scope = ""
		}
	}
}

// operandSymbol extracts the symbol named by an operand such as "#<table",
// "(ptr),Y" or "buffer,X". Numbers, the accumulator and empty operands name
// nothing.
func operandSymbol(operand string) string {
	s := strings.TrimSpace(operand)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimLeft(s, "<>(")
	if i := strings.IndexAny(s, ",)"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "A" {
		return ""
	}
	if strings.HasPrefix(s, "@") && isIdentifier(s[1:]) {
		return s
	}
	if isIdentifier(s) {
		return s
	}
	return ""
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}
		label := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(label, " \t\"") {
			break
		}
		if !isLabel(label) {
			return p, errors.Wrapf(ErrSyntax, "invalid label '%s'", label)
		}
		p.labels = append(p.labels, label)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	if eq := strings.IndexByte(line, '='); eq > 0 {
		name := strings.TrimSpace(line[:eq])
		if !isIdentifier(name) {
			return p, errors.Wrapf(ErrSyntax, "invalid symbol '%s'", name)
		}
		if strings.TrimSpace(line[eq+1:]) == "" {
			return p, errors.Wrapf(ErrSyntax, "symbol '%s' has no value", name)
		}
		p.symbol = name
		return p, nil
	}

	fields := strings.Fields(line)
	p.mnemonic = strings.ToUpper(fields[0])
	rest := strings.TrimSpace(line[len(fields[0]):])
	if rest == "" {
		return p, nil
	}
	if strings.HasPrefix(p.mnemonic, ".") {
		for _, o := range splitOperands(rest) {
			p.operands = append(p.operands, strings.TrimSpace(o))
		}
		return p, nil
	}
	p.operands = []string{rest}
	return p, nil
}

// splitOperands splits a directive's argument list on commas outside quotes.
func splitOperands(s string) []string {
	var out []string
	inQuote := false
	start := 0
	for i, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// stripComments cuts line at the first semicolon outside a string.
func stripComments(line string) string {
	inQuote := false
	for i, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return line[:i]
		}
	}
	return line
}

func isLabel(s string) bool {
	if strings.HasPrefix(s, "@") {
		return isIdentifier(s[1:])
	}
	return isIdentifier(s)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}
