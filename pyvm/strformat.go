package pyvm

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/reusee/pyrun/pycode"
)

type formatSpec struct {
	fill      rune
	align     byte
	sign      byte
	alt       bool
	width     int
	grouping  byte
	precision int
	kind      byte
}

func invalidSpec() error {
	return NewError(ValueErrorClass, "Invalid format specifier")
}

func parseFormatSpec(s string) (formatSpec, error) {
	spec := formatSpec{
		fill:      ' ',
		precision: -1,
	}
	isAlign := func(c byte) bool {
		return c == '<' || c == '>' || c == '^' || c == '='
	}
	if r, size := utf8.DecodeRuneInString(s); size > 0 && size < len(s) && isAlign(s[size]) {
		spec.fill = r
		spec.align = s[size]
		s = s[size+1:]
	} else if s != "" && isAlign(s[0]) {
		spec.align = s[0]
		s = s[1:]
	}
	if s != "" && (s[0] == '+' || s[0] == '-' || s[0] == ' ') {
		spec.sign = s[0]
		s = s[1:]
	}
	if s != "" && s[0] == '#' {
		spec.alt = true
		s = s[1:]
	}
	if s != "" && s[0] == '0' {
		if spec.align == 0 {
			spec.fill = '0'
			spec.align = '='
		}
		s = s[1:]
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		spec.width, _ = strconv.Atoi(s[:i])
		s = s[i:]
	}
	if s != "" && (s[0] == ',' || s[0] == '_') {
		spec.grouping = s[0]
		s = s[1:]
	}
	if s != "" && s[0] == '.' {
		i = 1
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 1 {
			return spec, NewError(ValueErrorClass, "Format specifier missing precision")
		}
		spec.precision, _ = strconv.Atoi(s[1:i])
		s = s[i:]
	}
	switch len(s) {
	case 0:
	case 1:
		spec.kind = s[0]
	default:
		return spec, invalidSpec()
	}
	return spec, nil
}

func (spec formatSpec) pad(s string, defaultAlign byte) string {
	n := utf8.RuneCountInString(s)
	if n >= spec.width {
		return s
	}
	fill := strings.Repeat(string(spec.fill), spec.width-n)
	align := spec.align
	if align == 0 {
		align = defaultAlign
	}
	switch align {
	case '<':
		return s + fill
	case '^':
		left := (spec.width - n) / 2
		return strings.Repeat(string(spec.fill), left) + s + strings.Repeat(string(spec.fill), spec.width-n-left)
	case '=':
		if s != "" && (s[0] == '-' || s[0] == '+' || s[0] == ' ') {
			return s[:1] + fill + s[1:]
		}
		if len(s) > 1 && s[0] == '0' && strings.IndexByte("bBoOxX", s[1]) >= 0 {
			return s[:2] + fill + s[2:]
		}
		return fill + s
	}
	return fill + s
}

func groupDigits(digits string, sep byte, every int) string {
	if len(digits) <= every {
		return digits
	}
	var b strings.Builder
	head := len(digits) % every
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += every {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(digits[i : i+every])
	}
	return b.String()
}

func signPrefix(negative bool, sign byte) string {
	switch {
	case negative:
		return "-"
	case sign == '+':
		return "+"
	case sign == ' ':
		return " "
	}
	return ""
}

func (spec formatSpec) formatInt(n *big.Int) (string, error) {
	switch spec.kind {
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		f, _ := new(big.Float).SetInt(n).Float64()
		return spec.formatFloat(f)
	}
	if spec.precision >= 0 {
		return "", NewError(ValueErrorClass, "Precision not allowed in integer format specifier")
	}
	abs := new(big.Int).Abs(n)
	var digits, prefix string
	every := 3
	switch spec.kind {
	case 0, 'd', 'n':
		digits = abs.String()
	case 'b':
		digits, prefix, every = abs.Text(2), "0b", 4
	case 'o':
		digits, prefix, every = abs.Text(8), "0o", 4
	case 'x':
		digits, prefix, every = abs.Text(16), "0x", 4
	case 'X':
		digits, prefix, every = strings.ToUpper(abs.Text(16)), "0X", 4
	case 'c':
		if !n.IsInt64() || n.Int64() < 0 || n.Int64() > utf8.MaxRune {
			return "", NewError(OverflowErrorClass, "%s", "%c arg not in range(0x110000)")
		}
		return spec.pad(string(rune(n.Int64())), '<'), nil
	default:
		return "", NewError(ValueErrorClass, "Unknown format code '%c' for object of type 'int'", spec.kind)
	}
	if spec.grouping != 0 {
		digits = groupDigits(digits, spec.grouping, every)
	}
	if !spec.alt {
		prefix = ""
	}
	return spec.pad(signPrefix(n.Sign() < 0, spec.sign)+prefix+digits, '>'), nil
}

func (spec formatSpec) formatFloat(f float64) (string, error) {
	kind := spec.kind
	prec := spec.precision
	var body string
	negative := math.Signbit(f) && !math.IsNaN(f)
	abs := math.Abs(f)
	switch {
	case math.IsInf(f, 0), math.IsNaN(f):
		body = "inf"
		if math.IsNaN(f) {
			body = "nan"
		}
		if kind == 'E' || kind == 'F' || kind == 'G' {
			body = strings.ToUpper(body)
		}
		if kind == '%' {
			body += "%"
		}
		return spec.pad(signPrefix(negative, spec.sign)+body, '>'), nil
	}
	if prec < 0 && kind != 0 {
		prec = 6
	}
	switch kind {
	case 0:
		if prec < 0 {
			body = pycode.FormatFloat(abs)
		} else {
			body = strconv.FormatFloat(abs, 'g', max(prec, 1), 64)
			if !strings.ContainsAny(body, ".e") {
				body += ".0"
			}
		}
	case 'f', 'F':
		body = strconv.FormatFloat(abs, 'f', prec, 64)
	case 'e', 'E':
		body = strconv.FormatFloat(abs, 'e', prec, 64)
	case 'g', 'G', 'n':
		body = strconv.FormatFloat(abs, 'g', max(prec, 1), 64)
		if spec.alt && !strings.Contains(body, ".") {
			body += "."
		}
	case '%':
		body = strconv.FormatFloat(abs*100, 'f', prec, 64) + "%"
	default:
		return "", NewError(ValueErrorClass, "Unknown format code '%c' for object of type 'float'", kind)
	}
	if kind == 'E' || kind == 'G' {
		body = strings.ToUpper(body)
	}
	if spec.alt && (kind == 'f' || kind == 'F') && !strings.Contains(body, ".") {
		body += "."
	}
	if spec.grouping != 0 {
		end := strings.IndexAny(body, ".e%")
		if end < 0 {
			end = len(body)
		}
		body = groupDigits(body[:end], spec.grouping, 3) + body[end:]
	}
	return spec.pad(signPrefix(negative, spec.sign)+body, '>'), nil
}

func (spec formatSpec) formatStr(s string) (string, error) {
	if spec.kind != 0 && spec.kind != 's' {
		return "", NewError(ValueErrorClass, "Unknown format code '%c' for object of type 'str'", spec.kind)
	}
	if spec.sign != 0 {
		return "", NewError(ValueErrorClass, "Sign not allowed in string format specifier")
	}
	if spec.align == '=' {
		return "", NewError(ValueErrorClass, "'=' alignment not allowed in string format specifier")
	}
	if spec.precision >= 0 {
		runes := []rune(s)
		if len(runes) > spec.precision {
			s = string(runes[:spec.precision])
		}
	}
	return spec.pad(s, '<'), nil
}

// Format is format(v, spec).
func (e *Engine) Format(v Value, spec string) (string, error) {
	if m, ok := e.userSpecial(v, "__format__"); ok {
		ret, err := e.call(m, []Value{Str(spec)}, nil)
		if err != nil {
			return "", err
		}
		s, ok := ret.(Str)
		if !ok {
			return "", NewError(TypeErrorClass, "__format__ must return a str, not %s", TypeName(ret))
		}
		return string(s), nil
	}
	if spec == "" {
		return e.Str(v)
	}
	parsed, err := parseFormatSpec(spec)
	if err != nil {
		return "", err
	}
	switch v := v.(type) {
	case Str:
		return parsed.formatStr(string(v))
	case Bool, Int, *BigInt:
		return parsed.formatInt(toBig(v))
	case Float:
		return parsed.formatFloat(float64(v))
	}
	return "", NewError(TypeErrorClass, "unsupported format string passed to %s.__format__", TypeName(v))
}

// percentFormat implements str % args.
func (e *Engine) percentFormat(format string, args Value) (string, error) {
	var items []Value
	var mapping Value
	switch a := args.(type) {
	case Tuple:
		items = a
	case *Dict:
		mapping = a
		items = []Value{a}
	default:
		if _, ok := e.userSpecial(args, "__getitem__"); ok {
			mapping = args
		}
		items = []Value{args}
	}
	used := 0
	usedMapping := false
	next := func() (Value, error) {
		if used >= len(items) {
			return nil, NewError(TypeErrorClass, "not enough arguments for format string")
		}
		v := items[used]
		used++
		return v, nil
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return "", NewError(ValueErrorClass, "incomplete format")
		}
		var arg Value
		if format[i] == '(' {
			if mapping == nil {
				return "", NewError(TypeErrorClass, "format requires a mapping")
			}
			end := strings.IndexByte(format[i:], ')')
			if end < 0 {
				return "", NewError(ValueErrorClass, "incomplete format key")
			}
			v, err := e.GetItem(mapping, Str(format[i+1:i+end]))
			if err != nil {
				return "", err
			}
			arg = v
			usedMapping = true
			i += end + 1
		}
		spec := formatSpec{
			fill:      ' ',
			precision: -1,
		}
		left := false
		zero := false
	flags:
		for ; i < len(format); i++ {
			switch format[i] {
			case '-':
				left = true
			case '+':
				spec.sign = '+'
			case ' ':
				if spec.sign == 0 {
					spec.sign = ' '
				}
			case '#':
				spec.alt = true
			case '0':
				zero = true
			default:
				break flags
			}
		}
		readNumber := func() (int, error) {
			if i < len(format) && format[i] == '*' {
				i++
				v, err := next()
				if err != nil {
					return 0, err
				}
				n, ok := v.(Int)
				if !ok {
					return 0, NewError(TypeErrorClass, "* wants int")
				}
				return int(n), nil
			}
			j := i
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				i++
			}
			if j == i {
				return -1, nil
			}
			return strconv.Atoi(format[j:i])
		}
		width, err := readNumber()
		if err != nil {
			return "", err
		}
		if width < 0 && width != -1 {
			left = true
			width = -width
		}
		spec.width = max(width, 0)
		if i < len(format) && format[i] == '.' {
			i++
			prec, err := readNumber()
			if err != nil {
				return "", err
			}
			spec.precision = max(prec, 0)
		}
		for i < len(format) && strings.IndexByte("hlL", format[i]) >= 0 {
			i++
		}
		if i >= len(format) {
			return "", NewError(ValueErrorClass, "incomplete format")
		}
		conv := format[i]
		if conv == '%' {
			b.WriteByte('%')
			continue
		}
		if arg == nil {
			arg, err = next()
			if err != nil {
				return "", err
			}
		}
		switch {
		case left:
			spec.align = '<'
		case zero && strings.IndexByte("diouxXeEfFgG", conv) >= 0:
			spec.fill = '0'
			spec.align = '='
		default:
			spec.align = '>'
		}

		var s string
		switch conv {
		case 's', 'r', 'a':
			var err error
			switch conv {
			case 's':
				s, err = e.Str(arg)
			case 'r':
				s, err = e.Repr(arg)
			default:
				s, err = e.Ascii(arg)
			}
			if err != nil {
				return "", err
			}
			if spec.precision >= 0 {
				if runes := []rune(s); len(runes) > spec.precision {
					s = string(runes[:spec.precision])
				}
			}
			s = spec.pad(s, '>')
		case 'd', 'i', 'u', 'x', 'X', 'o':
			n, ok := percentInt(arg)
			if !ok {
				if conv == 'd' || conv == 'i' || conv == 'u' {
					return "", NewError(TypeErrorClass, "%%%c format: a number is required, not %s", conv, TypeName(arg))
				}
				return "", NewError(TypeErrorClass, "%%%c format: an integer is required, not %s", conv, TypeName(arg))
			}
			spec.kind = conv
			if conv == 'i' || conv == 'u' {
				spec.kind = 'd'
			}
			prec := spec.precision
			spec.precision = -1
			if prec > 0 {
				digits := new(big.Int).Abs(n).Text(10)
				if len(digits) < prec && spec.kind == 'd' {
					s = signPrefix(n.Sign() < 0, spec.sign) + strings.Repeat("0", prec-len(digits)) + digits
					s = spec.pad(s, '>')
					break
				}
			}
			s, err = spec.formatInt(n)
			if err != nil {
				return "", err
			}
		case 'e', 'E', 'f', 'F', 'g', 'G':
			f, ok := toFloat(arg)
			if !ok {
				return "", NewError(TypeErrorClass, "must be real number, not %s", TypeName(arg))
			}
			spec.kind = conv
			s, err = spec.formatFloat(f)
			if err != nil {
				return "", err
			}
		case 'c':
			switch a := arg.(type) {
			case Str:
				if utf8.RuneCountInString(string(a)) != 1 {
					return "", NewError(TypeErrorClass, "%s", "%c requires int or char")
				}
				s = string(a)
			case Int:
				s = string(rune(a))
			default:
				return "", NewError(TypeErrorClass, "%s", "%c requires int or char")
			}
			s = spec.pad(s, '>')
		default:
			return "", NewError(ValueErrorClass, "unsupported format character '%c' (0x%x) at index %d", conv, conv, i)
		}
		b.WriteString(s)
	}
	if !usedMapping && mapping == nil && used < len(items) {
		return "", NewError(TypeErrorClass, "not all arguments converted during string formatting")
	}
	return b.String(), nil
}

func percentInt(v Value) (*big.Int, bool) {
	switch v := v.(type) {
	case Bool, Int, *BigInt:
		return toBig(v), true
	case Float:
		if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
			return nil, false
		}
		n, _ := big.NewFloat(math.Trunc(float64(v))).Int(nil)
		return n, true
	}
	return nil, false
}

// strFormat implements str.format.
func (e *Engine) strFormat(format string, args []Value, kwargs *Dict) (string, error) {
	auto := 0
	manual := false
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch c {
		case '}':
			if i+1 < len(format) && format[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", NewError(ValueErrorClass, "Single '}' encountered in format string")
		case '{':
			if i+1 < len(format) && format[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
		default:
			b.WriteByte(c)
			continue
		}
		depth := 1
		j := i + 1
		for ; j < len(format) && depth > 0; j++ {
			switch format[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		if depth > 0 {
			return "", NewError(ValueErrorClass, "Single '{' encountered in format string")
		}
		field := format[i+1 : j-1]
		i = j - 1

		var conv byte
		var spec string
		if k := strings.IndexByte(field, ':'); k >= 0 {
			field, spec = field[:k], field[k+1:]
		}
		if k := strings.IndexByte(field, '!'); k >= 0 {
			if k+2 != len(field) {
				return "", NewError(ValueErrorClass, "expected ':' after conversion specifier")
			}
			conv = field[k+1]
			field = field[:k]
		}
		if strings.Contains(spec, "{") {
			expanded, err := e.strFormat(spec, args, kwargs)
			if err != nil {
				return "", err
			}
			spec = expanded
		}

		name := field
		rest := ""
		if k := strings.IndexAny(field, ".["); k >= 0 {
			name, rest = field[:k], field[k:]
		}
		var v Value
		switch {
		case name == "":
			if manual {
				return "", NewError(ValueErrorClass, "cannot switch from manual field specification to automatic field numbering")
			}
			if auto >= len(args) {
				return "", NewError(IndexErrorClass, "Replacement index %d out of range for positional args tuple", auto)
			}
			v = args[auto]
			auto++
		case name[0] >= '0' && name[0] <= '9':
			if auto > 0 {
				return "", NewError(ValueErrorClass, "cannot switch from automatic field numbering to manual field specification")
			}
			manual = true
			idx, err := strconv.Atoi(name)
			if err != nil {
				return "", invalidSpec()
			}
			if idx >= len(args) {
				return "", NewError(IndexErrorClass, "Replacement index %d out of range for positional args tuple", idx)
			}
			v = args[idx]
		default:
			got, ok := kwargs.GetStr(name)
			if !ok {
				return "", newException(KeyErrorClass, Str(name))
			}
			v = got
		}
		for rest != "" {
			if rest[0] == '.' {
				end := strings.IndexAny(rest[1:], ".[")
				if end < 0 {
					end = len(rest) - 1
				}
				attr, err := e.GetAttr(v, rest[1:1+end])
				if err != nil {
					return "", err
				}
				v = attr
				rest = rest[1+end:]
				continue
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", NewError(ValueErrorClass, "Missing ']' in format string")
			}
			keyText := rest[1:end]
			var key Value = Str(keyText)
			if n, err := strconv.Atoi(keyText); err == nil {
				key = Int(n)
			}
			item, err := e.GetItem(v, key)
			if err != nil {
				return "", err
			}
			v = item
			rest = rest[end+1:]
		}

		var err error
		switch conv {
		case 0:
		case 'r':
			var s string
			s, err = e.Repr(v)
			v = Str(s)
		case 's':
			var s string
			s, err = e.Str(v)
			v = Str(s)
		case 'a':
			var s string
			s, err = e.Ascii(v)
			v = Str(s)
		default:
			return "", NewError(ValueErrorClass, "Unknown conversion specifier %c", conv)
		}
		if err != nil {
			return "", err
		}
		s, err := e.Format(v, spec)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
