package pyvm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type strMethod = func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error)

// strTransforms take no arguments and map the whole string.
var strTransforms = map[string]func(string) string{
	"upper": func(s string) string {
		return cases.Upper(language.Und).String(s)
	},
	"lower": func(s string) string {
		return cases.Lower(language.Und).String(s)
	},
	"title": func(s string) string {
		return cases.Title(language.Und).String(s)
	},
	"casefold": func(s string) string {
		return cases.Fold().String(s)
	},
	"swapcase": func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsUpper(r) {
				return unicode.ToLower(r)
			}
			return unicode.ToUpper(r)
		}, s)
	},
	"capitalize": func(s string) string {
		r, n := utf8.DecodeRuneInString(s)
		if n == 0 {
			return s
		}
		return string(unicode.ToTitle(r)) + cases.Lower(language.Und).String(s[n:])
	},
}

// strPredicates hold for non-empty strings whose every rune matches.
var strPredicates = map[string]func(rune) bool{
	"isdigit":   unicode.IsDigit,
	"isdecimal": unicode.IsDigit,
	"isnumeric": unicode.IsNumber,
	"isalpha":   unicode.IsLetter,
	"isspace":   unicode.IsSpace,
	"isalnum": func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsNumber(r)
	},
}

func init() {
	defineNew(StrClass, strNew)
	for name, fn := range strTransforms {
		defineMethod(StrClass, name, func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
			if err := argCount(name, args, kwargs, 0, 0); err != nil {
				return nil, err
			}
			return Str(fn(string(self))), nil
		})
	}
	for name, pred := range strPredicates {
		defineMethod(StrClass, name, func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
			if err := argCount(name, args, kwargs, 0, 0); err != nil {
				return nil, err
			}
			if self == "" {
				return False, nil
			}
			for _, r := range string(self) {
				if !pred(r) {
					return False, nil
				}
			}
			return True, nil
		})
	}
	for name, want := range map[string]bool{"isupper": true, "islower": false} {
		defineMethod(StrClass, name, func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
			if err := argCount(name, args, kwargs, 0, 0); err != nil {
				return nil, err
			}
			cased := false
			for _, r := range string(self) {
				if unicode.IsUpper(r) != want && (unicode.IsUpper(r) || unicode.IsLower(r)) {
					return False, nil
				}
				cased = cased || unicode.IsUpper(r) || unicode.IsLower(r)
			}
			return Bool(cased), nil
		})
	}

	methods := map[string]strMethod{
		"join":         strJoin,
		"split":        strSplit(false),
		"rsplit":       strSplit(true),
		"splitlines":   strSplitlines,
		"strip":        strStrip(true, true),
		"lstrip":       strStrip(true, false),
		"rstrip":       strStrip(false, true),
		"startswith":   strAffix("startswith", strings.HasPrefix),
		"endswith":     strAffix("endswith", strings.HasSuffix),
		"find":         strFind("find", false, false),
		"rfind":        strFind("rfind", true, false),
		"index":        strFind("index", false, true),
		"rindex":       strFind("rindex", true, true),
		"count":        strCount,
		"replace":      strReplace,
		"partition":    strPartition(false),
		"rpartition":   strPartition(true),
		"center":       strPad("center"),
		"ljust":        strPad("ljust"),
		"rjust":        strPad("rjust"),
		"zfill":        strZfill,
		"format":       strFormatMethod,
		"format_map":   strFormatMap,
		"encode":       strEncode,
		"isidentifier": strIsIdentifier,
	}
	for name, fn := range methods {
		defineMethod(StrClass, name, fn)
	}

	defineNew(BytesClass, bytesNew)
	defineMethod(BytesClass, "decode", func(e *Engine, self Bytes, args []Value, kwargs *Dict) (Value, error) {
		opts, err := unpackArgs("decode", args, kwargs, 0, "encoding", "errors")
		if err != nil {
			return nil, err
		}
		return decodeBytes(self, opts[0], opts[1])
	})
	defineMethod(BytesClass, "hex", func(e *Engine, self Bytes, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("hex", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		const digits = "0123456789abcdef"
		out := make([]byte, 0, len(self)*2)
		for _, c := range self {
			out = append(out, digits[c>>4], digits[c&0xf])
		}
		return Str(out), nil
	})
	defineMethod(BytesClass, "join", func(e *Engine, self Bytes, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("join", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		items, err := e.ToSlice(args[0])
		if err != nil {
			return nil, err
		}
		var out []byte
		for i, item := range items {
			b, ok := item.(Bytes)
			if !ok {
				return nil, NewError(TypeErrorClass, "sequence item %d: expected a bytes-like object, %s found", i, TypeName(item))
			}
			if i > 0 {
				out = append(out, self...)
			}
			out = append(out, b...)
		}
		return Bytes(out), nil
	})
}

func strNew(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("str", args, kwargs, 0, "object", "encoding", "errors")
	if err != nil {
		return nil, err
	}
	if opts[0] == nil {
		return Str(""), nil
	}
	if opts[1] != nil || opts[2] != nil {
		b, ok := opts[0].(Bytes)
		if !ok {
			return nil, NewError(TypeErrorClass, "decoding to str: need a bytes-like object, %s found", TypeName(opts[0]))
		}
		return decodeBytes(b, opts[1], opts[2])
	}
	s, err := e.Str(opts[0])
	return Str(s), err
}

func encodingName(v Value) (string, error) {
	if v == nil {
		return "utf-8", nil
	}
	s, ok := v.(Str)
	if !ok {
		return "", NewError(TypeErrorClass, "encoding must be str, not %s", TypeName(v))
	}
	name := strings.ReplaceAll(strings.ToLower(string(s)), "_", "-")
	switch name {
	case "utf-8", "utf8":
		return "utf-8", nil
	case "ascii", "us-ascii":
		return "ascii", nil
	case "latin-1", "latin1", "iso-8859-1":
		return "latin-1", nil
	}
	return "", NewError(LookupErrorClass, "unknown encoding: %s", string(s))
}

func strictErrors(v Value) bool {
	s, ok := v.(Str)
	return v == nil || !ok || s == "strict"
}

func decodeBytes(b Bytes, encoding, errorsArg Value) (Value, error) {
	enc, err := encodingName(encoding)
	if err != nil {
		return nil, err
	}
	var out strings.Builder
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case enc == "latin-1":
			out.WriteRune(rune(c))
			i++
			continue
		case enc == "ascii" && c < 0x80:
			out.WriteByte(c)
			i++
			continue
		case enc == "utf-8":
			r, n := utf8.DecodeRune(b[i:])
			if r != utf8.RuneError || n > 1 {
				out.WriteRune(r)
				i += n
				continue
			}
		}
		if strictErrors(errorsArg) {
			return nil, NewError(ValueErrorClass, "'%s' codec can't decode byte 0x%02x in position %d", enc, c, i)
		}
		if errorsArg == Str("replace") {
			out.WriteRune(utf8.RuneError)
		}
		i++
	}
	return Str(out.String()), nil
}

func strEncode(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("encode", args, kwargs, 0, "encoding", "errors")
	if err != nil {
		return nil, err
	}
	enc, err := encodingName(opts[0])
	if err != nil {
		return nil, err
	}
	if enc == "utf-8" {
		return Bytes(self), nil
	}
	limit := rune(0x7f)
	if enc == "latin-1" {
		limit = 0xff
	}
	var out []byte
	i := 0
	for _, r := range string(self) {
		switch {
		case r <= limit:
			out = append(out, byte(r))
		case strictErrors(opts[1]):
			return nil, NewError(ValueErrorClass, "'%s' codec can't encode character %s in position %d", enc, strings.Trim(reprSimple(Str(string(r))), "'"), i)
		case opts[1] == Str("replace"):
			out = append(out, '?')
		}
		i++
	}
	return Bytes(out), nil
}

func bytesNew(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("bytes", args, kwargs, 0, "source", "encoding", "errors")
	if err != nil {
		return nil, err
	}
	switch src := opts[0].(type) {
	case nil:
		return Bytes{}, nil
	case Str:
		if opts[1] == nil {
			return nil, NewError(TypeErrorClass, "string argument without an encoding")
		}
		return strEncode(e, src, nil, kwargsOf("encoding", opts[1], "errors", opts[2]))
	case Bytes:
		return src, nil
	case Bool, Int:
		n, _ := asInt64(src)
		if n < 0 {
			return nil, NewError(ValueErrorClass, "negative count")
		}
		if err := checkRepeat(1, n); err != nil {
			return nil, err
		}
		return make(Bytes, n), nil
	}
	items, err := e.ToSlice(opts[0])
	if err != nil {
		return nil, NewError(TypeErrorClass, "cannot convert '%s' object to bytes", TypeName(opts[0]))
	}
	out := make(Bytes, len(items))
	for i, item := range items {
		n, ok, err := e.Index(item)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewError(TypeErrorClass, "'%s' object cannot be interpreted as an integer", TypeName(item))
		}
		if n < 0 || n > 255 {
			return nil, NewError(ValueErrorClass, "bytes must be in range(0, 256)")
		}
		out[i] = byte(n)
	}
	return out, nil
}

// kwargsOf builds a keyword dict from name/value pairs, skipping nil values.
func kwargsOf(pairs ...any) *Dict {
	d := NewDict()
	for i := 0; i+1 < len(pairs); i += 2 {
		if v, _ := pairs[i+1].(Value); v != nil {
			d.SetStr(pairs[i].(string), v)
		}
	}
	return d
}

func strJoin(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("join", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	items, err := e.ToSlice(args[0])
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(Str)
		if !ok {
			return nil, NewError(TypeErrorClass, "sequence item %d: expected str instance, %s found", i, TypeName(item))
		}
		parts[i] = string(s)
	}
	return Str(strings.Join(parts, string(self))), nil
}

func strList(parts []string) *List {
	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = Str(p)
	}
	return NewList(items...)
}

// splitFields splits on whitespace runs; with fromRight it counts maxsplit from the end.
func splitFields(s string, maxsplit int, fromRight bool) []string {
	if maxsplit < 0 {
		return strings.Fields(s)
	}
	var parts []string
	if fromRight {
		rest := strings.TrimRightFunc(s, unicode.IsSpace)
		for len(parts) < maxsplit {
			i := strings.LastIndexFunc(rest, unicode.IsSpace)
			if i < 0 {
				break
			}
			_, n := utf8.DecodeRuneInString(rest[i:])
			parts = append(parts, rest[i+n:])
			rest = strings.TrimRightFunc(rest[:i], unicode.IsSpace)
		}
		if rest != "" {
			parts = append(parts, rest)
		}
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		return parts
	}
	rest := strings.TrimLeftFunc(s, unicode.IsSpace)
	for len(parts) < maxsplit {
		i := strings.IndexFunc(rest, unicode.IsSpace)
		if i < 0 {
			break
		}
		parts = append(parts, rest[:i])
		rest = strings.TrimLeftFunc(rest[i:], unicode.IsSpace)
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func strSplit(fromRight bool) strMethod {
	name := "split"
	if fromRight {
		name = "rsplit"
	}
	return func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
		opts, err := unpackArgs(name, args, kwargs, 0, "sep", "maxsplit")
		if err != nil {
			return nil, err
		}
		maxsplit := -1
		if opts[1] != nil {
			n, err := intArg(name, opts[1])
			if err != nil {
				return nil, err
			}
			maxsplit = int(n)
		}
		s := string(self)
		if opts[0] == nil || opts[0] == None {
			return strList(splitFields(s, maxsplit, fromRight)), nil
		}
		sep, err := strArg(name, opts[0])
		if err != nil {
			return nil, err
		}
		if sep == "" {
			return nil, NewError(ValueErrorClass, "empty separator")
		}
		if !fromRight || maxsplit < 0 {
			return strList(strings.SplitN(s, sep, maxsplit+boolInt(maxsplit >= 0))), nil
		}
		var parts []string
		for len(parts) < maxsplit {
			i := strings.LastIndex(s, sep)
			if i < 0 {
				break
			}
			parts = append(parts, s[i+len(sep):])
			s = s[:i]
		}
		parts = append(parts, s)
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		return strList(parts), nil
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func strSplitlines(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("splitlines", args, kwargs, 0, "keepends")
	if err != nil {
		return nil, err
	}
	keep := false
	if opts[0] != nil {
		if keep, err = e.Truth(opts[0]); err != nil {
			return nil, err
		}
	}
	s := string(self)
	var parts []string
	for s != "" {
		i := strings.IndexAny(s, "\n\r")
		if i < 0 {
			parts = append(parts, s)
			break
		}
		end := i + 1
		if s[i] == '\r' && end < len(s) && s[end] == '\n' {
			end++
		}
		if keep {
			parts = append(parts, s[:end])
		} else {
			parts = append(parts, s[:i])
		}
		s = s[end:]
	}
	return strList(parts), nil
}

func strStrip(left, right bool) strMethod {
	return func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("strip", args, kwargs, 0, 1); err != nil {
			return nil, err
		}
		s := string(self)
		if len(args) == 0 || args[0] == None {
			if left {
				s = strings.TrimLeftFunc(s, unicode.IsSpace)
			}
			if right {
				s = strings.TrimRightFunc(s, unicode.IsSpace)
			}
			return Str(s), nil
		}
		chars, err := strArg("strip", args[0])
		if err != nil {
			return nil, err
		}
		if left {
			s = strings.TrimLeft(s, chars)
		}
		if right {
			s = strings.TrimRight(s, chars)
		}
		return Str(s), nil
	}
}

// strWindow applies optional start and end arguments, returning the
// selected substring and the rune offset it starts at. ok is false when
// start lies past end.
func (e *Engine) strWindow(s string, args []Value) (sub string, offset int, ok bool, err error) {
	runes := []rune(s)
	start, stop := 0, len(runes)
	bounds := []*int{&start, &stop}
	for i, arg := range args {
		if i >= 2 || arg == None {
			continue
		}
		n, isInt, err := e.Index(arg)
		if err != nil {
			return "", 0, false, err
		}
		if !isInt {
			return "", 0, false, NewError(TypeErrorClass, "slice indices must be integers or None or have an __index__ method")
		}
		if n < 0 {
			n += int64(len(runes))
		}
		*bounds[i] = int(max(0, min(n, int64(len(runes)))))
	}
	if start > stop {
		return "", start, false, nil
	}
	return string(runes[start:stop]), start, true, nil
}

func strAffix(name string, match func(s, affix string) bool) strMethod {
	return func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount(name, args, kwargs, 1, 3); err != nil {
			return nil, err
		}
		s, _, ok, err := e.strWindow(string(self), args[1:])
		if err != nil {
			return nil, err
		}
		if !ok {
			return False, nil
		}
		affixes := []Value{args[0]}
		if t, ok := args[0].(Tuple); ok {
			affixes = t
		}
		for _, a := range affixes {
			affix, ok := a.(Str)
			if !ok {
				return nil, NewError(TypeErrorClass, "%s first arg must be str or a tuple of str, not %s", name, TypeName(a))
			}
			if match(s, string(affix)) {
				return True, nil
			}
		}
		return False, nil
	}
}

func strFind(name string, fromRight, raise bool) strMethod {
	return func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount(name, args, kwargs, 1, 3); err != nil {
			return nil, err
		}
		sub, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		s, offset, ok, err := e.strWindow(string(self), args[1:])
		if err != nil {
			return nil, err
		}
		i := -1
		switch {
		case !ok:
		case fromRight:
			i = strings.LastIndex(s, sub)
		default:
			i = strings.Index(s, sub)
		}
		if i < 0 {
			if raise {
				return nil, NewError(ValueErrorClass, "substring not found")
			}
			return Int(-1), nil
		}
		return Int(offset + utf8.RuneCountInString(s[:i])), nil
	}
}

func strCount(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("count", args, kwargs, 1, 3); err != nil {
		return nil, err
	}
	sub, err := strArg("count", args[0])
	if err != nil {
		return nil, err
	}
	s, _, ok, err := e.strWindow(string(self), args[1:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return Int(0), nil
	}
	if sub == "" {
		return Int(utf8.RuneCountInString(s) + 1), nil
	}
	return Int(strings.Count(s, sub)), nil
}

func strReplace(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("replace", args, kwargs, 2, 3); err != nil {
		return nil, err
	}
	old, err := strArg("replace", args[0])
	if err != nil {
		return nil, err
	}
	repl, err := strArg("replace", args[1])
	if err != nil {
		return nil, err
	}
	n := int64(-1)
	if len(args) == 3 {
		if n, err = intArg("replace", args[2]); err != nil {
			return nil, err
		}
	}
	return Str(strings.Replace(string(self), old, repl, int(n))), nil
}

func strPartition(fromRight bool) strMethod {
	return func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("partition", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		sep, err := strArg("partition", args[0])
		if err != nil {
			return nil, err
		}
		if sep == "" {
			return nil, NewError(ValueErrorClass, "empty separator")
		}
		s := string(self)
		var i int
		if fromRight {
			i = strings.LastIndex(s, sep)
		} else {
			i = strings.Index(s, sep)
		}
		if i < 0 {
			if fromRight {
				return Tuple{Str(""), Str(""), self}, nil
			}
			return Tuple{self, Str(""), Str("")}, nil
		}
		return Tuple{Str(s[:i]), Str(sep), Str(s[i+len(sep):])}, nil
	}
}

func strPad(name string) strMethod {
	return func(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount(name, args, kwargs, 1, 2); err != nil {
			return nil, err
		}
		width, err := intArg(name, args[0])
		if err != nil {
			return nil, err
		}
		fill := " "
		if len(args) == 2 {
			f, ok := args[1].(Str)
			if !ok || utf8.RuneCountInString(string(f)) != 1 {
				return nil, NewError(TypeErrorClass, "The fill character must be exactly one character long")
			}
			fill = string(f)
		}
		s := string(self)
		n := int(width) - utf8.RuneCountInString(s)
		if n <= 0 {
			return self, nil
		}
		switch name {
		case "ljust":
			return Str(s + strings.Repeat(fill, n)), nil
		case "rjust":
			return Str(strings.Repeat(fill, n) + s), nil
		}
		left := n / 2
		if n%2 == 1 && int(width)%2 == 1 {
			left++
		}
		return Str(strings.Repeat(fill, left) + s + strings.Repeat(fill, n-left)), nil
	}
}

func strZfill(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("zfill", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	width, err := intArg("zfill", args[0])
	if err != nil {
		return nil, err
	}
	s := string(self)
	n := int(width) - utf8.RuneCountInString(s)
	if n <= 0 {
		return self, nil
	}
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}
	return Str(sign + strings.Repeat("0", n) + s), nil
}

func strFormatMethod(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
	s, err := e.strFormat(string(self), args, kwargs)
	return Str(s), err
}

func strFormatMap(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("format_map", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	d, ok := args[0].(*Dict)
	if !ok {
		return nil, NewError(TypeErrorClass, "format_map() argument must be a dict, not %s", TypeName(args[0]))
	}
	s, err := e.strFormat(string(self), nil, d)
	return Str(s), err
}

func strIsIdentifier(e *Engine, self Str, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("isidentifier", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	if self == "" {
		return False, nil
	}
	for i, r := range string(self) {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return False, nil
	}
	return True, nil
}
