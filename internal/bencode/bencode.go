package bencode

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Format tokens. A value starts with a digit (byte string length), 'i'
// (integer), 'l' (list), or 'd' (dictionary); 'e' terminates integers,
// lists, and dictionaries; ':' separates a string length from its bytes.
const (
	delimToken   = ':'
	integerToken = 'i'
	listToken    = 'l'
	dictToken    = 'd'
	endToken     = 'e'
)

// Value is a bencode value: String, Integer, List, or Dict.
type Value interface {
	// encodeTo writes the canonical encoding of the value.
	encodeTo(w *bufio.Writer) error
}

// String is a bencode byte string. Torrent files store binary data
// (piece hashes) in byte strings, so the underlying type is []byte,
// not a Go string.
type String []byte

// Integer is a bencode integer. The format places no bound on magnitude,
// but 64 bits covers every field that appears in real metainfo files.
type Integer int64

// List is an ordered sequence of bencode values.
type List []Value

// Dict is a bencode dictionary. Keys are byte strings; values are any
// bencode value. Keys are stored as Go strings for map access and
// re-encoded as byte strings.
type Dict map[string]Value

// SyntaxError reports malformed bencode input, with the byte offset at
// which decoding failed.
type SyntaxError struct {
	// Offset is the position in the input stream where the error occurred.
	Offset int64

	// Msg describes what was wrong at that position.
	Msg string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("bencode: %s at offset %d", e.Msg, e.Offset)
}

// Decode reads a single bencode value from r. Trailing data after the
// value is left unread.
//
// IO failures are returned as-is (wrapped), so callers can distinguish
// them from *SyntaxError via errors.As.
func Decode(r io.Reader) (Value, error) {
	d := &decoder{r: bufio.NewReader(r)}
	return d.decodeAny()
}

// Encode writes the canonical encoding of v to w.
func Encode(w io.Writer, v Value) error {
	bw := bufio.NewWriter(w)
	if err := v.encodeTo(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// Marshal returns the canonical encoding of v as a byte slice.
func Marshal(v Value) ([]byte, error) {
	var buf writerBuffer
	bw := bufio.NewWriter(&buf)
	if err := v.encodeTo(bw); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// writerBuffer is a minimal io.Writer over a byte slice. bytes.Buffer
// would also work; this avoids the import for one method.
type writerBuffer struct{ b []byte }

func (w *writerBuffer) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// --- decoding ---

// decoder tracks the input stream and the current byte offset for
// error reporting.
type decoder struct {
	r      *bufio.Reader
	offset int64
}

func (d *decoder) syntaxErr(format string, args ...interface{}) error {
	return &SyntaxError{Offset: d.offset, Msg: fmt.Sprintf(format, args...)}
}

// readByte consumes one byte and advances the offset.
func (d *decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	d.offset++
	return b, nil
}

// peekByte looks at the next byte without consuming it.
func (d *decoder) peekByte() (byte, error) {
	buf, err := d.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// decodeAny dispatches on the leading token byte.
func (d *decoder) decodeAny() (Value, error) {
	b, err := d.peekByte()
	if err != nil {
		if err == io.EOF {
			return nil, d.syntaxErr("expected value, got end of input")
		}
		return nil, fmt.Errorf("bencode: read failed: %w", err)
	}

	switch {
	case b == integerToken:
		return d.decodeInteger()
	case b == listToken:
		return d.decodeList()
	case b == dictToken:
		return d.decodeDict()
	case b >= '0' && b <= '9':
		return d.decodeString()
	default:
		return nil, d.syntaxErr("unknown token %q", b)
	}
}

// decodeInteger parses "i<digits>e". Leading zeros and negative zero are
// rejected because they make the encoding ambiguous, which would break
// info-hash stability.
func (d *decoder) decodeInteger() (Value, error) {
	if _, err := d.readByte(); err != nil { // consume 'i'
		return nil, fmt.Errorf("bencode: read failed: %w", err)
	}

	digits, err := d.readUntil(endToken)
	if err != nil {
		return nil, err
	}
	s := string(digits)
	if s == "" {
		return nil, d.syntaxErr("empty integer")
	}
	if s == "-0" || (len(s) > 1 && s[0] == '0') || (len(s) > 2 && s[0] == '-' && s[1] == '0') {
		return nil, d.syntaxErr("non-canonical integer %q", s)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, d.syntaxErr("invalid integer %q", s)
	}
	return Integer(n), nil
}

// decodeString parses "<length>:<bytes>".
func (d *decoder) decodeString() (Value, error) {
	lengthDigits, err := d.readUntil(delimToken)
	if err != nil {
		return nil, err
	}

	length, err := strconv.ParseInt(string(lengthDigits), 10, 64)
	if err != nil || length < 0 {
		return nil, d.syntaxErr("invalid string length %q", lengthDigits)
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(d.r, buf)
	d.offset += int64(n)
	if err != nil {
		return nil, d.syntaxErr("string truncated: want %d bytes, got %d", length, n)
	}
	return String(buf), nil
}

// decodeList parses "l<values>e".
func (d *decoder) decodeList() (Value, error) {
	if _, err := d.readByte(); err != nil { // consume 'l'
		return nil, fmt.Errorf("bencode: read failed: %w", err)
	}

	list := List{}
	for {
		b, err := d.peekByte()
		if err != nil {
			return nil, d.syntaxErr("unterminated list")
		}
		if b == endToken {
			_, _ = d.readByte()
			return list, nil
		}

		item, err := d.decodeAny()
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
}

// decodeDict parses "d<key-value pairs>e". Keys must be byte strings.
// Key order is not enforced on input (some emitters in the wild produce
// unsorted dictionaries), but encoding always re-sorts.
func (d *decoder) decodeDict() (Value, error) {
	if _, err := d.readByte(); err != nil { // consume 'd'
		return nil, fmt.Errorf("bencode: read failed: %w", err)
	}

	dict := Dict{}
	for {
		b, err := d.peekByte()
		if err != nil {
			return nil, d.syntaxErr("unterminated dictionary")
		}
		if b == endToken {
			_, _ = d.readByte()
			return dict, nil
		}

		key, err := d.decodeAny()
		if err != nil {
			return nil, err
		}
		keyStr, ok := key.(String)
		if !ok {
			return nil, d.syntaxErr("dictionary key must be a byte string")
		}

		value, err := d.decodeAny()
		if err != nil {
			return nil, err
		}
		dict[string(keyStr)] = value
	}
}

// readUntil consumes bytes up to and including the delimiter, returning
// everything before it.
func (d *decoder) readUntil(delim byte) ([]byte, error) {
	data, err := d.r.ReadBytes(delim)
	d.offset += int64(len(data))
	if err != nil {
		return nil, d.syntaxErr("missing %q terminator", delim)
	}
	return data[:len(data)-1], nil
}

// --- encoding ---

func (s String) encodeTo(w *bufio.Writer) error {
	if _, err := w.WriteString(strconv.Itoa(len(s))); err != nil {
		return err
	}
	if err := w.WriteByte(delimToken); err != nil {
		return err
	}
	_, err := w.Write(s)
	return err
}

func (i Integer) encodeTo(w *bufio.Writer) error {
	if err := w.WriteByte(integerToken); err != nil {
		return err
	}
	if _, err := w.WriteString(strconv.FormatInt(int64(i), 10)); err != nil {
		return err
	}
	return w.WriteByte(endToken)
}

func (l List) encodeTo(w *bufio.Writer) error {
	if err := w.WriteByte(listToken); err != nil {
		return err
	}
	for _, v := range l {
		if err := v.encodeTo(w); err != nil {
			return err
		}
	}
	return w.WriteByte(endToken)
}

func (d Dict) encodeTo(w *bufio.Writer) error {
	if err := w.WriteByte(dictToken); err != nil {
		return err
	}

	// Canonical form requires keys in sorted byte order.
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := (String(k)).encodeTo(w); err != nil {
			return err
		}
		if err := d[k].encodeTo(w); err != nil {
			return err
		}
	}
	return w.WriteByte(endToken)
}

// --- Dict accessors ---

// GetString returns the byte-string value for key, as a Go string.
// The second return value reports whether the key was present with a
// string value.
func (d Dict) GetString(key string) (string, bool) {
	v, ok := d[key]
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// GetInt returns the integer value for key.
func (d Dict) GetInt(key string) (int64, bool) {
	v, ok := d[key]
	if !ok {
		return 0, false
	}
	i, ok := v.(Integer)
	return int64(i), ok
}

// GetList returns the list value for key.
func (d Dict) GetList(key string) (List, bool) {
	v, ok := d[key]
	if !ok {
		return nil, false
	}
	l, ok := v.(List)
	return l, ok
}

// GetDict returns the dictionary value for key.
func (d Dict) GetDict(key string) (Dict, bool) {
	v, ok := d[key]
	if !ok {
		return nil, false
	}
	sub, ok := v.(Dict)
	return sub, ok
}

// StringSlice converts a list of byte strings into a []string.
// Returns false if any element is not a byte string.
func (l List) StringSlice() ([]string, bool) {
	out := make([]string, 0, len(l))
	for _, v := range l {
		s, ok := v.(String)
		if !ok {
			return nil, false
		}
		out = append(out, string(s))
	}
	return out, true
}
