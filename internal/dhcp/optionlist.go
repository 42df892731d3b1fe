package dhcp

import (
	"fmt"

	"github.com/dhcpdig/dhcpdig/pkg/dhcpv4"
)

// OptionList is an ordered collection of options holding at most one option
// per code. Order is significant: it determines wire layout. Writes that
// introduce a duplicate code remove the other instance; the write operation's
// target position always wins.
type OptionList struct {
	opts  []Option
	index map[dhcpv4.OptionCode]int
}

// NewOptionList builds a list from options in order. Later duplicates replace
// earlier ones in place, as with Append.
func NewOptionList(opts ...Option) *OptionList {
	l := &OptionList{index: make(map[dhcpv4.OptionCode]int)}
	for _, o := range opts {
		l.Append(o)
	}
	return l
}

// Len returns the number of options in the list.
func (l *OptionList) Len() int {
	return len(l.opts)
}

// At returns the option at position pos.
func (l *OptionList) At(pos int) (Option, bool) {
	if pos < 0 || pos >= len(l.opts) {
		return Option{}, false
	}
	return l.opts[pos], true
}

// ByCode returns the option with the given code.
func (l *OptionList) ByCode(code dhcpv4.OptionCode) (Option, bool) {
	i, ok := l.index[code]
	if !ok {
		return Option{}, false
	}
	return l.opts[i], true
}

// HasCode reports whether an option with the given code is present.
func (l *OptionList) HasCode(code dhcpv4.OptionCode) bool {
	_, ok := l.index[code]
	return ok
}

// Contains reports whether an option with identical wire bytes is present.
func (l *OptionList) Contains(opt Option) bool {
	i, ok := l.index[opt.Code]
	return ok && l.opts[i].Equal(opt)
}

// Append adds the option at the end. If the code is already present, the
// existing entry is replaced in place and keeps its position.
func (l *OptionList) Append(opt Option) {
	if i, ok := l.index[opt.Code]; ok {
		l.opts[i] = opt
		return
	}
	l.index[opt.Code] = len(l.opts)
	l.opts = append(l.opts, opt)
}

// Insert places the option at pos. Any other entry with the same code is
// removed first; pos then addresses the remaining entries. Positions past the
// end append.
func (l *OptionList) Insert(pos int, opt Option) {
	if i, ok := l.index[opt.Code]; ok {
		l.opts = append(l.opts[:i], l.opts[i+1:]...)
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.opts) {
		pos = len(l.opts)
	}
	l.opts = append(l.opts, Option{})
	copy(l.opts[pos+1:], l.opts[pos:])
	l.opts[pos] = opt
	l.reindex()
}

// SetAt replaces the entry at pos. If another entry elsewhere shares the new
// option's code, it is deleted; the target position wins.
func (l *OptionList) SetAt(pos int, opt Option) error {
	if pos < 0 || pos >= len(l.opts) {
		return fmt.Errorf("position %d out of range (0..%d)", pos, len(l.opts)-1)
	}
	l.opts[pos] = opt
	if i, ok := l.index[opt.Code]; ok && i != pos {
		l.opts = append(l.opts[:i], l.opts[i+1:]...)
	}
	l.reindex()
	return nil
}

// DeleteAt removes the entry at pos; later entries shift down.
func (l *OptionList) DeleteAt(pos int) error {
	if pos < 0 || pos >= len(l.opts) {
		return fmt.Errorf("position %d out of range (0..%d)", pos, len(l.opts)-1)
	}
	delete(l.index, l.opts[pos].Code)
	l.opts = append(l.opts[:pos], l.opts[pos+1:]...)
	l.reindex()
	return nil
}

// Codes returns the option codes in list order.
func (l *OptionList) Codes() []dhcpv4.OptionCode {
	codes := make([]dhcpv4.OptionCode, len(l.opts))
	for i, o := range l.opts {
		codes[i] = o.Code
	}
	return codes
}

// ToValueMap returns the union of every entry's semantic value map. Keys never
// collide given the code/key bijection.
func (l *OptionList) ToValueMap() map[string]any {
	out := make(map[string]any, len(l.opts))
	for i := range l.opts {
		for k, v := range l.opts[i].Value() {
			out[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the list.
func (l *OptionList) Clone() *OptionList {
	c := &OptionList{
		opts:  make([]Option, len(l.opts)),
		index: make(map[dhcpv4.OptionCode]int, len(l.index)),
	}
	for i, o := range l.opts {
		data := make([]byte, len(o.Data))
		copy(data, o.Data)
		c.opts[i] = Option{Code: o.Code, Data: data}
		c.index[o.Code] = i
	}
	return c
}

// Encode serializes every option in list order.
func (l *OptionList) Encode() []byte {
	var buf []byte
	for _, o := range l.opts {
		buf = append(buf, o.Encode()...)
	}
	return buf
}

func (l *OptionList) reindex() {
	for k := range l.index {
		delete(l.index, k)
	}
	for i, o := range l.opts {
		l.index[o.Code] = i
	}
}
