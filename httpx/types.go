package httpx

import "strings"

// HeaderField is one header line.
type HeaderField struct {
	Name  string
	Value string
}

// Header is an ordered list of header fields. Duplicates are kept as
// distinct lines and names compare case-insensitively. Once frozen, any
// mutation panics: request headers freeze when the request head is sent
// and response headers are frozen as parsed.
type Header struct {
	fields []HeaderField
	frozen bool
}

// NewHeader builds a Header from name/value pairs.
func NewHeader(fields ...HeaderField) Header {
	return Header{fields: append([]HeaderField(nil), fields...)}
}

func (h *Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value of name in wire order.
func (h *Header) Values(name string) []string {
	var vv []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			vv = append(vv, f.Value)
		}
	}
	return vv
}

// Add appends a field.
func (h *Header) Add(name, value string) {
	h.mustBeMutable()
	h.fields = append(h.fields, HeaderField{Name: name, Value: value})
}

// Set replaces the first field named name in place and drops the others,
// or appends when there is none.
func (h *Header) Set(name, value string) {
	h.mustBeMutable()
	kept := h.fields[:0]
	replaced := false
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			if replaced {
				continue
			}
			f.Value = value
			replaced = true
		}
		kept = append(kept, f)
	}
	h.fields = kept
	if !replaced {
		h.fields = append(h.fields, HeaderField{Name: name, Value: value})
	}
}

func (h *Header) Del(name string) {
	h.mustBeMutable()
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

func (h *Header) Len() int { return len(h.fields) }

// Fields returns a copy of the fields in order.
func (h *Header) Fields() []HeaderField {
	return append([]HeaderField(nil), h.fields...)
}

// Clone returns a mutable copy.
func (h *Header) Clone() Header {
	return Header{fields: h.Fields()}
}

// Freeze makes h immutable.
func (h *Header) Freeze() { h.frozen = true }

func (h *Header) Frozen() bool { return h.frozen }

func (h *Header) mustBeMutable() {
	if h.frozen {
		panic("httpx: header modified after it was sent or received")
	}
}
