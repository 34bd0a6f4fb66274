package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
)

// PayloadKind enumerates the supported request body encodings.
type PayloadKind int

const (
	KindEmpty PayloadKind = iota
	KindRaw
	KindText
	KindEncoder
	KindStructured
)

func (k PayloadKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindRaw:
		return "raw"
	case KindText:
		return "text"
	case KindEncoder:
		return "encoder"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("PayloadKind(%d)", int(k))
	}
}

// EncodeFunc produces a request body from the assembled request. It may set
// headers on req, e.g. a multipart boundary.
type EncodeFunc func(req *RequestDescriptor) ([]byte, error)

// Payload is a request body of exactly one kind. The zero value is Empty.
type Payload struct {
	kind   PayloadKind
	bytes  []byte
	raw    io.Reader
	text   string
	encode EncodeFunc
	value  any
}

// Empty sends no body.
func Empty() Payload { return Payload{} }

// Raw sends b verbatim. No default Content-Type is applied.
func Raw(b []byte) Payload { return Payload{kind: KindRaw, bytes: b} }

// RawReader streams r verbatim. No default Content-Type is applied.
// The reader is consumed by the first request that sends it.
func RawReader(r io.Reader) Payload {
	if r == nil {
		return Empty()
	}
	return Payload{kind: KindRaw, raw: r}
}

// Text sends s verbatim.
func Text(s string) Payload { return Payload{kind: KindText, text: s} }

// Encoder defers body production to fn.
func Encoder(fn EncodeFunc) Payload {
	if fn == nil {
		return Empty()
	}
	return Payload{kind: KindEncoder, encode: fn}
}

// Structured sends the JSON serialization of v. A nil v is Empty.
func Structured(v any) Payload {
	if v == nil {
		return Empty()
	}
	return Payload{kind: KindStructured, value: v}
}

// Kind reports which encoding p uses.
func (p Payload) Kind() PayloadKind { return p.kind }

// body resolves the payload into a value the transport can send as-is:
// nil, io.Reader, string or []byte.
func (p Payload) body(req *RequestDescriptor) (any, error) {
	switch p.kind {
	case KindEmpty:
		return nil, nil
	case KindRaw:
		if p.raw != nil {
			return p.raw, nil
		}
		return p.bytes, nil
	case KindText:
		return p.text, nil
	case KindEncoder:
		b, err := p.encode(req)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		return b, nil
	case KindStructured:
		b, err := json.Marshal(p.value)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported payload kind %s", p.kind)
	}
}
