package httpclient

import (
	"encoding/json"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	MediaTypeJSON     = "application/json"
	MediaTypeMsgpack  = "application/msgpack"
	MediaTypeXMsgpack = "application/x-msgpack"
)

type unmarshalFn func([]byte, any) error

type structuredCodec struct {
	mediaType string
	fn        unmarshalFn
}

// structuredCodecs are matched by Content-Type prefix, in order.
var structuredCodecs = []structuredCodec{
	{mediaType: MediaTypeJSON, fn: json.Unmarshal},
	{mediaType: MediaTypeMsgpack, fn: msgpack.Unmarshal},
	{mediaType: MediaTypeXMsgpack, fn: msgpack.Unmarshal},
}

func codecFor(resp Response) (structuredCodec, bool) {
	ct := strings.ToLower(strings.TrimSpace(resp.Header("Content-Type")))
	if ct == "" {
		return structuredCodec{}, false
	}
	for _, c := range structuredCodecs {
		if strings.HasPrefix(ct, c.mediaType) {
			return c, true
		}
	}
	return structuredCodec{}, false
}

// Parse decodes resp according to its Content-Type: JSON and msgpack bodies
// become maps, slices and scalars; anything else is returned as a string.
// The body is decoded before the status is checked, so a *FetchError for a
// status above 299 always carries the decoded body. An empty structured body
// decodes to nil.
func Parse(resp Response) (any, error) {
	data, err := decode(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() > 299 {
		return nil, &FetchError{
			Status:     resp.StatusCode(),
			StatusText: resp.Status(),
			Data:       data,
		}
	}
	return data, nil
}

// ParseInto decodes a successful structured body directly into T. Text bodies
// can only be decoded into a string. Error statuses behave exactly like Parse.
func ParseInto[T any](resp Response) (T, error) {
	var out T
	if resp.StatusCode() > 299 {
		_, err := Parse(resp)
		return out, err
	}

	body := resp.Body()
	codec, ok := codecFor(resp)
	if !ok {
		if p, isString := any(&out).(*string); isString {
			*p = string(body)
			return out, nil
		}
		return out, &DecodeError{MediaType: resp.Header("Content-Type"), Err: errNotStructured}
	}
	if len(body) == 0 {
		return out, nil
	}
	if err := codec.fn(body, &out); err != nil {
		return out, &DecodeError{MediaType: codec.mediaType, Err: err}
	}
	return out, nil
}

func decode(resp Response) (any, error) {
	body := resp.Body()
	codec, ok := codecFor(resp)
	if !ok {
		return string(body), nil
	}
	if len(body) == 0 {
		return nil, nil
	}
	var data any
	if err := codec.fn(body, &data); err != nil {
		return nil, &DecodeError{MediaType: codec.mediaType, Err: err}
	}
	return data, nil
}
