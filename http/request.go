package http

import (
	"net"

	"github.com/hearth-web/hearth/config"
	"github.com/hearth-web/hearth/http/method"
	"github.com/hearth-web/hearth/http/proto"
	"github.com/hearth-web/hearth/kv"
)

type (
	Headers = *kv.Storage
	Header  = kv.Pair
)

// Handler is the contract the application implements: one call per parsed
// request, returning the response to be serialized. A nil response is
// rendered as an empty 200. The request, its headers and its body are only
// valid for the duration of the call and must not be retained.
type Handler func(*Request) *Response

// Request represents a single parsed HTTP request. The object is owned by the
// connection's worker and recycled between requests on the same connection.
type Request struct {
	// Method is the parsed request method.
	Method method.Method
	// Target holds the raw, undecoded request target: path plus query,
	// exactly as it appeared on the wire.
	Target string
	// Path is the Target before the first '?', still undecoded.
	Path string
	// Query is the raw Target remainder after the first '?', without it.
	Query string
	// Protocol is the declared HTTP version.
	Protocol proto.Protocol
	// Headers holds all header fields in wire order. Lookup is
	// case-insensitive; repeated fields stay separate entries.
	Headers Headers
	// ContentLength is the declared body length. Zero both when the header is
	// absent and when it literally says 0; Encoding tells the two apart.
	ContentLength int64
	// Encoding describes how the body is framed.
	Encoding Encoding
	// Connection is the raw Connection header value, not normalized.
	Connection string
	// ContentType is the Content-Type header value, if any.
	ContentType string
	// Remote is the peer address. Not a user identity: there may be proxies
	// in between.
	Remote net.Addr
	// Body provides lazy, single-pass access to the message body.
	Body *Body

	response *Response
	cfg      *config.Config
}

type Encoding struct {
	// Chunked is set when Transfer-Encoding includes the chunked token.
	Chunked bool
	// Transfer lists all Transfer-Encoding tokens in their original order,
	// chunked included.
	Transfer []string
	// HasTrailer is set when the request declares trailer fields after the
	// last chunk.
	HasTrailer bool
}

func NewRequest(cfg *config.Config, resp *Response, remote net.Addr) *Request {
	return &Request{
		Protocol: proto.HTTP11,
		Headers:  kv.NewPrealloc(cfg.Headers.Prealloc),
		Remote:   remote,
		response: resp,
		cfg:      cfg,
	}
}

// Respond returns the response builder for this request.
//
// The builder is recycled along the connection, so calling Respond clears
// anything previously built on it.
func (r *Request) Respond() *Response {
	return r.response.Clear()
}

// Reset wipes per-request state, keeping allocations for the next request on
// the same connection.
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Target = ""
	r.Path = ""
	r.Query = ""
	r.Protocol = proto.HTTP11
	r.Headers.Clear()
	r.ContentLength = 0
	r.Encoding = Encoding{}
	r.Connection = ""
	r.ContentType = ""
}
