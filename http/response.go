package http

import (
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/hearth-web/hearth/http/status"
	"github.com/hearth-web/hearth/internal/response"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

const preallocRespHeaders = 8

// Response is a chained response builder. It is built by the handler and
// consumed exactly once by the serializer; afterwards the connection loop
// recycles it for the next request.
type Response struct {
	fields *response.Fields
}

// NewResponse returns a response builder preset to 200 OK with no body.
func NewResponse() *Response {
	return &Response{
		fields: &response.Fields{
			Code:    status.OK,
			Headers: make([]response.Header, 0, preallocRespHeaders),
		},
	}
}

// Code sets the status code. The reason phrase is derived from it unless
// Status overrides it.
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Status sets a custom reason phrase. Clients generally ignore it; there is
// rarely a reason to call this.
func (r *Response) Status(s status.Status) *Response {
	r.fields.Status = s
	return r
}

// ContentType sets the Content-Type header value.
func (r *Response) ContentType(value string) *Response {
	r.fields.ContentType = value
	return r
}

// Header adds header values under the key. Existing entries are kept: adding
// the same key twice produces two header lines.
func (r *Response) Header(key string, values ...string) *Response {
	if strcomp.EqualFold(key, "content-type") {
		return r.ContentType(values[0])
	}

	for _, value := range values {
		r.fields.Headers = append(r.fields.Headers, response.Header{Key: key, Value: value})
	}

	return r
}

// Headers merges the map into the response headers.
func (r *Response) Headers(headers map[string][]string) *Response {
	resp := r
	for key, values := range headers {
		resp = resp.Header(key, values...)
	}

	return resp
}

// String sets the body to the passed string.
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the body to the passed slice WITHOUT copying it.
func (r *Response) Bytes(body []byte) *Response {
	r.fields.Body = body
	return r
}

// Write implements io.Writer by appending to the body. Never fails.
func (r *Response) Write(b []byte) (n int, err error) {
	r.fields.Body = append(r.fields.Body, b...)
	return len(b), nil
}

// Attachment streams the reader out as the body. If size is positive it is
// sent with a Content-Length; otherwise the body is framed with chunked
// transfer encoding. The reader is closed after sending if it is closeable.
func (r *Response) Attachment(reader io.Reader, size int) *Response {
	r.fields.Attachment = response.NewAttachment(reader, size)
	return r
}

// TryFile opens the file and attaches it with its size and a Content-Type
// guessed from the extension.
func (r *Response) TryFile(path string) (*Response, error) {
	fd, err := os.Open(path)
	if err != nil {
		return r, status.ErrNotFound
	}

	stat, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return r, status.ErrInternalServerError
	}
	if stat.IsDir() {
		_ = fd.Close()
		return r, status.ErrNotFound
	}

	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		r.fields.ContentType = contentType
	} else {
		r.fields.ContentType = "application/octet-stream"
	}

	return r.Attachment(fd, int(stat.Size())), nil
}

// File does the same as TryFile, converting the error into an error response.
func (r *Response) File(path string) *Response {
	resp, err := r.TryFile(path)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// TryJSON serializes the model into the body and sets the JSON content type.
func (r *Response) TryJSON(model any) (*Response, error) {
	r.fields.Body = r.fields.Body[:0]
	stream := json.ConfigDefault.BorrowStream(r)
	stream.WriteVal(model)
	err := stream.Flush()
	json.ConfigDefault.ReturnStream(stream)

	return r.ContentType("application/json"), err
}

// JSON does the same as TryJSON, converting the error into an error response.
func (r *Response) JSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Error builds an error response from err. status.HTTPError values carry
// their own code; for anything else the optional code is used, defaulting to
// 500.
func (r *Response) Error(err error, code ...status.Code) *Response {
	if err == nil {
		return r
	}

	if httpErr, ok := err.(status.HTTPError); ok {
		return r.Code(httpErr.Code).String(httpErr.Message)
	}

	c := status.InternalServerError
	if len(code) > 0 {
		c = code[0]
	}

	return r.Code(c).String(err.Error())
}

// Reveal exposes the built fields. Meant for the serializer.
func (r *Response) Reveal() *response.Fields {
	return r.fields
}

// Clear discards everything built so far.
func (r *Response) Clear() *Response {
	r.fields.Clear()
	return r
}

// Respond is a predicate to request.Respond(). May be used as a dummy handler.
func Respond(request *Request) *Response {
	return request.Respond()
}
