package http

import (
	"io"
	"strings"

	"github.com/hearth-web/hearth/http/status"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

// ErrBodyExpired is returned by any body access made after the handler that
// owned the request has returned. The body is a single-pass stream bound to
// the connection; once the connection loop moves on, reads must fail instead
// of leaking the next request's bytes.
var ErrBodyExpired = status.NewError(status.InternalServerError, "request body is no longer available")

type BodyCallback func([]byte) error

// Retriever produces the body piece by piece. The framing implementation
// (fixed-length or chunked) lives behind it.
type Retriever interface {
	// Retrieve reads and returns the next piece of the body. io.EOF signals
	// completion and may accompany the last piece's successor call.
	Retrieve() ([]byte, error)
}

// Body is the lazy, forward-only, single-pass view of a request body. All
// methods pull from the connection on demand; nothing is read ahead of time.
type Body struct {
	retriever Retriever
	request   *Request
	buff      []byte
	pending   []byte
	error     error
}

func NewBody(r *Request, impl Retriever) *Body {
	return &Body{
		retriever: impl,
		request:   r,
	}
}

// Bytes returns the whole body at once.
func (b *Body) Bytes() ([]byte, error) {
	if len(b.buff) != 0 {
		return b.buff, nil
	}

	if b.error != nil {
		if b.error == io.EOF {
			return nil, nil
		}

		return nil, b.error
	}

	if b.buff == nil && !b.request.Encoding.Chunked {
		b.buff = make([]byte, 0, b.request.ContentLength)
	}

	for {
		var data []byte
		data, b.error = b.retriever.Retrieve()
		b.buff = append(b.buff, data...)
		switch b.error {
		case nil:
		case io.EOF:
			return b.buff, nil
		default:
			return nil, b.error
		}
	}
}

// String returns the whole body at once as a string.
func (b *Body) String() (string, error) {
	bytes, err := b.Bytes()
	return uf.B2S(bytes), err
}

// Read implements io.Reader.
func (b *Body) Read(into []byte) (n int, err error) {
	if len(b.pending) == 0 && b.error == nil {
		b.pending, b.error = b.retriever.Retrieve()
	}

	n = copy(into, b.pending)
	b.pending = b.pending[n:]

	if len(b.pending) == 0 && b.error != nil {
		err = b.error
	}

	return n, err
}

// Callback invokes cb for every piece of the body as it arrives. The error
// returned by cb is passed through to the caller.
//
// Can be used only once.
func (b *Body) Callback(cb BodyCallback) error {
	if b.error != nil && b.error != io.EOF {
		return b.error
	}

	for {
		var data []byte
		data, b.error = b.retriever.Retrieve()
		switch b.error {
		case nil:
		case io.EOF:
			return cb(data)
		default:
			return b.error
		}

		if err := cb(data); err != nil {
			return err
		}
	}
}

// JSON deserializes the body into the model. The request must carry a JSON
// content type, if it declares one at all.
func (b *Body) JSON(model any) error {
	if len(b.request.ContentType) > 0 &&
		!strings.HasPrefix(b.request.ContentType, "application/json") {
		return status.ErrUnsupportedMedia
	}

	data, err := b.Bytes()
	if err != nil {
		return err
	}

	iterator := json.ConfigDefault.BorrowIterator(data)
	iterator.ReadVal(model)
	err = iterator.Error
	json.ConfigDefault.ReturnIterator(iterator)
	if err == io.EOF {
		// empty body; leave the model zeroed
		return nil
	}

	return err
}

// Discard consumes the rest of the body. Returns nil if the stream ended
// cleanly.
func (b *Body) Discard() error {
	for b.error == nil {
		_, b.error = b.retriever.Retrieve()
	}

	if b.error == io.EOF {
		return nil
	}

	return b.error
}

// Error returns the error encountered during body reading, if any.
func (b *Body) Error() error {
	if b.error == io.EOF {
		return nil
	}

	return b.error
}

// Expire makes every subsequent access fail with ErrBodyExpired. Called by
// the connection loop once the handler has returned; Reopen undoes it for the
// next request.
func (b *Body) Expire() {
	b.error = ErrBodyExpired
	b.buff = nil
	b.pending = nil
}

// Reopen resets the per-request state. Called by the connection loop after a
// fresh request is parsed.
func (b *Body) Reopen() {
	b.error = nil
	b.buff = nil
	b.pending = nil
}
