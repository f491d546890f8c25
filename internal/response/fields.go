package response

import (
	"io"

	"github.com/hearth-web/hearth/http/status"
)

type Header struct {
	Key, Value string
}

// Fields is the raw payload of a response builder. The builder owns it; the
// serializer consumes it exactly once per response.
type Fields struct {
	Code        status.Code
	Status      status.Status
	Headers     []Header
	ContentType string
	Body        []byte
	Attachment  Attachment
}

func (f *Fields) Clear() {
	f.Code = status.OK
	f.Status = ""
	f.Headers = f.Headers[:0]
	f.ContentType = ""
	f.Body = nil
	f.Attachment = Attachment{}
}

// Attachment is a streamed response body. A non-positive size means the
// length is unknown and the body must be framed with chunked transfer
// encoding.
type Attachment struct {
	content io.Reader
	size    int
}

func NewAttachment(content io.Reader, size int) Attachment {
	return Attachment{
		content: content,
		size:    size,
	}
}

func (a Attachment) Content() io.Reader {
	return a.content
}

func (a Attachment) Size() int {
	return a.size
}

// Close releases the underlying reader if it is closeable.
func (a Attachment) Close() {
	if closer, ok := a.content.(io.Closer); ok {
		_ = closer.Close()
	}
}
