package http1

import (
	"io"
	"strconv"

	"github.com/hearth-web/hearth/http"
	"github.com/hearth-web/hearth/http/method"
	"github.com/hearth-web/hearth/http/proto"
	"github.com/hearth-web/hearth/http/status"
	"github.com/hearth-web/hearth/internal/response"
	"github.com/hearth-web/hearth/internal/stream"
	"github.com/indigo-web/utils/strcomp"
)

const (
	contentLengthHeader = "Content-Length: "
	contentTypeHeader   = "Content-Type: "
	connectionHeader    = "Connection: "
	chunkedHeader       = "Transfer-Encoding: chunked\r\n"
)

var (
	crlf             = []byte("\r\n")
	chunkedFinalizer = []byte("0\r\n\r\n")
)

type defaultHeader struct {
	// full is the pre-rendered "Key: Value\r\n" line, key is kept separately
	// for the per-response exclusion check
	full string
	key  string
}

// Serializer renders responses onto the stream. One instance serves one
// connection; the render buffer is reused across responses.
type Serializer struct {
	client         stream.Client
	buff           []byte
	fileBuff       []byte
	defaultHeaders []defaultHeader
}

func NewSerializer(client stream.Client, buffSize int, defHeaders map[string]string) *Serializer {
	defaults := make([]defaultHeader, 0, len(defHeaders))
	for key, value := range defHeaders {
		defaults = append(defaults, defaultHeader{
			full: key + ": " + value + "\r\n",
			key:  key,
		})
	}

	return &Serializer{
		client:         client,
		buff:           make([]byte, 0, buffSize),
		defaultHeaders: defaults,
	}
}

// Write renders the response head and body onto the stream. keepAlive is the
// connection loop's verdict; it is rendered as the Connection header unless
// the handler set one explicitly. Any stream failure is reported as
// status.ErrCloseConnection.
func (s *Serializer) Write(request *http.Request, resp *http.Response, keepAlive bool) error {
	defer func() {
		s.buff = s.buff[:0]
	}()

	fields := resp.Reveal()
	s.renderStatusLine(request.Protocol, fields)
	hasConnection := s.renderUserHeaders(fields)
	s.renderDefaultHeaders(fields)

	if len(fields.ContentType) > 0 {
		s.renderKnown(contentTypeHeader, fields.ContentType)
	}

	if !hasConnection {
		s.renderConnection(request.Protocol, keepAlive)
	}

	attachment := fields.Attachment
	if attachment.Content() == nil {
		s.renderKnown(contentLengthHeader, strconv.Itoa(len(fields.Body)))
		s.buff = append(s.buff, crlf...)

		if request.Method != method.HEAD {
			s.buff = append(s.buff, fields.Body...)
		}

		return s.client.Write(s.buff)
	}

	return s.sendAttachment(request, attachment)
}

func (s *Serializer) renderStatusLine(protocol proto.Protocol, fields *response.Fields) {
	s.buff = append(s.buff, protocol.String()...)

	if line := status.Line(fields.Code); len(fields.Status) == 0 && len(line) > 0 {
		s.buff = append(s.buff, line...)
		return
	}

	// unknown code or a custom reason phrase, the slow path
	s.buff = strconv.AppendInt(s.buff, int64(fields.Code), 10)
	s.buff = append(s.buff, ' ')
	if len(fields.Status) > 0 {
		s.buff = append(s.buff, fields.Status...)
	} else {
		s.buff = append(s.buff, status.Text(fields.Code)...)
	}
	s.buff = append(s.buff, crlf...)
}

func (s *Serializer) renderUserHeaders(fields *response.Fields) (hasConnection bool) {
	for _, header := range fields.Headers {
		if strcomp.EqualFold(header.Key, "connection") {
			hasConnection = true
		}

		s.buff = append(s.buff, header.Key...)
		s.buff = append(s.buff, ':', ' ')
		s.buff = append(s.buff, header.Value...)
		s.buff = append(s.buff, crlf...)
	}

	return hasConnection
}

func (s *Serializer) renderDefaultHeaders(fields *response.Fields) {
	for _, header := range s.defaultHeaders {
		if userOverrides(fields.Headers, header.key) {
			continue
		}

		s.buff = append(s.buff, header.full...)
	}
}

func (s *Serializer) renderConnection(protocol proto.Protocol, keepAlive bool) {
	switch {
	case !keepAlive:
		s.renderKnown(connectionHeader, "close")
	case protocol == proto.HTTP10:
		// keep-alive is implicit in HTTP/1.1 and must be explicit in 1.0
		s.renderKnown(connectionHeader, "keep-alive")
	}
}

func (s *Serializer) renderKnown(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, value...)
	s.buff = append(s.buff, crlf...)
}

func (s *Serializer) sendAttachment(request *http.Request, attachment response.Attachment) error {
	defer attachment.Close()

	chunked := attachment.Size() <= 0
	if chunked {
		s.buff = append(s.buff, chunkedHeader...)
	} else {
		s.renderKnown(contentLengthHeader, strconv.Itoa(attachment.Size()))
	}
	s.buff = append(s.buff, crlf...)

	if err := s.client.Write(s.buff); err != nil {
		return err
	}

	if request.Method == method.HEAD {
		return nil
	}

	if s.fileBuff == nil {
		s.fileBuff = make([]byte, cap(s.buff))
	}

	if chunked {
		return s.writeChunkedBody(attachment.Content())
	}

	return s.writePlainBody(attachment.Content())
}

func (s *Serializer) writePlainBody(r io.Reader) error {
	for {
		n, err := r.Read(s.fileBuff)
		if n > 0 {
			if werr := s.client.Write(s.fileBuff[:n]); werr != nil {
				return werr
			}
		}

		switch err {
		case nil:
		case io.EOF:
			return nil
		default:
			return status.ErrCloseConnection
		}
	}
}

func (s *Serializer) writeChunkedBody(r io.Reader) error {
	var head [18]byte

	for {
		n, err := r.Read(s.fileBuff)
		if n > 0 {
			size := strconv.AppendUint(head[:0], uint64(n), 16)
			size = append(size, crlf...)

			if werr := s.client.Write(size); werr != nil {
				return werr
			}
			if werr := s.client.Write(s.fileBuff[:n]); werr != nil {
				return werr
			}
			if werr := s.client.Write(crlf); werr != nil {
				return werr
			}
		}

		switch err {
		case nil:
		case io.EOF:
			return s.client.Write(chunkedFinalizer)
		default:
			return status.ErrCloseConnection
		}
	}
}

func userOverrides(headers []response.Header, key string) bool {
	for _, header := range headers {
		if strcomp.EqualFold(header.Key, key) {
			return true
		}
	}

	return false
}
