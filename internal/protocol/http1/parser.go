package http1

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/hearth-web/hearth/config"
	"github.com/hearth-web/hearth/http"
	"github.com/hearth-web/hearth/http/method"
	"github.com/hearth-web/hearth/http/proto"
	"github.com/hearth-web/hearth/http/status"
	"github.com/hearth-web/hearth/internal/buffer"
	"github.com/hearth-web/hearth/internal/stream"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

// Parser assembles a request head from the blocking byte stream: one request
// line, then header fields until the empty line. It fills the request object
// in place; all strings alias the parser's arena and stay valid until the
// next Parse call. The body is never consumed here.
type Parser struct {
	request   *http.Request
	client    stream.Client
	startLine *buffer.Buffer
	headers   *buffer.Buffer
	cfg       *config.Config
}

func NewParser(request *http.Request, client stream.Client, cfg *config.Config) *Parser {
	return &Parser{
		request:   request,
		client:    client,
		startLine: buffer.New(512, cfg.URI.MaxRequestLineSize),
		headers:   buffer.New(1024, cfg.Headers.MaxSpace),
		cfg:       cfg,
	}
}

// Parse blocks until a complete request head is read or the connection fails.
// Failures are unrecoverable for the connection: no partial request is ever
// exposed.
func (p *Parser) Parse() (err error) {
	p.startLine.Clear()
	p.headers.Clear()

	line, err := p.readLine(p.startLine, status.ErrTooLongRequestLine)
	if err != nil {
		return err
	}

	// the request has begun: drop the idle deadline in favor of the plain
	// read timeout for the rest of the head
	p.client.SetReadTimeout(p.cfg.NET.ReadTimeout)

	if err = p.parseRequestLine(line); err != nil {
		return err
	}

	return p.parseHeaders()
}

func (p *Parser) parseRequestLine(line []byte) error {
	sp := bytes.IndexByte(line, ' ')
	if sp <= 0 {
		return status.ErrBadRequestLine
	}

	rest := line[sp+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 <= 0 {
		return status.ErrBadRequestLine
	}

	target, version := rest[:sp2], rest[sp2+1:]
	if len(version) == 0 || bytes.IndexByte(version, ' ') != -1 {
		return status.ErrBadRequestLine
	}

	request := p.request
	request.Method = method.Parse(uf.B2S(line[:sp]))
	if request.Method == method.Unknown {
		return status.ErrMethodNotImplemented
	}

	request.Protocol = proto.FromBytes(version)
	if request.Protocol == proto.Unknown {
		return status.ErrUnsupportedProtocol
	}

	request.Target = uf.B2S(target)
	if q := bytes.IndexByte(target, '?'); q != -1 {
		request.Path = uf.B2S(target[:q])
		request.Query = uf.B2S(target[q+1:])
	} else {
		request.Path = request.Target
	}

	return nil
}

func (p *Parser) parseHeaders() error {
	var (
		request       = p.request
		contentLength = int64(-1)
		number        int
	)

	for {
		line, err := p.readLine(p.headers, status.ErrHeaderFieldsTooLarge)
		if err != nil {
			return err
		}

		if len(line) == 0 {
			break
		}

		if number++; number > p.cfg.Headers.MaxNumber {
			return status.ErrTooManyHeaders
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return status.ErrBadHeader
		}

		key := uf.B2S(line[:colon])
		if strings.IndexByte(key, ' ') != -1 {
			return status.ErrBadHeader
		}

		value := uf.B2S(trimSpaces(line[colon+1:]))
		request.Headers.Add(key, value)

		switch {
		case strcomp.EqualFold(key, "content-length"):
			length, perr := strconv.ParseInt(value, 10, 64)
			if perr != nil || length < 0 {
				return status.ErrBadHeader
			}
			if contentLength != -1 && contentLength != length {
				// repeated Content-Length fields must agree
				return status.ErrBadHeader
			}
			contentLength = length
		case strcomp.EqualFold(key, "transfer-encoding"):
			parseTransferEncoding(request, value)
		case strcomp.EqualFold(key, "connection"):
			request.Connection = value
		case strcomp.EqualFold(key, "content-type"):
			request.ContentType = value
		case strcomp.EqualFold(key, "trailer"):
			request.Encoding.HasTrailer = true
		}
	}

	if request.Encoding.Chunked && contentLength != -1 {
		// refusing to guess which framing the client meant
		return status.ErrBadHeader
	}

	if contentLength > 0 {
		request.ContentLength = contentLength
	}

	return nil
}

// readLine accumulates stream blocks into the arena until a LF is found. The
// terminator and an optional preceding CR are consumed but not returned;
// overflowing the arena cap yields the passed overflow error.
func (p *Parser) readLine(into *buffer.Buffer, overflow error) ([]byte, error) {
	for {
		data, err := p.client.Read()
		if err != nil {
			return nil, err
		}

		lf := bytes.IndexByte(data, '\n')
		if lf == -1 {
			if !into.Append(data) {
				return nil, overflow
			}

			continue
		}

		if !into.Append(data[:lf]) {
			return nil, overflow
		}

		p.client.Unread(data[lf+1:])

		if n := into.SegmentLength(); n > 0 && into.Preview()[n-1] == '\r' {
			into.Trunc(1)
		}

		return into.Finish(), nil
	}
}

func parseTransferEncoding(request *http.Request, value string) {
	for len(value) > 0 {
		var token string
		if comma := strings.IndexByte(value, ','); comma == -1 {
			token, value = value, ""
		} else {
			token, value = value[:comma], value[comma+1:]
		}

		token = strings.TrimSpace(token)
		if len(token) == 0 {
			continue
		}

		if strcomp.EqualFold(token, "chunked") {
			request.Encoding.Chunked = true
		}

		request.Encoding.Transfer = append(request.Encoding.Transfer, token)
	}
}

func trimSpaces(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}

	return b
}
