package http1

import (
	"io"

	"github.com/hearth-web/hearth/config"
	"github.com/hearth-web/hearth/http"
	"github.com/hearth-web/hearth/http/status"
	"github.com/hearth-web/hearth/internal/stream"
	"github.com/indigo-web/chunkedbody"
)

// Body reads the message body off the stream according to the framing the
// parser discovered. It reads exactly as many bytes as the framing declares;
// anything past the body is pushed back for the next request.
type Body struct {
	client        stream.Client
	chunkedParser *chunkedbody.Parser
	cfg           config.Body
	bytesLeft     int64
	received      int64
	chunked       bool
	hasTrailer    bool
	done          bool
}

func NewBody(client stream.Client, chunkedParser *chunkedbody.Parser, cfg config.Body) *Body {
	return &Body{
		client:        client,
		chunkedParser: chunkedParser,
		cfg:           cfg,
	}
}

// Init binds the reader to the freshly parsed request.
func (b *Body) Init(request *http.Request) {
	b.chunked = request.Encoding.Chunked
	b.hasTrailer = request.Encoding.HasTrailer
	b.bytesLeft = request.ContentLength
	b.received = 0
	b.done = !b.chunked && b.bytesLeft == 0
}

// Retrieve implements http.Retriever.
func (b *Body) Retrieve() ([]byte, error) {
	if b.done {
		return nil, io.EOF
	}

	if b.chunked {
		return b.chunkedPiece()
	}

	return b.plainPiece()
}

func (b *Body) plainPiece() ([]byte, error) {
	if b.bytesLeft > b.cfg.MaxSize {
		b.done = true
		return nil, status.ErrBodyTooLarge
	}

	data, err := b.client.Read()
	if err != nil {
		b.done = true
		return nil, err
	}

	if int64(len(data)) >= b.bytesLeft {
		piece, extra := data[:b.bytesLeft], data[b.bytesLeft:]
		b.client.Unread(extra)
		b.bytesLeft = 0
		b.done = true

		return piece, io.EOF
	}

	b.bytesLeft -= int64(len(data))

	return data, nil
}

func (b *Body) chunkedPiece() ([]byte, error) {
	data, err := b.client.Read()
	if err != nil {
		b.done = true
		return nil, err
	}

	chunk, extra, err := b.chunkedParser.Parse(data, b.hasTrailer)
	switch err {
	case nil:
	case io.EOF:
		b.client.Unread(extra)
		b.done = true

		return chunk, io.EOF
	default:
		b.done = true
		return nil, status.ErrBadChunk
	}

	if b.received += int64(len(chunk)); b.received > b.cfg.MaxSize {
		b.done = true
		return nil, status.ErrBodyTooLarge
	}

	b.client.Unread(extra)

	return chunk, nil
}
