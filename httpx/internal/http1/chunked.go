package http1

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// chunkedReader strips Transfer-Encoding: chunked framing. It reports
// io.EOF once the terminal zero-length chunk and its trailer section have
// been consumed. Chunk extensions are ignored and trailers discarded.
type chunkedReader struct {
	br      *bufio.Reader
	maxLine int
	state   chunkState
	left    int64 // unread bytes of the current chunk
}

type chunkState uint8

const (
	atChunkHeader chunkState = iota
	inChunkData
	atChunkEnd
	chunkedDone
)

func newChunkedReader(br *bufio.Reader, maxLine int) *chunkedReader {
	return &chunkedReader{br: br, maxLine: maxLine}
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	for {
		switch c.state {
		case chunkedDone:
			return 0, io.EOF
		case atChunkHeader:
			if err := c.nextChunk(); err != nil {
				return 0, err
			}
		case atChunkEnd:
			if err := c.chunkEnd(); err != nil {
				return 0, err
			}
			c.state = atChunkHeader
		case inChunkData:
			if len(p) == 0 {
				return 0, nil
			}
			if int64(len(p)) > c.left {
				p = p[:c.left]
			}
			n, err := c.br.Read(p)
			c.left -= int64(n)
			if c.left == 0 {
				c.state = atChunkEnd
			}
			if err == io.EOF && c.left > 0 {
				err = io.ErrUnexpectedEOF
			}
			if err == io.EOF {
				err = nil
			}
			return n, err
		}
	}
}

// nextChunk parses a chunk-size line; a zero size consumes the trailer
// section as well.
func (c *chunkedReader) nextChunk() error {
	line, err := readLineLimit(c.br, c.maxLine)
	if err != nil {
		return eofAsParseError(err, "end of stream while reading chunk size")
	}
	size, _, _ := strings.Cut(line, ";")
	size = strings.TrimSpace(size)
	n, err := strconv.ParseUint(size, 16, 63)
	if err != nil {
		return &ParseError{Msg: "invalid chunk size " + strconv.Quote(size)}
	}
	if n > 0 {
		c.left = int64(n)
		c.state = inChunkData
		return nil
	}
	for {
		trailer, err := readLineLimit(c.br, c.maxLine)
		if err != nil {
			return eofAsParseError(err, "end of stream while reading trailers")
		}
		if trailer == "" {
			c.state = chunkedDone
			return nil
		}
	}
}

func (c *chunkedReader) chunkEnd() error {
	var crlf [2]byte
	if _, err := io.ReadFull(c.br, crlf[:]); err != nil {
		return eofAsParseError(err, "end of stream after chunk data")
	}
	if crlf != [2]byte{'\r', '\n'} {
		return &ParseError{Msg: fmt.Sprintf("expected CRLF after chunk data, got %q", crlf[:])}
	}
	return nil
}

// chunkedWriter turns every Write into one chunk. Close emits the
// terminal zero-length chunk and flushes, leaving the connection open.
type chunkedWriter struct {
	w      *keepOpenWriter
	closed bool
}

func (c *chunkedWriter) Write(p []byte) (int, error) {
	if c.closed {
		return 0, errWriterClosed
	}
	return WriteChunk(c.w.bw, p)
}

func (c *chunkedWriter) Flush() error { return c.w.Flush() }

func (c *chunkedWriter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := EndChunked(c.w.bw); err != nil {
		return err
	}
	return c.w.Close()
}

// WriteChunk writes p as one chunk. Empty writes emit nothing so they can
// never be mistaken for the terminal chunk.
func WriteChunk(bw *bufio.Writer, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(bw, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	if _, err := bw.Write(p); err != nil {
		return 0, err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}

// EndChunked writes the terminating zero-length chunk and the blank line
// closing the (empty) trailer section.
func EndChunked(bw *bufio.Writer) error {
	_, err := bw.WriteString("0\r\n\r\n")
	return err
}

func readLineLimit(br *bufio.Reader, limit int) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			break
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
		if limit > 0 && sb.Len() > limit {
			return "", ErrLineTooLong
		}
	}
	return sb.String(), nil
}
