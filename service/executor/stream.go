package executor

import (
	"errors"
	"io"
	"os"
)

type streams struct {
	stdout capture
	stderr capture
}

// capture keeps the head of a stream up to limit bytes and counts the rest.
// It is written by a single drain goroutine.
type capture struct {
	limit int64
	data  []byte
	size  int64
}

func (c *capture) write(p []byte) {
	c.size += int64(len(p))
	room := c.limit - int64(len(c.data))
	if room <= 0 {
		return
	}
	if int64(len(p)) > room {
		p = p[:room]
	}
	c.data = append(c.data, p...)
}

// drain reads reader in chunks until EOF. Every chunk goes to sink, the
// capture and forward. A failing sink does not stop draining.
func (e *execution) drain(reader io.Reader, sink io.Writer, c *capture, forward func([]byte)) error {
	var sinkErr error
	for {
		buf := make([]byte, e.service.config.ChunkSize)
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, writeErr := sink.Write(chunk); writeErr != nil && sinkErr == nil {
				sinkErr = writeErr
			}
			c.write(chunk)
			forward(chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return sinkErr
			}
			return err
		}
	}
}

// pipe is an os pipe whose write end is handed to the child.
type pipe struct {
	reader *os.File
	writer *os.File
}

func newPipe() (*pipe, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &pipe{reader: reader, writer: writer}, nil
}

func (p *pipe) closeWriter() { _ = p.writer.Close() }

func (p *pipe) close() {
	_ = p.reader.Close()
	_ = p.writer.Close()
}
