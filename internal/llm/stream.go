package llm

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

type lineStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	once   sync.Once
	err    error
}

// NewLineStream splits body on newlines. Blank lines are skipped.
func NewLineStream(body io.ReadCloser) Stream {
	return &lineStream{body: body, reader: bufio.NewReader(body)}
}

func (s *lineStream) Next() ([]byte, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		// последняя строка может прийти без \n вместе с io.EOF
		if len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (s *lineStream) Close() error {
	s.once.Do(func() {
		s.err = s.body.Close()
	})
	return s.err
}
