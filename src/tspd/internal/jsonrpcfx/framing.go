package jsonrpcfx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.lsp.dev/jsonrpc2"
)

// errFrameTooLarge is returned when a Content-Length exceeds the configured limit.
var errFrameTooLarge = errors.New("frame too large")

// readFrame reads one message framed with a Content-Length header. Unknown headers are ignored.
// Lengths above maxSize are rejected before the body is read.
func readFrame(in *bufio.Reader, maxSize int64) ([]byte, error) {
	var length int64
	for {
		line, err := in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" && length == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed reading header line: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		colon := strings.IndexRune(line, ':')
		if colon < 0 {
			return nil, fmt.Errorf("invalid header line %q", line)
		}

		name, value := line[:colon], strings.TrimSpace(line[colon+1:])
		if !strings.EqualFold(name, jsonrpc2.HdrContentLength) {
			continue
		}
		if length, err = strconv.ParseInt(value, 10, 32); err != nil {
			return nil, fmt.Errorf("failed parsing %s: %v: %w", jsonrpc2.HdrContentLength, value, err)
		}
		if length <= 0 {
			return nil, fmt.Errorf("invalid %s: %v", jsonrpc2.HdrContentLength, length)
		}
		if length > maxSize {
			return nil, fmt.Errorf("%s %d above limit %d: %w", jsonrpc2.HdrContentLength, length, maxSize, errFrameTooLarge)
		}
	}
	if length == 0 {
		return nil, fmt.Errorf("missing %s header", jsonrpc2.HdrContentLength)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(in, data); err != nil {
		return nil, fmt.Errorf("read full of data: %w", err)
	}
	return data, nil
}

// writeFrame writes one message with its Content-Length header.
func writeFrame(out io.Writer, data []byte) error {
	frame := make([]byte, 0, len(data)+32)
	frame = append(frame, jsonrpc2.HdrContentLength+": "+strconv.Itoa(len(data))+jsonrpc2.HdrContentSeparator...)
	frame = append(frame, data...)
	if _, err := out.Write(frame); err != nil {
		return fmt.Errorf("write data to conn: %w", err)
	}
	return nil
}
