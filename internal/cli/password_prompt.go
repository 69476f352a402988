package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// readPasswordLine reads one line and strips the line ending. Piped input
// goes through here directly since it has no terminal to silence.
func readPasswordLine(reader io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, errors.New("empty password")
	}
	return []byte(line), nil
}
