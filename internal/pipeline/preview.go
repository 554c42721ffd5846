package pipeline

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// readPreview returns the first n characters of the file at path. Undecodable
// bytes become U+FFFD and NUL characters are dropped so the text is storable
// in any text column. Read failures are returned as the preview text.
func readPreview(path string, n int) string {
	if n <= 0 {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return "Error reading file: " + err.Error()
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var b strings.Builder
	for count := 0; count < n; {
		r, _, err := br.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "Error reading file: " + err.Error()
		}
		if r == 0 {
			continue
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}
