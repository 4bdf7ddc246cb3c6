package http1

import (
	"bufio"
	"fmt"
)

// WriteRequestHead writes the request line, the header fields in order and
// the blank line ending the head. Fields with an invalid name are skipped.
// The caller flushes bw before writing any body bytes.
func WriteRequestHead(bw *bufio.Writer, method, target, proto string, fields []Field) error {
	if _, err := fmt.Fprintf(bw, "%s %s %s\r\n", method, target, proto); err != nil {
		return err
	}
	return writeFields(bw, fields)
}

// WriteResponseHead writes a status line and header section. An empty
// reason is replaced by the standard phrase for code.
func WriteResponseHead(bw *bufio.Writer, proto string, code int, reason string, fields []Field) error {
	if reason == "" {
		reason = defaultReason(code)
	}
	if _, err := fmt.Fprintf(bw, "%s %d %s\r\n", proto, code, reason); err != nil {
		return err
	}
	return writeFields(bw, fields)
}

func writeFields(bw *bufio.Writer, fields []Field) error {
	for _, f := range fields {
		if !ValidHeaderName(f.Name) {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", f.Name, SanitizeHeaderValue(f.Value)); err != nil {
			return err
		}
	}
	_, err := bw.WriteString("\r\n")
	return err
}

func defaultReason(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 304:
		return "Not Modified"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	case 502:
		return "Bad Gateway"
	default:
		return ""
	}
}
