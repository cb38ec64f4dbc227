package transport

import (
	"strconv"
	"strings"
	"time"
)

const crlf = "\r\n"

// Framing renders a request for one network backend and says how long to
// wait after writing before judging the connection.
type Framing interface {
	Frame(host, requestLine string, headers []string, body string) string
	Settle() time.Duration
}

// NamedFraming addresses collectors by host name: HTTP/1.1 with a Host
// header, checked immediately after the write.
type NamedFraming struct{}

func (NamedFraming) Frame(host, requestLine string, headers []string, body string) string {
	return frame("HTTP/1.1", host, requestLine, headers, body)
}

func (NamedFraming) Settle() time.Duration { return 0 }

// AddressFraming addresses collectors by IP: HTTP/1.0 without Host, with a
// one second settle before the connected check.
type AddressFraming struct{}

func (AddressFraming) Frame(_, requestLine string, headers []string, body string) string {
	return frame("HTTP/1.0", "", requestLine, headers, body)
}

func (AddressFraming) Settle() time.Duration { return time.Second }

func frame(proto, host, requestLine string, headers []string, body string) string {
	var b strings.Builder
	b.WriteString(requestLine)
	b.WriteByte(' ')
	b.WriteString(proto)
	b.WriteString(crlf)
	if host != "" {
		b.WriteString("Host: " + host + crlf)
	}
	b.WriteString("Connection: close" + crlf)
	b.WriteString("Content-Type: application/x-www-form-urlencoded" + crlf)
	if len(body) > 0 {
		b.WriteString("Content-Length: " + strconv.Itoa(len(body)) + crlf)
	}
	for _, h := range headers {
		b.WriteString(strings.TrimRight(h, "\r\n"))
		b.WriteString(crlf)
	}
	b.WriteString(crlf)
	b.WriteString(body)
	return b.String()
}
