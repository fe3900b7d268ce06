package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// maxPeek bounds how much of a JSON reply is read to look for an auth error
const maxPeek = 64 << 10

var (
	statusFields  = []string{"code", "status", "status_code"}
	messageFields = []string{"detail", "message", "error", "msg"}
	authPhrases   = []string{"not authenticated", "unauthorized"}
)

// challenge inspects resp for an auth failure. A 401 always is one; a 2xx
// reply that is not an event stream is one when its body is a JSON object
// whose payload says so. Whatever was peeked is put back in front of the body.
func challenge(resp *http.Response) (*AuthRequiredError, error) {
	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthRequiredError{StatusCode: resp.StatusCode, Reason: excerpt(resp.Body)}, nil
	}
	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || isEventStream(contentType) {
		return nil, nil
	}

	br := bufio.NewReader(resp.Body)
	body := resp.Body
	resp.Body = struct {
		io.Reader
		io.Closer
	}{br, body}
	if !isJSON(contentType) && !startsWithObject(br) {
		return nil, nil
	}

	peek, err := io.ReadAll(io.LimitReader(br, maxPeek))
	if err != nil {
		return nil, err
	}
	if reason, ok := unauthenticated(peek); ok {
		return &AuthRequiredError{StatusCode: http.StatusUnauthorized, Reason: reason}, nil
	}
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peek), br), body}
	return nil, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

func isEventStream(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/event-stream"
}

// startsWithObject reports whether the first non-space byte of br is '{'
// without consuming anything
func startsWithObject(br *bufio.Reader) bool {
	const maxLead = 64
	for n := 1; n <= maxLead; n++ {
		buf, _ := br.Peek(n)
		if len(buf) < n {
			return false
		}
		switch buf[n-1] {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// unauthenticated reports whether a JSON error body signals a missing or
// expired login, either by a 401 status field or by its message text.
func unauthenticated(body []byte) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	reason := ""
	for _, f := range messageFields {
		if s, ok := payload[f].(string); ok && s != "" {
			reason = s
			break
		}
	}

	for _, f := range statusFields {
		switch v := payload[f].(type) {
		case float64:
			if v == http.StatusUnauthorized {
				return reason, true
			}
		case string:
			if n, err := strconv.Atoi(v); err == nil && n == http.StatusUnauthorized {
				return reason, true
			}
		}
	}

	for _, f := range messageFields {
		s, ok := payload[f].(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(s)
		for _, p := range authPhrases {
			if strings.Contains(lower, p) {
				return s, true
			}
		}
	}
	return "", false
}

// excerpt reads a short prefix of an error body for diagnostics
func excerpt(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(data))
}
