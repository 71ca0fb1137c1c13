// internal/resolver/response.go
//
// Wire response model.
//
// Every per-kind builder returns one of five shapes: a redirect, inline
// plaintext, inline HTML, a generated text attachment (vCard, iCalendar),
// or a streamed file.  Keeping the shape as data instead of writing to the
// ResponseWriter inside the builders keeps them pure and directly
// assertable in tests.

package resolver

import (
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Response is the resolver's output, written once by Write.
type Response struct {
	Status      int    // defaults: 302 for redirects, 200 otherwise
	RedirectURL string // non-empty for redirect responses
	ContentType string
	Body        []byte
	Filename    string // when set, served as an attachment

	// Stream, when non-nil, is written instead of Body and closed
	// afterwards.  Used for stored files (pdf).
	Stream io.ReadCloser
	Size   int64
}

func redirect(url string) *Response {
	return &Response{Status: http.StatusFound, RedirectURL: url}
}

func plaintext(body string) *Response {
	return &Response{
		Status:      http.StatusOK,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(body),
	}
}

func htmlPage(body string) *Response {
	return &Response{
		Status:      http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}
}

func attachment(contentType, filename, body string) *Response {
	return &Response{
		Status:      http.StatusOK,
		ContentType: contentType,
		Filename:    filename,
		Body:        []byte(body),
	}
}

// Write emits the response.  The request is only needed for the redirect
// helper's Location handling.
func (resp *Response) Write(w http.ResponseWriter, r *http.Request) {
	if resp.RedirectURL != "" {
		status := resp.Status
		if status == 0 {
			status = http.StatusFound
		}
		http.Redirect(w, r, resp.RedirectURL, status)
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	if resp.Filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+resp.Filename+`"`)
	}

	if resp.Stream != nil {
		defer resp.Stream.Close()
		if resp.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(resp.Size, 10))
		}
		w.WriteHeader(resp.statusOr(http.StatusOK))
		if _, err := io.Copy(w, resp.Stream); err != nil {
			// Client went away mid-download; nothing to recover.
			zap.S().Debugw("file stream aborted", "err", err)
		}
		return
	}

	w.WriteHeader(resp.statusOr(http.StatusOK))
	_, _ = w.Write(resp.Body)
}

func (resp *Response) statusOr(fallback int) int {
	if resp.Status != 0 {
		return resp.Status
	}
	return fallback
}
