package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

// formatHeaders renders headers sorted by key so two dumps of the same
// request diff cleanly.
func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return string(readBody)
}

func formatHttpMessage(res *resty.Response) string {
	req := res.Request

	url := req.URL
	headers := req.Header
	var body string
	if req.RawRequest != nil {
		url = req.RawRequest.URL.String()
		headers = req.RawRequest.Header
		body = formatRequestBody(req.RawRequest)
	}

	var out strings.Builder
	out.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&out, "%s %s\n\n", req.Method, url)
	out.WriteString(formatHeaders(headers))
	out.WriteString("\n\n")
	out.WriteString(body)
	out.WriteString("\n\n---- RESPONSE ----\n\n")
	out.WriteString(res.Status())
	out.WriteString("\n\n")
	out.WriteString(formatHeaders(res.Header()))
	out.WriteString("\n\n")
	out.WriteString(res.String())
	return out.String()
}
