package variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Resolve interpolates $name and ${name} variables in template. Unknown
// names resolve to "".
func Resolve(template string, ctx *Context) string {
	return os.Expand(template, func(name string) string {
		v, _ := Get(name, ctx)
		return v
	})
}

// Get returns the value of a single variable.
func Get(name string, ctx *Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if header, ok := strings.CutPrefix(name, "http_"); ok {
		if ctx.Request == nil {
			return "", true
		}
		return ctx.Request.Header.Get(strings.ReplaceAll(header, "_", "-")), true
	}

	switch name {
	case "request_id":
		return ctx.RequestID, true
	case "route":
		route, _ := ctx.Route()
		return route, true
	case "status":
		return strconv.Itoa(ctx.Status), true
	case "body_bytes_sent":
		return strconv.FormatInt(ctx.BodyBytesSent, 10), true
	case "response_time":
		return fmt.Sprintf("%.3f", ctx.ResponseTime.Seconds()*1000), true
	case "time_iso8601":
		return time.Now().Format(time.RFC3339), true
	}

	if ctx.Request == nil {
		return "", false
	}
	switch name {
	case "request_method":
		return ctx.Request.Method, true
	case "request_uri":
		return ctx.Request.RequestURI, true
	case "request_path":
		return ctx.Request.URL.Path, true
	case "remote_addr":
		return ExtractClientIP(ctx.Request), true
	case "host":
		return ctx.Request.Host, true
	}
	return "", false
}
