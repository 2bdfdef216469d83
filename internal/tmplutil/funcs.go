package tmplutil

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/goccy/go-json"
)

// FuncMap returns the function map shared by the page templates: all Sprig
// functions plus a few counter helpers.
func FuncMap() template.FuncMap {
	fm := sprig.HtmlFuncMap()

	fm["json"] = func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}
	// namespace returns the part of a counter name before the first slash.
	fm["namespace"] = func(name string) string {
		ns, _, _ := strings.Cut(name, "/")
		return ns
	}
	// route returns the part of a counter name after the first slash.
	fm["route"] = func(name string) string {
		_, route, _ := strings.Cut(name, "/")
		return route
	}
	fm["times"] = func(n int64) string {
		if n == 1 {
			return "once"
		}
		return strconv.FormatInt(n, 10) + " times"
	}

	return fm
}
