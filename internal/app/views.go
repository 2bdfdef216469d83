package app

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/wudi/pagecount/internal/counter"
	"github.com/wudi/pagecount/internal/errors"
	"github.com/wudi/pagecount/internal/logging"
	"github.com/wudi/pagecount/internal/tmplutil"
	"github.com/wudi/pagecount/internal/tracking"
	"github.com/wudi/pagecount/variables"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names, one per content template.
const (
	PageHomeIndex   = "home_index"
	PageHomePrivacy = "home_privacy"
	PageHomeError   = "home_error"
	PageOtherIndex  = "other_index"
)

// Counter is one row of the counts table.
type Counter struct {
	Name  string
	Value int64
}

// PageModel is what every page renders: the visitor's count for the current
// page and a snapshot of all counters.
type PageModel struct {
	Title         string
	Route         string
	Visits        int64
	SessionVisits int64
	Visited       bool
	TotalSessions int64
	Counters      []Counter
	RequestID     string
}

// Views holds the parsed page templates.
type Views struct {
	pages map[string]*template.Template
}

// NewViews parses the embedded templates.
func NewViews() (*Views, error) {
	v := &Views{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageHomeIndex, PageHomePrivacy, PageHomeError, PageOtherIndex} {
		tpl, err := template.New(page).Funcs(tmplutil.FuncMap()).
			ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, err
		}
		v.pages[page] = tpl
	}
	return v, nil
}

// Model builds the page model for route. Visits come from the request as it
// arrived; the current request is tallied when the response is sent.
func Model(r *http.Request, title, route string) PageModel {
	m := PageModel{
		Title:     title,
		Route:     route,
		RequestID: variables.GetFromRequest(r).RequestID,
	}
	m.Visits, m.Visited = tracking.ActionCount(r, route)

	snap := tracking.Snapshot(r)
	m.SessionVisits, _ = snap.Get(counter.SessionActions(route))
	m.TotalSessions, _ = snap.Get(counter.TotalSessions)

	m.Counters = make([]Counter, 0, len(snap))
	for name, value := range snap {
		m.Counters = append(m.Counters, Counter{Name: name, Value: value})
	}
	sort.Slice(m.Counters, func(i, j int) bool {
		return m.Counters[i].Name < m.Counters[j].Name
	})
	return m
}

// Render executes page into a buffer and writes it with status.
func (v *Views) Render(w http.ResponseWriter, r *http.Request, page string, status int, model PageModel) {
	tpl, ok := v.pages[page]
	if !ok {
		errors.ErrInternalServer.WithDetails("unknown page " + page).WithRequestID(model.RequestID).WriteJSON(w)
		return
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", model); err != nil {
		logging.Error("Page render failed",
			zap.String("page", page),
			zap.String("request_id", model.RequestID),
			zap.Error(err),
		)
		errors.Wrap(err, http.StatusInternalServerError, "Internal Server Error").
			WithRequestID(model.RequestID).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
