package app

import (
	"net/http"

	"github.com/wudi/pagecount/internal/router"
)

// Home serves the landing, privacy and error pages.
type Home struct {
	views *Views
}

func NewHome(views *Views) *Home {
	return &Home{views: views}
}

func (h *Home) Name() string { return "Home" }

func (h *Home) Actions() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"Index":   h.Index,
		"Privacy": h.Privacy,
		"Error":   h.Error,
	}
}

func (h *Home) Index(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, PageHomeIndex, http.StatusOK, Model(r, "Home Page", "Home/Index"))
}

func (h *Home) Privacy(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, PageHomePrivacy, http.StatusOK, Model(r, "Privacy Policy", "Home/Privacy"))
}

func (h *Home) Error(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, PageHomeError, http.StatusOK, Model(r, "Error", "Home/Error"))
}

// Other serves a second counted page, also reachable at /other.
type Other struct {
	views *Views
}

func NewOther(views *Views) *Other {
	return &Other{views: views}
}

func (o *Other) Name() string { return "Other" }

func (o *Other) Actions() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{"Index": o.Index}
}

func (o *Other) Index(w http.ResponseWriter, r *http.Request) {
	o.views.Render(w, r, PageOtherIndex, http.StatusOK, Model(r, "Other", "Other/Index"))
}

// Controllers returns every controller of the application.
func Controllers(views *Views) []router.Controller {
	return []router.Controller{NewHome(views), NewOther(views)}
}
