package router

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/wudi/pagecount/internal/config"
	"github.com/wudi/pagecount/internal/errors"
	"github.com/wudi/pagecount/internal/logging"
	"github.com/wudi/pagecount/variables"
)

// Controller exposes a set of named actions.
type Controller interface {
	Name() string
	Actions() map[string]http.HandlerFunc
}

// Route is an explicit path mapped to a controller action.
type Route struct {
	Name       string   `json:"name,omitempty"`
	Path       string   `json:"path"`
	Controller string   `json:"controller"`
	Action     string   `json:"action"`
	Methods    []string `json:"methods,omitempty"`
}

// endpoint is a registered controller action under its canonical names.
type endpoint struct {
	controller string
	action     string
	handler    http.Handler
}

// Router resolves requests in two tiers. Explicit routes and static files
// live in an httprouter tree; anything the tree does not match falls back to
// the conventional /{controller}/{action}/{id} pattern.
type Router struct {
	mu        sync.RWMutex
	tree      *httprouter.Router
	routes    []Route
	endpoints map[string]*endpoint // lower(controller) + "/" + lower(action)
	notFound  http.Handler // JSON 404, set once in New
}

// standardMethods are registered for explicit routes that name no methods.
var standardMethods = []string{"GET", "HEAD"}

// New creates a router serving the given controllers.
func New(controllers ...Controller) *Router {
	rt := &Router{
		endpoints: make(map[string]*endpoint),
		notFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			errors.ErrNotFound.WithRequestID(variables.GetFromRequest(r).RequestID).WriteJSON(w)
		}),
	}
	for _, c := range controllers {
		rt.Register(c)
	}
	rt.tree, _ = rt.compile(nil, config.StaticConfig{})
	return rt
}

// Register adds a controller's actions. Call Load afterwards to rebuild the
// route table.
func (rt *Router) Register(c Controller) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for action, h := range c.Actions() {
		rt.endpoints[endpointKey(c.Name(), action)] = &endpoint{
			controller: c.Name(),
			action:     action,
			handler:    h,
		}
	}
}

// Load replaces the explicit routes and static file settings. The previous
// table stays in effect when an error is returned.
func (rt *Router) Load(routes []config.RouteConfig, static config.StaticConfig) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	compiled := make([]Route, 0, len(routes))
	for _, rc := range routes {
		if _, ok := rt.endpoints[endpointKey(rc.Controller, rc.Action)]; !ok {
			return fmt.Errorf("route %q: unknown action %s/%s", rc.Path, rc.Controller, rc.Action)
		}
		compiled = append(compiled, Route{
			Name:       rc.Name,
			Path:       rc.Path,
			Controller: rc.Controller,
			Action:     rc.Action,
			Methods:    rc.Methods,
		})
	}

	tree, err := rt.compile(compiled, static)
	if err != nil {
		return err
	}
	rt.routes = compiled
	rt.tree = tree
	return nil
}

// Routes returns the explicit routes in registration order.
func (rt *Router) Routes() []Route {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]Route, len(rt.routes))
	copy(out, rt.routes)
	return out
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mu.RLock()
	tree := rt.tree
	rt.mu.RUnlock()
	tree.ServeHTTP(w, r)
}

// compile builds an httprouter tree. httprouter panics on conflicting
// patterns; that panic is returned as an error.
func (rt *Router) compile(routes []Route, static config.StaticConfig) (tree *httprouter.Router, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("route table: %v", r)
		}
	}()

	tree = httprouter.New()
	tree.HandleMethodNotAllowed = false
	tree.HandleOPTIONS = false
	tree.RedirectTrailingSlash = false
	tree.RedirectFixedPath = false
	tree.NotFound = http.HandlerFunc(rt.conventional)

	registered := make(map[string]bool)
	handle := func(method, path string, h httprouter.Handle) {
		key := method + " " + path
		if registered[key] {
			return
		}
		registered[key] = true
		tree.Handle(method, path, h)
	}

	for _, route := range routes {
		ep := rt.endpoints[endpointKey(route.Controller, route.Action)]
		methods := route.Methods
		if len(methods) == 0 {
			methods = standardMethods
		}
		for _, m := range methods {
			handle(strings.ToUpper(m), replaceParams(route.Path), rt.dispatcher(ep))
		}
	}

	if home, ok := rt.endpoints[endpointKey("Home", "Index")]; ok {
		for _, m := range standardMethods {
			handle(m, "/", rt.dispatcher(home))
		}
	}

	if static.Dir != "" {
		prefix := "/" + strings.Trim(static.Prefix, "/") + "/"
		if prefix == "//" {
			prefix = "/static/"
		}
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(static.Dir)))
		for _, m := range standardMethods {
			tree.Handler(m, prefix+"*filepath", files)
		}
	}
	return tree, nil
}

// dispatcher records the resolved route before running the action.
func (rt *Router) dispatcher(ep *endpoint) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		vc := variables.GetFromRequest(r)
		if len(ps) > 0 {
			vc.PathParams = make(map[string]string, len(ps))
			for _, p := range ps {
				vc.PathParams[p.Key] = p.Value
			}
		}
		rt.invoke(ep, vc, w, r)
	}
}

func (rt *Router) invoke(ep *endpoint, vc *variables.Context, w http.ResponseWriter, r *http.Request) {
	vc.SetRoute(ep.controller, ep.action)
	logging.Debug("Dispatching",
		zap.String("controller", ep.controller),
		zap.String("action", ep.action),
		zap.String("path", r.URL.Path),
	)
	ep.handler.ServeHTTP(w, r)
}

// conventional handles /{controller=Home}/{action=Index}/{id?}.
func (rt *Router) conventional(w http.ResponseWriter, r *http.Request) {
	notFound := rt.notFound
	segments := splitPath(r.URL.Path)
	if len(segments) == 0 || len(segments) > 3 {
		notFound.ServeHTTP(w, r)
		return
	}
	action := "Index"
	if len(segments) > 1 {
		action = segments[1]
	}

	rt.mu.RLock()
	ep, ok := rt.endpoints[endpointKey(segments[0], action)]
	rt.mu.RUnlock()
	if !ok {
		notFound.ServeHTTP(w, r)
		return
	}

	vc := variables.GetFromRequest(r)
	if len(segments) == 3 {
		vc.PathParams = map[string]string{"id": segments[2]}
	}
	rt.invoke(ep, vc, w, r)
}

func endpointKey(controller, action string) string {
	return strings.ToLower(controller) + "/" + strings.ToLower(action)
}

// splitPath splits a URL path into non-empty segments.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// replaceParams converts {name} path parameters to :name httprouter syntax.
func replaceParams(path string) string {
	var result strings.Builder
	i := 0
	for i < len(path) {
		if path[i] == '{' {
			j := strings.IndexByte(path[i:], '}')
			if j == -1 {
				result.WriteByte(path[i])
				i++
				continue
			}
			result.WriteByte(':')
			result.WriteString(path[i+1 : i+j])
			i += j + 1
		} else {
			result.WriteByte(path[i])
			i++
		}
	}
	return result.String()
}
