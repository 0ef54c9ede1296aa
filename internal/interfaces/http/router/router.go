// Package router assembles the gin engine and the plot API route table.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is one endpoint of an API area
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

func get(path string, h gin.HandlerFunc) Route    { return Route{http.MethodGet, path, h} }
func post(path string, h gin.HandlerFunc) Route   { return Route{http.MethodPost, path, h} }
func put(path string, h gin.HandlerFunc) Route    { return Route{http.MethodPut, path, h} }
func patch(path string, h gin.HandlerFunc) Route  { return Route{http.MethodPatch, path, h} }
func remove(path string, h gin.HandlerFunc) Route { return Route{http.MethodDelete, path, h} }

// Area is the set of routes mounted under one prefix, such as /plots
type Area struct {
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

func (a Area) mount(parent *gin.RouterGroup) {
	g := parent.Group(a.Prefix, a.Middleware...)
	for _, rt := range a.Routes {
		g.Handle(rt.Method, rt.Path, rt.Handler)
	}
}

// Router mounts API areas under /api/<version>.
type Router struct {
	engine  *gin.Engine
	version string
	areas   []Area
}

// Option configures a Router
type Option func(*Router)

// WithAPIVersion replaces the default "v1" path segment
func WithAPIVersion(version string) Option {
	return func(r *Router) { r.version = version }
}

// NewRouter wraps engine. Plot ids contain "/" (e.g. "152/1-7-1700000000000"),
// so clients escape them and the engine matches on the raw path.
func NewRouter(engine *gin.Engine, opts ...Option) *Router {
	engine.UseRawPath = true
	engine.UnescapePathValues = true

	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Mount queues areas for Setup
func (r *Router) Mount(areas ...Area) *Router {
	r.areas = append(r.areas, areas...)
	return r
}

// Setup registers every queued area with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.version)
	for _, a := range r.areas {
		a.mount(api)
	}
}
