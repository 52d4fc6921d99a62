package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Group is a route prefix with its own middleware. Routes are collected first
// and mounted on the engine by Mount, so middleware added with Use applies to
// every route of the group regardless of declaration order.
type Group struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*Group
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewGroup returns an empty group mounted at prefix
func NewGroup(prefix string, middleware ...gin.HandlerFunc) *Group {
	return &Group{prefix: prefix, middleware: middleware}
}

// Use appends middleware to the group
func (g *Group) Use(middleware ...gin.HandlerFunc) *Group {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// Group adds a child group that runs this group's middleware first
func (g *Group) Group(prefix string, middleware ...gin.HandlerFunc) *Group {
	child := NewGroup(prefix, middleware...)
	g.children = append(g.children, child)
	return child
}

func (g *Group) handle(method, path string, handlers []gin.HandlerFunc) *Group {
	g.routes = append(g.routes, route{method: method, path: path, handlers: handlers})
	return g
}

func (g *Group) GET(path string, handlers ...gin.HandlerFunc) *Group {
	return g.handle(http.MethodGet, path, handlers)
}

func (g *Group) POST(path string, handlers ...gin.HandlerFunc) *Group {
	return g.handle(http.MethodPost, path, handlers)
}

func (g *Group) PUT(path string, handlers ...gin.HandlerFunc) *Group {
	return g.handle(http.MethodPut, path, handlers)
}

func (g *Group) mount(parent *gin.RouterGroup) {
	rg := parent.Group(g.prefix, g.middleware...)
	for _, r := range g.routes {
		rg.Handle(r.method, r.path, r.handlers...)
	}
	for _, child := range g.children {
		child.mount(rg)
	}
}

// BasePath is the prefix of a versioned API, e.g. "/api/v1"
func BasePath(version string) string {
	return "/api/" + version
}

// Mount registers groups under BasePath(version)
func Mount(engine *gin.Engine, version string, groups ...*Group) {
	base := engine.Group(BasePath(version))
	for _, g := range groups {
		g.mount(base)
	}
}
