package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func echoMethod(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.Equal(t, "v1", r.version)
	assert.True(t, engine.UseRawPath)
	assert.True(t, engine.UnescapePathValues)
	assert.Same(t, engine, r.Engine())

	assert.Equal(t, "v2", NewRouter(gin.New(), WithAPIVersion("v2")).version)
}

func TestRouter_MountsAreasUnderVersion(t *testing.T) {
	engine := gin.New()
	NewRouter(engine, WithAPIVersion("v2")).Mount(
		Area{Prefix: "/dashboard", Routes: []Route{
			get("", func(c *gin.Context) { c.String(http.StatusOK, "stats") }),
		}},
		Area{Prefix: "/plots", Routes: []Route{
			get("/summary", func(c *gin.Context) { c.String(http.StatusOK, "summary") }),
			get("/:id", func(c *gin.Context) { c.String(http.StatusOK, "plot "+c.Param("id")) }),
		}},
	).Setup()

	assert.Equal(t, "stats", serve(engine, http.MethodGet, "/api/v2/dashboard").Body.String())
	assert.Equal(t, "summary", serve(engine, http.MethodGet, "/api/v2/plots/summary").Body.String())
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/dashboard").Code)
}

func TestRouter_EscapedPlotID(t *testing.T) {
	engine := gin.New()
	var got string
	NewRouter(engine).Mount(Area{Prefix: "/plots", Routes: []Route{
		get("/:id", func(c *gin.Context) {
			got = c.Param("id")
			c.Status(http.StatusOK)
		}),
	}}).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/plots/152%2F1-3-1700000000000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "152/1-3-1700000000000", got)
}

func TestArea_Methods(t *testing.T) {
	engine := gin.New()
	Area{Prefix: "/plots", Routes: []Route{
		get("/:id", echoMethod),
		post("", echoMethod),
		put("/:id", echoMethod),
		patch("/:id/status", echoMethod),
		remove("/:id", echoMethod),
	}}.mount(engine.Group("/api/v1"))

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/plots/7"},
		{http.MethodPost, "/api/v1/plots"},
		{http.MethodPut, "/api/v1/plots/7"},
		{http.MethodPatch, "/api/v1/plots/7/status"},
		{http.MethodDelete, "/api/v1/plots/7"},
	} {
		w := serve(engine, tt.method, tt.path)
		assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.method, w.Body.String())
	}
}

func TestArea_Middleware(t *testing.T) {
	engine := gin.New()
	Area{
		Prefix: "/admin",
		Middleware: []gin.HandlerFunc{func(c *gin.Context) {
			c.Header("X-Admin", "yes")
			c.Next()
		}},
		Routes: []Route{post("/regenerate", func(c *gin.Context) { c.Status(http.StatusOK) })},
	}.mount(engine.Group("/api/v1"))

	w := serve(engine, http.MethodPost, "/api/v1/admin/regenerate")
	assert.Equal(t, "yes", w.Header().Get("X-Admin"))
}
