package echoapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/roster/core"
	appfs "github.com/trezcool/roster/fs"
)

func Test_templateRenderer(t *testing.T) {
	r, err := newTemplateRenderer(appfs.FS, appfs.ConsoleTemplatesDir)
	require.NoError(t, err)
	assert.Len(t, r.pages, 3)

	var buf bytes.Buffer
	page := loginPage{layoutData: layoutData{Title: "Login", Notice: noticeLoginFailed}, Email: "admin@school.cd"}
	require.NoError(t, r.Render(&buf, "login", page, nil))
	assert.Contains(t, buf.String(), "<title>Login | Roster</title>")
	assert.Contains(t, buf.String(), `<div class="notice" role="alert">Login failed</div>`)
	assert.NotContains(t, buf.String(), "<nav>")

	err = r.Render(&buf, "nope", nil, nil)
	assert.True(t, core.IsShutdown(err))
}

func Test_templateRenderer_csrf(t *testing.T) {
	r, err := newTemplateRenderer(appfs.FS, appfs.ConsoleTemplatesDir)
	require.NoError(t, err)

	e := echo.New()
	for _, token := range []string{"first-token", "second-token"} {
		ctx := e.NewContext(httptest.NewRequest(http.MethodGet, "/login", nil), httptest.NewRecorder())
		ctx.Set(contextCSRFKey, token)

		var buf bytes.Buffer
		require.NoError(t, r.Render(&buf, "login", loginPage{layoutData: layoutData{Title: "Login"}}, ctx))
		assert.Contains(t, buf.String(), `<input type="hidden" name="_csrf" value="`+token+`">`)
	}
}

func Test_newTemplateRenderer_broken(t *testing.T) {
	fsys := fstest.MapFS{
		"console/_layout.gohtml": {Data: []byte(`{{define "layout"}}{{template "content" .}}{{end}}`)},
		"console/bad.gohtml":     {Data: []byte(`{{define "content"}}{{.Oops}`)},
	}
	_, err := newTemplateRenderer(fsys, "console")
	assert.Error(t, err)
}
