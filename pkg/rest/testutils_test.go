package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/ruled/ruled/pkg/config"
	"github.com/ruled/ruled/pkg/ruleset"
	"github.com/ruled/ruled/pkg/server/web"
)

func testRestGet(url string) (*httptest.ResponseRecorder, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json")
	w := httptest.NewRecorder()
	web.Router.ServeHTTP(w, req)
	return w, nil
}

func testRestPost(url string, body string) (*httptest.ResponseRecorder, error) {
	req, err := http.NewRequest("POST", url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")
	w := httptest.NewRecorder()
	web.Router.ServeHTTP(w, req)
	return w, nil
}

// fakeReloader publishes next into its Holder, or fails with err.
type fakeReloader struct {
	holder *ruleset.Holder
	next   *ruleset.Ruleset
	err    error
	calls  int
}

func (f *fakeReloader) Reload(context.Context) (*ruleset.Ruleset, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.holder.Store(f.next)
	return f.next, nil
}

func setupWebServer(rs *ruleset.Ruleset, r web.Reloader) *ruleset.Matcher {
	cfg := &config.Root{
		Web: config.Web{
			Addr: "127.0.0.1:0",
		},
	}
	m := &ruleset.Matcher{Rules: ruleset.NewHolder(rs)}
	if fr, ok := r.(*fakeReloader); ok {
		fr.holder = m.Rules
	}
	web.NewServer(cfg, make(chan bool), m, r)
	SetupRoutes(web.Router.PathPrefix("/api/").Subrouter())
	return m
}

func decodedNumberEquals(t *testing.T, json any, path string, want float64) {
	t.Helper()
	els := strings.Split(path, "/")
	val, msg := getDecodedPath(json, els...)
	if msg != "" {
		t.Errorf("JSON result%s", msg)
		return
	}
	got, ok := val.(float64)
	if ok {
		if got == want {
			return
		}
	}
	t.Errorf("JSON result/%s == %v (%T) %v (int64),\nwant: %v / %v",
		path, val, val, int64(got), want, int64(want))
}

func decodedStringEquals(t *testing.T, json any, path string, want string) {
	t.Helper()
	els := strings.Split(path, "/")
	val, msg := getDecodedPath(json, els...)
	if msg != "" {
		t.Errorf("JSON result%s", msg)
		return
	}
	if got, ok := val.(string); ok {
		if got == want {
			return
		}
	}
	t.Errorf("JSON result/%s == %v (%T), want: %v", path, val, val, want)
}

// getDecodedPath recursively navigates the specified path, returing the requested element.  If
// something goes wrong, the returned string will contain an explanation.
//
// Named path elements require the parent element to be a map[string]any, numbers in square
// brackets require the parent element to be a []any.
//
//     getDecodedPath(o, "users", "[1]", "name")
//
// is equivalent to the JavaScript:
//
//     o.users[1].name
//
func getDecodedPath(o any, path ...string) (any, string) {
	if len(path) == 0 {
		return o, ""
	}
	if o == nil {
		return nil, " is nil"
	}
	key := path[0]
	present := false
	var val any
	if key[0] == '[' {
		// Expecting slice.
		index, err := strconv.Atoi(strings.Trim(key, "[]"))
		if err != nil {
			return nil, "/" + key + " is not a slice index"
		}
		oslice, ok := o.([]any)
		if !ok {
			return nil, " is not a slice"
		}
		if index >= len(oslice) {
			return nil, "/" + key + " is out of bounds"
		}
		val, present = oslice[index], true
	} else {
		// Expecting map.
		omap, ok := o.(map[string]any)
		if !ok {
			return nil, " is not a map"
		}
		val, present = omap[key]
	}
	if !present {
		return nil, "/" + key + " is missing"
	}
	result, msg := getDecodedPath(val, path[1:]...)
	if msg != "" {
		return nil, "/" + key + msg
	}
	return result, ""
}
