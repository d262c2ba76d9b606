package testinfra

import (
	"campflow/authority"
	"campflow/session"
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BuildSession builds a security context for tests.
func BuildSession(uid types.ID, perms ...string) *session.Session {
	return &session.Session{
		Identity: session.Identity{ID: uid},
		Perms:    authority.Permissions(perms),
		Context:  context.Background(),
	}
}

// ExecuteRequest drives the request through the router and drains the response.
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, *http.Response) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	defer func() {
		_ = resp.Body.Close()
	}()
	bodyBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}
	return resp.StatusCode, string(bodyBytes), resp
}
