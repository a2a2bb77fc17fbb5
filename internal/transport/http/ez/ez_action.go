// Package ez registers non-CRUD actions in one line each: bind, auth-check,
// run, and map errors into the uniform response envelope.
package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-library-api/internal/ledger"
	mdw "go-library-api/internal/transport/http/middleware"
	resp "go-library-api/internal/transport/http/response"
)

type Binder string

const (
	BindJSON  Binder = "json"  // bind from the JSON body
	BindQuery Binder = "query" // bind from ?a=b
	BindNone  Binder = "none"  // handler reads c.Param / c.Query itself
)

// AErr carries the envelope code alongside the message.
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AErr{Code: resp.CodeConflict, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// Action describes one endpoint: I is the bound input, O the payload.
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Auth    bool     // require a logged-in user (email in context)
	Roles   []string // optionally restrict to these roles
	Handler func(c *gin.Context, in *I) (O, error)
}

func Register[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		if a.Auth {
			email := c.GetString(mdw.KeyUserEmail)
			if email == "" {
				c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
				return
			}
			if len(a.Roles) > 0 {
				role := c.GetString(mdw.KeyUserRole)
				ok := false
				for _, r := range a.Roles {
					if role == r {
						ok = true
						break
					}
				}
				if !ok {
					c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
					return
				}
			}
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			c.JSON(http.StatusOK, toResp(err))
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

// toResp maps errors onto envelope codes: an explicit AErr wins, then the
// ledger's business kinds, and anything else is a 500.
func toResp(err error) resp.Resp {
	var ae *AErr
	if errors.As(err, &ae) {
		return resp.Error(ae.Code, ae.Error())
	}
	switch ledger.KindOf(err) {
	case ledger.KindNotFound:
		return resp.Error(resp.CodeNotFound, err.Error())
	case ledger.KindConflict:
		return resp.Error(resp.CodeConflict, err.Error())
	}
	return resp.Error(resp.CodeServerError, err.Error())
}
