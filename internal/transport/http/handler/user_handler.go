package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-library-api/internal/core/auth"
	"go-library-api/internal/domain"
	"go-library-api/internal/ledger"
	"go-library-api/internal/repo"
	"go-library-api/internal/transport/http/ez"
	mdw "go-library-api/internal/transport/http/middleware"
)

// UsersModule handles registration, login, and the /me surface.
//
// Login is email-only: any registered email gets a token. This weak-auth
// scheme is inherited from the system this API replaces and is kept on
// purpose; credential verification is a deployment decision that has not
// been taken.
type UsersModule struct {
	users *repo.UserRepo
	ldg   *ledger.Ledger
	jwter *auth.JWTer
}

func NewUsersModule(users *repo.UserRepo, ldg *ledger.Ledger, jwter *auth.JWTer) *UsersModule {
	return &UsersModule{users: users, ldg: ldg, jwter: jwter}
}

func (m *UsersModule) MountAPI(pub, priv *gin.RouterGroup) {
	e := ez.New(pub)

	type registerIn struct {
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name" binding:"required,max=64"`
	}
	ez.Register[registerIn, gin.H](e, ez.Action[registerIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *registerIn) (gin.H, error) {
			ctx := c.Request.Context()
			email := domain.NormalizeEmail(in.Email)
			existing, err := m.users.FindByEmail(ctx, email)
			if err != nil {
				return nil, ez.Internal("load user failed", err)
			}
			if existing != nil {
				return nil, ez.Conflict("user with this email already exists")
			}
			u := domain.User{Email: email, Name: in.Name, Role: domain.RolePatron}
			if err := m.users.Create(ctx, &u); err != nil {
				return nil, ez.Internal("create user failed", err)
			}
			return gin.H{"email": u.Email}, nil
		},
	})

	type loginIn struct {
		Email string `json:"email" binding:"required,email"`
	}
	type loginOut struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	ez.Register[loginIn, loginOut](e, ez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			ctx := c.Request.Context()
			u, err := m.users.FindByEmail(ctx, domain.NormalizeEmail(in.Email))
			if err != nil {
				return loginOut{}, ez.Internal("load user failed", err)
			}
			if u == nil {
				return loginOut{}, ez.NotFound("user not found")
			}
			tok, err := m.jwter.Issue(u.Email, u.Role)
			if err != nil || tok == "" {
				return loginOut{}, ez.Internal("issue token failed", err)
			}
			return loginOut{Token: tok, User: *u}, nil
		},
	})

	ep := ez.New(priv)

	ez.Register[struct{}, domain.User](ep, ez.Action[struct{}, domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (domain.User, error) {
			u, err := m.users.FindByEmail(c.Request.Context(), c.GetString(mdw.KeyUserEmail))
			if err != nil {
				return domain.User{}, ez.Internal("load user failed", err)
			}
			if u == nil {
				return domain.User{}, ez.NotFound("user not found")
			}
			return *u, nil
		},
	})

	type renameIn struct {
		Name string `json:"name" binding:"required,max=64"`
	}
	ez.Register[renameIn, gin.H](ep, ez.Action[renameIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/me",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *renameIn) (gin.H, error) {
			email := c.GetString(mdw.KeyUserEmail)
			n, err := m.users.UpdateName(c.Request.Context(), email, in.Name)
			if err != nil {
				return nil, ez.Internal("update user failed", err)
			}
			if n == 0 {
				return nil, ez.NotFound("user not found")
			}
			return gin.H{"email": email, "name": in.Name}, nil
		},
	})

	type loanRow struct {
		BookISBN   string        `json:"bookIsbn"`
		BorrowDate time.Time     `json:"borrowDate"`
		DueDate    time.Time     `json:"dueDate"`
		Status     domain.Status `json:"status"`
	}
	ez.Register[struct{}, []loanRow](ep, ez.Action[struct{}, []loanRow]{
		Method: http.MethodGet,
		Path:   "/me/borrows",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]loanRow, error) {
			borrows, err := m.ldg.ActiveBorrows(c.Request.Context(), c.GetString(mdw.KeyUserEmail))
			if err != nil {
				return nil, ez.Internal("list borrows failed", err)
			}
			now := m.ldg.Now()
			out := make([]loanRow, 0, len(borrows))
			for i := range borrows {
				b := &borrows[i]
				out = append(out, loanRow{
					BookISBN:   b.BookISBN,
					BorrowDate: b.BorrowDate,
					DueDate:    b.DueDate,
					Status:     b.Classify(now),
				})
			}
			return out, nil
		},
	})
}

func (m *UsersModule) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin)

	type listQ struct {
		Page  int `form:"page,default=1" binding:"omitempty,min=1"`
		Limit int `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
	}
	type listOut struct {
		Total int64         `json:"total"`
		Page  int           `json:"page"`
		Limit int           `json:"limit"`
		Items []domain.User `json:"items"`
	}
	ez.Register[listQ, listOut](e, ez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			users, total, err := m.users.List(c.Request.Context(), (in.Page-1)*in.Limit, in.Limit)
			if err != nil {
				return listOut{}, ez.Internal("list users failed", err)
			}
			return listOut{Total: total, Page: in.Page, Limit: in.Limit, Items: users}, nil
		},
	})

	ez.Register[struct{}, gin.H](e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/:email",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			email := domain.NormalizeEmail(c.Param("email"))
			n, err := m.users.Delete(c.Request.Context(), email)
			if err != nil {
				return nil, ez.Internal("delete user failed", err)
			}
			if n == 0 {
				return nil, ez.NotFound("user not found")
			}
			return gin.H{"email": email}, nil
		},
	})
}
