package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-library-api/internal/domain"
	"go-library-api/internal/ledger"
	"go-library-api/internal/transport/http/ez"
	mdw "go-library-api/internal/transport/http/middleware"
)

// BorrowsModule is a thin shell over the ledger: every rule lives there.
type BorrowsModule struct {
	ldg *ledger.Ledger
}

func NewBorrowsModule(ldg *ledger.Ledger) *BorrowsModule {
	return &BorrowsModule{ldg: ldg}
}

func (m *BorrowsModule) MountAPI(pub, priv *gin.RouterGroup) {
	e := ez.New(priv)

	ez.Register[struct{}, domain.Borrow](e, ez.Action[struct{}, domain.Borrow]{
		Method: http.MethodPost,
		Path:   "/books/:isbn/borrow",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (domain.Borrow, error) {
			b, err := m.ldg.Borrow(c.Request.Context(), c.GetString(mdw.KeyUserEmail), c.Param("isbn"))
			if err != nil {
				return domain.Borrow{}, err
			}
			return *b, nil
		},
	})

	ez.Register[struct{}, gin.H](e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/books/:isbn/return",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := m.ldg.Return(c.Request.Context(), c.GetString(mdw.KeyUserEmail), c.Param("isbn")); err != nil {
				return nil, err
			}
			return gin.H{"returned": true}, nil
		},
	})

	type overdueQ struct {
		Page  int `form:"page,default=1" binding:"omitempty,min=1"`
		Limit int `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
	}
	ez.Register[overdueQ, []domain.OverdueEntry](e, ez.Action[overdueQ, []domain.OverdueEntry]{
		Method: http.MethodGet,
		Path:   "/borrows/overdue",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *overdueQ) ([]domain.OverdueEntry, error) {
			entries, err := m.ldg.ListOverdue(c.Request.Context(), in.Page, in.Limit)
			if err != nil {
				return nil, ez.Internal("list overdue failed", err)
			}
			return entries, nil
		},
	})
}
