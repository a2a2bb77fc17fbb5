package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-library-api/internal/domain"
	"go-library-api/internal/ledger"
	"go-library-api/internal/repo"
	"go-library-api/internal/transport/http/ez"
)

// BooksModule serves the catalog. Patrons browse and check availability;
// create/update/delete live on the librarian surface only.
type BooksModule struct {
	books *repo.BookRepo
	store *repo.Store
	ldg   *ledger.Ledger
}

func NewBooksModule(books *repo.BookRepo, store *repo.Store, ldg *ledger.Ledger) *BooksModule {
	return &BooksModule{books: books, store: store, ldg: ldg}
}

type bookView struct {
	domain.Book
	AvailableQuantity int `json:"availableQuantity"`
}

func (m *BooksModule) MountAPI(pub, priv *gin.RouterGroup) {
	e := ez.New(pub)

	type listQ struct {
		Title  string `form:"title"`
		Author string `form:"author"`
		ISBN   string `form:"isbn"`
		Page   int    `form:"page,default=1" binding:"omitempty,min=1"`
		Limit  int    `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
	}
	type listOut struct {
		Total int64         `json:"total"`
		Page  int           `json:"page"`
		Limit int           `json:"limit"`
		Items []domain.Book `json:"items"`
	}
	ez.Register[listQ, listOut](e, ez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/books",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			books, total, err := m.books.Search(c.Request.Context(), repo.BookQuery{
				Title:  in.Title,
				Author: in.Author,
				ISBN:   in.ISBN,
				Offset: (in.Page - 1) * in.Limit,
				Limit:  in.Limit,
			})
			if err != nil {
				return listOut{}, ez.Internal("list books failed", err)
			}
			return listOut{Total: total, Page: in.Page, Limit: in.Limit, Items: books}, nil
		},
	})

	ez.Register[struct{}, bookView](e, ez.Action[struct{}, bookView]{
		Method: http.MethodGet,
		Path:   "/books/:isbn",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (bookView, error) {
			ctx := c.Request.Context()
			isbn := c.Param("isbn")
			book, err := m.books.FindByISBN(ctx, isbn)
			if err != nil {
				return bookView{}, ez.Internal("load book failed", err)
			}
			if book == nil {
				return bookView{}, ledger.ErrBookNotFound
			}
			avail, err := m.ldg.Availability(ctx, isbn)
			if err != nil {
				return bookView{}, err
			}
			return bookView{Book: *book, AvailableQuantity: avail.AvailableQuantity}, nil
		},
	})
}

func (m *BooksModule) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin)

	type bookIn struct {
		ISBN          string `json:"isbn" binding:"required,max=32"`
		Title         string `json:"title" binding:"required,max=255"`
		Author        string `json:"author" binding:"required,max=255"`
		Shelf         string `json:"shelf" binding:"omitempty,max=32"`
		TotalQuantity int    `json:"totalQuantity" binding:"required,min=1"`
	}
	ez.Register[bookIn, domain.Book](e, ez.Action[bookIn, domain.Book]{
		Method: http.MethodPost,
		Path:   "/books",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *bookIn) (domain.Book, error) {
			ctx := c.Request.Context()
			existing, err := m.books.FindByISBN(ctx, in.ISBN)
			if err != nil {
				return domain.Book{}, ez.Internal("load book failed", err)
			}
			if existing != nil {
				return domain.Book{}, ez.Conflict("book with this ISBN already exists")
			}
			b := domain.Book{
				ISBN:          in.ISBN,
				Title:         in.Title,
				Author:        in.Author,
				Shelf:         in.Shelf,
				TotalQuantity: in.TotalQuantity,
			}
			if err := m.books.Create(ctx, &b); err != nil {
				return domain.Book{}, ez.Internal("create book failed", err)
			}
			return b, nil
		},
	})

	type bookUpdate struct {
		Title         string `json:"title" binding:"required,max=255"`
		Author        string `json:"author" binding:"required,max=255"`
		Shelf         string `json:"shelf" binding:"omitempty,max=32"`
		TotalQuantity int    `json:"totalQuantity" binding:"required,min=1"`
	}
	ez.Register[bookUpdate, gin.H](e, ez.Action[bookUpdate, gin.H]{
		Method: http.MethodPut,
		Path:   "/books/:isbn",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *bookUpdate) (gin.H, error) {
			isbn := c.Param("isbn")
			n, err := m.books.Update(c.Request.Context(), &domain.Book{
				ISBN:          isbn,
				Title:         in.Title,
				Author:        in.Author,
				Shelf:         in.Shelf,
				TotalQuantity: in.TotalQuantity,
			})
			if err != nil {
				return nil, ez.Internal("update book failed", err)
			}
			if n == 0 {
				return nil, ledger.ErrBookNotFound
			}
			return gin.H{"isbn": isbn}, nil
		},
	})

	ez.Register[struct{}, gin.H](e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/books/:isbn",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			ctx := c.Request.Context()
			isbn := c.Param("isbn")
			// Borrow history keeps its referential integrity: no deleting a
			// book that has ever been borrowed.
			refs, err := m.store.CountBorrowHistory(ctx, isbn)
			if err != nil {
				return nil, ez.Internal("check borrow history failed", err)
			}
			if refs > 0 {
				return nil, ez.Conflict("book has borrow history and cannot be deleted")
			}
			n, err := m.books.Delete(ctx, isbn)
			if err != nil {
				return nil, ez.Internal("delete book failed", err)
			}
			if n == 0 {
				return nil, ledger.ErrBookNotFound
			}
			return gin.H{"isbn": isbn}, nil
		},
	})
}
