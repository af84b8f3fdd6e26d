// Package httpapi exposes checkout and the read endpoints over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/safar/go-bookstore/internal/auth"
	"github.com/safar/go-bookstore/internal/checkout"
	"github.com/safar/go-bookstore/internal/metrics"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/store"
)

type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Receipt, error)
}

// Reader is satisfied by *store.Reader.
type Reader interface {
	Ping(ctx context.Context) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	CustomerOrders(ctx context.Context, phone, cursor string, limit int) (*store.CursorPage, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	ListCodes(ctx context.Context, category string) ([]models.Code, error)
	ActivePromotions(ctx context.Context, now time.Time) ([]models.Promotion, error)
}

type Deps struct {
	Checkout     Checkouter
	Reader       Reader
	Metrics      *metrics.Metrics
	JWTSecret    []byte
	AllowOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	if len(d.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", handleHealth(d.Reader))

	api := r.Group("/api")
	api.Use(auth.Optional(d.JWTSecret))

	api.POST("/pos/checkout", handleCheckout(d.Checkout, checkout.InStore))
	api.POST("/store/checkout", handleCheckout(d.Checkout, checkout.Online))

	api.GET("/orders/:id", handleOrderByID(d.Reader))
	api.GET("/customers/:phone/orders", handleCustomerOrders(d.Reader))
	api.GET("/books", handleBooks(d.Reader))
	api.GET("/books/:id", handleBookByID(d.Reader))
	api.GET("/codes/:category", handleCodes(d.Reader))
	api.GET("/promotions", handlePromotions(d.Reader))

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not found")
	})

	return r
}
