package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/store"
)

func handleHealth(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := reader.Ping(c.Request.Context()); err != nil {
			logError("health", err)
			respondJSON(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleOrderByID(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			respondError(c, http.StatusBadRequest, "invalid order ID")
			return
		}

		order, err := reader.GetOrder(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrOrderNotFound) {
				respondError(c, http.StatusNotFound, "order not found")
				return
			}
			logError("get order", err)
			respondError(c, http.StatusInternalServerError, "failed to load order")
			return
		}

		respondJSON(c, http.StatusOK, order)
	}
}

func handleCustomerOrders(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		cursor := c.Query("cursor")
		if _, err := store.DecodeCursor(cursor); err != nil {
			respondError(c, http.StatusBadRequest, "invalid cursor")
			return
		}

		page, err := reader.CustomerOrders(c.Request.Context(), c.Param("phone"), cursor, limitParam(c))
		if err != nil {
			if errors.Is(err, database.ErrCustomerNotFound) {
				respondError(c, http.StatusNotFound, "customer not found")
				return
			}
			logError("list customer orders", err)
			respondError(c, http.StatusInternalServerError, "failed to list orders")
			return
		}

		respondJSON(c, http.StatusOK, page)
	}
}

func handleBooks(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c)

		result, err := reader.ListBooks(c.Request.Context(), page, pageSize)
		if err != nil {
			logError("list books", err)
			respondError(c, http.StatusInternalServerError, "failed to list books")
			return
		}

		respondJSON(c, http.StatusOK, result)
	}
}

func handleBookByID(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			respondError(c, http.StatusBadRequest, "invalid book ID")
			return
		}

		book, err := reader.GetBook(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrBookNotFound) {
				respondError(c, http.StatusNotFound, "book not found")
				return
			}
			logError("get book", err)
			respondError(c, http.StatusInternalServerError, "failed to load book")
			return
		}

		respondJSON(c, http.StatusOK, book)
	}
}

func handleCodes(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		codes, err := reader.ListCodes(c.Request.Context(), c.Param("category"))
		if err != nil {
			logError("list codes", err)
			respondError(c, http.StatusInternalServerError, "failed to list codes")
			return
		}
		if codes == nil {
			codes = []models.Code{}
		}

		respondJSON(c, http.StatusOK, codes)
	}
}

func handlePromotions(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		promos, err := reader.ActivePromotions(c.Request.Context(), time.Now())
		if err != nil {
			logError("list promotions", err)
			respondError(c, http.StatusInternalServerError, "failed to list promotions")
			return
		}

		respondJSON(c, http.StatusOK, promos)
	}
}
