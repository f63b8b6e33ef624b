package httppresentation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appInventory "github.com/Zhima-Mochi/marketplace/app/internal/application/inventory"
	appReview "github.com/Zhima-Mochi/marketplace/app/internal/application/review"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
)

type addProductRequest struct {
	StoreID string `json:"store_id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	Stock   int    `json:"stock"`
}

type updateProductRequest struct {
	Name   *string `json:"name"`
	Price  *int64  `json:"price"`
	Stock  *int    `json:"stock"`
	Active *bool   `json:"active"`
}

type createReviewRequest struct {
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h *Handler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	act, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.Catalog.AddProduct(r.Context(), act, appInventory.AddProductInput{
		StoreID: req.StoreID,
		Name:    req.Name,
		Price:   req.Price,
		Stock:   req.Stock,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, productFromDomain(p), "product created")
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	act, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.Catalog.UpdateProduct(r.Context(), act, chi.URLParam(r, "id"), product.Patch{
		Name:   req.Name,
		Price:  req.Price,
		Stock:  req.Stock,
		Active: req.Active,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, productFromDomain(p), "product updated")
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Reviews.Create(r.Context(), appReview.CreateReviewInput{
		UserID:    userID,
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, reviewFromDomain(res.Review, res.VerifiedPurchase), "review created")
}
