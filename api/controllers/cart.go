package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/uniformhub-backend/api/middleware"
	"github.com/angelmondragon/uniformhub-backend/api/responses"
	"github.com/angelmondragon/uniformhub-backend/api/validators"
	"github.com/angelmondragon/uniformhub-backend/internal/cart"
	"github.com/angelmondragon/uniformhub-backend/internal/products"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
	Size      string    `json:"size" validate:"max=20"`
	Color     string    `json:"color" validate:"max=40"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	Session string          `json:"session"`
	Items   []cart.Item     `json:"items"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
}

func newCartResponse(session string, c *cart.Cart) cartResponse {
	return cartResponse{Session: session, Items: c.Items(), Total: c.Total(), Count: c.Count()}
}

func openCart(w http.ResponseWriter, r *http.Request, sessions *cart.Sessions, logg *logger.Logger) (*cart.Cart, string, bool) {
	session := middleware.CartSessionFromContext(r.Context())
	c, err := sessions.Open(r.Context(), session)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, "", false
	}
	return c, session, true
}

// GetCart returns the lines stored for the request's cart session.
func GetCart(sessions *cart.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, session, ok := openCart(w, r, sessions, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, newCartResponse(session, c))
	}
}

// AddCartItem resolves the product server-side so price and name come from
// the catalog rather than the client.
func AddCartItem(sessions *cart.Sessions, catalog products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := catalog.Get(r.Context(), body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !product.InStock {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "product is out of stock"))
			return
		}

		c, session, ok := openCart(w, r, sessions, logg)
		if !ok {
			return
		}
		snapshot := cart.Product{ID: product.ID, Name: product.Name, Price: product.Price, ImageURL: product.ImageURL}
		if product.School != nil {
			snapshot.School = &cart.Ref{ID: product.School.ID, Name: product.School.Name}
		}
		if product.Category != nil {
			snapshot.Category = &cart.Ref{ID: product.Category.ID, Name: product.Category.Name}
		}
		if err := c.AddToCart(r.Context(), snapshot, body.Quantity, body.Size, body.Color); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(session, c))
	}
}

// UpdateCartItem sets the quantity of every line for the product. Values
// below one are stored as one.
func UpdateCartItem(sessions *cart.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, session, ok := openCart(w, r, sessions, logg)
		if !ok {
			return
		}
		if err := c.UpdateQuantity(r.Context(), productID, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(session, c))
	}
}

// RemoveCartItem drops every line for the product, or only the line matching
// ?size= and ?color= when either is supplied.
func RemoveCartItem(sessions *cart.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, session, ok := openCart(w, r, sessions, logg)
		if !ok {
			return
		}

		query := r.URL.Query()
		if query.Has("size") || query.Has("color") {
			err = c.RemoveLine(r.Context(), cart.NewKey(productID, query.Get("size"), query.Get("color")))
		} else {
			err = c.RemoveFromCart(r.Context(), productID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(session, c))
	}
}

func ClearCart(sessions *cart.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, session, ok := openCart(w, r, sessions, logg)
		if !ok {
			return
		}
		if err := c.ClearCart(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(session, c))
	}
}
