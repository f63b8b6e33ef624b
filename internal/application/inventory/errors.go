package inventory

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

var ErrRepository = errors.New("inventory: repository failure")

func wrapRepositoryError(productID string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, product.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("product %s not found", productID), err)
	case errors.Is(err, product.ErrInsufficientStock):
		return apperr.Wrap(apperr.KindInsufficientStock, fmt.Sprintf("insufficient stock for product %s", productID), err)
	case errors.Is(err, product.ErrConflict):
		return apperr.Wrap(apperr.KindConflict, "product already exists", err)
	case errors.Is(err, product.ErrInvalidQuantity),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, product.ErrInvalidStock),
		errors.Is(err, product.ErrNameRequired),
		errors.Is(err, product.ErrStoreRequired):
		return apperr.Wrap(apperr.KindValidation, "invalid product", err)
	default:
		return apperr.Wrap(apperr.KindInternal, "inventory", fmt.Errorf("%w: %w", ErrRepository, err))
	}
}
