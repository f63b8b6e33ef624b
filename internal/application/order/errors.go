package order

import (
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

var ErrRepository = errors.New("order: repository failure")

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, "order not found", err)
	case errors.Is(err, domain.ErrConflict):
		return apperr.Wrap(apperr.KindConflict, "order already exists", err)
	case errors.Is(err, domain.ErrReserving):
		return apperr.Wrap(apperr.KindConflict, "order is still being created", err)
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return apperr.Wrap(apperr.KindValidation, "invalid status transition", err)
	case errors.Is(err, domain.ErrInvalidStatus):
		return apperr.Wrap(apperr.KindValidation, "invalid status", err)
	default:
		return apperr.Wrap(apperr.KindInternal, "order", fmt.Errorf("%w: %w", ErrRepository, err))
	}
}
