package catalogsvc

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/mkrupp/menucase/internal/domain"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 1000
	maxDishImages        = 16
)

var errNegativePrice = validation.NewError("validation_price_negative", "must not be negative")

func validateCategory(req domain.CategoryRequest) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.RuneLength(1, maxNameLength)),
		validation.Field(&req.Description, validation.RuneLength(0, maxDescriptionLength)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	return nil
}

func validateDish(req domain.DishRequest) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.CategoryID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Name, validation.Required, validation.RuneLength(1, maxNameLength)),
		validation.Field(&req.Description, validation.RuneLength(0, maxDescriptionLength)),
		validation.Field(&req.Price, validation.By(nonNegativePrice)),
		validation.Field(&req.Images, validation.Length(0, maxDishImages), validation.Each(validation.Required)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	return nil
}

func nonNegativePrice(value any) error {
	price, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}

	if price.IsNegative() {
		return errNegativePrice
	}

	return nil
}
