package catalog

import (
	"fmt"
	"strings"

	"github.com/ovenline-erp/ovenline-erp/internal/shared"
)

func (s *Service) validate(item Item) error {
	if strings.TrimSpace(item.SKU) == "" {
		return fmt.Errorf("item sku is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("item name is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(item.Category) == "" {
		return fmt.Errorf("item category is required: %w", shared.ErrValidation)
	}
	if item.MinOrderQty < 0 || item.IncrementStep < 0 {
		return fmt.Errorf("order policy quantities cannot be negative: %w", shared.ErrValidation)
	}
	if item.IsLoose && item.MinOrderQty == 0 {
		return fmt.Errorf("loose items need a minimum order quantity: %w", shared.ErrValidation)
	}
	return nil
}
