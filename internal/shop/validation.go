package shop

import "strings"

// Validate checks the required shop fields.
func (in *ShopInput) Validate() error {
	fields := make(map[string]string)
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "must not be empty"
	}
	if strings.TrimSpace(in.Address) == "" {
		fields["address"] = "must not be empty"
	}
	return validationResult(fields)
}

// Validate checks the required product fields and the price range.
func (in *ProductInput) Validate() error {
	fields := make(map[string]string)
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "must not be empty"
	}
	if strings.TrimSpace(in.Distributor) == "" {
		fields["distributor"] = "must not be empty"
	}
	if in.Price < 0 {
		fields["price"] = "must not be negative"
	}
	return validationResult(fields)
}

func validationResult(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
