// Package transport defines request and response shapes for the inventory API.
package transport

// ListUnitsRequest filters the unit listing.
type ListUnitsRequest struct {
	MaxPrice    *float64 `form:"maxPrice" validate:"omitempty,gt=0"`
	Area        *string  `form:"area" validate:"omitempty,max=120"`
	MinBedrooms *int     `form:"minBedrooms" validate:"omitempty,min=0,max=20"`
	Limit       int      `form:"limit" validate:"omitempty,min=1,max=50"`
}
