package model

// ToModel converts a wire representation into the persisted entity.
// Missing numeric fields map to zero; callers validate first.
func ToModel(d CigarroDTO) Cigarro {
	c := Cigarro{
		ID:    d.ID,
		Name:  d.Name,
		Brand: d.Brand,
		Type:  d.Type,
	}
	if d.Max != nil {
		c.Max = *d.Max
	}
	if d.Quantity != nil {
		c.Quantity = *d.Quantity
	}
	return c
}

// ToDTO converts a persisted entity into its wire representation.
func ToDTO(c Cigarro) CigarroDTO {
	maxQty := c.Max
	qty := c.Quantity
	return CigarroDTO{
		ID:       c.ID,
		Name:     c.Name,
		Brand:    c.Brand,
		Max:      &maxQty,
		Quantity: &qty,
		Type:     c.Type,
	}
}

// ToDTOs converts a slice of entities. The result is never nil.
func ToDTOs(cs []Cigarro) []CigarroDTO {
	out := make([]CigarroDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, ToDTO(c))
	}
	return out
}
