package entities

import "fmt"

// PageType represents a content-type definition that pages are built from.
// Attributes holds the current assignment set ordered by attribute ID.
type PageType struct {
	ID         int64
	Name       string
	Slug       string
	Attributes []*Attribute
}

// HasAttribute reports whether the attribute is assigned to the page type
func (p *PageType) HasAttribute(attributeID int64) bool {
	for _, a := range p.Attributes {
		if a.ID == attributeID {
			return true
		}
	}
	return false
}

// AttributeIDs returns the IDs of the assigned attributes in order
func (p *PageType) AttributeIDs() []int64 {
	ids := make([]int64, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		ids = append(ids, a.ID)
	}
	return ids
}

// Validate checks if the page type is valid for storage
func (p *PageType) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("page type name is required")
	}
	if p.Slug == "" {
		return fmt.Errorf("page type slug is required")
	}
	return nil
}
