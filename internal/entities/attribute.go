package entities

import (
	"fmt"
	"strings"
)

// AttributeType classifies where an attribute may be attached
type AttributeType string

const (
	// AttributeTypeProductType marks attributes used by product types
	AttributeTypeProductType AttributeType = "PRODUCT_TYPE"
	// AttributeTypePageType marks attributes used by page types
	AttributeTypePageType AttributeType = "PAGE_TYPE"
)

// Valid reports whether t is a known attribute type
func (t AttributeType) Valid() bool {
	switch t {
	case AttributeTypeProductType, AttributeTypePageType:
		return true
	}
	return false
}

// ParseAttributeType parses an attribute type case-insensitively
func ParseAttributeType(s string) (AttributeType, error) {
	t := AttributeType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown attribute type: %q", s)
	}
	return t, nil
}

// Attribute represents a reusable field definition
// Example: Attribute{ID: 3, Slug: "author", Type: PAGE_TYPE}
type Attribute struct {
	ID   int64         // Primary key
	Name string        // Display name (e.g., "Author")
	Slug string        // Unique slug (e.g., "author")
	Type AttributeType // Where the attribute may be attached
}

// String returns a string representation of the attribute
// Format: attribute:id(slug)/type
func (a *Attribute) String() string {
	return fmt.Sprintf("attribute:%d(%s)/%s", a.ID, a.Slug, a.Type)
}

// Validate checks if the attribute is valid for storage
func (a *Attribute) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("attribute name is required")
	}
	if a.Slug == "" {
		return fmt.Errorf("attribute slug is required")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("invalid attribute type: %q", a.Type)
	}
	return nil
}
