package entities

import (
	"fmt"
	"time"
)

// PageTypeAttribute represents one row of the assignment relation
// Example: page_type:1#attribute@attribute:7
// This means: attribute 7 is assigned to page type 1
type PageTypeAttribute struct {
	PageTypeID  int64
	AttributeID int64
	CreatedAt   time.Time
}

// String returns a string representation of the assignment
// Format: page_type:id#attribute@attribute:id
func (pa *PageTypeAttribute) String() string {
	return fmt.Sprintf("page_type:%d#attribute@attribute:%d", pa.PageTypeID, pa.AttributeID)
}

// Validate checks if the assignment is valid
func (pa *PageTypeAttribute) Validate() error {
	if pa.PageTypeID <= 0 {
		return fmt.Errorf("page type ID is required")
	}
	if pa.AttributeID <= 0 {
		return fmt.Errorf("attribute ID is required")
	}
	return nil
}
