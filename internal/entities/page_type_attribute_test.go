package entities

import "testing"

func TestPageTypeAttribute_String(t *testing.T) {
	pa := PageTypeAttribute{PageTypeID: 1, AttributeID: 7}
	want := "page_type:1#attribute@attribute:7"
	if got := pa.String(); got != want {
		t.Errorf("PageTypeAttribute.String() = %v, want %v", got, want)
	}
}

func TestPageTypeAttribute_Validate(t *testing.T) {
	tests := []struct {
		name    string
		pa      PageTypeAttribute
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid assignment",
			pa:      PageTypeAttribute{PageTypeID: 1, AttributeID: 2},
			wantErr: false,
		},
		{
			name:    "missing page type ID",
			pa:      PageTypeAttribute{AttributeID: 2},
			wantErr: true,
			errMsg:  "page type ID is required",
		},
		{
			name:    "missing attribute ID",
			pa:      PageTypeAttribute{PageTypeID: 1},
			wantErr: true,
			errMsg:  "attribute ID is required",
		},
		{
			name:    "negative attribute ID",
			pa:      PageTypeAttribute{PageTypeID: 1, AttributeID: -4},
			wantErr: true,
			errMsg:  "attribute ID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pa.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("PageTypeAttribute.Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Errorf("PageTypeAttribute.Validate() error message = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}
