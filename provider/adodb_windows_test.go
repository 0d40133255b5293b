//go:build windows

package provider

import (
	"testing"

	ole "github.com/go-ole/go-ole"
)

func TestRestrictionVariantTypes(t *testing.T) {
	tests := []struct {
		value any
		vt    ole.VT
	}{
		{nil, ole.VT_EMPTY},
		{"Orders", ole.VT_BSTR},
		{true, ole.VT_BOOL},
		{float64(7), ole.VT_I4},
		{1.5, ole.VT_R8},
		{float64(1 << 40), ole.VT_R8},
	}
	for _, tt := range tests {
		v := restrictionVariant(tt.value)
		if v.VT != tt.vt {
			t.Errorf("restrictionVariant(%v): expected VT %d, got %d", tt.value, tt.vt, v.VT)
		}
		v.Clear()
	}
}

func TestCriteriaVariantIsVariantArray(t *testing.T) {
	v, release, err := criteriaVariant([]any{nil, nil, "Orders", float64(7)})
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	if v.VT != ole.VT_ARRAY|ole.VT_VARIANT {
		t.Fatalf("Expected VT_ARRAY|VT_VARIANT, got %d", v.VT)
	}
	values := v.ToArray().ToValueArray()
	if len(values) != 4 {
		t.Fatalf("Expected 4 elements, got %d", len(values))
	}
	if values[0] != nil || values[2] != "Orders" || values[3] != int32(7) {
		t.Errorf("Unexpected elements %v", values)
	}
}

func TestCursorsOpenForwardOnly(t *testing.T) {
	if adOpenForwardOnly != 0 {
		t.Errorf("Expected adOpenForwardOnly to be 0, got %d", adOpenForwardOnly)
	}
}
