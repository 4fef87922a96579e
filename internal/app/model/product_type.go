package model

import "fmt"

// ProductType tags a product variant. The set is closed; see productTypes.
type ProductType string

const (
	ProductTypeGeneric    ProductType = "generic"
	ProductTypeNotebook   ProductType = "notebook"
	ProductTypeSmartphone ProductType = "smartphone"
)

// ProductTypeInfo describes what a variant adds on top of the base product.
type ProductTypeInfo struct {
	Type         ProductType `json:"type"`
	DisplayName  string      `json:"display_name"`
	FeatureKeys  []string    `json:"feature_keys"`
	HasSpecSheet bool        `json:"has_spec_sheet"`
}

var productTypes = map[ProductType]ProductTypeInfo{
	ProductTypeGeneric: {
		Type:        ProductTypeGeneric,
		DisplayName: "Product",
	},
	ProductTypeNotebook: {
		Type:         ProductTypeNotebook,
		DisplayName:  "Notebook",
		FeatureKeys:  []string{"diagonal", "display_type", "processor_freq", "ram", "video", "time_without_charge"},
		HasSpecSheet: true,
	},
	ProductTypeSmartphone: {
		Type:         ProductTypeSmartphone,
		DisplayName:  "Smartphone",
		FeatureKeys:  []string{"diagonal", "display_type", "resolution", "accum_volume", "ram", "sd", "sd_volume_max", "main_cam_mp", "frontal_cam_mp"},
		HasSpecSheet: true,
	},
}

// ParseProductType resolves a user-supplied tag against the fixed table.
// An empty tag maps to generic.
func ParseProductType(tag string) (ProductType, error) {
	if tag == "" {
		return ProductTypeGeneric, nil
	}
	pt := ProductType(tag)
	if _, ok := productTypes[pt]; !ok {
		return "", fmt.Errorf("unknown product type %q", tag)
	}
	return pt, nil
}

func (t ProductType) Info() (ProductTypeInfo, bool) {
	info, ok := productTypes[t]
	return info, ok
}

func (t ProductType) Valid() bool {
	_, ok := productTypes[t]
	return ok
}

// ProductTypes lists every known variant in a stable order.
func ProductTypes() []ProductTypeInfo {
	return []ProductTypeInfo{
		productTypes[ProductTypeGeneric],
		productTypes[ProductTypeNotebook],
		productTypes[ProductTypeSmartphone],
	}
}
