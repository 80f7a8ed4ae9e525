package cache

import "github.com/google/uuid"

// QueryShape identifies one of the catalog read paths that are cached.
type QueryShape string

const (
	ShapeAllProducts        QueryShape = "all_products"
	ShapeProductsByCategory QueryShape = "products_by_category"
	ShapeAllCategories      QueryShape = "all_categories"
	ShapeProduct            QueryShape = "product"
)

// DefaultNamespace prefixes every catalog key.
const DefaultNamespace = "catalog"

// CatalogKeys derives cache keys for the catalog query shapes. Parameterised
// shapes always carry their parameter: every category id and every product
// id gets its own entry.
type CatalogKeys struct {
	serializer KeySerializer
}

// NewCatalogKeys returns key helpers backed by serializer. A nil serializer
// uses the default one under DefaultNamespace.
func NewCatalogKeys(serializer KeySerializer) CatalogKeys {
	if serializer == nil {
		serializer = NewDefaultKeySerializer(DefaultNamespace)
	}
	return CatalogKeys{serializer: serializer}
}

func (k CatalogKeys) AllProducts() string {
	return k.serializer.SerializeKey(string(ShapeAllProducts))
}

func (k CatalogKeys) ProductsByCategory(categoryID uuid.UUID) string {
	return k.serializer.SerializeKey(string(ShapeProductsByCategory), categoryID)
}

func (k CatalogKeys) AllCategories() string {
	return k.serializer.SerializeKey(string(ShapeAllCategories))
}

func (k CatalogKeys) Product(id uuid.UUID) string {
	return k.serializer.SerializeKey(string(ShapeProduct), id)
}

// Prefix returns the prefix shared by every key of shape, including the
// trailing separator for parameterised shapes.
func (k CatalogKeys) Prefix(shape QueryShape) string {
	switch shape {
	case ShapeProductsByCategory, ShapeProduct:
		return k.serializer.SerializeKey(string(shape)) + KeySeparator
	}
	return k.serializer.SerializeKey(string(shape))
}

// Root is the prefix shared by every catalog key.
func (k CatalogKeys) Root() string {
	return k.serializer.SerializeKey("")
}
