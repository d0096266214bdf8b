package services

import (
	"clearlot/internal/domain"
	"clearlot/internal/fees"
	"clearlot/internal/repos"
)

type CatalogService struct {
	Cats     *repos.CategoryRepo
	Prods    *repos.ProductRepo
	Settings *repos.SettingsRepo
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo, settings *repos.SettingsRepo) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods, Settings: settings}
}

func (s *CatalogService) ListCategories() ([]domain.Category, error) {
	return s.Cats.List()
}

// ProductView is a product priced for the viewer: buyers and anonymous
// browsers see fee-inclusive prices, sellers and admins the raw ones.
type ProductView struct {
	domain.Product
	DisplayPrice     float64 `json:"display_price"`
	PriceIncludesFee bool    `json:"price_includes_fee"`
}

func (s *CatalogService) priced(p domain.Product, role string) ProductView {
	v := ProductView{Product: p, DisplayPrice: p.Price}
	if domain.SeesFeeInclusive(role) {
		v.DisplayPrice = fees.AddServiceFee(p.Price, s.Settings.ServiceFeeRate())
		v.PriceIncludesFee = true
	}
	return v
}

func (s *CatalogService) GetProduct(id, role string) (ProductView, error) {
	p, err := s.Prods.Get(id)
	if err != nil {
		return ProductView{}, err
	}
	return s.priced(p, role), nil
}

func (s *CatalogService) Search(q, category, sellerID, role string, page, pageSize int) ([]ProductView, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 12
	}
	offset := (page - 1) * pageSize
	prods, err := s.Prods.Search(q, category, sellerID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	out := make([]ProductView, 0, len(prods))
	for _, p := range prods {
		out = append(out, s.priced(p, role))
	}
	return out, nil
}

// Availability buckets remaining units for display without exposing the
// exact count on low stock.
type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Units  int    `json:"units,omitempty"`
}

func (s *CatalogService) CheckAvailability(productID, varKey string) (Availability, error) {
	p, err := s.Prods.Get(productID)
	if err != nil {
		return Availability{}, err
	}
	units := p.StockFor(varKey)
	switch {
	case units <= 0:
		return Availability{Status: "OUT_OF_STOCK"}, nil
	case units < p.MinOrderQty*2:
		return Availability{Status: "LOW_STOCK", Units: units}, nil
	default:
		return Availability{Status: "IN_STOCK", Units: units}, nil
	}
}
