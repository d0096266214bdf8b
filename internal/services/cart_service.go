package services

import (
	"errors"
	"fmt"

	"clearlot/internal/domain"
	"clearlot/internal/fees"
	"clearlot/internal/repos"
)

// Cart rejections are business outcomes, not faults: handlers surface
// them to the user and nothing mutates. The one exception is the offer
// quantity cap, which clamps instead of rejecting.
var (
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrBelowMinimum        = errors.New("quantity is below the lot's minimum order quantity")
	ErrNotMultiple         = errors.New("quantity must be a multiple of the lot's order multiple")
	ErrInsufficientStock   = errors.New("not enough units available")
	ErrOfferLineImmutable  = errors.New("offer-backed cart lines cannot change quantity; remove the line instead")
	ErrLineNotFound        = errors.New("cart line not found")
	ErrLotInactive         = errors.New("this lot is no longer available")
	ErrCartVersionConflict = errors.New("cart changed in another tab; reload and retry")
)

type CartService struct {
	Carts    *repos.CartRepo
	Prods    *repos.ProductRepo
	Settings *repos.SettingsRepo
}

func NewCartService(carts *repos.CartRepo, prods *repos.ProductRepo, settings *repos.SettingsRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods, Settings: settings}
}

// AddInput carries one add-to-cart request. PriceOverride and the offer
// fields are set only when redeeming an accepted offer.
type AddInput struct {
	SessionID     string
	ProductID     string
	VariationKey  string
	Qty           int
	Role          string   // acting user's role; '' = anonymous
	PriceOverride *float64 // fee-exclusive negotiated unit price
	OfferID       string
	OfferQty      int // hard ceiling on the line quantity; 0 = uncapped
	ExpectVersion *int
}

// Add validates the quantity against the lot's MOQ, order multiple and
// stock, resolves the unit price once, applies the service fee for
// buyer-facing roles, and merges into an existing line when the
// (product, variation, offer) key matches.
func (s *CartService) Add(in AddInput) error {
	if in.Qty <= 0 {
		return ErrInvalidQuantity
	}

	cartID, err := s.Carts.EnsureCart(in.SessionID)
	if err != nil {
		return err
	}
	if err := s.checkVersion(cartID, in.ExpectVersion); err != nil {
		return err
	}

	p, err := s.Prods.Get(in.ProductID)
	if err != nil {
		return err
	}
	if !p.Active {
		return ErrLotInactive
	}

	qty := in.Qty
	// Offers are a hard ceiling, not a hard failure: clamp, don't reject.
	if in.OfferQty > 0 && qty > in.OfferQty {
		qty = in.OfferQty
	}

	existing, err := s.Carts.Line(cartID, in.ProductID, in.VariationKey, in.OfferID)
	if err != nil {
		return err
	}

	merged := qty
	if existing != nil {
		merged = existing.Qty + qty
		if in.OfferQty > 0 && merged > in.OfferQty {
			merged = in.OfferQty // re-add of a redeemed offer is a no-op grow
		}
	}

	if err := s.validateQuantity(p, in.VariationKey, merged); err != nil {
		return err
	}

	if existing != nil {
		if merged == existing.Qty {
			return nil
		}
		return s.Carts.SetQty(cartID, in.ProductID, in.VariationKey, in.OfferID, merged)
	}

	// Price is fixed at insertion time and never recomputed implicitly.
	base := p.PriceFor(in.VariationKey)
	if in.PriceOverride != nil {
		base = *in.PriceOverride
	}
	price := base
	includesFee := false
	if domain.SeesFeeInclusive(in.Role) {
		price = fees.AddServiceFee(base, s.Settings.ServiceFeeRate())
		includesFee = true
	}

	return s.Carts.InsertLine(repos.CartLine{
		CartID:           cartID,
		ProductID:        in.ProductID,
		VariationKey:     in.VariationKey,
		OfferID:          in.OfferID,
		Qty:              merged,
		UnitPrice:        price,
		PriceIncludesFee: includesFee,
		OfferQty:         in.OfferQty,
	})
}

// UpdateQuantity re-validates the full rule set and applies the new
// quantity, or leaves the line untouched on any violation. Offer-backed
// lines are immutable.
func (s *CartService) UpdateQuantity(sessionID, productID, varKey, offerID string, qty int, expectVersion *int) error {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return err
	}
	if err := s.checkVersion(cartID, expectVersion); err != nil {
		return err
	}

	line, err := s.Carts.Line(cartID, productID, varKey, offerID)
	if err != nil {
		return err
	}
	if line == nil {
		return ErrLineNotFound
	}
	if line.OfferID != "" {
		return ErrOfferLineImmutable
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	p, err := s.Prods.Get(productID)
	if err != nil {
		return err
	}
	if err := s.validateQuantity(p, varKey, qty); err != nil {
		return err
	}
	return s.Carts.SetQty(cartID, productID, varKey, offerID, qty)
}

// Remove deletes the line matching the exact (product, variation, offer)
// tuple. An empty offerID matches only the non-offer line, so removing a
// plain line never silently drops a negotiated one.
func (s *CartService) Remove(sessionID, productID, varKey, offerID string, expectVersion *int) error {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return err
	}
	if err := s.checkVersion(cartID, expectVersion); err != nil {
		return err
	}
	ok, err := s.Carts.DeleteLine(cartID, productID, varKey, offerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLineNotFound
	}
	return nil
}

// RepriceForRole reconciles stored line prices with the acting role's
// price view. It runs once per role transition (login/logout), not
// continuously: lines tagged fee-inclusive get the fee stripped for
// fee-exclusive viewers and vice versa.
func (s *CartService) RepriceForRole(sessionID, role string) error {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return err
	}
	lines, err := s.Carts.Lines(cartID)
	if err != nil {
		return err
	}
	rate := s.Settings.ServiceFeeRate()
	wantFee := domain.SeesFeeInclusive(role)
	for _, l := range lines {
		switch {
		case wantFee && !l.PriceIncludesFee:
			if err := s.Carts.SetPrice(cartID, l.ProductID, l.VariationKey, l.OfferID,
				fees.AddServiceFee(l.UnitPrice, rate), true); err != nil {
				return err
			}
		case !wantFee && l.PriceIncludesFee:
			if err := s.Carts.SetPrice(cartID, l.ProductID, l.VariationKey, l.OfferID,
				fees.RemoveServiceFee(l.UnitPrice, rate), false); err != nil {
				return err
			}
		}
	}
	return nil
}

type CartView struct {
	Version   int              `json:"version"`
	Lines     []repos.CartLine `json:"lines"`
	Total     float64          `json:"total"`
	ItemCount int              `json:"item_count"`
}

func (s *CartService) View(sessionID string) (CartView, error) {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return CartView{}, err
	}
	lines, err := s.Carts.Lines(cartID)
	if err != nil {
		return CartView{}, err
	}
	version, err := s.Carts.Version(cartID)
	if err != nil {
		return CartView{}, err
	}
	cv := CartView{Version: version, Lines: lines}
	for _, l := range lines {
		cv.Total += l.UnitPrice * float64(l.Qty)
		cv.ItemCount += l.Qty
	}
	return cv, nil
}

func (s *CartService) Clear(sessionID string) error {
	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return err
	}
	return s.Carts.Clear(cartID)
}

func (s *CartService) validateQuantity(p domain.Product, varKey string, qty int) error {
	if qty < p.MinOrderQty {
		return fmt.Errorf("%w (minimum %d)", ErrBelowMinimum, p.MinOrderQty)
	}
	if p.OrderMultiple > 1 && qty%p.OrderMultiple != 0 {
		return fmt.Errorf("%w (multiple of %d)", ErrNotMultiple, p.OrderMultiple)
	}
	if qty > p.StockFor(varKey) {
		return fmt.Errorf("%w (%d in stock)", ErrInsufficientStock, p.StockFor(varKey))
	}
	return nil
}

func (s *CartService) checkVersion(cartID string, expect *int) error {
	if expect == nil {
		return nil
	}
	v, err := s.Carts.Version(cartID)
	if err != nil {
		return err
	}
	if v != *expect {
		return ErrCartVersionConflict
	}
	return nil
}
