package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clearlot/internal/domain"
	"clearlot/internal/repos"
)

// maxNegotiationRounds caps counter ping-pong on a single offer; the
// parties can always open a fresh offer.
const maxNegotiationRounds = 10

var (
	ErrOfferTerminal      = errors.New("offer is already settled")
	ErrOfferNotActionable = errors.New("offer is not in a state that allows this action")
	ErrOfferExpired       = errors.New("offer redemption window has passed")
	ErrTooManyRounds      = errors.New("negotiation round limit reached for this offer")
	ErrNotYourOffer       = errors.New("offer does not belong to you")
	ErrOwnLot             = errors.New("you cannot make an offer on your own lot")
)

type OfferService struct {
	Offers *repos.OfferRepo
	Prods  *repos.ProductRepo
	Cart   *CartService
	Notify *NotifyService

	// RedemptionWindow is how long an accepted offer stays redeemable.
	RedemptionWindow time.Duration

	now func() time.Time
}

func NewOfferService(offers *repos.OfferRepo, prods *repos.ProductRepo, cart *CartService, notify *NotifyService, redemption time.Duration) *OfferService {
	return &OfferService{
		Offers:           offers,
		Prods:            prods,
		Cart:             cart,
		Notify:           notify,
		RedemptionWindow: redemption,
		now:              time.Now,
	}
}

// Create opens a PENDING offer from a buyer. The proposed quantity must
// already satisfy the lot's MOQ and order multiple so that a later
// redemption cannot fail cart validation.
func (s *OfferService) Create(buyerID, productID string, qty int, unitPrice float64) (domain.Offer, error) {
	p, err := s.Prods.Get(productID)
	if err != nil {
		return domain.Offer{}, err
	}
	if !p.Active {
		return domain.Offer{}, ErrLotInactive
	}
	if p.SellerID == buyerID {
		return domain.Offer{}, ErrOwnLot
	}
	if qty < p.MinOrderQty {
		return domain.Offer{}, fmt.Errorf("%w (minimum %d)", ErrBelowMinimum, p.MinOrderQty)
	}
	if p.OrderMultiple > 1 && qty%p.OrderMultiple != 0 {
		return domain.Offer{}, fmt.Errorf("%w (multiple of %d)", ErrNotMultiple, p.OrderMultiple)
	}
	if qty > p.AvailableUnits {
		return domain.Offer{}, fmt.Errorf("%w (%d in stock)", ErrInsufficientStock, p.AvailableUnits)
	}

	o := domain.Offer{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		SellerID:  p.SellerID,
		ProductID: productID,
		Quantity:  qty,
		Price:     unitPrice,
		Status:    domain.OfferPending,
	}
	if err := s.Offers.Create(o); err != nil {
		return domain.Offer{}, err
	}
	s.Notify.Offer(p.SellerID, "offer.received", "New offer on "+p.Title, o.ID)
	return o, nil
}

// SellerAccept: PENDING -> ACCEPTED, stamping the redemption deadline.
// A buyer counter-back is also seller-acceptable.
func (s *OfferService) SellerAccept(sellerID, offerID string) (domain.Offer, error) {
	o, err := s.ownedBySeller(sellerID, offerID)
	if err != nil {
		return domain.Offer{}, err
	}
	if err := s.guardActionable(o, domain.OfferPending, domain.OfferCountered); err != nil {
		return domain.Offer{}, err
	}
	if o.Status == domain.OfferCountered && o.CounteredBy != "buyer" {
		return domain.Offer{}, ErrOfferNotActionable
	}
	if err := s.Offers.Accept(offerID, o.Status, s.now().Add(s.RedemptionWindow)); err != nil {
		return domain.Offer{}, err
	}
	s.Notify.Offer(o.BuyerID, "offer.accepted", "Your offer was accepted", o.ID)
	return s.Offers.Get(offerID)
}

// SellerReject: PENDING -> REJECTED. Terminal.
func (s *OfferService) SellerReject(sellerID, offerID string) error {
	o, err := s.ownedBySeller(sellerID, offerID)
	if err != nil {
		return err
	}
	if err := s.guardActionable(o, domain.OfferPending, domain.OfferCountered); err != nil {
		return err
	}
	if o.Status == domain.OfferCountered && o.CounteredBy != "buyer" {
		return ErrOfferNotActionable
	}
	if err := s.Offers.Transition(offerID, o.Status, domain.OfferRejected); err != nil {
		return err
	}
	s.Notify.Offer(o.BuyerID, "offer.rejected", "Your offer was declined", o.ID)
	return nil
}

// SellerCounter: PENDING -> COUNTERED with new terms. The offer keeps its
// identity; the counter terms supersede the buyer's for display.
func (s *OfferService) SellerCounter(sellerID, offerID string, price float64, qty int) error {
	o, err := s.ownedBySeller(sellerID, offerID)
	if err != nil {
		return err
	}
	if err := s.guardActionable(o, domain.OfferPending, domain.OfferCountered); err != nil {
		return err
	}
	if o.Status == domain.OfferCountered && o.CounteredBy != "buyer" {
		return ErrOfferNotActionable // seller cannot counter their own counter
	}
	if o.Rounds >= maxNegotiationRounds {
		return ErrTooManyRounds
	}
	if err := s.Offers.Counter(offerID, o.Status, "seller", price, qty); err != nil {
		return err
	}
	s.Notify.Offer(o.BuyerID, "offer.countered", "The seller sent a counter-offer", o.ID)
	return nil
}

// BuyerAccept: COUNTERED -> ACCEPTED, adopting the countered terms.
func (s *OfferService) BuyerAccept(buyerID, offerID string) (domain.Offer, error) {
	o, err := s.ownedByBuyer(buyerID, offerID)
	if err != nil {
		return domain.Offer{}, err
	}
	if err := s.guardActionable(o, domain.OfferCountered); err != nil {
		return domain.Offer{}, err
	}
	if o.CounteredBy != "seller" {
		return domain.Offer{}, ErrOfferNotActionable
	}
	if err := s.Offers.Accept(offerID, domain.OfferCountered, s.now().Add(s.RedemptionWindow)); err != nil {
		return domain.Offer{}, err
	}
	s.Notify.Offer(o.SellerID, "offer.accepted", "Your counter-offer was accepted", o.ID)
	return s.Offers.Get(offerID)
}

// BuyerReject: COUNTERED -> REJECTED.
func (s *OfferService) BuyerReject(buyerID, offerID string) error {
	o, err := s.ownedByBuyer(buyerID, offerID)
	if err != nil {
		return err
	}
	if err := s.guardActionable(o, domain.OfferCountered); err != nil {
		return err
	}
	if err := s.Offers.Transition(offerID, domain.OfferCountered, domain.OfferRejected); err != nil {
		return err
	}
	s.Notify.Offer(o.SellerID, "offer.rejected", "Your counter-offer was declined", o.ID)
	return nil
}

// BuyerCounter: COUNTERED -> COUNTERED with buyer-proposed terms.
func (s *OfferService) BuyerCounter(buyerID, offerID string, price float64, qty int) error {
	o, err := s.ownedByBuyer(buyerID, offerID)
	if err != nil {
		return err
	}
	if err := s.guardActionable(o, domain.OfferCountered); err != nil {
		return err
	}
	if o.CounteredBy != "seller" {
		return ErrOfferNotActionable
	}
	if o.Rounds >= maxNegotiationRounds {
		return ErrTooManyRounds
	}
	if err := s.Offers.Counter(offerID, domain.OfferCountered, "buyer", price, qty); err != nil {
		return err
	}
	s.Notify.Offer(o.SellerID, "offer.countered", "The buyer sent a counter-offer", o.ID)
	return nil
}

// AddToCart redeems an accepted offer into the buyer's cart: the
// negotiated price overrides the list price, the offer quantity is both
// the line quantity and its cap, and the offer id binds the line, so a
// repeat call merges into the same line and clamps to a no-op.
func (s *OfferService) AddToCart(buyerID, sessionID, role, offerID string) error {
	o, err := s.ownedByBuyer(buyerID, offerID)
	if err != nil {
		return err
	}
	if o.Status != domain.OfferAccepted {
		return ErrOfferNotActionable
	}
	if o.ExpiresAt != "" {
		deadline, err := time.Parse(time.RFC3339, o.ExpiresAt)
		if err == nil && s.now().After(deadline) {
			return ErrOfferExpired
		}
	}
	price := o.Price
	return s.Cart.Add(AddInput{
		SessionID:     sessionID,
		ProductID:     o.ProductID,
		VariationKey:  "",
		Qty:           o.Quantity,
		Role:          role,
		PriceOverride: &price,
		OfferID:       o.ID,
		OfferQty:      o.Quantity,
	})
}

// ExpireDue sweeps deadline-passed offers into EXPIRED and notifies the
// buyers. Called from the background poller.
func (s *OfferService) ExpireDue(negotiationTTL time.Duration) (int, error) {
	now := s.now()
	ids, err := s.Offers.ExpireDue(now, now.Add(-negotiationTTL))
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if o, err := s.Offers.Get(id); err == nil {
			s.Notify.Offer(o.BuyerID, "offer.expired", "An offer expired", o.ID)
		}
	}
	return len(ids), nil
}

func (s *OfferService) Get(id string) (domain.Offer, error) { return s.Offers.Get(id) }

func (s *OfferService) ownedBySeller(sellerID, offerID string) (domain.Offer, error) {
	o, err := s.Offers.Get(offerID)
	if err != nil {
		return domain.Offer{}, err
	}
	if o.SellerID != sellerID {
		return domain.Offer{}, ErrNotYourOffer
	}
	return o, nil
}

func (s *OfferService) ownedByBuyer(buyerID, offerID string) (domain.Offer, error) {
	o, err := s.Offers.Get(offerID)
	if err != nil {
		return domain.Offer{}, err
	}
	if o.BuyerID != buyerID {
		return domain.Offer{}, ErrNotYourOffer
	}
	return o, nil
}

func (s *OfferService) guardActionable(o domain.Offer, allowed ...string) error {
	if o.Terminal() {
		return ErrOfferTerminal
	}
	for _, a := range allowed {
		if o.Status == a {
			return nil
		}
	}
	return ErrOfferNotActionable
}
