// Package poller runs the periodic expiry sweep: accepted offers whose
// redemption window lapsed, stale negotiations, and unpaid orders past
// their wire deadline.
package poller

import (
	"context"
	"log"
	"time"

	"clearlot/internal/services"
)

type Sweeper struct {
	Offers *services.OfferService
	Orders *services.OrderService

	Interval       time.Duration
	NegotiationTTL time.Duration
}

func New(offers *services.OfferService, orders *services.OrderService, interval, negotiationTTL time.Duration) *Sweeper {
	return &Sweeper{Offers: offers, Orders: orders, Interval: interval, NegotiationTTL: negotiationTTL}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep() {
	if n, err := s.Offers.ExpireDue(s.NegotiationTTL); err != nil {
		log.Printf("[sweep] offer expiry failed: %v", err)
	} else if n > 0 {
		log.Printf("[sweep] expired %d offers", n)
	}

	if n, err := s.Orders.CancelWireExpired(); err != nil {
		log.Printf("[sweep] wire-deadline cancel failed: %v", err)
	} else if n > 0 {
		log.Printf("[sweep] cancelled %d unpaid orders", n)
	}
}
