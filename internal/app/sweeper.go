package app

import (
	"context"
	"log"
	"time"

	"carpool/internal/service"
)

// Sweeper periodically retires pending requests whose deadline has passed.
// Together with the on-read expiry check in the request service it bounds
// how long an expired request can look pending.
type Sweeper struct {
	requestService *service.RequestService
	interval       time.Duration
	stopChan       chan struct{}
}

// NewSweeper creates a new Sweeper.
func NewSweeper(requestService *service.RequestService, interval time.Duration) *Sweeper {
	return &Sweeper{
		requestService: requestService,
		interval:       interval,
		stopChan:       make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	log.Printf("Starting request expiry sweeper (interval %s)", s.interval)
	go s.run(ctx)
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			log.Println("Request expiry sweeper stopped")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	count, err := s.requestService.ExpireStale(ctx)
	if err != nil {
		log.Printf("request expiry sweep failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("expired %d stale request(s)", count)
	}
}
