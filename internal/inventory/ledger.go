package inventory

import (
	"context"
	"errors"

	"vinmarket-be/internal/db"
	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/wine"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger guards the live quantity of wine listings.
type Ledger interface {
	// CheckAvailable reads the live listing and fails with
	// *InsufficientQuantityError when fewer than requested units remain.
	CheckAvailable(ctx context.Context, wineID uuid.UUID, requested int) (*wine.Wine, error)
	// ValidatePurchase additionally requires an ACTIVE listing not owned by
	// the buyer. Inside a transaction the listing row stays locked.
	ValidatePurchase(ctx context.Context, buyerID, wineID uuid.UUID, requested int) (*wine.Wine, error)
	// Decrement commits qty units as sold and returns the new quantity.
	Decrement(ctx context.Context, wineID uuid.UUID, qty int) (int, error)
}

type ledger struct {
	wines wine.Repository
}

func NewLedger(wines wine.Repository) Ledger {
	return &ledger{wines: wines}
}

func (l *ledger) load(ctx context.Context, wineID uuid.UUID) (*wine.Wine, error) {
	if db.InTx(ctx) {
		return l.wines.GetForUpdate(ctx, wineID)
	}
	return l.wines.GetByID(ctx, wineID)
}

func (l *ledger) CheckAvailable(ctx context.Context, wineID uuid.UUID, requested int) (*wine.Wine, error) {
	w, err := l.load(ctx, wineID)
	if err != nil {
		return nil, err
	}
	if err := EnsureAvailable(w, requested); err != nil {
		return w, err
	}
	return w, nil
}

func (l *ledger) ValidatePurchase(ctx context.Context, buyerID, wineID uuid.UUID, requested int) (*wine.Wine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "inventory"),
		zap.String("method", "ValidatePurchase"),
		zap.String("wine_id", wineID.String()),
		zap.Int("requested", requested),
	)

	w, err := l.load(ctx, wineID)
	if err != nil {
		return nil, err
	}

	if w.SellerID == buyerID {
		log.Warn("buyer attempted to purchase own listing")
		return w, ErrCannotBuyOwnListing
	}
	if w.Status != wine.StatusActive {
		log.Info("listing not active", zap.String("status", string(w.Status)))
		return w, ErrListingUnavailable
	}
	if err := EnsureAvailable(w, requested); err != nil {
		log.Info("insufficient stock", zap.Int("available", w.Quantity))
		return w, err
	}

	return w, nil
}

func (l *ledger) Decrement(ctx context.Context, wineID uuid.UUID, qty int) (int, error) {
	remaining, err := l.wines.DecrementQuantity(ctx, wineID, qty)
	if errors.Is(err, wine.ErrQuantityConflict) {
		w, getErr := l.wines.GetByID(ctx, wineID)
		if getErr != nil {
			return 0, getErr
		}
		return 0, &InsufficientQuantityError{WineID: wineID, Available: w.Quantity, Requested: qty}
	}
	if err != nil {
		return 0, err
	}

	if remaining == 0 {
		logger.FromCtx(ctx).Info("listing sold out",
			zap.String("layer", "inventory"),
			zap.String("wine_id", wineID.String()),
		)
	}
	return remaining, nil
}

// EnsureAvailable compares requested against the listing's live quantity.
func EnsureAvailable(w *wine.Wine, requested int) error {
	if requested > w.Quantity {
		return &InsufficientQuantityError{WineID: w.ID, Available: w.Quantity, Requested: requested}
	}
	return nil
}
