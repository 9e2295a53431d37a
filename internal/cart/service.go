package cart

import (
	"context"
	"errors"

	"vinmarket-be/internal/db"
	"vinmarket-be/internal/inventory"
	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/wine"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the business logic for carts.
type Service interface {
	GetCart(ctx context.Context, buyerID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, buyerID, wineID uuid.UUID, quantity int) (*View, error)
	UpdateItem(ctx context.Context, buyerID, wineID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, buyerID, wineID uuid.UUID) (*View, error)
	Clear(ctx context.Context, buyerID uuid.UUID) (*View, error)
}

type service struct {
	repo   Repository
	wines  wine.Repository
	ledger inventory.Ledger
	tx     db.Transactor
}

func NewService(repo Repository, wines wine.Repository, ledger inventory.Ledger, tx db.Transactor) Service {
	return &service{repo: repo, wines: wines, ledger: ledger, tx: tx}
}

func (s *service) GetCart(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	carts, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return Summarize(carts), nil
}

// AddItem puts quantity units of a wine into the buyer's cart for the wine's
// seller. The combined quantity already in the cart plus the new units must
// fit the live stock.
func (s *service) AddItem(ctx context.Context, buyerID, wineID uuid.UUID, quantity int) (*View, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "cart"),
		zap.String("method", "AddItem"),
		zap.String("wine_id", wineID.String()),
		zap.Int("quantity", quantity),
	)

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	// Unlocked read to learn the seller; the listing is locked after the cart
	// row so lock order matches checkout.
	listing, err := s.wines.GetByID(ctx, wineID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.EnsureCart(ctx, buyerID, listing.SellerID)
		if err != nil {
			return err
		}

		w, err := s.ledger.ValidatePurchase(ctx, buyerID, wineID, quantity)
		if err != nil {
			return err
		}

		item, err := s.repo.FindItem(ctx, c.ID, wineID)
		switch {
		case err == nil:
			total := item.Quantity + quantity
			if err := inventory.EnsureAvailable(w, total); err != nil {
				return err
			}
			if err := s.repo.UpdateItemQuantity(ctx, item.ID, total); err != nil {
				return err
			}
		case errors.Is(err, ErrCartItemNotFound):
			if err := s.repo.InsertItem(ctx, &Item{
				CartID:    c.ID,
				WineID:    wineID,
				Quantity:  quantity,
				UnitPrice: w.Price,
			}); err != nil {
				return err
			}
		default:
			return err
		}

		_, _, err = s.repo.RecalculateTotal(ctx, c.ID)
		return err
	})
	if err != nil {
		log.Info("add to cart rejected", zap.Error(err))
		return nil, err
	}

	log.Info("wine added to cart")
	return s.GetCart(ctx, buyerID)
}

// UpdateItem sets the absolute quantity of a line already in the cart.
func (s *service) UpdateItem(ctx context.Context, buyerID, wineID uuid.UUID, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	listing, err := s.wines.GetByID(ctx, wineID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.FindCart(ctx, buyerID, listing.SellerID)
		if err != nil {
			return err
		}

		item, err := s.repo.FindItem(ctx, c.ID, wineID)
		if err != nil {
			return err
		}

		if _, err := s.ledger.CheckAvailable(ctx, wineID, quantity); err != nil {
			return err
		}

		if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
			return err
		}

		_, _, err = s.repo.RecalculateTotal(ctx, c.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, buyerID)
}

// RemoveItem drops a line. A cart left without lines is deleted.
func (s *service) RemoveItem(ctx context.Context, buyerID, wineID uuid.UUID) (*View, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "cart"),
		zap.String("method", "RemoveItem"),
		zap.String("wine_id", wineID.String()),
	)

	listing, err := s.wines.GetByID(ctx, wineID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.FindCart(ctx, buyerID, listing.SellerID)
		if err != nil {
			return err
		}

		item, err := s.repo.FindItem(ctx, c.ID, wineID)
		if err != nil {
			return err
		}

		if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
			return err
		}

		_, lines, err := s.repo.RecalculateTotal(ctx, c.ID)
		if err != nil {
			return err
		}

		if lines == 0 {
			log.Debug("cart emptied, deleting", zap.String("cart_id", c.ID.String()))
			return s.repo.DeleteCart(ctx, c.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, buyerID)
}

func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	n, err := s.repo.DeleteByBuyer(ctx, buyerID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to clear carts",
			zap.String("layer", "cart"),
			zap.Error(err),
		)
		return nil, err
	}
	if n == 0 {
		return nil, ErrCartNotFound
	}

	return Summarize(nil), nil
}
