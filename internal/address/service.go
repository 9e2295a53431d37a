package address

import (
	"context"
	"fmt"
	"strings"

	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the caller's shipping addresses.
type Service interface {
	List(ctx context.Context) ([]*ShippingAddress, error)
	Create(ctx context.Context, input CreateAddressInput) (*ShippingAddress, error)

	// Resolve returns the owner's address by id, or creates one from input
	// when id is nil. Addresses of other users are reported as not found.
	Resolve(ctx context.Context, ownerID uuid.UUID, id *uuid.UUID, input *CreateAddressInput) (*ShippingAddress, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context) ([]*ShippingAddress, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	logger.FromCtx(ctx).Debug("listing addresses",
		zap.String("layer", "Address"),
		zap.String("method", "List"),
	)

	return s.repo.GetByUserID(ctx, userID)
}

func (s *service) Create(ctx context.Context, input CreateAddressInput) (*ShippingAddress, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.create(ctx, userID, input)
}

func (s *service) Resolve(
	ctx context.Context,
	ownerID uuid.UUID,
	id *uuid.UUID,
	input *CreateAddressInput,
) (*ShippingAddress, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "Address"),
		zap.String("method", "Resolve"),
	)

	if id != nil {
		addr, err := s.repo.GetByID(ctx, *id)
		if err != nil {
			return nil, err
		}
		if addr.UserID != ownerID {
			log.Warn("address belongs to another user", zap.String("address_id", id.String()))
			return nil, ErrAddressNotFound
		}
		return addr, nil
	}

	if input == nil {
		return nil, ErrInvalidAddress
	}
	return s.create(ctx, ownerID, *input)
}

func (s *service) create(ctx context.Context, ownerID uuid.UUID, input CreateAddressInput) (*ShippingAddress, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "Address"),
		zap.String("method", "Create"),
	)

	if err := validate(input); err != nil {
		log.Info("rejected address input", zap.Error(err))
		return nil, err
	}

	addr := &ShippingAddress{
		ID:            uuid.New(),
		UserID:        ownerID,
		RecipientName: strings.TrimSpace(input.RecipientName),
		Phone:         input.Phone,
		Line1:         strings.TrimSpace(input.Line1),
		Line2:         input.Line2,
		City:          strings.TrimSpace(input.City),
		Region:        strings.TrimSpace(input.Region),
		PostalCode:    strings.TrimSpace(input.PostalCode),
		Country:       strings.ToUpper(strings.TrimSpace(input.Country)),
	}

	if err := s.repo.Create(ctx, addr); err != nil {
		log.Error("failed to create address", zap.Error(err))
		return nil, err
	}

	log.Info("address created", zap.String("address_id", addr.ID.String()))
	return addr, nil
}

func validate(in CreateAddressInput) error {
	required := map[string]string{
		"recipientName": in.RecipientName,
		"line1":         in.Line1,
		"city":          in.City,
		"postalCode":    in.PostalCode,
		"country":       in.Country,
	}
	for _, field := range []string{"recipientName", "line1", "city", "postalCode", "country"} {
		if strings.TrimSpace(required[field]) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidAddress, field)
		}
	}
	return nil
}
