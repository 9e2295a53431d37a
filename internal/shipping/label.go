package shipping

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"vinmarket-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrLabelUnavailable = errors.New("shipping label unavailable")

type LabelRequest struct {
	OrderID     uuid.UUID
	OrderNumber string
	Country     string
	Bottles     int
}

type Label struct {
	TrackingNumber    string
	LabelURL          string
	Carrier           string
	EstimatedDelivery time.Time
}

type LabelGenerator interface {
	Generate(ctx context.Context, req LabelRequest) (*Label, error)
}

// simulatedCarrier issues labels locally; it stands in for a carrier API.
type simulatedCarrier struct {
	baseURL string
	now     func() time.Time
}

func NewSimulatedCarrier(baseURL string) LabelGenerator {
	return &simulatedCarrier{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (c *simulatedCarrier) Generate(ctx context.Context, req LabelRequest) (*Label, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "shipping"),
		zap.String("method", "GenerateLabel"),
		zap.String("order_id", req.OrderID.String()),
	)

	if req.OrderNumber == "" || req.Bottles <= 0 {
		log.Warn("label request incomplete")
		return nil, ErrLabelUnavailable
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000_000))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLabelUnavailable, err)
	}
	tracking := fmt.Sprintf("VM%012d", n.Int64())

	carrier := "DHL"
	days := 3
	if req.Country != "" && !strings.EqualFold(req.Country, "IT") {
		carrier = "DHL Express"
		days = 5
	}

	label := &Label{
		TrackingNumber:    tracking,
		LabelURL:          fmt.Sprintf("%s/%s/%s.pdf", c.baseURL, req.OrderNumber, tracking),
		Carrier:           carrier,
		EstimatedDelivery: addBusinessDays(c.now().UTC(), days),
	}

	log.Info("shipping label generated", zap.String("tracking_number", tracking))
	return label, nil
}

func addBusinessDays(from time.Time, days int) time.Time {
	t := from
	for days > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days--
		}
	}
	return t
}
