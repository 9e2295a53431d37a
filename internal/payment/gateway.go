package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vinmarket-be/internal/config"
	"vinmarket-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type bankGateway struct {
	cfg        config.GatewayConfig
	currency   string
	httpClient *http.Client
	now        func() time.Time
}

// NewBankGateway returns the redirect-based bank gateway. Payments are
// confirmed later through the signed server-to-server callback.
func NewBankGateway(cfg config.GatewayConfig, currency string) Provider {
	return &bankGateway{
		cfg:      cfg,
		currency: currency,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

func (g *bankGateway) Name() Name { return BankGateway }

// MinorUnits renders amount in cents as the gateway's importo field.
func MinorUnits(amount decimal.Decimal) string {
	return amount.Shift(2).Round(0).StringFixed(0)
}

func (g *bankGateway) ProcessPayment(ctx context.Context, req Request) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "payment"),
		zap.String("provider", string(BankGateway)),
		zap.String("order_id", req.OrderID.String()),
	)

	if !req.Amount.IsPositive() {
		return failed(BankGateway, "amount must be positive"), nil
	}

	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}

	codTrans := fmt.Sprintf("%s-%d", req.OrderNumber, g.now().UnixMilli())
	importo := MinorUnits(req.Amount)

	q := url.Values{}
	q.Set("alias", g.cfg.Alias)
	q.Set("importo", importo)
	q.Set("divisa", currency)
	q.Set("codTrans", codTrans)
	q.Set("url", g.cfg.SuccessURL)
	q.Set("url_back", g.cfg.CancelURL)
	q.Set("urlpost", g.cfg.CallbackURL)
	q.Set("mac", SignRequest(codTrans, currency, importo, g.cfg.SecretKey))
	q.Set("orderId", req.OrderID.String())

	redirect := g.cfg.PaymentURL
	if strings.Contains(redirect, "?") {
		redirect += "&" + q.Encode()
	} else {
		redirect += "?" + q.Encode()
	}

	log.Info("gateway redirect prepared", zap.String("cod_trans", codTrans))

	return &Result{
		Success:          true,
		TransactionID:    codTrans,
		Status:           StatusPending,
		Fees:             decimal.Zero,
		Provider:         BankGateway,
		RedirectURL:      redirect,
		RequiresRedirect: true,
	}, nil
}

type refundResponse struct {
	Esito    string `json:"esito"`
	RefundID string `json:"idOperazione"`
	Message  string `json:"messaggio"`
}

// RefundPayment posts a signed refund request for the transaction code
// returned by ProcessPayment. Transport failures are returned as errors;
// rejections come back as an unsuccessful result.
func (g *bankGateway) RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "payment"),
		zap.String("provider", string(BankGateway)),
		zap.String("cod_trans", req.PaymentID),
	)

	if req.PaymentID == "" {
		return &RefundResult{Success: false, Status: StatusFailed, Error: "payment id is required"}, nil
	}
	if g.cfg.RefundURL == "" {
		return &RefundResult{Success: false, Status: StatusFailed, Error: "refund endpoint not configured"}, nil
	}

	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}
	importo := MinorUnits(req.Amount)

	form := url.Values{}
	form.Set("alias", g.cfg.Alias)
	form.Set("codTrans", req.PaymentID)
	form.Set("importo", importo)
	form.Set("divisa", currency)
	form.Set("mac", SignRequest(req.PaymentID, currency, importo, g.cfg.SecretKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.RefundURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("failed creating refund request", zap.Error(err))
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		log.Error("refund request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("failed to read refund response", zap.Error(err))
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("gateway rejected refund",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return &RefundResult{
			Success: false,
			Status:  StatusFailed,
			Error:   fmt.Sprintf("gateway returned %d", resp.StatusCode),
		}, nil
	}

	var parsed refundResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Warn("undecodable refund response", zap.Error(err))
		return &RefundResult{Success: false, Status: StatusFailed, Error: "invalid gateway response"}, nil
	}

	if !strings.EqualFold(parsed.Esito, "OK") {
		log.Warn("refund declined", zap.String("esito", parsed.Esito), zap.String("message", parsed.Message))
		return &RefundResult{Success: false, Status: StatusFailed, Error: parsed.Message}, nil
	}

	log.Info("refund accepted", zap.String("refund_id", parsed.RefundID))
	return &RefundResult{Success: true, RefundID: parsed.RefundID, Status: StatusRefunded}, nil
}
