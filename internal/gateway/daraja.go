package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/domain"
)

const (
	tokenPath     = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath   = "/mpesa/stkpush/v1/processrequest"
	timestampForm = "20060102150405"

	transactionType = "CustomerPayBillOnline"

	// tokenSafetyMargin is subtracted from the token lifetime reported by the gateway.
	tokenSafetyMargin = time.Minute
)

// nairobi is the zone the gateway expects push timestamps in.
var nairobi = time.FixedZone("EAT", 3*60*60)

// DarajaClient sends STK pushes through the M-Pesa Daraja API.
type DarajaClient struct {
	cfg    config.MpesaConfig
	http   *fasthttp.Client
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewDarajaClient creates a new DarajaClient.
func NewDarajaClient(cfg config.MpesaConfig, logger *zap.Logger) *DarajaClient {
	return &DarajaClient{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:         "storefront-payments",
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: cfg.RequestTimeout,
		},
		logger: logger,
		now:    time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   any    `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`

	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Push sends an STK push and returns the gateway's acknowledgement.
func (c *DarajaClient) Push(ctx context.Context, req PushRequest) (*domain.GatewayEcho, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().In(nairobi).Format(timestampForm)
	phone := NormalizePhone(req.PhoneNumber)

	accountRef := req.AccountReference
	if accountRef == "" {
		accountRef = c.cfg.AccountReference
	}
	desc := req.Description
	if desc == "" {
		desc = "Payment of " + accountRef
	}

	body, err := json.Marshal(stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.PassKey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            req.Amount,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   desc,
	})
	if err != nil {
		return nil, err
	}

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(httpResp)

	httpReq.SetRequestURI(c.cfg.BaseURL + stkPushPath)
	httpReq.Header.SetMethod(fasthttp.MethodPost)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.SetContentType("application/json")
	httpReq.SetBody(body)

	if err := c.http.DoTimeout(httpReq, httpResp, c.timeout(ctx)); err != nil {
		return nil, fmt.Errorf("stk push request: %w", err)
	}

	var out stkPushResponse
	if err := json.Unmarshal(httpResp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode stk push response (status %d): %w", httpResp.StatusCode(), err)
	}

	if out.ErrorCode != "" {
		return nil, &RejectedError{Code: out.ErrorCode, Message: out.ErrorMessage}
	}
	if out.ResponseCode != "0" {
		return nil, &RejectedError{Code: out.ResponseCode, Message: out.ResponseDescription}
	}

	c.logger.Info("stk push accepted",
		zap.String("checkout_request_id", out.CheckoutRequestID),
		zap.String("merchant_request_id", out.MerchantRequestID),
	)

	return &domain.GatewayEcho{
		MerchantRequestID:   out.MerchantRequestID,
		CheckoutRequestID:   out.CheckoutRequestID,
		ResponseCode:        out.ResponseCode,
		ResponseDescription: out.ResponseDescription,
		CustomerMessage:     out.CustomerMessage,
	}, nil
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

// accessToken returns a cached OAuth token, fetching a new one when it is about to expire.
func (c *DarajaClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(httpResp)

	credentials := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))

	httpReq.SetRequestURI(c.cfg.BaseURL + tokenPath)
	httpReq.Header.SetMethod(fasthttp.MethodGet)
	httpReq.Header.Set("Authorization", "Basic "+credentials)

	if err := c.http.DoTimeout(httpReq, httpResp, c.timeout(ctx)); err != nil {
		return "", fmt.Errorf("oauth token request: %w", err)
	}

	if httpResp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("oauth token request: unexpected status %d", httpResp.StatusCode())
	}

	var out tokenResponse
	if err := json.Unmarshal(httpResp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode oauth token: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("oauth token response without access_token")
	}

	// expires_in arrives as a quoted number.
	expiresIn, err := cast.ToInt64E(out.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3599
	}

	c.token = out.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn)*time.Second - tokenSafetyMargin)

	return c.token, nil
}

func (c *DarajaClient) timeout(ctx context.Context) time.Duration {
	timeout := c.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			return remaining
		}
	}
	return timeout
}

// Ensure DarajaClient implements Client.
var _ Client = (*DarajaClient)(nil)
