package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-checkout/core"
	"github.com/goliatone/go-checkout/transport"
)

type capturedRequest struct {
	headers   http.Header
	operation string
	query     string
	variables map[string]any
}

type graphQLServer struct {
	mu       sync.Mutex
	requests []capturedRequest
	response string
}

func (s *graphQLServer) handler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	s.mu.Lock()
	s.requests = append(s.requests, capturedRequest{
		headers:   r.Header.Clone(),
		operation: payload.OperationName,
		query:     payload.Query,
		variables: payload.Variables,
	})
	response := s.response
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(response))
}

func (s *graphQLServer) last() capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newTestClient(t *testing.T, response string) (*Client, *graphQLServer) {
	t.Helper()
	backend := &graphQLServer{response: response}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	t.Cleanup(server.Close)

	client, err := NewClient(transport.NewGraphQLAdapter(server.URL, server.Client()), time.Second, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, backend
}

func TestClientExchangeSessionToken(t *testing.T) {
	client, backend := newTestClient(t, `{"data":{"firebase":{"auth":{"sessionToken":"fb-token"}}}}`)

	token, err := client.ExchangeSessionToken(context.Background(), "uid-1")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if token != "fb-token" {
		t.Fatalf("unexpected token %q", token)
	}
	req := backend.last()
	if req.operation != "GetFireBaseSessionToken" || req.variables["sessionUID"] != "uid-1" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestClientUpgradeAccessTokenScopeSendsHeaders(t *testing.T) {
	client, backend := newTestClient(t, `{"data":{"upgradeLowScopeAccessToken":true}}`)

	err := client.UpgradeAccessTokenScope(context.Background(), "merchant-lsat", core.UpgradeScopeInput{
		BuyerAccessToken: "buyer-1",
		OrderID:          "O1",
	})
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	req := backend.last()
	if req.headers.Get(HeaderAccessToken) != "buyer-1" || req.headers.Get(HeaderClientContext) != "O1" {
		t.Fatalf("expected buyer token and order headers, got %v", req.headers)
	}
	if req.variables["facilitatorAccessToken"] != "merchant-lsat" || req.variables["orderID"] != "O1" {
		t.Fatalf("unexpected variables: %+v", req.variables)
	}
	if !strings.Contains(req.query, "upgradeLowScopeAccessToken") {
		t.Fatalf("expected upgrade mutation, got %q", req.query)
	}
}

func TestClientExchangeAuthCode(t *testing.T) {
	client, backend := newTestClient(t, `{"data":{"auth":{"authCode":"code-1"}}}`)

	code, err := client.ExchangeAccessTokenForAuthCode(context.Background(), "buyer-1")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if code != "code-1" || backend.last().variables["buyerAccessToken"] != "buyer-1" {
		t.Fatalf("unexpected auth code exchange: %q %+v", code, backend.last())
	}
}

func TestClientGetConnectURL(t *testing.T) {
	client, backend := newTestClient(t, `{"data":{"auth":{"connectUrl":{"href":"https://www.paypal.com/connect?x=1"}}}}`)

	href, err := client.GetConnectURL(context.Background(), core.ConnectURLInput{
		ClientID:      "client-1",
		FundingSource: core.FundingPayPal,
		Scopes:        []string{"openid", "email"},
		ResponseType:  "code",
		BillingType:   "MERCHANT_INITIATED_BILLING",
	})
	if err != nil {
		t.Fatalf("connect url: %v", err)
	}
	if href != "https://www.paypal.com/connect?x=1" {
		t.Fatalf("unexpected href %q", href)
	}
	variables := backend.last().variables
	scopes, _ := variables["scopes"].([]any)
	if len(scopes) != 2 || variables["fundingSource"] != "paypal" || variables["billingType"] != "MERCHANT_INITIATED_BILLING" {
		t.Fatalf("unexpected variables: %+v", variables)
	}
}

func TestClientAuthorizeInstrumentPayment(t *testing.T) {
	client, backend := newTestClient(t, `{"data":{"approvePaymentWithNonce":{"buyer":{"userId":"P1"}}}}`)

	result, err := client.AuthorizeInstrumentPayment(context.Background(), core.AuthorizeInstrumentInput{
		OrderID:            "O1",
		PaymentMethodToken: "T1",
		ClientID:           "client-1",
		Branded:            true,
		ButtonSessionID:    "btn-1",
		ClientMetadataID:   "cmid-1",
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.PayerID != "P1" {
		t.Fatalf("unexpected payer id %q", result.PayerID)
	}
	variables := backend.last().variables
	if variables["paymentMethodToken"] != "T1" || variables["branded"] != true || variables["clientMetadataID"] != "cmid-1" {
		t.Fatalf("unexpected variables: %+v", variables)
	}
}

func TestClientMissingFieldIsGraphQLError(t *testing.T) {
	client, _ := newTestClient(t, `{"data":{"auth":{}}}`)

	_, err := client.ExchangeAccessTokenForAuthCode(context.Background(), "buyer-1")
	if !core.HasTextCode(err, core.ErrorGraphQL) {
		t.Fatalf("expected %s, got %v", core.ErrorGraphQL, err)
	}
}

func TestClientPropagatesGraphQLErrors(t *testing.T) {
	client, _ := newTestClient(t, `{"errors":[{"message":"INSTRUMENT_DECLINED"}]}`)

	_, err := client.AuthorizeInstrumentPayment(context.Background(), core.AuthorizeInstrumentInput{OrderID: "O1"})
	if !core.HasTextCode(err, core.ErrorGraphQL) {
		t.Fatalf("expected %s, got %v", core.ErrorGraphQL, err)
	}
	if !strings.Contains(err.Error(), "INSTRUMENT_DECLINED") {
		t.Fatalf("expected upstream message, got %q", err.Error())
	}
}

func TestNewClientRequiresExecutor(t *testing.T) {
	if _, err := NewClient(nil, 0, nil); err == nil {
		t.Fatalf("expected error without executor")
	}
}
