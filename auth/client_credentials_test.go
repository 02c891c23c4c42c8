package auth

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-checkout/core"
	"github.com/goliatone/go-checkout/transport"
	goerrors "github.com/goliatone/go-errors"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type tokenServer struct {
	mu       sync.Mutex
	calls    int
	auth     []string
	bodies   []string
	status   int
	response string
}

func (s *tokenServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.calls++
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	s.bodies = append(s.bodies, string(body))
	status, response := s.status, s.response
	s.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(response))
}

func (s *tokenServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type tokenRequests struct {
	auth   []string
	bodies []string
}

func (s *tokenServer) snapshot() tokenRequests {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tokenRequests{auth: append([]string(nil), s.auth...), bodies: append([]string(nil), s.bodies...)}
}

func newTestCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func newTestExchanger(t *testing.T, server *httptest.Server) *ClientCredentialsExchanger {
	t.Helper()
	exchanger, err := NewClientCredentialsExchanger(
		ClientCredentialsConfig{TokenURL: server.URL, RequestTimeout: time.Second},
		transport.NewRESTAdapter(server.Client()),
		newTestCacheService(t),
		nil,
	)
	if err != nil {
		t.Fatalf("new exchanger: %v", err)
	}
	return exchanger
}

func TestClientCredentialsExchanger_MemoizesPerClient(t *testing.T) {
	backend := &tokenServer{response: `{"access_token":"A21AA","token_type":"Bearer"}`}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	exchanger := newTestExchanger(t, server)
	first, err := exchanger.CreateAccessToken(context.Background(), "client_1")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := exchanger.CreateAccessToken(context.Background(), "client_1")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first != "A21AA" || second != first {
		t.Fatalf("expected memoized token, got %q and %q", first, second)
	}
	if backend.count() != 1 {
		t.Fatalf("expected one backend call, got %d", backend.count())
	}

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client_1:"))
	if backend.snapshot().auth[0] != wantAuth {
		t.Fatalf("expected %q, got %q", wantAuth, backend.snapshot().auth[0])
	}
	if backend.snapshot().bodies[0] != "grant_type=client_credentials" {
		t.Fatalf("unexpected form body %q", backend.snapshot().bodies[0])
	}

	if _, err := exchanger.CreateAccessToken(context.Background(), "client_2"); err != nil {
		t.Fatalf("create other client: %v", err)
	}
	if backend.count() != 2 {
		t.Fatalf("expected a separate call per client id, got %d", backend.count())
	}

	if err := exchanger.Forget(context.Background(), "client_1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, err := exchanger.CreateAccessToken(context.Background(), "client_1"); err != nil {
		t.Fatalf("create after forget: %v", err)
	}
	if backend.count() != 3 {
		t.Fatalf("expected refetch after forget, got %d calls", backend.count())
	}
}

func TestClientCredentialsExchanger_InvalidClient(t *testing.T) {
	backend := &tokenServer{status: http.StatusUnauthorized, response: `{"error":"invalid_client","error_description":"Client Authentication failed"}`}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	_, err := newTestExchanger(t, server).CreateAccessToken(context.Background(), "bad_client")
	if !core.HasTextCode(err, core.ErrorAuthInvalidClient) {
		t.Fatalf("expected %s, got %v", core.ErrorAuthInvalidClient, err)
	}
	if !strings.Contains(err.Error(), "bad_client") || !strings.Contains(err.Error(), "Client Authentication failed") {
		t.Fatalf("expected message to echo client id and body, got %q", err.Error())
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata["client_id"] != "bad_client" {
		t.Fatalf("expected client id metadata, got %+v", rich)
	}
}

func TestClientCredentialsExchanger_MissingAccessToken(t *testing.T) {
	backend := &tokenServer{response: `{"token_type":"Bearer"}`}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	exchanger := newTestExchanger(t, server)
	_, err := exchanger.CreateAccessToken(context.Background(), "client_1")
	if !core.HasTextCode(err, core.ErrorAuthResponse) {
		t.Fatalf("expected %s, got %v", core.ErrorAuthResponse, err)
	}
	if !strings.Contains(err.Error(), `"token_type": "Bearer"`) {
		t.Fatalf("expected indented body echo, got %q", err.Error())
	}
}

func TestClientCredentialsExchanger_MalformedBody(t *testing.T) {
	backend := &tokenServer{status: http.StatusBadGateway, response: `<html>bad gateway</html>`}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	_, err := newTestExchanger(t, server).CreateAccessToken(context.Background(), "client_1")
	if !core.HasTextCode(err, core.ErrorAuthResponse) {
		t.Fatalf("expected %s, got %v", core.ErrorAuthResponse, err)
	}
}

func TestClientCredentialsExchanger_RequiresClientID(t *testing.T) {
	backend := &tokenServer{}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	_, err := newTestExchanger(t, server).CreateAccessToken(context.Background(), "  ")
	if !core.HasTextCode(err, core.CheckoutErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
	if backend.count() != 0 {
		t.Fatalf("expected no backend call")
	}
}

func TestAccessTokenCacheKeyEscapesClientID(t *testing.T) {
	if got := AccessTokenCacheKey("a/b c"); got != "go-checkout::access_token::v1::a%2Fb%20c" {
		t.Fatalf("unexpected cache key %q", got)
	}
}

type stubUpgrader struct {
	facilitator string
	input       core.UpgradeScopeInput
}

func (s *stubUpgrader) UpgradeAccessTokenScope(_ context.Context, facilitator string, in core.UpgradeScopeInput) error {
	s.facilitator = facilitator
	s.input = in
	return nil
}

type staticIssuer string

func (s staticIssuer) CreateAccessToken(context.Context, string) (string, error) {
	return string(s), nil
}

func TestGatewayDelegates(t *testing.T) {
	buyer := NewBuyerTokenStore()
	upgrader := &stubUpgrader{}
	gateway, err := NewGateway(staticIssuer("token"), buyer, upgrader)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	if _, ok := gateway.BuyerAccessToken(context.Background()); ok {
		t.Fatalf("expected no buyer token before set")
	}
	buyer.Set(" buyer-1 ")
	if token, ok := gateway.BuyerAccessToken(context.Background()); !ok || token != "buyer-1" {
		t.Fatalf("expected trimmed buyer token, got %q", token)
	}
	buyer.Clear()
	if _, ok := gateway.BuyerAccessToken(context.Background()); ok {
		t.Fatalf("expected buyer token cleared")
	}

	token, err := gateway.CreateAccessToken(context.Background(), "client")
	if err != nil || token != "token" {
		t.Fatalf("unexpected token %q err=%v", token, err)
	}
	in := core.UpgradeScopeInput{BuyerAccessToken: "b", OrderID: "O1"}
	if err := gateway.UpgradeAccessTokenScope(context.Background(), "merchant", in); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if upgrader.facilitator != "merchant" || upgrader.input != in {
		t.Fatalf("unexpected upgrade delegation: %+v", upgrader)
	}

	if _, err := NewGateway(nil, buyer, upgrader); err == nil {
		t.Fatalf("expected error without issuer")
	}
}
