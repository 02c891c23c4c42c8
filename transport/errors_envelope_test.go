package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-checkout/core"
	goerrors "github.com/goliatone/go-errors"
)

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.CheckoutErrorExternalFailure {
		t.Fatalf("expected %q text code, got %q", core.CheckoutErrorExternalFailure, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_NilReturnsRichError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), core.TransportRequest{})
	if err == nil {
		t.Fatalf("expected rest adapter nil error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.CheckoutErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.CheckoutErrorInternal, rich.TextCode)
	}
}

func TestRESTAdapter_SendsHeadersQueryAndBody(t *testing.T) {
	var gotMethod, gotQuery, gotHeader, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.Query().Get("grant_type")
		gotHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("X-Request-Id", "req-1")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	response, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  "post",
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Basic abc"},
		Query:   map[string]string{"grant_type": "client_credentials"},
		Body:    FormBody(map[string]string{"scope": "openid"}),
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotMethod != http.MethodPost || gotQuery != "client_credentials" || gotHeader != "Basic abc" {
		t.Fatalf("unexpected request: method=%s query=%s auth=%s", gotMethod, gotQuery, gotHeader)
	}
	if gotBody != "scope=openid" {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if response.StatusCode != http.StatusCreated || response.Headers["X-Request-Id"] != "req-1" {
		t.Fatalf("unexpected response: %+v", response)
	}
}

func TestStatusErrorEchoesBody(t *testing.T) {
	if err := StatusError(KindREST, core.TransportResponse{StatusCode: http.StatusOK}); err != nil {
		t.Fatalf("expected nil for 2xx, got %v", err)
	}
	err := StatusError(KindREST, core.TransportResponse{StatusCode: http.StatusInternalServerError, Body: []byte(`{"error":"boom"}`)})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Metadata["body"] != `{"error":"boom"}` {
		t.Fatalf("expected echoed body, got %+v", rich.Metadata)
	}
	if rich.Code != http.StatusInternalServerError {
		t.Fatalf("expected upstream status, got %d", rich.Code)
	}
}

func TestGraphQLAdapter_ExecuteDecodesData(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if r.Header.Get("X-Custom") != "yes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"auth":{"token":"abc"}}}`))
	}))
	defer server.Close()

	adapter := NewGraphQLAdapter(server.URL, server.Client())
	var out struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	err := adapter.Execute(context.Background(), GraphQLOperation{
		Name:      "GetToken",
		Query:     "query GetToken($id: String!) { auth(id: $id) { token } }",
		Variables: map[string]any{"id": "1"},
		Headers:   map[string]string{"X-Custom": "yes"},
	}, &out)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Auth.Token != "abc" {
		t.Fatalf("unexpected token %q", out.Auth.Token)
	}
	if payload["operationName"] != "GetToken" {
		t.Fatalf("expected operation name in payload, got %+v", payload)
	}
	variables, _ := payload["variables"].(map[string]any)
	if variables["id"] != "1" {
		t.Fatalf("expected variables in payload, got %+v", payload)
	}
}

func TestGraphQLAdapter_ExecuteReportsGraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"INVALID_RESOURCE_ID"}]}`))
	}))
	defer server.Close()

	adapter := NewGraphQLAdapter(server.URL, server.Client())
	err := adapter.Execute(context.Background(), GraphQLOperation{Name: "Approve", Query: "mutation Approve { ok }"}, nil)
	if !core.HasTextCode(err, core.ErrorGraphQL) {
		t.Fatalf("expected %s, got %v", core.ErrorGraphQL, err)
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Metadata["operation"] != "Approve" {
		t.Fatalf("expected operation metadata, got %+v", rich.Metadata)
	}
}

func TestGraphQLAdapter_RequiresQueryAndEndpoint(t *testing.T) {
	adapter := NewGraphQLAdapter("", nil)
	if _, err := adapter.Do(context.Background(), core.TransportRequest{Body: []byte("{ ok }")}); !core.HasTextCode(err, core.CheckoutErrorBadInput) {
		t.Fatalf("expected bad input without endpoint, got %v", err)
	}
	adapter.Endpoint = "http://127.0.0.1:0/graphql"
	if _, err := adapter.Do(context.Background(), core.TransportRequest{}); !core.HasTextCode(err, core.CheckoutErrorBadInput) {
		t.Fatalf("expected bad input without query, got %v", err)
	}
}
