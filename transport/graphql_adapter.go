package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-checkout/core"
	goerrors "github.com/goliatone/go-errors"
)

const KindGraphQL = "graphql"

// GraphQLOperation is one named query or mutation.
type GraphQLOperation struct {
	Name      string
	Query     string
	Variables map[string]any
	Headers   map[string]string
	Timeout   time.Duration
}

type GraphQLError struct {
	Message string         `json:"message"`
	Path    []any          `json:"path,omitempty"`
	Extras  map[string]any `json:"extensions,omitempty"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

type GraphQLAdapter struct {
	Endpoint string
	REST     *RESTAdapter
}

func NewGraphQLAdapter(endpoint string, client HTTPDoer) *GraphQLAdapter {
	return &GraphQLAdapter{
		Endpoint: strings.TrimSpace(endpoint),
		REST:     NewRESTAdapter(client),
	}
}

func (*GraphQLAdapter) Kind() string {
	return KindGraphQL
}

// Execute posts the operation and decodes the data member into out. A
// non-empty errors member, a non-2xx status or a missing data member all
// fail with GRAPHQL_ERROR.
func (a *GraphQLAdapter) Execute(ctx context.Context, op GraphQLOperation, out any) error {
	metadata := map[string]any{"query": op.Query}
	if name := strings.TrimSpace(op.Name); name != "" {
		metadata["operation_name"] = name
	}
	if op.Variables != nil {
		metadata["variables"] = op.Variables
	}
	response, err := a.Do(ctx, core.TransportRequest{
		Headers:  op.Headers,
		Metadata: metadata,
		Timeout:  op.Timeout,
	})
	if err != nil {
		return err
	}

	var envelope graphQLEnvelope
	if err := json.Unmarshal(response.Body, &envelope); err != nil {
		return graphQLError(op.Name, "transport: decode graphql response", response, nil, err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, item := range envelope.Errors {
			messages = append(messages, strings.TrimSpace(item.Message))
		}
		return graphQLError(
			op.Name,
			fmt.Sprintf("transport: graphql %s failed: %s", op.Name, strings.Join(messages, "; ")),
			response,
			envelope.Errors,
			nil,
		)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return graphQLError(op.Name, fmt.Sprintf("transport: graphql %s returned status %d", op.Name, response.StatusCode), response, nil, nil)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return graphQLError(op.Name, fmt.Sprintf("transport: graphql %s returned no data", op.Name), response, nil, nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return graphQLError(op.Name, "transport: decode graphql data", response, nil, err)
	}
	return nil
}

func (a *GraphQLAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.REST == nil {
		return core.TransportResponse{}, transportError(
			"transport: graphql adapter requires a rest adapter",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindGraphQL},
		)
	}

	endpoint := strings.TrimSpace(req.URL)
	if endpoint == "" {
		endpoint = a.Endpoint
	}
	if endpoint == "" {
		return core.TransportResponse{}, transportError(
			"transport: graphql endpoint is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL},
		)
	}

	query, ok := readGraphQLQuery(req)
	if !ok {
		return core.TransportResponse{}, transportError(
			"transport: graphql query is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}
	payload := map[string]any{"query": query}
	if operationName := readGraphQLOperationName(req.Metadata); operationName != "" {
		payload["operationName"] = operationName
	}
	if variables, ok := readGraphQLVariables(req.Metadata); ok {
		payload["variables"] = variables
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: marshal graphql payload",
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	for key, value := range req.Headers {
		headers[key] = value
	}

	response, err := a.REST.Do(ctx, core.TransportRequest{
		Method:               http.MethodPost,
		URL:                  endpoint,
		Headers:              headers,
		Body:                 body,
		Timeout:              req.Timeout,
		MaxResponseBodyBytes: req.MaxResponseBodyBytes,
	})
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: graphql request failed",
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}
	if len(response.Metadata) == 0 {
		response.Metadata = map[string]any{}
	}
	response.Metadata["kind"] = KindGraphQL
	return response, nil
}

func graphQLError(operation string, message string, response core.TransportResponse, errs []GraphQLError, source error) error {
	metadata := map[string]any{
		"adapter":     KindGraphQL,
		"operation":   operation,
		"status_code": response.StatusCode,
		"body":        EchoBody(response.Body),
	}
	if len(errs) > 0 {
		metadata["errors"] = errs
	}
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryExternal)
	}
	return err.WithCode(http.StatusBadGateway).
		WithTextCode(core.ErrorGraphQL).
		WithMetadata(metadata)
}

func readGraphQLQuery(req core.TransportRequest) (string, bool) {
	if req.Metadata != nil {
		if query := strings.TrimSpace(fmt.Sprint(req.Metadata["query"])); query != "" && query != "<nil>" {
			return query, true
		}
	}
	query := strings.TrimSpace(string(req.Body))
	return query, query != ""
}

func readGraphQLOperationName(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	value := strings.TrimSpace(fmt.Sprint(metadata["operation_name"]))
	if value == "" || value == "<nil>" {
		return ""
	}
	return value
}

func readGraphQLVariables(metadata map[string]any) (map[string]any, bool) {
	if len(metadata) == 0 {
		return nil, false
	}
	typed, ok := metadata["variables"].(map[string]any)
	if !ok || typed == nil {
		return nil, false
	}
	cloned := make(map[string]any, len(typed))
	for key, item := range typed {
		cloned[key] = item
	}
	return cloned, true
}

var _ core.TransportAdapter = (*GraphQLAdapter)(nil)
