package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-checkout/core"
	"github.com/goliatone/go-checkout/transport"
	goerrors "github.com/goliatone/go-errors"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const accessTokenCacheKeyPrefix = "go-checkout::access_token::v1"

type ClientCredentialsConfig struct {
	TokenURL       string
	RequestTimeout time.Duration
}

// ClientCredentialsExchanger issues service access tokens with the client
// credentials grant. Tokens are memoized per client id.
type ClientCredentialsExchanger struct {
	config   ClientCredentialsConfig
	rest     *transport.RESTAdapter
	cache    repositorycache.CacheService
	observer *core.Observer
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func NewClientCredentialsExchanger(
	cfg ClientCredentialsConfig,
	rest *transport.RESTAdapter,
	cacheService repositorycache.CacheService,
	observer *core.Observer,
) (*ClientCredentialsExchanger, error) {
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, fmt.Errorf("auth: token url is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("auth: access token cache service is required")
	}
	if rest == nil {
		rest = transport.NewRESTAdapter(nil)
	}
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	return &ClientCredentialsExchanger{
		config:   cfg,
		rest:     rest,
		cache:    cacheService,
		observer: observer,
	}, nil
}

// AccessTokenCacheKey returns go-checkout::access_token::v1::<client_id> with
// the client id URL-path escaped.
func AccessTokenCacheKey(clientID string) string {
	return accessTokenCacheKeyPrefix + "::" + url.PathEscape(strings.TrimSpace(clientID))
}

func (e *ClientCredentialsExchanger) CreateAccessToken(ctx context.Context, clientID string) (string, error) {
	if e == nil || e.rest == nil || e.cache == nil {
		return "", core.NewInternalError("auth: client credentials exchanger is not configured", nil)
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return "", core.NewBadInputError("auth: client id is required", nil)
	}
	return repositorycache.GetOrFetch(ctx, e.cache, AccessTokenCacheKey(clientID), func(ctx context.Context) (string, error) {
		return e.requestAccessToken(ctx, clientID)
	})
}

// Forget drops the memoized token for clientID.
func (e *ClientCredentialsExchanger) Forget(ctx context.Context, clientID string) error {
	if e == nil || e.cache == nil {
		return nil
	}
	return e.cache.Delete(ctx, AccessTokenCacheKey(clientID))
}

func (e *ClientCredentialsExchanger) requestAccessToken(ctx context.Context, clientID string) (string, error) {
	e.observer.Info(ctx, core.EventCreateAccessToken, map[string]any{"client_id": clientID})

	ctx, finish := e.observer.StartStage(ctx, "create_access_token", map[string]any{"client_id": clientID})
	token, err := e.exchange(ctx, clientID)
	finish(err)
	return token, err
}

func (e *ClientCredentialsExchanger) exchange(ctx context.Context, clientID string) (string, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(clientID + ":"))
	response, err := e.rest.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    e.config.TokenURL,
		Headers: map[string]string{
			"Authorization": "Basic " + basic,
			"Content-Type":  "application/x-www-form-urlencoded",
			"Accept":        "application/json",
		},
		Body:    transport.FormBody(map[string]string{"grant_type": "client_credentials"}),
		Timeout: e.config.RequestTimeout,
	})
	if err != nil {
		return "", err
	}

	var body tokenResponse
	if len(response.Body) > 0 {
		if err := json.Unmarshal(response.Body, &body); err != nil {
			return "", authResponseError(response, err)
		}
	}
	if body.Error == "invalid_client" {
		return "", invalidClientError(clientID, response)
	}
	if strings.TrimSpace(body.AccessToken) == "" {
		return "", authResponseError(response, nil)
	}
	return strings.TrimSpace(body.AccessToken), nil
}

func invalidClientError(clientID string, response core.TransportResponse) error {
	body := prettyBody(response.Body)
	return goerrors.New(fmt.Sprintf("auth: invalid client id %s:\n\n%s", clientID, body), goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ErrorAuthInvalidClient).
		WithMetadata(map[string]any{
			"client_id":   clientID,
			"status_code": response.StatusCode,
			"body":        body,
		})
}

func authResponseError(response core.TransportResponse, source error) error {
	body := prettyBody(response.Body)
	message := fmt.Sprintf("auth: token response error:\n\n%s", body)
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryExternal)
	}
	return err.WithCode(http.StatusBadGateway).
		WithTextCode(core.ErrorAuthResponse).
		WithMetadata(map[string]any{
			"status_code": response.StatusCode,
			"body":        body,
		})
}

// prettyBody indents JSON bodies and falls back to the trimmed raw text.
func prettyBody(raw []byte) string {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return transport.EchoBody(raw)
	}
	formatted, err := json.MarshalIndent(decoded, "", "    ")
	if err != nil {
		return transport.EchoBody(raw)
	}
	return string(formatted)
}

var _ core.AccessTokenIssuer = (*ClientCredentialsExchanger)(nil)
