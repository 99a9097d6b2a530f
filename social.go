package auth

import (
	"encoding/json"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
)

const kakaoAuthorizeURL = "https://kauth.kakao.com/oauth/authorize"

// SocialQuery carries the optional query string of a social redirect
// request.
type SocialQuery struct {
	Next           string `query:"next" json:"next,omitempty"`
	IsIntegrate    string `query:"isIntegrate" json:"isIntegrate,omitempty"`
	IntegrateState string `query:"integrateState" json:"integrateState,omitempty"`
}

// SocialProvider builds the authorize redirect link for a provider. The
// provider itself is an external collaborator; this package only constructs
// the link the client is bounced to.
type SocialProvider interface {
	RedirectURL(query SocialQuery) (string, error)
}

// SocialProviders maps the path parameter to its provider.
type SocialProviders map[string]SocialProvider

// Resolve returns the provider registered under name.
func (p SocialProviders) Resolve(name string) (SocialProvider, error) {
	provider, ok := p[name]
	if !ok {
		return nil, goerrors.New("unknown social provider", goerrors.CategoryNotFound).
			WithTextCode(TextCodeNotFound).
			WithCode(goerrors.CodeNotFound).
			WithMetadata(map[string]any{"provider": name})
	}
	return provider, nil
}

// KakaoProvider builds Kakao OAuth authorize links.
type KakaoProvider struct {
	clientID    string
	callbackURL string
}

func NewKakaoProvider(clientID, callbackURL string) *KakaoProvider {
	return &KakaoProvider{
		clientID:    clientID,
		callbackURL: callbackURL,
	}
}

type kakaoState struct {
	Next           string `json:"next"`
	IsIntegrate    int    `json:"isIntegrate"`
	IntegrateState string `json:"integrateState,omitempty"`
}

// RedirectURL satisfies the SocialProvider interface.
func (k *KakaoProvider) RedirectURL(query SocialQuery) (string, error) {
	if k.clientID == "" || k.callbackURL == "" {
		return "", goerrors.New("kakao provider is not configured", goerrors.CategoryInternal)
	}

	next := query.Next
	if next == "" {
		next = "/"
	}

	isIntegrate := 0
	if query.IsIntegrate == "true" {
		isIntegrate = 1
	}

	state, err := json.Marshal(kakaoState{
		Next:           next,
		IsIntegrate:    isIntegrate,
		IntegrateState: query.IntegrateState,
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode social state")
	}

	values := url.Values{}
	values.Set("client_id", k.clientID)
	values.Set("redirect_uri", k.callbackURL)
	values.Set("response_type", "code")
	values.Set("state", string(state))

	return kakaoAuthorizeURL + "?" + values.Encode(), nil
}

var _ SocialProvider = (*KakaoProvider)(nil)
