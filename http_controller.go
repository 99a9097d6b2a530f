package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Validate checks the anonymous sign-in payload.
func (i AnonymousInput) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.Username, validation.Length(2, 64)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid anonymous sign-in payload").
			WithTextCode(TextCodeValidationError)
	}
	return nil
}

// Validate checks the refresh payload.
func (i RefreshInput) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.RefreshToken, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid refresh payload").
			WithTextCode(TextCodeValidationError)
	}
	return nil
}

// AuthController is the thin HTTP plumbing over Auther: it parses input,
// invokes the lifecycle operations, writes the token cookies, and renders
// the result envelope. Any failure leaves the client without valid cookies.
type AuthController struct {
	auther    *Auther
	cfg       Config
	providers SocialProviders
	logger    Logger
}

type AuthControllerOption func(*AuthController)

// WithSocialProviders registers redirect-link builders by provider name.
func WithSocialProviders(providers SocialProviders) AuthControllerOption {
	return func(ac *AuthController) {
		ac.providers = providers
	}
}

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(ac *AuthController) {
		if logger != nil {
			ac.logger = logger
		}
	}
}

// NewAuthController creates the HTTP controller for the auth routes.
func NewAuthController(auther *Auther, cfg Config, opts ...AuthControllerOption) *AuthController {
	ac := &AuthController{
		auther:    auther,
		cfg:       cfg,
		providers: SocialProviders{},
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ac)
		}
	}

	return ac
}

// RegisterAuthRoutes mounts the auth endpoints on the given router.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	app.Post("/auth/anonymous", controller.SignInAnonymous)
	app.Post("/auth/refresh", controller.Refresh)
	app.Get("/auth/redirect/:provider", controller.SocialRedirect)
}

// SignInAnonymous handles POST /auth/anonymous.
func (ac *AuthController) SignInAnonymous(c *fiber.Ctx) error {
	input := AnonymousInput{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return ac.respond(c, ErrorEnvelope(badPayload(err)))
		}
	}

	if err := input.Validate(); err != nil {
		return ac.respond(c, ErrorEnvelope(err))
	}

	pair, err := ac.auther.SignInAnonymous(c.UserContext(), input)
	envelope := ResultFrom(pair, err)

	if envelope.OK() {
		ac.setTokenCookies(c, pair)
	} else {
		ac.clearTokenCookies(c)
	}

	return ac.respond(c, envelope)
}

// Refresh handles POST /auth/refresh. The token is read from the body and
// falls back to the refresh cookie.
func (ac *AuthController) Refresh(c *fiber.Ctx) error {
	input := RefreshInput{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return ac.respond(c, ErrorEnvelope(badPayload(err)))
		}
	}

	if input.RefreshToken == "" {
		input.RefreshToken = c.Cookies(ac.cfg.GetRefreshTokenName())
	}

	if err := input.Validate(); err != nil {
		ac.clearTokenCookies(c)
		return ac.respond(c, ErrorEnvelope(err))
	}

	pair, err := ac.auther.Refresh(c.UserContext(), input.RefreshToken)
	envelope := ResultFrom(pair, err)

	if envelope.OK() {
		ac.setTokenCookies(c, pair)
	} else {
		// treat the client as logged out, whatever went wrong
		ac.clearTokenCookies(c)
	}

	return ac.respond(c, envelope)
}

// SocialRedirect handles GET /auth/redirect/:provider by bouncing the client
// to the provider's authorize URL.
func (ac *AuthController) SocialRedirect(c *fiber.Ctx) error {
	provider, err := ac.providers.Resolve(c.Params("provider"))
	if err != nil {
		return ac.respond(c, ErrorEnvelope(err))
	}

	link, err := provider.RedirectURL(SocialQuery{
		Next:           c.Query("next"),
		IsIntegrate:    c.Query("isIntegrate"),
		IntegrateState: c.Query("integrateState"),
	})
	if err != nil {
		return ac.respond(c, ErrorEnvelope(err))
	}

	return c.Redirect(link, fiber.StatusFound)
}

func (ac *AuthController) respond(c *fiber.Ctx, envelope Envelope) error {
	if !envelope.OK() {
		ac.logger.Debug("auth request failed", "details", print.MaybePrettyJSON(envelope))
	}
	return c.Status(envelope.StatusCode()).JSON(envelope)
}

func (ac *AuthController) setTokenCookies(c *fiber.Ctx, pair *TokenPair) {
	ac.setCookie(c, ac.cfg.GetAccessTokenName(), pair.AccessToken, pair.AccessExpiresAt)
	ac.setCookie(c, ac.cfg.GetRefreshTokenName(), pair.RefreshToken, pair.RefreshExpiresAt)
}

func (ac *AuthController) clearTokenCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour * (24 * 365))
	ac.setCookie(c, ac.cfg.GetAccessTokenName(), "", expired)
	ac.setCookie(c, ac.cfg.GetRefreshTokenName(), "", expired)
}

func (ac *AuthController) setCookie(c *fiber.Ctx, name, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     ac.cfg.GetCookiePath(),
		Domain:   ac.cfg.GetCookieDomain(),
		Expires:  expires,
		HTTPOnly: true,
		Secure:   ac.cfg.GetCookieSecure(),
		SameSite: ac.cfg.GetCookieSameSite(),
	})
}

func badPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "could not parse request payload").
		WithTextCode(TextCodeValidationError)
}
