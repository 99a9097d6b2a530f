package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// AvatarGenerator renders a profile image for a seed string. The same seed
// must always yield the same image.
type AvatarGenerator interface {
	Generate(ctx context.Context, seed string) (string, error)
}

// AvatarGeneratorFunc adapts a function into an AvatarGenerator.
type AvatarGeneratorFunc func(ctx context.Context, seed string) (string, error)

// Generate satisfies the AvatarGenerator interface.
func (f AvatarGeneratorFunc) Generate(ctx context.Context, seed string) (string, error) {
	if f == nil {
		return "", goerrors.New("avatar generator is not configured", goerrors.CategoryInternal)
	}
	return f(ctx, seed)
}

// AnonymousProfile is the provisioned identity material for a first-time
// anonymous sign-in.
type AnonymousProfile struct {
	Username    string `json:"username"`
	AvatarImage string `json:"avatar_image"`
}

// AccountSeed derives the deterministic seed for the nth created account.
func AccountSeed(seq int64) string {
	return fmt.Sprintf("anonymous@%d", seq)
}

// Provisioner creates anonymous account material. It is a pure function of
// the accounts-created counter: username and avatar both derive from the
// same seed, so a given counter value always produces the same profile.
type Provisioner struct {
	avatars AvatarGenerator
}

// NewProvisioner creates a Provisioner, falling back to the built-in
// deterministic identicon generator when avatars is nil.
func NewProvisioner(avatars AvatarGenerator) *Provisioner {
	if avatars == nil {
		avatars = identiconGenerator{}
	}
	return &Provisioner{avatars: avatars}
}

// Provision builds the profile for the seq-th anonymous account. A failing
// avatar generator aborts the whole provisioning so callers never persist an
// account without an image.
func (p *Provisioner) Provision(ctx context.Context, seq int64) (*AnonymousProfile, error) {
	seed := AccountSeed(seq)

	image, err := p.avatars.Generate(ctx, seed)
	if err != nil {
		return nil, goerrors.Wrap(err, ErrProvisioningFailed.Category, ErrProvisioningFailed.Message).
			WithTextCode(ErrProvisioningFailed.TextCode).
			WithMetadata(map[string]any{"seed": seed})
	}

	return &AnonymousProfile{
		Username:    seed,
		AvatarImage: image,
	}, nil
}

// identiconGenerator renders a 5x5 mirrored identicon as an SVG data URI.
// The pixel grid and color both derive from a UUID hashed out of the seed,
// so the output is stable across processes.
type identiconGenerator struct{}

func (identiconGenerator) Generate(_ context.Context, seed string) (string, error) {
	uid, err := hashid.NewUUID(seed)
	if err != nil {
		return "", err
	}

	digest := uid[:]
	color := fmt.Sprintf("#%02x%02x%02x", digest[0], digest[1], digest[2])

	var sb strings.Builder
	sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 5 5" shape-rendering="crispEdges">`)
	sb.WriteString(`<rect width="5" height="5" fill="#f0f0f0"/>`)

	for row := 0; row < 5; row++ {
		bits := digest[3+row]
		for col := 0; col < 3; col++ {
			if bits&(1<<uint(col)) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="1" height="1" fill="%s"/>`, col, row, color))
			if col < 2 {
				sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="1" height="1" fill="%s"/>`, 4-col, row, color))
			}
		}
	}

	sb.WriteString(`</svg>`)

	encoded := base64.StdEncoding.EncodeToString([]byte(sb.String()))
	return "data:image/svg+xml;base64," + encoded, nil
}

// NewSigningSecret generates a per-user signing secret. Rotating a user's
// secret invalidates every token previously issued to that user.
func NewSigningSecret() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate signing secret")
	}
	return hex.EncodeToString(buf), nil
}
