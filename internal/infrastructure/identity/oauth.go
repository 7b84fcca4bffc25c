// Package identity implements third-party login through the OAuth2
// authorization code flow.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

// Config describes one OAuth2 provider.
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	ProfileURL   string
	RedirectURL  string
	Scopes       []string
}

// Enabled reports whether enough settings are present to talk to a provider.
func (c Config) Enabled() bool {
	return c.ClientID != "" && c.AuthURL != "" && c.TokenURL != ""
}

// OAuthProvider exchanges authorization codes and fetches the user profile.
type OAuthProvider struct {
	name       string
	conf       *oauth2.Config
	profileURL string
}

var _ ports.IdentityProvider = (*OAuthProvider)(nil)

func NewOAuthProvider(cfg Config) *OAuthProvider {
	name := cfg.Name
	if name == "" {
		name = "oauth"
	}
	return &OAuthProvider{
		name: name,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		profileURL: cfg.ProfileURL,
	}
}

func (p *OAuthProvider) Name() string { return p.name }

func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

// profile is the union of the subject and display fields common providers return.
type profile struct {
	OpenID   string `json:"openid"`
	Sub      string `json:"sub"`
	ID       any    `json:"id"`
	Nickname string `json:"nickname"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// Exchange trades code for a token and resolves the stable subject, from the
// token response when it carries one, otherwise from the profile endpoint.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*domain.SocialProfile, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	out := &domain.SocialProfile{Provider: p.name}
	if openID, ok := token.Extra("openid").(string); ok {
		out.Subject = openID
	}

	if p.profileURL != "" {
		prof, err := p.fetchProfile(ctx, token)
		if err != nil {
			return nil, err
		}
		if out.Subject == "" {
			out.Subject = prof.subject()
		}
		out.Nickname = firstNonEmpty(prof.Nickname, prof.Name)
		out.Phone = prof.Phone
	}

	if out.Subject == "" {
		return nil, fmt.Errorf("provider %s returned no subject", p.name)
	}
	return out, nil
}

func (p *OAuthProvider) fetchProfile(ctx context.Context, token *oauth2.Token) (*profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	resp, err := p.conf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch profile: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var prof profile
	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	dec.UseNumber() // numeric ids may exceed float64 precision
	if err := dec.Decode(&prof); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &prof, nil
}

func (p *profile) subject() string {
	switch {
	case p.OpenID != "":
		return p.OpenID
	case p.Sub != "":
		return p.Sub
	}
	switch v := p.ID.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
