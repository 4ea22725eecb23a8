package model

import "time"

// RefreshSafetyMargin is how long before expiry a token is treated as stale.
const RefreshSafetyMargin = 60 * time.Second

// AuthorizationStateTTL bounds how long an issued state token can be redeemed.
const AuthorizationStateTTL = 10 * time.Minute

// OAuthConfig is the immutable per-platform OAuth client metadata.
type OAuthConfig struct {
	Platform     Platform `json:"platform"`
	AuthorizeURL string   `json:"authorizeUrl"`
	TokenURL     string   `json:"tokenUrl"`
	Scopes       []string `json:"scopes"`
	ClientID     string   `json:"-"`
	ClientSecret string   `json:"-"`
	RedirectURI  string   `json:"redirectUri"`
	// Dynamic platforms resolve their endpoints per connection.
	Dynamic bool `json:"dynamic"`
}

func (c OAuthConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c OAuthConfig) HasEndpoints() bool {
	return c.AuthorizeURL != "" && c.TokenURL != ""
}

// AuthorizationState binds an issued authorization URL to its callback.
type AuthorizationState struct {
	StateToken   string    `json:"stateToken"`
	UserID       string    `json:"userId"`
	Platform     Platform  `json:"platform"`
	CodeVerifier string    `json:"codeVerifier,omitempty"`
	InstanceURL  string    `json:"instanceUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Expired reports whether the state is older than ttl at now.
func (s AuthorizationState) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// AuthOptions carries per-request inputs to the authorization flow.
type AuthOptions struct {
	InstanceURL  string
	CodeVerifier string
}

// TokenSet is the normalised token endpoint response.
type TokenSet struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	TokenType    string `json:"tokenType"`
	Scope        string `json:"scope,omitempty"`
}

// UserProfile is the normalised account profile returned by a platform.
type UserProfile struct {
	ID              string `json:"id"`
	Handle          string `json:"handle"`
	DisplayName     string `json:"displayName,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

type ConnectionStatus string

const (
	ConnectionConnected ConnectionStatus = "connected"
	ConnectionPending   ConnectionStatus = "pending"
	ConnectionError     ConnectionStatus = "error"
)

// Connection records that a user authorized a platform.
type Connection struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Platform    Platform         `json:"platform"`
	Status      ConnectionStatus `json:"status"`
	InstanceURL string           `json:"instanceUrl,omitempty"`
	LastError   *string          `json:"lastError,omitempty"`
	ConnectedAt time.Time        `json:"connectedAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Token is owned by exactly one Connection and replaced wholesale on refresh.
type Token struct {
	ConnectionID      string     `json:"connectionId"`
	AccessToken       string     `json:"-"`
	RefreshToken      string     `json:"-"`
	TokenType         string     `json:"tokenType,omitempty"`
	Scopes            string     `json:"scopes,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	AccountHandle     string     `json:"accountHandle"`
	DisplayName       string     `json:"displayName,omitempty"`
	ProfileImageURL   string     `json:"profileImageUrl,omitempty"`
	PlatformAccountID string     `json:"platformAccountId"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// NeedsRefresh is true once now reaches expiresAt minus the safety margin.
func (t Token) NeedsRefresh(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return !now.Before(t.ExpiresAt.Add(-RefreshSafetyMargin))
}

// Expired is true once now reaches expiresAt.
func (t Token) Expired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return !now.Before(*t.ExpiresAt)
}

func (t Token) HasRefreshToken() bool { return t.RefreshToken != "" }

// ConnectionWithToken is the joined read model used by the flow manager.
type ConnectionWithToken struct {
	Connection Connection `json:"connection"`
	Token      Token      `json:"token"`
}

// Credentials is what a platform client needs to act for a user.
type Credentials struct {
	ConnectionID      string
	AccessToken       string
	PlatformAccountID string
	AccountHandle     string
	InstanceURL       string
}
