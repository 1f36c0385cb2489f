package ww

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pointsbridge/ww-adapter/internal/metrics"
	"github.com/pointsbridge/ww-adapter/internal/rate"
	"github.com/pointsbridge/ww-adapter/pkg/utils"
)

const (
	loginPath     = "/login-apis/v1/authenticate"
	authorizePath = "/openam/oauth2/authorize"
	summaryPath   = "/api/v4/cmx/operations/composed/members/~/my-day-summary/"

	oauthClientID = "webCMX"
	oauthScope    = "openid session"

	sessionCookie = "wwAuth2"
	bearerCookie  = "wwSession"
	privacyCookie = "ww_privacy_settings"
	// privacySettings is a fixed consent blob the CMX API expects on every call.
	privacySettings = `{"doNotTrack":0,"doNotSell":0}`

	userAgent = "ww-adapter/1.0"

	requestTimeout = 20 * time.Second
	// tokenExpiryMargin guards against tokens expiring mid-request.
	tokenExpiryMargin = 60 * time.Second
)

// Client talks to the WW web APIs for a single account. It owns a lazily
// refreshed bearer token and re-authenticates transparently when the remote
// session expires. One periodic poller per Client is the intended deployment;
// the token mutex makes concurrent callers safe, if wasteful.
type Client struct {
	logger  *zap.Logger
	rateMgr *rate.Manager
	creds   Credentials

	// http never follows redirects: the authorize call carries the bearer
	// token in the redirect Location it must not chase.
	http     *http.Client
	authBase string // https://auth.<region domain>
	cmxBase  string // https://cmx.<region domain>

	mu         sync.Mutex
	idToken    string
	idTokenExp int64 // unix seconds, 0 = unknown (treated as expired)
}

// NewClient constructs a client for one account. The region code is resolved
// against the fixed region table; unknown codes fail construction.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, creds Credentials) (*Client, error) {
	domain, err := RegionDomain(creds.Region)
	if err != nil {
		return nil, err
	}
	return &Client{
		logger:  logger,
		rateMgr: rateMgr,
		creds:   creds,
		http: &http.Client{
			Timeout: requestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		authBase: "https://auth." + domain,
		cmxBase:  "https://cmx." + domain,
	}, nil
}

// Username returns the account username the client was built for.
func (c *Client) Username() string { return c.creds.Username }

// ValidateCredentials logs in and fetches today's summary, doubling as a
// "do these credentials work" check without a second verification path.
func (c *Client) ValidateCredentials(ctx context.Context) (*PointsSnapshot, error) {
	return c.GetPointsSummary(ctx, time.Time{})
}

// GetPointsSummary fetches the My Day points summary for day (zero value
// means today). On an auth failure from the summary endpoint the token is
// force-refreshed and the fetch retried exactly once; any error from the
// second attempt propagates as-is. The narrow single retry compensates for
// sessions expiring between the cache check and the request arriving
// server-side without masking persistently bad credentials.
func (c *Client) GetPointsSummary(ctx context.Context, day time.Time) (*PointsSnapshot, error) {
	if day.IsZero() {
		day = time.Now()
	}

	if err := c.ensureToken(ctx, false); err != nil {
		return nil, err
	}

	snap, err := c.fetchMyDaySummary(ctx, day)
	if err != nil && IsAuth(err) {
		if err := c.ensureToken(ctx, true); err != nil {
			return nil, err
		}
		return c.fetchMyDaySummary(ctx, day)
	}
	return snap, err
}

// ensureToken makes sure a usable bearer token is cached, running the
// two-stage auth pipeline on a miss or when force is set. The common path
// (valid cached token, force false) does no network work.
func (c *Client) ensureToken(ctx context.Context, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.idToken != "" && tokenUsable(c.idTokenExp, time.Now()) {
		return nil
	}

	sessionToken, err := c.authenticate(ctx)
	if err != nil {
		return err
	}
	idToken, err := c.exchangeIDToken(ctx, sessionToken)
	if err != nil {
		return err
	}

	c.idToken = idToken
	c.idTokenExp = tokenExpiry(idToken)

	c.logger.Info("ww.token_refreshed",
		zap.String("account", utils.MaskEmail(c.creds.Username)),
		zap.Int64("exp", c.idTokenExp))
	return nil
}

// tokenUsable applies the expiry safety margin to a cached token.
func tokenUsable(exp int64, now time.Time) bool {
	if exp == 0 {
		return false
	}
	return now.Unix() < exp-int64(tokenExpiryMargin/time.Second)
}

// authenticate runs the first auth stage: username/password against the
// region's login API. Returns the single-use session token.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	payload, err := json.Marshal(loginRequest{
		Username:        c.creds.Username,
		Password:        c.creds.Password,
		RememberMe:      true,
		UsernameEncoded: false,
		Retry:           false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase+loginPath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, "login", req, "unable to reach WW login API")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	// The login endpoint only distinguishes 401; a 403 here falls into the
	// generic tier, unlike the authorize and summary endpoints.
	if resp.StatusCode == http.StatusUnauthorized {
		return "", authErr("login", "invalid username, password, or region")
	}
	if resp.StatusCode >= 400 {
		return "", genericErrf("login", "request failed with status %d", resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", authErr("login", "response did not include session token")
	}
	if body.Data.TokenID == "" {
		return "", authErr("login", "response did not include session token")
	}
	return body.Data.TokenID, nil
}

// exchangeIDToken runs the second auth stage: the session token cookie is
// presented to the OAuth authorize endpoint, which answers with a redirect
// carrying the bearer token in its URL fragment. The flow is an implicit
// grant layered on a proprietary cookie login; field names and status
// mappings are an opaque upstream contract.
func (c *Client) exchangeIDToken(ctx context.Context, sessionToken string) (string, error) {
	params := url.Values{
		"response_type": {"id_token"},
		"client_id":     {oauthClientID},
		"scope":         {oauthScope},
		"redirect_uri":  {c.cmxBase + "/auth"},
		"nonce":         {newNonce()},
		"state":         {c.cmxBase + "/"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authBase+authorizePath+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionToken})

	resp, err := c.do(ctx, "authorize", req, "unable to reach WW auth API")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", authErr("authorize", "failed to authorize WW session")
	}
	if resp.StatusCode != http.StatusMovedPermanently && resp.StatusCode != http.StatusFound {
		return "", genericErrf("authorize", "request failed with status %d", resp.StatusCode)
	}

	idToken := idTokenFromLocation(resp.Header.Get("Location"))
	if idToken == "" {
		return "", authErr("authorize", "response did not include id_token")
	}
	return idToken, nil
}

// idTokenFromLocation pulls the id_token query parameter out of the redirect
// URL's fragment.
func idTokenFromLocation(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	vals, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return ""
	}
	return vals.Get("id_token")
}

// newNonce returns 16 random bytes hex-encoded for the authorize request.
func newNonce() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// fetchMyDaySummary issues one authenticated summary fetch. It requires a
// bearer token already cached; callers go through GetPointsSummary, which
// guarantees that, so the missing-token check is a defensive invariant.
func (c *Client) fetchMyDaySummary(ctx context.Context, day time.Time) (*PointsSnapshot, error) {
	c.mu.Lock()
	token := c.idToken
	c.mu.Unlock()

	if token == "" {
		return nil, authErr("summary", "missing session token")
	}

	endpoint := c.cmxBase + summaryPath + day.Format("2006-01-02") + "?useHTS=false&useRounded=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	// AddCookie sanitizes values and would rewrite the privacy blob (its
	// quotes and commas are invalid cookie bytes), so the header is built by
	// hand to keep the blob byte-for-byte.
	req.Header.Set("Cookie", bearerCookie+"="+token+"; "+privacyCookie+"="+privacySettings)

	resp, err := c.do(ctx, "summary", req, "unable to reach WW CMX API")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, authErr("summary", "WW session is no longer valid")
	}
	if resp.StatusCode >= 400 {
		return nil, genericErrf("summary", "request failed with status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connErr("summary", "reading WW CMX response", err)
	}

	var body struct {
		PointsDetails map[string]any `json:"pointsDetails"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.PointsDetails == nil {
		return nil, genericErrf("summary", "unexpected response: missing pointsDetails")
	}

	details := body.PointsDetails
	return &PointsSnapshot{
		DailyPointsRemaining:      asInt(details["dailyPointsRemaining"]),
		DailyPointsUsed:           asInt(details["dailyPointsUsed"]),
		DailyActivityPointsEarned: asInt(details["dailyActivityPointsEarned"]),
		WeeklyPointsRemaining:     asInt(details["weeklyPointAllowanceRemaining"]),
		RawDetails:                details,
	}, nil
}

// do executes a single request with rate limiting and maps transport
// failures to the connection tier. There is no retry or backoff here; the
// only retry in the client is the auth-recovery one in GetPointsSummary.
func (c *Client) do(ctx context.Context, op string, req *http.Request, connMsg string) (*http.Response, error) {
	if c.rateMgr != nil {
		if err := c.rateMgr.Wait(ctx, c.creds.Username); err != nil {
			return nil, connErr(op, "rate limit wait", err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveDuration(op, start)
	if err != nil {
		metrics.IncWWRequest(op, "error")
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			c.logger.Warn("ww."+op+".timeout",
				zap.String("url", req.URL.Redacted()),
				zap.Duration("timeout", c.http.Timeout))
		}
		return nil, connErr(op, connMsg, err)
	}

	metrics.IncWWRequest(op, strconv.Itoa(resp.StatusCode))
	c.logger.Debug("ww."+op+".response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// asInt coerces a decoded JSON value to an integer. Numeric strings and
// floats convert (floats truncate); anything else degrades to nil so one
// bad field never fails the whole snapshot.
func asInt(v any) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case json.Number:
		if i64, err := n.Int64(); err == nil {
			i := int(i64)
			return &i
		}
		return nil
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return &i
		}
		return nil
	default:
		return nil
	}
}
