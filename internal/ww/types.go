package ww

// Credentials identifies one WW account. Immutable for the lifetime of the
// client that holds them.
type Credentials struct {
	Region   string `json:"region"` // two-letter region code, e.g. "US"
	Username string `json:"username"`
	Password string `json:"password"`
}

// PointsSnapshot is the immutable result of one successful My Day summary
// fetch. Numeric fields that are absent or unparseable upstream are nil,
// never zero. RawDetails preserves the full pointsDetails mapping for
// consumers that need fields beyond the typed ones.
type PointsSnapshot struct {
	DailyPointsRemaining      *int           `json:"dailyPointsRemaining"`
	DailyPointsUsed           *int           `json:"dailyPointsUsed"`
	DailyActivityPointsEarned *int           `json:"dailyActivityPointsEarned"`
	WeeklyPointsRemaining     *int           `json:"weeklyPointsRemaining"`
	RawDetails                map[string]any `json:"rawDetails"`
}

// loginRequest is the payload for the first-stage login API call.
type loginRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	RememberMe      bool   `json:"rememberMe"`
	UsernameEncoded bool   `json:"usernameEncoded"`
	Retry           bool   `json:"retry"`
}

// loginResponse carries the single-use session token issued by the login API.
type loginResponse struct {
	Data struct {
		TokenID string `json:"tokenId"`
	} `json:"data"`
}
