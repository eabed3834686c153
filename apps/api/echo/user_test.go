package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/kahero/ratiba/core"
	"github.com/kahero/ratiba/core/user"
)

func Test_userApi_login(t *testing.T) {
	pwd := "V3rySecure1"
	lecturer := createUser(t, "Leki", "lekinyo", "leki@kahero.co", pwd, []string{user.RoleLecturer}, true)
	naughty := createUser(t, "N Dog", "ndog1", "ndog@kahero.co", pwd, []string{user.RoleStudent}, false) // 😂

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": reqMsg, "password": reqMsg}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, LoginRequest{Username: "lol", Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, LoginRequest{Username: lecturer.Username, Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, LoginRequest{Username: naughty.Username, Password: pwd}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login with username", wantCode: http.StatusOK, body: marchallObj(t, LoginRequest{Username: lecturer.Username, Password: pwd})},
		{name: "login with email", wantCode: http.StatusOK, body: marchallObj(t, LoginRequest{Username: lecturer.Email, Password: pwd})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			identity.Observe("")

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				if got := identity.CurrentIdentity(); got != lecturer.ID {
					t.Errorf("identity = %q; want %q", got, lecturer.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
			if got := identity.CurrentIdentity(); got != "" {
				t.Errorf("identity = %q; want it untouched on failed login", got)
			}
		})
	}
}

func Test_userApi_logout(t *testing.T) {
	student := createUser(t, "Hero", "herologout", "herologout@kahero.co", "", []string{user.RoleStudent}, true)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/logout")
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("logout clears the session identity", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/logout", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
		if got := identity.CurrentIdentity(); got != "" {
			t.Errorf("identity = %q; want \"\"", got)
		}
	})
}

func Test_userApi_me(t *testing.T) {
	student := createUser(t, "Hero", "herome", "herome@kahero.co", "", []string{user.RoleStudent}, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "me", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, student)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/users/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_queryRoles(t *testing.T) {
	student := createUser(t, "Hero", "heroroles", "heroroles@kahero.co", "", []string{user.RoleStudent}, true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", getToken(t, student))
	app.ServeHTTP(rec, req)

	tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}
	checkCodeAndData(t, tt, rec)
}

func Test_userApi_refreshToken(t *testing.T) {
	naughty := createUser(t, "N Dog", "ndogrefresh", "ndogrefresh@kahero.co", "", []string{user.RoleStudent}, false) // 😂
	student := createUser(t, "Hero", "herorefresh", "herorefresh@kahero.co", "", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshableClaims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   student.ID,
			Audience:  "Academia",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsStudent:    student.IsStudent(),
		Roles:        student.Roles,
	}
	unrefreshableToken, err := GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
