// Auth HTTP handlers.
//
// This file exposes the account endpoints:
//   - POST /auth/signup                    (register; may require email verification)
//   - POST /auth/verify                    (confirm email, returns a session)
//   - POST /auth/signin                    (password sign-in)
//   - GET  /auth/oauth/{provider}          (provider consent URL)
//   - GET  /auth/oauth/{provider}/callback (provider redirect target)
//   - POST /auth/signout                   (revoke the caller's lease)
//   - GET  /auth/me                        (current account)
package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-studio/internal/http/middleware"
	"github.com/tbourn/go-prompt-studio/internal/services"
)

//
// DTOs
//

// SignUpRequest is the JSON payload for registering a password account.
type SignUpRequest struct {
	Email       string `json:"email"        binding:"required" example:"ada@example.com"`
	Password    string `json:"password"     binding:"required" example:"correct horse battery staple"`
	DisplayName string `json:"display_name" example:"Ada"`
	// RedirectTo is where the verification link lands; defaults to the site URL.
	RedirectTo string `json:"redirect_to" example:"http://localhost:3000/"`
}

// SignInRequest is the JSON payload for password sign-in.
type SignInRequest struct {
	Email    string `json:"email"    binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required"`
}

// VerifyRequest carries the token from the verification email.
type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// OAuthURLResponse is the provider consent URL to send the user to.
type OAuthURLResponse struct {
	URL string `json:"url" example:"https://github.com/login/oauth/authorize?client_id=..."`
}

//
// Handlers
//

// SignUp godoc
// @ID          signUp
// @Summary     Register an account
// @Description Creates a password account and its profile. When verification is required no session is returned.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignUpRequest  true  "Sign-up payload"
// @Success     201   {object}  services.SignUpResult
// @Failure     400   {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409   {object}  handlers.ErrorResponse  "Email already registered"
// @Router      /auth/signup [post]
func (h *Handlers) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	res, err := h.svc.Auth.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName, req.RedirectTo)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, res)
}

// VerifyEmail godoc
// @ID          verifyEmail
// @Summary     Confirm an email address
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.VerifyRequest  true  "Verification token"
// @Success     200   {object}  services.Session
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse  "Unknown or used token"
// @Router      /auth/verify [post]
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token required")
		return
	}
	sess, err := h.svc.Auth.Verify(c.Request.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

// SignIn godoc
// @ID          signIn
// @Summary     Sign in with email and password
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignInRequest  true  "Credentials"
// @Success     200   {object}  services.Session
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     403   {object}  handlers.ErrorResponse  "Email not verified"
// @Router      /auth/signin [post]
func (h *Handlers) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	sess, err := h.svc.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

// OAuthStart godoc
// @ID          oauthStart
// @Summary     Begin provider sign-in
// @Description Returns the provider consent URL. After consent the provider calls the callback, which redirects to redirect_to with the session in the URL fragment.
// @Tags        Auth
// @Produce     json
// @Param       provider     path   string  true   "Provider name"  example(github)
// @Param       redirect_to  query  string  false  "Post sign-in redirect"
// @Success     200  {object}  handlers.OAuthURLResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Provider not configured"
// @Router      /auth/oauth/{provider} [get]
func (h *Handlers) OAuthStart(c *gin.Context) {
	u, err := h.svc.Auth.OAuthURL(c.Param("provider"), c.Query("redirect_to"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, OAuthURLResponse{URL: u})
}

// OAuthCallback godoc
// @ID          oauthCallback
// @Summary     Provider redirect target
// @Tags        Auth
// @Param       provider  path   string  true  "Provider name"
// @Param       code      query  string  true  "Authorization code"
// @Param       state     query  string  true  "Opaque state"
// @Success     302  {string}  string  "Redirect with #access_token=...&token_type=bearer&expires_at=..."
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /auth/oauth/{provider}/callback [get]
func (h *Handlers) OAuthCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "provider denied sign-in: "+e)
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code and state required")
		return
	}
	sess, redirectTo, err := h.svc.Auth.OAuthCallback(c.Request.Context(), c.Param("provider"), code, state)
	if err != nil {
		failErr(c, err)
		return
	}
	target, err := url.Parse(redirectTo)
	if err != nil || redirectTo == "" {
		ok(c, http.StatusOK, sess)
		return
	}
	target.Fragment = url.Values{
		"access_token": {sess.AccessToken},
		"token_type":   {sess.TokenType},
		"expires_at":   {strconv.FormatInt(sess.ExpiresAt.Unix(), 10)},
	}.Encode()
	c.Redirect(http.StatusFound, target.String())
}

// SignOut godoc
// @ID          signOut
// @Summary     Revoke the current session
// @Tags        Auth
// @Security    BearerAuth
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /auth/signout [post]
func (h *Handlers) SignOut(c *gin.Context) {
	p := services.Principal{UserID: userID(c), LeaseID: middleware.LeaseID(c)}
	if err := h.svc.Auth.SignOut(c.Request.Context(), p); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Current account
// @Tags        Auth
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, err := h.svc.Auth.Me(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}
