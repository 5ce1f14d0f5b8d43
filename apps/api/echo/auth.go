package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/session"
)

var contextTokenKey = "userToken"

// Claims represents the authorization claims transmitted via a JWT.
// Users are owned by the identity service; only the subject and roles are read here.
type Claims struct {
	jwt.StandardClaims
	Roles []string `json:"roles,omitempty"`
}

// NewClaims returns the claims of a token identifying sess.
func NewClaims(conf *core.Config, sess session.Session) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   sess.UserID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Roles: sess.Roles,
	}
}

// Session returns the caller the claims identify.
func (c Claims) Session() session.Session {
	return session.New(c.Subject, c.Roles...)
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.Server.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextSession returns the caller of the request, or an anonymous session.
func getContextSession(ctx echo.Context) session.Session {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return session.Session{}
	}
	return claims.Session()
}
