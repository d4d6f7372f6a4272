package httpadapter

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"fangov/contexts/governance/proposal-engine/domain/entities"
)

const actorContextKey = "proposal_engine_actor"

var errMissingBearer = errors.New("bearer token is required")

// ActorMiddleware resolves the caller from an HS256 bearer token. The "sub"
// claim becomes the user id and "caps" (a list, or a space separated string)
// the capability set. Unknown capabilities are dropped.
func ActorMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := parseActor(c.GetHeader("Authorization"), secret)
		if err != nil {
			writeError(c, http.StatusUnauthorized, "unauthorized", err.Error())
			c.Abort()
			return
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) entities.Actor {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return entities.Actor{}
	}
	actor, _ := value.(entities.Actor)
	return actor
}

func parseActor(header string, secret []byte) (entities.Actor, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return entities.Actor{}, errMissingBearer
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(header[7:]), claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return entities.Actor{}, err
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return entities.Actor{}, err
	}
	if strings.TrimSpace(subject) == "" {
		return entities.Actor{}, jwt.ErrTokenInvalidSubject
	}
	return entities.Actor{
		UserID:       strings.TrimSpace(subject),
		Capabilities: entities.ParseCapabilities(capabilityClaim(claims["caps"])),
	}, nil
}

func capabilityClaim(raw any) []string {
	switch value := raw.(type) {
	case string:
		return strings.Fields(value)
	case []any:
		items := make([]string, 0, len(value))
		for _, item := range value {
			if text, ok := item.(string); ok {
				items = append(items, text)
			}
		}
		return items
	default:
		return nil
	}
}
