package middleware

import (
	"strings"
	"time"

	"gmcore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by handlers to enrich the captured activity.
const (
	ActivityActionKey   = "activity_action"
	ActivityCategoryKey = "activity_category"
	SessionTokenKey     = "session_token"
)

// MarkActivity flags the current request as significant so the capture
// middleware journals it even for GET routes.
func MarkActivity(c *gin.Context, action, category string) {
	c.Set(ActivityActionKey, action)
	c.Set(ActivityCategoryKey, category)
}

// ActivityCapture journals significant requests and bumps session
// counters. It runs after the handler: the journal records state changes,
// it never fronts them. A journal failure does not affect the response.
func ActivityCapture(activity service.ActivityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Form fields must be read before the handler consumes the body.
		var form map[string]any
		if isFormRequest(c) {
			if err := c.Request.ParseForm(); err == nil && len(c.Request.PostForm) > 0 {
				form = make(map[string]any, len(c.Request.PostForm))
				for k, v := range c.Request.PostForm {
					if len(v) == 1 {
						form[k] = v[0]
					} else {
						form[k] = v
					}
				}
			}
		}

		c.Next()

		if token := c.GetString(SessionTokenKey); token != "" {
			pageViews, actions := 1, 0
			if c.Request.Method != "GET" {
				actions = 1
			}
			_ = activity.TouchSession(c.Request.Context(), token, pageViews, actions)
		}

		action, marked := c.Get(ActivityActionKey)
		if c.Request.Method == "GET" && !marked {
			return
		}

		duration := int(time.Since(start).Milliseconds())
		status := c.Writer.Status()

		in := service.RecordInput{
			Type:     "request",
			Action:   strings.ToLower(c.Request.Method) + " " + c.FullPath(),
			Category: "user_action",
			Request: &service.RequestInfo{
				IPAddress: c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
				Method:    c.Request.Method,
				URL:       c.Request.URL.Path,
			},
			FormData:   form,
			Success:    status < 400,
			DurationMs: &duration,
			OccurredAt: start.UTC(),
		}
		if marked {
			if a, ok := action.(string); ok {
				in.Action = a
			}
			in.Category = c.GetString(ActivityCategoryKey)
		}
		if status >= 400 && len(c.Errors) > 0 {
			in.ErrorMessage = c.Errors.Last().Error()
		}
		if v, ok := c.Get(ClaimsKey); ok {
			if claims, ok := v.(*JWTClaims); ok {
				if id, err := uuid.Parse(claims.UserID); err == nil {
					in.SubjectID = &id
					in.ActorID = &id
				}
			}
		}

		_ = activity.Record(c.Request.Context(), in)
	}
}

func isFormRequest(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}
