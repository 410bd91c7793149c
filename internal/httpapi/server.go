// Package httpapi exposes talehub over HTTP with gin. Every response uses
// the protocol.Envelope shape.
package httpapi

import (
	"context"
	"net/http"

	"talehub/internal/account"
	"talehub/internal/auth"
	"talehub/internal/domain"
	"talehub/internal/interaction"
	"talehub/internal/stats"
	"talehub/internal/story"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// AccountDirectory resolves the account behind a verified access token.
type AccountDirectory interface {
	FindAccountByID(ctx context.Context, id uint) (domain.Account, error)
}

type Deps struct {
	Tokens    *auth.TokenService
	Cookies   *auth.CookieManager
	Directory AccountDirectory
	Accounts  *account.Service
	Stories   *story.Engine
	Ledger    *interaction.Ledger
	Stats     *stats.Stats
}

type Options struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64
	UploadDir      string // served under /uploads when set
}

type Server struct {
	tokens    *auth.TokenService
	cookies   *auth.CookieManager
	directory AccountDirectory
	accounts  *account.Service
	stories   *story.Engine
	ledger    *interaction.Ledger
	stats     *stats.Stats
	limiter   *ipLimiter
	opts      Options
}

func New(deps Deps, opts Options) *Server {
	if deps.Stats == nil {
		deps.Stats = stats.New()
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 10
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	return &Server{
		tokens:    deps.Tokens,
		cookies:   deps.Cookies,
		directory: deps.Directory,
		accounts:  deps.Accounts,
		stories:   deps.Stories,
		ledger:    deps.Ledger,
		stats:     deps.Stats,
		limiter:   newIPLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		opts:      opts,
	}
}

// Handler returns the router wrapped in CORS handling. Credentials are
// allowed so browsers send the token cookies cross-origin.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.Router())
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), s.recordStats())
	r.MaxMultipartMemory = s.opts.MaxUploadBytes
	r.HandleMethodNotAllowed = true
	r.NoRoute(notFoundRoute)
	r.NoMethod(methodNotAllowed)

	r.GET("/healthz", s.healthz)
	if s.opts.UploadDir != "" {
		r.Static("/uploads", s.opts.UploadDir)
	}

	api := r.Group("/api/v1")
	authed := s.requireAuth()

	users := api.Group("/users")
	{
		limited := users.Group("", s.rateLimit())
		limited.POST("/sign-up", s.signUp)
		limited.POST("/sign-in", s.signIn)
		limited.POST("/refresh-token", s.refreshToken)

		me := users.Group("", authed)
		me.POST("/sign-out", s.signOut)
		me.PUT("/password", s.changePassword)
		me.PUT("/username", s.changeUsername)
		me.PUT("/email", s.changeEmail)
		me.GET("/me", s.me)
		me.GET("/history", s.history)
		me.GET("/search", s.searchUsers)
		me.GET("/comments", s.myComments)
		me.GET("/likes", s.myLikes)
		me.GET("/notifications", s.notifications)
		me.DELETE("/notifications/:notificationId", s.deleteNotification)
		me.GET("/profile/:username", s.profile)
		me.POST("/follow/:username", s.follow)
	}

	stories := api.Group("/stories")
	{
		stories.GET("", s.listStories)

		owned := stories.Group("", authed)
		owned.POST("", s.createStory)
		owned.GET("/:storyId", s.getStory)
		owned.PATCH("/:storyId/title", s.updateStoryField(domain.FieldTitle))
		owned.PATCH("/:storyId/description", s.updateStoryField(domain.FieldDescription))
		owned.PATCH("/:storyId/body", s.updateStoryField(domain.FieldBody))
		owned.PATCH("/:storyId/thumbnail", s.updateThumbnail)
		owned.DELETE("/:storyId", s.deleteStory)
		owned.POST("/:storyId/like", s.toggleLike)
		owned.GET("/:storyId/likes", s.listLikes)
		owned.GET("/:storyId/comments", s.listComments)
		owned.POST("/:storyId/comments", s.addComment)
	}

	comments := api.Group("/comments", authed)
	{
		comments.PATCH("/:commentId", s.editComment)
		comments.DELETE("/:commentId", s.deleteComment)
	}

	return r
}
