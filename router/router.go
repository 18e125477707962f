package router

import (
	"database/sql"
	"net/http"

	"clariox/config"
	"clariox/internal/ai"
	authHandler "clariox/internal/auth"
	authRepository "clariox/internal/auth/repository"
	authService "clariox/internal/auth/service"
	postHandler "clariox/internal/post"
	postRepository "clariox/internal/post/repository"
	postService "clariox/internal/post/service"
	"clariox/middleware"
	"clariox/pkg/logger"
	"clariox/socket"
)

// Setup wires the REST API and the live editor socket. gen may be nil, in
// which case /api/ai/generate is not served.
func Setup(db *sql.DB, posts *postService.PostService, hub *socket.Hub, cfg *config.Config, gen ai.Generator) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware(cfg.Auth.Secret)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Sugar.Errorf("Health check failed: %v", err)
			http.Error(w, "Database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r, middleware.UserID(r.Context()))
	})
	mux.Handle("GET /ws", auth(wsHandler))

	// Auth
	users := authService.NewAuthService(authRepository.NewUserRepository(db), cfg.Auth.Secret, cfg.Auth.TokenTTL)
	authH := authHandler.NewAuthHandler(users)
	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)

	// Posts
	postH := postHandler.NewPostHandler(posts, hub)
	mux.Handle("GET /api/posts", auth(http.HandlerFunc(postH.ListPosts)))
	mux.Handle("POST /api/posts", auth(http.HandlerFunc(postH.CreatePost)))
	mux.Handle("GET /api/posts/{id}", auth(http.HandlerFunc(postH.GetPost)))
	mux.Handle("PATCH /api/posts/{id}", auth(http.HandlerFunc(postH.UpdatePost)))
	mux.Handle("DELETE /api/posts/{id}", auth(http.HandlerFunc(postH.DeletePost)))

	if gen != nil {
		aiH := ai.NewHandler(gen)
		mux.Handle("POST /api/ai/generate", auth(http.HandlerFunc(aiH.Generate)))
	}

	return middleware.CORSMiddleware(mux)
}

// NewPostService builds the post service shared by the REST handlers and the
// socket hub.
func NewPostService(db *sql.DB) *postService.PostService {
	return postService.NewPostService(postRepository.NewPostRepository(db))
}
