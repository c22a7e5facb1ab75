package server

// Config is the HTTP server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// RateLimit is the sustained /api/chat rate in requests per second.
	// Zero disables limiting.
	RateLimit float64

	// RateBurst is the number of /api/chat requests allowed at once.
	RateBurst int

	// HistoryLimit caps the stored turns loaded per exchange; zero loads all of them.
	HistoryLimit int
}
