package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	// Unversioned alias for clients of the single-route deployment.
	s.echo.POST("/evaluate", s.evaluate)

	api := s.echo.Group("/api/v1")
	api.POST("/evaluate", s.evaluate)
	api.GET("/usage", s.getUsage)
}
