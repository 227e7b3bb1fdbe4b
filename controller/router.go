package controller

import (
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github/itish2003/vaultchat/web"
)

const serviceVersion = "1.0.0"

// NewRouter wires the HTTP routes. ws serves the realtime channel.
func NewRouter(ctrl *RAGController, ws http.Handler) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, err
	}
	router.StaticFS("/static", http.FS(static))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "vaultchat",
			"version": serviceVersion,
		})
	})

	router.GET("/", ctrl.Index)
	router.GET("/ws", gin.WrapH(ws))
	router.POST("/initialize", ctrl.Initialize)
	router.POST("/query", ctrl.Query)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/vaults", ctrl.GetVaults)
		apiV1.GET("/notes", ctrl.GetNote)
		apiV1.GET("/history", ctrl.GetHistory)
	}
	return router, nil
}
