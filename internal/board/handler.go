package board

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the public board read endpoints.
func (b *Board) RegisterRoutes(r gin.IRouter) {
	r.GET("/counter", b.HandleCounter)
	r.GET("/sounds", b.HandleSounds)
}

// HandleCounter handles GET /counter.
func (b *Board) HandleCounter(c *gin.Context) {
	total, _, _ := b.Snapshot()
	c.JSON(http.StatusOK, gin.H{"counter": total})
}

// HandleSounds handles GET /sounds.
func (b *Board) HandleSounds(c *gin.Context) {
	c.JSON(http.StatusOK, b.SoundsSnapshot())
}
