package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ConfigController struct {
	public any
}

func NewConfigController(public any) *ConfigController {
	return &ConfigController{public: public}
}

// Show handles GET /config.
func (cc *ConfigController) Show(c *gin.Context) {
	if cc.public == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, cc.public)
}
