package misc

import (
	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BindingPathID parses the "id" path parameter.
func BindingPathID(c *gin.Context) (types.ID, error) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		return 0, err
	}
	return id, nil
}
