package pos

import "github.com/meja-pos/internal/provider"

// Handler 门店前厅接口处理器入口
// 说明：该处理器覆盖点单、挂账、出品与收银动线。
type Handler struct {
	*provider.Container
}

// New 创建前厅处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
