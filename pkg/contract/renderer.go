package contract

import "context"

// Renderer: 模板渲染器。模板按有序搜索路径解析（先命中者优先）。
// data 为只读映射；实现不得修改。
type Renderer interface {
	Render(ctx context.Context, template string, data map[string]any) (string, error)
}
